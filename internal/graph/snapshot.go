package graph

import (
	"sort"
	"strings"
	"time"
)

// SnapshotState is the materialized, in-memory graph state: the set of live
// entities, observations, and relations (spec.md §3, §4.5). It is built by
// folding an ordered event sequence; the fold is pure and deterministic.
type SnapshotState struct {
	Entities  map[string]*Entity      // id -> entity
	nameIndex map[string]string       // lowercased name -> id
	obsByID   map[string]*Observation // observation id -> observation
	obsOrder  []string                // observation ids, append order (for stable iteration)
	Relations map[string]*Relation    // id -> relation
	relKeys   map[string]string       // "from\x00to\x00type" -> relation id

	// Warnings accumulates ApplyWarnings seen so far, for diagnostics.
	Warnings []string
}

// NewSnapshotState returns an empty graph state.
func NewSnapshotState() *SnapshotState {
	return &SnapshotState{
		Entities:  make(map[string]*Entity),
		nameIndex: make(map[string]string),
		obsByID:   make(map[string]*Observation),
		Relations: make(map[string]*Relation),
		relKeys:   make(map[string]string),
	}
}

func relKey(from, to, relType string) string {
	return from + "\x00" + to + "\x00" + relType
}

// EntityByName resolves an entity by case-insensitive name.
func (s *SnapshotState) EntityByName(name string) (*Entity, bool) {
	id, ok := s.nameIndex[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	e, ok := s.Entities[id]
	return e, ok
}

// Observations returns the live observations belonging to entityID, in the
// order they were added; observations loaded from a snapshot file come
// first, in id order.
func (s *SnapshotState) Observations(entityID string) []*Observation {
	var out []*Observation
	for _, id := range s.obsOrder {
		o, ok := s.obsByID[id]
		if !ok || o.EntityID != entityID {
			continue
		}
		out = append(out, o)
	}
	return out
}

// AllObservations returns every live observation, in append order.
func (s *SnapshotState) AllObservations() []*Observation {
	out := make([]*Observation, 0, len(s.obsOrder))
	for _, id := range s.obsOrder {
		if o, ok := s.obsByID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// RelationsTouching returns every live relation where entityID is either
// endpoint.
func (s *SnapshotState) RelationsTouching(entityID string) []*Relation {
	var out []*Relation
	for _, r := range s.Relations {
		if r.From == entityID || r.To == entityID {
			out = append(out, r)
		}
	}
	return out
}

// Apply folds one event into state, mutating it in place (spec.md §4.5). It
// never returns an error: illegal mutations (missing endpoints) are dropped
// silently and recorded as a warning string, per spec.md's pinned Open
// Question decision (see DESIGN.md).
func Apply(state *SnapshotState, ev Event) {
	switch ev.Type {
	case EventEntityUpsert:
		applyEntityUpsert(state, ev)
	case EventObservationAdd:
		applyObservationAdd(state, ev)
	case EventRelationAdd:
		applyRelationAdd(state, ev)
	case EventRelationRemove:
		applyRelationRemove(state, ev)
	case EventEntityDelete:
		applyEntityDelete(state, ev)
	case EventObservationDelete:
		applyObservationDelete(state, ev)
	case EventSnapshotWritten, EventMarker:
		// informational / structural, no state change
	default:
		state.Warnings = append(state.Warnings, "skipped unknown event type: "+string(ev.Type))
	}
}

// Fold applies a whole sequence of events to state and returns it.
func Fold(state *SnapshotState, events []Event) *SnapshotState {
	for _, ev := range events {
		Apply(state, ev)
	}
	return state
}

func applyEntityUpsert(state *SnapshotState, ev Event) {
	if ev.Entity == nil {
		return
	}
	incoming := *ev.Entity

	if existing, ok := state.Entities[incoming.ID]; ok {
		mergeEntity(state, existing, incoming, ev.Timestamp)
		return
	}
	if existing, ok := state.EntityByName(incoming.Name); ok {
		mergeEntity(state, existing, incoming, ev.Timestamp)
		return
	}

	if incoming.CreatedAt.IsZero() {
		incoming.CreatedAt = ev.Timestamp
	}
	incoming.UpdatedAt = ev.Timestamp
	e := incoming
	state.Entities[e.ID] = &e
	state.nameIndex[strings.ToLower(e.Name)] = e.ID
}

// mergeEntity updates an existing entity in place from an incoming upsert:
// createdAt is preserved, updatedAt becomes the event timestamp, and the
// incoming type/attrs replace the existing ones. If the name changed, the
// name index is re-keyed.
func mergeEntity(state *SnapshotState, existing *Entity, incoming Entity, ts time.Time) {
	oldNameKey := strings.ToLower(existing.Name)

	existing.Name = incoming.Name
	existing.Type = incoming.Type
	existing.Attrs = incoming.Attrs
	existing.UpdatedAt = ts

	newNameKey := strings.ToLower(existing.Name)
	if newNameKey != oldNameKey {
		delete(state.nameIndex, oldNameKey)
		state.nameIndex[newNameKey] = existing.ID
	}
}

func applyObservationAdd(state *SnapshotState, ev Event) {
	if ev.Observation == nil {
		return
	}
	o := *ev.Observation
	if _, ok := state.Entities[o.EntityID]; !ok {
		state.Warnings = append(state.Warnings, "dropped observation for missing entity "+o.EntityID)
		return
	}
	state.obsByID[o.ID] = &o
	state.obsOrder = append(state.obsOrder, o.ID)
}

func applyRelationAdd(state *SnapshotState, ev Event) {
	if ev.Relation == nil {
		return
	}
	r := *ev.Relation
	if _, ok := state.Entities[r.From]; !ok {
		state.Warnings = append(state.Warnings, "dropped relation with missing source "+r.From)
		return
	}
	if _, ok := state.Entities[r.To]; !ok {
		state.Warnings = append(state.Warnings, "dropped relation with missing target "+r.To)
		return
	}
	key := relKey(r.From, r.To, r.Type)
	if _, exists := state.relKeys[key]; exists {
		return // deduplicated, no-op
	}
	state.Relations[r.ID] = &r
	state.relKeys[key] = r.ID
}

func applyRelationRemove(state *SnapshotState, ev Event) {
	key := relKey(ev.RelationFrom, ev.RelationTo, ev.RelationType)
	id, ok := state.relKeys[key]
	if !ok {
		return
	}
	delete(state.relKeys, key)
	delete(state.Relations, id)
}

func applyEntityDelete(state *SnapshotState, ev Event) {
	id := ev.EntityID
	entity, ok := state.Entities[id]
	if !ok {
		return
	}
	delete(state.Entities, id)
	delete(state.nameIndex, strings.ToLower(entity.Name))

	for _, obsID := range state.obsOrder {
		if o, ok := state.obsByID[obsID]; ok && o.EntityID == id {
			delete(state.obsByID, obsID)
		}
	}
	for key, relID := range state.relKeys {
		r, ok := state.Relations[relID]
		if ok && (r.From == id || r.To == id) {
			delete(state.Relations, relID)
			delete(state.relKeys, key)
		}
	}
}

func applyObservationDelete(state *SnapshotState, ev Event) {
	o, ok := state.obsByID[ev.ObservationID]
	if !ok || o.EntityID != ev.EntityID {
		return
	}
	delete(state.obsByID, ev.ObservationID)
}

// SortedEntities returns every live entity ordered by id, for deterministic
// serialization (spec.md §4.5 "canonical form").
func (s *SnapshotState) SortedEntities() []*Entity {
	ids := make([]string, 0, len(s.Entities))
	for id := range s.Entities {
		ids = append(ids, id)
	}
	sortStrings(ids)
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Entities[id])
	}
	return out
}

// SortedObservations returns every live observation ordered by id.
func (s *SnapshotState) SortedObservations() []*Observation {
	ids := make([]string, 0, len(s.obsByID))
	for id := range s.obsByID {
		ids = append(ids, id)
	}
	sortStrings(ids)
	out := make([]*Observation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.obsByID[id])
	}
	return out
}

// SortedRelations returns every live relation ordered by id.
func (s *SnapshotState) SortedRelations() []*Relation {
	ids := make([]string, 0, len(s.Relations))
	for id := range s.Relations {
		ids = append(ids, id)
	}
	sortStrings(ids)
	out := make([]*Relation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Relations[id])
	}
	return out
}

func sortStrings(ss []string) {
	sort.Strings(ss)
}
