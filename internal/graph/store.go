package graph

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// Store orchestrates the event log, materialized snapshot, and side index
// for one project's knowledge graph (spec.md §4.6). All mutation methods
// append to the log first, then fold the event into the in-memory state;
// the log is ground truth and the in-memory state exists only to serve
// reads cheaply.
type Store struct {
	mu      sync.RWMutex
	root    string
	storeID string
	log     *EventLog
	state   *SnapshotState
	idx     *Index
	watcher *LogWatcher
}

// Open initializes or resumes a graph store rooted at storeRoot (spec.md
// §4.6 step list):
//  1. Open or create the event log, validating its marker.
//  2. If a snapshot and index exist and the index's recorded line count
//     does not exceed the log's current line count, load the snapshot and
//     replay only the tail written after that recorded count.
//  3. Otherwise fold the entire log from scratch.
//  4. Rebuild the index in memory (not persisted until an explicit
//     compaction/rebuild, per the pinned Open Question decision).
func Open(storeRoot string) (*Store, error) {
	id := store.StoreID(storeRoot)

	logPath := store.EventLogPath(storeRoot)
	log, err := OpenOrCreate(logPath)
	if err != nil {
		return nil, err
	}

	lineCount, err := log.LineCount()
	if err != nil {
		return nil, err
	}
	info, err := log.ModTime()
	if err != nil {
		return nil, err
	}

	snapshotFile, err := ReadSnapshotFile(store.SnapshotPath(storeRoot))
	if err != nil {
		return nil, err
	}
	idx, err := ReadIndex(store.IndexPath(storeRoot))
	if err != nil {
		return nil, err
	}

	var state *SnapshotState
	if snapshotFile != nil && idx != nil && idx.LastEventLineCount <= lineCount {
		state = StateFromSnapshotFile(snapshotFile)
		tail, warnings, err := log.ReadTail(idx.LastEventLineCount)
		if err != nil {
			return nil, err
		}
		Fold(state, tail)
		_ = warnings // surfaced via state.Warnings by Apply
	} else {
		state = NewSnapshotState()
		events, _, err := log.ReadAll()
		if err != nil {
			return nil, err
		}
		Fold(state, events)
	}

	freshIdx := BuildIndex(state, lineCount, info.ModTime(), time.Now().UTC())

	watcher, err := WatchLog(context.Background(), logPath)
	if err != nil {
		// Informational only (see LogWatcher's doc comment): a store that
		// can't be watched still serves reads and writes correctly, it just
		// won't notice an out-of-process writer until the next full reopen.
		slog.Warn("failed to start log watcher", "path", logPath, "err", err)
	}

	return &Store{
		root:    storeRoot,
		storeID: id,
		log:     log,
		state:   state,
		idx:     freshIdx,
		watcher: watcher,
	}, nil
}

// Close stops the store's background log watcher. Safe to call on a Store
// with no watcher running.
func (s *Store) Close() {
	s.watcher.Stop()
}

// refreshIfStale folds in any event log lines written by another process
// since this Store last read them, detected via the LogWatcher started in
// Open. It is a best-effort refresh run only by the read paths: mutations do
// not check the log for external appends, and only Open compares the
// index's recorded line count against the log's actual line count.
func (s *Store) refreshIfStale() {
	if s.watcher == nil || !s.watcher.Stale() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.watcher.Stale() {
		return
	}

	lineCount, err := s.log.LineCount()
	if err != nil {
		slog.Warn("log watcher refresh: line count", "err", err)
		return
	}
	tail, _, err := s.log.ReadTail(s.idx.LastEventLineCount)
	if err != nil {
		slog.Warn("log watcher refresh: read tail", "err", err)
		return
	}
	Fold(s.state, tail)
	s.idx.LastEventLineCount = lineCount
	s.watcher.Acknowledge()
}

// StoreID returns the identifier derived from the store's root path.
func (s *Store) StoreID() string {
	return s.storeID
}

func (s *Store) append(ev Event) error {
	if err := s.log.Append(ev); err != nil {
		return err
	}
	Apply(s.state, ev)
	s.idx.LastEventLineCount++
	return nil
}

// UpsertEntity creates an entity, or merges into the existing entity with the
// same case-insensitive name, and returns the resulting live entity.
func (s *Store) UpsertEntity(name, entityType string, attrs map[string]interface{}) (*Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, bankerr.New(bankerr.InvalidInput, "entity name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	id := ""
	if existing, ok := s.state.EntityByName(name); ok {
		id = existing.ID
	} else {
		id = uuid.NewString()
	}

	e := Entity{ID: id, Name: name, Type: entityType, Attrs: attrs, UpdatedAt: now}
	ev := NewEntityUpsertEvent(e, now)
	if err := s.append(ev); err != nil {
		return nil, err
	}
	return s.state.Entities[id], nil
}

// resolveEntity looks up an entity by id first, then by case-insensitive
// name, per spec.md's entity-ref resolution rule.
func (s *Store) resolveEntity(ref string) (*Entity, error) {
	if e, ok := s.state.Entities[ref]; ok {
		return e, nil
	}
	if e, ok := s.state.EntityByName(ref); ok {
		return e, nil
	}
	return nil, bankerr.Newf(bankerr.EntityNotFound, "no entity matching %q", ref)
}

// AddObservation attaches a text observation to an existing entity.
func (s *Store) AddObservation(entityRef, text string, source ObservationSource, ref string) (*Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, err := s.resolveEntity(entityRef)
	if err != nil {
		return nil, err
	}
	o := Observation{
		ID:        uuid.NewString(),
		EntityID:  entity.ID,
		Text:      text,
		Source:    source,
		Ref:       ref,
		Timestamp: time.Now().UTC(),
	}
	if err := s.append(NewObservationAddEvent(o)); err != nil {
		return nil, err
	}
	return s.state.obsByID[o.ID], nil
}

// AddDocPointer is a convenience wrapper recording an observation whose Ref
// points at a document store filename, used by the graph_add_doc_pointer
// tool to cross-link graph entities to prose (spec.md §6).
func (s *Store) AddDocPointer(entityRef, text, docFilename string) (*Observation, error) {
	return s.AddObservation(entityRef, text, SourceTool, docFilename)
}

// LinkEntities creates a directed, deduplicated relation between two
// entities (resolved by id or name).
func (s *Store) LinkEntities(fromRef, toRef, relType string) (*Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.resolveEntity(fromRef)
	if err != nil {
		return nil, err
	}
	to, err := s.resolveEntity(toRef)
	if err != nil {
		return nil, err
	}

	if id, exists := s.state.relKeys[relKey(from.ID, to.ID, relType)]; exists {
		return s.state.Relations[id], nil
	}

	r := Relation{ID: uuid.NewString(), From: from.ID, To: to.ID, Type: relType, CreatedAt: time.Now().UTC()}
	if err := s.append(NewRelationAddEvent(r)); err != nil {
		return nil, err
	}
	return s.state.Relations[r.ID], nil
}

// UnlinkEntities removes a relation by its (from, to, type) triple.
// Returns a RelationNotFound error if no such relation exists.
func (s *Store) UnlinkEntities(fromRef, toRef, relType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.resolveEntity(fromRef)
	if err != nil {
		return err
	}
	to, err := s.resolveEntity(toRef)
	if err != nil {
		return err
	}
	if _, exists := s.state.relKeys[relKey(from.ID, to.ID, relType)]; !exists {
		return bankerr.Newf(bankerr.RelationNotFound, "no %q relation from %q to %q", relType, fromRef, toRef)
	}
	return s.append(NewRelationRemoveEvent(from.ID, to.ID, relType, time.Now().UTC()))
}

// DeleteEntity removes an entity and cascades to its observations and
// touching relations.
func (s *Store) DeleteEntity(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, err := s.resolveEntity(ref)
	if err != nil {
		return err
	}
	return s.append(NewEntityDeleteEvent(entity.ID, time.Now().UTC()))
}

// DeleteObservation removes one observation from an entity. Returns a
// NotFound error if the entity has no observation with that id.
func (s *Store) DeleteObservation(entityRef, observationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, err := s.resolveEntity(entityRef)
	if err != nil {
		return err
	}
	o, ok := s.state.obsByID[observationID]
	if !ok || o.EntityID != entity.ID {
		return bankerr.Newf(bankerr.NotFound, "no observation %q on entity %q", observationID, entityRef)
	}
	return s.append(NewObservationDeleteEvent(entity.ID, observationID, time.Now().UTC()))
}

// Snapshot returns a read-only, point-in-time copy of the current graph
// state's sorted entities, observations, and relations.
func (s *Store) Snapshot() ([]*Entity, []*Observation, []*Relation) {
	s.refreshIfStale()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SortedEntities(), s.state.SortedObservations(), s.state.SortedRelations()
}

// Stats reports current entity/observation/relation counts and the set of
// distinct entity/relation types in use.
func (s *Store) Stats() Stats {
	s.refreshIfStale()
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := BuildIndex(s.state, s.idx.LastEventLineCount, s.idx.JSONLModifiedAt, s.idx.SnapshotBuiltAt)
	return idx.Stats
}

// SearchQuery parameterizes Search (spec.md §6, graph_search tool).
type SearchQuery struct {
	Text               string
	EntityTypes        []string
	RelationTypes      []string
	NeighborhoodDepth  int // 0 = no expansion, 1 or 2 supported
	Limit              int
}

// SearchResult pairs a matched entity with its live observations and any
// relations reached during neighborhood expansion.
type SearchResult struct {
	Entity       *Entity
	Observations []*Observation
	Relations    []*Relation
}

// Search finds entities matching query text (exact name match ranked
// first, then substring matches on name or entity type, then matches found
// only in observation text; within each tier newest-updated first, name as
// a final tiebreaker), optionally filtered by
// entity/relation type and expanded to neighboring entities up to depth 2
// (spec.md §6).
func (s *Store) Search(q SearchQuery) []SearchResult {
	s.refreshIfStale()
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	entityTypeOK := typeFilter(q.EntityTypes)
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	type scored struct {
		entity   *Entity
		exact    bool
		priority int // 0 = name or type match, 1 = observation match
	}
	var candidates []scored

	for _, e := range s.state.SortedEntities() {
		if !entityTypeOK(e.Type) {
			continue
		}
		if needle == "" {
			candidates = append(candidates, scored{entity: e, priority: 0})
			continue
		}
		nameLower := strings.ToLower(e.Name)
		if nameLower == needle {
			candidates = append(candidates, scored{entity: e, exact: true, priority: 0})
			continue
		}
		if strings.Contains(nameLower, needle) {
			candidates = append(candidates, scored{entity: e, priority: 0})
			continue
		}
		if strings.Contains(strings.ToLower(e.Type), needle) {
			candidates = append(candidates, scored{entity: e, priority: 0})
			continue
		}
		for _, o := range s.state.Observations(e.ID) {
			if strings.Contains(strings.ToLower(o.Text), needle) {
				candidates = append(candidates, scored{entity: e, priority: 1})
				break
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if !a.entity.UpdatedAt.Equal(b.entity.UpdatedAt) {
			return a.entity.UpdatedAt.After(b.entity.UpdatedAt)
		}
		return a.entity.Name < b.entity.Name
	})

	seen := map[string]bool{}
	var results []SearchResult
	for _, c := range candidates {
		if len(results) >= limit {
			break
		}
		if seen[c.entity.ID] {
			continue
		}
		seen[c.entity.ID] = true
		results = append(results, s.buildResult(c.entity, q.RelationTypes, q.NeighborhoodDepth))
	}
	return results
}

// OpenNodes resolves a set of entity refs (id or name) directly, each with
// its observations, mirroring the open_nodes tool of spec.md §6.
func (s *Store) OpenNodes(refs []string) []SearchResult {
	s.refreshIfStale()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SearchResult
	for _, ref := range refs {
		entity, err := s.resolveEntity(ref)
		if err != nil {
			continue
		}
		out = append(out, s.buildResult(entity, nil, 1))
	}
	return out
}

func (s *Store) buildResult(entity *Entity, relationTypes []string, depth int) SearchResult {
	relTypeOK := typeFilter(relationTypes)
	result := SearchResult{
		Entity:       entity,
		Observations: s.state.Observations(entity.ID),
	}
	if depth <= 0 {
		return result
	}

	visited := map[string]bool{entity.ID: true}
	seenRel := map[string]bool{}
	frontier := []string{entity.ID}
	for d := 0; d < depth && d < 2; d++ {
		var next []string
		for _, id := range frontier {
			for _, r := range s.state.RelationsTouching(id) {
				if !relTypeOK(r.Type) {
					continue
				}
				if !seenRel[r.ID] {
					seenRel[r.ID] = true
					result.Relations = append(result.Relations, r)
				}
				other := r.To
				if other == id {
					other = r.From
				}
				if !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		frontier = next
	}
	return result
}

func typeFilter(allowed []string) func(string) bool {
	if len(allowed) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		set[t] = true
	}
	return func(t string) bool { return set[t] }
}
