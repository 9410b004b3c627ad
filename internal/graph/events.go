// Package graph implements the knowledge-graph engine: an append-only event
// log that is ground truth, a materialized snapshot, a side index, and the
// mutation/query/compaction operations layered on top (spec.md §4.4-§4.6).
package graph

import "time"

// EventType discriminates the tagged union of log records (spec.md §3, §4.4).
type EventType string

const (
	EventMarker            EventType = "memory_bank_graph"
	EventEntityUpsert      EventType = "entity_upsert"
	EventObservationAdd    EventType = "observation_add"
	EventRelationAdd       EventType = "relation_add"
	EventRelationRemove    EventType = "relation_remove"
	EventEntityDelete      EventType = "entity_delete"
	EventObservationDelete EventType = "observation_delete"
	EventSnapshotWritten   EventType = "snapshot_written"
)

// MarkerSource and SchemaVersion identify the log format (spec.md §4.4).
const (
	MarkerSource  = "memory-bank-mcp"
	SchemaVersion = "1"
)

// ObservationSource tags where an observation came from.
type ObservationSource string

const (
	SourceManual ObservationSource = "manual"
	SourceTool   ObservationSource = "tool"
	SourceImport ObservationSource = "import"
	SourceAgent  ObservationSource = "agent"
)

// Entity is a graph node (spec.md §3).
type Entity struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Type      string                 `json:"type"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Observation is a leaf attached to an entity (spec.md §3).
type Observation struct {
	ID        string            `json:"id"`
	EntityID  string            `json:"entityId"`
	Text      string            `json:"text"`
	Source    ObservationSource `json:"source,omitempty"`
	Ref       string            `json:"ref,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Relation is a directed edge (spec.md §3).
type Relation struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Marker is the fixed first line of the event log.
type Marker struct {
	Type    EventType `json:"type"`
	Source  string    `json:"source"`
	Version string    `json:"version"`
}

// Valid reports whether m matches the expected marker exactly.
func (m Marker) Valid() bool {
	return m.Type == EventMarker && m.Source == MarkerSource && m.Version == SchemaVersion
}

func newMarker() Marker {
	return Marker{Type: EventMarker, Source: MarkerSource, Version: SchemaVersion}
}

// Event is one line of the event log (spec.md §4.4, §4.6). Only the fields
// relevant to Type are populated; the rest are zero-valued.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	Entity      *Entity      `json:"entity,omitempty"`
	Observation *Observation `json:"observation,omitempty"`
	Relation    *Relation    `json:"relation,omitempty"`

	EntityID      string `json:"entityId,omitempty"`
	ObservationID string `json:"observationId,omitempty"`
	RelationFrom  string `json:"from,omitempty"`
	RelationTo    string `json:"to,omitempty"`
	RelationType  string `json:"relationType,omitempty"`
}

func NewEntityUpsertEvent(e Entity, ts time.Time) Event {
	return Event{Type: EventEntityUpsert, Timestamp: ts, Entity: &e}
}

func NewObservationAddEvent(o Observation) Event {
	return Event{Type: EventObservationAdd, Timestamp: o.Timestamp, Observation: &o}
}

func NewRelationAddEvent(r Relation) Event {
	return Event{Type: EventRelationAdd, Timestamp: r.CreatedAt, Relation: &r}
}

func NewRelationRemoveEvent(from, to, relType string, ts time.Time) Event {
	return Event{Type: EventRelationRemove, Timestamp: ts, RelationFrom: from, RelationTo: to, RelationType: relType}
}

func NewEntityDeleteEvent(id string, ts time.Time) Event {
	return Event{Type: EventEntityDelete, Timestamp: ts, EntityID: id}
}

func NewObservationDeleteEvent(entityID, obsID string, ts time.Time) Event {
	return Event{Type: EventObservationDelete, Timestamp: ts, EntityID: entityID, ObservationID: obsID}
}

func NewSnapshotWrittenEvent(ts time.Time) Event {
	return Event{Type: EventSnapshotWritten, Timestamp: ts}
}
