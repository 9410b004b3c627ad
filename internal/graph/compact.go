package graph

import (
	"encoding/json"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// CompactResult reports what a Compact or Rebuild pass did, for the
// membank-compact CLI and the graph_compact/graph_rebuild tools.
type CompactResult struct {
	EventsBefore int
	EventsAfter  int
	Entities     int
	Observations int
	Relations    int
}

// Compact rewrites the event log to its minimal equivalent form: one upsert
// per live entity, one add per live observation, one add per live relation,
// preceded by the marker line, then atomically writes the refreshed
// snapshot and index (spec.md §4.6 "Compaction"). The in-memory state is
// unchanged — compaction only affects on-disk representation, never graph
// semantics, so read results before and after are identical.
func (s *Store) Compact() (CompactResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewriteLog()
}

// Rebuild discards the snapshot and index and refolds the entire event log
// from scratch, replacing the in-memory state, then writes the refreshed
// snapshot and index. Unlike Compact, Rebuild never mutates the log itself
// (spec.md §4.6: "Rebuild = fold log -> write snapshot -> write index. No
// mutation to the log.") — it does not append a SnapshotWritten event.
func (s *Store) Rebuild() (CompactResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, _, err := s.log.ReadAll()
	if err != nil {
		return CompactResult{}, err
	}
	before, err := s.log.LineCount()
	if err != nil {
		return CompactResult{}, err
	}

	s.state = Fold(NewSnapshotState(), events)
	return s.persistSnapshotAndIndex(before, before)
}

// rewriteLog atomically replaces the event log with its compacted form,
// then reopens the append handle and persists a fresh snapshot/index.
func (s *Store) rewriteLog() (CompactResult, error) {
	before, err := s.log.LineCount()
	if err != nil {
		return CompactResult{}, err
	}

	lines := make([][]byte, 0, before)
	markerLine, err := json.Marshal(newMarker())
	if err != nil {
		return CompactResult{}, bankerr.Wrap(bankerr.IOError, "marshal marker", err)
	}
	lines = append(lines, markerLine)

	for _, e := range s.state.SortedEntities() {
		line, err := json.Marshal(NewEntityUpsertEvent(*e, e.UpdatedAt))
		if err != nil {
			return CompactResult{}, bankerr.Wrap(bankerr.IOError, "marshal entity", err)
		}
		lines = append(lines, line)
	}
	for _, o := range s.state.SortedObservations() {
		line, err := json.Marshal(NewObservationAddEvent(*o))
		if err != nil {
			return CompactResult{}, bankerr.Wrap(bankerr.IOError, "marshal observation", err)
		}
		lines = append(lines, line)
	}
	for _, r := range s.state.SortedRelations() {
		line, err := json.Marshal(NewRelationAddEvent(*r))
		if err != nil {
			return CompactResult{}, bankerr.Wrap(bankerr.IOError, "marshal relation", err)
		}
		lines = append(lines, line)
	}

	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	if err := store.WriteAtomic(s.log.Path(), buf, 0o644); err != nil {
		return CompactResult{}, err
	}

	reopened, err := OpenOrCreate(s.log.Path())
	if err != nil {
		return CompactResult{}, err
	}
	s.log = reopened

	result, err := s.persistSnapshotAndIndex(before, len(lines))
	if err != nil {
		return CompactResult{}, err
	}

	// Compact's own rewritten log is the new ground truth, so record that
	// the snapshot/index were (re)written from it. Rebuild never does this.
	if err := s.log.Append(NewSnapshotWrittenEvent(time.Now().UTC())); err != nil {
		return CompactResult{}, err
	}
	Apply(s.state, NewSnapshotWrittenEvent(time.Now().UTC()))
	s.idx.LastEventLineCount++

	return result, nil
}

// persistSnapshotAndIndex writes the current in-memory state to disk as a
// snapshot and index, without touching the event log. The snapshot/index
// timestamps are carried over from whatever is already on disk rather than
// stamped with time.Now(), so that two persists of unchanged state (as
// Rebuild performs with no intervening mutation) produce byte-identical
// files (spec.md §4.6 Rebuild idempotence). A fresh stamp is only used the
// first time a store is persisted, when nothing is on disk yet.
func (s *Store) persistSnapshotAndIndex(eventsBefore, eventsAfter int) (CompactResult, error) {
	builtAt := time.Now().UTC()
	if existing, err := ReadSnapshotFile(store.SnapshotPath(s.root)); err == nil && existing != nil {
		builtAt = existing.Meta.CreatedAt
	}

	sf := BuildSnapshotFile(s.state, s.storeID, builtAt)
	if err := WriteSnapshotFile(store.SnapshotPath(s.root), sf); err != nil {
		return CompactResult{}, err
	}

	info, err := s.log.ModTime()
	if err != nil {
		return CompactResult{}, err
	}
	lineCount, err := s.log.LineCount()
	if err != nil {
		return CompactResult{}, err
	}
	idx := BuildIndex(s.state, lineCount, info.ModTime(), builtAt)
	if err := WriteIndex(store.IndexPath(s.root), idx); err != nil {
		return CompactResult{}, err
	}
	s.idx = idx

	return CompactResult{
		EventsBefore: eventsBefore,
		EventsAfter:  eventsAfter,
		Entities:     len(s.state.Entities),
		Observations: len(s.state.obsByID),
		Relations:    len(s.state.Relations),
	}, nil
}
