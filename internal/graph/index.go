package graph

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// Stats summarizes the graph for status/digest purposes (spec.md §3, §4.6).
type Stats struct {
	EntityCount      int      `json:"entityCount"`
	ObservationCount int      `json:"observationCount"`
	RelationCount    int      `json:"relationCount"`
	EntityTypes      []string `json:"entityTypes"`
	RelationTypes    []string `json:"relationTypes"`
}

// Index is the quick-lookup sidecar derived from a snapshot (spec.md §3,
// "Index").
type Index struct {
	LastEventLineCount int               `json:"lastEventLineCount"`
	SnapshotBuiltAt    time.Time         `json:"snapshotBuiltAt"`
	JSONLModifiedAt    time.Time         `json:"jsonlModifiedAt"`
	Stats              Stats             `json:"stats"`
	NameToEntityID     map[string]string `json:"nameToEntityId"`
}

// BuildIndex derives an Index from state, current log line count, and the
// log's on-disk modification time. builtAt stamps Index.SnapshotBuiltAt;
// callers that need Rebuild to be byte-identical across repeated calls with
// no intervening mutation pass through the previous build's timestamp
// rather than time.Now().
func BuildIndex(state *SnapshotState, lineCount int, logModTime, builtAt time.Time) *Index {
	entityTypes := map[string]struct{}{}
	relationTypes := map[string]struct{}{}
	nameToID := make(map[string]string, len(state.Entities))

	for _, e := range state.Entities {
		entityTypes[e.Type] = struct{}{}
		nameToID[e.Name] = e.ID
	}
	for _, r := range state.Relations {
		relationTypes[r.Type] = struct{}{}
	}

	return &Index{
		LastEventLineCount: lineCount,
		SnapshotBuiltAt:    builtAt,
		JSONLModifiedAt:    logModTime,
		Stats: Stats{
			EntityCount:      len(state.Entities),
			ObservationCount: len(state.obsByID),
			RelationCount:    len(state.Relations),
			EntityTypes:      sortedKeys(entityTypes),
			RelationTypes:    sortedKeys(relationTypes),
		},
		NameToEntityID: nameToID,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WriteIndex atomically persists idx as pretty-printed JSON.
func WriteIndex(path string, idx *Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return bankerr.Wrap(bankerr.IOError, "marshal index", err)
	}
	if err := store.WriteAtomic(path, data, 0o644); err != nil {
		return bankerr.Wrap(bankerr.IOError, "write index", err)
	}
	return nil
}

// ReadIndex loads an Index file, or nil if it does not exist.
func ReadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "read index", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, bankerr.Wrap(bankerr.ValidationError, "parse index", err)
	}
	return &idx, nil
}

// SnapshotMeta self-describes a persisted snapshot file (spec.md invariant 5).
type SnapshotMeta struct {
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	StoreID   string    `json:"storeId"`
	CreatedAt time.Time `json:"createdAt"`
	Source    string    `json:"source"`
}

// SnapshotFile is the on-disk shape of graph.snapshot.json (spec.md §6).
type SnapshotFile struct {
	Meta         SnapshotMeta   `json:"meta"`
	Entities     []*Entity      `json:"entities"`
	Observations []*Observation `json:"observations"`
	Relations    []*Relation    `json:"relations"`
}

// BuildSnapshotFile renders state as a self-describing snapshot document in
// canonical (id-sorted) order. createdAt stamps Meta.CreatedAt; see
// BuildIndex's builtAt for why callers may need to thread a prior timestamp
// through instead of time.Now().
func BuildSnapshotFile(state *SnapshotState, storeID string, createdAt time.Time) *SnapshotFile {
	return &SnapshotFile{
		Meta: SnapshotMeta{
			Type:      "memory_bank_graph_snapshot",
			Version:   SchemaVersion,
			StoreID:   storeID,
			CreatedAt: createdAt,
			Source:    MarkerSource,
		},
		Entities:     state.SortedEntities(),
		Observations: state.SortedObservations(),
		Relations:    state.SortedRelations(),
	}
}

// WriteSnapshotFile atomically persists sf as pretty-printed JSON.
func WriteSnapshotFile(path string, sf *SnapshotFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return bankerr.Wrap(bankerr.IOError, "marshal snapshot", err)
	}
	if err := store.WriteAtomic(path, data, 0o644); err != nil {
		return bankerr.Wrap(bankerr.IOError, "write snapshot", err)
	}
	return nil
}

// ReadSnapshotFile loads a snapshot file, or nil if it does not exist.
func ReadSnapshotFile(path string) (*SnapshotFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "read snapshot", err)
	}
	var sf SnapshotFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, bankerr.Wrap(bankerr.ValidationError, "parse snapshot", err)
	}
	return &sf, nil
}

// StateFromSnapshotFile rehydrates a SnapshotState from a persisted snapshot,
// preserving entity/observation/relation identity so a subsequent tail fold
// applies cleanly.
func StateFromSnapshotFile(sf *SnapshotFile) *SnapshotState {
	state := NewSnapshotState()
	for _, e := range sf.Entities {
		cp := *e
		state.Entities[cp.ID] = &cp
		state.nameIndex[strings.ToLower(cp.Name)] = cp.ID
	}
	for _, o := range sf.Observations {
		cp := *o
		state.obsByID[cp.ID] = &cp
		state.obsOrder = append(state.obsOrder, cp.ID)
	}
	for _, r := range sf.Relations {
		cp := *r
		state.Relations[cp.ID] = &cp
		state.relKeys[relKey(cp.From, cp.To, cp.Type)] = cp.ID
	}
	return state
}
