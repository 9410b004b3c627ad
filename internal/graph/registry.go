package graph

import (
	"path/filepath"
	"sync"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

// registry tracks stores currently open in this process, keyed by their
// cleaned absolute root path. Opening the same store root twice from one
// process would let two independent in-memory SnapshotStates drift out of
// sync with each other's appends, so a second OpenShared for the same root
// returns the Store already open instead of opening another. It does not
// fail on that second call, and Open itself does not consult the registry.
var registry = struct {
	mu    sync.Mutex
	stores map[string]*Store
}{stores: make(map[string]*Store)}

// OpenShared opens storeRoot, or returns the already-open *Store for that
// root if this process has one. It is the entry point every caller other
// than tests should use.
func OpenShared(storeRoot string) (*Store, error) {
	abs, err := filepath.Abs(storeRoot)
	if err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "resolve store root", err)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if s, ok := registry.stores[abs]; ok {
		return s, nil
	}

	s, err := Open(storeRoot)
	if err != nil {
		return nil, err
	}
	registry.stores[abs] = s
	return s, nil
}

// CloseShared stops the store's log watcher and releases its registry
// entry. Future OpenShared calls for the same root will re-open and refold
// from disk.
func CloseShared(storeRoot string) error {
	abs, err := filepath.Abs(storeRoot)
	if err != nil {
		return bankerr.Wrap(bankerr.IOError, "resolve store root", err)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if s, ok := registry.stores[abs]; ok {
		s.Close()
	}
	delete(registry.stores, abs)
	return nil
}
