// Package session tracks which memory bank stores this process has opened
// and which one is currently active. Tool handlers never touch graph.Open or
// store.Open directly; they go through a Manager so "active store" is a
// single, process-wide piece of state instead of something each tool call
// has to thread through.
package session

import (
	"path/filepath"
	"sync"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
	"github.com/madeindigio/memory-bank-mcp/internal/graph"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// Handle pairs the document store and graph store opened for one store root.
type Handle struct {
	Root  string
	Docs  *store.DocumentStore
	Graph *graph.Store
}

// Manager opens and tracks store Handles and remembers which one is active.
// A process may know about several stores; tool calls that don't name one
// explicitly operate on the active store.
type Manager struct {
	mu     sync.Mutex
	active string
	stores map[string]*Handle
}

// NewManager returns an empty session manager. If initialRoot is non-empty,
// it is opened immediately and made active (used for the --store flag).
func NewManager(initialRoot string) (*Manager, error) {
	m := &Manager{stores: make(map[string]*Handle)}
	if initialRoot == "" {
		return m, nil
	}
	if _, err := m.Initialize(initialRoot); err != nil {
		return nil, err
	}
	return m, nil
}

// Initialize opens (creating if absent) the store rooted at path, makes it
// the active store, and returns its Handle.
func (m *Manager) Initialize(path string) (*Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "resolve store path", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.stores[abs]; ok {
		m.active = abs
		return h, nil
	}

	docs, err := store.Open(abs)
	if err != nil {
		return nil, err
	}
	gs, err := graph.OpenShared(abs)
	if err != nil {
		return nil, err
	}

	h := &Handle{Root: abs, Docs: docs, Graph: gs}
	m.stores[abs] = h
	m.active = abs
	return h, nil
}

// Active returns the currently active store's Handle, or NotInitialized if
// no store has been initialized yet.
func (m *Manager) Active() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return nil, bankerr.New(bankerr.NotInitialized, "no memory bank store is open; call initialize_memory_bank first")
	}
	h, ok := m.stores[m.active]
	if !ok {
		return nil, bankerr.New(bankerr.NotInitialized, "no memory bank store is open; call initialize_memory_bank first")
	}
	return h, nil
}

// Use switches the active store to one already opened by storeID (a
// directory basename, as returned by graph.Store.StoreID).
func (m *Manager) Use(storeID string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for root, h := range m.stores {
		if h.Graph.StoreID() == storeID {
			m.active = root
			return h, nil
		}
	}
	return nil, bankerr.Newf(bankerr.NotInitialized, "store %q has not been opened", storeID)
}

// Close releases the store rooted at path from this process's registry. A
// later Initialize for the same path re-opens and refolds from disk.
func (m *Manager) Close(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return bankerr.Wrap(bankerr.IOError, "resolve store path", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stores, abs)
	if m.active == abs {
		m.active = ""
	}
	return graph.CloseShared(abs)
}
