package session

import (
	"testing"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

func TestActiveBeforeInitializeFails(t *testing.T) {
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}
	if _, err := m.Active(); bankerr.CodeOf(err) != bankerr.NotInitialized {
		t.Fatalf("Active() = %v, want NOT_INITIALIZED", err)
	}
}

func TestInitializeThenActiveReturnsSameHandle(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}

	h1, err := m.Initialize(root)
	if err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	h2, err := m.Active()
	if err != nil {
		t.Fatalf("Active() = %v", err)
	}
	if h1 != h2 {
		t.Fatal("Active() returned a different handle than Initialize()")
	}
}

func TestInitializeTwiceReturnsSameHandle(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}

	h1, err := m.Initialize(root)
	if err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	h2, err := m.Initialize(root)
	if err != nil {
		t.Fatalf("Initialize() (second) = %v", err)
	}
	if h1 != h2 {
		t.Fatal("second Initialize() of the same path opened a new handle")
	}
}

func TestUseSwitchesActiveStore(t *testing.T) {
	rootA, rootB := t.TempDir(), t.TempDir()
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}

	hA, err := m.Initialize(rootA)
	if err != nil {
		t.Fatalf("Initialize(A) = %v", err)
	}
	if _, err := m.Initialize(rootB); err != nil {
		t.Fatalf("Initialize(B) = %v", err)
	}
	// B is active now; switch back to A by its store id.

	got, err := m.Use(hA.Graph.StoreID())
	if err != nil {
		t.Fatalf("Use(A) = %v", err)
	}
	if got != hA {
		t.Fatal("Use() did not return the handle for the requested store id")
	}
	active, _ := m.Active()
	if active != hA {
		t.Fatal("Use() did not make the requested store active")
	}
}

func TestCloseThenActiveFails(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}
	if _, err := m.Initialize(root); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if err := m.Close(root); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, err := m.Active(); bankerr.CodeOf(err) != bankerr.NotInitialized {
		t.Fatalf("Active() after Close() = %v, want NOT_INITIALIZED", err)
	}
}
