// Package store implements the per-project document store: a fixed set of
// markdown documents with atomic, ETag-preconditioned reads and writes, plus
// backup/restore/migration of the full document set.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Fixed document filenames recognized by a store (spec.md §3).
const (
	DocProductContext = "product-context.md"
	DocActiveContext  = "active-context.md"
	DocProgress       = "progress.md"
	DocDecisionLog    = "decision-log.md"
	DocSystemPatterns = "system-patterns.md"
)

// Graph sub-directory layout (spec.md §4.1).
const (
	GraphDirName   = "graph"
	EventLogName   = "graph.jsonl"
	SnapshotName   = "graph.snapshot.json"
	IndexName      = "graph.index.json"
	GraphMDName    = "graph.md"
	BackupsDirName = "backups"
)

// CoreDocuments returns the fixed document set every store is seeded with.
func CoreDocuments() []string {
	return []string{
		DocProductContext,
		DocActiveContext,
		DocProgress,
		DocDecisionLog,
		DocSystemPatterns,
	}
}

// legacyDocumentNames maps the pre-kebab-case filenames to their canonical
// counterpart, used by MigrateFileNaming.
var legacyDocumentNames = map[string]string{
	"productContext.md": DocProductContext,
	"activeContext.md":  DocActiveContext,
	"decisionLog.md":    DocDecisionLog,
	"systemPatterns.md": DocSystemPatterns,
}

// GraphDir returns the graph sub-directory for a store root.
func GraphDir(root string) string {
	return filepath.Join(root, GraphDirName)
}

// EventLogPath returns the event-log path for a store root.
func EventLogPath(root string) string {
	return filepath.Join(GraphDir(root), EventLogName)
}

// SnapshotPath returns the snapshot path for a store root.
func SnapshotPath(root string) string {
	return filepath.Join(GraphDir(root), SnapshotName)
}

// IndexPath returns the index sidecar path for a store root.
func IndexPath(root string) string {
	return filepath.Join(GraphDir(root), IndexName)
}

// BackupsDir returns the sibling backups directory for a store root.
func BackupsDir(root string) string {
	return filepath.Join(filepath.Dir(root), BackupsDirName)
}

// StoreID derives a store's identifier from its directory basename.
func StoreID(root string) string {
	return filepath.Base(filepath.Clean(root))
}

// WriteAtomic writes data to path by materializing it to a temporary sibling
// file and renaming over the target (spec.md §4.1). No reader ever observes
// a partial write: the rename is the only visible mutation of path.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file over target: %w", err)
	}
	return nil
}

// sortedStrings returns a sorted copy of ss.
func sortedStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}
