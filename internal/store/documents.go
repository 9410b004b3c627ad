package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

// DocumentStore is the atomic, ETag-preconditioned read/write layer over a
// store's fixed document set (spec.md §4.3).
type DocumentStore struct {
	root string
}

// WriteRequest is one entry of a BatchWrite call.
type WriteRequest struct {
	Filename string
	Content  []byte
	IfMatch  string // empty means "no precondition"
}

// ReadResult is the outcome of one BatchRead entry.
type ReadResult struct {
	Content []byte
	ETag    string
	Err     error
}

// WriteResult is the outcome of one BatchWrite entry.
type WriteResult struct {
	ETag string
	Err  error
}

// Open creates the store root (and the fixed document set, seeded from
// templates) if absent, and returns a DocumentStore rooted there.
func Open(root string) (*DocumentStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "create store root", err)
	}

	ds := &DocumentStore{root: root}
	for _, name := range CoreDocuments() {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return nil, bankerr.Wrap(bankerr.IOError, "stat "+name, err)
		}
		if err := WriteAtomic(path, []byte(defaultTemplates[name]), 0o644); err != nil {
			return nil, bankerr.Wrap(bankerr.IOError, "seed "+name, err)
		}
	}
	return ds, nil
}

// Root returns the store's root directory.
func (ds *DocumentStore) Root() string {
	return ds.root
}

// validateFilename rejects path traversal and directory components; the
// document set is always a flat, single-directory layout.
func validateFilename(name string) error {
	if name == "" {
		return bankerr.New(bankerr.InvalidInput, "filename must not be empty")
	}
	if filepath.Base(name) != name {
		return bankerr.Newf(bankerr.InvalidInput, "filename %q must not contain path separators", name)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "\x00") {
		return bankerr.Newf(bankerr.InvalidInput, "filename %q is invalid", name)
	}
	return nil
}

// Read returns a document's bytes and ETag.
func (ds *DocumentStore) Read(filename string) ([]byte, string, error) {
	if err := validateFilename(filename); err != nil {
		return nil, "", err
	}
	path := filepath.Join(ds.root, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", bankerr.Newf(bankerr.FileNotFound, "document %q not found", filename)
		}
		return nil, "", bankerr.Wrap(bankerr.IOError, "read "+filename, err)
	}
	return data, ETag(data), nil
}

// Write writes a document's content atomically. If ifMatch is non-empty, the
// current on-disk ETag must equal it or the write fails with ETagConflict
// and the file is left untouched.
func (ds *DocumentStore) Write(filename string, content []byte, ifMatch string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	path := filepath.Join(ds.root, filename)

	if ifMatch != "" {
		current, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return "", bankerr.Wrap(bankerr.IOError, "read "+filename, err)
		}
		currentTag := ETag(current)
		if err == nil && currentTag != ifMatch {
			return "", bankerr.Newf(bankerr.ETagConflict, "document %q changed since ETag %s was read", filename, ifMatch)
		}
		if os.IsNotExist(err) {
			return "", bankerr.Newf(bankerr.ETagConflict, "document %q no longer exists", filename)
		}
	}

	if err := WriteAtomic(path, content, 0o644); err != nil {
		return "", bankerr.Wrap(bankerr.IOError, "write "+filename, err)
	}
	return ETag(content), nil
}

// List returns every regular file directly under the store root, sorted.
func (ds *DocumentStore) List() ([]string, error) {
	entries, err := os.ReadDir(ds.root)
	if err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "list store root", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return sortedStrings(names), nil
}

// BatchRead reads multiple documents, collecting a per-file result.
func (ds *DocumentStore) BatchRead(filenames []string) map[string]ReadResult {
	out := make(map[string]ReadResult, len(filenames))
	for _, name := range filenames {
		content, etag, err := ds.Read(name)
		out[name] = ReadResult{Content: content, ETag: etag, Err: err}
	}
	return out
}

// BatchWrite writes multiple documents sequentially. Each write is
// individually atomic; the batch as a whole has no all-or-nothing semantics.
// When stopOnError is true, processing halts at the first failing entry and
// subsequent entries are omitted from the result map.
func (ds *DocumentStore) BatchWrite(items []WriteRequest, stopOnError bool) map[string]WriteResult {
	out := make(map[string]WriteResult, len(items))
	for _, item := range items {
		etag, err := ds.Write(item.Filename, item.Content, item.IfMatch)
		out[item.Filename] = WriteResult{ETag: etag, Err: err}
		if err != nil && stopOnError {
			break
		}
	}
	return out
}

// MigrateFileNaming renames legacy camelCase document filenames to their
// canonical kebab-case counterpart. Idempotent: running it twice in a row is
// a no-op the second time. Returns the list of files actually renamed.
func (ds *DocumentStore) MigrateFileNaming() ([]string, error) {
	var renamed []string
	for legacy, canonical := range legacyDocumentNames {
		oldPath := filepath.Join(ds.root, legacy)
		newPath := filepath.Join(ds.root, canonical)

		if _, err := os.Stat(oldPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return renamed, bankerr.Wrap(bankerr.IOError, "stat "+legacy, err)
		}
		if _, err := os.Stat(newPath); err == nil {
			// Canonical name already exists; leave the legacy file alone
			// rather than silently clobbering newer content.
			continue
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return renamed, bankerr.Wrap(bankerr.IOError, "rename "+legacy, err)
		}
		renamed = append(renamed, canonical)
	}
	return sortedStrings(renamed), nil
}
