package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

// RestoreResult describes what a Restore call actually did.
type RestoreResult struct {
	RestoredFiles      []string
	PreRestoreBackupID string
}

// Backup copies the store directory (documents + graph sub-directory) into a
// sibling backups/<timestamp>-<storeId> directory and returns its leaf name.
// If dest is non-empty it is used as the backups root instead of the default
// sibling directory.
func (ds *DocumentStore) Backup(dest string) (string, error) {
	backupsRoot := dest
	if backupsRoot == "" {
		backupsRoot = BackupsDir(ds.root)
	}

	id := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405.000000000Z"), StoreID(ds.root))
	target := filepath.Join(backupsRoot, id)

	if err := copyTree(ds.root, target); err != nil {
		return "", bankerr.Wrap(bankerr.IOError, "copy store to backup", err)
	}
	return id, nil
}

// ListBackups returns every backup id under the store's backups directory,
// newest first.
func (ds *DocumentStore) ListBackups() ([]string, error) {
	backupsRoot := BackupsDir(ds.root)
	entries, err := os.ReadDir(backupsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, bankerr.Wrap(bankerr.IOError, "list backups", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Restore replaces the store directory's contents with the named backup. If
// createPreRestoreBackup is true, the current state is backed up first so the
// restore itself is reversible.
func (ds *DocumentStore) Restore(backupID string, createPreRestoreBackup bool) (RestoreResult, error) {
	var result RestoreResult

	backupsRoot := BackupsDir(ds.root)
	source := filepath.Join(backupsRoot, backupID)
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return result, bankerr.Newf(bankerr.FileNotFound, "backup %q not found", backupID)
	}

	if createPreRestoreBackup {
		preID, err := ds.Backup("")
		if err != nil {
			return result, err
		}
		result.PreRestoreBackupID = preID
	}

	if err := removeTreeContents(ds.root); err != nil {
		return result, bankerr.Wrap(bankerr.IOError, "clear store before restore", err)
	}
	if err := copyTree(source, ds.root); err != nil {
		return result, bankerr.Wrap(bankerr.IOError, "copy backup into store", err)
	}

	restored, err := listTreeFiles(ds.root)
	if err != nil {
		return result, bankerr.Wrap(bankerr.IOError, "list restored files", err)
	}
	result.RestoredFiles = restored
	return result, nil
}

// copyTree recursively copies src into dst, creating dst if needed.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return WriteAtomic(target, data, 0o644)
	})
}

// removeTreeContents removes everything inside root without removing root
// itself (root may be a directory other code still holds open handles to).
func removeTreeContents(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// listTreeFiles returns every regular file under root, relative to root,
// sorted.
func listTreeFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedStrings(files), nil
}
