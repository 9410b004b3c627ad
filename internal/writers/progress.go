// Package writers implements the three structured document edits
// (spec.md §4.8): progress entries, session notes, and the task list. Each
// is built on the document store's read + write(ifMatch) pair so a
// concurrent edit to the same file is detected as an ETAG_CONFLICT rather
// than silently lost.
package writers

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/mdparse"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// ProgressCategory is one of the fixed glyph/label categories a progress
// entry may be tagged with (spec.md §4.8).
type ProgressCategory string

const (
	CategoryFeature  ProgressCategory = "feature"
	CategoryFix      ProgressCategory = "fix"
	CategoryRefactor ProgressCategory = "refactor"
	CategoryDocs     ProgressCategory = "docs"
	CategoryTest     ProgressCategory = "test"
	CategoryChore    ProgressCategory = "chore"
	CategoryOther    ProgressCategory = "other"
)

var categoryGlyphs = map[ProgressCategory]string{
	CategoryFeature:  "✨",
	CategoryFix:      "🐛",
	CategoryRefactor: "♻️",
	CategoryDocs:     "📝",
	CategoryTest:     "✅",
	CategoryChore:    "🔧",
	CategoryOther:    "•",
}

// ProgressEntry describes one add_progress_entry call.
type ProgressEntry struct {
	Category ProgressCategory
	Summary  string
	Details  string
	Files    []string
	Tags     []string
}

// AddProgressEntry inserts entry as a new subsection immediately after the
// "## Update History" heading of progress.md (creating the heading if it is
// missing), and returns the entry's stable id and the document's new ETag.
func AddProgressEntry(ds *store.DocumentStore, entry ProgressEntry, now time.Time) (id string, etag string, err error) {
	content, currentEtag, readErr := ds.Read(store.DocProgress)
	if readErr != nil {
		return "", "", readErr
	}

	lines := mdparse.Lines(content)
	id = entryID(now)
	block := renderProgressEntry(id, entry, now)

	heading := "## Update History"
	idx := mdparse.HeadingIndex(lines, heading)
	if idx < 0 {
		lines = append(lines, "", heading)
		idx = len(lines) - 1
	}

	out := make([]string, 0, len(lines)+len(block)+1)
	out = append(out, lines[:idx+1]...)
	out = append(out, "")
	out = append(out, block...)
	out = append(out, lines[idx+1:]...)

	newEtag, writeErr := ds.Write(store.DocProgress, []byte(mdparse.Join(out)), currentEtag)
	if writeErr != nil {
		return "", "", writeErr
	}
	return id, newEtag, nil
}

func renderProgressEntry(id string, entry ProgressEntry, now time.Time) []string {
	glyph, ok := categoryGlyphs[entry.Category]
	if !ok {
		glyph = categoryGlyphs[CategoryOther]
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("<!-- %s -->", id))
	lines = append(lines, fmt.Sprintf("### %s %s %s — %s", glyph, string(entry.Category), now.Format("2006-01-02 15:04"), entry.Summary))
	if entry.Details != "" {
		lines = append(lines, "", entry.Details)
	}
	if len(entry.Files) > 0 {
		lines = append(lines, "", "**Files:** "+strings.Join(entry.Files, ", "))
	}
	if len(entry.Tags) > 0 {
		lines = append(lines, "", "**Tags:** "+strings.Join(entry.Tags, ", "))
	}
	lines = append(lines, "")
	return lines
}

// entryID formats a stable p_<YYYY-MM-DD>_<base36-millis> identifier.
func entryID(now time.Time) string {
	millis := big.NewInt(now.UnixMilli())
	return fmt.Sprintf("p_%s_%s", now.Format("2006-01-02"), millis.Text(36))
}
