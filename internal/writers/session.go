package writers

import (
	"fmt"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/mdparse"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

var sessionGlyphs = map[string]string{
	"blocker": "⛔",
	"insight": "💡",
	"warning": "⚠️",
}

// AddSessionNote inserts "- [HH:MM AM/PM] <glyph?> <text>" at the top of the
// "## Session Notes" section of active-context.md, creating the section if
// it is missing, and returns the document's new ETag.
func AddSessionNote(ds *store.DocumentStore, note, category string, now time.Time) (etag string, err error) {
	content, currentEtag, readErr := ds.Read(store.DocActiveContext)
	if readErr != nil {
		return "", readErr
	}

	lines := mdparse.Lines(content)
	heading := "## Session Notes"
	idx := mdparse.HeadingIndex(lines, heading)

	entry := renderSessionNote(note, category, now)

	var out []string
	if idx < 0 {
		out = append(out, lines...)
		out = append(out, "", heading, entry)
	} else {
		out = append(out, lines[:idx+1]...)
		out = append(out, entry)
		out = append(out, lines[idx+1:]...)
	}

	return ds.Write(store.DocActiveContext, []byte(mdparse.Join(out)), currentEtag)
}

func renderSessionNote(note, category string, now time.Time) string {
	prefix := ""
	if glyph, ok := sessionGlyphs[category]; ok {
		prefix = glyph + " "
	}
	return fmt.Sprintf("- [%s] %s%s", now.Format("03:04 PM"), prefix, note)
}
