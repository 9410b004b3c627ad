package writers

import (
	"strings"

	"github.com/madeindigio/memory-bank-mcp/internal/mdparse"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// TaskEdit describes one update_tasks call. Replace, when non-nil,
// overwrites the whole list and Add/Remove are ignored.
type TaskEdit struct {
	Add     []string
	Remove  []string
	Replace []string
}

var taskHeadings = []string{"## Tasks", "## Current Tasks"}

// UpdateTasks applies edit to the bulleted list under "## Tasks" or
// "## Current Tasks" in active-context.md (whichever is present; "## Tasks"
// is created if neither is), and returns the document's new ETag.
//
// Remove matches by case-insensitive substring. Add is case-insensitively
// deduplicated against the existing list. Replace overwrites the list
// entirely and ignores Add/Remove.
func UpdateTasks(ds *store.DocumentStore, edit TaskEdit) (etag string, err error) {
	content, currentEtag, readErr := ds.Read(store.DocActiveContext)
	if readErr != nil {
		return "", readErr
	}

	lines := mdparse.Lines(content)
	heading, idx := findTaskHeading(lines)
	if idx < 0 {
		heading = taskHeadings[0]
		lines = append(lines, "", heading)
		idx = len(lines) - 1
	}
	end := mdparse.SectionEnd(lines, idx)
	current := mdparse.Bullets(lines, idx+1, end)

	next := applyTaskEdit(current, edit)

	var body []string
	for _, t := range next {
		body = append(body, "- "+t)
	}

	out := make([]string, 0, len(lines))
	out = append(out, lines[:idx+1]...)
	out = append(out, body...)
	out = append(out, lines[end:]...)

	return ds.Write(store.DocActiveContext, []byte(mdparse.Join(out)), currentEtag)
}

func findTaskHeading(lines []string) (string, int) {
	for _, h := range taskHeadings {
		if idx := mdparse.HeadingIndex(lines, h); idx >= 0 {
			return h, idx
		}
	}
	return "", -1
}

func applyTaskEdit(current []string, edit TaskEdit) []string {
	if edit.Replace != nil {
		return dedupeCaseInsensitive(edit.Replace)
	}

	next := make([]string, 0, len(current))
	removed := make([]bool, len(current))
	for _, r := range edit.Remove {
		needle := strings.ToLower(r)
		for i, t := range current {
			if !removed[i] && strings.Contains(strings.ToLower(t), needle) {
				removed[i] = true
			}
		}
	}
	for i, t := range current {
		if !removed[i] {
			next = append(next, t)
		}
	}

	for _, a := range edit.Add {
		if !containsCaseInsensitive(next, a) {
			next = append(next, a)
		}
	}
	return next
}

func dedupeCaseInsensitive(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

func containsCaseInsensitive(items []string, target string) bool {
	needle := strings.ToLower(target)
	for _, it := range items {
		if strings.ToLower(it) == needle {
			return true
		}
	}
	return false
}
