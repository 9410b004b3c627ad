// Package digest composes the cross-document context summary returned by
// the get_context_digest tool (spec.md §4.7).
package digest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/madeindigio/memory-bank-mcp/internal/graph"
	"github.com/madeindigio/memory-bank-mcp/internal/mdparse"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// Options parameterizes Build (spec.md §6 get_context_digest defaults).
type Options struct {
	MaxProgressEntries  int
	MaxDecisions        int
	IncludeSystemPatterns bool
}

// DefaultOptions mirrors the tool surface's declared defaults.
func DefaultOptions() Options {
	return Options{MaxProgressEntries: 10, MaxDecisions: 5, IncludeSystemPatterns: false}
}

// Decision is one ##-level section of decision-log.md.
type Decision struct {
	Title    string
	Date     string
	Decision string
}

// Digest is the composed summary. Any field is left empty/nil when its
// source document or section is absent — missing documents never fail the
// digest (spec.md §4.7).
type Digest struct {
	ProjectState   string
	OngoingTasks   []string
	KnownIssues    []string
	NextSteps      []string
	RecentProgress []string
	RecentDecisions []Decision
	SystemPatterns string
	GraphSummary   string
}

var progressEntryPattern = regexp.MustCompile(`^- \[\d{4}-\d{2}-\d{2}`)

// Build composes a Digest by reading from ds and, if present, summarizing
// gs (gs may be nil when no graph has been initialized for this store).
func Build(ds *store.DocumentStore, gs *graph.Store, opts Options) (Digest, error) {
	var d Digest

	if content, _, err := readOptional(ds, store.DocActiveContext); err != nil {
		return d, err
	} else if content != nil {
		lines := mdparse.Lines(content)
		d.ProjectState = extractProjectState(lines)
		d.OngoingTasks = extractSection(lines, "## Ongoing Tasks")
		d.KnownIssues = extractSection(lines, "## Known Issues")
		d.NextSteps = extractSection(lines, "## Next Steps")
	}

	if content, _, err := readOptional(ds, store.DocProgress); err != nil {
		return d, err
	} else if content != nil {
		d.RecentProgress = extractRecentProgress(mdparse.Lines(content), opts.MaxProgressEntries)
	}

	if content, _, err := readOptional(ds, store.DocDecisionLog); err != nil {
		return d, err
	} else if content != nil {
		d.RecentDecisions = extractDecisions(mdparse.Lines(content), opts.MaxDecisions)
	}

	if opts.IncludeSystemPatterns {
		if content, _, err := readOptional(ds, store.DocSystemPatterns); err != nil {
			return d, err
		} else if content != nil {
			lines := mdparse.Lines(content)
			if len(lines) > 20 {
				lines = lines[:20]
			}
			d.SystemPatterns = mdparse.Join(lines)
		}
	}

	if gs != nil {
		d.GraphSummary = summarizeGraph(gs)
	}

	return d, nil
}

func readOptional(ds *store.DocumentStore, filename string) ([]byte, string, error) {
	content, etag, err := ds.Read(filename)
	if err != nil {
		return nil, "", nil // missing documents are omitted, not an error
	}
	return content, etag, nil
}

func extractProjectState(lines []string) string {
	idx := mdparse.HeadingIndex(lines, "## Current Project State")
	if idx < 0 {
		return ""
	}
	end := mdparse.SectionEnd(lines, idx)
	return mdparse.FirstNonEmpty(lines, idx+1, end)
}

func extractSection(lines []string, heading string) []string {
	idx := mdparse.HeadingIndex(lines, heading)
	if idx < 0 {
		return nil
	}
	end := mdparse.SectionEnd(lines, idx)
	return mdparse.Bullets(lines, idx+1, end)
}

func extractRecentProgress(lines []string, max int) []string {
	if max <= 0 {
		max = 10
	}
	var out []string
	for _, l := range lines {
		if progressEntryPattern.MatchString(strings.TrimSpace(l)) {
			out = append(out, strings.TrimSpace(l))
			if len(out) >= max {
				break
			}
		}
	}
	return out
}

var decisionDateField = regexp.MustCompile(`^\*\*Date:\*\*\s*(.+)$`)
var decisionDecisionField = regexp.MustCompile(`^\*\*Decision:\*\*\s*(.+)$`)

func extractDecisions(lines []string, max int) []Decision {
	if max <= 0 {
		max = 5
	}
	var out []Decision
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if !strings.HasPrefix(trimmed, "## ") {
			continue
		}
		if len(out) >= max {
			break
		}
		end := mdparse.SectionEnd(lines, i)
		dec := Decision{Title: strings.TrimPrefix(trimmed, "## ")}
		for j := i + 1; j < end; j++ {
			body := strings.TrimSpace(lines[j])
			if m := decisionDateField.FindStringSubmatch(body); m != nil {
				dec.Date = m[1]
			}
			if m := decisionDecisionField.FindStringSubmatch(body); m != nil {
				dec.Decision = m[1]
			}
		}
		out = append(out, dec)
	}
	return out
}

func summarizeGraph(gs *graph.Store) string {
	stats := gs.Stats()
	entities, _, _ := gs.Snapshot()

	topTypes := stats.EntityTypes
	if len(topTypes) > 5 {
		topTypes = topTypes[:5]
	}

	byUpdate := append([]*graph.Entity(nil), entities...)
	sort.SliceStable(byUpdate, func(i, j int) bool {
		return byUpdate[i].UpdatedAt.After(byUpdate[j].UpdatedAt)
	})
	if len(byUpdate) > 5 {
		byUpdate = byUpdate[:5]
	}
	var recent []string
	for _, e := range byUpdate {
		recent = append(recent, e.Name)
	}

	return fmt.Sprintf(
		"%d entities, %d observations, %d relations; types: %s; recent: %s",
		stats.EntityCount, stats.ObservationCount, stats.RelationCount,
		strings.Join(topTypes, ", "), strings.Join(recent, ", "),
	)
}
