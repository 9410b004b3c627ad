// Package mdparse provides the minimal markdown line-scanning helpers shared
// by the digest composer and the structured document writers: locating a
// heading, slicing its section body, and reading/rewriting dash-bulleted
// lists. It understands only the subset of markdown the memory bank's
// documents rely on (spec.md §4.7-§4.8) — it is not a general parser.
package mdparse

import (
	"bufio"
	"strings"
)

// Lines splits content into its raw lines, dropping no trailing newline
// information beyond what bufio.Scanner already discards.
func Lines(content []byte) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	return out
}

// Join reassembles lines into a document, terminating every line including
// the last (matching the shape every seeded template and writer output
// already uses).
func Join(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// HeadingIndex returns the line index of a heading whose trimmed text
// equals heading exactly (e.g. "## Session Notes"), or -1 if absent.
func HeadingIndex(lines []string, heading string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) == heading {
			return i
		}
	}
	return -1
}

// SectionEnd returns the index of the first line at or after start that
// begins a new heading of level <= the section's own level, or len(lines)
// if the section runs to the end of the document. start must be the
// heading's own line index.
func SectionEnd(lines []string, start int) int {
	level := headingLevel(lines[start])
	for i := start + 1; i < len(lines); i++ {
		if l := headingLevel(lines[i]); l > 0 && l <= level {
			return i
		}
	}
	return len(lines)
}

func headingLevel(line string) int {
	trimmed := strings.TrimLeft(line, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n >= len(trimmed) || trimmed[n] != ' ' {
		return 0
	}
	return n
}

// Bullets extracts the text of every "- " bulleted line within
// lines[start:end], trimming the leading marker. Leading indentation is
// ignored, so nested bullets are returned alongside top-level ones.
func Bullets(lines []string, start, end int) []string {
	var out []string
	for i := start; i < end && i < len(lines); i++ {
		if text, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), "- "); ok {
			out = append(out, text)
		}
	}
	return out
}

// FirstNonEmpty returns the first non-blank line within lines[start:end],
// or "" if every line is blank.
func FirstNonEmpty(lines []string, start, end int) string {
	for i := start; i < end && i < len(lines); i++ {
		if t := strings.TrimSpace(lines[i]); t != "" {
			return t
		}
	}
	return ""
}
