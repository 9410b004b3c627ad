package graph

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

// ReplayWarning records a log line that failed to parse during replay. Per
// spec.md §4.4, a skipped line is counted and logged, never treated as a
// replay failure.
type ReplayWarning struct {
	Line int
	Err  error
}

// EventLog is the append-only newline-delimited-JSON log backing a graph
// store (spec.md §4.4). Line 0 is always the marker.
type EventLog struct {
	path string
	mu   sync.Mutex
}

// OpenOrCreate opens path, creating it with a marker line if absent.
// If the file exists, its first line must be a valid marker or
// bankerr.MarkerMismatch is returned and nothing is modified.
func OpenOrCreate(path string) (*EventLog, error) {
	log := &EventLog{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		line, merr := json.Marshal(newMarker())
		if merr != nil {
			return nil, bankerr.Wrap(bankerr.IOError, "marshal marker", merr)
		}
		if werr := store.WriteAtomic(path, append(line, '\n'), 0o644); werr != nil {
			return nil, bankerr.Wrap(bankerr.IOError, "create event log", werr)
		}
		return log, nil
	}
	if err != nil {
		return nil, bankerr.Wrap(bankerr.IOError, "read event log", err)
	}

	firstLine, _ := firstLineOf(data)
	var marker Marker
	if uerr := json.Unmarshal(firstLine, &marker); uerr != nil || !marker.Valid() {
		return nil, bankerr.Newf(bankerr.MarkerMismatch, "event log %s has no valid marker line", path)
	}
	return log, nil
}

func firstLineOf(data []byte) ([]byte, []byte) {
	for i, b := range data {
		if b == '\n' {
			return data[:i], data[i+1:]
		}
	}
	return data, nil
}

// Append serializes ev to one line and appends it to the log.
func (l *EventLog) Append(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return bankerr.Wrap(bankerr.IOError, "marshal event", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return bankerr.Wrap(bankerr.IOError, "open event log for append", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return bankerr.Wrap(bankerr.IOError, "append event", err)
	}
	return f.Sync()
}

// ReadAll parses every data line after the marker. Lines that fail to parse
// are skipped and reported as warnings; they never abort replay.
func (l *EventLog) ReadAll() ([]Event, []ReplayWarning, error) {
	return l.ReadTail(0)
}

// ReadTail returns every data event from 0-based line index fromLine onward.
// Line 0 is always the marker and is never returned as a data event, so
// ReadTail(0) is equivalent to ReadAll.
func (l *EventLog) ReadTail(fromLine int) ([]Event, []ReplayWarning, error) {
	l.mu.Lock()
	f, err := os.Open(l.path)
	l.mu.Unlock()
	if err != nil {
		return nil, nil, bankerr.Wrap(bankerr.IOError, "open event log", err)
	}
	defer f.Close()

	var events []Event
	var warnings []ReplayWarning

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineIdx := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if lineIdx == 0 {
			// marker line, never a data event
			lineIdx++
			continue
		}
		if lineIdx < fromLine {
			lineIdx++
			continue
		}
		if len(line) == 0 {
			lineIdx++
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			warnings = append(warnings, ReplayWarning{Line: lineIdx, Err: err})
			lineIdx++
			continue
		}
		events = append(events, ev)
		lineIdx++
	}
	if err := scanner.Err(); err != nil {
		return events, warnings, bankerr.Wrap(bankerr.IOError, "scan event log", err)
	}
	return events, warnings, nil
}

// LineCount returns the total number of lines in the log, including the
// marker.
func (l *EventLog) LineCount() (int, error) {
	l.mu.Lock()
	f, err := os.Open(l.path)
	l.mu.Unlock()
	if err != nil {
		return 0, bankerr.Wrap(bankerr.IOError, "open event log", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	count := 0
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, bankerr.Wrap(bankerr.IOError, "scan event log", err)
	}
	return count, nil
}

// ModTime returns the log file's last-modified time.
func (l *EventLog) ModTime() (os.FileInfo, error) {
	return os.Stat(l.path)
}

// Path returns the log's file path.
func (l *EventLog) Path() string {
	return l.path
}
