// Package logging records a build's structured log next to the console
// output, so CI can keep a machine-readable trace of every pass.
package logging

import (
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Entry is one log event of a build
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	RunID   string         `json:"run_id,omitempty"`
	Pass    string         `json:"pass,omitempty"`
	Format  string         `json:"format,omitempty"`
	Entry   string         `json:"entry,omitempty"`
	Error   string         `json:"error,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Writer is an io.Writer for zerolog. Every event goes to the console
// unchanged and, parsed into an Entry, to the batcher.
type Writer struct {
	console io.Writer
	batcher *Batcher
}

// NewWriter creates a writer. Either side may be nil.
func NewWriter(console io.Writer, batcher *Batcher) *Writer {
	return &Writer{console: console, batcher: batcher}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (n int, err error) {
	n = len(p)

	if w.console != nil {
		// Console failures must not fail the build
		_, _ = w.console.Write(p)
	}

	if w.batcher == nil {
		return n, nil
	}
	entry, parseErr := parseZerologJSON(p)
	if parseErr != nil {
		return n, nil
	}
	w.batcher.Add(entry)

	return n, nil
}

// parseZerologJSON parses zerolog JSON output into an Entry.
func parseZerologJSON(p []byte) (*Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return nil, err
	}

	entry := &Entry{
		Time:   time.Now().UTC(),
		Level:  "info",
		Fields: make(map[string]any),
	}

	if level, ok := raw["level"].(string); ok {
		entry.Level = normalizeLevel(level)
		delete(raw, "level")
	}

	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
		delete(raw, "message")
	}

	switch ts := raw["time"].(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.Time = parsed
		}
	case float64:
		// zerolog.TimeFormatUnix
		entry.Time = time.Unix(int64(ts), 0).UTC()
	}
	delete(raw, "time")

	take := func(key string) string {
		v, ok := raw[key].(string)
		if ok {
			delete(raw, key)
		}
		return v
	}
	entry.RunID = take("run_id")
	entry.Pass = take("pass")
	entry.Format = take("format")
	entry.Entry = take("entry")
	entry.Error = take("error")

	if entry.Error != "" && entry.Level == "info" {
		entry.Level = "error"
	}

	for k, v := range raw {
		entry.Fields[k] = v
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	return entry, nil
}

func normalizeLevel(level string) string {
	switch l := strings.ToLower(level); l {
	case "trace", "debug", "info", "error", "fatal", "panic":
		return l
	case "warn", "warning":
		return "warn"
	default:
		return "info"
	}
}
