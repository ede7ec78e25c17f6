package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends entries to a file as JSON lines
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenFile opens (or creates) path for appending
func OpenFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // path comes from the --log-file flag
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &FileSink{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteBatch is a BatchWriteFunc
func (s *FileSink) WriteBatch(ctx context.Context, entries []*Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write log entry: %w", err)
		}
	}
	return nil
}

// Close closes the file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Pipeline is a Writer backed by a file, the usual --log-file setup
type Pipeline struct {
	*Writer
	batcher *Batcher
	sink    *FileSink
}

// NewFilePipeline writes console output to console and JSON entries to path
func NewFilePipeline(console io.Writer, path string) (*Pipeline, error) {
	sink, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	batcher := NewBatcher(0, 0, 0, sink.WriteBatch)
	return &Pipeline{
		Writer:  NewWriter(console, batcher),
		batcher: batcher,
		sink:    sink,
	}, nil
}

// Close flushes pending entries and closes the file
func (p *Pipeline) Close() error {
	p.batcher.Close()
	return p.sink.Close()
}
