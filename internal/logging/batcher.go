package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchWriteFunc is the function called to write a batch of entries.
type BatchWriteFunc func(ctx context.Context, entries []*Entry) error

// Batcher buffers log entries and writes them in batches.
// It flushes either when the batch size is reached or when the flush interval expires.
type Batcher struct {
	entries       chan *Entry
	batchSize     int
	flushInterval time.Duration
	writeFunc     BatchWriteFunc
	wg            sync.WaitGroup
	done          chan struct{}
	flushReq      chan chan error
	mu            sync.Mutex
	closed        bool

	droppedCount    atomic.Int64
	lastDroppedWarn time.Time
	droppedWarnMu   sync.Mutex
}

// NewBatcher creates a new log entry batcher.
func NewBatcher(batchSize int, flushInterval time.Duration, bufferSize int, writeFunc BatchWriteFunc) *Batcher {
	if batchSize <= 0 {
		batchSize = 64
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	if bufferSize <= 0 {
		bufferSize = 4096
	}

	b := &Batcher{
		entries:       make(chan *Entry, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		writeFunc:     writeFunc,
		done:          make(chan struct{}),
		flushReq:      make(chan chan error),
	}

	b.wg.Add(1)
	go b.run()

	return b
}

// Add queues an entry. A full buffer drops the entry rather than blocking
// the build.
func (b *Batcher) Add(entry *Entry) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	select {
	case b.entries <- entry:
	default:
		dropped := b.droppedCount.Add(1)

		// Warn at most every 10s. The warning goes through the global
		// logger, which may be writing into this batcher.
		b.droppedWarnMu.Lock()
		warn := time.Since(b.lastDroppedWarn) > 10*time.Second
		if warn {
			b.lastDroppedWarn = time.Now()
		}
		b.droppedWarnMu.Unlock()
		if warn {
			log.Warn().
				Int64("dropped_count", dropped).
				Int("buffer_size", cap(b.entries)).
				Msg("Build log buffer full, entries dropped")
		}
	}
}

// Flush writes every buffered entry and returns the write error.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	resultCh := make(chan error, 1)

	select {
	case b.flushReq <- resultCh:
		select {
		case err := <-resultCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts down the batcher, flushing any remaining entries.
func (b *Batcher) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

// Dropped returns how many entries were dropped because the buffer was full.
func (b *Batcher) Dropped() int64 {
	return b.droppedCount.Load()
}

func (b *Batcher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	var batch []*Entry

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := b.writeFunc(ctx, batch)
		cancel()
		batch = nil
		return err
	}

	drain := func() {
		for {
			select {
			case entry := <-b.entries:
				if entry != nil {
					batch = append(batch, entry)
				}
			default:
				return
			}
		}
	}

	for {
		select {
		case <-b.done:
			drain()
			_ = flushBatch()
			return

		case resultCh := <-b.flushReq:
			drain()
			resultCh <- flushBatch()

		case entry := <-b.entries:
			if entry == nil {
				continue
			}
			batch = append(batch, entry)
			if len(batch) >= b.batchSize {
				_ = flushBatch()
			}

		case <-ticker.C:
			_ = flushBatch()
		}
	}
}
