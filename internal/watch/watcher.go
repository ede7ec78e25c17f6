// Package watch rebuilds a library when its sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the quiet period after the last event before a rebuild
const DefaultDebounce = 200 * time.Millisecond

var defaultIgnores = []string{
	".git/**",
	"node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// ErrAlreadyRunning is returned when Run is called twice
var ErrAlreadyRunning = errors.New("watcher already running")

// Options configures a Watcher
type Options struct {
	// Root is the directory watched recursively
	Root string
	// Patterns select the files that trigger a rebuild. Empty matches all.
	Patterns []string
	// Ignore is merged with the built-in ignores. Build output directories
	// belong here, otherwise every rebuild triggers the next one.
	Ignore   []string
	Debounce time.Duration
	// OnChange receives the sorted, deduplicated changed paths relative to Root
	OnChange func(ctx context.Context, changed []string) error
}

// Watcher coalesces filesystem events and calls OnChange once per quiet period
type Watcher struct {
	opts    Options
	root    string
	ignores []string
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	started bool
}

// New validates the patterns and registers every non-ignored directory under Root
func New(opts Options) (*Watcher, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	ignores := append(slices.Clone(defaultIgnores), opts.Ignore...)
	for _, pattern := range append(slices.Clone(opts.Patterns), ignores...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid watch pattern: %s", pattern)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{opts: opts, root: root, ignores: ignores, fsw: fsw}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. Rebuilds never overlap: events
// arriving during a rebuild are collected and trigger one more rebuild after it.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.started = true
	w.mu.Unlock()

	defer func() {
		if err := w.fsw.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close file watcher")
		}
	}()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher event channel closed")
			}
			rel, ok := w.relevant(evt)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn().Err(err).Msg("File watcher dropped events, rebuilding")
				pending["."] = struct{}{}
				timer.Reset(w.opts.Debounce)
				continue
			}
			log.Error().Err(err).Msg("File watcher error")

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)

			log.Debug().Strs("changed", changed).Msg("Sources changed")
			if w.opts.OnChange != nil {
				if err := w.opts.OnChange(ctx, changed); err != nil {
					log.Error().Err(err).Msg("Rebuild failed")
				}
			}
		}
	}
}

// relevant filters an event and returns its root-relative slash path
func (w *Watcher) relevant(evt fsnotify.Event) (string, bool) {
	if evt.Op == fsnotify.Chmod {
		return "", false
	}
	rel, err := filepath.Rel(w.root, evt.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.Ignored(rel) {
		return "", false
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				log.Warn().Err(err).Str("dir", rel).Msg("Failed to watch new directory")
			}
			return "", false
		}
	}

	if !w.Matches(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Skipping unreadable path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (w.Ignored(rel) || w.Ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Ignored reports whether a root-relative slash path matches an ignore pattern.
// A pattern ending in /** also ignores the directory itself.
func (w *Watcher) Ignored(rel string) bool {
	for _, pattern := range w.ignores {
		if doublestar.MatchUnvalidated(pattern, rel) {
			return true
		}
		if dir, ok := trimGlobstar(pattern); ok && doublestar.MatchUnvalidated(dir, rel) {
			return true
		}
	}
	return false
}

// Matches reports whether a root-relative slash path selects a rebuild
func (w *Watcher) Matches(rel string) bool {
	if len(w.opts.Patterns) == 0 {
		return true
	}
	for _, pattern := range w.opts.Patterns {
		if doublestar.MatchUnvalidated(pattern, rel) {
			return true
		}
	}
	return false
}

func trimGlobstar(pattern string) (string, bool) {
	dir, ok := strings.CutSuffix(pattern, "/**")
	return dir, ok && dir != ""
}
