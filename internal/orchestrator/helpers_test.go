package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/libbuild/internal/config"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
)

// writeProject creates files (path -> content) under a temp root
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func testConfig() *config.Config {
	return &config.Config{
		Manifest:    "package.json",
		Entry:       "src/index.ts",
		SrcDir:      "src",
		FileName:    "[name][extname]",
		Formats:     []string{"es", "cjs"},
		Platform:    "neutral",
		Target:      "es2020",
		EmptyOutDir: true,
		Auxiliary: config.AuxiliaryConfig{
			FileName: "[dir]/[name][extname]",
			Formats:  []string{"es"},
			Order:    config.OrderAfter,
		},
	}
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:             "@scope/my-lib",
		Module:           "dist/my-lib.mjs",
		Dependencies:     map[string]string{"a": "1.0.0"},
		PeerDependencies: map[string]string{"b": "1.0.0"},
	}
}

// fakeBuilder records every build and reports one output per format
type fakeBuilder struct {
	mu     sync.Mutex
	calls  []BuildConfig
	failOn func(cfg BuildConfig) error
	delay  time.Duration
}

func (b *fakeBuilder) Build(ctx context.Context, cfg BuildConfig) (*Result, error) {
	b.mu.Lock()
	b.calls = append(b.calls, cfg)
	b.mu.Unlock()

	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.failOn != nil {
		if err := b.failOn(cfg); err != nil {
			return nil, err
		}
	}

	res := &Result{Entry: cfg.Entry}
	for _, f := range cfg.Formats {
		path, err := cfg.OutputFile(f)
		if err != nil {
			return nil, err
		}
		res.Outputs = append(res.Outputs, Output{Format: f, Path: path, Bytes: 100})
	}
	return res, nil
}

func (b *fakeBuilder) Calls() []BuildConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BuildConfig(nil), b.calls...)
}

func failEntry(entry string) func(cfg BuildConfig) error {
	return func(cfg BuildConfig) error {
		if cfg.Entry == filepath.FromSlash(entry) {
			return fmt.Errorf("could not resolve %q", "missing-pkg")
		}
		return nil
	}
}
