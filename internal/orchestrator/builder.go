package orchestrator

import (
	"context"
	"time"
)

// Builder runs one build configuration, one output per format
type Builder interface {
	Build(ctx context.Context, cfg BuildConfig) (*Result, error)
}

// BuilderFunc adapts a function to Builder
type BuilderFunc func(ctx context.Context, cfg BuildConfig) (*Result, error)

// Build calls f
func (f BuilderFunc) Build(ctx context.Context, cfg BuildConfig) (*Result, error) {
	return f(ctx, cfg)
}

// Result describes what a build wrote
type Result struct {
	Entry    string        `json:"entry" yaml:"entry"`
	Outputs  []Output      `json:"outputs" yaml:"outputs"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Output is one written file
type Output struct {
	Format Format `json:"format" yaml:"format"`
	Path   string `json:"path" yaml:"path"`
	Bytes  int    `json:"bytes" yaml:"bytes"`
}

// TotalBytes sums the output sizes
func (r *Result) TotalBytes() int {
	total := 0
	for _, o := range r.Outputs {
		total += o.Bytes
	}
	return total
}
