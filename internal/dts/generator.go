// Package dts generates TypeScript declaration files for a library build by
// driving tsc (per-file output) or dts-bundle-generator (single rolled-up file).
package dts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrToolNotFound is returned when the declaration tool is neither installed
// in the project's node_modules nor on PATH.
var ErrToolNotFound = errors.New("declaration tool not found")

const (
	toolTSC          = "tsc"
	toolBundleDTS    = "dts-bundle-generator"
	defaultTSConfig  = "tsconfig.json"
	defaultTimeout   = 2 * time.Minute
	defaultTypesFile = "index.d.ts"
)

// Options configures declaration output
type Options struct {
	// Enabled turns declaration generation on
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// Rollup bundles every declaration into OutFile instead of one file per module
	Rollup bool `mapstructure:"rollup" json:"rollup" yaml:"rollup"`

	// OutFile is the rolled-up declaration path; defaults to the manifest's types field
	OutFile string `mapstructure:"out_file" json:"out_file,omitempty" yaml:"out_file,omitempty"`

	// OutDir receives per-file declarations and copied files; defaults to the build out dir
	OutDir string `mapstructure:"out_dir" json:"out_dir,omitempty" yaml:"out_dir,omitempty"`

	// TSConfig is the project file handed to the tools
	TSConfig string `mapstructure:"tsconfig" json:"tsconfig,omitempty" yaml:"tsconfig,omitempty"`

	// Copy lists files and directories copied verbatim into OutDir
	Copy []string `mapstructure:"copy" json:"copy,omitempty" yaml:"copy,omitempty"`

	// BundledPackages have their declarations inlined into the rollup
	// instead of being referenced by import
	BundledPackages []string `mapstructure:"bundled_packages" json:"bundled_packages,omitempty" yaml:"bundled_packages,omitempty"`

	// Timeout bounds a single tool invocation
	Timeout time.Duration `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Job is one declaration run for a built entry
type Job struct {
	Root    string
	Entry   string
	OutDir  string
	Types   string // manifest types/typings path, used as the rollup default
	Options Options
}

// Generator produces declaration files
type Generator struct {
	runner Runner
	find   func(root, tool string) (string, error)
}

// Option configures a Generator
type Option func(*Generator)

// WithRunner replaces the process runner
func WithRunner(r Runner) Option {
	return func(g *Generator) {
		g.runner = r
	}
}

// WithToolFinder replaces tool discovery
func WithToolFinder(find func(root, tool string) (string, error)) Option {
	return func(g *Generator) {
		g.find = find
	}
}

// NewGenerator creates a generator backed by os/exec
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		runner: ExecRunner{},
		find:   FindTool,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate emits declarations for job, then copies the verbatim files
func (g *Generator) Generate(ctx context.Context, job Job) error {
	if !job.Options.Enabled {
		return nil
	}

	tool, args, err := g.Command(job)
	if err != nil {
		return err
	}

	timeout := job.Options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := g.runner.Run(runCtx, job.Root, tool, args...)
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("declaration generation timed out after %s", timeout)
	}
	if err != nil {
		msg := cleanToolOutput(string(output))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("declaration generation failed: %s", msg)
	}

	log.Debug().
		Str("tool", filepath.Base(tool)).
		Dur("duration", time.Since(start)).
		Msg("Declarations generated")

	return CopyVerbatim(job.Root, job.outDir(), job.Options.Copy)
}

// Command resolves the tool and arguments for job without running anything
func (g *Generator) Command(job Job) (string, []string, error) {
	opts := job.Options
	tsconfig := opts.TSConfig
	if tsconfig == "" {
		tsconfig = defaultTSConfig
	}

	if opts.Rollup {
		tool, err := g.find(job.Root, toolBundleDTS)
		if err != nil {
			return "", nil, err
		}
		args := []string{"--project", tsconfig, "-o", job.outFile()}
		for _, pkg := range opts.BundledPackages {
			args = append(args, "--external-inlines", pkg)
		}
		args = append(args, job.Entry)
		return tool, args, nil
	}

	tool, err := g.find(job.Root, toolTSC)
	if err != nil {
		return "", nil, err
	}
	return tool, []string{
		"-p", tsconfig,
		"--declaration",
		"--emitDeclarationOnly",
		"--declarationDir", job.outDir(),
	}, nil
}

func (j Job) outDir() string {
	if j.Options.OutDir != "" {
		return j.Options.OutDir
	}
	return j.OutDir
}

func (j Job) outFile() string {
	switch {
	case j.Options.OutFile != "":
		return j.Options.OutFile
	case j.Types != "":
		return j.Types
	default:
		return filepath.Join(j.outDir(), defaultTypesFile)
	}
}

// FindTool looks for a node tool in the project's node_modules/.bin first,
// then on PATH.
func FindTool(root, tool string) (string, error) {
	local := filepath.Join(root, "node_modules", ".bin", tool)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local, nil
	}
	if path, err := lookPath(tool); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s (install it with npm i -D %s)", ErrToolNotFound, tool, npmPackage(tool))
}

func npmPackage(tool string) string {
	if tool == toolTSC {
		return "typescript"
	}
	return tool
}

var tsDiagnostic = regexp.MustCompile(`error TS\d+`)

// cleanToolOutput keeps the diagnostic lines of a tool's output
func cleanToolOutput(out string) string {
	var relevant []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if tsDiagnostic.MatchString(line) ||
			strings.Contains(line, "Error:") ||
			strings.Contains(line, "Cannot find") {
			relevant = append(relevant, line)
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, "\n")
	}
	return strings.TrimSpace(out)
}
