package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fluxbase-eu/libbuild/internal/config"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
)

// AuxiliaryEntries describes extra entries, typically web workers, built
// independently of the library entry
type AuxiliaryEntries struct {
	Patterns    []string
	OutDir      string // empty means the primary output directory
	FileName    string
	Formats     []string
	EmptyOutDir bool
	Order       string
}

// AuxiliaryEntriesFromConfig copies the build file section
func AuxiliaryEntriesFromConfig(ac config.AuxiliaryConfig) AuxiliaryEntries {
	return AuxiliaryEntries{
		Patterns:    append([]string(nil), ac.Entries...),
		OutDir:      ac.OutDir,
		FileName:    ac.FileName,
		Formats:     append([]string(nil), ac.Formats...),
		EmptyOutDir: ac.EmptyOutDir,
		Order:       ac.Order,
	}
}

// AuxiliaryPlan holds one build per matched entry
type AuxiliaryPlan struct {
	OutDir string `json:"out_dir" yaml:"out_dir"`
	Order  string `json:"order" yaml:"order"`
	// EmptyOutDir is the effective flag, false whenever OutDir leaves the
	// project root, holds the sources or is the primary output directory
	EmptyOutDir bool          `json:"empty_out_dir" yaml:"empty_out_dir"`
	Builds      []BuildConfig `json:"builds" yaml:"builds"`
}

// Before reports whether the batch must finish before the primary pass
func (p *AuxiliaryPlan) Before() bool {
	return p != nil && p.Order == config.OrderBefore
}

// Plan expands the entry patterns against base.Root and derives one build
// configuration per file. An empty pattern list yields an empty plan.
func (a AuxiliaryEntries) Plan(base BuildConfig) (*AuxiliaryPlan, error) {
	outDir := a.OutDir
	if outDir == "" {
		outDir = base.OutDir
	}
	outDir = filepath.Clean(outDir)

	order := a.Order
	if order == "" {
		order = config.OrderAfter
	}

	plan := &AuxiliaryPlan{
		OutDir:      outDir,
		Order:       order,
		EmptyOutDir: a.EmptyOutDir && safeToEmpty(base.Root, outDir, base.SrcDir) && !sameDir(base.Root, outDir, base.OutDir),
	}

	entries, err := a.expand(base.Root)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return plan, nil
	}

	formats, err := ParseFormats(a.Formats)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		formats = []Format{FormatES}
	}

	for _, entry := range entries {
		dir, err := EntryDir(base.SrcDir, entry)
		if err != nil {
			return nil, err
		}
		name := entryBase(entry)

		cfg := base.Nested().
			WithEntry(entry, name).
			WithOutput(outDir, SubstituteDir(a.FileName, dir)).
			WithFormats(formats...).
			WithEmptyOutDir(false)
		cfg.Name = base.Name + strings.TrimPrefix(manifest.LibraryName(name), "_")
		cfg.Declarations.Enabled = false

		plan.Builds = append(plan.Builds, cfg)
	}

	return plan, nil
}

// sameDir compares two directories relative to root
func sameDir(root, a, b string) bool {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	return resolve(a) == resolve(b)
}

// expand resolves files and doublestar globs relative to root. A literal
// path that does not exist is an error; a glob matching nothing is not.
func (a AuxiliaryEntries) expand(root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var entries []string

	for _, pattern := range a.Patterns {
		pattern = filepath.ToSlash(filepath.Clean(pattern))
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid entry pattern: %s", pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if !hasMeta(pattern) {
				return nil, fmt.Errorf("%w: %s", ErrNoEntry, pattern)
			}
			log.Warn().Str("pattern", pattern).Msg("Auxiliary pattern matched no files")
			continue
		}

		for _, m := range matches {
			m = filepath.FromSlash(m)
			if !seen[m] {
				seen[m] = true
				entries = append(entries, m)
			}
		}
	}

	sort.Strings(entries)
	return entries, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// RunAuxiliary clears the batch output directory once when requested, then
// builds every entry concurrently. The first failure cancels the rest.
func RunAuxiliary(ctx context.Context, builder Builder, plan *AuxiliaryPlan) ([]*Result, error) {
	if plan == nil || len(plan.Builds) == 0 {
		return nil, nil
	}

	if plan.EmptyOutDir {
		if err := emptyDir(plan.Builds[0].Root, plan.OutDir); err != nil {
			return nil, err
		}
	}

	results := make([]*Result, len(plan.Builds))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range plan.Builds {
		g.Go(func() error {
			res, err := builder.Build(gctx, cfg)
			if err != nil {
				return fmt.Errorf("auxiliary entry %s: %w", cfg.Entry, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
