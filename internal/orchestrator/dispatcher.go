package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fluxbase-eu/libbuild/internal/config"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
)

// Modes with built-in meaning. Any other name is looked up in the build
// file's modes and otherwise behaves like ModeDefault.
const (
	ModeDefault   = "default"
	ModeBundleAll = "bundle-all-in-one"
)

// Commands. Only CommandBuild runs cleanup, declarations and the secondary
// and auxiliary passes.
const (
	CommandBuild = "build"
	CommandServe = "serve"
)

var (
	// ErrNoFormats is returned when a mode selects no output format
	ErrNoFormats = errors.New("no output formats selected")
	// ErrOutputCollision is returned when two outputs resolve to the same file
	ErrOutputCollision = errors.New("output file names collide")
)

// Request selects what to build
type Request struct {
	Mode    string
	Command string
	// LoadConfigFile is false for a nested request; it never yields a
	// secondary pass or auxiliary entries
	LoadConfigFile bool
}

// NewRequest returns a top-level request
func NewRequest(mode, command string) Request {
	if command == "" {
		command = CommandBuild
	}
	return Request{Mode: mode, Command: command, LoadConfigFile: true}
}

// Plan is the outcome of resolving a request
type Plan struct {
	Mode    string `json:"mode" yaml:"mode"`
	Command string `json:"command" yaml:"command"`

	// Primary is the configuration returned to the caller and built first
	Primary BuildConfig `json:"primary" yaml:"primary"`
	// Secondary builds the remaining bundle formats with dependencies
	// inlined; nil when there is nothing left to build
	Secondary *BuildConfig `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	// Auxiliary entries, nil when none are configured or not building
	Auxiliary *AuxiliaryPlan `json:"auxiliary,omitempty" yaml:"auxiliary,omitempty"`
	// Clean lists paths removed before anything is built
	Clean []string `json:"clean,omitempty" yaml:"clean,omitempty"`

	Exclude manifest.DependencySet `json:"exclude" yaml:"exclude"`
	Include manifest.DependencySet `json:"include" yaml:"include"`
}

// Dispatcher resolves requests against one project
type Dispatcher struct {
	root     string
	config   *config.Config
	manifest *manifest.Manifest
}

// NewDispatcher creates a dispatcher for the project rooted at root
func NewDispatcher(root string, cfg *config.Config, pkg *manifest.Manifest) *Dispatcher {
	if pkg == nil {
		pkg = &manifest.Manifest{}
	}
	return &Dispatcher{root: root, config: cfg, manifest: pkg}
}

// Resolve selects the primary and secondary passes for req.
//
// In the default mode (and any custom mode) the primary pass builds the
// formats with every declared dependency external. Bundle formats the primary
// pass does not already cover form a nested bundle-all-in-one pass with only
// peer dependencies external. In bundle-all-in-one mode the bundle formats
// are the primary pass and nothing else runs.
func (d *Dispatcher) Resolve(req Request) (*Plan, error) {
	mode := normalizeMode(req.Mode)

	var modeCfg config.ModeConfig
	if mode != ModeDefault && mode != ModeBundleAll {
		modeCfg, _ = d.config.Mode(mode)
	}

	exclude, include := d.manifest.ExternalSets(d.config.External, modeCfg.Include)

	base, err := Assemble(AssembleInput{
		Root:     d.root,
		Config:   d.config,
		Manifest: d.manifest,
		External: exclude,
	})
	if err != nil {
		return nil, err
	}
	if !req.LoadConfigFile {
		base = base.Nested()
	}

	formatNames := d.config.Formats
	if len(modeCfg.Formats) > 0 {
		formatNames = modeCfg.Formats
	}
	formats, err := ParseFormats(formatNames)
	if err != nil {
		return nil, err
	}
	bundleFormats, err := ParseFormats(d.config.BundleFormats)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Mode:    mode,
		Command: req.Command,
		Exclude: exclude,
		Include: include,
	}

	if mode == ModeBundleAll {
		if len(bundleFormats) == 0 {
			return nil, fmt.Errorf("%w: mode %s needs bundle_formats", ErrNoFormats, mode)
		}
		plan.Primary = base.WithFormats(bundleFormats...).WithExternal(include)
	} else {
		if len(formats) == 0 {
			return nil, fmt.Errorf("%w: mode %s needs formats (use --mode %s to build bundle_formats only)", ErrNoFormats, mode, ModeBundleAll)
		}
		plan.Primary = base.WithFormats(formats...)

		remaining := formatsMinus(bundleFormats, formats)
		if req.Command == CommandBuild && base.LoadConfigFile && len(remaining) > 0 {
			// The nested pass writes next to the primary outputs, so it
			// must not clear the directory again
			secondary := base.Nested().
				WithFormats(remaining...).
				WithExternal(include).
				WithEmptyOutDir(false)
			plan.Secondary = &secondary
		}
	}

	if req.Command == CommandBuild && req.LoadConfigFile {
		plan.Clean = append([]string(nil), d.config.Clean...)

		if d.config.Auxiliary.Enabled() {
			aux := AuxiliaryEntriesFromConfig(d.config.Auxiliary)
			auxPlan, err := aux.Plan(plan.Primary.WithExternal(include))
			if err != nil {
				return nil, fmt.Errorf("auxiliary entries: %w", err)
			}
			plan.Auxiliary = auxPlan
		}
	}

	if err := plan.checkCollisions(); err != nil {
		return nil, err
	}

	return plan, nil
}

// Passes returns every configuration the plan builds, primary first
func (p *Plan) Passes() []BuildConfig {
	passes := []BuildConfig{p.Primary}
	if p.Secondary != nil {
		passes = append(passes, *p.Secondary)
	}
	if p.Auxiliary != nil {
		passes = append(passes, p.Auxiliary.Builds...)
	}
	return passes
}

func (p *Plan) checkCollisions() error {
	seen := make(map[string]string)
	for _, pass := range p.Passes() {
		for _, f := range pass.Formats {
			file, err := pass.OutputFile(f)
			if err != nil {
				return err
			}
			owner := pass.Entry + " (" + string(f) + ")"
			if prev, ok := seen[file]; ok {
				return fmt.Errorf("%w: %s is written by %s and %s", ErrOutputCollision, file, prev, owner)
			}
			seen[file] = owner
		}
	}
	return nil
}

func normalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return ModeDefault
	}
	return mode
}
