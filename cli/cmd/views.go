package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fluxbase-eu/libbuild/cli/output"
	"github.com/fluxbase-eu/libbuild/cli/util"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

// resultsView lists every file a set of passes wrote
type resultsView struct {
	root    string
	results []*orchestrator.Result
}

func (v resultsView) Data() any {
	return v.results
}

func (v resultsView) Table() (output.TableData, error) {
	data := output.TableData{
		Headers: []string{"ENTRY", "FORMAT", "FILE", "SIZE", "DURATION"},
	}
	for _, res := range v.results {
		for _, out := range res.Outputs {
			data.Rows = append(data.Rows, []string{
				res.Entry,
				string(out.Format),
				relPath(v.root, out.Path),
				util.FormatBytes(int64(out.Bytes)),
				util.FormatDuration(res.Duration),
			})
		}
	}
	return data, nil
}

// planView lists every pass of a plan with the files it would write. The
// encoded form is the complete plan.
type planView struct {
	plan *orchestrator.Plan
}

func (v planView) Data() any {
	return v.plan
}

func (v planView) Table() (output.TableData, error) {
	plan := v.plan
	data := output.TableData{
		Headers: []string{"PASS", "ENTRY", "FORMATS", "FILES", "EXTERNAL", "EMPTY OUT DIR"},
	}

	add := func(pass string, cfg orchestrator.BuildConfig, empty bool) error {
		files, err := cfg.OutputFiles()
		if err != nil {
			return err
		}
		for i := range files {
			files[i] = filepath.ToSlash(files[i])
		}
		data.Rows = append(data.Rows, []string{
			pass,
			cfg.Entry,
			strings.Join(orchestrator.FormatNames(cfg.Formats), ", "),
			util.JoinOrDash(files),
			fmt.Sprintf("%d", cfg.External.Len()),
			fmt.Sprintf("%t", empty),
		})
		return nil
	}

	if plan.Auxiliary.Before() {
		for _, b := range plan.Auxiliary.Builds {
			if err := add(orchestrator.PassAuxiliaryBefore, b, plan.Auxiliary.EmptyOutDir); err != nil {
				return data, err
			}
		}
	}
	if err := add(orchestrator.PassPrimary, plan.Primary, plan.Command == orchestrator.CommandBuild && plan.Primary.ShouldEmptyOutDir()); err != nil {
		return data, err
	}
	if plan.Secondary != nil {
		if err := add(orchestrator.PassSecondary, *plan.Secondary, false); err != nil {
			return data, err
		}
	}
	if plan.Auxiliary != nil && !plan.Auxiliary.Before() {
		for _, b := range plan.Auxiliary.Builds {
			if err := add(orchestrator.PassAuxiliaryAfter, b, plan.Auxiliary.EmptyOutDir); err != nil {
				return data, err
			}
		}
	}
	return data, nil
}

// depsView is the machine-readable form of `libbuild deps`
type depsView struct {
	Package string                 `json:"package" yaml:"package"`
	Mode    string                 `json:"mode" yaml:"mode"`
	Exclude manifest.DependencySet `json:"exclude" yaml:"exclude"`
	Include manifest.DependencySet `json:"include" yaml:"include"`
}

func (v depsView) Data() any {
	return v
}

// Table marks, for every external module, the sets it belongs to
func (v depsView) Table() (output.TableData, error) {
	data := output.TableData{
		Headers: []string{"MODULE", "EXTERNAL IN FORMATS", "EXTERNAL IN BUNDLE FORMATS"},
	}
	for _, name := range v.Exclude.Names {
		data.Rows = append(data.Rows, []string{name, "yes", yesNo(v.Include.Contains(name))})
	}
	for _, prefix := range v.Exclude.Prefixes {
		data.Rows = append(data.Rows, []string{prefix + "*", "yes", yesNo(v.Include.Contains(prefix))})
	}
	return data, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
