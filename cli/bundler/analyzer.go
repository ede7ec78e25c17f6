package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

// Inputs contributing more than this share of an output are flagged
const largeInputShare = 50.0

// Analyzer provides bundle analysis using esbuild metafile
type Analyzer struct{}

// NewAnalyzer creates a new bundle analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze builds every format of cfg in memory and returns one analysis per
// format. Nothing is written to disk.
func (a *Analyzer) Analyze(ctx context.Context, cfg orchestrator.BuildConfig) ([]*AnalysisResult, error) {
	var results []*AnalysisResult
	for _, format := range cfg.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := a.AnalyzeFormat(cfg, format)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// AnalyzeFormat bundles one format with esbuild and returns analysis
func (a *Analyzer) AnalyzeFormat(cfg orchestrator.BuildConfig, format orchestrator.Format) (*AnalysisResult, error) {
	opts, err := Options(cfg, format)
	if err != nil {
		return nil, err
	}
	opts.Write = false // Don't write to disk, just analyze
	opts.Sourcemap = api.SourceMapNone

	result := api.Build(opts)

	// Check for errors
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("bundle analysis failed: %w", joinMessages(result.Errors, api.ErrorMessage))
	}

	// Parse metafile
	var metafile Metafile
	if err := json.Unmarshal([]byte(result.Metafile), &metafile); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	name, _ := cfg.OutputFile(format)
	analysis := a.analyzeMetafile(&metafile, filepath.ToSlash(name), filepath.ToSlash(cfg.Entry))
	analysis.Format = string(format)
	analysis.Warnings = append(analysis.Warnings, formatMessages(result.Warnings, api.WarningMessage)...)
	return analysis, nil
}

// analyzeMetafile processes the metafile and returns analysis
func (a *Analyzer) analyzeMetafile(meta *Metafile, name, entry string) *AnalysisResult {
	result := &AnalysisResult{
		Name: name,
	}

	// One entry point and no code splitting means a single JS output
	for outPath, output := range meta.Outputs {
		if strings.HasSuffix(outPath, ".map") {
			continue
		}
		result.TotalBytes = output.Bytes

		// Collect external imports
		for _, imp := range output.Imports {
			if imp.External {
				result.ExternalImports = append(result.ExternalImports, imp.Path)
			}
		}

		// Analyze input contributions
		for inputPath, contrib := range output.Inputs {
			// Replace the entry with an indicator
			displayPath := inputPath
			if displayPath == entry {
				displayPath = "<entry>"
			}

			// Get input file info
			inputInfo, ok := meta.Inputs[inputPath]
			if !ok {
				continue
			}

			percentage := 0.0
			if result.TotalBytes > 0 {
				percentage = float64(contrib.BytesInOutput) / float64(result.TotalBytes) * 100
			}

			result.InputFiles = append(result.InputFiles, FileAnalysis{
				Path:          displayPath,
				Bytes:         inputInfo.Bytes,
				BytesInOutput: contrib.BytesInOutput,
				Percentage:    percentage,
				ImportCount:   len(inputInfo.Imports),
				IsDependency:  strings.Contains(inputPath, "node_modules/"),
			})

			if displayPath != "<entry>" && percentage > largeInputShare {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s makes up %.0f%% of the bundle", displayPath, percentage))
			}
		}

		break
	}

	// Sort by bytes in output (largest first)
	sort.Slice(result.InputFiles, func(i, j int) bool {
		return result.InputFiles[i].BytesInOutput > result.InputFiles[j].BytesInOutput
	})

	// Sort external imports alphabetically, dropping repeats
	sort.Strings(result.ExternalImports)
	result.ExternalImports = compactStrings(result.ExternalImports)

	return result
}

func compactStrings(in []string) []string {
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
