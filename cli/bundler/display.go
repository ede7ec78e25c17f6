package bundler

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/fluxbase-eu/libbuild/cli/output"
	"github.com/fluxbase-eu/libbuild/cli/util"
)

// BreakdownLimit is how many inputs per output a short breakdown lists
const BreakdownLimit = 10

// BreakdownTable lists the inputs of every output, largest first, with
// their share of the output. Unless all is set, inputs past BreakdownLimit
// are folded into one row.
func BreakdownTable(results []*AnalysisResult, all bool) output.TableData {
	data := output.TableData{
		Headers: []string{"OUTPUT", "INPUT", "SIZE", "SHARE", "ORIGIN"},
	}
	for _, r := range results {
		for i, in := range r.InputFiles {
			if !all && i == BreakdownLimit {
				data.Rows = append(data.Rows, []string{
					r.Name, fmt.Sprintf("(%d more)", len(r.InputFiles)-BreakdownLimit), "", "", "",
				})
				break
			}
			origin := "project"
			if in.IsDependency {
				origin = "dependency"
			}
			data.Rows = append(data.Rows, []string{
				r.Name,
				in.Path,
				util.FormatBytes(int64(in.BytesInOutput)),
				fmt.Sprintf("%.1f%%", in.Percentage),
				origin,
			})
		}
	}
	return data
}

// SummaryTable has one row per output, largest first, and a TOTAL row when
// there is more than one output
func SummaryTable(results []*AnalysisResult) output.TableData {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b *AnalysisResult) int {
		return cmp.Compare(b.TotalBytes, a.TotalBytes)
	})

	data := output.TableData{
		Headers: []string{"OUTPUT", "FORMAT", "SIZE", "INPUTS", "EXTERNAL IMPORTS"},
	}
	total := 0
	for _, r := range sorted {
		total += r.TotalBytes
		data.Rows = append(data.Rows, []string{
			r.Name,
			r.Format,
			util.FormatBytes(int64(r.TotalBytes)),
			strconv.Itoa(len(r.InputFiles)),
			util.JoinOrDash(r.ExternalImports),
		})
	}
	if len(sorted) > 1 {
		data.Rows = append(data.Rows, []string{"TOTAL", "", util.FormatBytes(int64(total)), "", ""})
	}
	return data
}
