package bundler

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fluxbase-eu/lambdagen/cli/util"
)

// DisplayAnalysis prints one bundle's analysis.
func DisplayAnalysis(w io.Writer, result *AnalysisResult, showDetails bool) {
	_, _ = fmt.Fprintf(w, "\n=== Bundle Analysis: %s ===\n", result.Bundle)
	if result.Outfile != "" {
		_, _ = fmt.Fprintf(w, "Output: %s\n", result.Outfile)
	}
	_, _ = fmt.Fprintf(w, "Total bundle size: %s\n", util.FormatBytes(int64(result.TotalBytes)))

	if len(result.ExternalImports) > 0 {
		_, _ = fmt.Fprintln(w, "\nExternal imports (resolved at runtime):")
		for _, imp := range result.ExternalImports {
			_, _ = fmt.Fprintf(w, "  - %s\n", imp)
		}
	}

	if len(result.InputFiles) > 0 {
		_, _ = fmt.Fprintln(w, "\nBundle breakdown:")

		maxFiles := 10
		if showDetails {
			maxFiles = len(result.InputFiles)
		}

		maxPathLen := 0
		for i, file := range result.InputFiles {
			if i >= maxFiles {
				break
			}
			if l := len(truncatePath(file.Path, 50)); l > maxPathLen {
				maxPathLen = l
			}
		}

		for i, file := range result.InputFiles {
			if i >= maxFiles {
				_, _ = fmt.Fprintf(w, "  ... and %d more files\n", len(result.InputFiles)-maxFiles)
				break
			}
			displayPath := truncatePath(file.Path, 50)
			padding := strings.Repeat(" ", maxPathLen-len(displayPath))
			_, _ = fmt.Fprintf(w, "  %s%s  %10s  %5.1f%%\n",
				displayPath,
				padding,
				util.FormatBytes(int64(file.BytesInOutput)),
				file.Percentage,
			)
		}
	}

	if len(result.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range result.Warnings {
			_, _ = fmt.Fprintf(w, "  - %s\n", warn)
		}
	}

	_, _ = fmt.Fprintln(w)
}

// DisplaySummary prints a size table over several bundles, largest first.
func DisplaySummary(w io.Writer, results []*AnalysisResult) {
	if len(results) == 0 {
		return
	}

	_, _ = fmt.Fprintln(w, "\n=== Bundle Size Summary ===")

	sorted := make([]*AnalysisResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalBytes > sorted[j].TotalBytes
	})

	maxNameLen := len("BUNDLE")
	for _, r := range sorted {
		if len(r.Bundle) > maxNameLen {
			maxNameLen = len(r.Bundle)
		}
	}

	_, _ = fmt.Fprintf(w, "%-*s  BUNDLE SIZE  FILES  EXTERNALS\n", maxNameLen, "BUNDLE")
	_, _ = fmt.Fprintf(w, "%s  -----------  -----  ---------\n", strings.Repeat("-", maxNameLen))

	var total int
	for _, r := range sorted {
		total += r.TotalBytes
		_, _ = fmt.Fprintf(w, "%-*s  %11s  %5d  %9d\n",
			maxNameLen,
			r.Bundle,
			util.FormatBytes(int64(r.TotalBytes)),
			len(r.InputFiles),
			len(r.ExternalImports),
		)
	}

	_, _ = fmt.Fprintf(w, "%s  -----------  -----  ---------\n", strings.Repeat("-", maxNameLen))
	_, _ = fmt.Fprintf(w, "%-*s  %11s\n", maxNameLen, "TOTAL", util.FormatBytes(int64(total)))
	_, _ = fmt.Fprintln(w)
}

// truncatePath keeps the tail of long paths.
func truncatePath(p string, maxLen int) string {
	if len(p) <= maxLen {
		return p
	}
	return "..." + p[len(p)-maxLen+3:]
}
