package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// heavyDependencyPercent is the share above which a single node_modules
// input triggers a warning.
const heavyDependencyPercent = 25.0

// Analyzer reads esbuild metafiles and reports what went into each bundle.
type Analyzer struct {
	dir string
}

// NewAnalyzer creates an analyzer that resolves metafile paths against dir.
func NewAnalyzer(dir string) *Analyzer {
	return &Analyzer{dir: dir}
}

// MetafilePath returns the metafile location of an invocation, falling back
// to the default name inside its outdir.
func MetafilePath(inv *Invocation) string {
	if inv.Metafile() != "" {
		return inv.Metafile()
	}
	return path.Join(inv.Outdir(), MetafileName)
}

// AnalyzeInvocation reads the metafile of a built invocation.
func (a *Analyzer) AnalyzeInvocation(inv *Invocation) (*AnalysisResult, error) {
	result, err := a.AnalyzeFile(MetafilePath(inv), inv.Name())
	if err != nil {
		return nil, err
	}
	result.Outfile = inv.Outfile()
	return result, nil
}

// AnalyzeFile parses the metafile at p (relative to the analyzer directory).
func (a *Analyzer) AnalyzeFile(p, bundle string) (*AnalysisResult, error) {
	full := filepath.FromSlash(p)
	if !filepath.IsAbs(full) && a.dir != "" {
		full = filepath.Join(a.dir, full)
	}
	data, err := os.ReadFile(full) //nolint:gosec // metafile path derived from project configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read metafile for %s: %w", bundle, err)
	}

	var meta Metafile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile for %s: %w", bundle, err)
	}
	return Analyze(&meta, bundle), nil
}

// Analyze summarizes the primary JavaScript output of a metafile.
func Analyze(meta *Metafile, bundle string) *AnalysisResult {
	result := &AnalysisResult{Bundle: bundle}

	outPath, ok := primaryOutput(meta)
	if !ok {
		return result
	}
	output := meta.Outputs[outPath]
	result.Outfile = outPath
	result.TotalBytes = output.Bytes

	for _, imp := range output.Imports {
		if imp.External {
			result.ExternalImports = append(result.ExternalImports, imp.Path)
		}
	}

	for inputPath, contrib := range output.Inputs {
		info, ok := meta.Inputs[inputPath]
		if !ok {
			continue
		}

		percentage := 0.0
		if result.TotalBytes > 0 {
			percentage = float64(contrib.BytesInOutput) / float64(result.TotalBytes) * 100
		}

		displayPath := inputPath
		if inputPath == output.EntryPoint {
			displayPath = "<entry> " + inputPath
		}

		result.InputFiles = append(result.InputFiles, FileAnalysis{
			Path:          displayPath,
			Bytes:         info.Bytes,
			BytesInOutput: contrib.BytesInOutput,
			Percentage:    percentage,
			ImportCount:   len(info.Imports),
		})

		if strings.Contains(inputPath, "node_modules/") && percentage > heavyDependencyPercent {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s contributes %.1f%% of the bundle; consider marking it external", inputPath, percentage))
		}
	}

	// Largest contributors first, path as tie-breaker for stable output.
	sort.Slice(result.InputFiles, func(i, j int) bool {
		if result.InputFiles[i].BytesInOutput != result.InputFiles[j].BytesInOutput {
			return result.InputFiles[i].BytesInOutput > result.InputFiles[j].BytesInOutput
		}
		return result.InputFiles[i].Path < result.InputFiles[j].Path
	})
	sort.Strings(result.ExternalImports)
	sort.Strings(result.Warnings)

	return result
}

// primaryOutput picks the entry-point output, skipping source maps.
func primaryOutput(meta *Metafile) (string, bool) {
	keys := make([]string, 0, len(meta.Outputs))
	for k := range meta.Outputs {
		if strings.HasSuffix(k, ".map") {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	for _, k := range keys {
		if meta.Outputs[k].EntryPoint != "" {
			return k, true
		}
	}
	return keys[0], true
}
