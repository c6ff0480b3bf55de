package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/output"
	"github.com/fluxbase-eu/lambdagen/cli/util"
)

var analyzeDetails bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [bundle...]",
	Short: "Show what went into each bundle",
	Long: `Read the esbuild metafile of each bundle and print its size, the largest
inputs and the imports left external.

Metafiles are written when bundle.metafile is enabled in .lambdagen.yaml.

Examples:
  lambdagen analyze
  lambdagen analyze hello-world --details
  lambdagen analyze -o json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDetails, "details", false, "Show every input file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	selected, unknown := p.plan.Select(args)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown %s: %s", util.Pluralize(len(unknown), "bundle", "bundles"), strings.Join(unknown, ", "))
	}

	analyzer := bundler.NewAnalyzer(p.cfg.ProjectDir)
	var results []*bundler.AnalysisResult
	for _, b := range selected {
		result, err := analyzer.AnalyzeInvocation(b.Invocation)
		if err != nil {
			if len(args) > 0 {
				return err
			}
			log.Warn().Err(err).Str("bundle", b.Name()).Msg("Skipping bundle without metafile")
			continue
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return fmt.Errorf("no metafiles found; enable bundle.metafile and run 'lambdagen bundle' first")
	}

	if formatter.Format != output.FormatTable {
		return formatter.Print(results)
	}
	if quiet {
		return nil
	}

	for _, r := range results {
		bundler.DisplayAnalysis(formatter.Writer, r, analyzeDetails)
	}
	if len(results) > 1 {
		bundler.DisplaySummary(formatter.Writer, results)
	}
	return nil
}
