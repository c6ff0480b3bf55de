package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/output"
	"github.com/fluxbase-eu/lambdagen/cli/project"
	"github.com/fluxbase-eu/lambdagen/cli/util"
)

var (
	generateCheck  bool
	generateDryRun bool
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Write construct files for every handler",
	Long: `Write one TypeScript construct file per handler and add the bundle
directory to .gitignore and .npmignore.

Files are only written when their content changes.

Examples:
  lambdagen generate
  lambdagen generate --dry-run -o json
  lambdagen generate --check   # fail when generated files are stale (CI)`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateCheck, "check", false, "Fail with a diff when generated files are out of date")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Show the planned bundles without writing anything")
	generateCmd.MarkFlagsMutuallyExclusive("check", "dry-run")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	if generateDryRun {
		if len(p.plan.Bundles) == 0 {
			formatter.PrintInfo(fmt.Sprintf("No handlers matching *%s found in %s", p.cfg.Extension, p.cfg.SrcDir))
			return nil
		}
		return formatter.Print(p.plan.Rows())
	}

	w := project.NewWriter(p.cfg.ProjectDir)
	files, err := w.Render(p.plan)
	if err != nil {
		return err
	}

	if generateCheck {
		return checkGenerated(w, files)
	}

	written, err := w.Apply(files)
	if err != nil {
		return err
	}
	return reportWritten(written)
}

func reportWritten(written []string) error {
	if formatter.Format != output.FormatTable {
		if written == nil {
			written = []string{}
		}
		return formatter.Print(map[string][]string{"written": written})
	}
	if len(written) == 0 {
		formatter.PrintInfo("Generated files are up to date")
		return nil
	}
	for _, f := range written {
		formatter.PrintInfo("  wrote " + f)
	}
	formatter.PrintSuccess(fmt.Sprintf("Updated %d %s", len(written), util.Pluralize(len(written), "file", "files")))
	return nil
}

func checkGenerated(w *project.Writer, files []project.File) error {
	changes, err := w.Check(files)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		formatter.PrintSuccess("Generated files are up to date")
		return nil
	}

	color := util.IsTerminal(formatter.Writer)
	for _, c := range changes {
		formatter.PrintDiff(c.Diff, color)
	}
	return fmt.Errorf("%d generated %s out of date; run 'lambdagen generate' (%s)",
		len(changes), util.Pluralize(len(changes), "file is", "files are"), changedPaths(changes))
}

func changedPaths(changes []project.Change) string {
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return strings.Join(paths, ", ")
}
