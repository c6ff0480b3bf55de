package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version information",
	Long:  `Display the version, commit hash, and build date of the lambdagen CLI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatter.Format != output.FormatTable {
			return formatter.Print(map[string]string{
				"version":    Version,
				"commit":     Commit,
				"build_date": BuildDate,
				"go":         runtime.Version(),
			})
		}
		formatter.PrintInfo(fmt.Sprintf("lambdagen %s", Version))
		formatter.PrintKeyValue("Commit", Commit)
		formatter.PrintKeyValue("Build Date", BuildDate)
		formatter.PrintKeyValue("Go", runtime.Version())
		return nil
	},
}
