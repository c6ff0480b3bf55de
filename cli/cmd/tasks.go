package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/output"
	"github.com/fluxbase-eu/lambdagen/cli/project"
)

var tasksShowCommands bool

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the bundle tasks",
	Long: `List the aggregate bundle task and the build and watch task of every
handler, with the esbuild commands they run.

Examples:
  lambdagen tasks
  lambdagen tasks --commands
  lambdagen tasks -o yaml`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksShowCommands, "commands", false, "Print the commands of every task")
}

func runTasks(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	if formatter.Format != output.FormatTable || !tasksShowCommands {
		return formatter.Print(project.Tasks(p.plan.Tasks))
	}

	for _, task := range p.plan.Tasks {
		formatter.PrintInfo(fmt.Sprintf("%s  # %s", task.Name, task.Description))
		for _, c := range task.Commands {
			formatter.PrintInfo("  " + c)
		}
	}
	return nil
}
