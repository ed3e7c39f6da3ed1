// cmd/loadbench/list_commands.go
package loadbench

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// commandsCmd implements 'list commands'.
var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the command tree with short descriptions",
	Long:  `The 'commands' subcommand prints every loadbench command, indented by depth, next to its short description.`,
	Run: func(cmd *cobra.Command, args []string) {
		printCommandTree(cmd.OutOrStdout(), rootCmd)
	},
}

func init() {
	listCmd.AddCommand(commandsCmd)
}

// commandRow is one printed line: the indented command path and its help.
type commandRow struct {
	path  string
	short string
}

// printCommandTree writes the tree under root, descriptions aligned in a
// second column.
func printCommandTree(w io.Writer, root *cobra.Command) {
	rows := walkCommands(root, "", 0)

	width := 0
	for _, r := range rows {
		width = max(width, len(r.path))
	}

	fmt.Fprintln(w, "Commands:")
	for _, r := range rows {
		fmt.Fprintf(w, "  %-*s  %s\n", width, r.path, r.short)
	}
}

// walkCommands flattens the tree depth first. Help and completion helpers
// that cobra hides are skipped.
func walkCommands(cmd *cobra.Command, parent string, depth int) []commandRow {
	path := cmd.Name()
	if parent != "" {
		path = parent + " " + path
	}
	rows := []commandRow{{path: strings.Repeat("  ", depth) + path, short: cmd.Short}}
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			rows = append(rows, walkCommands(sub, path, depth+1)...)
		}
	}
	return rows
}
