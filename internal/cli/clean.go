package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lintfleet/internal/flags"
	"lintfleet/internal/workspace"
)

var cleanDryRun bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove workspaces left behind by interrupted runs",
	Long: `Remove every lintfleet workspace (` + workspace.Prefix + `*) under the system temp
directory. Runs clean up after themselves; leftovers only remain when a run was
killed before it could.

Use --dry-run to list the directories without removing them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return clean(cmd.OutOrStdout(), "", cleanDryRun)
	},
}

func clean(w io.Writer, root string, dryRun bool) error {
	dirs, err := workspace.Clean(root, dryRun)
	if len(dirs) == 0 {
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Nothing to clean.")
		return nil
	}
	header := "🗑  The following directories have been removed:"
	if dryRun {
		header = "🗑  The following directories would be removed:"
	}
	fmt.Fprintln(w, color.New(color.Bold).Sprint(header))
	fmt.Fprintln(w)
	for _, d := range dirs {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintln(w)
	return err
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanDryRun, flags.FlagDryRun, "n", false, "List the directories without removing them")
}
