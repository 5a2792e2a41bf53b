package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lintfleet/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lintfleet",
	Short: "Lint a fleet of GitHub repositories against one shared ESLint configuration",
	Long: `lintfleet clones every repository listed in a run configuration, lints it with a
shared ESLint configuration and prints one aggregate report.

With --fix it also applies ESLint's automatic fixes, commits them on a new
branch and opens a pull request per repository (or prints the diffs with --dry-run).

Examples:
	# Show available commands and global flags
	lintfleet --help

	# Lint every repository in a run configuration
	lintfleet run --config lintfleet.json

	# Preview automatic fixes without pushing anything
	lintfleet run --config lintfleet.json --fix --dry-run

	# Remove workspaces left behind by interrupted runs
	lintfleet clean

	# Print build info
	lintfleet version

Environment:
	Every flag can also be set as LINTFLEET_<FLAG>, e.g. LINTFLEET_CONCURRENCY=10.
	Flags given on the command line win over the environment.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call and full error details)")
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, cfg.Runtime.LogLevel, "Diagnostic log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogFormat, flags.FlagLogFormat, cfg.Runtime.LogFormat, "Diagnostic log format: console|structured")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
