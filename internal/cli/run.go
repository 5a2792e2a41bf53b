package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lintfleet/internal/config"
	"lintfleet/internal/engine"
	"lintfleet/internal/fix"
	"lintfleet/internal/flags"
	gh "lintfleet/internal/github"
	"lintfleet/internal/logging"
	"lintfleet/internal/pipeline"
	"lintfleet/internal/workspace"
)

var cfg = config.New()

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Lint every repository in a run configuration",
	Long: `Lint every repository in a run configuration and print one aggregate report.

The run configuration (JSON or YAML) holds the shared ESLint configuration and
the repositories to lint:

	{
	  "eslintConfig": { "extends": "buildo", "plugins": ["react"] },
	  "repos": [
	    { "owner": "buildo", "name": "alpha" },
	    { "owner": "buildo", "name": "beta", "paths": ["lib"],
	      "eslintConfig": { "rules": { "semi": 0 } } }
	  ]
	}

Each repository's eslintConfig is deep-merged over the shared one. Plugins
named anywhere are installed once, before any repository is cloned.

Fixing:
	--fix applies ESLint's automatic fixes, commits them on a branch named
	lintfleet-fix-<epoch millis> and opens one pull request per repository.
	--fix --dry-run stops after the local commit and prints the diffs instead.
	Live fixing needs a GitHub token: --github-token, LINTFLEET_GITHUB_TOKEN,
	GITHUB_TOKEN, or the GitHub CLI login (gh auth token), in that order.

Output:
	The report table is printed and copied to the clipboard (see --no-clipboard).
	Structured outputs can be written via:
	- --out / --out-format: write a JSON run summary or an NDJSON stream to a file
	- --emit ndjson: stream lifecycle events to stdout; human output moves to stderr

	NDJSON mode emits one JSON object per line, each with a "type" field
	(run.started, repo.started, repo.finished, repo.failed, fix.finished,
	fix.failed, run.finished).

Exit codes:
	0 = clean run, no lint errors
	1 = lint errors found
	2 = partial failure (some repositories or fixes failed)
	3 = fatal error (run did not start)

Examples:
	lintfleet run --config lintfleet.json
	lintfleet run -c lintfleet.yaml --fix -n
	GITHUB_TOKEN="<your_token>" lintfleet run -c lintfleet.json --fix
	lintfleet run -c lintfleet.json --emit ndjson --no-clipboard
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := applyEnvironment(cmd.Flags(), newEnvironment()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(3)
		}
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			os.Exit(3)
		}
		os.Exit(executeRun(cmd, cfg))
	},
}

// executeRun validates cfg and runs the engine, returning the process exit code.
// Nothing touches the network before validation passes.
func executeRun(cmd *cobra.Command, cfg *config.Config) int {
	stderr := cmd.ErrOrStderr()
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, source, err := gh.ResolveAuthToken(ctx, cfg.Run.GitHubToken, config.DefaultHost)
	if err != nil {
		// Only a live fix run needs the token; Validate reports it then.
		fmt.Fprintf(stderr, "Warning: could not resolve a GitHub token: %v\n", err)
	}
	cfg.Run.GitHubToken = token

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrConfigRequired) {
			_ = cmd.Usage()
		}
		if errors.Is(err, config.ErrTokenRequired) {
			fmt.Fprintf(stderr, "Supply a token with --%s <token>, or set LINTFLEET_GITHUB_TOKEN or %s.\n", flags.FlagGitHubToken, gh.TokenEnvVar)
		}
		return 3
	}

	logger, err := logging.NewLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogFormat, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 3
	}
	defer func() { _ = logger.Sync() }()
	if token != "" {
		logger.Debug("github token resolved", zap.String("source", string(source)))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	workspaces := workspace.NewProvider("")
	defer func() {
		if err := workspaces.ReleaseAll(); err != nil {
			logger.Warn("releasing workspaces", zap.Error(err))
		}
	}()

	clients := gh.NewClients(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, stderr))
	eng := &engine.Engine{
		Workspaces: workspaces,
		Clone:      pipeline.GitClone,
		PullRequests: func(host string) (fix.PullRequests, error) {
			c, err := clients.For(host)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Stdout: cmd.OutOrStdout(),
		Stderr: stderr,
		Logger: logger,
	}
	return eng.Run(ctx, cfg)
}

func init() {
	rootCmd.AddCommand(runCmd)

	// MAINTAINER NOTE: keep these in sync with config.Config and internal/flags.

	// Run
	runCmd.Flags().StringVarP(&cfg.Run.ConfigPath, flags.FlagConfig, "c", "", "Run configuration file (JSON or YAML)")
	runCmd.Flags().BoolVar(&cfg.Run.Fix, flags.FlagFix, false, "Apply automatic fixes and open a pull request per repository")
	runCmd.Flags().BoolVarP(&cfg.Run.DryRun, flags.FlagDryRun, "n", false, "With --fix: commit locally and print the diffs instead of pushing")
	runCmd.Flags().StringVar(&cfg.Run.GitHubToken, flags.FlagGitHubToken, "", "GitHub token used to push fixes and open pull requests")
	runCmd.Flags().BoolVar(&cfg.Run.NoClipboard, flags.FlagNoClipboard, false, "Do not copy the report to the clipboard")

	// Engine
	runCmd.Flags().StringVar(&cfg.Engine.ESLint, flags.FlagESLint, cfg.Engine.ESLint, "ESLint executable")
	runCmd.Flags().StringVar(&cfg.Engine.NPM, flags.FlagNPM, cfg.Engine.NPM, "npm executable used to install plugins")

	// Output
	runCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	runCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	runCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit an additional structured stream to stdout: ndjson")

	// Runtime
	runCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Repositories processed at once")
	runCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout")
	runCmd.Flags().DurationVar(&cfg.Runtime.CloneTimeout, flags.FlagCloneTimeout, cfg.Runtime.CloneTimeout, "Timeout per clone (0 = unbounded)")
	runCmd.Flags().DurationVar(&cfg.Runtime.InstallTimeout, flags.FlagInstallTimeout, cfg.Runtime.InstallTimeout, "Timeout per plugin install (0 = unbounded)")
	runCmd.Flags().DurationVar(&cfg.Runtime.LintTimeout, flags.FlagLintTimeout, cfg.Runtime.LintTimeout, "Timeout per ESLint invocation (0 = unbounded)")
	runCmd.Flags().DurationVar(&cfg.Runtime.PushTimeout, flags.FlagPushTimeout, cfg.Runtime.PushTimeout, "Timeout per push (0 = unbounded)")
	runCmd.Flags().DurationVar(&cfg.Runtime.APITimeout, flags.FlagAPITimeout, cfg.Runtime.APITimeout, "Timeout per GitHub API call (0 = unbounded)")
}
