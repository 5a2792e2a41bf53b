package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// environment binding. Every name here can also be supplied as an environment
// variable: LINTFLEET_ followed by the upper-cased name with dashes turned into
// underscores (e.g. LINTFLEET_GITHUB_TOKEN).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Run.ConfigPath, flags.FlagConfig, "", "...")
//	arg := "--" + flags.FlagConfig
const (
	// Run
	FlagConfig      = "config"
	FlagFix         = "fix"
	FlagDryRun      = "dry-run"
	FlagGitHubToken = "github-token"
	FlagNoClipboard = "no-clipboard"

	// Engine
	FlagESLint = "eslint"
	FlagNPM    = "npm"

	// Output
	FlagOut       = "out"
	FlagOutFormat = "out-format"
	FlagEmit      = "emit"

	// Runtime
	FlagConcurrency    = "concurrency"
	FlagTimeout        = "timeout"
	FlagCloneTimeout   = "clone-timeout"
	FlagInstallTimeout = "install-timeout"
	FlagLintTimeout    = "lint-timeout"
	FlagPushTimeout    = "push-timeout"
	FlagAPITimeout     = "api-timeout"

	// Global
	FlagVerbose   = "verbose"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// EnvPrefix prefixes the environment variable bound to every flag.
const EnvPrefix = "LINTFLEET"
