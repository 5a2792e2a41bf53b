package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI
	// flags in internal/cli/run.go and the flag names in internal/flags in sync.
	Run     Run
	Engine  Engine
	Output  Output
	Runtime Runtime
}

type Run struct {
	// ConfigPath is the run configuration file (JSON or YAML; see --config).
	ConfigPath string

	// Fix enables fix mode: findings carrying rewritten content are applied,
	// committed on a new branch and either diffed (DryRun) or pushed as a pull request.
	Fix bool

	// DryRun stops the fix workflow after the local commit and prints the diff (see --dry-run).
	DryRun bool

	// GitHubToken authorizes pushes and pull-request creation (see --github-token).
	GitHubToken string

	// NoClipboard disables copying the report to the system clipboard.
	NoClipboard bool
}

type Engine struct {
	// ESLint is the lint engine executable (see --eslint).
	ESLint string

	// NPM is the package manager used to install plugins (see --npm).
	NPM string
}

type Output struct {
	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: ndjson.
	Emit []string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (json|ndjson). Inferred from the extension when empty.
	OutFormat string
}

type Runtime struct {
	// Concurrency bounds how many repositories are processed at once. Must be >= 1.
	Concurrency int

	// Timeout is the global timeout for the run. Must be > 0.
	Timeout time.Duration

	// Per-suspension-point timeouts. Zero disables the bound for that operation.
	CloneTimeout   time.Duration
	InstallTimeout time.Duration
	LintTimeout    time.Duration
	PushTimeout    time.Duration
	APITimeout     time.Duration

	// Verbose logs every GitHub API call and full error details.
	Verbose bool

	// LogLevel for the diagnostic logger: debug|info|warn|error.
	LogLevel string

	// LogFormat for the diagnostic logger: console|structured.
	LogFormat string
}

func New() *Config {
	return &Config{
		Engine: Engine{
			ESLint: "eslint",
			NPM:    "npm",
		},
		Runtime: Runtime{
			Concurrency:    5,
			Timeout:        30 * time.Minute,
			CloneTimeout:   5 * time.Minute,
			InstallTimeout: 5 * time.Minute,
			LintTimeout:    10 * time.Minute,
			PushTimeout:    2 * time.Minute,
			APITimeout:     time.Minute,
			LogLevel:       "warn",
			LogFormat:      "console",
		},
	}
}

// ErrConfigRequired is returned by Validate when no run configuration is given.
var ErrConfigRequired = errors.New("--config is required")

// ErrTokenRequired is returned by Validate when a live fix run has no credential.
var ErrTokenRequired = errors.New("a GitHub token is required to push fixes and open pull requests: pass --github-token (or use --dry-run)")

// Validate normalizes c in place and reports the first invalid setting.
func (c *Config) Validate() error {
	for _, check := range []func() error{c.validateRun, c.validateEngine, c.validateOutput, c.validateRuntime} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateRun() error {
	c.Run.ConfigPath = strings.TrimSpace(c.Run.ConfigPath)
	if c.Run.ConfigPath == "" {
		return ErrConfigRequired
	}
	c.Run.GitHubToken = strings.TrimSpace(c.Run.GitHubToken)
	if c.Run.Fix && !c.Run.DryRun && c.Run.GitHubToken == "" {
		return ErrTokenRequired
	}
	// --dry-run means nothing without --fix.
	c.Run.DryRun = c.Run.DryRun && c.Run.Fix
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.ESLint) == "" {
		return errors.New("--eslint must not be empty")
	}
	if strings.TrimSpace(c.Engine.NPM) == "" {
		return errors.New("--npm must not be empty")
	}
	return nil
}

func (c *Config) validateOutput() error {
	c.Output.Emit = splitCommaList(c.Output.Emit)
	for i, emit := range c.Output.Emit {
		if c.Output.Emit[i] = normalizeEnumValue(emit); c.Output.Emit[i] != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be: ndjson)", emit)
		}
	}
	if c.Output.Out == "" {
		return nil
	}
	format, err := outFormat(c.Output.Out, normalizeEnumValue(c.Output.OutFormat))
	if err != nil {
		return err
	}
	c.Output.OutFormat = format
	return nil
}

// outFormat returns the explicit format, or the one implied by the file extension.
func outFormat(path, explicit string) (string, error) {
	switch explicit {
	case "json", "ndjson":
		return explicit, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported output format: %s", explicit)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".ndjson", ".jsonl":
		return "ndjson", nil
	case "":
		return "", errors.New("cannot infer output format from file extension (missing extension); use --out-format")
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
	}
}

func (c *Config) validateRuntime() error {
	if c.Runtime.Concurrency < 1 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	phases := []struct {
		flag string
		d    time.Duration
	}{
		{"--clone-timeout", c.Runtime.CloneTimeout},
		{"--install-timeout", c.Runtime.InstallTimeout},
		{"--lint-timeout", c.Runtime.LintTimeout},
		{"--push-timeout", c.Runtime.PushTimeout},
		{"--api-timeout", c.Runtime.APITimeout},
	}
	for _, p := range phases {
		if p.d < 0 {
			return fmt.Errorf("%s must be >= 0", p.flag)
		}
	}

	var err error
	if c.Runtime.LogLevel, err = oneOf("--log-level", c.Runtime.LogLevel, "warn", "debug", "info", "warn", "error"); err != nil {
		return err
	}
	c.Runtime.LogFormat, err = oneOf("--log-format", c.Runtime.LogFormat, "console", "console", "structured")
	return err
}

// oneOf normalizes raw, substituting def when empty, and checks it against allowed.
func oneOf(flag, raw, def string, allowed ...string) (string, error) {
	v := normalizeEnumValue(raw)
	if v == "" {
		return def, nil
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported %s: %s (must be one of: %s)", flag, v, strings.Join(allowed, ", "))
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
