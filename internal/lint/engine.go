package lint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lintfleet/internal/execshell"
	"lintfleet/internal/plugins"
)

// ConfigFileName is the engine configuration written next to (never inside) the clone.
const ConfigFileName = "eslintrc.json"

type Request struct {
	// Dir is the repository root. Every engine invocation runs there.
	Dir string
	// Paths are linted relative to Dir.
	Paths []string
	// Config is the merged engine configuration document.
	Config map[string]any
	// ConfigDir receives the engine configuration file.
	ConfigDir      string
	IgnorePatterns []string
	Plugins        *plugins.Registry
	Fix            bool
}

type Engine interface {
	Lint(ctx context.Context, req Request) (*Report, error)
	// ApplyFixes writes every rewritten-content payload back to its file.
	ApplyFixes(ctx context.Context, dir string, report *Report) error
}

// ESLint drives the eslint command line with its JSON formatter.
type ESLint struct {
	runner     execshell.Runner
	executable string
}

func NewESLint(runner execshell.Runner, executable string) *ESLint {
	if executable == "" {
		executable = "eslint"
	}
	return &ESLint{runner: runner, executable: executable}
}

func (e *ESLint) Lint(ctx context.Context, req Request) (*Report, error) {
	if req.Dir == "" {
		return nil, errors.New("lint: repository directory is required")
	}
	paths, err := existingPaths(req.Dir, req.Paths)
	if err != nil {
		return nil, err
	}
	configDir := req.ConfigDir
	if configDir == "" {
		configDir = filepath.Dir(req.Dir)
	}
	configPath, err := writeConfig(configDir, req.Config)
	if err != nil {
		return nil, err
	}

	args := []string{"--no-eslintrc", "-c", configPath, "--format", "json"}
	if req.Fix {
		args = append(args, "--fix-dry-run")
	}
	if req.Plugins != nil && req.Plugins.Len() > 0 {
		args = append(args, "--resolve-plugins-relative-to", req.Plugins.ResolveDir())
	}
	for _, p := range req.IgnorePatterns {
		args = append(args, "--ignore-pattern", p)
	}
	args = append(args, paths...)

	res, err := e.runner.Run(ctx, execshell.Command{Name: e.executable, Args: args, Dir: req.Dir})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", e.executable, err)
	}
	// 0: no errors, 1: lint errors, anything else: the engine itself failed.
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, fmt.Errorf("%s exited with %d: %s", e.executable, res.ExitCode, firstLine(res.Stderr, res.Stdout))
	}
	return ParseReport([]byte(res.Stdout))
}

// ParseReport decodes the engine's JSON formatter output.
func ParseReport(raw []byte) (*Report, error) {
	var results []FileResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("decode lint report: %w", err)
	}
	return NewReport(results), nil
}

func (e *ESLint) ApplyFixes(ctx context.Context, dir string, report *Report) error {
	for _, fr := range report.Fixed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := fr.FilePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if !within(dir, path) {
			return fmt.Errorf("refusing to write %s outside %s", path, dir)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(*fr.Output), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func existingPaths(dir string, paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(dir, p)); err == nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("none of the configured paths exist: %s", strings.Join(paths, ", "))
	}
	return out, nil
}

func writeConfig(dir string, doc map[string]any) (string, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode engine config: %w", err)
	}
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("write engine config: %w", err)
	}
	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func firstLine(candidates ...string) string {
	for _, c := range candidates {
		s := strings.TrimSpace(c)
		if s == "" {
			continue
		}
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			return s[:i]
		}
		return s
	}
	return "no output"
}
