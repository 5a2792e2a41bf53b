package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lintfleet/internal/execshell"
	"lintfleet/internal/failure"
)

// Workspaces allocates the shared install directory.
type Workspaces interface {
	Acquire() (string, error)
}

type Installer struct {
	runner     execshell.Runner
	workspaces Workspaces
	npm        string
	timeout    time.Duration
	out        io.Writer
	logger     *zap.Logger
}

type Option func(*Installer)

// WithExecutable overrides the package-manager binary (default "npm").
func WithExecutable(name string) Option {
	return func(i *Installer) {
		if name != "" {
			i.npm = name
		}
	}
}

// WithTimeout bounds the install.
func WithTimeout(d time.Duration) Option {
	return func(i *Installer) { i.timeout = d }
}

// WithOutput sets where the one-line-per-plugin summary is written.
func WithOutput(w io.Writer) Option {
	return func(i *Installer) { i.out = w }
}

func WithLogger(l *zap.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

func NewInstaller(runner execshell.Runner, workspaces Workspaces, opts ...Option) *Installer {
	i := &Installer{
		runner:     runner,
		workspaces: workspaces,
		npm:        "npm",
		timeout:    5 * time.Minute,
		out:        os.Stdout,
		logger:     zap.NewNop(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(i)
		}
	}
	return i
}

// InstallAll installs every requested plugin into one shared workspace.
//
// All packages go through a single installer invocation: npm prunes packages
// it did not install itself, so one call per plugin would delete the ones
// before it. Afterwards every package is checked on disk.
//
// It is all-or-nothing: if the install fails or any package is missing, an
// error is returned and no registry is produced. Identifiers that canonicalize
// to the same package are installed once.
func (i *Installer) InstallAll(ctx context.Context, ids []string) (*Registry, error) {
	names := dedupe(ids)
	if len(names) == 0 {
		return EmptyRegistry(), nil
	}

	root, err := i.workspaces.Acquire()
	if err != nil {
		return nil, failure.New(failure.KindPluginInstall, "", "allocate plugin workspace", err)
	}

	_, _ = color.New(color.Bold).Fprintln(i.out, "Installing plugins...")
	fmt.Fprintln(i.out)

	if err := i.run(ctx, root, names); err != nil {
		return nil, err
	}

	installed := make([]InstalledPlugin, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for idx, name := range names {
		g.Go(func() error {
			p, err := verify(gctx, root, name)
			if err != nil {
				return failure.New(failure.KindPluginInstall, "", "install "+name, err)
			}
			installed[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range installed {
		fmt.Fprintf(i.out, "  🔧  %s %s\n", p.Name, p.Version)
	}
	fmt.Fprintln(i.out)
	i.logger.Debug("plugins installed", zap.Strings("plugins", names), zap.String("dir", root))

	return NewRegistry(root, installed), nil
}

func (i *Installer) run(ctx context.Context, root string, names []string) error {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := []string{"install", "--no-save", "--no-package-lock", "--no-audit", "--no-fund", "--silent", "--prefix", root}
	// The installer's own output is captured and only surfaced on failure.
	cmd := execshell.Command{
		Name: i.npm,
		Args: append(args, names...),
		Dir:  root,
		Env:  map[string]string{"npm_config_loglevel": "silent", "npm_config_progress": "false"},
	}
	op := "install " + strings.Join(names, " ")
	i.logger.Debug("installing plugins", zap.Strings("plugins", names), zap.String("dir", root))

	res, err := i.runner.Run(ctx, cmd)
	if err != nil {
		return failure.New(failure.KindPluginInstall, "", op, err)
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		return failure.New(failure.KindPluginInstall, "", op,
			fmt.Errorf("%s exited with code %d: %s", i.npm, res.ExitCode, detail))
	}
	return nil
}

// verify reads the installed package manifest and checks it names the package.
func verify(ctx context.Context, root, name string) (InstalledPlugin, error) {
	if err := ctx.Err(); err != nil {
		return InstalledPlugin{}, err
	}
	dir := filepath.Join(root, "node_modules", filepath.FromSlash(name))
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return InstalledPlugin{}, fmt.Errorf("package not found after install: %w", err)
	}
	var manifest struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return InstalledPlugin{}, fmt.Errorf("read %s manifest: %w", name, err)
	}
	if manifest.Name != name {
		return InstalledPlugin{}, fmt.Errorf("%s holds package %q", dir, manifest.Name)
	}
	return InstalledPlugin{Name: name, Version: manifest.Version, Dir: dir}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		n := Canonicalize(id)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
