// Package pipeline runs one repository through clone, configuration, lint and
// classification. Sibling repositories each get their own Pipeline.Run call
// and share nothing mutable.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"lintfleet/internal/config"
	"lintfleet/internal/failure"
	"lintfleet/internal/fix"
	"lintfleet/internal/gitrepo"
	"lintfleet/internal/lint"
	"lintfleet/internal/plugins"
	"lintfleet/internal/progress"
)

// Phase names the pipeline state a repository is in.
type Phase string

const (
	PhasePendingClone Phase = "pending-clone"
	PhaseCloning      Phase = "cloning"
	PhaseConfigReady  Phase = "config-ready"
	PhaseLinting      Phase = "linting"
	PhaseDone         Phase = "done"
)

// CloneDirName is the clone location inside a repository workspace. The
// engine configuration lives beside it so it never shows up in diffs.
const CloneDirName = "repo"

type Workspaces interface {
	Acquire() (string, error)
}

// CloneFunc clones a repository and returns its handle.
type CloneFunc func(ctx context.Context, opts gitrepo.CloneOptions) (gitrepo.Handle, error)

// GitClone is the go-git backed CloneFunc.
func GitClone(ctx context.Context, opts gitrepo.CloneOptions) (gitrepo.Handle, error) {
	r, err := gitrepo.Clone(ctx, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// PullRequestsFor returns the pull request client for a host.
type PullRequestsFor func(host string) (fix.PullRequests, error)

type Timeouts struct {
	Clone time.Duration
	Lint  time.Duration
	Fix   fix.Timeouts
}

type Pipeline struct {
	Workspaces   Workspaces
	Clone        CloneFunc
	Engine       lint.Engine
	Plugins      *plugins.Registry
	PullRequests PullRequestsFor
	// Base is the run-wide lint configuration every repository overlay merges onto.
	Base     config.LintConfiguration
	Token    string
	Fix      bool
	Timeouts Timeouts
	Logger   *zap.Logger
	Now      func() time.Time
}

type Result struct {
	Repo          config.RepositorySpec
	Report        *lint.Report
	Outcome       lint.Outcome
	WorkspacePath string
	Handle        gitrepo.Handle
	// FixProcedure is set only when fixing was requested.
	FixProcedure *fix.Procedure
}

// Run processes one repository. Phases run strictly in order and each one
// ticks obs before starting its work. Any error is typed with the phase it
// happened in.
func (p *Pipeline) Run(ctx context.Context, repo config.RepositorySpec, obs progress.Observer) (*Result, error) {
	if obs == nil {
		obs = progress.Discard
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := repo.FullName()
	logger = logger.With(zap.String("repo", name))

	obs.Tick("⬇ ", "Cloning repository from GitHub...")
	logger.Debug("phase", zap.String("phase", string(PhaseCloning)))
	ws, err := p.Workspaces.Acquire()
	if err != nil {
		obs.Tick("💥", "Failed")
		return nil, failure.New(failure.KindWorkspace, name, "acquire workspace", err)
	}
	clone := p.Clone
	if clone == nil {
		clone = GitClone
	}
	dir := filepath.Join(ws, CloneDirName)
	var handle gitrepo.Handle
	err = withTimeout(ctx, p.Timeouts.Clone, func(ctx context.Context) error {
		var err error
		handle, err = clone(ctx, gitrepo.CloneOptions{
			URL:   gitrepo.RemoteURL(repo.HostOrDefault(), repo.Owner, repo.Name, p.Token != ""),
			Dir:   dir,
			Depth: 1,
			Token: p.Token,
		})
		return err
	})
	if err != nil {
		obs.Tick("💥", "Failed")
		return nil, failure.New(failure.KindClone, name, "clone", err)
	}

	obs.Tick("🕵 ", "Checking ESLint config...")
	logger.Debug("phase", zap.String("phase", string(PhaseConfigReady)))
	merged := config.Merge(p.Base, repo.LintConfig)
	if err := p.resolvePlugins(merged); err != nil {
		obs.Tick("💥", "Failed")
		return nil, failure.New(failure.KindPluginInstall, name, "resolve plugins", err)
	}

	obs.Tick("🔍", "Linting...")
	logger.Debug("phase", zap.String("phase", string(PhaseLinting)))
	var report *lint.Report
	err = withTimeout(ctx, p.Timeouts.Lint, func(ctx context.Context) error {
		var err error
		report, err = p.Engine.Lint(ctx, lint.Request{
			Dir:            handle.Path(),
			Paths:          repo.PathsOrDefault(),
			Config:         merged.EngineDocument(),
			ConfigDir:      ws,
			IgnorePatterns: merged.IgnorePatterns(),
			Plugins:        p.Plugins,
			Fix:            p.Fix,
		})
		return err
	})
	if err != nil {
		obs.Tick("💥", "Failed")
		return nil, failure.New(failure.KindLintExecution, name, "lint", err)
	}

	outcome := report.Outcome()
	obs.Tick(doneStatus(outcome), doneMessage(report))
	logger.Debug("phase", zap.String("phase", string(PhaseDone)),
		zap.Int("errors", report.ErrorCount), zap.Int("warnings", report.WarningCount))

	res := &Result{
		Repo:          repo,
		Report:        report,
		Outcome:       outcome,
		WorkspacePath: ws,
		Handle:        handle,
	}
	if p.Fix {
		res.FixProcedure = p.fixProcedure(repo, handle, report, logger)
	}
	return res, nil
}

// resolvePlugins checks every plugin the merged configuration names is
// installed and still on disk.
func (p *Pipeline) resolvePlugins(merged config.LintConfiguration) error {
	for _, id := range merged.Plugins() {
		pl, ok := p.Plugins.Lookup(id)
		if !ok {
			return fmt.Errorf("plugin %s was not installed", plugins.Canonicalize(id))
		}
		if _, err := os.Stat(pl.Dir); err != nil {
			return fmt.Errorf("plugin %s missing from %s: %w", pl.Name, pl.Dir, err)
		}
	}
	return nil
}

func (p *Pipeline) fixProcedure(repo config.RepositorySpec, handle gitrepo.Handle, report *lint.Report, logger *zap.Logger) *fix.Procedure {
	proc := &fix.Procedure{
		Repo:     repo.FullName(),
		Owner:    repo.Owner,
		Name:     repo.Name,
		Handle:   handle,
		Report:   report,
		Engine:   p.Engine,
		Timeouts: p.Timeouts.Fix,
		Now:      p.Now,
	}
	// The cloned HEAD is the remote default branch, so it is the pull request base.
	if base, err := handle.CurrentBranch(); err == nil {
		proc.BaseBranch = base
	} else {
		logger.Debug("base branch unknown, falling back to the API default", zap.Error(err))
	}
	if p.PullRequests != nil {
		if prs, err := p.PullRequests(repo.HostOrDefault()); err == nil {
			proc.PullRequests = prs
		} else {
			logger.Warn("pull request client unavailable", zap.Error(err))
		}
	}
	return proc
}

func doneStatus(o lint.Outcome) string {
	switch o {
	case lint.OutcomeErrors:
		return "❌"
	case lint.OutcomeWarnings:
		return "⚠️ "
	default:
		return "✅"
	}
}

func doneMessage(r *lint.Report) string {
	switch r.Outcome() {
	case lint.OutcomeErrors:
		return fmt.Sprintf("Done! %d errors and %d warnings", r.ErrorCount, r.WarningCount)
	case lint.OutcomeWarnings:
		return fmt.Sprintf("Done! %d warnings", r.WarningCount)
	default:
		return "Done! No errors!"
	}
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}
