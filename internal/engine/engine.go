// Package engine sequences a whole lintfleet run: plugin install, the
// per-repository lint fan-out, the aggregate report and the optional fix
// fan-out.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"lintfleet/internal/config"
	"lintfleet/internal/execshell"
	"lintfleet/internal/failure"
	"lintfleet/internal/fix"
	"lintfleet/internal/lint"
	"lintfleet/internal/logging"
	"lintfleet/internal/output"
	"lintfleet/internal/pipeline"
	"lintfleet/internal/plugins"
	"lintfleet/internal/progress"
	"lintfleet/internal/report"
	"lintfleet/internal/workspace"
)

func exitCodeForRun(fatal, partial, wrongs bool) int {
	// Exit code contract:
	// 0 = clean run, no lint errors
	// 1 = lint errors found
	// 2 = partial failure (some repositories or fix procedures failed)
	// 3 = fatal error (run did not start)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if wrongs {
		return 1
	}
	return 0
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// PluginInstaller installs the plugins a run needs.
type PluginInstaller interface {
	InstallAll(ctx context.Context, ids []string) (*plugins.Registry, error)
}

// Engine runs one lintfleet invocation. Zero-valued collaborators are
// replaced by the real implementations.
type Engine struct {
	Workspaces   *workspace.Provider
	Installer    PluginInstaller
	Lint         lint.Engine
	Clone        pipeline.CloneFunc
	PullRequests pipeline.PullRequestsFor
	Clipboard    func(string) error
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *zap.Logger
	Now          func() time.Time
}

// repoRun is the per-index slot a lint task owns.
type repoRun struct {
	result *pipeline.Result
	err    error
}

type fixRun struct {
	repo    string
	outcome *fix.Outcome
	err     error
}

func (e *Engine) defaults(cfg *config.Config, operator io.Writer, logger *zap.Logger) {
	if e.Workspaces == nil {
		e.Workspaces = workspace.NewProvider("")
	}
	if e.Lint == nil {
		e.Lint = lint.NewESLint(execshell.NewOSRunner(), cfg.Engine.ESLint)
	}
	if e.Installer == nil {
		e.Installer = plugins.NewInstaller(execshell.NewOSRunner(), e.Workspaces,
			plugins.WithExecutable(cfg.Engine.NPM),
			plugins.WithTimeout(cfg.Runtime.InstallTimeout),
			plugins.WithOutput(operator),
			plugins.WithLogger(logger),
		)
	}
	if e.Clipboard == nil {
		e.Clipboard = clipboard.WriteAll
	}
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	stdout, stderr := e.Stdout, e.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc, err := config.LoadRunConfig(cfg.Run.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading run configuration: %v\n", err)
		return exitCodeForRun(failure.RunFatal(err), true, false)
	}

	outMgr, err := setupOutputManager(cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer outMgr.Close()

	// The event stream owns stdout when it is enabled.
	operator := stdout
	if len(cfg.Output.Emit) > 0 {
		operator = stderr
	}
	console := logging.NewConsole(operator)
	e.defaults(cfg, operator, logger)
	defer func() {
		if err := e.Workspaces.ReleaseAll(); err != nil {
			logger.Warn("releasing workspaces", zap.Error(err))
		}
	}()

	_ = outMgr.Emit(output.Event{Type: output.EventRunStarted, Repos: len(rc.Repos)})
	finish := func(code int) int {
		_ = outMgr.Emit(output.Event{Type: output.EventRunFinished, ExitCode: code})
		return code
	}

	registry, err := e.Installer.InstallAll(ctx, pluginIDs(rc))
	if err != nil {
		console.Println(color.RedString("Error installing plugins: %v", err))
		return finish(exitCodeForRun(failure.RunFatal(err), true, false))
	}
	logger.Debug("plugins ready", zap.Strings("plugins", registry.Names()))

	sched, err := NewScheduler(cfg.Runtime.Concurrency)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating scheduler: %v\n", err)
		return finish(exitCodeForRun(true, false, false))
	}

	pipe := &pipeline.Pipeline{
		Workspaces:   e.Workspaces,
		Clone:        e.Clone,
		Engine:       e.Lint,
		Plugins:      registry,
		PullRequests: e.PullRequests,
		Base:         rc.LintConfig,
		Token:        cfg.Run.GitHubToken,
		Fix:          cfg.Run.Fix,
		Timeouts: pipeline.Timeouts{
			Clone: cfg.Runtime.CloneTimeout,
			Lint:  cfg.Runtime.LintTimeout,
			Fix: fix.Timeouts{
				Push: cfg.Runtime.PushTimeout,
				API:  cfg.Runtime.APITimeout,
			},
		},
		Logger: logger,
		Now:    e.Now,
	}

	runs := e.lintAll(ctx, sched, pipe, rc.Repos, console, outMgr)

	var (
		succeeded []*pipeline.Result
		partial   bool
	)
	for _, r := range runs {
		if r.err != nil {
			partial = true
			continue
		}
		succeeded = append(succeeded, r.result)
	}

	wrongs, err := e.printReport(cfg, console, succeeded)
	if err != nil {
		fmt.Fprintf(stderr, "Error rendering report: %v\n", err)
		return finish(exitCodeForRun(true, partial, wrongs))
	}

	if cfg.Run.Fix {
		if e.fixAll(ctx, sched, cfg.Run.DryRun, succeeded, console, outMgr) {
			partial = true
		}
	}

	return finish(exitCodeForRun(false, partial, wrongs))
}

// pluginIDs collects every plugin named by the run-wide configuration or any
// repository overlay, in first-seen order.
func pluginIDs(rc *config.RunConfig) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(list []string) {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	add(rc.LintConfig.Plugins())
	for _, repo := range rc.Repos {
		add(repo.LintConfig.Plugins())
	}
	return ids
}

func (e *Engine) lintAll(ctx context.Context, sched *Scheduler, pipe *pipeline.Pipeline, repos []config.RepositorySpec, console *logging.Console, outMgr *output.Manager) []repoRun {
	names := make([]string, len(repos))
	for i, repo := range repos {
		names[i] = repo.FullName()
	}
	bars := progress.New(console.Writer(), names, progress.WithLive(console.IsTerminal()))

	runs := make([]repoRun, len(repos))
	skipped, err := sched.Execute(ctx, len(repos), func(ctx context.Context, i int) {
		name := names[i]
		_ = outMgr.Emit(output.Event{Type: output.EventRepoStarted, Repo: name})

		res, err := pipe.Run(ctx, repos[i], bars.Tracker(name))
		if err != nil {
			runs[i].err = err
			console.Repo(name).Error(err)
			_ = outMgr.Emit(output.Event{Type: output.EventRepoFailed, Repo: name, RepoSummary: failedSummary(err)})
			return
		}
		runs[i].result = res
		_ = outMgr.Emit(output.Event{
			Type: output.EventRepoFinished,
			Repo: name,
			RepoSummary: &output.RepoSummary{
				Outcome:  string(res.Outcome),
				Errors:   res.Report.ErrorCount,
				Warnings: res.Report.WarningCount,
			},
		})
	})
	for _, i := range skipped {
		runs[i].err = failure.NotStarted(names[i], err)
		_ = outMgr.Emit(output.Event{Type: output.EventRepoFailed, Repo: names[i], RepoSummary: failedSummary(runs[i].err)})
	}
	return runs
}

func failedSummary(err error) *output.RepoSummary {
	s := &output.RepoSummary{Error: err.Error()}
	if kind, ok := failure.KindOf(err); ok {
		s.ErrorKind = string(kind)
	}
	if failure.IsTimeout(err) {
		s.ErrorKind = "timeout"
	}
	return s
}

// printReport prints findings and the aggregate table for the surviving
// repositories, in input order. It reports whether any repository has errors.
func (e *Engine) printReport(cfg *config.Config, console *logging.Console, results []*pipeline.Result) (bool, error) {
	bold := color.New(color.Bold).SprintFunc()
	wrongs := false
	entries := make([]report.Entry, 0, len(results))
	for _, r := range results {
		if r.Report.ErrorCount > 0 {
			wrongs = true
		}
		entries = append(entries, report.Entry{
			Repo:         r.Repo.FullName(),
			ErrorCount:   r.Report.ErrorCount,
			WarningCount: r.Report.WarningCount,
		})
	}

	console.Println()
	if wrongs {
		console.Println(bold("👇  Here's all the errors I've found 👇"))
		console.Println()
	}
	for _, r := range results {
		if r.Outcome == lint.OutcomeClean {
			continue
		}
		console.Repo(r.Repo.FullName()).Printf("\n%s\n", lint.FormatFindings(r.Handle.Path(), r.Report))
	}

	table, err := report.Generate(entries)
	if err != nil {
		return wrongs, err
	}
	console.Println(bold("🎉  Here's your lintfleet report!"))
	console.Println()
	console.Println(table)
	console.Println()

	if cfg.Run.NoClipboard {
		return wrongs, nil
	}
	if err := e.Clipboard(table); err != nil {
		console.Println(color.YellowString("Could not copy the report to the clipboard: %v", err))
		console.Println()
		return wrongs, nil
	}
	console.Println("📋  Automatically copied to the clipboard!")
	console.Println()
	return wrongs, nil
}

// fixAll runs every pending fix procedure and prints the diffs (dry run) or
// the opened pull requests. It reports whether any procedure failed.
func (e *Engine) fixAll(ctx context.Context, sched *Scheduler, dryRun bool, results []*pipeline.Result, console *logging.Console, outMgr *output.Manager) bool {
	var procs []*fix.Procedure
	for _, r := range results {
		if r.FixProcedure != nil {
			procs = append(procs, r.FixProcedure)
		}
	}

	runs := make([]fixRun, len(procs))
	skipped, schedErr := sched.Execute(ctx, len(procs), func(ctx context.Context, i int) {
		p := procs[i]
		runs[i].repo = p.Repo
		out, err := p.Run(ctx, dryRun)
		if err != nil {
			runs[i].err = err
			console.Repo(p.Repo).Error(err)
			_ = outMgr.Emit(output.Event{Type: output.EventFixFailed, Repo: p.Repo, RepoSummary: failedSummary(err)})
			return
		}
		runs[i].outcome = out
		_ = outMgr.Emit(output.Event{Type: output.EventFixFinished, Repo: p.Repo, RepoSummary: fixSummary(p, out)})
	})

	failed := false
	for _, i := range skipped {
		runs[i].repo = procs[i].Repo
		runs[i].err = failure.NotStarted(procs[i].Repo, schedErr)
		_ = outMgr.Emit(output.Event{Type: output.EventFixFailed, Repo: procs[i].Repo, RepoSummary: failedSummary(runs[i].err)})
	}

	var prs []report.PullRequest
	printedDiffs := false
	for _, r := range runs {
		if r.err != nil {
			failed = true
			continue
		}
		if r.outcome == nil {
			continue
		}
		if dryRun {
			if len(r.outcome.Diffs) == 0 {
				continue
			}
			if err := report.WriteDiffs(console.Writer(), r.repo, r.outcome.Diffs); err != nil {
				console.Repo(r.repo).Error(err)
				failed = true
			}
			printedDiffs = true
			continue
		}
		prs = append(prs, report.PullRequest{Repo: r.repo, URL: r.outcome.PullRequestURL})
	}

	if dryRun {
		if !printedDiffs {
			console.Println("No automatic fixes are available.")
		}
		return failed
	}
	if err := report.WritePullRequests(console.Writer(), prs); err != nil {
		console.Println(color.RedString("Error printing pull requests: %v", err))
		return true
	}
	return failed
}

func fixSummary(p *fix.Procedure, out *fix.Outcome) *output.RepoSummary {
	s := &output.RepoSummary{Outcome: "unchanged"}
	if p.Report != nil {
		s.Errors = p.Report.ErrorCount
		s.Warnings = p.Report.WarningCount
	}
	if out == nil {
		return s
	}
	s.Outcome = "fixed"
	s.Branch = out.Branch
	s.PullRequestURL = out.PullRequestURL
	if len(out.Diffs) > 0 {
		for _, d := range out.Diffs {
			s.Files = append(s.Files, d.Path)
		}
		return s
	}
	for _, fr := range p.Report.Fixed() {
		s.Files = append(s.Files, fr.FilePath)
	}
	return s
}
