package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintfleet/internal/config"
	"lintfleet/internal/failure"
	"lintfleet/internal/fix"
	"lintfleet/internal/github"
	"lintfleet/internal/gitrepo"
	"lintfleet/internal/lint"
	"lintfleet/internal/plugins"
	"lintfleet/internal/workspace"
)

type recorder struct {
	mu    sync.Mutex
	ticks []string
}

func (r *recorder) Tick(status, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, phase)
}

type stubHandle struct {
	dir    string
	branch string
}

func (h *stubHandle) Path() string                                   { return h.dir }
func (h *stubHandle) Head() (string, error)                          { return "abc", nil }
func (h *stubHandle) CurrentBranch() (string, error)                 { return h.branch, nil }
func (h *stubHandle) CreateBranch(string) error                      { return nil }
func (h *stubHandle) Checkout(string) error                          { return nil }
func (h *stubHandle) Commit(string, bool) (string, error)            { return "def", nil }
func (h *stubHandle) Push(context.Context, string) error             { return nil }
func (h *stubHandle) Diff(string, string) ([]gitrepo.FileDiff, error) { return nil, nil }

type stubEngine struct {
	mu     sync.Mutex
	report *lint.Report
	err    error
	got    []lint.Request
	block  bool
}

func (e *stubEngine) Lint(ctx context.Context, req lint.Request) (*lint.Report, error) {
	e.mu.Lock()
	e.got = append(e.got, req)
	e.mu.Unlock()
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return e.report, e.err
}

func (e *stubEngine) ApplyFixes(context.Context, string, *lint.Report) error { return nil }

type stubPulls struct{}

func (stubPulls) OpenPullRequest(context.Context, github.PullRequestSpec) (string, error) {
	return "https://example.com/pull/1", nil
}

func cloneInto(got *gitrepo.CloneOptions) CloneFunc {
	return func(_ context.Context, opts gitrepo.CloneOptions) (gitrepo.Handle, error) {
		*got = opts
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		return &stubHandle{dir: opts.Dir, branch: "main"}, nil
	}
}

func TestRun_PhasesInOrderAndRequestShape(t *testing.T) {
	var opts gitrepo.CloneOptions
	rec := &recorder{}
	engine := &stubEngine{report: lint.NewReport([]lint.FileResult{{FilePath: "a.js", ErrorCount: 3, WarningCount: 1}})}
	p := &Pipeline{
		Workspaces: workspace.NewProvider(t.TempDir()),
		Clone:      cloneInto(&opts),
		Engine:     engine,
		Base:       config.LintConfiguration{"rules": map[string]any{"a": 1}, "ignorePattern": []any{"build/**"}},
	}
	repo := config.RepositorySpec{
		Owner: "buildo", Name: "alpha",
		LintConfig: config.LintConfiguration{"rules": map[string]any{"a": 2, "b": 1}},
	}

	res, err := p.Run(context.Background(), repo, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Cloning repository from GitHub...",
		"Checking ESLint config...",
		"Linting...",
		"Done! 3 errors and 1 warnings",
	}, rec.ticks)
	assert.Equal(t, lint.OutcomeErrors, res.Outcome)
	assert.Nil(t, res.FixProcedure)

	assert.Equal(t, "git@github.com:buildo/alpha", opts.URL)
	assert.Equal(t, 1, opts.Depth)
	assert.Equal(t, filepath.Join(res.WorkspacePath, CloneDirName), opts.Dir)

	require.Len(t, engine.got, 1)
	req := engine.got[0]
	assert.Equal(t, opts.Dir, req.Dir)
	assert.Equal(t, res.WorkspacePath, req.ConfigDir)
	assert.Equal(t, []string{"src", "web/src"}, req.Paths)
	assert.Equal(t, []string{"build/**"}, req.IgnorePatterns)
	assert.Equal(t, map[string]any{"a": 2, "b": 1}, req.Config["rules"])
	assert.NotContains(t, req.Config, "ignorePattern")
	assert.False(t, req.Fix)
}

func TestRun_FixModeAttachesProcedure(t *testing.T) {
	var opts gitrepo.CloneOptions
	p := &Pipeline{
		Workspaces:   workspace.NewProvider(t.TempDir()),
		Clone:        cloneInto(&opts),
		Engine:       &stubEngine{report: lint.NewReport(nil)},
		Token:        "tok",
		Fix:          true,
		PullRequests: func(string) (fix.PullRequests, error) { return stubPulls{}, nil },
		Timeouts:     Timeouts{Fix: fix.Timeouts{Push: time.Minute}},
	}
	res, err := p.Run(context.Background(), config.RepositorySpec{Owner: "o", Name: "n", Host: "git.example.com"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://git.example.com/o/n.git", opts.URL)
	assert.Equal(t, "tok", opts.Token)
	require.NotNil(t, res.FixProcedure)
	assert.Equal(t, "main", res.FixProcedure.BaseBranch)
	assert.Equal(t, "o/n", res.FixProcedure.Repo)
	assert.NotNil(t, res.FixProcedure.PullRequests)
	assert.Equal(t, time.Minute, res.FixProcedure.Timeouts.Push)
	assert.Equal(t, lint.OutcomeClean, res.Outcome)
}

func TestRun_ErrorKinds(t *testing.T) {
	cloneErr := func(context.Context, gitrepo.CloneOptions) (gitrepo.Handle, error) {
		return nil, errors.New("repository not found")
	}
	var opts gitrepo.CloneOptions
	tests := []struct {
		name     string
		pipeline *Pipeline
		kind     failure.Kind
		timeout  bool
	}{
		{
			name:     "clone",
			pipeline: &Pipeline{Workspaces: workspace.NewProvider(t.TempDir()), Clone: cloneErr, Engine: &stubEngine{}},
			kind:     failure.KindClone,
		},
		{
			name:     "workspace",
			pipeline: &Pipeline{Workspaces: workspace.NewProvider(filepath.Join(t.TempDir(), "missing")), Clone: cloneErr, Engine: &stubEngine{}},
			kind:     failure.KindWorkspace,
		},
		{
			name:     "lint",
			pipeline: &Pipeline{Workspaces: workspace.NewProvider(t.TempDir()), Clone: cloneInto(&opts), Engine: &stubEngine{err: errors.New("engine crashed")}},
			kind:     failure.KindLintExecution,
		},
		{
			name: "lint timeout",
			pipeline: &Pipeline{
				Workspaces: workspace.NewProvider(t.TempDir()), Clone: cloneInto(&opts), Engine: &stubEngine{block: true},
				Timeouts: Timeouts{Lint: 10 * time.Millisecond},
			},
			kind:    failure.KindLintExecution,
			timeout: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			res, err := tt.pipeline.Run(context.Background(), config.RepositorySpec{Owner: "o", Name: "n"}, rec)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, failure.IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.timeout, failure.IsTimeout(err))
			assert.Equal(t, "Failed", rec.ticks[len(rec.ticks)-1])
		})
	}
}

func TestRun_ResolvesMergedPlugins(t *testing.T) {
	root := t.TempDir()
	react := filepath.Join(root, "node_modules", "eslint-plugin-react")
	require.NoError(t, os.MkdirAll(react, 0o755))
	registry := plugins.NewRegistry(root, []plugins.InstalledPlugin{
		{Name: "eslint-plugin-react", Dir: react},
		{Name: "eslint-plugin-import", Dir: filepath.Join(root, "node_modules", "eslint-plugin-import")},
	})

	tests := []struct {
		name    string
		overlay config.LintConfiguration
		wantErr string
	}{
		{name: "installed", overlay: nil},
		{name: "not installed", overlay: config.LintConfiguration{"plugins": []any{"jsx-a11y"}}, wantErr: "plugin eslint-plugin-jsx-a11y was not installed"},
		{name: "gone from disk", overlay: config.LintConfiguration{"plugins": []any{"import"}}, wantErr: "plugin eslint-plugin-import missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts gitrepo.CloneOptions
			engine := &stubEngine{report: lint.NewReport(nil)}
			p := &Pipeline{
				Workspaces: workspace.NewProvider(t.TempDir()),
				Clone:      cloneInto(&opts),
				Engine:     engine,
				Plugins:    registry,
				Base:       config.LintConfiguration{"plugins": []any{"react"}},
			}
			rec := &recorder{}
			res, err := p.Run(context.Background(), config.RepositorySpec{Owner: "o", Name: "n", LintConfig: tt.overlay}, rec)
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.Len(t, engine.got, 1)
				assert.Same(t, registry, engine.got[0].Plugins)
				return
			}
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Empty(t, engine.got)
			assert.True(t, failure.IsKind(err, failure.KindPluginInstall))
			assert.False(t, failure.RunFatal(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, "Failed", rec.ticks[len(rec.ticks)-1])
		})
	}
}

func TestDoneMessage(t *testing.T) {
	assert.Equal(t, "Done! 2 warnings", doneMessage(lint.NewReport([]lint.FileResult{{WarningCount: 2}})))
	assert.Equal(t, "Done! No errors!", doneMessage(lint.NewReport(nil)))
	assert.Equal(t, "✅", doneStatus(lint.OutcomeClean))
	assert.Equal(t, "❌", doneStatus(lint.OutcomeErrors))
}
