// Package fix applies the engine's automatic fixes to a cloned repository and
// either shows the resulting diff (dry run) or publishes it as a pull request.
package fix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lintfleet/internal/failure"
	"lintfleet/internal/github"
	"lintfleet/internal/gitrepo"
	"lintfleet/internal/lint"
)

const (
	BranchPrefix  = "lintfleet-fix"
	CommitMessage = "Apply automatic lint fixes"
	PullTitle     = "Apply automatic lint fixes"
	PullBody      = "This pull request was opened by lintfleet.\n\n" +
		"It contains only the changes the lint engine applied automatically to the configured source paths. " +
		"Findings that cannot be fixed automatically are not touched."
)

// PullRequests opens pull requests on the repository's hosting service.
type PullRequests interface {
	OpenPullRequest(ctx context.Context, spec github.PullRequestSpec) (string, error)
}

type Timeouts struct {
	Write time.Duration
	Push  time.Duration
	API   time.Duration
}

// Outcome of one procedure run. Diffs is set on dry runs, PullRequestURL on live runs.
type Outcome struct {
	Branch         string
	Diffs          []gitrepo.FileDiff
	PullRequestURL string
}

// Procedure is the deferred fix step for one repository. Run is safe to call
// more than once; later calls return the first result.
type Procedure struct {
	Repo         string
	Owner        string
	Name         string
	BaseBranch   string
	Handle       gitrepo.Handle
	Report       *lint.Report
	Engine       lint.Engine
	PullRequests PullRequests
	Timeouts     Timeouts
	Now          func() time.Time

	once    sync.Once
	outcome *Outcome
	err     error
}

// Run executes the state machine. It returns a nil Outcome and nil error when
// no finding carries rewritten content; nothing is touched in that case.
func (p *Procedure) Run(ctx context.Context, dryRun bool) (*Outcome, error) {
	p.once.Do(func() {
		p.outcome, p.err = p.run(ctx, dryRun)
	})
	return p.outcome, p.err
}

func (p *Procedure) run(ctx context.Context, dryRun bool) (*Outcome, error) {
	if !p.Report.HasFixes() {
		return nil, nil
	}

	if err := withTimeout(ctx, p.Timeouts.Write, func(ctx context.Context) error {
		return p.Engine.ApplyFixes(ctx, p.Handle.Path(), p.Report)
	}); err != nil {
		return nil, failure.New(failure.KindFixWrite, p.Repo, "write fixes", err)
	}

	base, err := p.Handle.Head()
	if err != nil {
		return nil, failure.New(failure.KindBranch, p.Repo, "resolve HEAD", err)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	branch := fmt.Sprintf("%s-%d", BranchPrefix, now().UnixMilli())
	if err := p.Handle.CreateBranch(branch); err != nil {
		return nil, failure.New(failure.KindBranch, p.Repo, "create branch", err)
	}
	if err := p.Handle.Checkout(branch); err != nil {
		return nil, failure.New(failure.KindBranch, p.Repo, "checkout branch", err)
	}
	head, err := p.Handle.Commit(CommitMessage, true)
	if err != nil {
		return nil, failure.New(failure.KindCommit, p.Repo, "commit fixes", err)
	}

	out := &Outcome{Branch: branch}
	if dryRun {
		diffs, err := p.Handle.Diff(base, head)
		if err != nil {
			return nil, failure.New(failure.KindDiff, p.Repo, "diff fixes", err)
		}
		out.Diffs = diffs
		return out, nil
	}

	if err := withTimeout(ctx, p.Timeouts.Push, func(ctx context.Context) error {
		return p.Handle.Push(ctx, branch)
	}); err != nil {
		return nil, failure.New(failure.KindPush, p.Repo, "push "+branch, err)
	}

	if p.PullRequests == nil {
		return nil, failure.New(failure.KindPullRequest, p.Repo, "open pull request", fmt.Errorf("no pull request client"))
	}
	err = withTimeout(ctx, p.Timeouts.API, func(ctx context.Context) error {
		url, err := p.PullRequests.OpenPullRequest(ctx, github.PullRequestSpec{
			Owner: p.Owner,
			Name:  p.Name,
			Head:  branch,
			Base:  p.BaseBranch,
			Title: PullTitle,
			Body:  PullBody,
		})
		out.PullRequestURL = url
		return err
	})
	if err != nil {
		return nil, failure.New(failure.KindPullRequest, p.Repo, "open pull request", err)
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}
