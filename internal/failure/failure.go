// Package failure defines the typed error kinds surfaced by a lintfleet run.
//
// Every error that crosses a package boundary carries a Kind so the engine can
// decide whether it is fatal for the run, for one repository, or for one
// repository's fix procedure only.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindConfig        Kind = "config"
	KindWorkspace     Kind = "workspace"
	KindPluginInstall Kind = "plugin-install"
	KindClone         Kind = "clone"
	KindLintExecution Kind = "lint-execution"
	KindFixWrite      Kind = "fix-write"
	KindBranch        Kind = "branch"
	KindCommit        Kind = "commit"
	KindDiff          Kind = "diff"
	KindPush          Kind = "push"
	KindPullRequest   Kind = "pull-request"
	// KindCanceled marks work the run never started because its context ended.
	KindCanceled      Kind = "canceled"
)

// ErrTimeout marks an operation that exceeded its own bounded timeout.
var ErrTimeout = errors.New("operation timed out")

type Error struct {
	Kind Kind
	// Repo is the owner/name of the repository the error belongs to, empty for run-wide errors.
	Repo string
	// Op is a short description of what was being attempted.
	Op  string
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind. A context deadline hit is additionally marked with
// ErrTimeout so callers can tell hung network operations apart from failures.
func New(kind Kind, repo, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &Error{Kind: kind, Repo: repo, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// NotStarted records that the work for repo was skipped because ctx ended
// before it could be scheduled. A nil cause still yields an error.
func NotStarted(repo string, cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return New(KindCanceled, repo, "not started", cause)
}

// RunFatal reports whether err must abort the whole run rather than a single
// repository: a config or plugin-install error that belongs to no repository.
func RunFatal(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) || fe.Repo != "" {
		return false
	}
	return fe.Kind == KindConfig || fe.Kind == KindPluginInstall
}
