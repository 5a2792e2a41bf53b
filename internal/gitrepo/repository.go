// Package gitrepo wraps a cloned repository with the handful of operations the
// fix workflow needs: branch, checkout, commit, push and diff.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const remoteName = "origin"

// Handle is a repository owned by exactly one pipeline.
type Handle interface {
	// Path is the working-tree root on disk.
	Path() string
	// Head returns the commit hash HEAD points to.
	Head() (string, error)
	// CurrentBranch returns the short name of the checked-out branch.
	CurrentBranch() (string, error)
	CreateBranch(name string) error
	Checkout(name string) error
	// Commit records the working tree. With all set, every modified tracked file is staged first.
	Commit(message string, all bool) (string, error)
	Push(ctx context.Context, branch string) error
	// Diff returns one unified diff per changed file between two commits.
	Diff(from, to string) ([]FileDiff, error)
}

// Signature identifies the author of fix commits.
type Signature struct {
	Name  string
	Email string
}

var DefaultSignature = Signature{Name: "lintfleet", Email: "lintfleet@users.noreply.github.com"}

type CloneOptions struct {
	URL string
	Dir string
	// Depth limits fetched history; 1 is a shallow clone. 0 fetches everything.
	Depth int
	// Token enables HTTPS basic authentication for clone and push.
	Token     string
	Signature Signature
}

// Repository is the go-git backed Handle.
type Repository struct {
	dir  string
	repo *git.Repository
	auth transport.AuthMethod
	sig  Signature
	now  func() time.Time
}

// RemoteURL builds the clone URL for a repository. HTTPS is used when a token
// is available, SSH otherwise.
func RemoteURL(host, owner, name string, https bool) string {
	if https {
		return fmt.Sprintf("https://%s/%s/%s.git", host, owner, name)
	}
	return fmt.Sprintf("git@%s:%s/%s", host, owner, name)
}

func authFor(url, token string) transport.AuthMethod {
	if token == "" || !strings.HasPrefix(url, "https://") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

func Clone(ctx context.Context, opts CloneOptions) (*Repository, error) {
	if opts.URL == "" || opts.Dir == "" {
		return nil, errors.New("gitrepo: clone URL and directory are required")
	}
	auth := authFor(opts.URL, opts.Token)
	r, err := git.PlainCloneContext(ctx, opts.Dir, false, &git.CloneOptions{
		URL:        opts.URL,
		Depth:      opts.Depth,
		RemoteName: remoteName,
		Auth:       auth,
		Tags:       git.NoTags,
	})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", opts.URL, err)
	}
	return newRepository(opts.Dir, r, auth, opts.Signature), nil
}

// Open wraps an existing working tree.
func Open(dir, token string, sig Signature) (*Repository, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	var url string
	if remote, err := r.Remote(remoteName); err == nil && len(remote.Config().URLs) > 0 {
		url = remote.Config().URLs[0]
	}
	return newRepository(dir, r, authFor(url, token), sig), nil
}

func newRepository(dir string, r *git.Repository, auth transport.AuthMethod, sig Signature) *Repository {
	if sig.Name == "" || sig.Email == "" {
		sig = DefaultSignature
	}
	return &Repository{dir: dir, repo: r, auth: auth, sig: sig, now: time.Now}
}

func (r *Repository) Path() string {
	return r.dir
}

func (r *Repository) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (r *Repository) CurrentBranch() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", ref.Hash())
	}
	return ref.Name().Short(), nil
}

func (r *Repository) CreateBranch(name string) error {
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(refName, false); err == nil {
		return fmt.Errorf("branch %q already exists", name)
	}
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// Checkout switches to an existing branch. When the branch points at the
// current commit only HEAD moves, so uncommitted changes stay in place.
func (r *Repository) Checkout(name string) error {
	refName := plumbing.NewBranchReferenceName(name)
	target, err := r.repo.Reference(refName, true)
	if err != nil {
		return fmt.Errorf("checkout %q: %w", name, err)
	}
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if head.Hash() == target.Hash() {
		if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, refName)); err != nil {
			return fmt.Errorf("checkout %q: %w", name, err)
		}
		return nil
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name), Keep: true}); err != nil {
		return fmt.Errorf("checkout %q: %w", name, err)
	}
	return nil
}

func (r *Repository) Commit(message string, all bool) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		All:    all,
		Author: &object.Signature{Name: r.sig.Name, Email: r.sig.Email, When: r.now()},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

func (r *Repository) Push(ctx context.Context, branch string) error {
	spec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}
