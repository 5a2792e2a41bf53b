package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v81/github"
)

type PullRequestSpec struct {
	Owner string
	Name  string
	// Head is the branch carrying the changes.
	Head string
	// Base is the integration branch. Empty means the repository default.
	Base  string
	Title string
	Body  string
}

// OpenPullRequest opens a pull request and returns its web URL.
func (c *Client) OpenPullRequest(ctx context.Context, spec PullRequestSpec) (string, error) {
	if spec.Owner == "" || spec.Name == "" || spec.Head == "" {
		return "", errors.New("pull request: owner, name and head are required")
	}
	base := spec.Base
	if base == "" {
		var err error
		base, err = c.DefaultBranch(ctx, spec.Owner, spec.Name)
		if err != nil {
			return "", err
		}
	}
	pr, _, err := c.Client.PullRequests.Create(ctx, spec.Owner, spec.Name, &github.NewPullRequest{
		Title: github.Ptr(spec.Title),
		Head:  github.Ptr(spec.Head),
		Base:  github.Ptr(base),
		Body:  github.Ptr(spec.Body),
	})
	if err != nil {
		return "", fmt.Errorf("create pull request on %s/%s: %w", spec.Owner, spec.Name, err)
	}
	if pr.GetHTMLURL() == "" {
		return "", fmt.Errorf("create pull request on %s/%s: response has no url", spec.Owner, spec.Name)
	}
	return pr.GetHTMLURL(), nil
}

func (c *Client) DefaultBranch(ctx context.Context, owner, name string) (string, error) {
	repo, _, err := c.Client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}
	if repo.GetDefaultBranch() == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", owner, name)
	}
	return repo.GetDefaultBranch(), nil
}
