package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"lintfleet/internal/execshell"
)

type AuthTokenSource string

const (
	AuthTokenSourceFlag   AuthTokenSource = "flag"
	AuthTokenSourceEnv    AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGitHub AuthTokenSource = "gh auth token"
)

// TokenEnvVar is the variable consulted when no token is passed explicitly.
const TokenEnvVar = "GITHUB_TOKEN"

const ghLookupTimeout = 5 * time.Second

// TokenResolver finds the token used to push fixes and open pull requests.
// The zero value consults the real environment and gh binary.
type TokenResolver struct {
	Runner   execshell.Runner
	Getenv   func(string) string
	LookPath func(string) (string, error)
}

// ResolveAuthToken resolves a token with the default TokenResolver.
func ResolveAuthToken(ctx context.Context, provided, host string) (string, AuthTokenSource, error) {
	return TokenResolver{}.Resolve(ctx, provided, host)
}

// Resolve returns the first non-empty token among provided, GITHUB_TOKEN and
// the GitHub CLI login for host. An empty token with a nil error means none
// was found. The token itself never appears in errors.
func (r TokenResolver) Resolve(ctx context.Context, provided, host string) (string, AuthTokenSource, error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceFlag, nil
	}
	if tok := strings.TrimSpace(r.getenv(TokenEnvVar)); tok != "" {
		return tok, AuthTokenSourceEnv, nil
	}

	tok, err := r.fromGitHubCLI(ctx, normalizeHost(host))
	if err != nil || tok == "" {
		return "", "", err
	}
	return tok, AuthTokenSourceGitHub, nil
}

func (r TokenResolver) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r TokenResolver) fromGitHubCLI(ctx context.Context, host string) (string, error) {
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath("gh")
	if err != nil {
		return "", nil
	}
	runner := r.Runner
	if runner == nil {
		runner = execshell.NewOSRunner()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ghLookupTimeout)
		defer cancel()
	}
	res, err := runner.Run(ctx, execshell.Command{
		Name: bin,
		Args: []string{"auth", "token", "-h", host},
		Env:  map[string]string{"GH_PAGER": "cat"},
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	// gh present but logged out; its output is not surfaced.
	if err != nil || res.ExitCode != 0 {
		return "", nil
	}

	tok := strings.TrimSpace(res.Stdout)
	if strings.ContainsAny(tok, " \t\r\n") {
		return "", errors.New("gh auth token: unexpected multi-part output")
	}
	return tok, nil
}

