package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

const publicHost = "github.com"

// Client is a go-github client bound to one host.
type Client struct {
	Client *github.Client
	Host   string
}

type clientConfig struct {
	host string
	// trace receives one line per API request and response; nil disables it.
	trace io.Writer
}

type Option func(*clientConfig)

// WithVerbose traces every API call to w, or to stderr when w is nil.
func WithVerbose(enabled bool, w io.Writer) Option {
	return func(c *clientConfig) {
		if !enabled {
			c.trace = nil
			return
		}
		if w == nil {
			w = os.Stderr
		}
		c.trace = w
	}
}

// WithHost points the client at a GitHub Enterprise host. An empty value or
// github.com keeps the public API.
func WithHost(host string) Option {
	return func(c *clientConfig) {
		c.host = host
	}
}

type tracingTransport struct {
	next http.RoundTripper
	out  io.Writer
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fmt.Fprintf(t.out, "[verbose] github api: %s %s\n", req.Method, req.URL)
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	took := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		fmt.Fprintf(t.out, "[verbose] github api: %s %s failed after %s: %v\n", req.Method, req.URL.Path, took, err)
		return nil, err
	}
	fmt.Fprintf(t.out, "[verbose] github api: %s (%s)\n", resp.Status, took)
	return resp, nil
}

func httpClient(token string, trace io.Writer) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	if trace != nil {
		rt = &tracingTransport{next: rt, out: trace}
	}
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   rt,
		}
	}
	return &http.Client{Transport: rt}
}

// NewClient builds a client for the configured host. An empty token yields an
// anonymous client, which can read public repositories but not open pull requests.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}
	cfg := clientConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	hc := httpClient(token, cfg.trace)
	api := github.NewClient(hc)
	host := normalizeHost(cfg.host)
	if host != publicHost {
		var err error
		api, err = api.WithEnterpriseURLs("https://"+host+"/api/v3/", "https://"+host+"/api/uploads/")
		if err != nil {
			return nil, fmt.Errorf("github client: enterprise urls for %s: %w", host, err)
		}
	}
	return &Client{Client: api, Host: host}, nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(strings.TrimPrefix(host, "https://"), "/")
	if host == "" || host == "api.github.com" {
		return publicHost
	}
	return host
}

// Clients hands out one API client per host, created on first use.
type Clients struct {
	ctx   context.Context
	token string
	opts  []Option

	mu     sync.Mutex
	byHost map[string]*Client
}

func NewClients(ctx context.Context, token string, opts ...Option) *Clients {
	return &Clients{ctx: ctx, token: token, opts: opts, byHost: make(map[string]*Client)}
}

func (c *Clients) For(host string) (*Client, error) {
	key := normalizeHost(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.byHost[key]; ok {
		return cl, nil
	}
	cl, err := NewClient(c.ctx, c.token, append(append([]Option(nil), c.opts...), WithHost(key))...)
	if err != nil {
		return nil, err
	}
	c.byHost[key] = cl
	return cl, nil
}
