package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(context.Background(), "test-token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	u, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	c.Client.BaseURL = u
	return c
}

func TestOpenPullRequest_UsesDefaultBranchWhenBaseEmpty(t *testing.T) {
	var got map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/buildo/alpha", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"alpha","default_branch":"main"}`))
	})
	mux.HandleFunc("/repos/buildo/alpha/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("want POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":7,"html_url":"https://github.com/buildo/alpha/pull/7"}`))
	})
	c := newTestClient(t, mux)

	prURL, err := c.OpenPullRequest(context.Background(), PullRequestSpec{
		Owner: "buildo",
		Name:  "alpha",
		Head:  "lintfleet-fix-1",
		Title: "Automatic lint fixes",
		Body:  "body",
	})
	if err != nil {
		t.Fatalf("OpenPullRequest: %v", err)
	}
	if prURL != "https://github.com/buildo/alpha/pull/7" {
		t.Fatalf("unexpected url %q", prURL)
	}
	if got["base"] != "main" || got["head"] != "lintfleet-fix-1" || got["title"] != "Automatic lint fixes" {
		t.Fatalf("unexpected request body: %v", got)
	}
}

func TestOpenPullRequest_ExplicitBaseSkipsLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/buildo/alpha", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("repository lookup should not happen")
	})
	mux.HandleFunc("/repos/buildo/alpha/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"html_url":"https://github.com/buildo/alpha/pull/8"}`))
	})
	c := newTestClient(t, mux)

	prURL, err := c.OpenPullRequest(context.Background(), PullRequestSpec{Owner: "buildo", Name: "alpha", Head: "x", Base: "develop"})
	if err != nil {
		t.Fatalf("OpenPullRequest: %v", err)
	}
	if !strings.HasSuffix(prURL, "/pull/8") {
		t.Fatalf("unexpected url %q", prURL)
	}
}

func TestOpenPullRequest_APIErrorSurfaces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/buildo/alpha/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation Failed"}`))
	})
	c := newTestClient(t, mux)

	_, err := c.OpenPullRequest(context.Background(), PullRequestSpec{Owner: "buildo", Name: "alpha", Head: "x", Base: "main"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "buildo/alpha") {
		t.Fatalf("error should name the repository: %v", err)
	}
}

func TestOpenPullRequest_RequiresHead(t *testing.T) {
	c, err := NewClient(context.Background(), "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := c.OpenPullRequest(context.Background(), PullRequestSpec{Owner: "a", Name: "b"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewClient_EnterpriseHost(t *testing.T) {
	c, err := NewClient(context.Background(), "", WithHost("git.example.com"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := c.Client.BaseURL.String(); got != "https://git.example.com/api/v3/" {
		t.Fatalf("unexpected base url %q", got)
	}

	pub, err := NewClient(context.Background(), "", WithHost("github.com"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := pub.Client.BaseURL.Host; got != "api.github.com" {
		t.Fatalf("unexpected public host %q", got)
	}
}

func TestClients_CachesPerHost(t *testing.T) {
	cs := NewClients(context.Background(), "")
	a, err := cs.For("github.com")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	b, err := cs.For("")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same client for github.com and the default host")
	}
	e, err := cs.For("git.example.com")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if e == a || e.Host != "git.example.com" {
		t.Fatalf("expected a distinct enterprise client, got host %q", e.Host)
	}
}
