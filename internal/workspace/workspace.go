package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"lintfleet/internal/failure"
)

// Prefix identifies directories created by any lintfleet run under the temp root.
const Prefix = "lintfleet_"

// Provider hands out isolated directories and remembers them until released.
//
// A Provider is safe for concurrent use. Callers should defer ReleaseAll on every
// exit path of the process (normal return, error, and signal-driven cancellation).
type Provider struct {
	root string

	mu    sync.Mutex
	paths map[string]struct{}
}

// NewProvider returns a provider rooted at root, or at os.TempDir() when root is empty.
func NewProvider(root string) *Provider {
	if root == "" {
		root = os.TempDir()
	}
	return &Provider{root: root, paths: make(map[string]struct{})}
}

func (p *Provider) Root() string {
	return p.root
}

// Acquire creates a new uniquely named directory readable only by the current user.
func (p *Provider) Acquire() (string, error) {
	dir, err := os.MkdirTemp(p.root, Prefix+"*")
	if err != nil {
		return "", failure.New(failure.KindWorkspace, "", "create temp directory", err)
	}
	// MkdirTemp already uses 0700; enforce it regardless of the platform default.
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return "", failure.New(failure.KindWorkspace, "", "restrict temp directory", err)
	}

	p.mu.Lock()
	p.paths[dir] = struct{}{}
	p.mu.Unlock()
	return dir, nil
}

// Release removes one directory previously returned by Acquire.
func (p *Provider) Release(dir string) error {
	p.mu.Lock()
	_, owned := p.paths[dir]
	delete(p.paths, dir)
	p.mu.Unlock()

	if !owned {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return failure.New(failure.KindWorkspace, "", "remove "+dir, err)
	}
	return nil
}

// ReleaseAll removes every directory still held by the provider. It is best effort:
// all removals are attempted and the failures are joined.
func (p *Provider) ReleaseAll() error {
	p.mu.Lock()
	dirs := make([]string, 0, len(p.paths))
	for d := range p.paths {
		dirs = append(dirs, d)
	}
	p.paths = make(map[string]struct{})
	p.mu.Unlock()

	var errs []error
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", d, err))
		}
	}
	if len(errs) > 0 {
		return failure.New(failure.KindWorkspace, "", "release workspaces", errors.Join(errs...))
	}
	return nil
}

// Held returns the directories currently owned by the provider, sorted.
func (p *Provider) Held() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.paths))
	for d := range p.paths {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Leftovers lists every lintfleet directory under root, including ones left by
// prior interrupted runs.
func Leftovers(root string) ([]string, error) {
	if root == "" {
		root = os.TempDir()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, failure.New(failure.KindWorkspace, "", "list "+root, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		out = append(out, filepath.Join(root, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Clean lists leftover directories and, unless dryRun, deletes them.
// The returned list is what was (or would be) removed.
func Clean(root string, dryRun bool) ([]string, error) {
	dirs, err := Leftovers(root)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return dirs, nil
	}
	var errs []error
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", d, err))
		}
	}
	if len(errs) > 0 {
		return dirs, failure.New(failure.KindWorkspace, "", "clean", errors.Join(errs...))
	}
	return dirs, nil
}
