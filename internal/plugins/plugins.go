// Package plugins installs lint-engine plugins once per run and exposes them to
// every repository pipeline through a read-only Registry.
package plugins

import (
	"sort"
	"strings"
)

// Prefix is the package-name prefix every lint-engine plugin carries.
const Prefix = "eslint-plugin-"

// Canonicalize returns the full package name for a plugin identifier.
//
//	react                 -> eslint-plugin-react
//	eslint-plugin-react   -> eslint-plugin-react
//	@scope                -> @scope/eslint-plugin
//	@scope/foo            -> @scope/eslint-plugin-foo
//	@scope/eslint-plugin-foo unchanged
func Canonicalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "@") {
		scope, rest, ok := strings.Cut(id, "/")
		if !ok || rest == "" {
			return scope + "/" + strings.TrimSuffix(Prefix, "-")
		}
		if strings.HasPrefix(rest, Prefix) || rest == strings.TrimSuffix(Prefix, "-") {
			return id
		}
		return scope + "/" + Prefix + rest
	}
	if strings.HasPrefix(id, Prefix) {
		return id
	}
	return Prefix + id
}

// InstalledPlugin is a plugin package available on disk.
type InstalledPlugin struct {
	// Name is the canonical package name.
	Name    string
	Version string
	// Dir is the package directory (<prefix>/node_modules/<Name>).
	Dir     string
}

// Registry is the set of plugins installed for a run. It is immutable after
// construction and safe to share across goroutines.
type Registry struct {
	root    string
	plugins map[string]InstalledPlugin
}

// NewRegistry builds a registry over plugins installed beneath root.
func NewRegistry(root string, installed []InstalledPlugin) *Registry {
	r := &Registry{root: root, plugins: make(map[string]InstalledPlugin, len(installed))}
	for _, p := range installed {
		r.plugins[p.Name] = p
	}
	return r
}

// EmptyRegistry is returned when a run requests no plugins.
func EmptyRegistry() *Registry {
	return NewRegistry("", nil)
}

// Lookup resolves a plugin by any accepted identifier form.
func (r *Registry) Lookup(id string) (InstalledPlugin, bool) {
	if r == nil {
		return InstalledPlugin{}, false
	}
	p, ok := r.plugins[Canonicalize(id)]
	return p, ok
}

// Names returns canonical plugin names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.plugins))
	for n := range r.plugins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.plugins)
}

// ResolveDir is the directory the lint engine should resolve plugin packages
// relative to. Empty when no plugins are installed.
func (r *Registry) ResolveDir() string {
	if r == nil {
		return ""
	}
	return r.root
}
