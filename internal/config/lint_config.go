package config

import "fmt"

// LintConfiguration is an engine configuration document: rules, an optional
// base ruleset ("extends"), plugins, ignore patterns and any other keys the
// engine understands. Keys are case-sensitive and passed through untouched.
type LintConfiguration map[string]any

const (
	keyPlugins        = "plugins"
	keyIgnorePattern  = "ignorePattern"
	keyIgnorePatterns = "ignorePatterns"
)

// unioned keys concatenate both sides (order preserved, duplicates dropped)
// instead of letting the overlay replace the base list.
var unionedKeys = map[string]bool{
	keyIgnorePattern:  true,
	keyIgnorePatterns: true,
	keyPlugins:        true,
}

// Merge combines base and overlay. Nested mappings merge recursively, the
// overlay wins on conflicting scalar or list values, and ignore-pattern and
// plugin lists are unioned. Neither input is modified.
func Merge(base, overlay LintConfiguration) LintConfiguration {
	out := mergeMaps(map[string]any(base), map[string]any(overlay))
	return LintConfiguration(out)
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = deepCopy(v)
	}
	for k, ov := range overlay {
		bv, exists := out[k]
		if !exists {
			out[k] = deepCopy(ov)
			continue
		}
		bm, bIsMap := asMap(bv)
		om, oIsMap := asMap(ov)
		if bIsMap && oIsMap {
			out[k] = mergeMaps(bm, om)
			continue
		}
		if unionedKeys[k] {
			if bl, ok := bv.([]any); ok {
				if ol, ok := ov.([]any); ok {
					out[k] = union(bl, ol)
					continue
				}
			}
		}
		out[k] = deepCopy(ov)
	}
	return out
}

func union(a, b []any) []any {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]any, 0, len(a)+len(b))
	for _, v := range append(append([]any{}, a...), b...) {
		key := fmt.Sprintf("%T:%v", v, v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, deepCopy(v))
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case LintConfiguration:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case LintConfiguration:
		return deepCopy(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

// plain returns a copy whose nested mappings are all map[string]any.
func (c LintConfiguration) plain() LintConfiguration {
	if c == nil {
		return nil
	}
	return LintConfiguration(deepCopy(map[string]any(c)).(map[string]any))
}

// Plugins returns the plugin identifiers listed in the configuration.
func (c LintConfiguration) Plugins() []string {
	return stringList(c[keyPlugins])
}

// IgnorePatterns returns the effective ignore-pattern list, combining both
// accepted spellings of the key.
func (c LintConfiguration) IgnorePatterns() []string {
	a := stringList(c[keyIgnorePattern])
	b := stringList(c[keyIgnorePatterns])
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, p := range append(a, b...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// EngineDocument returns the configuration without the keys lintfleet passes
// to the engine separately (ignore patterns are handed over as flags).
func (c LintConfiguration) EngineDocument() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		if k == keyIgnorePattern {
			continue
		}
		out[k] = deepCopy(v)
	}
	return out
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
