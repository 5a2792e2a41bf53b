package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintfleet/internal/execshell"
	"lintfleet/internal/failure"
)

// fakeNPM simulates `npm install --prefix <root> <names...>`. Like npm, it
// prunes node_modules entries the current invocation did not ask for.
type fakeNPM struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]bool
	skip  map[string]bool
}

func (f *fakeNPM) Run(_ context.Context, c execshell.Command) (execshell.Result, error) {
	var root string
	var names []string
	for i, a := range c.Args {
		if a == "--prefix" {
			root = c.Args[i+1]
			names = c.Args[i+2:]
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, names)
	f.mu.Unlock()

	for _, name := range names {
		if f.fail[name] {
			return execshell.Result{ExitCode: 1, Stderr: "404 Not Found: " + name}, nil
		}
	}

	modules := filepath.Join(root, "node_modules")
	wanted := map[string]bool{}
	for _, name := range names {
		wanted[name] = true
	}
	entries, _ := os.ReadDir(modules)
	for _, e := range entries {
		if !wanted[e.Name()] {
			if err := os.RemoveAll(filepath.Join(modules, e.Name())); err != nil {
				return execshell.Result{}, err
			}
		}
	}

	for _, name := range names {
		if f.skip[name] {
			continue
		}
		dir := filepath.Join(modules, filepath.FromSlash(name))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return execshell.Result{}, err
		}
		manifest := `{"name":"` + name + `","version":"1.0.0"}`
		if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644); err != nil {
			return execshell.Result{}, err
		}
	}
	return execshell.Result{Stdout: fmt.Sprintf("added %d packages", len(names))}, nil
}

type fixedWorkspace struct {
	dir   string
	err   error
	count int32
}

func (w *fixedWorkspace) Acquire() (string, error) {
	atomic.AddInt32(&w.count, 1)
	return w.dir, w.err
}

func TestCanonicalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"react", "eslint-plugin-react"},
		{"eslint-plugin-react", "eslint-plugin-react"},
		{"  import ", "eslint-plugin-import"},
		{"@buildo", "@buildo/eslint-plugin"},
		{"@buildo/foo", "@buildo/eslint-plugin-foo"},
		{"@buildo/eslint-plugin-foo", "@buildo/eslint-plugin-foo"},
		{"@buildo/eslint-plugin", "@buildo/eslint-plugin"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestInstallAll_EmptyDoesNothing(t *testing.T) {
	npm := &fakeNPM{}
	ws := &fixedWorkspace{dir: t.TempDir()}
	reg, err := NewInstaller(npm, ws, WithOutput(&bytes.Buffer{})).InstallAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, npm.calls)
	assert.Equal(t, int32(0), ws.count)
}

func TestInstallAll_DedupesAndPrintsOneLinePerPlugin(t *testing.T) {
	npm := &fakeNPM{}
	root := t.TempDir()
	var out bytes.Buffer

	reg, err := NewInstaller(npm, &fixedWorkspace{dir: root}, WithOutput(&out)).
		InstallAll(context.Background(), []string{"react", "eslint-plugin-react", "import"})
	require.NoError(t, err)

	require.Len(t, npm.calls, 1)
	assert.Equal(t, []string{"eslint-plugin-react", "eslint-plugin-import"}, npm.calls[0])
	assert.Equal(t, []string{"eslint-plugin-import", "eslint-plugin-react"}, reg.Names())
	assert.Equal(t, root, reg.ResolveDir())

	p, ok := reg.Lookup("react")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "node_modules", "eslint-plugin-react"), p.Dir)
	assert.Equal(t, "1.0.0", p.Version)

	assert.Equal(t, 2, strings.Count(out.String(), "🔧"))
	assert.Contains(t, out.String(), "eslint-plugin-import 1.0.0")
	assert.NotContains(t, out.String(), "added 2 packages")
}

func TestInstallAll_EveryPluginSurvivesPruning(t *testing.T) {
	npm := &fakeNPM{}
	root := t.TempDir()
	ids := []string{"react", "import", "@buildo", "jsx-a11y"}

	reg, err := NewInstaller(npm, &fixedWorkspace{dir: root}, WithOutput(&bytes.Buffer{})).
		InstallAll(context.Background(), ids)
	require.NoError(t, err)
	require.Equal(t, len(ids), reg.Len())

	for _, id := range ids {
		p, ok := reg.Lookup(id)
		require.True(t, ok, id)
		assert.DirExists(t, p.Dir)
		assert.FileExists(t, filepath.Join(p.Dir, "package.json"))
	}
}

func TestInstallAll_SecondRunDoesNotKeepStalePackages(t *testing.T) {
	npm := &fakeNPM{}
	root := t.TempDir()
	inst := NewInstaller(npm, &fixedWorkspace{dir: root}, WithOutput(&bytes.Buffer{}))

	_, err := inst.InstallAll(context.Background(), []string{"react"})
	require.NoError(t, err)
	reg, err := inst.InstallAll(context.Background(), []string{"import"})
	require.NoError(t, err)

	assert.Equal(t, []string{"eslint-plugin-import"}, reg.Names())
	assert.NoDirExists(t, filepath.Join(root, "node_modules", "eslint-plugin-react"))
}

func TestInstallAll_AllOrNothing(t *testing.T) {
	npm := &fakeNPM{fail: map[string]bool{"eslint-plugin-broken": true}}

	reg, err := NewInstaller(npm, &fixedWorkspace{dir: t.TempDir()}, WithOutput(&bytes.Buffer{})).
		InstallAll(context.Background(), []string{"react", "broken", "import"})

	require.Error(t, err)
	assert.Nil(t, reg)
	assert.True(t, failure.IsKind(err, failure.KindPluginInstall))
	assert.Contains(t, err.Error(), "404 Not Found")
}

func TestInstallAll_MissingPackageAfterInstall(t *testing.T) {
	npm := &fakeNPM{skip: map[string]bool{"eslint-plugin-import": true}}

	reg, err := NewInstaller(npm, &fixedWorkspace{dir: t.TempDir()}, WithOutput(&bytes.Buffer{})).
		InstallAll(context.Background(), []string{"react", "import"})

	require.Error(t, err)
	assert.Nil(t, reg)
	assert.True(t, failure.IsKind(err, failure.KindPluginInstall))
	assert.Contains(t, err.Error(), "install eslint-plugin-import")
	assert.Contains(t, err.Error(), "package not found after install")
}

func TestInstallAll_ManifestNamesAnotherPackage(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "node_modules", "eslint-plugin-react")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"left-pad"}`), 0o644))

	npm := &fakeNPM{skip: map[string]bool{"eslint-plugin-react": true}}
	_, err := NewInstaller(npm, &fixedWorkspace{dir: root}, WithOutput(&bytes.Buffer{})).
		InstallAll(context.Background(), []string{"react"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"left-pad"`)
}

func TestInstallAll_WorkspaceFailure(t *testing.T) {
	ws := &fixedWorkspace{err: failure.New(failure.KindWorkspace, "", "create", errors.New("disk full"))}

	_, err := NewInstaller(&fakeNPM{}, ws, WithOutput(&bytes.Buffer{})).
		InstallAll(context.Background(), []string{"react"})

	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.KindPluginInstall))
	assert.Contains(t, err.Error(), "disk full")
}
