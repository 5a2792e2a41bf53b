package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"

	"lintfleet/internal/workspace"
)

func leftover(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, workspace.Prefix+name)
	if err := os.MkdirAll(filepath.Join(dir, "repo"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestClean_DryRunListsWithoutRemoving(t *testing.T) {
	color.NoColor = true
	root := t.TempDir()
	a := leftover(t, root, "a")
	b := leftover(t, root, "b")
	if err := os.Mkdir(filepath.Join(root, "unrelated"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var out bytes.Buffer
	if err := clean(&out, root, true); err != nil {
		t.Fatalf("clean: %v", err)
	}

	s := out.String()
	if !strings.Contains(s, "The following directories would be removed:") {
		t.Fatalf("expected dry-run header; output=%s", s)
	}
	if !strings.Contains(s, a) || !strings.Contains(s, b) {
		t.Fatalf("expected both leftovers listed; output=%s", s)
	}
	if strings.Contains(s, "unrelated") {
		t.Fatalf("expected only prefixed directories; output=%s", s)
	}
	for _, d := range []string{a, b} {
		if _, err := os.Stat(d); err != nil {
			t.Fatalf("dry run removed %s: %v", d, err)
		}
	}
}

func TestClean_RemovesLeftovers(t *testing.T) {
	color.NoColor = true
	root := t.TempDir()
	a := leftover(t, root, "a")

	var out bytes.Buffer
	if err := clean(&out, root, false); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out.String(), "The following directories have been removed:") {
		t.Fatalf("expected removal header; output=%s", out.String())
	}
	if _, err := os.Stat(a); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err=%v", a, err)
	}
	if _, err := os.Stat(filepath.Join(root)); err != nil {
		t.Fatalf("root must survive: %v", err)
	}
}

func TestClean_NothingToClean(t *testing.T) {
	var out bytes.Buffer
	if err := clean(&out, t.TempDir(), false); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if strings.TrimSpace(out.String()) != "Nothing to clean." {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(out.String(), "lintfleet dev\n") {
		t.Fatalf("unexpected version output: %q", out.String())
	}
	if !strings.Contains(out.String(), "go:     "+runtime.Version()) {
		t.Fatalf("expected the go runtime version, got %q", out.String())
	}
}
