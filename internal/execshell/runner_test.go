package execshell

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell required")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestOSRunner_UsesExplicitDirAndEnv(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	res, err := NewOSRunner().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `pwd; echo "$LINTFLEET_TEST_VALUE"; echo oops 1>&2`},
		Dir:  dir,
		Env:  map[string]string{"LINTFLEET_TEST_VALUE": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, lines, 2)
	resolved, _ := filepath.EvalSymlinks(dir)
	gotDir, _ := filepath.EvalSymlinks(lines[0])
	assert.Equal(t, resolved, gotDir)
	assert.Equal(t, "hello", lines[1])
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestOSRunner_NonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)

	res, err := NewOSRunner().Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
}

func TestOSRunner_MissingBinary(t *testing.T) {
	_, err := NewOSRunner().Run(context.Background(), Command{Name: "lintfleet-definitely-not-installed"})
	assert.Error(t, err)
}

func TestOSRunner_ContextDeadline(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewOSRunner().Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommand_String(t *testing.T) {
	c := Command{Name: "npm", Args: []string{"install", "x"}, Dir: "/tmp/w"}
	assert.Equal(t, "npm install x (in /tmp/w)", c.String())
}
