// Package execshell runs external tools (the package installer and the lint
// engine) with an explicit working directory. Nothing in lintfleet changes the
// process working directory; every command names its own.
package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type Command struct {
	Name string
	Args []string
	// Dir is the working directory for the command. Empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env map[string]string
}

func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	s := strings.Join(parts, " ")
	if c.Dir != "" {
		s += " (in " + c.Dir + ")"
	}
	return s
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands. A non-zero exit code is reported through Result,
// not as an error; errors mean the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSRunner executes commands using os/exec.
type OSRunner struct{}

func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (r *OSRunner) Run(ctx context.Context, c Command) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("execshell: nil context")
	}
	if c.Name == "" {
		return Result{}, errors.New("execshell: empty command name")
	}

	cmd := exec.CommandContext(ctx, c.Name, append([]string{}, c.Args...)...)
	cmd.Dir = c.Dir

	if len(c.Env) > 0 {
		keys := make([]string, 0, len(c.Env))
		for k := range c.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env := append([]string{}, os.Environ()...)
		for _, k := range keys {
			env = append(env, fmt.Sprintf("%s=%s", k, c.Env[k]))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}, fmt.Errorf("%s: %w", c.Name, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitErr.ExitCode()}, nil
		}
		return Result{}, err
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
