package logging

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var palette = []color.Attribute{
	color.FgCyan,
	color.FgMagenta,
	color.FgBlue,
	color.FgYellow,
	color.FgGreen,
	color.FgRed,
}

// ColorFor picks a stable palette color for a repository full name.
func ColorFor(fullName string) *color.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fullName))
	return color.New(palette[h.Sum32()%uint32(len(palette))])
}

// Console serializes operator-facing lines from concurrent pipelines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Writer returns a writer that shares the console lock, so whole writes never
// interleave with tagged lines.
func (c *Console) Writer() io.Writer {
	return lockedWriter{c}
}

// IsTerminal reports whether the console writes to a terminal.
func (c *Console) IsTerminal() bool {
	f, ok := c.w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type lockedWriter struct {
	c *Console
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return l.c.w.Write(p)
}

// Println writes a plain untagged line.
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.w, a...)
}

// Repo returns a printer whose lines carry the repository tag.
func (c *Console) Repo(fullName string) *RepoPrinter {
	return &RepoPrinter{console: c, tag: ColorFor(fullName).Sprintf("[%s]", fullName)}
}

type RepoPrinter struct {
	console *Console
	tag     string
}

// Printf tags every line of the formatted message, so multi-line findings
// stay attributable when interleaved with other repositories.
func (p *RepoPrinter) Printf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	var b strings.Builder
	for _, line := range strings.Split(msg, "\n") {
		b.WriteString(p.tag)
		if line != "" {
			b.WriteString("  ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	p.console.mu.Lock()
	defer p.console.mu.Unlock()
	_, _ = io.WriteString(p.console.w, b.String())
}

func (p *RepoPrinter) Error(err error) {
	p.Printf("%s %v", color.RedString("error:"), err)
}
