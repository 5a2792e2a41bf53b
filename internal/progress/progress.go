// Package progress renders one progress bar per repository. It only observes
// pipeline phases and never influences control flow.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"

	"lintfleet/internal/logging"
)

// Steps is the number of ticks a repository goes through: clone, config, lint, done.
const Steps = 4

// Observer receives phase ticks from a pipeline.
type Observer interface {
	Tick(status, phase string)
}

type Reporter struct {
	mu       sync.Mutex
	w        io.Writer
	live     bool
	drawn    bool
	bar      progress.Model
	order    []string
	trackers map[string]*Tracker
}

type Option func(*Reporter)

// WithLive forces live redraw on or off. By default it is on only when the
// writer is a terminal.
func WithLive(live bool) Option {
	return func(r *Reporter) { r.live = live }
}

func New(w io.Writer, repos []string, opts ...Option) *Reporter {
	r := &Reporter{
		w:        w,
		live:     isTerminal(w),
		bar:      progress.New(progress.WithWidth(20), progress.WithoutPercentage()),
		trackers: make(map[string]*Tracker, len(repos)),
	}
	for _, apply := range opts {
		apply(r)
	}
	for _, name := range repos {
		if _, ok := r.trackers[name]; ok {
			continue
		}
		r.order = append(r.order, name)
		r.trackers[name] = &Tracker{reporter: r, name: name, tag: logging.ColorFor(name).Sprintf("[%s]", name)}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Tracker returns the tracker for a repository. Unknown repositories get a
// tracker that drops every tick.
func (r *Reporter) Tracker(name string) Observer {
	if r == nil {
		return Discard
	}
	if t, ok := r.trackers[name]; ok {
		return t
	}
	return Discard
}

func (r *Reporter) tick(t *Tracker, status, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.done < Steps {
		t.done++
	}
	t.status = status
	t.phase = phase
	if !r.live {
		fmt.Fprintln(r.w, r.line(t))
		return
	}
	r.redraw()
}

func (r *Reporter) redraw() {
	if r.drawn {
		fmt.Fprintf(r.w, "\x1b[%dA", len(r.order))
	}
	var b strings.Builder
	for _, name := range r.order {
		b.WriteString("\x1b[2K")
		b.WriteString(r.line(r.trackers[name]))
		b.WriteString("\n")
	}
	_, _ = io.WriteString(r.w, b.String())
	r.drawn = true
}

func (r *Reporter) line(t *Tracker) string {
	pct := float64(t.done) / float64(Steps)
	s := fmt.Sprintf("%s %s", t.tag, r.bar.ViewAs(pct))
	if t.status != "" {
		s += " " + t.status
	}
	if t.phase != "" {
		s += " " + t.phase
	}
	return s
}

type Tracker struct {
	reporter *Reporter
	name     string
	tag      string
	done     int
	status   string
	phase    string
}

func (t *Tracker) Tick(status, phase string) {
	t.reporter.tick(t, status, phase)
}

// Done reports how many ticks the tracker has received.
func (t *Tracker) Done() int {
	t.reporter.mu.Lock()
	defer t.reporter.mu.Unlock()
	return t.done
}

type discard struct{}

func (discard) Tick(string, string) {}

// Discard is an Observer that ignores ticks.
var Discard Observer = discard{}
