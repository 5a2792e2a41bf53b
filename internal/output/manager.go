package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Manager fans run events out to every sink. Events passed to Emit are stamped
// with the run id and the emission time first.
type Manager struct {
	sinks []Sink
	runID string
	now   func() time.Time
}

func NewManager() *Manager {
	return &Manager{runID: uuid.NewString(), now: time.Now}
}

func (m *Manager) RunID() string {
	if m == nil {
		return ""
	}
	return m.runID
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	if s == nil {
		return errors.New("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Emit stamps e and writes it to all sinks. A manager without sinks drops it.
func (m *Manager) Emit(e Event) error {
	if m == nil || len(m.sinks) == 0 {
		return nil
	}
	e.RunID = m.runID
	e.Time = m.now().UTC().Format(time.RFC3339)
	return m.Write(e)
}

// Write hands v to every sink, even after one fails.
func (m *Manager) Write(v any) error {
	return m.each("write", func(s Sink) error { return s.Write(v) })
}

// Close closes every sink, even after one fails.
func (m *Manager) Close() error {
	return m.each("close", Sink.Close)
}

func (m *Manager) each(op string, fn func(Sink) error) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("%s %T: %w", op, s, err))
		}
	}
	return errors.Join(errs...)
}
