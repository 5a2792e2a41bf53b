package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Sink defines a destination for run events.
type Sink interface {
	Write(v any) error
	Close() error
}

const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

// Summary is the document json sinks write on Close. Repositories and fixes
// appear in the order their events were emitted.
type Summary struct {
	RunID    string  `json:"run_id,omitempty"`
	Repos    []Event `json:"repos"`
	Fixes    []Event `json:"fixes,omitempty"`
	ExitCode int     `json:"exit_code"`
}

func (s *Summary) add(e Event) {
	switch e.Type {
	case EventRunStarted:
		s.RunID = e.RunID
	case EventRunFinished:
		s.ExitCode = e.ExitCode
	case EventRepoFinished, EventRepoFailed:
		s.Repos = append(s.Repos, e)
	case EventFixFinished, EventFixFailed:
		s.Fixes = append(s.Fixes, e)
	}
}

// stream is the encoder shared by every sink: ndjson writes each event as it
// arrives, json folds events into a Summary written once by finish.
type stream struct {
	mu      sync.Mutex
	w       io.Writer
	format  string
	summary Summary
}

func newStream(w io.Writer, format string) (*stream, error) {
	if format != FormatJSON && format != FormatNDJSON {
		return nil, fmt.Errorf("unsupported format %q (want %s or %s)", format, FormatJSON, FormatNDJSON)
	}
	return &stream{w: w, format: format}, nil
}

func (s *stream) write(v any) error {
	e, ok := v.(Event)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format == FormatJSON {
		s.summary.add(e)
		return nil
	}
	if err := json.NewEncoder(s.w).Encode(e); err != nil {
		return err
	}
	return s.flush()
}

func (s *stream) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format != FormatJSON {
		return nil
	}
	doc := s.summary
	if doc.Repos == nil {
		doc.Repos = []Event{}
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return s.flush()
}

// flush pushes buffered bytes out so ndjson consumers see each line immediately.
func (s *stream) flush() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
