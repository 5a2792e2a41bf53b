package output

import (
	"fmt"
	"io"
)

// EmitSink writes an additional structured stream, usually to stdout.
type EmitSink struct {
	*stream
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	s, err := newStream(w, format)
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	return &EmitSink{stream: s}, nil
}

func (s *EmitSink) Write(v any) error { return s.write(v) }

// Close writes the summary in json mode. The writer stays open.
func (s *EmitSink) Close() error { return s.finish() }
