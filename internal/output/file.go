package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSink writes events to a file created (with its parent directories) up front.
type FileSink struct {
	*stream
	file *os.File
}

// formatForPath infers the format from the extension when none is given.
func formatForPath(path, format string) (string, error) {
	if format != "" {
		return format, nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".ndjson", ".jsonl":
		return FormatNDJSON, nil
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q", ext)
	}
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	format, err := formatForPath(path, format)
	if err != nil {
		return nil, err
	}
	if format != FormatJSON && format != FormatNDJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	s, err := newStream(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSink{stream: s, file: f}, nil
}

func (s *FileSink) Write(v any) error { return s.write(v) }

// Close writes the summary in json mode and closes the file.
func (s *FileSink) Close() error {
	err := s.finish()
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	return err
}
