package runlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends records to a JSONL file. It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens path for appending, creating it and its parent directory.
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &Writer{path: path, file: f}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Append writes rec as one line and syncs it to disk before returning.
func (w *Writer) Append(rec Record) error {
	if rec.SchemaVersion == "" {
		rec.SchemaVersion = SchemaVersion
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return errors.New("run log is closed")
	}
	if _, err := w.file.Write(b); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync run log: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Read decodes every record in r. Blank lines and unknown fields are
// ignored. A final line that is cut off mid-record is dropped; a broken
// line anywhere else is an error.
func Read(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	var out []Record
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return out, err
		}
		last := err == io.EOF

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec Record
			if jerr := json.Unmarshal(line, &rec); jerr != nil {
				if last {
					return out, nil
				}
				return out, fmt.Errorf("line %d: %w", n, jerr)
			}
			out = append(out, rec)
		}
		if last {
			return out, nil
		}
	}
}

// ReadFile reads the log at path. A missing file has no records.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
