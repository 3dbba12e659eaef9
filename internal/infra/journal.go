package infra

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// JournalFileName is the detection log inside the data directory.
const JournalFileName = "detections.jsonl"

// JournalNotifier implements domain.UINotifier by appending each detection
// as one JSON line. It keeps a record even when no overlay is attached.
type JournalNotifier struct {
	path string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// NewJournalNotifier opens (or creates) the journal at path.
func NewJournalNotifier(path string) (*JournalNotifier, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &JournalNotifier{path: path, file: f, writer: bufio.NewWriter(f)}, nil
}

// Path returns the journal file path.
func (j *JournalNotifier) Path() string {
	return j.path
}

// Notify appends d.
func (j *JournalNotifier) Notify(_ context.Context, d domain.Detection) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode detection: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("journal closed")
	}
	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("write detection: %w", err)
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return j.writer.Flush()
}

// Close flushes and closes the file.
func (j *JournalNotifier) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	_ = j.writer.Flush()
	err := j.file.Close()
	j.file = nil
	return err
}

// ReadJournal returns up to limit of the most recent detections at path,
// oldest first. A missing file yields none; malformed lines are skipped.
func ReadJournal(path string, limit int) ([]domain.Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []domain.Detection
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var d domain.Detection
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) > limit {
			out = out[1:]
		}
	}
	return out, scanner.Err()
}

// Ensure JournalNotifier implements domain.UINotifier.
var _ domain.UINotifier = (*JournalNotifier)(nil)
