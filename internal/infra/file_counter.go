package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

const counterFileName = "blocked_attempts.json"

// counterFile is the on-disk form of the counter.
type counterFile struct {
	Count           int64  `json:"count"`
	LastDetectionID string `json:"last_detection_id"`
	UpdatedAt       int64  `json:"updated_at"`
}

// FileCounterStore implements domain.CounterStore with a JSON file.
// Writes hold an exclusive flock and replace the file atomically.
type FileCounterStore struct {
	path string
}

// NewFileCounterStore creates a counter file in dataDir.
func NewFileCounterStore(dataDir string) *FileCounterStore {
	return &FileCounterStore{path: filepath.Join(dataDir, counterFileName)}
}

// NewFileCounterStoreWithPath creates a counter at a specific path (for testing).
func NewFileCounterStoreWithPath(path string) *FileCounterStore {
	return &FileCounterStore{path: path}
}

// Path returns the counter file path.
func (s *FileCounterStore) Path() string {
	return s.path
}

// Increment adds one unless detectionID was the last one applied.
func (s *FileCounterStore) Increment(ctx context.Context, detectionID string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}

	lockFile, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open lock file: %v", domain.ErrCounterUnavailable, err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return 0, fmt.Errorf("%w: failed to acquire lock: %v", domain.ErrCounterUnavailable, err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	entry, err := s.read()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}

	if detectionID != "" && entry.LastDetectionID == detectionID {
		return entry.Count, nil
	}

	entry.Count++
	entry.LastDetectionID = detectionID
	entry.UpdatedAt = time.Now().Unix()

	if err := s.atomicWrite(entry); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	return entry.Count, nil
}

// Count returns the current value.
func (s *FileCounterStore) Count(ctx context.Context) (int64, error) {
	entry, err := s.read()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	return entry.Count, nil
}

// Close is a no-op; the file is not held open.
func (s *FileCounterStore) Close() error {
	return nil
}

func (s *FileCounterStore) read() (*counterFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &counterFile{}, nil
		}
		return nil, err
	}

	var entry counterFile
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt counter file: %w", err)
	}
	return &entry, nil
}

// atomicWrite writes the counter to file atomically (write + rename).
func (s *FileCounterStore) atomicWrite(entry *counterFile) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileCounterStore implements domain.CounterStore.
var _ domain.CounterStore = (*FileCounterStore)(nil)
