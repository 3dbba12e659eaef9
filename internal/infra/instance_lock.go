package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// instanceLockFileName holds the daemon's exclusive lock and its PID.
const instanceLockFileName = "contentmon.lock"

// InstanceLock keeps a second agent from running against the same data dir.
type InstanceLock struct {
	path string
	file *os.File
}

// NewInstanceLock creates a lock in dataDir. Nothing is held until Acquire.
func NewInstanceLock(dataDir string) *InstanceLock {
	return &InstanceLock{path: filepath.Join(dataDir, instanceLockFileName)}
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It returns domain.ErrAlreadyRunning
// when another process holds it.
func (l *InstanceLock) Acquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return domain.ErrAlreadyRunning
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	l.file = f
	return nil
}

// Release drops the lock.
func (l *InstanceLock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
