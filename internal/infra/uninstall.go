package infra

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DefaultUninstallPollInterval is how often the installed binary is checked.
const DefaultUninstallPollInterval = 10 * time.Second

// UninstallWatcher implements domain.UninstallNotifier. An attempt is reported
// when the installed binary disappears, or when Fire is called (the daemon
// does so on a termination signal).
type UninstallWatcher struct {
	binaryPath string
	interval   time.Duration
	checker    FileChecker
	clock      domain.Clock
	logger     *zap.Logger

	mu        sync.Mutex
	callbacks map[int]func()
	nextID    int
	missing   bool
}

// NewUninstallWatcher watches binaryPath every interval.
func NewUninstallWatcher(binaryPath string, interval time.Duration, checker FileChecker, clock domain.Clock, logger *zap.Logger) *UninstallWatcher {
	if interval <= 0 {
		interval = DefaultUninstallPollInterval
	}
	return &UninstallWatcher{
		binaryPath: binaryPath,
		interval:   interval,
		checker:    checker,
		clock:      clock,
		logger:     logger,
		callbacks:  make(map[int]func()),
	}
}

// OnUninstallAttempt registers cb. The returned function deregisters it and
// is safe to call more than once.
func (w *UninstallWatcher) OnUninstallAttempt(cb func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.callbacks[id] = cb

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.callbacks, id)
	}
}

// Listeners returns the number of registered callbacks.
func (w *UninstallWatcher) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.callbacks)
}

// Fire reports an attempt to every registered callback.
func (w *UninstallWatcher) Fire() {
	w.mu.Lock()
	cbs := make([]func(), 0, len(w.callbacks))
	for _, cb := range w.callbacks {
		cbs = append(cbs, cb)
	}
	w.mu.Unlock()

	w.logger.Warn("uninstall attempt detected", zap.Int("listeners", len(cbs)))
	for _, cb := range cbs {
		cb()
	}
}

// Check polls the binary once. It fires when the binary goes missing and
// not again until it has been restored.
func (w *UninstallWatcher) Check() bool {
	if w.binaryPath == "" {
		return false
	}
	exists := w.checker.Exists(w.binaryPath)

	w.mu.Lock()
	fire := !exists && !w.missing
	w.missing = !exists
	w.mu.Unlock()

	if fire {
		w.logger.Warn("installed binary removed", zap.String("path", w.binaryPath))
		w.Fire()
	}
	return fire
}

// Run polls until ctx is cancelled.
func (w *UninstallWatcher) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("uninstall watcher started",
		zap.String("binary", w.binaryPath),
		zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			w.Check()
		}
	}
}

// Ensure UninstallWatcher implements domain.UninstallNotifier.
var _ domain.UninstallNotifier = (*UninstallWatcher)(nil)
