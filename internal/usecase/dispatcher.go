// Package usecase contains application business logic.
package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DefaultAlertTimeout bounds a single guardian alert delivery.
const DefaultAlertTimeout = 30 * time.Second

// shutdownTimeout bounds the shutdown command itself once the delay has passed.
const shutdownTimeout = 30 * time.Second

// DispatcherConfig holds the parts of MonitoringConfig the dispatcher acts on.
type DispatcherConfig struct {
	GuardianAddress string
	StrictMode      bool
	AlertTimeout    time.Duration
	ShutdownDelay   time.Duration
}

// NewDispatcherConfig derives the dispatcher settings from a monitoring config.
func NewDispatcherConfig(cfg domain.MonitoringConfig) DispatcherConfig {
	return DispatcherConfig{
		GuardianAddress: cfg.GuardianAddress,
		StrictMode:      cfg.StrictMode,
		AlertTimeout:    DefaultAlertTimeout,
		ShutdownDelay:   domain.ShutdownDelay,
	}
}

// DispatcherDeps are the host capabilities the dispatcher fans out to.
// Alerts, Device and UI may be nil; that step is then skipped with a log line.
type DispatcherDeps struct {
	Counter  domain.CounterStore
	Alerts   domain.AlertSender
	Device   domain.DeviceController
	UI       domain.UINotifier
	Renderer *AlertRenderer
	Clock    domain.Clock
}

// Dispatcher implements domain.DetectionHandler.
// Handle is serialized: one detection's side effects never interleave with another's.
type Dispatcher struct {
	config DispatcherConfig
	deps   DispatcherDeps
	logger *zap.Logger

	mu      sync.Mutex
	armed   sync.WaitGroup
	pending atomic.Int32
	handled atomic.Int64
}

// NewDispatcher creates the detection sink.
func NewDispatcher(config DispatcherConfig, deps DispatcherDeps, logger *zap.Logger) *Dispatcher {
	if config.AlertTimeout <= 0 {
		config.AlertTimeout = DefaultAlertTimeout
	}
	if config.ShutdownDelay <= 0 {
		config.ShutdownDelay = domain.ShutdownDelay
	}
	if deps.Renderer == nil {
		deps.Renderer = NewAlertRenderer(nil, nil)
	}
	return &Dispatcher{
		config: config,
		deps:   deps,
		logger: logger,
	}
}

// Handle runs counter, alert, strict-mode and UI steps in order. Each step
// logs its own failure and never prevents the next one. Cancelling ctx does
// not abort a detection that has already arrived.
func (d *Dispatcher) Handle(ctx context.Context, det domain.Detection) {
	ctx = context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Warn("detection received",
		zap.String("id", det.ID),
		zap.String("kind", string(det.Kind)),
		zap.Float64("confidence", det.Confidence),
		zap.String("reason", det.Reason))

	d.incrementCounter(ctx, det)

	if d.config.GuardianAddress != "" {
		d.sendAlert(ctx, det)
	}

	if d.config.StrictMode && det.IsInappropriate {
		d.armShutdown()
	}

	d.notifyUI(ctx, det)

	d.handled.Add(1)
}

// Handled returns how many detections have been processed.
func (d *Dispatcher) Handled() int64 {
	return d.handled.Load()
}

// PendingShutdowns returns how many armed shutdowns have not fired yet.
func (d *Dispatcher) PendingShutdowns() int {
	return int(d.pending.Load())
}

// Drain waits until every armed shutdown has run, or ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.armed.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// incrementCounter is the only critical step: one synchronous retry with the
// same detection ID, which the store treats idempotently.
func (d *Dispatcher) incrementCounter(ctx context.Context, det domain.Detection) {
	if d.deps.Counter == nil {
		d.logger.Error("no counter store configured, blocked attempts not recorded")
		return
	}

	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		var total int64
		total, err = d.deps.Counter.Increment(ctx, det.ID)
		if err == nil {
			d.logger.Info("blocked attempts incremented",
				zap.String("id", det.ID),
				zap.Int64("total", total))
			return
		}
		d.logger.Warn("failed to increment blocked attempts",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	d.logger.Error("blocked attempts counter is stale",
		zap.String("id", det.ID),
		zap.Error(err))
}

func (d *Dispatcher) sendAlert(ctx context.Context, det domain.Detection) {
	if d.deps.Alerts == nil {
		d.logger.Warn("guardian configured but no alert transport available")
		return
	}

	msg, err := d.deps.Renderer.Render(det, d.config.StrictMode)
	if err != nil {
		d.logger.Error("failed to build guardian alert", zap.Error(err))
		return
	}

	alertCtx, cancel := context.WithTimeout(ctx, d.config.AlertTimeout)
	defer cancel()

	if err := d.deps.Alerts.SendAlert(alertCtx, d.config.GuardianAddress, msg.Subject, msg.Body); err != nil {
		d.logger.Error("failed to send guardian alert",
			zap.String("id", det.ID),
			zap.Error(err))
		return
	}

	d.logger.Info("guardian alert sent",
		zap.String("id", det.ID),
		zap.String("kind", string(det.Kind)))
}

// armShutdown schedules the power-off. Once armed it is never cancelled;
// Stop on the agent does not reach it.
func (d *Dispatcher) armShutdown() {
	if d.deps.Device == nil || d.deps.Clock == nil {
		d.logger.Error("strict mode enabled but device shutdown is unavailable")
		return
	}

	d.armed.Add(1)
	d.pending.Add(1)
	d.deps.Clock.AfterFunc(d.config.ShutdownDelay, func() {
		defer d.armed.Done()
		defer d.pending.Add(-1)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		d.logger.Warn("strict mode: shutting down device")
		if err := d.deps.Device.Shutdown(ctx); err != nil {
			d.logger.Error("failed to shut down device", zap.Error(err))
		}
	})

	d.logger.Warn("strict mode: device shutdown armed",
		zap.Duration("delay", d.config.ShutdownDelay))
}

func (d *Dispatcher) notifyUI(ctx context.Context, det domain.Detection) {
	if d.deps.UI == nil {
		d.logger.Debug("no UI notifier attached")
		return
	}
	if err := d.deps.UI.Notify(ctx, det); err != nil {
		d.logger.Warn("failed to notify UI", zap.Error(err))
	}
}

// Ensure Dispatcher implements domain.DetectionHandler.
var _ domain.DetectionHandler = (*Dispatcher)(nil)
