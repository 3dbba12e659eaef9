package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DefaultAnalysisTimeout bounds one capture plus description cycle.
const DefaultAnalysisTimeout = 45 * time.Second

// ScreenMonitor periodically captures the display, describes the frame and
// classifies the description.
type ScreenMonitor struct {
	interval   time.Duration
	timeout    time.Duration
	capturer   domain.ScreenCapturer
	describer  domain.ImageDescriber
	classifier domain.Classifier
	handler    domain.DetectionHandler
	clock      domain.Clock
	logger     *zap.Logger

	inflight sync.WaitGroup
	active   atomic.Int32
}

// NewScreenMonitor creates a screen monitor ticking every interval.
func NewScreenMonitor(
	interval time.Duration,
	capturer domain.ScreenCapturer,
	describer domain.ImageDescriber,
	classifier domain.Classifier,
	handler domain.DetectionHandler,
	clock domain.Clock,
	logger *zap.Logger,
) *ScreenMonitor {
	if interval <= 0 {
		interval = domain.DefaultScreenInterval
	}
	return &ScreenMonitor{
		interval:   interval,
		timeout:    DefaultAnalysisTimeout,
		capturer:   capturer,
		describer:  describer,
		classifier: classifier,
		handler:    handler,
		clock:      clock,
		logger:     logger,
	}
}

// SetAnalysisTimeout overrides the per-cycle timeout.
func (m *ScreenMonitor) SetAnalysisTimeout(d time.Duration) {
	if d > 0 {
		m.timeout = d
	}
}

// Run starts a cycle on every tick until ctx is canceled. Cycles run in their
// own goroutines so a slow capture never delays the next tick.
func (m *ScreenMonitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("screen monitor started", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("screen monitor stopping")
			return ctx.Err()

		case <-ticker.C():
			m.inflight.Add(1)
			m.active.Add(1)
			go func() {
				defer m.inflight.Done()
				defer m.active.Add(-1)
				m.Tick(ctx)
			}()
		}
	}
}

// Inflight returns how many cycles started by Run are still running.
func (m *ScreenMonitor) Inflight() int {
	return int(m.active.Load())
}

// Wait blocks until every in-flight cycle has finished.
func (m *ScreenMonitor) Wait() {
	m.inflight.Wait()
}

// Tick runs one capture, describe and classify cycle. Capture and description
// are not interrupted by ctx; if ctx ends meanwhile their result is discarded.
// It reports whether a detection was raised.
func (m *ScreenMonitor) Tick(ctx context.Context) bool {
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	img, err := m.capturer.Capture(workCtx)
	if err != nil {
		m.logger.Warn("screen capture failed, skipping cycle", zap.Error(err))
		return false
	}

	description := m.describer.Describe(workCtx, img)

	if ctx.Err() != nil {
		m.logger.Debug("agent stopped during analysis, discarding result")
		return false
	}

	result := m.classifier.Classify(description)
	if !result.IsInappropriate {
		m.logger.Debug("screen content clean",
			zap.Float64("confidence", result.Confidence))
		return false
	}

	det := domain.NewDetection(domain.KindScreen, result.Confidence, result.Reason, m.clock.Now())
	det.Content = domain.Excerpt(description, domain.MaxExcerptLength) + "..."

	if ctx.Err() != nil {
		m.logger.Debug("agent stopped before dispatch, discarding detection", zap.String("id", det.ID))
		return false
	}
	m.handler.Handle(ctx, det)
	return true
}
