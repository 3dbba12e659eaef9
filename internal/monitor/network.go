package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

const offlineReason = "Device has been offline for more than 24 hours"

// NetworkMonitor raises one detection per offline span longer than the threshold.
type NetworkMonitor struct {
	interval  time.Duration
	threshold time.Duration
	probe     domain.ConnectivityProbe
	handler   domain.DetectionHandler
	clock     domain.Clock
	logger    *zap.Logger

	mu    sync.Mutex
	state domain.NetworkState
}

// NewNetworkMonitor creates a network monitor. The device counts as online at construction.
func NewNetworkMonitor(
	interval time.Duration,
	probe domain.ConnectivityProbe,
	handler domain.DetectionHandler,
	clock domain.Clock,
	logger *zap.Logger,
) *NetworkMonitor {
	if interval <= 0 {
		interval = domain.DefaultNetworkInterval
	}
	return &NetworkMonitor{
		interval:  interval,
		threshold: domain.OfflineThreshold,
		probe:     probe,
		handler:   handler,
		clock:     clock,
		logger:    logger,
		state:     domain.NetworkState{LastOnline: clock.Now()},
	}
}

// Run checks connectivity on every tick until ctx is canceled.
func (m *NetworkMonitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("network monitor started", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("network monitor stopping")
			return ctx.Err()

		case <-ticker.C():
			m.Check(ctx)
		}
	}
}

// Check probes connectivity and records the observation.
func (m *NetworkMonitor) Check(ctx context.Context) bool {
	return m.Observe(ctx, m.probe.IsOnline(ctx))
}

// Observe records one connectivity observation at the current clock time.
// It reports whether an offline detection was raised.
func (m *NetworkMonitor) Observe(ctx context.Context, online bool) bool {
	now := m.clock.Now()

	m.mu.Lock()
	if online {
		if m.state.AlertSent {
			m.logger.Info("device back online")
		}
		m.state.LastOnline = now
		m.state.AlertSent = false
		m.mu.Unlock()
		return false
	}

	offline := now.Sub(m.state.LastOnline)
	if offline < m.threshold || m.state.AlertSent {
		m.mu.Unlock()
		return false
	}
	m.state.AlertSent = true
	m.mu.Unlock()

	m.logger.Warn("device offline past threshold", zap.Duration("offline", offline))

	det := domain.NewDetection(domain.KindNetwork, 1.0, offlineReason, now)
	m.handler.Handle(ctx, det)
	return true
}

// State returns a copy of the connectivity state.
func (m *NetworkMonitor) State() domain.NetworkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
