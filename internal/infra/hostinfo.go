package infra

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

const hostInfoTimeout = 5 * time.Second

// HostInfo implements domain.DeviceInfoProvider using gopsutil.
// The lookup runs once; later calls return the cached value.
type HostInfo struct {
	lookup func(ctx context.Context) (*host.InfoStat, error)
	logger *zap.Logger

	once sync.Once
	info domain.DeviceInfo
}

// NewHostInfo creates a provider for the local machine.
func NewHostInfo(logger *zap.Logger) *HostInfo {
	return NewHostInfoWithDeps(host.InfoWithContext, logger)
}

// NewHostInfoWithDeps creates a provider with an injectable lookup (for testing)
func NewHostInfoWithDeps(lookup func(ctx context.Context) (*host.InfoStat, error), logger *zap.Logger) *HostInfo {
	return &HostInfo{lookup: lookup, logger: logger}
}

// DeviceInfo returns what is known about the host. Fields are empty when
// the lookup failed.
func (h *HostInfo) DeviceInfo() domain.DeviceInfo {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), hostInfoTimeout)
		defer cancel()

		stat, err := h.lookup(ctx)
		if err != nil || stat == nil {
			h.logger.Warn("failed to read host info", zap.Error(err))
			return
		}
		h.info = domain.DeviceInfo{
			Hostname:        stat.Hostname,
			Platform:        stat.Platform,
			PlatformVersion: stat.PlatformVersion,
			KernelArch:      stat.KernelArch,
		}
	})
	return h.info
}

// Ensure HostInfo implements domain.DeviceInfoProvider.
var _ domain.DeviceInfoProvider = (*HostInfo)(nil)
