package infra

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// InterfaceProbe implements domain.ConnectivityProbe from the host's network
// interfaces. The device counts as online while at least one non-loopback
// interface is up and carries an address.
type InterfaceProbe struct {
	interfaces func(ctx context.Context) (net.InterfaceStatList, error)
	logger     *zap.Logger
}

// NewInterfaceProbe creates a probe backed by gopsutil.
func NewInterfaceProbe(logger *zap.Logger) *InterfaceProbe {
	return NewInterfaceProbeWithDeps(net.InterfacesWithContext, logger)
}

// NewInterfaceProbeWithDeps creates a probe with an injectable interface lister (for testing)
func NewInterfaceProbeWithDeps(interfaces func(ctx context.Context) (net.InterfaceStatList, error), logger *zap.Logger) *InterfaceProbe {
	return &InterfaceProbe{interfaces: interfaces, logger: logger}
}

// IsOnline reports whether any usable interface exists. Listing errors count as offline.
func (p *InterfaceProbe) IsOnline(ctx context.Context) bool {
	ifaces, err := p.interfaces(ctx)
	if err != nil {
		p.logger.Warn("failed to list network interfaces", zap.Error(err))
		return false
	}

	for _, iface := range ifaces {
		if usableInterface(iface) {
			return true
		}
	}
	return false
}

func usableInterface(iface net.InterfaceStat) bool {
	up := false
	for _, flag := range iface.Flags {
		switch flag {
		case "loopback":
			return false
		case "up":
			up = true
		}
	}
	return up && len(iface.Addrs) > 0
}

// Ensure InterfaceProbe implements domain.ConnectivityProbe.
var _ domain.ConnectivityProbe = (*InterfaceProbe)(nil)
