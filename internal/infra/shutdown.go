package infra

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DeviceControllerImpl implements domain.DeviceController with the platform shutdown command.
type DeviceControllerImpl struct {
	runner CommandRunner
	goos   string
	isRoot bool
	logger *zap.Logger
}

// NewDeviceController creates a controller for the current platform.
func NewDeviceController(logger *zap.Logger) *DeviceControllerImpl {
	return NewDeviceControllerWithDeps(&RealCommandRunner{}, runtime.GOOS, os.Geteuid() == 0, logger)
}

// NewDeviceControllerWithDeps creates a controller with injectable dependencies (for testing)
func NewDeviceControllerWithDeps(runner CommandRunner, goos string, isRoot bool, logger *zap.Logger) *DeviceControllerImpl {
	return &DeviceControllerImpl{
		runner: runner,
		goos:   goos,
		isRoot: isRoot,
		logger: logger,
	}
}

// Shutdown powers the device off immediately.
func (d *DeviceControllerImpl) Shutdown(ctx context.Context) error {
	name, args, err := shutdownCommand(d.goos, d.isRoot)
	if err != nil {
		return err
	}

	d.logger.Warn("executing shutdown", zap.String("cmd", name), zap.Strings("args", args))
	if err := d.runner.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("shutdown command failed: %w", err)
	}
	return nil
}

// shutdownCommand returns the command for goos. Non-root users go through
// sudo -n so a missing sudoers rule fails instead of waiting for a password.
func shutdownCommand(goos string, isRoot bool) (string, []string, error) {
	switch goos {
	case "darwin", "linux":
		if isRoot {
			return "shutdown", []string{"-h", "now"}, nil
		}
		return "sudo", []string{"-n", "shutdown", "-h", "now"}, nil
	case "windows":
		return "shutdown", []string{"/s", "/t", "0"}, nil
	default:
		return "", nil, fmt.Errorf("shutdown not supported on %s", goos)
	}
}

// Ensure DeviceControllerImpl implements domain.DeviceController.
var _ domain.DeviceController = (*DeviceControllerImpl)(nil)
