package infra

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// captureTool is an external screenshot program and how to point it at an output file.
type captureTool struct {
	name string
	args func(path string) []string
}

// captureTools lists the programs tried per platform, in order of preference.
var captureTools = map[string][]captureTool{
	"darwin": {
		{name: "screencapture", args: func(p string) []string { return []string{"-x", "-t", "png", p} }},
	},
	"linux": {
		{name: "grim", args: func(p string) []string { return []string{p} }},
		{name: "import", args: func(p string) []string { return []string{"-window", "root", p} }},
		{name: "scrot", args: func(p string) []string { return []string{"-o", p} }},
	},
}

// ScreenCapturerImpl implements domain.ScreenCapturer by shelling out to the
// platform screenshot tool and reading the PNG it writes.
type ScreenCapturerImpl struct {
	runner CommandRunner
	goos   string
	tmpDir string
	logger *zap.Logger

	mu   sync.Mutex
	tool *captureTool
}

// NewScreenCapturer creates a capturer for the current platform.
func NewScreenCapturer(logger *zap.Logger) *ScreenCapturerImpl {
	return NewScreenCapturerWithDeps(&RealCommandRunner{}, runtime.GOOS, os.TempDir(), logger)
}

// NewScreenCapturerWithDeps creates a capturer with injectable dependencies (for testing)
func NewScreenCapturerWithDeps(runner CommandRunner, goos, tmpDir string, logger *zap.Logger) *ScreenCapturerImpl {
	return &ScreenCapturerImpl{
		runner: runner,
		goos:   goos,
		tmpDir: tmpDir,
		logger: logger,
	}
}

// RequestPermission resolves the capture tool and takes a trial frame.
// On macOS the first capture is what triggers the screen recording prompt.
func (c *ScreenCapturerImpl) RequestPermission(ctx context.Context) error {
	tool, err := c.currentTool()
	if err != nil {
		return err
	}

	if _, err := c.Capture(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}

	c.logger.Info("screen capture available", zap.String("tool", tool.name))
	return nil
}

// Capture takes one screenshot.
func (c *ScreenCapturerImpl) Capture(ctx context.Context) (domain.ImageData, error) {
	tool, err := c.currentTool()
	if err != nil {
		return domain.ImageData{}, err
	}

	f, err := os.CreateTemp(c.tmpDir, "contentmon-*.png")
	if err != nil {
		return domain.ImageData{}, fmt.Errorf("failed to create capture file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := c.runner.Run(ctx, tool.name, tool.args(path)...); err != nil {
		return domain.ImageData{}, fmt.Errorf("%s failed: %w", tool.name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageData{}, fmt.Errorf("failed to read capture: %w", err)
	}
	if len(data) == 0 {
		return domain.ImageData{}, fmt.Errorf("%s produced an empty image", tool.name)
	}

	return domain.ImageData{
		Bytes:      data,
		Format:     "png",
		CapturedAt: time.Now(),
	}, nil
}

// currentTool resolves the capture tool once and caches it.
func (c *ScreenCapturerImpl) currentTool() (*captureTool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tool != nil {
		return c.tool, nil
	}
	for _, t := range captureTools[c.goos] {
		if _, err := c.runner.LookPath(t.name); err == nil {
			c.tool = &t
			return c.tool, nil
		}
	}
	return nil, fmt.Errorf("%w on %s", domain.ErrCaptureUnavailable, c.goos)
}

// Ensure ScreenCapturerImpl implements domain.ScreenCapturer.
var _ domain.ScreenCapturer = (*ScreenCapturerImpl)(nil)
