package infra

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

func TestScreenCapturer_CaptureDarwin(t *testing.T) {
	runner := newMockCommandRunner("screencapture")
	tmp := t.TempDir()
	c := NewScreenCapturerWithDeps(runner, "darwin", tmp, zap.NewNop())

	img, err := c.Capture(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, []byte("\x89PNG fake image"), img.Bytes)
	assert.False(t, img.CapturedAt.IsZero())

	cmds := runner.Commands()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "screencapture -x -t png ")

	entries, _ := os.ReadDir(tmp)
	assert.Empty(t, entries, "capture file should be removed")
}

func TestScreenCapturer_LinuxPrefersFirstAvailableTool(t *testing.T) {
	runner := newMockCommandRunner("import", "scrot")
	c := NewScreenCapturerWithDeps(runner, "linux", t.TempDir(), zap.NewNop())

	_, err := c.Capture(context.Background())

	require.NoError(t, err)
	assert.Contains(t, runner.Commands()[0], "import -window root ")
}

func TestScreenCapturer_NoTool(t *testing.T) {
	c := NewScreenCapturerWithDeps(newMockCommandRunner(), "linux", t.TempDir(), zap.NewNop())

	_, err := c.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)

	err = c.RequestPermission(context.Background())
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)
}

func TestScreenCapturer_RequestPermission(t *testing.T) {
	runner := newMockCommandRunner("grim")
	c := NewScreenCapturerWithDeps(runner, "linux", t.TempDir(), zap.NewNop())

	require.NoError(t, c.RequestPermission(context.Background()))
	assert.Len(t, runner.Commands(), 1)
}

func TestScreenCapturer_PermissionDenied(t *testing.T) {
	runner := newMockCommandRunner("screencapture")
	runner.runErr["screencapture"] = errors.New("exit status 1")
	c := NewScreenCapturerWithDeps(runner, "darwin", t.TempDir(), zap.NewNop())

	err := c.RequestPermission(context.Background())

	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestScreenCapturer_EmptyImage(t *testing.T) {
	runner := newMockCommandRunner("grim")
	runner.output = nil
	c := NewScreenCapturerWithDeps(runner, "linux", t.TempDir(), zap.NewNop())

	_, err := c.Capture(context.Background())

	assert.Error(t, err)
}

func TestShutdownCommand(t *testing.T) {
	tests := []struct {
		goos    string
		isRoot  bool
		name    string
		args    []string
		wantErr bool
	}{
		{"darwin", false, "sudo", []string{"-n", "shutdown", "-h", "now"}, false},
		{"linux", true, "shutdown", []string{"-h", "now"}, false},
		{"windows", false, "shutdown", []string{"/s", "/t", "0"}, false},
		{"plan9", false, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := shutdownCommand(tt.goos, tt.isRoot)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestDeviceController_Shutdown(t *testing.T) {
	runner := newMockCommandRunner()
	d := NewDeviceControllerWithDeps(runner, "linux", false, zap.NewNop())

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, []string{"sudo -n shutdown -h now"}, runner.Commands())
}

func TestDeviceController_ShutdownFailure(t *testing.T) {
	runner := newMockCommandRunner()
	runner.runErr["sudo"] = errors.New("a password is required")
	d := NewDeviceControllerWithDeps(runner, "darwin", false, zap.NewNop())

	err := d.Shutdown(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown command failed")
}
