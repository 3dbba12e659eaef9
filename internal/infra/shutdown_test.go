package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownCommand(t *testing.T) {
	tests := []struct {
		goos     string
		isRoot   bool
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"darwin", true, "shutdown", []string{"-h", "now"}, false},
		{"linux", true, "shutdown", []string{"-h", "now"}, false},
		{"linux", false, "sudo", []string{"-n", "shutdown", "-h", "now"}, false},
		{"darwin", false, "sudo", []string{"-n", "shutdown", "-h", "now"}, false},
		{"windows", false, "shutdown", []string{"/s", "/t", "0"}, false},
		{"plan9", true, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := shutdownCommand(tt.goos, tt.isRoot)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestDeviceController_Shutdown(t *testing.T) {
	runner := newMockCommandRunner()
	ctrl := NewDeviceControllerWithDeps(runner, "linux", true, zap.NewNop())

	require.NoError(t, ctrl.Shutdown(context.Background()))
	assert.Equal(t, []string{"shutdown -h now"}, runner.Commands())
}

func TestDeviceController_ShutdownFails(t *testing.T) {
	runner := newMockCommandRunner()
	runner.runErr["sudo"] = errors.New("a password is required")
	ctrl := NewDeviceControllerWithDeps(runner, "darwin", false, zap.NewNop())

	err := ctrl.Shutdown(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a password is required")
}
