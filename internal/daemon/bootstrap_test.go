package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/focusd/content_mon/internal/infra"
)

// TestStartDaemon_UsesInstalledBinaryPath guards against spawning the daemon
// from wherever the CLI happened to be run (e.g. /tmp) instead of the
// install directory.
func TestStartDaemon_UsesInstalledBinaryPath(t *testing.T) {
	execMode := infra.DetectExecMode()

	assert.NotEmpty(t, execMode.BinaryPath, "BinaryPath should not be empty")

	if execMode.IsRoot {
		assert.Equal(t, "/usr/local/bin/contentmon", execMode.BinaryPath,
			"Root mode should use /usr/local/bin/contentmon")
	} else {
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".local", "bin", "contentmon")
		assert.Equal(t, expected, execMode.BinaryPath,
			"User mode should use ~/.local/bin/contentmon")
	}
}

func TestDaemonArgs(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		want       []string
	}{
		{"default config", "", []string{"daemon"}},
		{"custom config", "/etc/contentmon.yaml", []string{"daemon", "--config", "/etc/contentmon.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, daemonArgs(tt.configPath))
		})
	}
}

func TestStartDaemonWithPath_MissingBinary(t *testing.T) {
	_, err := StartDaemonWithPath(filepath.Join(t.TempDir(), "missing"), "")

	assert.Error(t, err)
}
