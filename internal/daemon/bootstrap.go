package daemon

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/eliteGoblin/focusd/content_mon/internal/infra"
)

// StartDaemon spawns the agent daemon from the installed binary.
// The daemon is detached from the parent process (runs independently).
func StartDaemon(configPath string) (int, error) {
	execMode := infra.DetectExecMode()
	binaryPath := execMode.BinaryPath
	if _, err := os.Stat(binaryPath); err != nil {
		// Not installed yet: run from the current location.
		if binaryPath, err = os.Executable(); err != nil {
			return 0, err
		}
	}
	return StartDaemonWithPath(binaryPath, configPath)
}

// StartDaemonWithPath spawns the daemon from a specific binary path.
func StartDaemonWithPath(binaryPath, configPath string) (int, error) {
	// Self-exec with daemon mode flag
	cmd := exec.Command(binaryPath, daemonArgs(configPath)...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// The child outlives us; release it so no zombie is left when it exits first.
	_ = cmd.Process.Release()
	return pid, nil
}

// daemonArgs is the hidden command line: contentmon daemon [--config path]
func daemonArgs(configPath string) []string {
	args := []string{"daemon"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}
