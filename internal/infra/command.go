package infra

import (
	"context"
	"os/exec"
)

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete
func (r *RealCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a command and returns its stdout
func (r *RealCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// LookPath searches PATH for an executable
func (r *RealCommandRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// FileChecker abstracts file system checks for testing
type FileChecker interface {
	Exists(path string) bool
}
