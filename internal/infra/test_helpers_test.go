package infra

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

// mockCommandRunner is a test double for CommandRunner
type mockCommandRunner struct {
	mu        sync.Mutex
	available map[string]bool
	runErr    map[string]error
	output    []byte // written to the last argument when it is a file path
	commands  []string
}

func newMockCommandRunner(available ...string) *mockCommandRunner {
	m := &mockCommandRunner{
		available: make(map[string]bool),
		runErr:    make(map[string]error),
		output:    []byte("\x89PNG fake image"),
	}
	for _, a := range available {
		m.available[a] = true
	}
	return m
}

func (m *mockCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = append(m.commands, name+" "+strings.Join(args, " "))
	if err := m.runErr[name]; err != nil {
		return err
	}
	if len(args) > 0 && strings.HasSuffix(args[len(args)-1], ".png") {
		return os.WriteFile(args[len(args)-1], m.output, 0600)
	}
	return nil
}

func (m *mockCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := m.Run(ctx, name, args...); err != nil {
		return nil, err
	}
	return m.output, nil
}

func (m *mockCommandRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.available[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

func (m *mockCommandRunner) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// mockFileChecker is a test double for FileChecker
type mockFileChecker struct {
	mu       sync.Mutex
	existing map[string]bool
}

func newMockFileChecker(paths ...string) *mockFileChecker {
	m := &mockFileChecker{existing: make(map[string]bool)}
	for _, p := range paths {
		m.existing[p] = true
	}
	return m
}

func (m *mockFileChecker) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[path]
}

func (m *mockFileChecker) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.existing, path)
}
