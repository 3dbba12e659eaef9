// Package infra implements infrastructure concerns (process, filesystem, storage).
package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Linux truncates the process name to 15 bytes.
const commNameLen = 15

// AgentProcess is what status reports about a running daemon.
type AgentProcess struct {
	PID       int
	Name      string
	StartedAt time.Time
	RSS       uint64
}

// ProcessInspector checks a recorded daemon PID against the live process table.
// A PID recycled by an unrelated program does not count as the agent.
type ProcessInspector struct {
	names []string
}

// NewProcessInspector accepts processes named after binaryPath or after the
// running executable, since start falls back to the latter when install fails.
func NewProcessInspector(binaryPath string) *ProcessInspector {
	names := []string{filepath.Base(binaryPath)}
	if exe, err := os.Executable(); err == nil {
		names = append(names, filepath.Base(exe))
	}
	return &ProcessInspector{names: names}
}

// IsAgent reports whether pid is alive and runs one of the agent binaries.
// When the name cannot be read the process is assumed to be the agent.
func (p *ProcessInspector) IsAgent(pid int) bool {
	proc, err := p.lookup(pid)
	if err != nil {
		return false
	}
	name, err := proc.Name()
	if err != nil {
		return true
	}
	return p.matches(name)
}

// Inspect returns start time and resident memory of the agent at pid.
func (p *ProcessInspector) Inspect(pid int) (AgentProcess, error) {
	proc, err := p.lookup(pid)
	if err != nil {
		return AgentProcess{}, err
	}
	info := AgentProcess{PID: pid}
	if info.Name, err = proc.Name(); err == nil && !p.matches(info.Name) {
		return AgentProcess{}, fmt.Errorf("pid %d belongs to %q", pid, info.Name)
	}
	if ms, err := proc.CreateTime(); err == nil {
		info.StartedAt = time.UnixMilli(ms)
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		info.RSS = mem.RSS
	}
	return info, nil
}

func (p *ProcessInspector) lookup(pid int) (*process.Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}
	running, err := proc.IsRunning()
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, fmt.Errorf("pid %d is not running", pid)
	}
	return proc, nil
}

func (p *ProcessInspector) matches(name string) bool {
	for _, want := range p.names {
		if name == want {
			return true
		}
		if len(name) == commNameLen && strings.HasPrefix(want, name) {
			return true
		}
	}
	return false
}
