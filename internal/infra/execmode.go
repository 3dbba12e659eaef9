// Package infra implements infrastructure concerns.
package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs as the logged-in user (no sudo required)
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root (sudo required)
	ExecModeSystem ExecMode = "system"
)

const binaryName = "contentmon"

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	BinaryPath string // Where the binary should be installed
	DataDir    string // Encrypted store, key, counter file, journal, instance lock
	ConfigPath string // YAML configuration
	LogPath    string // Daemon log
	ErrLogPath string // Daemon error log
	IsRoot     bool   // Whether running as root
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 {
		return systemModeConfig()
	}
	home, _ := os.UserHomeDir()
	return userModeConfig(home)
}

// GetUserModeConfig returns user mode config regardless of current euid.
// When running under sudo, uses SUDO_USER to get the invoking user's home directory.
func GetUserModeConfig() *ExecModeConfig {
	cfg := userModeConfig(GetRealUserHome())
	cfg.IsRoot = os.Geteuid() == 0
	return cfg
}

func systemModeConfig() *ExecModeConfig {
	dataDir := "/var/lib/" + binaryName
	return &ExecModeConfig{
		Mode:       ExecModeSystem,
		BinaryPath: "/usr/local/bin/" + binaryName,
		DataDir:    dataDir,
		ConfigPath: filepath.Join(dataDir, "config.yaml"),
		LogPath:    "/var/log/" + binaryName + ".log",
		ErrLogPath: "/var/log/" + binaryName + ".error.log",
		IsRoot:     true,
	}
}

func userModeConfig(home string) *ExecModeConfig {
	dataDir := filepath.Join(home, "."+binaryName)
	return &ExecModeConfig{
		Mode:       ExecModeUser,
		BinaryPath: filepath.Join(home, ".local", "bin", binaryName),
		DataDir:    dataDir,
		ConfigPath: filepath.Join(dataDir, "config.yaml"),
		LogPath:    filepath.Join(dataDir, "logs", binaryName+".log"),
		ErrLogPath: filepath.Join(dataDir, "logs", binaryName+".error.log"),
		IsRoot:     false,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
