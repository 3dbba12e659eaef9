// Package main is the CLI entry point for contentmon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/content_mon/internal/config"
	"github.com/eliteGoblin/focusd/content_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/infra"
	"github.com/eliteGoblin/focusd/content_mon/internal/policy"
	"github.com/eliteGoblin/focusd/content_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "contentmon",
	Short: "Content monitor - alerts a guardian about inappropriate content",
	Long: `contentmon watches the screen, typed text and network connectivity of this
device. When inappropriate content is detected it records the attempt, alerts
the configured guardian and, in strict mode, shuts the device down.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start monitoring (launches the background daemon)",
	Long: `Installs the binary for the current execution mode and launches the
monitoring daemon in the background. Use --foreground to run in this terminal;
typed keys are then monitored too.`,
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check monitoring status",
	Long:  `Shows whether the daemon is running, the blocked attempts counter and recent detections.`,
	RunE:  runStatus,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Classify a text with the screen classifier",
	Long:  `Runs the classifier used on screen descriptions against the given text and prints the verdict.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List content vocabularies",
	Long:  `Shows the vocabularies used by the classifier and the keyboard monitor.`,
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

// Hidden daemon command - used for self-exec when spawning the daemon
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	configPath  string
	foreground  bool
	jsonOutput  bool
	recentLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: <data dir>/config.yaml)")
	startCmd.Flags().BoolVar(&foreground, "foreground", false, "Run the agent in this terminal instead of as a daemon")
	statusCmd.Flags().IntVar(&recentLimit, "recent", 5, "Number of recent detections to show")
	classifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

// loadConfig reads and validates the config for execMode.
func loadConfig(execMode *infra.ExecModeConfig) (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = execMode.ConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	execMode := infra.DetectExecMode()

	cfg, path, err := loadConfig(execMode)
	if err != nil {
		return err
	}
	if !cfg.Monitoring.Enabled {
		return fmt.Errorf("monitoring is disabled (monitoring.enabled: false in %s)", path)
	}

	if foreground {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		return runAgent(execMode, cfg, true, logger)
	}

	fmt.Printf("Execution mode: %s\n", execMode.Mode)

	inspector := infra.NewProcessInspector(execMode.BinaryPath)
	if state := loadState(execMode); state != nil && inspector.IsAgent(state.PID) {
		fmt.Println("contentmon is already running")
		return nil
	}

	binaryPath := installBinary(execMode)

	pid, err := daemon.StartDaemonWithPath(binaryPath, configPath)
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Println("\n=== contentmon Started ===")
	fmt.Printf("Mode: %s\n", execMode.Mode)
	fmt.Printf("Binary: %s\n", binaryPath)
	fmt.Printf("Daemon PID: %d\n", pid)
	fmt.Printf("Config: %s\n", path)
	fmt.Printf("Strict mode: %t\n", cfg.Monitoring.StrictMode)
	if cfg.Guardian.Email != "" {
		fmt.Printf("Guardian: %s\n", cfg.Guardian.Email)
	} else {
		fmt.Println("Guardian: not configured (alerts disabled)")
	}
	fmt.Printf("Logs: %s\n", execMode.LogPath)
	fmt.Println("==========================")
	return nil
}

// installBinary copies the running binary to the mode's install path and
// returns the path the daemon should be started from.
func installBinary(execMode *infra.ExecModeConfig) string {
	currentExecPath, err := os.Executable()
	if err != nil {
		return execMode.BinaryPath
	}

	binaryPath := execMode.BinaryPath
	if currentExecPath == binaryPath {
		return binaryPath
	}

	if err := os.MkdirAll(filepath.Dir(binaryPath), 0755); err != nil {
		fmt.Printf("Warning: Could not create binary directory: %v\n", err)
		return currentExecPath
	}
	if err := copyBinary(currentExecPath, binaryPath); err != nil {
		fmt.Printf("Warning: Could not copy binary to %s: %v\n", binaryPath, err)
		return currentExecPath
	}
	fmt.Printf("Installed binary to %s\n", binaryPath)
	return binaryPath
}

// copyBinary copies the binary file to destination using atomic write pattern.
// Writes to temp file first, syncs, chmods, then renames to avoid corruption.
func copyBinary(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	// Create temp file in same directory for atomic rename
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".contentmon-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmpFile, sourceFile); err != nil {
		tmpFile.Close()
		return err
	}

	// Sync to disk before rename
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	tmpFile.Close()

	if err = os.Chmod(tmpPath, 0755); err != nil {
		return err
	}

	if err = os.Rename(tmpPath, dst); err != nil {
		return err
	}

	success = true
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	execMode := infra.DetectExecMode()

	logger := createLogger(execMode)
	defer func() { _ = logger.Sync() }()

	cfg, _, err := loadConfig(execMode)
	if err != nil {
		logger.Error("daemon not started", zap.Error(err))
		return err
	}
	if !cfg.Monitoring.Enabled {
		logger.Warn("monitoring disabled in config, daemon exiting")
		return nil
	}
	return runAgent(execMode, cfg, false, logger)
}

// loadState reads the liveness record, or nil when unavailable.
func loadState(execMode *infra.ExecModeConfig) *domain.AgentState {
	store, err := infra.OpenEncryptedStore(execMode.DataDir, infra.DefaultKeyProvider(execMode.DataDir))
	if err != nil {
		return nil
	}
	defer store.Close()

	state, err := store.LoadState()
	if err != nil {
		return nil
	}
	return state
}

func runStatus(cmd *cobra.Command, args []string) error {
	execMode := infra.DetectExecMode()
	inspector := infra.NewProcessInspector(execMode.BinaryPath)

	fmt.Println("\n=== contentmon Status ===")
	fmt.Printf("Execution mode: %s\n", execMode.Mode)

	cfg, path, err := loadConfig(execMode)
	if err != nil {
		fmt.Printf("Config: %v\n", err)
	} else {
		fmt.Printf("Config: %s\n", path)
	}

	state := loadState(execMode)
	switch {
	case state == nil:
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'contentmon start' to enable monitoring.")
	case inspector.IsAgent(state.PID):
		fmt.Println("Status: RUNNING")
		fmt.Printf("PID: %d\n", state.PID)
		fmt.Printf("Started: %s\n", state.StartedAt.Format(time.RFC3339))
		if proc, err := inspector.Inspect(state.PID); err == nil {
			fmt.Printf("Uptime: %s\n", time.Since(proc.StartedAt).Round(time.Second))
			fmt.Printf("Memory: %.1f MiB\n", float64(proc.RSS)/(1<<20))
		}
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(state.LastHeartbeat).Round(time.Second))
		fmt.Printf("Strict mode: %t\n", state.StrictMode)
		if state.AppVersion != "" {
			fmt.Printf("Version: %s\n", state.AppVersion)
		}
	default:
		fmt.Println("Status: NOT RUNNING (stale state)")
		fmt.Printf("Last heartbeat: %s\n", state.LastHeartbeat.Format(time.RFC3339))
	}

	if cfg != nil {
		counter, closeCounter, err := openCounter(execMode, cfg)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			count, err := counter.Count(ctx)
			cancel()
			if err == nil {
				fmt.Printf("Blocked attempts: %d\n", count)
			} else {
				fmt.Printf("Blocked attempts: unavailable (%v)\n", err)
			}
			closeCounter()
		}
	}

	recent, err := infra.ReadJournal(filepath.Join(execMode.DataDir, infra.JournalFileName), recentLimit)
	if err == nil && len(recent) > 0 {
		fmt.Println("\nRecent detections:")
		for _, d := range recent {
			fmt.Printf("  %s  %-9s %3.0f%%  %s\n",
				d.Timestamp.Local().Format("2006-01-02 15:04:05"), d.Kind, d.Confidence*100, d.Reason)
		}
	}

	fmt.Println("=========================")
	return nil
}

// openCounter opens the configured counter backend for reading. The returned
// func releases everything that was opened.
func openCounter(execMode *infra.ExecModeConfig, cfg *config.Config) (domain.CounterStore, func(), error) {
	switch cfg.Counter.Backend {
	case config.BackendFile:
		s := infra.NewFileCounterStore(execMode.DataDir)
		return s, func() { _ = s.Close() }, nil
	case config.BackendRedis:
		s := infra.NewRedisCounterStore(redisOptions(cfg))
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := infra.OpenEncryptedStore(execMode.DataDir, infra.DefaultKeyProvider(execMode.DataDir))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

func redisOptions(cfg *config.Config) infra.RedisOptions {
	return infra.RedisOptions{
		Address:   cfg.Counter.Redis.Address,
		Password:  cfg.Counter.Redis.Password,
		DB:        cfg.Counter.Redis.DB,
		KeyPrefix: cfg.Counter.Redis.KeyPrefix,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	result := usecase.NewClassifier().Classify(text)

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	verdict := "clean"
	if result.IsInappropriate {
		verdict = "INAPPROPRIATE"
	}
	fmt.Printf("Verdict: %s\n", verdict)
	fmt.Printf("Confidence: %.0f%%\n", result.Confidence*100)
	fmt.Printf("Reason: %s\n", result.Reason)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	registry := policy.NewRegistry()

	fmt.Println("\n=== Content Vocabularies ===")

	for _, p := range registry.GetAll() {
		fmt.Printf("\n[%s] %s\n", p.ID(), p.Name())
		fmt.Printf("  Keywords (%d): %s\n", len(p.Keywords()), strings.Join(p.Keywords(), ", "))
		if phrases := p.Phrases(); len(phrases) > 0 {
			fmt.Printf("  Phrases (%d):\n", len(phrases))
			for _, phrase := range phrases {
				fmt.Printf("    - %s\n", phrase)
			}
		}
		if patterns := p.Patterns(); len(patterns) > 0 {
			fmt.Printf("  Patterns (%d):\n", len(patterns))
			for _, pattern := range patterns {
				fmt.Printf("    - %s\n", pattern)
			}
		}
	}

	fmt.Println("\n============================")
	return nil
}

func createLogger(execMode *infra.ExecModeConfig) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(execMode.LogPath), 0700); err != nil && !errors.Is(err, os.ErrExist) {
		logger, _ := zap.NewProduction()
		return logger
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{execMode.LogPath}
	config.ErrorOutputPaths = []string{execMode.ErrLogPath}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		data, _ := json.Marshal(versionInfo{Version: Version, Commit: Commit, BuildTime: BuildTime})
		fmt.Println(string(data))
	} else {
		fmt.Printf("contentmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
