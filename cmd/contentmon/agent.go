package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/eliteGoblin/focusd/content_mon/internal/config"
	"github.com/eliteGoblin/focusd/content_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/infra"
)

// drainTimeout bounds how long exit waits for armed shutdowns.
const drainTimeout = 10 * time.Second

// runAgent wires the host capabilities for execMode and runs the agent until
// a signal arrives. In terminal mode stdin is monitored as typed input.
func runAgent(execMode *infra.ExecModeConfig, cfg *config.Config, terminal bool, logger *zap.Logger) error {
	if err := os.MkdirAll(execMode.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	lock := infra.NewInstanceLock(execMode.DataDir)
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			logger.Info("another instance holds the lock, exiting", zap.String("lock", lock.Path()))
		}
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	store, err := infra.OpenEncryptedStore(execMode.DataDir, infra.DefaultKeyProvider(execMode.DataDir))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	host, watcher, restore, err := buildHost(execMode, cfg, store, terminal, logger)
	if err != nil {
		_ = host.Close()
		return err
	}
	defer restore()
	defer func() {
		if err := host.Close(); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	agent := daemon.NewAgent(host, daemon.AgentOptions{Version: Version}, logger.Named("agent"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := agent.Start(ctx, cfg.MonitoringConfig()); err != nil {
		return err
	}

	go func() { _ = watcher.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var inputDone <-chan struct{}
	if src, ok := host.Input.(*infra.ReaderInputSource); ok && terminal {
		inputDone = src.Done()
		fmt.Print("Monitoring. Press Ctrl-C to stop.\r\n")
	}

	select {
	case sig := <-sigChan:
		logger.Info("received signal", zap.String("signal", sig.String()))
		if !terminal {
			// A daemon told to exit is treated as an attempt to remove monitoring.
			watcher.Fire()
		}
	case <-inputDone:
		logger.Info("input closed")
	}

	agent.Stop()
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()
	if err := agent.Drain(drainCtx); err != nil {
		logger.Warn("armed shutdowns did not complete", zap.Int("pending", agent.PendingShutdowns()))
	}

	logger.Info("agent exited", zap.Int64("detections", agent.Handled()))
	return nil
}

// buildHost assembles the host capabilities. The returned func restores the
// terminal when stdin was switched to raw mode.
func buildHost(execMode *infra.ExecModeConfig, cfg *config.Config, store *infra.EncryptedStore, terminal bool, logger *zap.Logger) (daemon.Host, *infra.UninstallWatcher, func(), error) {
	clock := infra.NewRealClock()
	restore := func() {}

	host := daemon.Host{
		Capturer:   infra.NewScreenCapturer(logger.Named("capture")),
		Probe:      infra.NewInterfaceProbe(logger.Named("probe")),
		Device:     infra.NewDeviceController(logger.Named("device")),
		DeviceInfo: infra.NewHostInfo(logger.Named("hostinfo")),
		State:      store,
		Clock:      clock,
		Closers:    []interface{ Close() error }{store},
	}

	counter, err := buildCounter(execMode, cfg, store)
	if err != nil {
		return host, nil, restore, err
	}
	host.Counter = counter
	if counter != domain.CounterStore(store) {
		host.Closers = append(host.Closers, counter)
	}

	describer, err := buildDescriber(cfg, logger)
	if err != nil {
		return host, nil, restore, err
	}
	host.Describer = describer

	if alerts := buildAlerts(cfg, store, logger); alerts.Len() > 0 {
		host.Alerts = alerts
	}

	ui, closers, err := buildUI(execMode, cfg, logger)
	if err != nil {
		return host, nil, restore, err
	}
	host.UI = ui
	host.Closers = append(host.Closers, closers...)

	watcher := infra.NewUninstallWatcher(execMode.BinaryPath, cfg.Uninstall.PollInterval,
		infra.OSFileChecker{}, clock, logger.Named("uninstall"))
	host.Uninstall = watcher

	if terminal && cfg.Monitoring.KeyboardEnabled {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return host, nil, restore, fmt.Errorf("failed to enter raw mode: %w", err)
			}
			restore = func() { _ = term.Restore(fd, oldState) }
			host.Input = infra.NewKeystrokeSource(os.Stdin, logger.Named("input"))
		} else {
			host.Input = infra.NewLineSource(os.Stdin, logger.Named("input"))
		}
	}

	return host, watcher, restore, nil
}

func buildCounter(execMode *infra.ExecModeConfig, cfg *config.Config, store *infra.EncryptedStore) (domain.CounterStore, error) {
	switch cfg.Counter.Backend {
	case config.BackendEncrypted:
		return store, nil
	case config.BackendFile:
		return infra.NewFileCounterStore(execMode.DataDir), nil
	case config.BackendRedis:
		return infra.NewRedisCounterStore(redisOptions(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown counter backend %q", cfg.Counter.Backend)
	}
}

func buildDescriber(cfg *config.Config, logger *zap.Logger) (domain.ImageDescriber, error) {
	if cfg.Vision.Provider != config.VisionOllama {
		return infra.PlaceholderDescriber{}, nil
	}
	d, err := infra.NewOllamaDescriber(cfg.Vision.URL, cfg.Vision.Model, logger.Named("vision"))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return d, nil
}

// buildAlerts creates a sender per configured transport. Secrets missing from
// the YAML are read from the encrypted store.
func buildAlerts(cfg *config.Config, store domain.SecretStore, logger *zap.Logger) *infra.MultiAlertSender {
	var senders []domain.AlertSender

	if cfg.SMTP.Host != "" {
		password := cfg.SMTP.Password
		if password == "" {
			password = lookupSecret(store, config.SecretSMTPPassword, logger)
		}
		senders = append(senders, infra.NewSMTPAlertSender(infra.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: password,
			From:     cfg.SMTP.From,
		}, logger.Named("smtp")))
	}

	if cfg.Telegram.ChatID != 0 {
		token := cfg.Telegram.Token
		if token == "" {
			token = lookupSecret(store, config.SecretTelegramToken, logger)
		}
		if token != "" {
			senders = append(senders, infra.NewTelegramAlertSender(infra.TelegramConfig{
				Token:  token,
				ChatID: cfg.Telegram.ChatID,
			}, logger.Named("telegram")))
		}
	}

	return infra.NewMultiAlertSender(senders...)
}

func lookupSecret(store domain.SecretStore, key string, logger *zap.Logger) string {
	value, err := store.GetSecret(key)
	if err != nil {
		logger.Warn("failed to read secret", zap.String("key", key), zap.Error(err))
		return ""
	}
	return value
}

// buildUI returns the journal, plus the overlay hub unless stealth is on.
func buildUI(execMode *infra.ExecModeConfig, cfg *config.Config, logger *zap.Logger) (domain.UINotifier, []interface{ Close() error }, error) {
	journal, err := infra.NewJournalNotifier(filepath.Join(execMode.DataDir, infra.JournalFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	notifiers := []domain.UINotifier{journal}
	closers := []interface{ Close() error }{journal}

	if !cfg.Monitoring.Stealth {
		hub := infra.NewUIHub(logger.Named("ui"))
		if err := hub.Start(cfg.UI.Address); err != nil {
			logger.Warn("overlay hub unavailable", zap.String("address", cfg.UI.Address), zap.Error(err))
		} else {
			logger.Info("overlay hub listening", zap.String("address", hub.Addr()))
			notifiers = append(notifiers, hub)
			closers = append(closers, hub)
		}
	}

	return infra.NewMultiNotifier(notifiers...), closers, nil
}
