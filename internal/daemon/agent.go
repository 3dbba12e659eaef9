// Package daemon implements the agent controller and the detached daemon spawn.
package daemon

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/monitor"
	"github.com/eliteGoblin/focusd/content_mon/internal/policy"
	"github.com/eliteGoblin/focusd/content_mon/internal/usecase"
)

// DefaultHeartbeatInterval is how often the liveness record is refreshed.
const DefaultHeartbeatInterval = 30 * time.Second

const uninstallReason = "Attempted to uninstall Ángel Guardián"

// Host bundles the capabilities the agent runs against.
// Input, Uninstall, Alerts, UI and State may be nil.
type Host struct {
	Capturer   domain.ScreenCapturer
	Describer  domain.ImageDescriber
	Probe      domain.ConnectivityProbe
	Input      domain.InputSource
	Uninstall  domain.UninstallNotifier
	Counter    domain.CounterStore
	Alerts     domain.AlertSender
	Device     domain.DeviceController
	UI         domain.UINotifier
	DeviceInfo domain.DeviceInfoProvider
	State      domain.StateStore
	Clock      domain.Clock

	// Closers are released by Close, e.g. stores and the overlay hub.
	Closers []interface{ Close() error }
}

// Close releases every closer, combining their errors.
func (h Host) Close() error {
	var errs error
	for _, c := range h.Closers {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}

// AgentOptions tunes the controller.
type AgentOptions struct {
	Version           string
	HeartbeatInterval time.Duration
}

// Agent is the monitoring controller. It owns at most one running set of
// monitors; Start replaces it and Stop tears it down.
type Agent struct {
	host       Host
	options    AgentOptions
	classifier domain.Classifier
	typing     *policy.Vocabulary
	logger     *zap.Logger

	mu  sync.Mutex
	run *agentRun
	// retired are stopped runs that may still dispatch a late screen result
	// or fire an armed shutdown.
	retired        []*agentRun
	retiredHandled int64
}

// agentRun is one Start..Stop lifetime.
type agentRun struct {
	config     domain.MonitoringConfig
	startedAt  time.Time
	cancel     context.CancelFunc
	loops      sync.WaitGroup
	unregister func()
	dispatcher *usecase.Dispatcher
	screen     *monitor.ScreenMonitor
	network    *monitor.NetworkMonitor
	keyboard   *monitor.KeyboardMonitor
}

// NewAgent creates a stopped agent with the default vocabularies.
func NewAgent(host Host, options AgentOptions, logger *zap.Logger) *Agent {
	return NewAgentWithClassifier(host, options, usecase.NewClassifier(),
		policy.MustCompile(policy.NewTypingPolicy()), logger)
}

// NewAgentWithClassifier creates a stopped agent with custom vocabularies (for testing).
func NewAgentWithClassifier(host Host, options AgentOptions, classifier domain.Classifier, typing *policy.Vocabulary, logger *zap.Logger) *Agent {
	if options.HeartbeatInterval <= 0 {
		options.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Agent{
		host:       host,
		options:    options,
		classifier: classifier,
		typing:     typing,
		logger:     logger,
	}
}

// Start begins monitoring with cfg. A running instance is stopped first.
// If screen capture permission is refused, nothing is left running.
// ctx scopes the permission request only; the monitors run until Stop.
func (a *Agent) Start(ctx context.Context, cfg domain.MonitoringConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.run != nil {
		a.logger.Info("restarting agent")
		a.stopLocked()
	}
	a.pruneLocked()

	cfg = cfg.WithDefaults()

	if err := a.host.Capturer.RequestPermission(ctx); err != nil {
		a.logger.Error("screen capture permission refused", zap.Error(err))
		return fmt.Errorf("failed to start agent: %w", err)
	}

	clock := a.host.Clock
	dispatcher := usecase.NewDispatcher(usecase.NewDispatcherConfig(cfg), usecase.DispatcherDeps{
		Counter:  a.host.Counter,
		Alerts:   a.host.Alerts,
		Device:   a.host.Device,
		UI:       a.host.UI,
		Renderer: usecase.NewAlertRenderer(nil, a.host.DeviceInfo),
		Clock:    clock,
	}, a.logger.Named("dispatcher"))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := &agentRun{
		config:     cfg,
		startedAt:  clock.Now(),
		cancel:     cancel,
		dispatcher: dispatcher,
		screen: monitor.NewScreenMonitor(cfg.ScreenInterval, a.host.Capturer, a.host.Describer,
			a.classifier, dispatcher, clock, a.logger.Named("screen")),
		network: monitor.NewNetworkMonitor(cfg.NetworkInterval, a.host.Probe,
			dispatcher, clock, a.logger.Named("network")),
	}

	run.spawn(func() error { return run.screen.Run(runCtx) })
	run.spawn(func() error { return run.network.Run(runCtx) })

	if cfg.KeyboardEnabled {
		if a.host.Input != nil {
			run.keyboard = monitor.NewKeyboardMonitor(a.typing, dispatcher, clock, a.logger.Named("keyboard"))
			run.spawn(func() error { return run.keyboard.Run(runCtx, a.host.Input) })
		} else {
			a.logger.Warn("keyboard monitoring enabled but no input source available")
		}
	}

	if a.host.Uninstall != nil {
		run.unregister = a.host.Uninstall.OnUninstallAttempt(func() {
			det := domain.NewDetection(domain.KindUninstall, 1.0, uninstallReason, clock.Now())
			dispatcher.Handle(runCtx, det)
		})
	}

	if a.host.State != nil {
		a.saveState(run, run.startedAt)
		run.spawn(func() error { return a.heartbeat(runCtx, run) })
	}

	a.run = run
	a.logger.Info("agent started",
		zap.Duration("screen_interval", cfg.ScreenInterval),
		zap.Duration("network_interval", cfg.NetworkInterval),
		zap.Bool("keyboard", run.keyboard != nil),
		zap.Bool("strict_mode", cfg.StrictMode),
		zap.Bool("guardian", cfg.GuardianAddress != ""))
	return nil
}

// Stop cancels every timer and deregisters the uninstall listener. In-flight
// screen analysis finishes in the background and its result is dropped.
// Armed shutdowns are not affected. Stop is idempotent.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Agent) stopLocked() {
	run := a.run
	if run == nil {
		return
	}
	a.run = nil

	if run.unregister != nil {
		run.unregister()
	}
	run.cancel()
	run.loops.Wait()
	a.retired = append(a.retired, run)

	a.logger.Info("agent stopped", zap.Int64("detections", run.dispatcher.Handled()))
}

// pruneLocked forgets retired runs with no screen cycle in flight and no
// armed shutdown, keeping their detection count.
func (a *Agent) pruneLocked() {
	kept := a.retired[:0]
	for _, r := range a.retired {
		if r.screen.Inflight() == 0 && r.dispatcher.PendingShutdowns() == 0 {
			a.retiredHandled += r.dispatcher.Handled()
			continue
		}
		kept = append(kept, r)
	}
	clear(a.retired[len(kept):])
	a.retired = kept
}

// dispatchersLocked returns the dispatchers of the running and retired runs.
func (a *Agent) dispatchersLocked() []*usecase.Dispatcher {
	ds := make([]*usecase.Dispatcher, 0, len(a.retired)+1)
	for _, r := range a.retired {
		ds = append(ds, r.dispatcher)
	}
	if a.run != nil {
		ds = append(ds, a.run.dispatcher)
	}
	return ds
}

// Running reports whether monitors are active.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run != nil
}

// Config returns the configuration of the running instance.
func (a *Agent) Config() (domain.MonitoringConfig, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.run == nil {
		return domain.MonitoringConfig{}, false
	}
	return a.run.config, true
}

// Handled returns how many detections all runs have dispatched.
func (a *Agent) Handled() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.retiredHandled
	for _, d := range a.dispatchersLocked() {
		n += d.Handled()
	}
	return n
}

// PendingShutdowns returns how many armed shutdowns have not fired yet.
func (a *Agent) PendingShutdowns() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, d := range a.dispatchersLocked() {
		n += d.PendingShutdowns()
	}
	return n
}

// Drain waits for armed shutdowns of every run, or until ctx ends.
func (a *Agent) Drain(ctx context.Context) error {
	a.mu.Lock()
	dispatchers := a.dispatchersLocked()
	a.mu.Unlock()

	for _, d := range dispatchers {
		if err := d.Drain(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *agentRun) spawn(loop func() error) {
	r.loops.Add(1)
	go func() {
		defer r.loops.Done()
		_ = loop()
	}()
}

func (a *Agent) heartbeat(ctx context.Context, run *agentRun) error {
	ticker := a.host.Clock.NewTicker(a.options.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			a.saveState(run, now)
		}
	}
}

func (a *Agent) saveState(run *agentRun, now time.Time) {
	err := a.host.State.SaveState(domain.AgentState{
		PID:           os.Getpid(),
		StartedAt:     run.startedAt,
		LastHeartbeat: now,
		StrictMode:    run.config.StrictMode,
		AppVersion:    a.options.Version,
	})
	if err != nil {
		a.logger.Warn("failed to update heartbeat", zap.Error(err))
	}
}
