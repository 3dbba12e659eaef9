package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied is returned when the host refuses screen capture.
	ErrPermissionDenied = errors.New("screen capture permission denied")

	// ErrCaptureUnavailable is returned when no capture tool exists on this platform.
	ErrCaptureUnavailable = errors.New("screen capture unavailable")

	// ErrCounterUnavailable is returned when the counter backend cannot be reached.
	ErrCounterUnavailable = errors.New("blocked attempts counter unavailable")

	// ErrAlreadyRunning is returned when another agent holds the instance lock.
	ErrAlreadyRunning = errors.New("agent already running")
)

// Classifier scores text against the inappropriate-content vocabulary.
type Classifier interface {
	// Classify is pure and deterministic.
	Classify(text string) ClassificationResult
}

// DetectionHandler is the sink every monitor reports into.
type DetectionHandler interface {
	Handle(ctx context.Context, d Detection)
}

// ScreenCapturer grabs frames from the host display.
type ScreenCapturer interface {
	// RequestPermission asks the host for capture rights. Failure is fatal to Start.
	RequestPermission(ctx context.Context) error

	// Capture returns the current frame.
	Capture(ctx context.Context) (ImageData, error)
}

// ImageDescriber reduces a frame to a short textual summary.
// It never fails: a placeholder description is returned on error.
type ImageDescriber interface {
	Describe(ctx context.Context, img ImageData) string
}

// AlertSender delivers a guardian alert.
type AlertSender interface {
	SendAlert(ctx context.Context, to, subject, body string) error
}

// DeviceController performs privileged power operations.
type DeviceController interface {
	Shutdown(ctx context.Context) error
}

// UninstallNotifier reports attempts to remove the agent.
type UninstallNotifier interface {
	// OnUninstallAttempt registers cb and returns a function that deregisters it.
	OnUninstallAttempt(cb func()) (unregister func())
}

// UINotifier surfaces detections to the presentation layer (blocking overlay).
type UINotifier interface {
	Notify(ctx context.Context, d Detection) error
}

// InputSource delivers keystrokes and input-field snapshots observed by the host.
type InputSource interface {
	// Events returns the event stream. The channel is closed when the source ends.
	Events() <-chan InputEvent
}

// ConnectivityProbe reports whether the device is online.
type ConnectivityProbe interface {
	IsOnline(ctx context.Context) bool
}

// CounterStore persists the blocked attempts counter.
type CounterStore interface {
	// Increment adds one for detectionID. Calling it again with the same
	// detectionID must not count twice.
	Increment(ctx context.Context, detectionID string) (int64, error)

	// Count returns the current value.
	Count(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

// StateStore persists the agent liveness record.
type StateStore interface {
	SaveState(state AgentState) error
	LoadState() (*AgentState, error)
}

// DeviceInfoProvider describes the host for alert bodies.
type DeviceInfoProvider interface {
	DeviceInfo() DeviceInfo
}

// Clock abstracts time so that monitors can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// Ticker delivers ticks at a fixed interval.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a one-shot scheduled function.
type Timer interface {
	Stop() bool
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// SecretStore provides encrypted persistent storage for transport credentials.
type SecretStore interface {
	GetSecret(key string) (string, error)
	SetSecret(key, value string) error
	Close() error
}
