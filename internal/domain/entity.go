// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no infrastructure dependencies.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DetectionKind identifies which monitor produced a detection.
type DetectionKind string

const (
	KindScreen    DetectionKind = "screen"
	KindKeyboard  DetectionKind = "keyboard"
	KindNetwork   DetectionKind = "network"
	KindUninstall DetectionKind = "uninstall"
)

const (
	// DefaultScreenInterval is how often the screen is captured and analyzed.
	DefaultScreenInterval = 60 * time.Second

	// DefaultNetworkInterval is how often connectivity is checked.
	DefaultNetworkInterval = 60 * time.Second

	// OfflineThreshold is how long the device may stay offline before the guardian is told.
	OfflineThreshold = 24 * time.Hour

	// ShutdownDelay gives the alert a chance to leave before strict mode powers off.
	ShutdownDelay = 5 * time.Second

	// MaxExcerptLength caps the content excerpt carried in a detection.
	MaxExcerptLength = 100
)

// MonitoringConfig is fixed for the lifetime of a running agent.
// Changing it requires Stop + Start.
type MonitoringConfig struct {
	ScreenInterval  time.Duration
	NetworkInterval time.Duration
	KeyboardEnabled bool
	StrictMode      bool
	GuardianAddress string
}

// WithDefaults fills zero intervals with their defaults.
func (c MonitoringConfig) WithDefaults() MonitoringConfig {
	if c.ScreenInterval <= 0 {
		c.ScreenInterval = DefaultScreenInterval
	}
	if c.NetworkInterval <= 0 {
		c.NetworkInterval = DefaultNetworkInterval
	}
	return c
}

// Detection is a single classified event. It is consumed once by the dispatcher.
type Detection struct {
	ID              string        `json:"id"`
	Kind            DetectionKind `json:"kind"`
	IsInappropriate bool          `json:"is_inappropriate"`
	Confidence      float64       `json:"confidence"`
	Reason          string        `json:"reason"`
	Timestamp       time.Time     `json:"timestamp"`
	Content         string        `json:"content,omitempty"`
}

// NewDetection stamps a detection with a fresh ID. The ID keeps counter
// increments idempotent when a persistence write is retried.
func NewDetection(kind DetectionKind, confidence float64, reason string, at time.Time) Detection {
	return Detection{
		ID:              uuid.NewString(),
		Kind:            kind,
		IsInappropriate: true,
		Confidence:      confidence,
		Reason:          reason,
		Timestamp:       at,
	}
}

// ClassificationResult is the pure output of the classifier.
type ClassificationResult struct {
	IsInappropriate bool    `json:"is_inappropriate"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
}

// ImageData is a single captured frame.
type ImageData struct {
	Bytes      []byte
	Format     string // "png", "jpeg"
	CapturedAt time.Time
}

// NetworkState tracks connectivity for the offline alert.
// AlertSent is set at most once per uninterrupted offline span.
type NetworkState struct {
	LastOnline time.Time
	AlertSent  bool
}

// InputEventType distinguishes raw keystrokes from field snapshots.
type InputEventType int

const (
	InputKeystroke InputEventType = iota
	InputFieldChange
)

// FieldType names the kind of input control a snapshot came from.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldSearch   FieldType = "search"
	FieldTextArea FieldType = "textarea"
)

// InputEvent is delivered by the host's input source.
type InputEvent struct {
	Type  InputEventType
	Key   string    // InputKeystroke: the key as reported by the host
	Value string    // InputFieldChange: current field value
	Field FieldType // InputFieldChange: field kind
}

// AgentState is the persisted liveness record shown by the status command.
type AgentState struct {
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	StrictMode    bool      `json:"strict_mode"`
	AppVersion    string    `json:"app_version,omitempty"`
}

// DeviceInfo describes the monitored machine for alert bodies.
type DeviceInfo struct {
	Hostname        string
	Platform        string
	PlatformVersion string
	KernelArch      string
}

// Excerpt returns at most n leading runes of s.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Tail returns at most n trailing runes of s.
func Tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
