package fixtures

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// FakeCapturer returns a fixed frame. Set Gate to hold captures until it is closed.
type FakeCapturer struct {
	mu            sync.Mutex
	PermissionErr error
	CaptureErr    error
	Gate          chan struct{}
	captures      int
	permissions   int
}

func (c *FakeCapturer) RequestPermission(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissions++
	return c.PermissionErr
}

func (c *FakeCapturer) Capture(ctx context.Context) (domain.ImageData, error) {
	c.mu.Lock()
	gate := c.Gate
	err := c.CaptureErr
	c.captures++
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.ImageData{}, err
	}
	return domain.ImageData{Bytes: []byte("\x89PNG"), Format: "png", CapturedAt: time.Now()}, nil
}

// Captures returns how many captures were attempted.
func (c *FakeCapturer) Captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures
}

// PermissionRequests returns how many times permission was asked for.
func (c *FakeCapturer) PermissionRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permissions
}

// FakeDescriber returns Description for every frame.
type FakeDescriber struct {
	mu          sync.Mutex
	Description string
}

func (d *FakeDescriber) Describe(ctx context.Context, img domain.ImageData) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Description
}

// SetDescription changes what later frames are described as.
func (d *FakeDescriber) SetDescription(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Description = s
}

// FakeProbe reports a settable connectivity state. It starts online.
type FakeProbe struct {
	mu      sync.Mutex
	offline bool
}

func (p *FakeProbe) IsOnline(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.offline
}

// SetOnline changes the reported state.
func (p *FakeProbe) SetOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = !online
}

// FakeInput is an input source fed by the test.
type FakeInput struct {
	ch chan domain.InputEvent
}

// NewFakeInput creates an input source with a buffered stream.
func NewFakeInput() *FakeInput {
	return &FakeInput{ch: make(chan domain.InputEvent, 256)}
}

func (i *FakeInput) Events() <-chan domain.InputEvent {
	return i.ch
}

// Type sends each rune of s as a keystroke.
func (i *FakeInput) Type(s string) {
	for _, r := range s {
		i.ch <- domain.InputEvent{Type: domain.InputKeystroke, Key: string(r)}
	}
}

// Field sends a field snapshot.
func (i *FakeInput) Field(field domain.FieldType, value string) {
	i.ch <- domain.InputEvent{Type: domain.InputFieldChange, Field: field, Value: value}
}

// FakeUninstall records listeners and fires them on demand.
type FakeUninstall struct {
	mu        sync.Mutex
	callbacks map[int]func()
	next      int
}

func (u *FakeUninstall) OnUninstallAttempt(cb func()) func() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.callbacks == nil {
		u.callbacks = make(map[int]func())
	}
	id := u.next
	u.next++
	u.callbacks[id] = cb
	return func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		delete(u.callbacks, id)
	}
}

// Fire calls every registered listener.
func (u *FakeUninstall) Fire() {
	u.mu.Lock()
	cbs := make([]func(), 0, len(u.callbacks))
	for _, cb := range u.callbacks {
		cbs = append(cbs, cb)
	}
	u.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// Listeners returns the number of registered listeners.
func (u *FakeUninstall) Listeners() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.callbacks)
}

// ErrTransient is what MemoryCounter returns for injected failures.
var ErrTransient = errors.New("transient counter failure")

// MemoryCounter is an in-memory domain.CounterStore with the same
// last-ID idempotency as the real stores.
type MemoryCounter struct {
	mu       sync.Mutex
	count    int64
	lastID   string
	failures int
	closed   bool
}

// FailNext makes the next n increments fail.
func (c *MemoryCounter) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = n
}

func (c *MemoryCounter) Increment(ctx context.Context, detectionID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return 0, ErrTransient
	}
	if detectionID != "" && detectionID == c.lastID {
		return c.count, nil
	}
	c.count++
	c.lastID = detectionID
	return c.count, nil
}

func (c *MemoryCounter) Count(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, nil
}

func (c *MemoryCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Value returns the count without a context.
func (c *MemoryCounter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// SentAlert is one recorded alert.
type SentAlert struct {
	To      string
	Subject string
	Body    string
}

// RecordingAlerts records alerts and optionally fails them.
type RecordingAlerts struct {
	mu   sync.Mutex
	Err  error
	sent []SentAlert
}

func (a *RecordingAlerts) SendAlert(ctx context.Context, to, subject, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, SentAlert{To: to, Subject: subject, Body: body})
	return a.Err
}

// Sent returns the attempted alerts.
func (a *RecordingAlerts) Sent() []SentAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]SentAlert(nil), a.sent...)
}

// RecordingDevice counts shutdowns and when they happened on Clock.
type RecordingDevice struct {
	mu    sync.Mutex
	Clock domain.Clock
	at    []time.Time
}

func (d *RecordingDevice) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var now time.Time
	if d.Clock != nil {
		now = d.Clock.Now()
	}
	d.at = append(d.at, now)
	return nil
}

// Shutdowns returns how many shutdowns ran.
func (d *RecordingDevice) Shutdowns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.at)
}

// ShutdownTimes returns when each shutdown ran.
func (d *RecordingDevice) ShutdownTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.at...)
}

// RecordingUI records notified detections.
type RecordingUI struct {
	mu   sync.Mutex
	dets []domain.Detection
}

func (u *RecordingUI) Notify(ctx context.Context, d domain.Detection) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dets = append(u.dets, d)
	return nil
}

// Detections returns what the UI has seen.
func (u *RecordingUI) Detections() []domain.Detection {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]domain.Detection(nil), u.dets...)
}

// MemoryState is an in-memory domain.StateStore.
type MemoryState struct {
	mu    sync.Mutex
	state *domain.AgentState
	saves int
}

func (s *MemoryState) SaveState(state domain.AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	s.saves++
	return nil
}

func (s *MemoryState) LoadState() (*domain.AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	st := *s.state
	return &st, nil
}

// Saves returns how many times state was written.
func (s *MemoryState) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// StaticDeviceInfo returns a fixed description.
type StaticDeviceInfo domain.DeviceInfo

func (s StaticDeviceInfo) DeviceInfo() domain.DeviceInfo {
	return domain.DeviceInfo(s)
}

var (
	_ domain.ScreenCapturer     = (*FakeCapturer)(nil)
	_ domain.ImageDescriber     = (*FakeDescriber)(nil)
	_ domain.ConnectivityProbe  = (*FakeProbe)(nil)
	_ domain.InputSource        = (*FakeInput)(nil)
	_ domain.UninstallNotifier  = (*FakeUninstall)(nil)
	_ domain.CounterStore       = (*MemoryCounter)(nil)
	_ domain.AlertSender        = (*RecordingAlerts)(nil)
	_ domain.DeviceController   = (*RecordingDevice)(nil)
	_ domain.UINotifier         = (*RecordingUI)(nil)
	_ domain.StateStore         = (*MemoryState)(nil)
	_ domain.DeviceInfoProvider = StaticDeviceInfo{}
)
