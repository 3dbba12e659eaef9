// Package fixtures provides test doubles shared by unit and integration tests.
package fixtures

import (
	"sort"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// FakeClock is a manually advanced domain.Clock.
// Tickers drop ticks their reader has not consumed, like time.Ticker.
// Timer callbacks run synchronously inside Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
	changed chan struct{}
}

// NewFakeClock creates a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, changed: make(chan struct{})}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker registers a ticker firing every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) domain.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{
		clock:  c,
		ch:     make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	c.notifyLocked()
	return t
}

// AfterFunc schedules f after d of fake time.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	c.notifyLocked()
	return t
}

// Advance moves time forward by d, firing due tickers and timers in time order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		at, fire := c.nextEventLocked(target)
		if fire == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = at
		c.mu.Unlock()

		fire()
	}
}

// ActiveTickers returns the number of tickers not yet stopped.
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// PendingTimers returns the number of scheduled callbacks not yet run or stopped.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// WaitForTickers blocks until at least n tickers are registered or timeout elapses.
func (c *FakeClock) WaitForTickers(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		c.mu.Lock()
		if len(c.tickers) >= n {
			c.mu.Unlock()
			return true
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return false
		}
	}
}

func (c *FakeClock) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// nextEventLocked pops the earliest event due at or before target.
func (c *FakeClock) nextEventLocked(target time.Time) (time.Time, func()) {
	sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })

	var (
		best   time.Time
		fire   func()
		ticker *fakeTicker
	)

	for _, t := range c.tickers {
		if t.next.After(target) {
			continue
		}
		if ticker == nil || t.next.Before(best) {
			ticker = t
			best = t.next
		}
	}

	if len(c.timers) > 0 && !c.timers[0].at.After(target) && (ticker == nil || !best.Before(c.timers[0].at)) {
		t := c.timers[0]
		c.timers = c.timers[1:]
		return t.at, t.f
	}

	if ticker != nil {
		at := ticker.next
		ticker.next = ticker.next.Add(ticker.period)
		fire = func() {
			select {
			case ticker.ch <- at:
			default:
			}
		}
		return at, fire
	}

	return time.Time{}, nil
}

type fakeTicker struct {
	clock  *FakeClock
	ch     chan time.Time
	period time.Duration
	next   time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	for i, other := range t.clock.tickers {
		if other == t {
			t.clock.tickers = append(t.clock.tickers[:i], t.clock.tickers[i+1:]...)
			t.clock.notifyLocked()
			return
		}
	}
}

type fakeTimer struct {
	clock *FakeClock
	at    time.Time
	f     func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	for i, other := range t.clock.timers {
		if other == t {
			t.clock.timers = append(t.clock.timers[:i], t.clock.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Ensure FakeClock implements domain.Clock.
var _ domain.Clock = (*FakeClock)(nil)
