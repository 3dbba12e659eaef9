package infra

import (
	"time"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// RealClock implements domain.Clock with the time package.
type RealClock struct{}

// NewRealClock returns the wall clock.
func NewRealClock() RealClock {
	return RealClock{}
}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker.
func (RealClock) NewTicker(d time.Duration) domain.Ticker {
	return realTicker{time.NewTicker(d)}
}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Ensure RealClock implements domain.Clock.
var _ domain.Clock = RealClock{}
