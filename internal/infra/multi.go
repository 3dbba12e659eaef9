package infra

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// MultiAlertSender delivers every alert through each transport.
// It fails only when all transports fail.
type MultiAlertSender struct {
	senders []domain.AlertSender
}

// NewMultiAlertSender combines senders; nil entries are dropped.
func NewMultiAlertSender(senders ...domain.AlertSender) *MultiAlertSender {
	m := &MultiAlertSender{}
	for _, s := range senders {
		if s != nil {
			m.senders = append(m.senders, s)
		}
	}
	return m
}

// Len returns the number of transports.
func (m *MultiAlertSender) Len() int {
	return len(m.senders)
}

// SendAlert tries every transport.
func (m *MultiAlertSender) SendAlert(ctx context.Context, to, subject, body string) error {
	if len(m.senders) == 0 {
		return fmt.Errorf("no alert transport configured")
	}

	var errs error
	delivered := 0
	for _, s := range m.senders {
		if err := s.SendAlert(ctx, to, subject, body); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return errs
	}
	return nil
}

// MultiNotifier fans a detection out to every UI notifier and reports all failures.
type MultiNotifier struct {
	notifiers []domain.UINotifier
}

// NewMultiNotifier combines notifiers; nil entries are dropped.
func NewMultiNotifier(notifiers ...domain.UINotifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify calls every notifier.
func (m *MultiNotifier) Notify(ctx context.Context, d domain.Detection) error {
	var errs error
	for _, n := range m.notifiers {
		errs = multierr.Append(errs, n.Notify(ctx, d))
	}
	return errs
}

var (
	_ domain.AlertSender = (*MultiAlertSender)(nil)
	_ domain.UINotifier  = (*MultiNotifier)(nil)
)
