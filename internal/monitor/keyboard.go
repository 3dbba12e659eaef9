package monitor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/policy"
)

const (
	// typingConfidence is reported for a keyword found in the typing buffer.
	typingConfidence = 0.8

	// fieldConfidence is reported for an exact keyword token in an input field.
	fieldConfidence = 0.9

	// typingExcerptLength is how much of the buffer tail a typing detection carries.
	typingExcerptLength = 50
)

// KeyboardMonitor scans typed characters and input-field snapshots for keywords.
// The typing path matches substrings of the whole buffer; the field path matches
// whole tokens only.
type KeyboardMonitor struct {
	vocab   *policy.Vocabulary
	handler domain.DetectionHandler
	clock   domain.Clock
	logger  *zap.Logger

	mu     sync.Mutex
	buffer *KeyboardBuffer
}

// NewKeyboardMonitor creates a keyboard monitor over vocab.
func NewKeyboardMonitor(
	vocab *policy.Vocabulary,
	handler domain.DetectionHandler,
	clock domain.Clock,
	logger *zap.Logger,
) *KeyboardMonitor {
	return &KeyboardMonitor{
		vocab:   vocab,
		handler: handler,
		clock:   clock,
		logger:  logger,
		buffer:  NewKeyboardBuffer(),
	}
}

// Run consumes events from src until ctx is canceled or the source closes.
func (m *KeyboardMonitor) Run(ctx context.Context, src domain.InputSource) error {
	events := src.Events()
	m.logger.Info("keyboard monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("keyboard monitor stopping")
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				m.logger.Info("input source closed")
				return nil
			}
			switch ev.Type {
			case domain.InputKeystroke:
				m.HandleKeystroke(ctx, ev.Key)
			case domain.InputFieldChange:
				m.HandleFieldChange(ctx, ev.Field, ev.Value)
			}
		}
	}
}

// HandleKeystroke appends a printable key to the buffer and rescans it.
// It reports whether a detection was raised; the buffer is cleared when one is.
func (m *KeyboardMonitor) HandleKeystroke(ctx context.Context, key string) bool {
	if !isPrintableKey(key) {
		return false
	}

	m.mu.Lock()
	m.buffer.Append(key)
	text := m.buffer.String()
	keyword, found := m.vocab.FirstKeywordIn(text)
	if found {
		m.buffer.Reset()
	}
	m.mu.Unlock()

	if !found {
		return false
	}

	det := domain.NewDetection(domain.KindKeyboard, typingConfidence,
		fmt.Sprintf("Inappropriate keyword detected in typing: %q", keyword), m.clock.Now())
	det.Content = domain.Tail(text, typingExcerptLength)

	m.logger.Info("keyword detected in typing", zap.String("keyword", keyword))
	m.handler.Handle(ctx, det)
	return true
}

// HandleFieldChange checks each whitespace token of a text, search or
// multi-line field for an exact keyword. It reports whether a detection was raised.
func (m *KeyboardMonitor) HandleFieldChange(ctx context.Context, field domain.FieldType, value string) bool {
	switch field {
	case domain.FieldText, domain.FieldSearch, domain.FieldTextArea:
	default:
		return false
	}

	for _, token := range tokenize(value) {
		if !m.vocab.HasKeyword(token) {
			continue
		}

		det := domain.NewDetection(domain.KindKeyboard, fieldConfidence,
			fmt.Sprintf("Inappropriate search term detected: %q", token), m.clock.Now())
		det.Content = domain.Excerpt(value, domain.MaxExcerptLength)

		m.logger.Info("keyword detected in input field",
			zap.String("field", string(field)),
			zap.String("keyword", token))
		m.handler.Handle(ctx, det)
		return true
	}

	return false
}

// Buffered returns the current typing buffer.
func (m *KeyboardMonitor) Buffered() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffer.String()
}
