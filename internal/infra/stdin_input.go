package infra

import (
	"bufio"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

const inputEventBuffer = 64

// Named keys reported for control bytes.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyTab       = "Tab"
	KeyEscape    = "Escape"
)

const ctrlC = 0x03

// ReaderInputSource implements domain.InputSource over a byte stream.
// In keystroke mode every rune is one keystroke, as from a terminal in raw
// mode. In line mode every line is one text-field snapshot, as from a pipe.
type ReaderInputSource struct {
	r         io.Reader
	keystroke bool
	logger    *zap.Logger

	once   sync.Once
	events chan domain.InputEvent
	done   chan struct{}
}

// NewKeystrokeSource reads raw keystrokes from r. Ctrl-C ends the stream.
func NewKeystrokeSource(r io.Reader, logger *zap.Logger) *ReaderInputSource {
	return &ReaderInputSource{r: r, keystroke: true, logger: logger, done: make(chan struct{})}
}

// NewLineSource reads one field snapshot per line from r.
func NewLineSource(r io.Reader, logger *zap.Logger) *ReaderInputSource {
	return &ReaderInputSource{r: r, logger: logger, done: make(chan struct{})}
}

// Events starts reading on first call. The channel closes at end of input.
func (s *ReaderInputSource) Events() <-chan domain.InputEvent {
	s.once.Do(func() {
		s.events = make(chan domain.InputEvent, inputEventBuffer)
		if s.keystroke {
			go s.readKeystrokes()
		} else {
			go s.readLines()
		}
	})
	return s.events
}

// Done is closed once the stream has ended.
func (s *ReaderInputSource) Done() <-chan struct{} {
	return s.done
}

func (s *ReaderInputSource) readKeystrokes() {
	defer close(s.events)
	defer close(s.done)

	br := bufio.NewReader(s.r)
	for {
		r, _, err := br.ReadRune()
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("input read failed", zap.Error(err))
			}
			return
		}
		if r == ctrlC {
			return
		}
		s.events <- domain.InputEvent{Type: domain.InputKeystroke, Key: keyName(r)}
	}
}

func (s *ReaderInputSource) readLines() {
	defer close(s.events)
	defer close(s.done)

	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		s.events <- domain.InputEvent{
			Type:  domain.InputFieldChange,
			Field: domain.FieldText,
			Value: scanner.Text(),
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("input read failed", zap.Error(err))
	}
}

func keyName(r rune) string {
	switch r {
	case '\r', '\n':
		return KeyEnter
	case 0x7f, 0x08:
		return KeyBackspace
	case '\t':
		return KeyTab
	case 0x1b:
		return KeyEscape
	}
	return string(r)
}

// Ensure ReaderInputSource implements domain.InputSource.
var _ domain.InputSource = (*ReaderInputSource)(nil)
