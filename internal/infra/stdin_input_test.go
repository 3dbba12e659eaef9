package infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

func drain(src domain.InputSource) []domain.InputEvent {
	var out []domain.InputEvent
	for ev := range src.Events() {
		out = append(out, ev)
	}
	return out
}

func TestKeystrokeSource(t *testing.T) {
	src := NewKeystrokeSource(strings.NewReader("añ\r\x7f\tb"), zap.NewNop())

	events := drain(src)

	var keys []string
	for _, ev := range events {
		assert.Equal(t, domain.InputKeystroke, ev.Type)
		keys = append(keys, ev.Key)
	}
	assert.Equal(t, []string{"a", "ñ", KeyEnter, KeyBackspace, KeyTab, "b"}, keys)
}

func TestKeystrokeSource_CtrlCEndsStream(t *testing.T) {
	src := NewKeystrokeSource(strings.NewReader("ab\x03cd"), zap.NewNop())

	events := drain(src)

	assert.Len(t, events, 2)
}

func TestLineSource(t *testing.T) {
	src := NewLineSource(strings.NewReader("hola mundo\nbuscar porn\n"), zap.NewNop())

	events := drain(src)

	assert.Equal(t, []domain.InputEvent{
		{Type: domain.InputFieldChange, Field: domain.FieldText, Value: "hola mundo"},
		{Type: domain.InputFieldChange, Field: domain.FieldText, Value: "buscar porn"},
	}, events)
}

func TestReaderInputSource_EventsIsStable(t *testing.T) {
	src := NewLineSource(strings.NewReader(""), zap.NewNop())

	assert.Equal(t, src.Events(), src.Events())
}

func TestReaderInputSource_Done(t *testing.T) {
	src := NewKeystrokeSource(strings.NewReader("a\x03"), zap.NewNop())

	drain(src)

	select {
	case <-src.Done():
	default:
		t.Fatal("Done not closed after end of input")
	}
}
