// Package monitor implements the screen, keyboard and network monitors.
package monitor

import (
	"strings"
	"unicode"
)

const (
	// bufferCapacity is the length past which the typing buffer is truncated.
	bufferCapacity = 1000

	// bufferRetain is how many trailing characters survive truncation.
	bufferRetain = 500
)

// KeyboardBuffer accumulates recently typed characters.
// Past bufferCapacity it keeps only the trailing bufferRetain characters.
// Not safe for concurrent use; KeyboardMonitor guards it.
type KeyboardBuffer struct {
	runes []rune
}

// NewKeyboardBuffer creates an empty buffer.
func NewKeyboardBuffer() *KeyboardBuffer {
	return &KeyboardBuffer{runes: make([]rune, 0, bufferCapacity+1)}
}

// Append adds the lower-cased printable characters of s.
func (b *KeyboardBuffer) Append(s string) {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			continue
		}
		b.runes = append(b.runes, unicode.ToLower(r))
		if len(b.runes) > bufferCapacity {
			kept := b.runes[len(b.runes)-bufferRetain:]
			b.runes = append(b.runes[:0], kept...)
		}
	}
}

// String returns the buffer contents.
func (b *KeyboardBuffer) String() string {
	return string(b.runes)
}

// Len returns the number of characters held.
func (b *KeyboardBuffer) Len() int {
	return len(b.runes)
}

// Reset empties the buffer.
func (b *KeyboardBuffer) Reset() {
	b.runes = b.runes[:0]
}

// isPrintableKey reports whether a host key name denotes a single printable character.
// Named keys such as "Enter" or "Shift" are ignored.
func isPrintableKey(key string) bool {
	r := []rune(key)
	return len(r) == 1 && unicode.IsPrint(r[0])
}

// tokenize lower-cases s and splits it on whitespace.
func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
