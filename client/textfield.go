package client

import (
	"sync"
	"unicode"
)

// MaxSpeechRunes caps the speech text field.
const MaxSpeechRunes = 160

// TextField is the single-line speech input. Runes are appended at the end.
type TextField struct {
	mu    sync.Mutex
	runes []rune
}

// Insert appends rs, dropping control characters and anything past
// MaxSpeechRunes.
func (f *TextField) Insert(rs ...rune) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rs {
		if len(f.runes) >= MaxSpeechRunes {
			return
		}
		if unicode.IsControl(r) {
			continue
		}
		f.runes = append(f.runes, r)
	}
}

// InsertString appends s.
func (f *TextField) InsertString(s string) {
	f.Insert([]rune(s)...)
}

// Backspace removes the last rune.
func (f *TextField) Backspace() {
	f.mu.Lock()
	if n := len(f.runes); n > 0 {
		f.runes = f.runes[:n-1]
	}
	f.mu.Unlock()
}

// Value returns the current text.
func (f *TextField) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.runes)
}

// Clear empties the field.
func (f *TextField) Clear() {
	f.mu.Lock()
	f.runes = f.runes[:0]
	f.mu.Unlock()
}
