// Package imcontext implements the stateful input contexts built on
// top of a dictionary, decoder and language model: PinyinContext for
// phonetic (Pinyin/Shuangpin) input, TableContext for shape-code
// ("Wubi"-style) input.
package imcontext

import "unicode/utf8"

// inputBuffer is a minimal cursor-tracked ASCII text buffer, the
// shared piece of state both PinyinContext and TableContext build on
// top of. It mirrors the narrow slice of fcitx's InputBuffer contract
// these contexts actually use: type/erase mutate the buffer and
// report whether anything changed, the cursor clamps to [0, size].
type inputBuffer struct {
	text   string
	cursor int
}

// Type appends s at the end of the buffer and advances the cursor,
// returning false if s is empty.
func (b *inputBuffer) Type(s string) bool {
	if s == "" {
		return false
	}
	b.text += s
	b.cursor = len(b.text)
	return true
}

// Erase removes text[from:to], clamping the cursor back into range.
func (b *inputBuffer) Erase(from, to int) {
	if from >= to {
		return
	}
	if to > len(b.text) {
		to = len(b.text)
	}
	b.text = b.text[:from] + b.text[to:]
	if b.cursor > from {
		if b.cursor >= to {
			b.cursor -= to - from
		} else {
			b.cursor = from
		}
	}
}

// SetCursor moves the cursor, clamping to the buffer's size.
func (b *inputBuffer) SetCursor(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(b.text) {
		pos = len(b.text)
	}
	b.cursor = pos
}

func (b *inputBuffer) Cursor() int  { return b.cursor }
func (b *inputBuffer) Size() int    { return len(b.text) }
func (b *inputBuffer) Empty() bool  { return b.text == "" }
func (b *inputBuffer) String() string { return b.text }

func (b *inputBuffer) clear() {
	b.text = ""
	b.cursor = 0
}

// runeLen is utf8.RuneCountInString, named to match the byte-vs-rune
// distinction both contexts need to track (a shape code's length cap
// is measured in runes, its buffer offsets in bytes).
func runeLen(s string) int { return utf8.RuneCountInString(s) }
