// Package location converts byte offsets in JSON source to line and column
// positions.
package location

import (
	"fmt"
	"unicode/utf8"
)

// Location represents a position in the source JSON.
// Line and Column are 1-indexed; Column counts characters, not bytes.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// FromOffset returns the position of the last byte a decoder consumed when
// it reported offset, which is where encoding/json syntax errors point.
// Offsets past the end of input are clamped to the last byte.
func FromOffset(input []byte, offset int64) Location {
	end := int(offset) - 1
	if end >= len(input) {
		end = len(input) - 1
	}

	loc := Location{Line: 1, Column: 1}
	for i := 0; i < end; i++ {
		switch {
		case input[i] == '\n':
			loc.Line++
			loc.Column = 1
		case utf8.RuneStart(input[i]):
			loc.Column++
		}
	}
	// a multi-byte character ending before end was counted at its first byte
	if end > 0 && !utf8.RuneStart(input[end]) {
		loc.Column--
	}
	return loc
}
