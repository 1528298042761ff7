package ffs

import (
	"fmt"

	"github.com/vdparikh/ffs/bigradix"
	"github.com/vdparikh/ffs/ffserr"
)

// digitsFromString maps each rune of s to its digit value in a, in the
// range [0, a.Radix()). Used to hand a core string to ff1.Cipher, which
// operates on digit vectors rather than alphabet strings directly.
func digitsFromString(a *bigradix.Alphabet, s string) ([]uint16, error) {
	runes := []rune(s)
	out := make([]uint16, len(runes))
	for i, r := range runes {
		d := a.IndexOf(r)
		if d < 0 {
			return nil, fmt.Errorf("ffs: %q: %w", r, ffserr.ErrInvalidCharacter)
		}
		out[i] = uint16(d)
	}
	return out, nil
}

// stringFromDigits is the inverse of digitsFromString: renders a digit
// vector as a string of a's symbols at those positions.
func stringFromDigits(a *bigradix.Alphabet, digits []uint16) string {
	out := make([]rune, len(digits))
	for i, d := range digits {
		out[i] = a.DigitAt(int(d))
	}
	return string(out)
}
