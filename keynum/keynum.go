// Package keynum implements key-number embedding: folding a small
// integer identifying which historical data key produced a ciphertext
// into the most-significant bits of the first output symbol.
//
// Built around an explicit bigradix.Alphabet rather than raw string
// indexing, so multi-byte alphabets (not just single-byte character
// sets) are handled correctly.
package keynum

import (
	"fmt"

	"github.com/vdparikh/ffs/bigradix"
	"github.com/vdparikh/ffs/ffserr"
)

// Encode replaces the first symbol of core with
// output[digit(core[0]) + keyNumber*(|output| >> shiftBits)], embedding
// keyNumber into that symbol's top shiftBits bits. Returns
// ErrAlphabetTooSmall if the digit does not fit below the key-number
// bits or the shifted index would fall outside the output alphabet.
func Encode(output *bigradix.Alphabet, core string, keyNumber, shiftBits int) (string, error) {
	runes := []rune(core)
	if len(runes) == 0 {
		return "", fmt.Errorf("keynum: %w: empty core", ffserr.ErrMalformedInput)
	}
	d := output.IndexOf(runes[0])
	if d < 0 {
		return "", fmt.Errorf("keynum: %q: %w", runes[0], ffserr.ErrInvalidCharacter)
	}
	block := output.Radix() >> uint(shiftBits)
	if d >= block {
		return "", fmt.Errorf("keynum: digit %d does not fit below %d key-number bits of a radix-%d output: %w", d, shiftBits, output.Radix(), ffserr.ErrAlphabetTooSmall)
	}
	encoded := d + keyNumber*block
	if encoded >= output.Radix() {
		return "", fmt.Errorf("keynum: key number %d needs output alphabet of size >= %d, have %d: %w", keyNumber, encoded+1, output.Radix(), ffserr.ErrAlphabetTooSmall)
	}
	runes[0] = output.DigitAt(encoded)
	return string(runes), nil
}

// Decode extracts the key number folded into core's first symbol and
// returns the core with that symbol restored to its unshifted digit.
func Decode(output *bigradix.Alphabet, core string, shiftBits int) (unshifted string, keyNumber int, err error) {
	runes := []rune(core)
	if len(runes) == 0 {
		return "", 0, fmt.Errorf("keynum: %w: empty core", ffserr.ErrMalformedInput)
	}
	e := output.IndexOf(runes[0])
	if e < 0 {
		return "", 0, fmt.Errorf("keynum: %q: %w", runes[0], ffserr.ErrInvalidCharacter)
	}
	block := output.Radix() >> uint(shiftBits)
	if block == 0 {
		return "", 0, fmt.Errorf("keynum: radix-%d output cannot hold %d key-number bits: %w", output.Radix(), shiftBits, ffserr.ErrAlphabetTooSmall)
	}
	keyNumber = e / block
	d := e % block
	runes[0] = output.DigitAt(d)
	return string(runes), keyNumber, nil
}

// RequiredOutputRadix returns the minimum output alphabet size needed
// to embed the 2^shiftBits key numbers 0..2^shiftBits-1 over an input
// alphabet of size inputRadix using shiftBits high bits:
// |output| >= |input| * 2^shiftBits.
func RequiredOutputRadix(inputRadix, shiftBits int) int {
	return inputRadix << uint(shiftBits)
}
