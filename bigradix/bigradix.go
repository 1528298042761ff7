// Package bigradix implements the alphabet/radix conversion layer that
// underlies format-preserving encryption: converting a string drawn from
// an arbitrary ordered alphabet to a non-negative integer, and back to a
// fixed-length string in a (possibly different) alphabet.
//
// uint16-digit arithmetic silently wraps at 2^16 and cannot represent
// the arbitrary-precision values FF1 requires for long inputs; every
// operation here is backed by math/big instead.
package bigradix

import (
	"fmt"
	"math/big"

	"github.com/vdparikh/ffs/ffserr"
)

// Alphabet is a precomputed ordered digit alphabet: the rune at index i
// has digit value i. Building the reverse index once at construction
// time (rather than per call) is what lets Encrypt/Decrypt stay
// allocation-light on the hot path.
type Alphabet struct {
	digits []rune
	index  map[rune]int
}

// New builds an Alphabet from an ordered sequence of distinct runes.
// Returns ErrAlphabetTooSmall if the alphabet has fewer than 2 symbols,
// or ErrMalformedInput if a rune repeats.
func New(s string) (*Alphabet, error) {
	digits := []rune(s)
	if len(digits) < 2 {
		return nil, fmt.Errorf("bigradix: alphabet %q: %w", s, ffserr.ErrAlphabetTooSmall)
	}
	index := make(map[rune]int, len(digits))
	for i, r := range digits {
		if _, dup := index[r]; dup {
			return nil, fmt.Errorf("bigradix: alphabet %q has duplicate symbol %q: %w", s, r, ffserr.ErrMalformedInput)
		}
		index[r] = i
	}
	return &Alphabet{digits: digits, index: index}, nil
}

// Radix returns the number of symbols in the alphabet.
func (a *Alphabet) Radix() int { return len(a.digits) }

// Contains reports whether r is a symbol of the alphabet.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]
	return ok
}

// DigitAt returns the symbol whose digit value is i.
func (a *Alphabet) DigitAt(i int) rune { return a.digits[i] }

// IndexOf returns the digit value of r, or -1 if r is not a member.
func (a *Alphabet) IndexOf(r rune) int {
	if v, ok := a.index[r]; ok {
		return v
	}
	return -1
}

// StringToNumber treats s as a base-radix numeral, most-significant
// digit first, and returns its integer value. The empty string yields
// zero. Returns ErrInvalidCharacter if any rune of s is not a member of
// the alphabet.
func StringToNumber(a *Alphabet, s string) (*big.Int, error) {
	radix := big.NewInt(int64(a.Radix()))
	n := new(big.Int)
	for _, r := range s {
		d := a.IndexOf(r)
		if d < 0 {
			return nil, fmt.Errorf("bigradix: %q: %w", r, ffserr.ErrInvalidCharacter)
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(d)))
	}
	return n, nil
}

// NumberToString renders n as exactly length characters of a, zero
// padded on the left with a's digit-0 symbol. Returns ErrOverflow if n
// does not fit in length digits of this radix.
func NumberToString(a *Alphabet, n *big.Int, length int) (string, error) {
	if n.Sign() < 0 {
		return "", fmt.Errorf("bigradix: negative value: %w", ffserr.ErrOverflow)
	}
	capacity := new(big.Int).Exp(big.NewInt(int64(a.Radix())), big.NewInt(int64(length)), nil)
	if n.Cmp(capacity) >= 0 {
		return "", fmt.Errorf("bigradix: %s does not fit in %d digits of radix %d: %w", n, length, a.Radix(), ffserr.ErrOverflow)
	}

	radix := big.NewInt(int64(a.Radix()))
	rem := new(big.Int)
	rest := new(big.Int).Set(n)
	out := make([]rune, length)
	for i := length - 1; i >= 0; i-- {
		rest.DivMod(rest, radix, rem)
		out[i] = a.DigitAt(int(rem.Int64()))
	}
	return string(out), nil
}

// Convert re-expresses s, a numeral over src, as a numeral of the same
// length over dst. Length is always preserved: this is the mechanism
// that keeps ciphertext the same shape as plaintext across alphabets of
// different radix.
func Convert(src, dst *Alphabet, s string) (string, error) {
	n, err := StringToNumber(src, s)
	if err != nil {
		return "", err
	}
	return NumberToString(dst, n, len([]rune(s)))
}
