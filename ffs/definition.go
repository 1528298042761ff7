// Package ffs implements the dataset context that binds a data key and
// an alphabet pair to the FF1 cipher and the rule engine, built on
// packages bigradix, ff1, rule, and keynum.
//
// "FFS" is the Ubiq Security vocabulary this module is modeled on:
// Field Format Specification, a per-field encryption configuration
// record, sometimes called a Dataset.
package ffs

import (
	"fmt"

	"github.com/vdparikh/ffs/bigradix"
	"github.com/vdparikh/ffs/ffserr"
	"github.com/vdparikh/ffs/rule"
)

// Algorithm enumerates the structured-encryption algorithms a Definition
// may name. Only FF1 is implemented; any other value fails with
// ErrUnsupported at NewContext time.
type Algorithm string

const (
	AlgorithmFF1 Algorithm = "FF1"
)

// Definition is the immutable, per-dataset configuration record fetched
// from a key service and decoded from the wire shapes in package
// keyservice. It never holds key material.
type Definition struct {
	Name              string
	Algorithm         Algorithm
	InputCharacterSet string
	OutputCharacterSet string
	Passthrough       string
	Tweak             []byte
	TweakMinLen       int
	TweakMaxLen       int
	MSBEncodingBits   int
	Rules             []rule.Rule
}

// KeySet holds the unwrapped raw key bytes for every key number a
// Context must be able to decrypt, plus which one new encryptions use.
// RawKeys[i] must be populated for the current key number and for every
// key number any ciphertext the Context will see was encrypted under.
type KeySet struct {
	RawKeys          map[int][]byte
	CurrentKeyNumber int
	CurrentKeyOnly   bool
}

// alphabets bundles the two precomputed bigradix.Alphabet views a
// Definition needs; built once in NewContext.
type alphabets struct {
	input  *bigradix.Alphabet
	output *bigradix.Alphabet
}

func buildAlphabets(def Definition) (*alphabets, error) {
	in, err := bigradix.New(def.InputCharacterSet)
	if err != nil {
		return nil, fmt.Errorf("ffs: input_character_set: %w", err)
	}
	out, err := bigradix.New(def.OutputCharacterSet)
	if err != nil {
		return nil, fmt.Errorf("ffs: output_character_set: %w", err)
	}
	return &alphabets{input: in, output: out}, nil
}

// resolveTweak enforces that a provided tweak satisfies the dataset's
// configured length bounds; an absent one falls back to the dataset's
// default tweak, which must itself satisfy the bounds.
func (d Definition) resolveTweak(tweak []byte) ([]byte, error) {
	t := tweak
	if t == nil {
		t = d.Tweak
	}
	if len(t) < d.TweakMinLen || len(t) > d.TweakMaxLen {
		return nil, fmt.Errorf("ffs: tweak length %d outside [%d,%d]: %w", len(t), d.TweakMinLen, d.TweakMaxLen, ffserr.ErrTweakLength)
	}
	return t, nil
}
