package ffs

import (
	"errors"
	"testing"

	"github.com/vdparikh/ffs/ffserr"
	"github.com/vdparikh/ffs/rule"
)

func key(b byte, n int) []byte {
	k := make([]byte, n)
	for i := range k {
		k[i] = b
	}
	return k
}

// TestSSNSingleKeyRoundTrip covers a numeric-SSN scenario: a single
// current key, no rules beyond the implicit passthrough, decimal in
// and out alphabets.
func TestSSNSingleKeyRoundTrip(t *testing.T) {
	def := Definition{
		Name:               "ssn",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "-",
		Tweak:              []byte{},
		TweakMinLen:        0,
		TweakMaxLen:        0,
		MSBEncodingBits:    0,
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x11, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	ct, err := ctx.Encrypt("123456789", nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ct) != len("123456789") {
		t.Fatalf("ciphertext length = %d, want %d", len(ct), len("123456789"))
	}
	pt, err := ctx.Decrypt(ct, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != "123456789" {
		t.Fatalf("round trip = %q, want %q", pt, "123456789")
	}
}

// TestAlphanumericSSNWithKeyShift covers an alphanumeric output alphabet
// with msb_encoding_bits=1, verifying Decrypt recovers the key number
// from the ciphertext alone.
func TestAlphanumericSSNWithKeyShift(t *testing.T) {
	def := Definition{
		Name:               "ssn-an",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789abcdefghijklmnopqrstuv", // radix 32 >= 2*10
		Passthrough:        "-",
		MSBEncodingBits:    1,
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x22, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	ct, err := ctx.Encrypt("987654321", nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := ctx.Decrypt(ct, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != "987654321" {
		t.Fatalf("round trip = %q, want %q", pt, "987654321")
	}
}

// TestBirthDateWithPrefixRule covers a prefix rule splitting off a
// fixed-width literal (e.g. a century marker) before ciphering the rest.
func TestBirthDateWithPrefixRule(t *testing.T) {
	def := Definition{
		Name:               "birthdate",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "-",
		Rules: []rule.Rule{
			{Type: rule.Prefix, Value: "2", Priority: 1},
		},
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x33, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	plaintext := "19900601"
	ct, err := ctx.Encrypt(plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ct[:2] != "19" {
		t.Fatalf("ciphertext prefix = %q, want %q preserved", ct[:2], "19")
	}
	pt, err := ctx.Decrypt(ct, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != plaintext {
		t.Fatalf("round trip = %q, want %q", pt, plaintext)
	}
}

// TestUTF8PassthroughFidelity covers non-ASCII passthrough characters
// (e.g. an em-dash-like separator) surviving Encrypt/Decrypt unchanged.
func TestUTF8PassthroughFidelity(t *testing.T) {
	def := Definition{
		Name:               "utf8-passthrough",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "—",
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x44, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	plaintext := "123—456—78" // em-dash separators outside the alphabet
	ct, err := ctx.Encrypt(plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ctRunes := []rune(ct); ctRunes[3] != '—' || ctRunes[7] != '—' {
		t.Fatalf("ciphertext separators not preserved: %q", ct)
	}
	pt, err := ctx.Decrypt(ct, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != plaintext {
		t.Fatalf("round trip = %q, want %q", pt, plaintext)
	}
}

// TestTwoKeySearchMode covers EncryptForSearch returning one ciphertext
// per known key, ascending by key number, with the current key's entry
// matching plain Encrypt.
func TestTwoKeySearchMode(t *testing.T) {
	def := Definition{
		Name:               "search",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789abcdefghijklmnopqrstuv", // radix 32 >= 2*10
		Passthrough:        "-",
		MSBEncodingBits:    1,
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys: map[int][]byte{
			0: key(0x55, 16),
			1: key(0x66, 16),
		},
		CurrentKeyNumber: 1,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	plaintext := "555666777"
	results, err := ctx.EncryptForSearch(plaintext, nil)
	if err != nil {
		t.Fatalf("EncryptForSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	direct, err := ctx.Encrypt(plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if results[1] != direct {
		t.Fatalf("results[CurrentKeyNumber] = %q, want %q (== Encrypt result)", results[1], direct)
	}

	for _, ct := range results {
		pt, err := ctx.Decrypt(ct, nil)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", ct, err)
		}
		if pt != plaintext {
			t.Fatalf("Decrypt(%q) = %q, want %q", ct, pt, plaintext)
		}
	}
}

// TestSearchRequiresAllKeysRejected covers current-key-only contexts
// refusing EncryptForSearch.
func TestSearchRequiresAllKeysRejected(t *testing.T) {
	def := Definition{
		Name:               "current-only",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "0123456789",
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x77, 16)},
		CurrentKeyNumber: 0,
		CurrentKeyOnly:   true,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	if _, err := ctx.EncryptForSearch("123456789", nil); !errors.Is(err, ffserr.ErrSearchRequiresAllKeys) {
		t.Fatalf("EncryptForSearch error = %v, want ErrSearchRequiresAllKeys", err)
	}
}

// TestEncryptRejectsInvalidCharacter covers a plaintext core character
// outside the input alphabet after rule stripping.
func TestEncryptRejectsInvalidCharacter(t *testing.T) {
	def := Definition{
		Name:               "digits-only",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "",
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x88, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	if _, err := ctx.Encrypt("12a45", nil); !errors.Is(err, ffserr.ErrInvalidCharacter) {
		t.Fatalf("Encrypt error = %v, want ErrInvalidCharacter", err)
	}
}

func TestDecryptUnknownKeyNumber(t *testing.T) {
	def := Definition{
		Name:               "unknown-key",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789abcdefghijklmnopqrstuv",
		Passthrough:        "-",
		MSBEncodingBits:    1,
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0x99, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	ct, err := ctx.Encrypt("135792468", nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ctx.Destroy()

	ctx2, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{1: key(0xAA, 16)},
		CurrentKeyNumber: 1,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx2.Destroy()
	if _, err := ctx2.Decrypt(ct, nil); !errors.Is(err, ffserr.ErrKeyUnavailable) {
		t.Fatalf("Decrypt error = %v, want ErrKeyUnavailable", err)
	}
}

func TestDestroyedContextRejectsOperations(t *testing.T) {
	def := Definition{
		Name:               "destroyed",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "0123456789",
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0xBB, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	ctx.Destroy()
	ctx.Destroy() // idempotent

	if _, err := ctx.Encrypt("123456789", nil); err == nil {
		t.Fatal("expected error encrypting on a destroyed context")
	}
}

func TestTweakOutsideBoundsRejected(t *testing.T) {
	def := Definition{
		Name:               "tweak-bounds",
		Algorithm:          AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "0123456789",
		TweakMinLen:        4,
		TweakMaxLen:        8,
		Tweak:              []byte{1, 2, 3, 4},
	}
	ctx, err := NewContext(def, KeySet{
		RawKeys:          map[int][]byte{0: key(0xCC, 16)},
		CurrentKeyNumber: 0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	if _, err := ctx.Encrypt("123456789", []byte{1, 2}); !errors.Is(err, ffserr.ErrTweakLength) {
		t.Fatalf("Encrypt error = %v, want ErrTweakLength", err)
	}
}
