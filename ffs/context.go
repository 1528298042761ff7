package ffs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/vdparikh/ffs/ff1"
	"github.com/vdparikh/ffs/ffserr"
	"github.com/vdparikh/ffs/keynum"
	"github.com/vdparikh/ffs/rule"
)

// Context is a dataset definition bound to an unwrapped key set. It is
// immutable after NewContext returns and holds no mutable state across
// calls, so the same Context may be used concurrently by any number of
// callers.
type Context struct {
	def       Definition
	alphabets *alphabets
	rules     *rule.Engine

	ciphers  map[int]*ff1.Cipher
	enclaves map[int]*memguard.Enclave

	currentKeyNumber int
	currentKeyOnly   bool

	destroyOnce sync.Once
	destroyed   bool
	mu          sync.RWMutex
}

// NewContext validates def and keys and precomputes one ff1.Cipher per
// key number so Encrypt/Decrypt never touch the AES key schedule on the
// hot path.
func NewContext(def Definition, keys KeySet) (*Context, error) {
	if def.Algorithm != AlgorithmFF1 {
		return nil, fmt.Errorf("ffs: algorithm %q: %w", def.Algorithm, ffserr.ErrUnsupported)
	}

	ab, err := buildAlphabets(def)
	if err != nil {
		return nil, err
	}

	// |output|^L >= |input|^L for every core length L reduces, for
	// monotonic exponentiation, to |output| >= |input|.
	if ab.output.Radix() < ab.input.Radix() {
		return nil, fmt.Errorf("ffs: output alphabet (%d symbols) smaller than input alphabet (%d symbols): %w", ab.output.Radix(), ab.input.Radix(), ffserr.ErrAlphabetTooSmall)
	}

	// Key-number encoding capacity.
	required := keynum.RequiredOutputRadix(ab.input.Radix(), def.MSBEncodingBits)
	if ab.output.Radix() < required {
		return nil, fmt.Errorf("ffs: output alphabet (%d symbols) cannot hold key-number shift of %d bits over input radix %d (needs >= %d symbols): %w",
			ab.output.Radix(), def.MSBEncodingBits, ab.input.Radix(), required, ffserr.ErrAlphabetTooSmall)
	}

	if len(keys.RawKeys) == 0 {
		return nil, fmt.Errorf("ffs: %w: empty key set", ffserr.ErrMalformedInput)
	}
	if _, ok := keys.RawKeys[keys.CurrentKeyNumber]; !ok {
		return nil, fmt.Errorf("ffs: current key number %d: %w", keys.CurrentKeyNumber, ffserr.ErrKeyUnavailable)
	}
	if keys.CurrentKeyOnly && len(keys.RawKeys) != 1 {
		return nil, fmt.Errorf("ffs: %w: current_key_only set but %d keys provided", ffserr.ErrMalformedInput, len(keys.RawKeys))
	}

	ciphers := make(map[int]*ff1.Cipher, len(keys.RawKeys))
	enclaves := make(map[int]*memguard.Enclave, len(keys.RawKeys))
	for num, raw := range keys.RawKeys {
		cipher, cerr := ff1.NewCipher(raw, ab.input.Radix())
		if cerr != nil {
			return nil, fmt.Errorf("ffs: key %d: %w", num, cerr)
		}
		ciphers[num] = cipher
		// The enclave holds an encrypted-at-rest copy of the raw key so
		// key bytes do not sit in plaintext for the Context's lifetime;
		// Destroy drops these references.
		enclaves[num] = memguard.NewEnclave(append([]byte(nil), raw...))
	}

	return &Context{
		def:              def,
		alphabets:        ab,
		rules:            rule.New(def.Rules, def.Passthrough),
		ciphers:          ciphers,
		enclaves:         enclaves,
		currentKeyNumber: keys.CurrentKeyNumber,
		currentKeyOnly:   keys.CurrentKeyOnly,
	}, nil
}

// Destroy releases the Context's key material. It is idempotent and
// safe to call from any goroutine; operations on a destroyed Context
// return an error. The underlying memguard.Enclave values are left to
// their own finalizers to wipe once unreferenced. memguard provides no
// API to force-wipe a single enclave without tearing down the whole
// process-wide guarded-memory pool, which would affect unrelated
// Contexts (see DESIGN.md).
func (c *Context) Destroy() {
	c.destroyOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.destroyed = true
		c.ciphers = nil
		c.enclaves = nil
	})
}

func (c *Context) checkAlive() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.destroyed {
		return fmt.Errorf("ffs: %w: context destroyed", ffserr.ErrMalformedInput)
	}
	return nil
}

// Encrypt tokenizes plaintext under the dataset's current key.
func (c *Context) Encrypt(plaintext string, tweak []byte) (string, error) {
	if err := c.checkAlive(); err != nil {
		return "", err
	}
	resolvedTweak, err := c.def.resolveTweak(tweak)
	if err != nil {
		return "", err
	}
	return c.encryptWithKey(plaintext, resolvedTweak, c.currentKeyNumber)
}

// Decrypt reverses Encrypt, inferring the key number from the
// ciphertext's embedded key-number symbol.
func (c *Context) Decrypt(ciphertext string, tweak []byte) (string, error) {
	if err := c.checkAlive(); err != nil {
		return "", err
	}
	resolvedTweak, err := c.def.resolveTweak(tweak)
	if err != nil {
		return "", err
	}

	placeholder := c.alphabets.output.DigitAt(0)
	core, steps, err := c.rules.Apply(ciphertext, placeholder)
	if err != nil {
		return "", fmt.Errorf("ffs: decrypt: %w", err)
	}

	unshifted, keyNum, err := keynum.Decode(c.alphabets.output, core, c.def.MSBEncodingBits)
	if err != nil {
		return "", fmt.Errorf("ffs: decrypt: %w", err)
	}

	cipher, ok := c.ciphers[keyNum]
	if !ok {
		return "", fmt.Errorf("ffs: decrypt: key %d: %w", keyNum, ffserr.ErrKeyUnavailable)
	}

	ctDigits, err := digitsFromString(c.alphabets.output, unshifted)
	if err != nil {
		return "", fmt.Errorf("ffs: decrypt: %w", err)
	}
	ptDigits, err := cipher.Decrypt(ctDigits, resolvedTweak)
	if err != nil {
		return "", fmt.Errorf("ffs: decrypt: %w", err)
	}
	ptCore := stringFromDigits(c.alphabets.input, ptDigits)

	plaintext, err := c.rules.Unapply(ptCore, steps)
	if err != nil {
		return "", fmt.Errorf("ffs: decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptForSearch emits one ciphertext per cached key, in ascending
// key-number order, with result[CurrentKeyNumber] == Encrypt(plaintext).
// The current key's own ciphertext is included rather than skipped, so
// an equality search built from this result set always finds rows
// encrypted under the current key too.
func (c *Context) EncryptForSearch(plaintext string, tweak []byte) ([]string, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	if c.currentKeyOnly {
		return nil, fmt.Errorf("ffs: encrypt_for_search: %w", ffserr.ErrSearchRequiresAllKeys)
	}
	resolvedTweak, err := c.def.resolveTweak(tweak)
	if err != nil {
		return nil, err
	}

	keyNums := make([]int, 0, len(c.ciphers))
	for k := range c.ciphers {
		keyNums = append(keyNums, k)
	}
	sort.Ints(keyNums)

	out := make([]string, len(keyNums))
	for i, k := range keyNums {
		ct, err := c.encryptWithKey(plaintext, resolvedTweak, k)
		if err != nil {
			return nil, fmt.Errorf("ffs: encrypt_for_search: key %d: %w", k, err)
		}
		out[i] = ct
	}
	return out, nil
}

func (c *Context) encryptWithKey(plaintext string, tweak []byte, keyNumber int) (string, error) {
	cipher, ok := c.ciphers[keyNumber]
	if !ok {
		return "", fmt.Errorf("ffs: encrypt: key %d: %w", keyNumber, ffserr.ErrKeyUnavailable)
	}

	placeholder := c.alphabets.output.DigitAt(0)
	core, steps, err := c.rules.Apply(plaintext, placeholder)
	if err != nil {
		return "", fmt.Errorf("ffs: encrypt: %w", err)
	}

	ptDigits, err := digitsFromString(c.alphabets.input, core)
	if err != nil {
		return "", fmt.Errorf("ffs: encrypt: %w", err)
	}
	ctDigits, err := cipher.Encrypt(ptDigits, tweak)
	if err != nil {
		return "", fmt.Errorf("ffs: encrypt: %w", err)
	}
	ctCore := stringFromDigits(c.alphabets.output, ctDigits)

	embedded, err := keynum.Encode(c.alphabets.output, ctCore, keyNumber, c.def.MSBEncodingBits)
	if err != nil {
		return "", fmt.Errorf("ffs: encrypt: %w", err)
	}

	ciphertext, err := c.rules.Unapply(embedded, steps)
	if err != nil {
		return "", fmt.Errorf("ffs: encrypt: %w", err)
	}
	return ciphertext, nil
}
