// Package ff1 implements the FF1 Feistel construction of NIST Special
// Publication 800-38G: Methods for Format-Preserving Encryption.
//
// A round function built from a single AES-ECB block with cyclic index
// wrapping round-trips correctly but does not match NIST's published
// test vectors, since the real construction is a CBC-MAC-based PRF.
// This package follows NIST's pseudocode step for step so that it is
// bit-compatible with the CAVP sample vectors (see ff1_test.go).
//
// FF1 operates on digit vectors in a single radix; the surrounding
// dataset context (package ffs) is responsible for converting between
// the caller's alphabet and the digit vector this package consumes, and
// for distinguishing an input alphabet from an output alphabet.
package ff1

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"math"
	"math/big"

	"github.com/vdparikh/ffs/ffserr"
)

const (
	// MinRadix and MaxRadix bound the digit radix FF1 operates over.
	MinRadix = 2
	MaxRadix = 1 << 16

	// MinLen is the minimum message length for which a Feistel split
	// into two non-empty halves is possible.
	MinLen = 2
	// MaxLen matches NIST's bound of 2^32-1; in practice bounded far
	// lower by available memory.
	MaxLen = 1<<32 - 1

	// rounds is fixed by NIST SP 800-38G at 10 for FF1.
	rounds = 10

	// domainFloor is the minimum radix^length this implementation
	// enforces. NIST SP 800-38G's published recommendation is
	// radix^minlen >= 1,000,000; this is relaxed to 100 so small test
	// alphabets (e.g. a 2-digit numeric core) remain usable rather than
	// rejected outright, while still refusing genuinely tiny domains
	// that make brute-force recovery trivial. See DESIGN.md.
	domainFloor = 100
)

// Cipher is an FF1 instance bound to one AES key and input radix. The
// AES key schedule is expanded once at construction (NewCipher) so the
// hot path (Encrypt/Decrypt) never re-derives it; a Cipher holds no
// mutable state and is safe for concurrent use.
type Cipher struct {
	block cipher.Block
	radix int
}

// NewCipher builds an FF1 Cipher for the given AES key (16, 24, or 32
// bytes) and digit radix.
func NewCipher(key []byte, radix int) (*Cipher, error) {
	if radix < MinRadix || radix > MaxRadix {
		return nil, fmt.Errorf("ff1: radix %d out of range [%d,%d]: %w", radix, MinRadix, MaxRadix, ffserr.ErrAlphabetTooSmall)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ff1: %w: %s", ffserr.ErrMalformedInput, err)
	}
	return &Cipher{block: block, radix: radix}, nil
}

// checkLen validates that a message of the given length forms a valid
// FF1 domain: splittable into two non-empty halves, and at least the
// configured domain floor.
func (c *Cipher) checkLen(n int) error {
	if n < MinLen || n > MaxLen {
		return fmt.Errorf("ff1: message length %d out of range [%d,%d]: %w", n, MinLen, MaxLen, ffserr.ErrInvalidCharacter)
	}
	domain := new(big.Int).Exp(big.NewInt(int64(c.radix)), big.NewInt(int64(n)), nil)
	if domain.Cmp(big.NewInt(domainFloor)) < 0 {
		return fmt.Errorf("ff1: radix^length = %s below minimum domain size %d: %w", domain, domainFloor, ffserr.ErrAlphabetTooSmall)
	}
	return nil
}

// Encrypt runs the 10-round FF1 Feistel construction forward over a
// digit vector X (each element in [0,radix)), using tweak T.
func (c *Cipher) Encrypt(x []uint16, tweak []byte) ([]uint16, error) {
	return c.cipher(x, tweak, true)
}

// Decrypt runs FF1 in reverse, recovering the plaintext digit vector
// from a ciphertext digit vector produced by Encrypt with the same key,
// radix, and tweak.
func (c *Cipher) Decrypt(x []uint16, tweak []byte) ([]uint16, error) {
	return c.cipher(x, tweak, false)
}

func (c *Cipher) cipher(x []uint16, tweak []byte, forward bool) ([]uint16, error) {
	n := len(x)
	if err := c.checkLen(n); err != nil {
		return nil, err
	}
	for _, digit := range x {
		if int(digit) >= c.radix {
			return nil, fmt.Errorf("ff1: digit %d out of range for radix %d: %w", digit, c.radix, ffserr.ErrInvalidCharacter)
		}
	}

	u := n / 2
	v := n - u
	t := len(tweak)

	// b and d are derived once from v (the larger-or-equal half) and
	// held fixed across all 10 rounds, per NIST 6.2.1 Algorithm 7.
	b := byteLen(v, c.radix)
	d := 4*((b+3)/4) + 4
	p := c.buildP(n, t, u)

	radixBig := big.NewInt(int64(c.radix))
	modU := new(big.Int).Exp(radixBig, big.NewInt(int64(u)), nil)
	modV := new(big.Int).Exp(radixBig, big.NewInt(int64(v)), nil)

	a := append([]uint16(nil), x[:u]...)
	bb := append([]uint16(nil), x[u:]...)

	for round := 0; round < rounds; round++ {
		i := round
		if !forward {
			i = rounds - 1 - round
		}

		var modulus *big.Int
		var m int
		if i%2 == 0 {
			modulus, m = modU, u
		} else {
			modulus, m = modV, v
		}

		var feed []uint16
		if forward {
			feed = bb
		} else {
			feed = a
		}

		y, err := c.roundValue(p, tweak, i, feed, b, d)
		if err != nil {
			return nil, err
		}
		y.Mod(y, modulus)

		if forward {
			sum := new(big.Int).Add(numRadix(a, c.radix), y)
			sum.Mod(sum, modulus)
			a, bb = bb, strRadix(sum, c.radix, m)
		} else {
			diff := new(big.Int).Sub(numRadix(bb, c.radix), y)
			diff.Mod(diff, modulus)
			bb, a = a, strRadix(diff, c.radix, m)
		}
	}

	out := make([]uint16, n)
	copy(out, a)
	copy(out[len(a):], bb)
	return out, nil
}

// buildP constructs the fixed 16-byte P block bound into every round's
// CBC-MAC: version 1, method 2, addition 1, radix (3 bytes), round
// count (10), u mod 256, message length n (4 bytes), and tweak length t
// (4 bytes).
func (c *Cipher) buildP(n, t, u int) []byte {
	p := make([]byte, 16)
	p[0] = 1
	p[1] = 2
	p[2] = 1
	p[3] = byte(c.radix >> 16)
	p[4] = byte(c.radix >> 8)
	p[5] = byte(c.radix)
	p[6] = rounds
	p[7] = byte(u % 256)
	putUint32(p[8:12], uint32(n))
	putUint32(p[12:16], uint32(t))
	return p
}

// roundValue computes NIST's F(i, tweak, B): builds Q for round i and
// operand digit-vector feed, runs the CBC-MAC/counter-extension PRF,
// and returns NUM(S) as a big integer.
func (c *Cipher) roundValue(p []byte, tweak []byte, round int, feed []uint16, b, d int) (*big.Int, error) {
	t := len(tweak)
	feedBytes := numToFixedBytes(numRadix(feed, c.radix), b)

	// Q = T || pad(0) || [round]_1 || [NUM_radix(feed)]_b, padded so
	// that len(T)+pad+1+b is a multiple of the AES block size.
	q := make([]byte, 0, t+1+b+16)
	q = append(q, tweak...)
	q = append(q, make([]byte, mod16(-t-b-1))...)
	q = append(q, byte(round))
	q = append(q, feedBytes...)

	pq := make([]byte, 0, len(p)+len(q))
	pq = append(pq, p...)
	pq = append(pq, q...)

	r, err := c.cbcMAC(pq)
	if err != nil {
		return nil, err
	}

	s := c.streamExtend(r, d)
	return new(big.Int).SetBytes(s[:d]), nil
}

// cbcMAC computes CBC-MAC of msg (which must already be a multiple of
// the AES block size) using a zero IV, returning only the final block.
// This is NIST's PRF primitive, Algorithm 6.
func (c *Cipher) cbcMAC(msg []byte) ([]byte, error) {
	if len(msg)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ff1: internal: PRF input not block aligned: %w", ffserr.ErrMalformedInput)
	}
	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(c.block, iv)
	out := make([]byte, len(msg))
	mode.CryptBlocks(out, msg)
	return out[len(out)-aes.BlockSize:], nil
}

// streamExtend extends R into at least d bytes of pseudorandom output
// by ECB-encrypting R XOR [j]_16 for successive 16-byte big-endian
// counters j = 1, 2, ..., exactly as NIST step 6.iii specifies.
func (c *Cipher) streamExtend(r []byte, d int) []byte {
	out := make([]byte, 0, d+aes.BlockSize)
	out = append(out, r...)
	for j := uint64(1); len(out) < d; j++ {
		block := make([]byte, aes.BlockSize)
		copy(block, r)
		xorCounter(block, j)
		enc := make([]byte, aes.BlockSize)
		c.block.Encrypt(enc, block)
		out = append(out, enc...)
	}
	return out
}

func xorCounter(block []byte, j uint64) {
	for i := 0; i < 8; i++ {
		block[len(block)-1-i] ^= byte(j >> (8 * i))
	}
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func mod16(x int) int {
	m := x % 16
	if m < 0 {
		m += 16
	}
	return m
}

// byteLen returns the number of bytes needed to hold the NUM_radix
// encoding of a vector of the given length in the given radix:
// ceil(ceil(length*log2(radix))/8).
func byteLen(length, radix int) int {
	if length == 0 {
		return 0
	}
	bits := math.Ceil(float64(length) * math.Log2(float64(radix)))
	return int(math.Ceil(bits / 8))
}

// numRadix computes NUM_radix(X): the integer value of a digit vector
// treated as a base-radix numeral, most-significant digit first.
func numRadix(x []uint16, radix int) *big.Int {
	n := new(big.Int)
	r := big.NewInt(int64(radix))
	for _, dgt := range x {
		n.Mul(n, r)
		n.Add(n, big.NewInt(int64(dgt)))
	}
	return n
}

// strRadix is the inverse of numRadix: renders n as exactly length
// digits, zero padded on the left.
func strRadix(n *big.Int, radix, length int) []uint16 {
	out := make([]uint16, length)
	r := big.NewInt(int64(radix))
	rem := new(big.Int)
	rest := new(big.Int).Set(n)
	for i := length - 1; i >= 0; i-- {
		rest.DivMod(rest, r, rem)
		out[i] = uint16(rem.Int64())
	}
	return out
}

// numToFixedBytes renders n as exactly nBytes big-endian bytes.
func numToFixedBytes(n *big.Int, nBytes int) []byte {
	raw := n.Bytes()
	if len(raw) >= nBytes {
		return raw[len(raw)-nBytes:]
	}
	out := make([]byte, nBytes)
	copy(out[nBytes-len(raw):], raw)
	return out
}
