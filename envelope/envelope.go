// Package envelope implements the unstructured AES-GCM wrap format used
// outside the structured-encryption core: a small binary header, an
// IV, a wrapped data key, and a GCM-sealed payload. This is
// the legacy key-per-message format the structured FF1 path does not
// use internally; it exists for callers storing a data key alongside
// each ciphertext rather than fetching it from a dataset Context.
//
// Modeled on DataDog-go-secure-sdk's crypto/encryption/internal/d5
// package: fixed-width header and a Seal/Open pair around
// crypto/cipher's GCM mode.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/vdparikh/ffs/ffserr"
)

// Algorithm selects the AEAD and key-wrap sizes an envelope header
// describes.
type Algorithm byte

const (
	// AlgAES256GCM is the only algorithm this package implements: a
	// 12-byte IV and 16-byte GCM tag over AES-256.
	AlgAES256GCM Algorithm = 0
)

const (
	headerLen = 6 // ver, flags, alg, iv_len, key_len(2)
	version   = 1

	// flagAAD marks that the header+IV+wrapped-key prefix itself was
	// bound into the GCM authentication tag as additional data.
	flagAAD byte = 1 << 0
)

type algSpec struct {
	ivLen  int
	tagLen int
}

var algTable = map[Algorithm]algSpec{
	AlgAES256GCM: {ivLen: 12, tagLen: 16},
}

// Seal wraps dataKey under kek (the key-encryption key) and encrypts
// plaintext with dataKey under a freshly generated IV, producing the
// header||iv||wrappedKey||ciphertext+tag envelope. If bindHeader is
// true, the header/iv/wrappedKey prefix is included as GCM additional
// data and flagAAD is set so Open knows to reconstruct it.
func Seal(alg Algorithm, kek, dataKey, plaintext []byte, bindHeader bool) ([]byte, error) {
	spec, ok := algTable[alg]
	if !ok {
		return nil, fmt.Errorf("envelope: %w: unknown algorithm %d", ffserr.ErrUnsupported, alg)
	}

	wrappedKey, err := wrapKey(kek, dataKey)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, spec.ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("envelope: %w: generating IV: %s", ffserr.ErrMalformedInput, err)
	}

	flags := byte(0)
	if bindHeader {
		flags |= flagAAD
	}

	header := []byte{
		version,
		flags,
		byte(alg),
		byte(spec.ivLen),
		byte(len(wrappedKey) >> 8), byte(len(wrappedKey)),
	}

	prefix := make([]byte, 0, headerLen+len(iv)+len(wrappedKey))
	prefix = append(prefix, header...)
	prefix = append(prefix, iv...)
	prefix = append(prefix, wrappedKey...)

	var aad []byte
	if bindHeader {
		aad = prefix
	}

	block, err := aes.NewCipher(dataKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %s", ffserr.ErrMalformedInput, err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, spec.tagLen)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %s", ffserr.ErrMalformedInput, err)
	}

	out := make([]byte, 0, len(prefix)+len(plaintext)+gcm.Overhead())
	out = append(out, prefix...)
	out = gcm.Seal(out, iv, plaintext, aad)
	return out, nil
}

// Open reverses Seal: unwraps the embedded data key under kek, then
// opens the GCM-sealed payload. Returns ErrAuthFailed on tag mismatch
// (GCM open failure) and ErrMalformedInput on a truncated or
// unparseable envelope.
func Open(kek, envelope []byte) (plaintext []byte, dataKey []byte, err error) {
	if len(envelope) < headerLen {
		return nil, nil, fmt.Errorf("envelope: %w: shorter than header", ffserr.ErrMalformedInput)
	}
	if envelope[0] != version {
		return nil, nil, fmt.Errorf("envelope: %w: unsupported version %d", ffserr.ErrMalformedInput, envelope[0])
	}
	flags := envelope[1]
	alg := Algorithm(envelope[2])
	spec, ok := algTable[alg]
	if !ok {
		return nil, nil, fmt.Errorf("envelope: %w: unknown algorithm %d", ffserr.ErrUnsupported, alg)
	}
	ivLen := int(envelope[3])
	if ivLen != spec.ivLen {
		return nil, nil, fmt.Errorf("envelope: %w: iv_len %d does not match algorithm %d", ffserr.ErrMalformedInput, ivLen, alg)
	}
	keyLen := int(envelope[4])<<8 | int(envelope[5])

	rest := envelope[headerLen:]
	if len(rest) < ivLen+keyLen {
		return nil, nil, fmt.Errorf("envelope: %w: truncated iv/wrapped key", ffserr.ErrMalformedInput)
	}
	iv := rest[:ivLen]
	wrappedKey := rest[ivLen : ivLen+keyLen]
	ciphertext := rest[ivLen+keyLen:]

	dataKey, err = unwrapKey(kek, wrappedKey)
	if err != nil {
		return nil, nil, err
	}

	var aad []byte
	if flags&flagAAD != 0 {
		aad = envelope[:headerLen+ivLen+keyLen]
	}

	block, err := aes.NewCipher(dataKey)
	if err != nil {
		return nil, nil, fmt.Errorf("envelope: %w: %s", ffserr.ErrMalformedInput, err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, spec.tagLen)
	if err != nil {
		return nil, nil, fmt.Errorf("envelope: %w: %s", ffserr.ErrMalformedInput, err)
	}

	plaintext, err = gcm.Open(nil, iv, ciphertext, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("envelope: %w", ffserr.ErrAuthFailed)
	}
	return plaintext, dataKey, nil
}

// wrapKey and unwrapKey implement the simplest legal key wrap: AES-GCM
// of dataKey under kek with a random nonce stored ahead of the sealed
// key. This is the same
// unstructured AES-GCM primitive the envelope payload itself uses,
// reused rather than introducing a second wrap scheme (RFC 3394 AES-KW
// has no pack-grounded implementation; see DESIGN.md).
func wrapKey(kek, dataKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: kek: %s", ffserr.ErrMalformedInput, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %s", ffserr.ErrMalformedInput, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("envelope: %w: generating key-wrap nonce: %s", ffserr.ErrMalformedInput, err)
	}
	sealed := gcm.Seal(nil, nonce, dataKey, nil)
	return append(nonce, sealed...), nil
}

func unwrapKey(kek, wrapped []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: kek: %s", ffserr.ErrMalformedInput, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %s", ffserr.ErrMalformedInput, err)
	}
	if len(wrapped) < gcm.NonceSize() {
		return nil, fmt.Errorf("envelope: %w: wrapped key shorter than nonce", ffserr.ErrMalformedInput)
	}
	nonce, sealed := wrapped[:gcm.NonceSize()], wrapped[gcm.NonceSize():]
	dataKey, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: unwrapping key", ffserr.ErrAuthFailed)
	}
	return dataKey, nil
}
