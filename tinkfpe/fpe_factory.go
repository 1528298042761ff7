package tinkfpe

import (
	"fmt"

	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"

	"github.com/vdparikh/ffs/ffs"
)

// FPE is the Tink-shaped primitive this package exposes: Tokenize and
// Detokenize backed by an ffs.Context rather than a bare FF1 instance,
// so key rotation and rule-based formatting come along for free.
type FPE interface {
	Tokenize(plaintext string) (string, error)
	Detokenize(tokenized string) (string, error)
}

// New extracts the dataset key material embedded in handle's primary
// key and builds an FPE primitive over it. handle is expected to have
// been produced by NewKeysetHandleFromDataset (or any keyset whose
// primary key's KeyData.Value is a wireKeyMaterial blob for
// FPEKeyTypeURL).
func New(handle *keyset.Handle) (FPE, error) {
	if handle == nil {
		return nil, fmt.Errorf("tinkfpe: keyset handle cannot be nil")
	}

	info := handle.KeysetInfo()
	primaryKeyID := info.GetPrimaryKeyId()

	ks := insecurecleartextkeyset.KeysetMaterial(handle)
	var serialized []byte
	for _, k := range ks.Key {
		if k.KeyId != primaryKeyID {
			continue
		}
		if k.KeyData == nil || k.KeyData.TypeUrl != FPEKeyTypeURL {
			continue
		}
		serialized = k.KeyData.Value
		break
	}
	if serialized == nil {
		return nil, fmt.Errorf("tinkfpe: no %s key found for primary key ID %d", FPEKeyTypeURL, primaryKeyID)
	}

	manager := NewKeyManager()
	primitive, err := manager.Primitive(serialized)
	if err != nil {
		return nil, fmt.Errorf("tinkfpe: building context: %w", err)
	}
	ctx, ok := primitive.(*ffs.Context)
	if !ok {
		return nil, fmt.Errorf("tinkfpe: unexpected primitive type %T", primitive)
	}
	return &fpeImpl{ctx: ctx}, nil
}

type fpeImpl struct {
	ctx *ffs.Context
}

// Tokenize encrypts plaintext under the dataset's current key.
func (f *fpeImpl) Tokenize(plaintext string) (string, error) {
	return f.ctx.Encrypt(plaintext, nil)
}

// Detokenize reverses Tokenize. No original-plaintext hint is needed:
// the key number is recovered from the ciphertext itself via
// ctx.Decrypt.
func (f *fpeImpl) Detokenize(tokenized string) (string, error) {
	return f.ctx.Decrypt(tokenized, nil)
}

var _ FPE = (*fpeImpl)(nil)
