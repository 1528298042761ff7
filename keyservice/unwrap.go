package keyservice

import (
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // legacy broker compatibility, see DESIGN.md
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"

	"github.com/vdparikh/ffs/ffserr"
)

// UnwrapDataKey recovers a dataset's raw FF1 key from a broker response:
// decrypt the broker's PEM-encoded, passphrase-protected private key,
// then use it to RSA-OAEP-SHA1 decrypt the wrapped data key. SHA-1 is
// the legacy broker's fixed OAEP hash: intentionally not upgraded,
// since changing it would break interoperability with datasets already
// wrapped under the deployed broker.
func UnwrapDataKey(encryptedPrivateKeyPEM, passphrase, wrappedDataKey []byte) ([]byte, error) {
	priv, err := decryptPrivateKey(encryptedPrivateKeyPEM, passphrase)
	if err != nil {
		return nil, err
	}
	dataKey, err := rsa.DecryptOAEP(sha1.New(), nil, priv, wrappedDataKey, nil)
	if err != nil {
		return nil, fmt.Errorf("keyservice: unwrapping data key: %w", ffserr.ErrAuthFailed)
	}
	return dataKey, nil
}

// decryptPrivateKey parses a PEM block holding the broker's private
// key, which is exported in one of two standard forms: a PKCS#8
// EncryptedPrivateKeyInfo (PBES2/PBKDF2 parameters carried in the DER
// itself, RFC 5958) or a traditional OpenSSL encrypted PEM (a
// Proc-Type/DEK-Info header pair, openssl rsa -des3 style). A block in
// neither encrypted form is parsed as an unencrypted PKCS#8 key, with
// the passphrase ignored; that case is tried last.
func decryptPrivateKey(encryptedPEM, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(encryptedPEM)
	if block == nil {
		return nil, fmt.Errorf("keyservice: %w: no PEM block found", ffserr.ErrMalformedInput)
	}

	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy broker export format
		der, err := x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck // legacy broker export format
		if err != nil {
			return nil, fmt.Errorf("keyservice: decrypting private key: %w", ffserr.ErrAuthFailed)
		}
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("keyservice: parsing decrypted private key: %w: %s", ffserr.ErrMalformedInput, err)
		}
		return key, nil
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("keyservice: decrypting private key: %w: %s", ffserr.ErrAuthFailed, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("keyservice: %w: private key is not RSA", ffserr.ErrMalformedInput)
		}
		return rsaKey, nil
	}

	// Not passphrase-protected: parse directly.
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keyservice: parsing private key: %w: %s", ffserr.ErrMalformedInput, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keyservice: %w: private key is not RSA", ffserr.ErrMalformedInput)
	}
	return rsaKey, nil
}
