package keyservice

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // matching the legacy broker's OAEP hash under test
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnwrapDataKeyUnencryptedPKCS8(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	dataKey := []byte("0123456789abcdef")
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, &priv.PublicKey, dataKey, nil)
	require.NoError(t, err)

	got, err := UnwrapDataKey(pemBytes, nil, wrapped)
	require.NoError(t, err)
	require.Equal(t, dataKey, got)
}

func TestUnwrapDataKeyLegacyEncryptedPEM(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	passphrase := []byte("hunter2")
	der := x509.MarshalPKCS1PrivateKey(priv)
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", der, passphrase, x509.PEMCipherAES256) //nolint:staticcheck // exercising the legacy decrypt path this package still supports
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(block)

	dataKey := []byte("0123456789abcdef")
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, &priv.PublicKey, dataKey, nil)
	require.NoError(t, err)

	got, err := UnwrapDataKey(pemBytes, passphrase, wrapped)
	require.NoError(t, err)
	require.Equal(t, dataKey, got)
}

func TestUnwrapDataKeyRejectsMalformedPEM(t *testing.T) {
	_, err := UnwrapDataKey([]byte("not a pem block"), nil, nil)
	require.Error(t, err)
}
