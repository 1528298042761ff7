package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdparikh/ffs/ffs"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)

	def := ffs.Definition{
		Name:               "ssn",
		Algorithm:          ffs.AlgorithmFF1,
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "0123456789",
		TweakMinLen:        0,
		TweakMaxLen:        0,
	}
	keys := ffs.KeySet{
		RawKeys:          map[int][]byte{0: []byte("0123456789abcdef")},
		CurrentKeyNumber: 0,
	}

	require.NoError(t, c.Put("ssn", def, keys))

	gotDef, gotKeys, err := c.Get("ssn")
	require.NoError(t, err)
	require.Equal(t, def.Name, gotDef.Name)
	require.Equal(t, def.InputCharacterSet, gotDef.InputCharacterSet)
	require.Equal(t, keys.RawKeys[0], gotKeys.RawKeys[0])
}

func TestGetMissingDataset(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)

	_, _, err = c.Get("missing")
	require.Error(t, err)
}
