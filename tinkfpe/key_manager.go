// Package tinkfpe adapts package ffs's dataset Context to Tink's
// registry.KeyManager/keyset.Handle machinery, so an embedding
// application that already manages its secrets through Tink can drive
// FF1 tokenization the same way it drives any other Tink primitive.
//
// A Tink KeyData's raw Value bytes are treated as a JSON-encoded
// wireKeyMaterial carrying a full ffs.Definition and ffs.KeySet, since
// an ffs.Context needs an alphabet pair and rule set alongside the key
// bytes to do anything; KeyData.Value is an opaque byte string by
// design, so that's exactly where this encoding lives.
package tinkfpe

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/tink/go/core/registry"
	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/proto/tink_go_proto"
	"google.golang.org/protobuf/proto"

	"github.com/vdparikh/ffs/ffs"
	"github.com/vdparikh/ffs/log"
	"github.com/vdparikh/ffs/rule"
)

const (
	// FPEKeyTypeURL is the type URL registered for ffs-backed FPE keys.
	FPEKeyTypeURL = "type.googleapis.com/vdparikh.ffs.DatasetKey"
)

// wireKeyMaterial is the JSON shape stored in a Tink KeyData's Value
// field: an ffs.Definition plus its raw key bytes, hex-encoded because
// protobuf/JSON round-tripping of a map[int][]byte is awkward.
type wireKeyMaterial struct {
	Name               string            `json:"name"`
	Algorithm          string            `json:"algorithm"`
	InputCharacterSet  string            `json:"input_character_set"`
	OutputCharacterSet string            `json:"output_character_set"`
	Passthrough        string            `json:"passthrough"`
	TweakHex           string            `json:"tweak_hex"`
	TweakMinLen        int               `json:"tweak_min_len"`
	TweakMaxLen        int               `json:"tweak_max_len"`
	MSBEncodingBits    int               `json:"msb_encoding_bits"`
	Rules              []wireRule        `json:"rules"`
	RawKeysHex         map[string]string `json:"raw_keys_hex"`
	CurrentKeyNumber   int               `json:"current_key_number"`
	CurrentKeyOnly     bool              `json:"current_key_only"`
}

type wireRule struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Priority int    `json:"priority"`
}

// KeyManager implements registry.KeyManager, returning an *ffs.Context
// as its primitive.
type KeyManager struct {
	typeURL string
	logger  log.Logger
}

// KeyManagerOption configures optional KeyManager behavior.
type KeyManagerOption func(*KeyManager)

// WithLogger injects l as the KeyManager's logger. Without this option
// the KeyManager logs nothing.
func WithLogger(l log.Logger) KeyManagerOption {
	return func(km *KeyManager) { km.logger = l }
}

// NewKeyManager builds a KeyManager for FPEKeyTypeURL.
func NewKeyManager(opts ...KeyManagerOption) *KeyManager {
	km := &KeyManager{typeURL: FPEKeyTypeURL, logger: log.Noop}
	for _, opt := range opts {
		opt(km)
	}
	return km
}

// Primitive decodes serializedKey as a wireKeyMaterial and constructs
// the corresponding ffs.Context.
func (km *KeyManager) Primitive(serializedKey []byte) (interface{}, error) {
	def, keys, err := decodeWireKeyMaterial(serializedKey)
	if err != nil {
		km.logger.Error(err).Message("decoding key material failed")
		return nil, err
	}
	km.logger.Field("dataset", def.Name).Field("key_number", keys.CurrentKeyNumber).Message("built ffs context from keyset")
	return ffs.NewContext(def, keys)
}

// DoesSupport reports whether typeURL is the one this KeyManager
// handles.
func (km *KeyManager) DoesSupport(typeURL string) bool {
	return typeURL == km.typeURL
}

// TypeURL returns the type URL this KeyManager is registered under.
func (km *KeyManager) TypeURL() string {
	return km.typeURL
}

// NewKey is unsupported: an ffs dataset key needs an alphabet pair and
// rule set that a bare key-size template cannot express. Callers build
// key material with NewKeysetHandleFromDataset instead.
func (km *KeyManager) NewKey(serializedKeyTemplate []byte) (proto.Message, error) {
	return nil, fmt.Errorf("tinkfpe: NewKey unsupported, use NewKeysetHandleFromDataset")
}

// NewKeyData is unsupported for the same reason as NewKey.
func (km *KeyManager) NewKeyData(serializedKeyTemplate []byte) (*tink_go_proto.KeyData, error) {
	return nil, fmt.Errorf("tinkfpe: NewKeyData unsupported, use NewKeysetHandleFromDataset")
}

var _ registry.KeyManager = (*KeyManager)(nil)

func encodeWireKeyMaterial(def ffs.Definition, keys ffs.KeySet) ([]byte, error) {
	rules := make([]wireRule, 0, len(def.Rules))
	for _, r := range def.Rules {
		rules = append(rules, wireRule{Type: string(r.Type), Value: r.Value, Priority: r.Priority})
	}
	rawKeysHex := make(map[string]string, len(keys.RawKeys))
	for num, raw := range keys.RawKeys {
		rawKeysHex[fmt.Sprintf("%d", num)] = hex.EncodeToString(raw)
	}
	w := wireKeyMaterial{
		Name:               def.Name,
		Algorithm:          string(def.Algorithm),
		InputCharacterSet:  def.InputCharacterSet,
		OutputCharacterSet: def.OutputCharacterSet,
		Passthrough:        def.Passthrough,
		TweakHex:           hex.EncodeToString(def.Tweak),
		TweakMinLen:        def.TweakMinLen,
		TweakMaxLen:        def.TweakMaxLen,
		MSBEncodingBits:    def.MSBEncodingBits,
		Rules:              rules,
		RawKeysHex:         rawKeysHex,
		CurrentKeyNumber:   keys.CurrentKeyNumber,
		CurrentKeyOnly:     keys.CurrentKeyOnly,
	}
	return json.Marshal(w)
}

func decodeWireKeyMaterial(serialized []byte) (ffs.Definition, ffs.KeySet, error) {
	var w wireKeyMaterial
	if err := json.Unmarshal(serialized, &w); err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("tinkfpe: decoding key material: %w", err)
	}

	tweak, err := hex.DecodeString(w.TweakHex)
	if err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("tinkfpe: tweak_hex: %w", err)
	}

	rules := make([]rule.Rule, 0, len(w.Rules))
	for _, r := range w.Rules {
		rules = append(rules, rule.Rule{Type: rule.Type(r.Type), Value: r.Value, Priority: r.Priority})
	}

	def := ffs.Definition{
		Name:               w.Name,
		Algorithm:          ffs.Algorithm(w.Algorithm),
		InputCharacterSet:  w.InputCharacterSet,
		OutputCharacterSet: w.OutputCharacterSet,
		Passthrough:        w.Passthrough,
		Tweak:              tweak,
		TweakMinLen:        w.TweakMinLen,
		TweakMaxLen:        w.TweakMaxLen,
		MSBEncodingBits:    w.MSBEncodingBits,
		Rules:              rules,
	}

	rawKeys := make(map[int][]byte, len(w.RawKeysHex))
	for numStr, keyHex := range w.RawKeysHex {
		var num int
		if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
			return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("tinkfpe: key number %q: %w", numStr, err)
		}
		raw, err := hex.DecodeString(keyHex)
		if err != nil {
			return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("tinkfpe: key %d hex: %w", num, err)
		}
		rawKeys[num] = raw
	}

	keys := ffs.KeySet{
		RawKeys:          rawKeys,
		CurrentKeyNumber: w.CurrentKeyNumber,
		CurrentKeyOnly:   w.CurrentKeyOnly,
	}
	return def, keys, nil
}

// NewKeysetHandleFromDataset builds an unencrypted Tink keyset.Handle
// wrapping def and keys, suitable for registry.KeyManager.Primitive via
// New. The KeyData Value carries the full dataset rather than a bare
// AES key.
func NewKeysetHandleFromDataset(def ffs.Definition, keys ffs.KeySet) (*keyset.Handle, error) {
	serialized, err := encodeWireKeyMaterial(def, keys)
	if err != nil {
		return nil, err
	}

	keyIDBytes := make([]byte, 4)
	if _, err := rand.Read(keyIDBytes); err != nil {
		return nil, fmt.Errorf("tinkfpe: generating key ID: %w", err)
	}
	keyID := binary.BigEndian.Uint32(keyIDBytes)

	keyData := &tink_go_proto.KeyData{
		TypeUrl:         FPEKeyTypeURL,
		Value:           serialized,
		KeyMaterialType: 2, // SYMMETRIC
	}
	keysetKey := &tink_go_proto.Keyset_Key{
		KeyData:          keyData,
		KeyId:            keyID,
		Status:           tink_go_proto.KeyStatusType_ENABLED,
		OutputPrefixType: tink_go_proto.OutputPrefixType_RAW,
	}
	ks := &tink_go_proto.Keyset{
		PrimaryKeyId: keyID,
		Key:          []*tink_go_proto.Keyset_Key{keysetKey},
	}

	buf := &keyset.MemReaderWriter{Keyset: ks}
	return insecurecleartextkeyset.Read(buf)
}
