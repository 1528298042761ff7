// Package keyservice implements the out-of-core interface to a key
// broker: decoding the wire shapes a broker returns into
// ffs.Definition/ffs.KeySet, an HTTP client modeled on a Lambda/Azure
// function handler style, and the legacy RSA-OAEP-SHA1 key-unwrap
// primitive the broker's response key is wrapped under. None of this
// participates in the FF1 core; it exists so a caller has somewhere to
// get an ffs.Definition/ffs.KeySet from.
package keyservice

import (
	"encoding/base64"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/vdparikh/ffs/ffserr"
	"github.com/vdparikh/ffs/ffs"
	"github.com/vdparikh/ffs/rule"
)

// datasetWire is the untyped shape a broker's fetch_ffs-style endpoint
// returns for one dataset: the field names UBIQ_FFS_PARAMS lists in
// the Ubiq broker's fetch_ffs handler, plus rules for the format-rule
// list.
type datasetWire struct {
	Name               string     `mapstructure:"name"`
	Algorithm          string     `mapstructure:"encryption_algorithm"`
	InputCharacterSet  string     `mapstructure:"input_character_set"`
	OutputCharacterSet string     `mapstructure:"output_character_set"`
	Passthrough        string     `mapstructure:"passthrough"`
	TweakSourceB64     string     `mapstructure:"tweak"`
	TweakMinLen        int        `mapstructure:"tweak_min_len"`
	TweakMaxLen        int        `mapstructure:"tweak_max_len"`
	MSBEncodingBits    int        `mapstructure:"msb_encoding_bits"`
	Rules              []ruleWire `mapstructure:"rules"`
}

type ruleWire struct {
	Type     string `mapstructure:"type"`
	Value    string `mapstructure:"value"`
	Priority int    `mapstructure:"priority"`
}

// keyResponseWire is the fetch_fpe_key response shape: UBIQ_FPE_PARAMS
// is exactly ["encrypted_private_key", "wrapped_data_key",
// "key_number"], a single wrapped key, not a map of several. A dataset
// with more than one historical key (needed for EncryptForSearch) is
// served from the local cache instead (see package cache), never from
// this endpoint.
type keyResponseWire struct {
	EncryptedPrivateKey string `mapstructure:"encrypted_private_key"`
	WrappedDataKey      string `mapstructure:"wrapped_data_key"`
	KeyNumber           int    `mapstructure:"key_number"`
}

// cacheWire is the local on-disk cache row shape (see package cache):
// a previously-fetched dataset definition plus its already-unwrapped
// keys, keyed by dataset name.
type cacheWire struct {
	DatasetName string `mapstructure:"dataset_name"`
	DefinitionJSON string `mapstructure:"definition_json"`
	KeysJSON       string `mapstructure:"keys_json"`
}

// DecodeDefinition decodes an untyped broker payload (as produced by
// encoding/json.Unmarshal into map[string]any) into an ffs.Definition.
func DecodeDefinition(raw map[string]any) (ffs.Definition, error) {
	var w datasetWire
	if err := mapstructure.Decode(raw, &w); err != nil {
		return ffs.Definition{}, fmt.Errorf("keyservice: decoding dataset: %w: %s", ffserr.ErrMalformedInput, err)
	}

	tweak, err := base64.StdEncoding.DecodeString(w.TweakSourceB64)
	if err != nil && w.TweakSourceB64 != "" {
		return ffs.Definition{}, fmt.Errorf("keyservice: tweak: %w: %s", ffserr.ErrMalformedInput, err)
	}

	rules := make([]rule.Rule, 0, len(w.Rules))
	for _, r := range w.Rules {
		rules = append(rules, rule.Rule{Type: rule.Type(r.Type), Value: r.Value, Priority: r.Priority})
	}

	return ffs.Definition{
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
	}, nil
}
