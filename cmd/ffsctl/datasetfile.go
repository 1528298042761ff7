package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vdparikh/ffs/ffs"
	"github.com/vdparikh/ffs/rule"
)

// datasetFile is the on-disk JSON shape ffsctl reads: a dataset
// definition plus its already-unwrapped raw keys. Real deployments get
// these from package keyservice instead; this flat file exists so the
// CLI has something to drive without a broker running.
type datasetFile struct {
	Name               string           `json:"name"`
	Algorithm          string           `json:"algorithm"`
	InputCharacterSet  string           `json:"input_character_set"`
	OutputCharacterSet string           `json:"output_character_set"`
	Passthrough        string           `json:"passthrough"`
	TweakHex           string           `json:"tweak_hex"`
	TweakMinLen        int              `json:"tweak_min_len"`
	TweakMaxLen        int              `json:"tweak_max_len"`
	MSBEncodingBits    int              `json:"msb_encoding_bits"`
	Rules              []ruleFile       `json:"rules"`
	Keys               map[string]string `json:"keys"` // key number (decimal string) -> hex
	CurrentKeyNumber   int              `json:"current_key_number"`
	CurrentKeyOnly     bool             `json:"current_key_only"`
}

type ruleFile struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Priority int    `json:"priority"`
}

func loadDatasetFile(path string) (ffs.Definition, ffs.KeySet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var f datasetFile
	if err := json.Unmarshal(b, &f); err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	tweak, err := hex.DecodeString(f.TweakHex)
	if err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("tweak_hex: %w", err)
	}

	rules := make([]rule.Rule, 0, len(f.Rules))
	for _, r := range f.Rules {
		rules = append(rules, rule.Rule{Type: rule.Type(r.Type), Value: r.Value, Priority: r.Priority})
	}

	def := ffs.Definition{
		Name:               f.Name,
		Algorithm:          ffs.Algorithm(f.Algorithm),
		InputCharacterSet:  f.InputCharacterSet,
		OutputCharacterSet: f.OutputCharacterSet,
		Passthrough:        f.Passthrough,
		Tweak:              tweak,
		TweakMinLen:        f.TweakMinLen,
		TweakMaxLen:        f.TweakMaxLen,
		MSBEncodingBits:    f.MSBEncodingBits,
		Rules:              rules,
	}

	rawKeys := make(map[int][]byte, len(f.Keys))
	for numStr, keyHex := range f.Keys {
		var num int
		if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
			return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("key number %q: %w", numStr, err)
		}
		raw, err := hex.DecodeString(keyHex)
		if err != nil {
			return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("key %d: %w", num, err)
		}
		rawKeys[num] = raw
	}

	keys := ffs.KeySet{
		RawKeys:          rawKeys,
		CurrentKeyNumber: f.CurrentKeyNumber,
		CurrentKeyOnly:   f.CurrentKeyOnly,
	}
	return def, keys, nil
}

func overrideTweak(hexStr string) ([]byte, error) {
	if hexStr == "" {
		return nil, nil
	}
	return hex.DecodeString(hexStr)
}
