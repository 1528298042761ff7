// Package cache persists broker-fetched dataset definitions and
// already-unwrapped keys to a local SQLite database via gorm, so a
// long-running process does not round-trip to the broker on every
// Context construction. This is a local, in-process substitute for a
// distributed cache (e.g. Redis), durable enough for a single process
// but without any cross-process coordination.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vdparikh/ffs/ffs"
	"github.com/vdparikh/ffs/ffserr"
	"github.com/vdparikh/ffs/rule"
)

// row is the gorm model backing one cached dataset's definition and
// key set, serialized as JSON columns rather than normalized tables:
// both ffs.Definition and ffs.KeySet are small, read-mostly, and only
// ever looked up whole by dataset name.
type row struct {
	DatasetName    string `gorm:"primaryKey"`
	DefinitionJSON string
	KeysJSON       string
	FetchedAt      time.Time
}

// Cache wraps a gorm.DB bound to a SQLite file.
type Cache struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a SQLite-backed cache at path.
func Open(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("cache: migrating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// definitionDoc and keySetDoc are the JSON-serializable mirrors of
// ffs.Definition/ffs.KeySet; ffs.Definition/KeySet themselves carry no
// json tags since package ffs has no serialization concerns of its own.
type definitionDoc struct {
	Name               string     `json:"name"`
	Algorithm          string     `json:"algorithm"`
	InputCharacterSet  string     `json:"input_character_set"`
	OutputCharacterSet string     `json:"output_character_set"`
	Passthrough        string     `json:"passthrough"`
	Tweak              []byte     `json:"tweak"`
	TweakMinLen        int        `json:"tweak_min_len"`
	TweakMaxLen        int        `json:"tweak_max_len"`
	MSBEncodingBits    int        `json:"msb_encoding_bits"`
	Rules              []ruleDoc  `json:"rules"`
}

type ruleDoc struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Priority int    `json:"priority"`
}

type keySetDoc struct {
	RawKeys          map[string][]byte `json:"raw_keys"` // key number as decimal string
	CurrentKeyNumber int               `json:"current_key_number"`
	CurrentKeyOnly   bool              `json:"current_key_only"`
}

// Put stores def and keys under datasetName, overwriting any existing
// entry.
func (c *Cache) Put(datasetName string, def ffs.Definition, keys ffs.KeySet) error {
	defDoc := toDefinitionDoc(def)
	defJSON, err := json.Marshal(defDoc)
	if err != nil {
		return fmt.Errorf("cache: encoding definition: %w", err)
	}

	rawKeys := make(map[string][]byte, len(keys.RawKeys))
	for num, raw := range keys.RawKeys {
		rawKeys[fmt.Sprintf("%d", num)] = raw
	}
	keysJSON, err := json.Marshal(keySetDoc{
		RawKeys:          rawKeys,
		CurrentKeyNumber: keys.CurrentKeyNumber,
		CurrentKeyOnly:   keys.CurrentKeyOnly,
	})
	if err != nil {
		return fmt.Errorf("cache: encoding key set: %w", err)
	}

	r := row{
		DatasetName:    datasetName,
		DefinitionJSON: string(defJSON),
		KeysJSON:       string(keysJSON),
		FetchedAt:      time.Now(),
	}
	return c.db.Save(&r).Error
}

// Get retrieves a previously cached definition and key set. Returns
// ErrKeyUnavailable if datasetName has never been cached.
func (c *Cache) Get(datasetName string) (ffs.Definition, ffs.KeySet, error) {
	var r row
	if err := c.db.First(&r, "dataset_name = ?", datasetName).Error; err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("cache: %s: %w", datasetName, ffserr.ErrKeyUnavailable)
	}

	var defDoc definitionDoc
	if err := json.Unmarshal([]byte(r.DefinitionJSON), &defDoc); err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("cache: decoding definition: %w", err)
	}
	var ksDoc keySetDoc
	if err := json.Unmarshal([]byte(r.KeysJSON), &ksDoc); err != nil {
		return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("cache: decoding key set: %w", err)
	}

	rawKeys := make(map[int][]byte, len(ksDoc.RawKeys))
	for numStr, raw := range ksDoc.RawKeys {
		var num int
		if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
			return ffs.Definition{}, ffs.KeySet{}, fmt.Errorf("cache: key number %q: %w", numStr, ffserr.ErrMalformedInput)
		}
		rawKeys[num] = raw
	}

	return fromDefinitionDoc(defDoc), ffs.KeySet{
		RawKeys:          rawKeys,
		CurrentKeyNumber: ksDoc.CurrentKeyNumber,
		CurrentKeyOnly:   ksDoc.CurrentKeyOnly,
	}, nil
}

func toDefinitionDoc(def ffs.Definition) definitionDoc {
	rules := make([]ruleDoc, 0, len(def.Rules))
	for _, r := range def.Rules {
		rules = append(rules, ruleDoc{Type: string(r.Type), Value: r.Value, Priority: r.Priority})
	}
	return definitionDoc{
		Name:               def.Name,
		Algorithm:          string(def.Algorithm),
		InputCharacterSet:  def.InputCharacterSet,
		OutputCharacterSet: def.OutputCharacterSet,
		Passthrough:        def.Passthrough,
		Tweak:              def.Tweak,
		TweakMinLen:        def.TweakMinLen,
		TweakMaxLen:        def.TweakMaxLen,
		MSBEncodingBits:    def.MSBEncodingBits,
		Rules:              rules,
	}
}

func fromDefinitionDoc(doc definitionDoc) ffs.Definition {
	out := ffs.Definition{
		Name:               doc.Name,
		Algorithm:          ffs.Algorithm(doc.Algorithm),
		InputCharacterSet:  doc.InputCharacterSet,
		OutputCharacterSet: doc.OutputCharacterSet,
		Passthrough:        doc.Passthrough,
		Tweak:              doc.Tweak,
		TweakMinLen:        doc.TweakMinLen,
		TweakMaxLen:        doc.TweakMaxLen,
		MSBEncodingBits:    doc.MSBEncodingBits,
	}
	out.Rules = make([]rule.Rule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		out.Rules = append(out.Rules, rule.Rule{Type: rule.Type(r.Type), Value: r.Value, Priority: r.Priority})
	}
	return out
}
