// Package content loads authored city definitions from YAML, validates them
// against a JSON Schema, and builds runnable worlds from them. It also
// carries a noise-driven generator for producing definitions procedurally.
//
// The content root is always an explicit argument. Nothing in this package
// reads environment variables or walks upward looking for files.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// CityDefinition is the on-disk shape of a playable city. Field names match
// the schema in configs/schema/city_definition.schema.json.
type CityDefinition struct {
	City          CityHeader     `yaml:"city" json:"city"`
	Seed          int64          `yaml:"seed" json:"seed"`
	FocusDistrict string         `yaml:"focus_district,omitempty" json:"focus_district,omitempty"`
	Environment   EnvironmentDef `yaml:"environment" json:"environment"`
	Districts     []DistrictDef  `yaml:"districts" json:"districts"`
	Factions      []FactionDef   `yaml:"factions,omitempty" json:"factions,omitempty"`
	Agents        []AgentDef     `yaml:"agents,omitempty" json:"agents,omitempty"`
	StorySeeds    []StorySeedDef `yaml:"story_seeds,omitempty" json:"story_seeds,omitempty"`

	// Set by LoadDefinition, never read from the document.
	SourcePath string `yaml:"-" json:"-"`
	Digest     string `yaml:"-" json:"-"`
}

type CityHeader struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type EnvironmentDef struct {
	Stability float64 `yaml:"stability" json:"stability"`
	Unrest    float64 `yaml:"unrest" json:"unrest"`
	Pollution float64 `yaml:"pollution" json:"pollution"`
}

type DistrictDef struct {
	ID         string              `yaml:"id" json:"id"`
	Name       string              `yaml:"name" json:"name"`
	Population int                 `yaml:"population" json:"population"`
	Security   float64             `yaml:"security" json:"security"`
	Unrest     float64             `yaml:"unrest,omitempty" json:"unrest,omitempty"`
	Pollution  float64             `yaml:"pollution,omitempty" json:"pollution,omitempty"`
	Adjacent   []string            `yaml:"adjacent,omitempty" json:"adjacent,omitempty"`
	Coord      *CoordDef           `yaml:"coord,omitempty" json:"coord,omitempty"`
	Stocks     map[string]StockDef `yaml:"stocks" json:"stocks"`
}

type CoordDef struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

type StockDef struct {
	Current  float64 `yaml:"current" json:"current"`
	Capacity float64 `yaml:"capacity" json:"capacity"`
}

type FactionDef struct {
	ID           string         `yaml:"id" json:"id"`
	Name         string         `yaml:"name" json:"name"`
	Legitimacy   float64        `yaml:"legitimacy" json:"legitimacy"`
	HomeDistrict string         `yaml:"home_district" json:"home_district"`
	Resources    map[string]int `yaml:"resources,omitempty" json:"resources,omitempty"`
}

type AgentDef struct {
	ID        string  `yaml:"id" json:"id"`
	Name      string  `yaml:"name" json:"name"`
	Archetype string  `yaml:"archetype" json:"archetype"`
	District  string  `yaml:"district" json:"district"`
	Drive     float64 `yaml:"drive" json:"drive"`
}

type StorySeedDef struct {
	ID            string        `yaml:"id" json:"id"`
	Title         string        `yaml:"title" json:"title"`
	Triggers      []TriggerDef  `yaml:"triggers" json:"triggers"`
	Stakes        string        `yaml:"stakes,omitempty" json:"stakes,omitempty"`
	Resolution    ResolutionDef `yaml:"resolution,omitempty" json:"resolution,omitempty"`
	TravelHint    string        `yaml:"travel_hint,omitempty" json:"travel_hint,omitempty"`
	Followups     []string      `yaml:"followups,omitempty" json:"followups,omitempty"`
	CooldownTicks int           `yaml:"cooldown_ticks" json:"cooldown_ticks"`
}

type TriggerDef struct {
	Contains string `yaml:"contains" json:"contains"`
	Scope    string `yaml:"scope" json:"scope"`
}

type ResolutionDef struct {
	Success string `yaml:"success,omitempty" json:"success,omitempty"`
	Failure string `yaml:"failure,omitempty" json:"failure,omitempty"`
}

// LoadDefinition reads a city definition, checks the document shape, and
// validates it against the schema at schemaPath before any typed decode.
// A document whose top level is not a mapping is rejected whole; nothing is
// partially applied. Missing files surface the underlying os error.
func LoadDefinition(path, schemaPath string) (*CityDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("%s: top-level document is not a mapping", base)
	}

	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", filepath.Base(schemaPath), err)
	}
	if err := schema.Validate(jsonNormalize(doc)); err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}

	var def CityDefinition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}
	def.SourcePath = path
	def.Digest = sha256Hex(raw)
	return &def, nil
}

// jsonNormalize rewrites a yaml-decoded value into the types json.Unmarshal
// would have produced, which is what the schema validator expects.
func jsonNormalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
