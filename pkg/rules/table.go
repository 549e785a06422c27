// Package rules turns parameter deltas into human-readable interpretations
// using a data-driven rule table. Tables are YAML or JSON documents validated
// against an embedded JSON Schema; templates are rendered by named-placeholder
// substitution only.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultTableYAML []byte

//go:embed rule_table.schema.json
var tableSchemaJSON []byte

// Sentinel errors for rule table loading.
var (
	// ErrInvalidTable indicates a table that does not satisfy the schema.
	ErrInvalidTable = errors.New("invalid rule table")
	// ErrEmptyTable indicates a table document with no content.
	ErrEmptyTable = errors.New("rule table is empty")
)

// Rule interprets deltas whose key contains every KeyIncludes fragment.
type Rule struct {
	ID          string              `json:"id,omitempty"        yaml:"id,omitempty"`
	KeyIncludes []string            `json:"keyIncludes"         yaml:"keyIncludes"`
	Threshold   float64             `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Short       string              `json:"short"               yaml:"short"`
	Full        string              `json:"full"                yaml:"full"`
	Words       map[string][]string `json:"words,omitempty"     yaml:"words,omitempty"`
}

// Matches reports whether key contains every fragment of the rule.
func (r Rule) Matches(key string) bool {
	return containsAll(key, r.KeyIncludes)
}

// Override appends profile-specific hints to a rendered interpretation.
type Override struct {
	KeyIncludes []string `json:"keyIncludes"         yaml:"keyIncludes"`
	ShortHint   string   `json:"shortHint,omitempty" yaml:"shortHint,omitempty"`
	FullHint    string   `json:"fullHint,omitempty"  yaml:"fullHint,omitempty"`
}

// Matches reports whether key contains every fragment of the override.
func (o Override) Matches(key string) bool {
	return containsAll(key, o.KeyIncludes)
}

// ProfileGroup scopes overrides to a car model and/or track category.
// A group with neither is generic.
type ProfileGroup struct {
	CarModel      string     `json:"carModel,omitempty"      yaml:"carModel,omitempty"`
	TrackCategory string     `json:"trackCategory,omitempty" yaml:"trackCategory,omitempty"`
	Overrides     []Override `json:"overrides"               yaml:"overrides"`
}

// Table is a versioned rule set with optional profile overrides.
type Table struct {
	Version  int            `json:"version,omitempty"  yaml:"version,omitempty"`
	Rules    []Rule         `json:"rules"              yaml:"rules"`
	Profiles []ProfileGroup `json:"profiles,omitempty" yaml:"profiles,omitempty"`
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Version: t.Version, Rules: make([]Rule, len(t.Rules)), Profiles: make([]ProfileGroup, len(t.Profiles))}

	for i, r := range t.Rules {
		r.KeyIncludes = slices.Clone(r.KeyIncludes)

		if r.Words != nil {
			words := make(map[string][]string, len(r.Words))
			for k, v := range r.Words {
				words[k] = slices.Clone(v)
			}

			r.Words = words
		}

		out.Rules[i] = r
	}

	for i, g := range t.Profiles {
		overrides := make([]Override, len(g.Overrides))
		for j, o := range g.Overrides {
			o.KeyIncludes = slices.Clone(o.KeyIncludes)
			overrides[j] = o
		}

		g.Overrides = overrides
		out.Profiles[i] = g
	}

	return out
}

// ValidationError lists every schema violation found in a table document.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTable, strings.Join(e.Issues, "; "))
}

// Unwrap makes errors.Is(err, ErrInvalidTable) hold.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidTable
}

// LoadTable reads, validates and decodes a rule table from a YAML or JSON file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read rule table: %w", err)
	}

	table, err := ParseTable(data)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// ParseTable validates data against the rule table schema and decodes it.
// JSON documents are accepted since JSON is a subset of YAML.
func ParseTable(data []byte) (Table, error) {
	err := Validate(data)
	if err != nil {
		return Table{}, err
	}

	var table Table

	decodeErr := yaml.Unmarshal(data, &table)
	if decodeErr != nil {
		return Table{}, fmt.Errorf("decode rule table: %w", decodeErr)
	}

	return table, nil
}

// Validate checks data against the embedded rule table schema.
func Validate(data []byte) error {
	var doc any

	decodeErr := yaml.Unmarshal(data, &doc)
	if decodeErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTable, decodeErr)
	}

	if doc == nil {
		return ErrEmptyTable
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(tableSchemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}

	return &ValidationError{Issues: issues}
}

var loadDefaultTable = sync.OnceValues(func() (Table, error) {
	return ParseTable(defaultTableYAML)
})

// DefaultTable returns a copy of the built-in rule table.
func DefaultTable() (Table, error) {
	table, err := loadDefaultTable()
	if err != nil {
		return Table{}, fmt.Errorf("default rule table: %w", err)
	}

	return table.Clone(), nil
}

// DefaultTableYAML returns the raw built-in table document.
func DefaultTableYAML() []byte {
	return slices.Clone(defaultTableYAML)
}

func containsAll(key string, fragments []string) bool {
	for _, f := range fragments {
		if !strings.Contains(key, f) {
			return false
		}
	}

	return true
}
