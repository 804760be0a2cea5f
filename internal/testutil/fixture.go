package testutil

import (
	"bytes"
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// Fixture describes what a fake connector serves.
//
// Documents are kept as JSON text so that field order and duplicate keys
// reach the harness exactly as written.
type Fixture struct {
	// Capabilities is the body of GET /capabilities.
	Capabilities string `yaml:"capabilities"`

	// Schema is the body of GET /schema.
	Schema string `yaml:"schema"`

	// Rows holds the table contents per collection.
	Rows map[string][]map[string]any `yaml:"rows,omitempty"`

	// Functions holds the __value each function returns.
	Functions map[string]any `yaml:"functions,omitempty"`

	// Faults make the connector misbehave for matching requests.
	Faults []Fault `yaml:"faults,omitempty"`
}

// Fault alters the reply to requests on Path (and, for query, explain and
// mutation, on Target). The first matching fault wins.
type Fault struct {
	Path   string `yaml:"path"`
	Target string `yaml:"target,omitempty"`

	// Disconnect drops the connection without replying.
	Disconnect bool `yaml:"disconnect,omitempty"`

	// Status replies with an error response carrying Message.
	Status  int    `yaml:"status,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Body replaces the reply with raw text and status 200.
	Body string `yaml:"body,omitempty"`

	// Shape faults for /query.
	DropColumn    string `yaml:"drop_column,omitempty"`
	ExtraColumn   string `yaml:"extra_column,omitempty"`
	DropAggregate string `yaml:"drop_aggregate,omitempty"`
	NegativeCount bool   `yaml:"negative_count,omitempty"`
	ExtraRowSet   bool   `yaml:"extra_row_set,omitempty"`
}

// LoadFixture reads a fixture YAML file, rejecting unknown fields.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes fixture YAML, rejecting unknown fields.
func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}
	if f.Capabilities == "" || f.Schema == "" {
		return Fixture{}, fmt.Errorf("fixture needs both capabilities and schema")
	}
	return f, nil
}

// NamedFixture returns one of the built-in fixtures: "articles" or
// "library".
func NamedFixture(name string) (Fixture, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + name + ".yaml")
	if err != nil {
		return Fixture{}, fmt.Errorf("unknown fixture %q", name)
	}
	return ParseFixture(data)
}

// MustFixture is NamedFixture for tests; it panics on error.
func MustFixture(name string) Fixture {
	f, err := NamedFixture(name)
	if err != nil {
		panic(err)
	}
	return f
}
