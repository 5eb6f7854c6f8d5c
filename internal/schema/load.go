package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type file struct {
	Fields []FieldSpec `yaml:"fields"`
}

// Load reads a YAML questionnaire. An empty path yields the built-in schema.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(b)
}

// Parse decodes and checks a YAML questionnaire.
func Parse(b []byte) (*Schema, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	s, err := New(f.Fields)
	if err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	return s, nil
}

// Marshal encodes the schema in the format accepted by Parse.
func (s *Schema) Marshal() ([]byte, error) {
	return yaml.Marshal(file{Fields: s.fields})
}
