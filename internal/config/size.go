package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bamsammich/tiers/internal/units"
)

// Size is a byte count written either as an integer or a human size string
// ("512M", "2TiB").
type Size int64

// UnmarshalTOML implements toml.Unmarshaler.
func (s *Size) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		*s = Size(x)
		return nil
	case string:
		return s.parse(x)
	default:
		return fmt.Errorf("size: unsupported value %v (%T)", v, v)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("size: line %d: expected a scalar", node.Line)
	}
	return s.parse(node.Value)
}

func (s *Size) parse(str string) error {
	if strings.TrimSpace(str) == "" {
		*s = 0
		return nil
	}
	n, err := units.ParseSize(str)
	if err != nil {
		return fmt.Errorf("size %q: %w", str, err)
	}
	*s = Size(n)
	return nil
}
