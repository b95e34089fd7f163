package feeders

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML document whose root is a mapping.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder returns a feeder reading filePath.
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

func (y YamlFeeder) Feed() (map[string]any, error) {
	data, err := readFile("yaml", y.Path)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: yaml %s: %w", ErrFeederParse, y.Path, err)
	}
	return tree, nil
}
