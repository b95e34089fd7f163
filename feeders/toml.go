package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML document.
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder returns a feeder reading filePath.
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

func (t TomlFeeder) Feed() (map[string]any, error) {
	data, err := readFile("toml", t.Path)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if _, err := toml.Decode(string(data), &tree); err != nil {
		return nil, fmt.Errorf("%w: toml %s: %w", ErrFeederParse, t.Path, err)
	}
	return tree, nil
}
