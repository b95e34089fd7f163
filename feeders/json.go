package feeders

import (
	"encoding/json"
	"fmt"
)

// JSONFeeder reads a JSON document whose root is an object.
type JSONFeeder struct {
	Path string
}

// NewJSONFeeder returns a feeder reading filePath.
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Path: filePath}
}

func (j JSONFeeder) Feed() (map[string]any, error) {
	data, err := readFile("json", j.Path)
	if err != nil {
		return nil, err
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: json %s: %w", ErrFeederParse, j.Path, err)
	}
	tree, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: json %s has a %T root", ErrFeederNotATree, j.Path, root)
	}
	return tree, nil
}
