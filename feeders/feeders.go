// Package feeders reads configuration trees from files and the process
// environment. Every feeder produces a nested map[string]any and satisfies
// injector.Source, so it can be passed to Configuration.Feed:
//
//	err := cfg.Feed(
//		feeders.NewYamlFeeder("config.yaml"),
//		feeders.NewEnvFeeder("APP"),
//	)
package feeders

import (
	"fmt"
	"os"
	"strings"
)

// Feeder produces a configuration tree.
type Feeder interface {
	Feed() (map[string]any, error)
}

// readFile reads path, wrapping failures with the feeder name.
func readFile(kind, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrFeederRead, kind, path, err)
	}
	return data, nil
}

// insertKey stores value under the path made of keys, creating nested maps.
// A scalar in the way is replaced by a map.
func insertKey(tree map[string]any, keys []string, value any) {
	node := tree
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = value
}

// envKeys maps "DB__PRIMARY_HOST" to ["db", "primary_host"].
func envKeys(name string) []string {
	parts := strings.Split(strings.ToLower(name), "__")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StaticFeeder returns a fixed tree. It is useful for defaults and tests.
type StaticFeeder struct {
	tree map[string]any
}

// NewStaticFeeder returns a feeder of tree.
func NewStaticFeeder(tree map[string]any) StaticFeeder {
	return StaticFeeder{tree: tree}
}

func (s StaticFeeder) Feed() (map[string]any, error) {
	out := make(map[string]any, len(s.tree))
	for k, v := range s.tree {
		out[k] = v
	}
	return out, nil
}
