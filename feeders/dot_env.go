package feeders

import (
	"fmt"

	"github.com/joho/godotenv"
)

// DotEnvFeeder reads .env files. Keys follow the EnvFeeder layout: an
// optional prefix is stripped and double underscores separate levels.
// Later files win over earlier ones.
type DotEnvFeeder struct {
	Paths  []string
	Prefix string
}

// NewDotEnvFeeder returns a feeder reading paths, ".env" when none are given.
func NewDotEnvFeeder(paths ...string) DotEnvFeeder {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return DotEnvFeeder{Paths: paths}
}

// WithPrefix returns a copy of the feeder keeping only keys with prefix.
func (d DotEnvFeeder) WithPrefix(prefix string) DotEnvFeeder {
	d.Prefix = prefix
	return d
}

func (d DotEnvFeeder) Feed() (map[string]any, error) {
	vars := make(map[string]string)
	for _, path := range d.Paths {
		data, err := readFile("dotenv", path)
		if err != nil {
			return nil, err
		}
		parsed, err := godotenv.UnmarshalBytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: dotenv %s: %w", ErrFeederParse, path, err)
		}
		for k, v := range parsed {
			vars[k] = v
		}
	}
	return fromVars(d.Prefix, vars), nil
}
