package feeders

import (
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// EnvFeeder reads process environment variables sharing a prefix. The
// prefix is stripped and double underscores separate levels, so with the
// prefix "APP" the variable APP_DB__HOST becomes db.host. Values that parse
// as integers, floats or booleans are typed accordingly.
type EnvFeeder struct {
	Prefix  string
	environ func() []string
}

// NewEnvFeeder returns a feeder of the variables starting with prefix + "_".
// An empty prefix reads every variable.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix, environ: os.Environ}
}

func (e EnvFeeder) Feed() (map[string]any, error) {
	environ := e.environ
	if environ == nil {
		environ = os.Environ
	}
	vars := make(map[string]string)
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok {
			vars[name] = value
		}
	}
	return fromVars(e.Prefix, vars), nil
}

// fromVars builds a tree from variables matching prefix.
func fromVars(prefix string, vars map[string]string) map[string]any {
	tree := map[string]any{}
	p := ""
	if prefix != "" {
		p = strings.ToUpper(prefix) + "_"
	}
	for name, value := range vars {
		if !strings.HasPrefix(strings.ToUpper(name), p) {
			continue
		}
		keys := envKeys(name[len(p):])
		if len(keys) == 0 {
			continue
		}
		insertKey(tree, keys, typed(value))
	}
	return tree
}

var (
	intType   = reflect.TypeOf(int64(0))
	floatType = reflect.TypeOf(float64(0))
	boolType  = reflect.TypeOf(false)
)

// typed converts value to the first of int64, float64 or bool it parses as.
func typed(value string) any {
	for _, t := range []reflect.Type{intType, floatType, boolType} {
		if v, err := cast.FromType(value, t); err == nil {
			return v
		}
	}
	return value
}
