package injector

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// splitPath turns "db.primary.host" into its keys. The empty path is the root.
func splitPath(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// toTree normalizes any string-keyed map into map[string]any, recursively.
func toTree(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = normalize(val)
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface())
	}
	return out, true
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	if reflect.TypeOf(v).Kind() == reflect.Map {
		t, _ := toTree(v)
		return t
	}
	return v
}

// lookup follows keys through nested maps and lists.
func lookup(tree any, keys []string) (any, bool) {
	cur := tree
	for _, k := range keys {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[k]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// setPath stores v at keys, creating intermediate maps and replacing
// non-map nodes on the way.
func setPath(tree map[string]any, keys []string, v any) {
	node := tree
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = v
}

// mergeTree deep-merges src into dst; src wins on conflicts and nested maps
// are merged key by key.
func mergeTree(dst, src map[string]any) {
	for k, sv := range src {
		sm, sIsMap := sv.(map[string]any)
		dm, dIsMap := dst[k].(map[string]any)
		if sIsMap && dIsMap {
			mergeTree(dm, sm)
			continue
		}
		dst[k] = cloneTreeValue(sv)
	}
}

func cloneTree(t map[string]any) map[string]any {
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = cloneTreeValue(v)
	}
	return out
}

func cloneTreeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneTree(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneTreeValue(e)
		}
		return out
	default:
		return v
	}
}
