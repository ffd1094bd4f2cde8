package vector

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// MetadataFilter turns {key: value} pairs into matches on "metadata.<key>",
// sorted by key so requests are deterministic.
func MetadataFilter(filters map[string]any) []FieldMatch {
	if len(filters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]FieldMatch, 0, len(keys))
	for _, k := range keys {
		out = append(out, FieldMatch{Key: "metadata." + k, Value: filters[k]})
	}
	return out
}

// Matches reports whether payload satisfies every condition.
func Matches(payload map[string]any, filter []FieldMatch) bool {
	for _, f := range filter {
		v, ok := lookupPath(payload, f.Key)
		if !ok || !valuesEqual(v, f.Value) {
			return false
		}
	}
	return true
}

func lookupPath(payload map[string]any, path string) (any, bool) {
	var cur any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// valuesEqual compares payload scalars, treating all numeric types as float64
// so a page stored as int matches a page decoded from JSON.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
