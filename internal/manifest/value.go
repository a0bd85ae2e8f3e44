package manifest

import (
	"fmt"
	"math"
	"sort"
)

// Value is a decoded manifest node. It holds one of nil, bool, int64,
// float64, string, []any or *Map, or the [NoContent] sentinel.
type Value = any

type noContent struct{}

func (noContent) String() string { return "<no content>" }

// NoContent is returned by the decoders for empty input. It is distinct from
// both nil (an explicit null document) and an empty *Map.
var NoContent Value = noContent{}

// IsNoContent reports whether v is the NoContent sentinel.
func IsNoContent(v Value) bool {
	_, ok := v.(noContent)
	return ok
}

// Map is a string-keyed mapping that remembers insertion order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// MapOf builds a Map from alternating key/value arguments. It panics on an
// odd argument count or a non-string key and is meant for literals in code
// and tests.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("manifest.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("manifest.MapOf: key %v is %T, not string", kv[i], kv[i]))
		}
		m.Set(k, kv[i+1])
	}
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (m *Map) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// normalize converts plain Go values into the canonical Value types so that
// callers may build manifests from map[string]any and native numbers.
func normalize(v any) (Value, error) {
	switch val := v.(type) {
	case nil, bool, int64, string, noContent:
		return val, nil
	case float64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return float64(val), nil
		}
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return float64(val), nil
		}
		return int64(val), nil
	case float32:
		return float64(val), nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case *Map:
		if val == nil {
			return nil, nil
		}
		out := NewMap()
		for _, k := range val.keys {
			n, err := normalize(val.values[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, n)
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			n, err := normalize(val[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported manifest value type %T", v)
	}
}

// kindOf names the kind of a normalized value for error messages.
func kindOf(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "sequence"
	case *Map:
		return "mapping"
	case noContent:
		return "no content"
	default:
		return fmt.Sprintf("%T", v)
	}
}
