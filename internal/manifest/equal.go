package manifest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/empaphy/composer-yaml/internal/errors"
)

// Comparator decides whether two decoded manifests are equivalent.
type Comparator func(a, b Value) bool

// Comparator names accepted by ComparatorFor.
const (
	CompareStrict = "strict"
	CompareLoose  = "loose"
)

// ComparatorFor returns the comparator registered under name. An empty name
// selects strict comparison.
func ComparatorFor(name string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CompareStrict:
		return Equal, nil
	case CompareLoose:
		return LooseEqual, nil
	default:
		return nil, errors.New(errors.ErrCodeConfiguration,
			"unknown comparison mode %q (want %q or %q)", name, CompareStrict, CompareLoose)
	}
}

// Equal reports strict structural equality. Mapping key order is ignored,
// sequence order is not, and integers equal floats of the same value. A
// string never equals a number or a boolean.
func Equal(a, b Value) bool {
	na, err := normalize(a)
	if err != nil {
		return false
	}
	nb, err := normalize(b)
	if err != nil {
		return false
	}
	return strictEqual(na, nb)
}

func strictEqual(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case noContent:
		return IsNoContent(b)
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case int64, float64:
		fa, _ := number(a)
		fb, ok := number(b)
		if !ok {
			return false
		}
		if ia, isInt := a.(int64); isInt {
			if ib, isInt := b.(int64); isInt {
				return ia == ib
			}
		}
		return fa == fb
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !strictEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, found := y.Get(k)
			if !found || !strictEqual(x.values[k], yv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func number(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// LooseEqual compares the way the host's scripting runtime does with its
// non-strict equality operator: numeric strings equal the numbers they
// spell, null equals false, "", 0 and empty containers, booleans coerce the
// other side, and a sequence equals a mapping keyed "0", "1", ... with the
// same values. NoContent is treated as null.
func LooseEqual(a, b Value) bool {
	na, err := normalize(a)
	if err != nil {
		return false
	}
	nb, err := normalize(b)
	if err != nil {
		return false
	}
	return looseEqual(na, nb)
}

func looseEqual(a, b Value) bool {
	if IsNoContent(a) {
		a = nil
	}
	if IsNoContent(b) {
		b = nil
	}

	// Containers compare entry by entry.
	ea, aContainer := entries(a)
	eb, bContainer := entries(b)
	if aContainer && bContainer {
		if len(ea) != len(eb) {
			return false
		}
		for k, av := range ea {
			bv, ok := eb[k]
			if !ok || !looseEqual(av, bv) {
				return false
			}
		}
		return true
	}

	switch {
	case a == nil && b == nil:
		return true
	case a == nil:
		return looseNull(b)
	case b == nil:
		return looseNull(a)
	}

	if x, ok := a.(bool); ok {
		return x == truthy(b)
	}
	if y, ok := b.(bool); ok {
		return truthy(a) == y
	}

	if aContainer || bContainer {
		return false
	}

	sa, aStr := a.(string)
	sb, bStr := b.(string)
	switch {
	case aStr && bStr:
		fa, okA := numericString(sa)
		fb, okB := numericString(sb)
		if okA && okB {
			return fa == fb
		}
		return sa == sb
	case aStr:
		return numberEqualsString(b, sa)
	case bStr:
		return numberEqualsString(a, sb)
	default:
		fa, _ := number(a)
		fb, _ := number(b)
		return fa == fb
	}
}

// looseNull compares a non-null value with null.
func looseNull(v Value) bool {
	if s, ok := v.(string); ok {
		return s == ""
	}
	return !truthy(v)
}

func numberEqualsString(n Value, s string) bool {
	if f, ok := numericString(s); ok {
		fn, _ := number(n)
		return fn == f
	}
	return numberString(n) == s
}

func numberString(n Value) string {
	switch v := n.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'G', 14, 64)
	default:
		return ""
	}
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// numericString reports whether s is a numeric string, allowing surrounding
// whitespace, and returns its value.
func numericString(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if !numericPattern.MatchString(trimmed) {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	case []any:
		return len(x) > 0
	case *Map:
		return x.Len() > 0
	default:
		return true
	}
}

// entries flattens a container into key/value pairs, indexing sequences by
// their decimal position.
func entries(v Value) (map[string]Value, bool) {
	switch x := v.(type) {
	case []any:
		out := make(map[string]Value, len(x))
		for i, item := range x {
			out[strconv.Itoa(i)] = item
		}
		return out, true
	case *Map:
		out := make(map[string]Value, x.Len())
		for _, k := range x.keys {
			out[k] = x.values[k]
		}
		return out, true
	default:
		return nil, false
	}
}
