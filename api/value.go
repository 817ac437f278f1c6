package api

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/oj"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSeq
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the interchange format between the schema resolver, the query
// evaluator and the template engine: a recursively-structured immutable value.
// Maps preserve insertion order. The zero Value is null.
//
// Values are never mutated after construction; transformations build new
// ones. That makes a Value safe to share across render workers without
// synchronization.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	seq    []Value
	keys   []string
	fields map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Seq returns a sequence value wrapping vs. The slice is owned by the
// returned Value and must not be mutated by the caller afterwards.
func Seq(vs []Value) Value { return Value{kind: KindSeq, seq: vs} }

// SeqOf returns a sequence value of the given elements.
func SeqOf(vs ...Value) Value { return Seq(vs) }

// MapBuilder assembles an insertion-ordered map Value.
type MapBuilder struct {
	keys   []string
	fields map[string]Value
}

// NewMap returns an empty map builder.
func NewMap() *MapBuilder {
	return &MapBuilder{fields: make(map[string]Value)}
}

// Set adds or replaces a key. A replaced key keeps its original position.
func (m *MapBuilder) Set(key string, v Value) *MapBuilder {
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = v
	return m
}

// Value finalizes the map. The builder must not be used afterwards.
func (m *MapBuilder) Value() Value {
	return Value{kind: KindMap, keys: m.keys, fields: m.fields}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload (false for non-bools).
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload (0 for non-numbers).
func (v Value) AsNumber() float64 { return v.num }

// AsString returns the string payload ("" for non-strings).
func (v Value) AsString() string { return v.str }

// Len returns the element count for sequences, the key count for maps, and
// the byte length for strings; 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSeq:
		return len(v.seq)
	case KindMap:
		return len(v.keys)
	case KindString:
		return len(v.str)
	default:
		return 0
	}
}

// At returns sequence element i, or null when out of range.
func (v Value) At(i int) Value {
	if v.kind != KindSeq || i < 0 || i >= len(v.seq) {
		return Null()
	}
	return v.seq[i]
}

// Elems returns the underlying sequence slice. Read-only.
func (v Value) Elems() []Value {
	return v.seq
}

// Keys returns map keys in insertion order. Read-only.
func (v Value) Keys() []string {
	return v.keys
}

// Get looks up a map key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null(), false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Truthy reports jq-style truthiness: everything except null and false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool { return v.Compare(o) == 0 }

// Compare defines a total order over values: null < bool < number < string <
// seq < map, with elementwise comparison inside each kind. It backs sort_by
// and the comparison operators, keeping result ordering deterministic.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b == o.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case KindNumber:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		default:
			return 0
		}
	case KindString:
		switch {
		case v.str < o.str:
			return -1
		case v.str > o.str:
			return 1
		default:
			return 0
		}
	case KindSeq:
		n := len(v.seq)
		if len(o.seq) < n {
			n = len(o.seq)
		}
		for i := 0; i < n; i++ {
			if c := v.seq[i].Compare(o.seq[i]); c != 0 {
				return c
			}
		}
		return len(v.seq) - len(o.seq)
	case KindMap:
		n := len(v.keys)
		if len(o.keys) < n {
			n = len(o.keys)
		}
		for i := 0; i < n; i++ {
			if v.keys[i] != o.keys[i] {
				if v.keys[i] < o.keys[i] {
					return -1
				}
				return 1
			}
			if c := v.fields[v.keys[i]].Compare(o.fields[o.keys[i]]); c != 0 {
				return c
			}
		}
		return len(v.keys) - len(o.keys)
	default:
		return 0
	}
}

// AsAny converts to plain Go values (nil, bool, float64, string, []any,
// map[string]any) for handing to text/template. Map insertion order is lost;
// text/template ranges maps in sorted key order, which keeps rendering
// deterministic.
func (v Value) AsAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindSeq:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.AsAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].AsAny()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts plain Go values into a Value. Unordered Go maps get their
// keys sorted so the result is deterministic.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case float64:
		return Number(x)
	case string:
		return Str(x)
	case []any:
		seq := make([]Value, len(x))
		for i, e := range x {
			seq[i] = FromAny(e)
		}
		return Seq(seq)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := NewMap()
		for _, k := range keys {
			b.Set(k, FromAny(x[k]))
		}
		return b.Value()
	case float32:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	default:
		return Str(fmt.Sprintf("%v", x))
	}
}

// String renders the value as compact JSON with sorted map keys.
func (v Value) String() string {
	return oj.JSON(v.AsAny(), &oj.Options{Sort: true})
}
