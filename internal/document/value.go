package document

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds. The zero Value has KindInvalid.
const (
	KindInvalid Kind = iota
	KindObject
	KindArray
	KindString
	KindInteger
	KindBoolean
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	default:
		return "invalid"
	}
}

// IsScalar reports whether k is a leaf kind.
func (k Kind) IsScalar() bool {
	return k == KindString || k == KindInteger || k == KindBoolean
}

// Value is an immutable node of a profile document.
//
// Objects keep their members in insertion order so that a document
// round-trips through JSON and YAML without reordering. All mutating
// helpers return a new Value and leave the receiver untouched; the nodes
// that were not on the modified path are shared between both values.
type Value struct {
	kind   Kind
	str    string
	num    int64
	flag   bool
	keys   []string
	fields map[string]Value
	items  []Value
}

// Member is a single key/value pair used to build objects.
type Member struct {
	Key   string
	Value Value
}

// M is shorthand for building a Member.
func M(key string, v Value) Member {
	return Member{Key: key, Value: v}
}

// String returns a string leaf.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Integer returns an integer leaf.
func Integer(n int64) Value {
	return Value{kind: KindInteger, num: n}
}

// Boolean returns a boolean leaf.
func Boolean(b bool) Value {
	return Value{kind: KindBoolean, flag: b}
}

// Object returns an object holding members in the given order.
// A repeated key keeps its first position and its last value.
func Object(members ...Member) Value {
	v := Value{
		kind:   KindObject,
		keys:   make([]string, 0, len(members)),
		fields: make(map[string]Value, len(members)),
	}
	for _, m := range members {
		if _, ok := v.fields[m.Key]; !ok {
			v.keys = append(v.keys, m.Key)
		}
		v.fields[m.Key] = m.Value
	}
	return v
}

// Array returns an array of the given items.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, items: out}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds any variant.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string leaf, or "" for other kinds.
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.str
}

// AsInt returns the integer leaf, or 0 for other kinds.
func (v Value) AsInt() int64 {
	if v.kind != KindInteger {
		return 0
	}
	return v.num
}

// AsBool returns the boolean leaf, or false for other kinds.
func (v Value) AsBool() bool {
	if v.kind != KindBoolean {
		return false
	}
	return v.flag
}

// Len returns the number of members of an object or items of an array.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.keys)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Field returns the member stored under key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Keys returns the object's member names in order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// At returns the array item at position i.
func (v Value) At(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Items returns a copy of the array's items.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// With returns a copy of the object with key set to val. New keys are
// appended after the existing ones. Calling With on a non-object panics.
func (v Value) With(key string, val Value) Value {
	v.mustBe(KindObject, "With")
	out := Value{
		kind:   KindObject,
		keys:   v.keys,
		fields: make(map[string]Value, len(v.fields)+1),
	}
	for k, f := range v.fields {
		out.fields[k] = f
	}
	if _, ok := v.fields[key]; !ok {
		out.keys = make([]string, len(v.keys), len(v.keys)+1)
		copy(out.keys, v.keys)
		out.keys = append(out.keys, key)
	}
	out.fields[key] = val
	return out
}

// Without returns a copy of the object with the named keys removed.
func (v Value) Without(keys ...string) Value {
	v.mustBe(KindObject, "Without")
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := Value{
		kind:   KindObject,
		keys:   make([]string, 0, len(v.keys)),
		fields: make(map[string]Value, len(v.fields)),
	}
	for _, k := range v.keys {
		if _, ok := drop[k]; ok {
			continue
		}
		out.keys = append(out.keys, k)
		out.fields[k] = v.fields[k]
	}
	return out
}

// SetAt returns a copy of the array with item i replaced.
func (v Value) SetAt(i int, val Value) Value {
	v.mustBe(KindArray, "SetAt")
	if i < 0 || i >= len(v.items) {
		panic(fmt.Sprintf("document: SetAt index %d out of range [0,%d)", i, len(v.items)))
	}
	items := make([]Value, len(v.items))
	copy(items, v.items)
	items[i] = val
	return Value{kind: KindArray, items: items}
}

// Append returns a copy of the array with val added at the end.
func (v Value) Append(val Value) Value {
	v.mustBe(KindArray, "Append")
	items := make([]Value, len(v.items), len(v.items)+1)
	copy(items, v.items)
	return Value{kind: KindArray, items: append(items, val)}
}

// RemoveAt returns a copy of the array without item i.
func (v Value) RemoveAt(i int) Value {
	v.mustBe(KindArray, "RemoveAt")
	if i < 0 || i >= len(v.items) {
		panic(fmt.Sprintf("document: RemoveAt index %d out of range [0,%d)", i, len(v.items)))
	}
	items := make([]Value, 0, len(v.items)-1)
	items = append(items, v.items[:i]...)
	items = append(items, v.items[i+1:]...)
	return Value{kind: KindArray, items: items}
}

// Clone returns a deep copy of v that shares no backing storage with it.
func (v Value) Clone() Value {
	switch v.kind {
	case KindObject:
		out := Value{
			kind:   KindObject,
			keys:   make([]string, len(v.keys)),
			fields: make(map[string]Value, len(v.fields)),
		}
		copy(out.keys, v.keys)
		for k, f := range v.fields {
			out.fields[k] = f.Clone()
		}
		return out
	case KindArray:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.Clone()
		}
		return Value{kind: KindArray, items: items}
	default:
		return v
	}
}

// Equal reports whether a and b hold the same tree. Member order is not
// significant for objects.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindObject:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for k, av := range a.fields {
			bv, ok := b.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindString:
		return a.str == b.str
	case KindInteger:
		return a.num == b.num
	case KindBoolean:
		return a.flag == b.flag
	default:
		return true
	}
}

// String renders scalars as text and containers as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindBoolean:
		return strconv.FormatBool(v.flag)
	case KindObject, KindArray:
		b, err := v.MarshalJSON()
		if err != nil {
			return "<" + v.kind.String() + ">"
		}
		return string(b)
	default:
		return "<invalid>"
	}
}

func (v Value) mustBe(kind Kind, op string) {
	if v.kind != kind {
		panic(fmt.Sprintf("document: %s called on %s value", op, v.kind))
	}
}
