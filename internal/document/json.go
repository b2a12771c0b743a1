package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Parse decodes a JSON document. Object member order is preserved and
// null members are dropped.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, isNull, err := decode(dec)
	if err != nil {
		return Value{}, err
	}
	if isNull {
		return Value{}, fmt.Errorf("%w: null document", ErrUnsupportedValue)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("unexpected data after document")
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler, emitting members in order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves v
// unchanged.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindString:
		s, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(s)
	case KindInteger:
		buf.WriteString(strconv.FormatInt(v.num, 10))
	case KindBoolean:
		buf.WriteString(strconv.FormatBool(v.flag))
	default:
		return fmt.Errorf("%w: cannot encode invalid value", ErrUnsupportedValue)
	}
	return nil
}

func decode(dec *json.Decoder) (Value, bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, false, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, false, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, false, fmt.Errorf("unexpected object key %v", keyTok)
				}
				member, isNull, err := decode(dec)
				if err != nil {
					return Value{}, false, err
				}
				if isNull {
					continue
				}
				obj = obj.With(key, member)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, false, err
			}
			return obj, false, nil
		case '[':
			var items []Value
			for dec.More() {
				item, isNull, err := decode(dec)
				if err != nil {
					return Value{}, false, err
				}
				if isNull {
					return Value{}, false, fmt.Errorf("%w: null array item", ErrUnsupportedValue)
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, false, err
			}
			return Array(items...), false, nil
		default:
			return Value{}, false, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), false, nil
	case bool:
		return Boolean(t), false, nil
	case json.Number:
		n, err := numberToInt(t)
		if err != nil {
			return Value{}, false, err
		}
		return Integer(n), false, nil
	case nil:
		return Value{}, true, nil
	default:
		return Value{}, false, fmt.Errorf("%w: token %v", ErrUnsupportedValue, tok)
	}
}

func numberToInt(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: number %s is not an integer", ErrUnsupportedValue, n)
	}
	return int64(f), nil
}

// FromAny converts the output of encoding/json or a YAML decoder into a
// Value. Maps lose their member order, so callers that care about order
// should use Parse instead.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case Value:
		return t, nil
	case map[string]any:
		obj := Object()
		for k, raw := range t {
			if raw == nil {
				continue
			}
			member, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			obj = obj.With(k, member)
		}
		return obj, nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, raw := range t {
			item, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case int:
		return Integer(int64(t)), nil
	case int64:
		return Integer(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, t)
		}
		return Integer(int64(t)), nil
	case float64:
		if t != math.Trunc(t) {
			return Value{}, fmt.Errorf("%w: %v is not an integer", ErrUnsupportedValue, t)
		}
		return Integer(int64(t)), nil
	case json.Number:
		n, err := numberToInt(t)
		if err != nil {
			return Value{}, err
		}
		return Integer(n), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, in)
	}
}

// ToAny converts v into plain Go values: map[string]any, []any, string,
// int64 and bool.
func (v Value) ToAny() any {
	switch v.kind {
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.ToAny()
		}
		return out
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.ToAny()
		}
		return out
	case KindString:
		return v.str
	case KindInteger:
		return v.num
	case KindBoolean:
		return v.flag
	default:
		return nil
	}
}
