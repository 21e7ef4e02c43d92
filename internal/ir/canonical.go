package ir

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for values, plain Go scalars and
// nested []any / map[string]any built from them.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (RFC 8785), not UTF-8 bytes
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats use the shortest representation that round-trips
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalValue encodes a single property value canonically.
func MarshalValue(v Value) ([]byte, error) {
	return MarshalCanonical(v)
}

// MarshalObject encodes the tracked properties of an object as one
// canonical JSON object. Ignored properties are never written.
func MarshalObject(s *ObjectSchema, values map[string]Value) ([]byte, error) {
	obj := make(map[string]any, len(s.Properties))
	for _, p := range s.Tracked() {
		v, ok := values[p.Name]
		if !ok {
			v = p.InitialValue()
		}
		obj[p.Name] = v
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", s.Name, err)
	}
	return data, nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case Int8, Int16, Int32, Int64:
		n, _ := numeric(val.(Value))
		buf.WriteString(strconv.FormatInt(n.i, 10))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case Float32:
		return writeFloat(buf, float64(val), 32)
	case Float64:
		return writeFloat(buf, float64(val), 64)
	case float64:
		return writeFloat(buf, val, 64)
	case String:
		return writeString(buf, string(val))
	case string:
		return writeString(buf, val)
	case Bytes:
		return writeString(buf, base64.StdEncoding.EncodeToString(val))
	case Instant:
		return writeString(buf, val.Time().UTC().Format(time.RFC3339Nano))
	case Ref:
		key, err := KeyString(val.Key)
		if err != nil {
			return err
		}
		return writeObject(buf, map[string]any{"type": val.Type, "key": key})
	case List:
		items := make([]any, len(val))
		for i, r := range val {
			items[i] = r
		}
		return writeArray(buf, items)
	case []any:
		return writeArray(buf, val)
	case map[string]any:
		return writeObject(buf, val)
	case map[string]Value:
		obj := make(map[string]any, len(val))
		for k, e := range val {
			obj[k] = e
		}
		return writeObject(buf, obj)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// Non-finite floats have no JSON number form and are written as strings.
const (
	jsonNaN    = "NaN"
	jsonPosInf = "Infinity"
	jsonNegInf = "-Infinity"
)

func writeFloat(buf *bytes.Buffer, f float64, bits int) error {
	switch {
	case math.IsNaN(f):
		return writeString(buf, jsonNaN)
	case math.IsInf(f, 1):
		return writeString(buf, jsonPosInf)
	case math.IsInf(f, -1):
		return writeString(buf, jsonNegInf)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

func parseNonFinite(s string) (float64, bool) {
	switch s {
	case jsonNaN:
		return math.NaN(), true
	case jsonPosInf:
		return math.Inf(1), true
	case jsonNegInf:
		return math.Inf(-1), true
	}
	return 0, false
}

func writeArray(buf *bytes.Buffer, items []any) error {
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, item); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeString writes an NFC normalized JSON string. Only quote, backslash
// and control characters are escaped (RFC 8785); HTML characters and
// U+2028/U+2029 are written literally.
func writeString(buf *bytes.Buffer, s string) error {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return nil
}

// compareKeysRFC8785 compares strings by UTF-16 code units as RFC 8785
// requires. Go's native string order is by UTF-8 bytes, which differs for
// characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// UnmarshalValue decodes a canonical JSON value of kind k.
func UnmarshalValue(k Kind, data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return fromJSON(k, raw)
}

// UnmarshalObject decodes an object written by MarshalObject. Tracked
// properties missing from the payload take their initial value, so rows
// written before a property was added still load.
func UnmarshalObject(s *ObjectSchema, data []byte) (map[string]Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", s.Name, err)
	}

	values := make(map[string]Value, len(s.Properties))
	for _, p := range s.Tracked() {
		r, ok := raw[p.Name]
		if !ok {
			values[p.Name] = p.InitialValue()
			continue
		}
		v, err := fromJSON(p.Kind, r)
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s.%s: %w", s.Name, p.Name, err)
		}
		values[p.Name] = v
	}
	return values, nil
}

func fromJSON(k Kind, raw any) (Value, error) {
	switch k {
	case KindReference:
		if raw == nil {
			return Null{}, nil
		}
		return refFromJSON(raw)
	case KindList:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", raw)
		}
		list := make(List, len(items))
		for i, item := range items {
			ref, err := refFromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = ref
		}
		return list, nil
	case KindBytes:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode bytes: %w", err)
		}
		return Bytes(b), nil
	case KindInstant:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected RFC 3339 string, got %T", raw)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("decode instant: %w", err)
		}
		return Instant(t.UTC()), nil
	}

	if str, ok := raw.(string); ok && k.IsFloat() {
		f, ok := parseNonFinite(str)
		if !ok {
			return nil, fmt.Errorf("decode %s: unexpected string %q", k, str)
		}
		return Convert(k, Float64(f))
	}
	if num, ok := raw.(json.Number); ok {
		if k == KindFloat32 {
			f, err := strconv.ParseFloat(num.String(), 32)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", k, err)
			}
			return Float32(f), nil
		}
		if k.IsFloat() {
			f, err := num.Float64()
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", k, err)
			}
			return Float64(f), nil
		}
		i, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		return Convert(k, Int64(i))
	}
	return FromGo(k, raw)
}

func refFromJSON(raw any) (Ref, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Ref{}, fmt.Errorf("expected reference object, got %T", raw)
	}
	typ, _ := obj["type"].(string)
	keyStr, _ := obj["key"].(string)
	if typ == "" || keyStr == "" {
		return Ref{}, fmt.Errorf("reference needs type and key")
	}
	key, err := ParseKeyString(keyStr)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Type: typ, Key: key}, nil
}
