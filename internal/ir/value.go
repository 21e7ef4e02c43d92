package ir

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is a sealed interface over the property values a schema can hold.
// Only the types in this file implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null marks an unset reference. It is a distinct comparable value, not
// the absence of one.
type Null struct{}

func (Null) irValue() {}

// Bool is a boolean property value.
type Bool bool

func (Bool) irValue() {}

// Int8 is an 8-bit integer property value.
type Int8 int8

func (Int8) irValue() {}

// Int16 is a 16-bit integer property value.
type Int16 int16

func (Int16) irValue() {}

// Int32 is a 32-bit integer property value.
type Int32 int32

func (Int32) irValue() {}

// Int64 is a 64-bit integer property value.
type Int64 int64

func (Int64) irValue() {}

// Float32 is a single precision property value.
type Float32 float32

func (Float32) irValue() {}

// Float64 is a double precision property value.
type Float64 float64

func (Float64) irValue() {}

// String is a text property value.
type String string

func (String) irValue() {}

// Bytes is a binary property value. Compared by content.
type Bytes []byte

func (Bytes) irValue() {}

// Instant is a point in time. Compared by the represented instant, so two
// values in different locations can be equal.
type Instant time.Time

func (Instant) irValue() {}

// Time returns the instant as a time.Time.
func (i Instant) Time() time.Time {
	return time.Time(i)
}

// NewInstant wraps t as an Instant.
func NewInstant(t time.Time) Instant {
	return Instant(t)
}

// Epoch is the default instant: the Unix epoch in UTC.
func Epoch() Instant {
	return Instant(time.Unix(0, 0).UTC())
}

// Ref identifies another object by type and identity key.
// For persisted objects the key is the primary key value (or the generated
// object key for types without one).
type Ref struct {
	Type string
	Key  Value
}

func (Ref) irValue() {}

// NewRef creates a reference to the object of type typ identified by key.
func NewRef(typ string, key Value) Ref {
	return Ref{Type: typ, Key: key}
}

// List is an ordered to-many relationship value.
type List []Ref

func (List) irValue() {}

// KindOf returns the kind of a value. Null has no kind of its own and
// reports KindInvalid.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Bool:
		return KindBool
	case Int8:
		return KindInt8
	case Int16:
		return KindInt16
	case Int32:
		return KindInt32
	case Int64:
		return KindInt64
	case Float32:
		return KindFloat32
	case Float64:
		return KindFloat64
	case String:
		return KindString
	case Bytes:
		return KindBytes
	case Instant:
		return KindInstant
	case Ref:
		return KindReference
	case List:
		return KindList
	default:
		return KindInvalid
	}
}

// IsNull reports whether v is the null marker (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Format renders a value for logs, traces and CLI output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int8:
		return strconv.FormatInt(int64(val), 10)
	case Int16:
		return strconv.FormatInt(int64(val), 10)
	case Int32:
		return strconv.FormatInt(int64(val), 10)
	case Int64:
		return strconv.FormatInt(int64(val), 10)
	case Float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return strconv.Quote(string(val))
	case Bytes:
		return "b64:" + base64.StdEncoding.EncodeToString(val)
	case Instant:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case Ref:
		return fmt.Sprintf("%s(%s)", val.Type, Format(val.Key))
	case List:
		parts := make([]string, len(val))
		for i, r := range val {
			parts[i] = Format(r)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Clone returns a copy of v that shares no mutable memory with it.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Bytes:
		if val == nil {
			return Bytes{}
		}
		out := make(Bytes, len(val))
		copy(out, val)
		return out
	case List:
		out := make(List, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
