package ir

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a schema property.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindInstant
	KindReference
	KindList
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindBool:      "bool",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindString:    "string",
	KindBytes:     "bytes",
	KindInstant:   "instant",
	KindReference: "object",
	KindList:      "list",
}

// kindAliases maps accepted spellings in schema sources to kinds.
var kindAliases = map[string]Kind{
	"int":    KindInt64,
	"float":  KindFloat32,
	"double": KindFloat64,
	"data":   KindBytes,
	"binary": KindBytes,
	"date":   KindInstant,
	"time":   KindInstant,
	"ref":    KindReference,
	"array":  KindList,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a kind name as written in a schema source.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if Kind(k) != KindInvalid && name == s {
			return Kind(k), true
		}
	}
	k, ok := kindAliases[s]
	return k, ok
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindInvalid || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown kind %q", string(text))
	}
	*k = parsed
	return nil
}

// IsInteger reports whether k is one of the signed integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsLink reports whether k points at other objects.
func (k Kind) IsLink() bool {
	return k == KindReference || k == KindList
}

// CanBePrimaryKey reports whether a property of kind k may be a primary key.
func (k Kind) CanBePrimaryKey() bool {
	return k.IsInteger() || k == KindString
}
