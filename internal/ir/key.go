package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyString encodes an identity key into the comparable form used by the
// identity map and the durable store. Integers of any width with the same
// number produce the same key.
//
// Format: "i:<decimal>" for integers, "s:<text>" for strings.
func KeyString(v Value) (string, error) {
	if n, ok := numeric(v); ok && n.isInt {
		return "i:" + strconv.FormatInt(n.i, 10), nil
	}
	if s, ok := v.(String); ok {
		return "s:" + string(s), nil
	}
	return "", fmt.Errorf("value %s cannot be an identity key", Format(v))
}

// ParseKeyString decodes a key produced by KeyString. Integers come back as
// Int64; callers convert to the declared key kind with Convert.
func ParseKeyString(s string) (Value, error) {
	switch {
	case strings.HasPrefix(s, "i:"):
		n, err := strconv.ParseInt(s[2:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", s, err)
		}
		return Int64(n), nil
	case strings.HasPrefix(s, "s:"):
		return String(s[2:]), nil
	default:
		return nil, fmt.Errorf("parse key %q: unknown prefix", s)
	}
}
