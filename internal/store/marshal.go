package store

import (
	"fmt"

	"github.com/roach88/livedb/internal/ir"
)

// marshalPayload converts an object's tracked values to canonical JSON TEXT
// for storage. Uses RFC 8785 canonical JSON for deterministic serialization.
//
// The commit record already carries every tracked property, so the payload
// matches ir.MarshalObject for the object's schema.
func marshalPayload(values map[string]ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT into the tracked values of s.
// Properties missing from the payload take their initial value.
func unmarshalPayload(s *ir.ObjectSchema, data string) (map[string]ir.Value, error) {
	if data == "" {
		data = "{}"
	}
	values, err := ir.UnmarshalObject(s, []byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return values, nil
}

// encodeKey converts an identity key to its stored TEXT form.
func encodeKey(key ir.Value) (string, error) {
	k, err := ir.KeyString(key)
	if err != nil {
		return "", fmt.Errorf("encode key: %w", err)
	}
	return k, nil
}

// decodeKey converts a stored key back to a value of the primary key kind
// of s, or leaves it as decoded for models without a primary key.
func decodeKey(s *ir.ObjectSchema, stored string) (ir.Value, error) {
	key, err := ir.ParseKeyString(stored)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if pk, ok := s.PrimaryKey(); ok {
		key, err = ir.Convert(pk.Kind, key)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", stored, err)
		}
	}
	return key, nil
}
