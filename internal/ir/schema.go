package ir

import (
	"encoding/json"
	"fmt"
)

// ObjectSchema describes one model type: its name and ordered properties.
type ObjectSchema struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Property describes a single declared property.
type Property struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	Target     string `json:"target,omitempty"`      // model type for object/list kinds
	PrimaryKey bool   `json:"primary_key,omitempty"` // at most one per schema
	Ignored    bool   `json:"ignored,omitempty"`     // never tracked, never persisted
	Default    Value  `json:"-"`                     // nil means the kind's zero
}

// Property returns the property named name.
func (s *ObjectSchema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// PrimaryKey returns the primary key property, if the type declares one.
func (s *ObjectSchema) PrimaryKey() (Property, bool) {
	for _, p := range s.Properties {
		if p.PrimaryKey {
			return p, true
		}
	}
	return Property{}, false
}

// Tracked returns the non-ignored properties in declaration order.
func (s *ObjectSchema) Tracked() []Property {
	out := make([]Property, 0, len(s.Properties))
	for _, p := range s.Properties {
		if !p.Ignored {
			out = append(out, p)
		}
	}
	return out
}

// Ignored returns the ignored properties in declaration order.
func (s *ObjectSchema) Ignored() []Property {
	var out []Property
	for _, p := range s.Properties {
		if p.Ignored {
			out = append(out, p)
		}
	}
	return out
}

// InitialValue returns the value a new object starts with for p.
func (p Property) InitialValue() Value {
	if p.Default != nil {
		return Clone(p.Default)
	}
	return ZeroValue(p.Kind)
}

// ZeroValue returns the zero value of kind k.
func ZeroValue(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt8:
		return Int8(0)
	case KindInt16:
		return Int16(0)
	case KindInt32:
		return Int32(0)
	case KindInt64:
		return Int64(0)
	case KindFloat32:
		return Float32(0)
	case KindFloat64:
		return Float64(0)
	case KindString:
		return String("")
	case KindBytes:
		return Bytes{}
	case KindInstant:
		return Epoch()
	case KindList:
		return List{}
	default:
		return Null{}
	}
}

// Check reports whether v can be stored in p without conversion.
// Links are additionally checked for their target type.
func (p Property) Check(v Value) error {
	switch p.Kind {
	case KindReference:
		if IsNull(v) {
			return nil
		}
		ref, ok := v.(Ref)
		if !ok {
			return fmt.Errorf("property %q expects object %s, got %s", p.Name, p.Target, KindOf(v))
		}
		if ref.Type != p.Target {
			return fmt.Errorf("property %q expects object %s, got %s", p.Name, p.Target, ref.Type)
		}
		return nil
	case KindList:
		list, ok := v.(List)
		if !ok {
			return fmt.Errorf("property %q expects list of %s, got %s", p.Name, p.Target, KindOf(v))
		}
		for i, ref := range list {
			if ref.Type != p.Target {
				return fmt.Errorf("property %q[%d] expects object %s, got %s", p.Name, i, p.Target, ref.Type)
			}
		}
		return nil
	default:
		if KindOf(v) != p.Kind {
			return fmt.Errorf("property %q expects %s, got %s", p.Name, p.Kind, kindName(v))
		}
		return nil
	}
}

func kindName(v Value) string {
	if IsNull(v) {
		return "null"
	}
	return KindOf(v).String()
}

// propertyJSON is the wire form of Property, carrying the default in its
// canonical encoding.
type propertyJSON struct {
	Name       string          `json:"name"`
	Kind       Kind            `json:"kind"`
	Target     string          `json:"target,omitempty"`
	PrimaryKey bool            `json:"primary_key,omitempty"`
	Ignored    bool            `json:"ignored,omitempty"`
	Default    json.RawMessage `json:"default,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Property) MarshalJSON() ([]byte, error) {
	out := propertyJSON{
		Name:       p.Name,
		Kind:       p.Kind,
		Target:     p.Target,
		PrimaryKey: p.PrimaryKey,
		Ignored:    p.Ignored,
	}
	if p.Default != nil {
		raw, err := MarshalValue(p.Default)
		if err != nil {
			return nil, fmt.Errorf("property %q default: %w", p.Name, err)
		}
		out.Default = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Property) UnmarshalJSON(data []byte) error {
	var in propertyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Property{
		Name:       in.Name,
		Kind:       in.Kind,
		Target:     in.Target,
		PrimaryKey: in.PrimaryKey,
		Ignored:    in.Ignored,
	}
	if len(in.Default) > 0 {
		v, err := UnmarshalValue(p.Kind, in.Default)
		if err != nil {
			return fmt.Errorf("property %q default: %w", p.Name, err)
		}
		p.Default = v
	}
	return nil
}
