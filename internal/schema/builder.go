package schema

import "github.com/roach88/livedb/internal/ir"

// FieldOption adjusts a property built by Field.
type FieldOption func(*ir.Property)

// Object declares a model type with the given properties in order.
func Object(name string, props ...ir.Property) *ir.ObjectSchema {
	return &ir.ObjectSchema{Name: name, Properties: props}
}

// Field declares a property of the given kind.
func Field(name string, kind ir.Kind, opts ...FieldOption) ir.Property {
	p := ir.Property{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// PrimaryKey marks the property as the type's primary key.
func PrimaryKey() FieldOption {
	return func(p *ir.Property) { p.PrimaryKey = true }
}

// Ignored excludes the property from tracking and persistence.
func Ignored() FieldOption {
	return func(p *ir.Property) { p.Ignored = true }
}

// Default sets the value new objects start with.
func Default(v ir.Value) FieldOption {
	return func(p *ir.Property) { p.Default = v }
}

// Target names the model type a reference or list points at.
func Target(model string) FieldOption {
	return func(p *ir.Property) { p.Target = model }
}

// Link declares a to-one reference to target.
func Link(name, target string) ir.Property {
	return Field(name, ir.KindReference, Target(target))
}

// ListOf declares an ordered to-many relationship to target.
func ListOf(name, target string) ir.Property {
	return Field(name, ir.KindList, Target(target))
}
