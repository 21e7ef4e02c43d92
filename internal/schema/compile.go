package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/livedb/internal/ir"
)

// CompileModel parses a CUE model struct into an ObjectSchema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Person: { ... }`)
//	s, err := CompileModel(v.LookupPath(cue.ParsePath("model.Person")))
func CompileModel(v cue.Value) (*ir.ObjectSchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &ir.ObjectSchema{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		s.Name = labels[len(labels)-1].String()
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, &CompileError{
			Field:   "properties",
			Message: "properties are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		p, err := compileProperty(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.Properties = append(s.Properties, p)
	}

	if pkVal := v.LookupPath(cue.ParsePath("primaryKey")); pkVal.Exists() {
		name, err := pkVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !markProperty(s, name, func(p *ir.Property) { p.PrimaryKey = true }) {
			return nil, &CompileError{
				Field:   "primaryKey",
				Message: fmt.Sprintf("primary key %q is not a declared property", name),
				Pos:     pkVal.Pos(),
			}
		}
	}

	if ignVal := v.LookupPath(cue.ParsePath("ignored")); ignVal.Exists() {
		list, err := ignVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			name, err := list.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if !markProperty(s, name, func(p *ir.Property) { p.Ignored = true }) {
				return nil, &CompileError{
					Field:   "ignored",
					Message: fmt.Sprintf("ignored property %q is not declared", name),
					Pos:     list.Value().Pos(),
				}
			}
		}
	}

	return s, nil
}

// CompileSource compiles every model under the top-level "model" field of a
// CUE source text, in declaration order.
func CompileSource(filename, src string) ([]*ir.ObjectSchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileModels(v)
}

func compileModels(v cue.Value) ([]*ir.ObjectSchema, error) {
	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*ir.ObjectSchema
	for iter.Next() {
		s, err := CompileModel(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func markProperty(s *ir.ObjectSchema, name string, mark func(*ir.Property)) bool {
	for i := range s.Properties {
		if s.Properties[i].Name == name {
			mark(&s.Properties[i])
			return true
		}
	}
	return false
}

// compileProperty parses { type, target?, default? }.
func compileProperty(name string, v cue.Value) (ir.Property, error) {
	p := ir.Property{Name: name}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return p, &CompileError{
			Field:   name + ".type",
			Message: "property type is required",
			Pos:     v.Pos(),
		}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return p, formatCUEError(err)
	}
	kind, ok := ir.ParseKind(typeName)
	if !ok {
		return p, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unknown property type %q", typeName),
			Pos:     typeVal.Pos(),
		}
	}
	p.Kind = kind

	if targetVal := v.LookupPath(cue.ParsePath("target")); targetVal.Exists() {
		target, err := targetVal.String()
		if err != nil {
			return p, formatCUEError(err)
		}
		p.Target = target
	}

	if defVal := v.LookupPath(cue.ParsePath("default")); defVal.Exists() {
		def, err := compileDefault(kind, defVal)
		if err != nil {
			return p, &CompileError{
				Field:   name + ".default",
				Message: err.Error(),
				Pos:     defVal.Pos(),
			}
		}
		p.Default = def
	}

	return p, nil
}

// compileDefault converts a concrete CUE value into a value of kind k.
// Links accept only null and [] and leave the default unset.
func compileDefault(k ir.Kind, v cue.Value) (ir.Value, error) {
	if k.IsLink() {
		switch v.Kind() {
		case cue.NullKind:
			return nil, nil
		case cue.ListKind:
			if n, err := v.Len().Int64(); err == nil && n == 0 {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("%s default must be null or []", k)
	}

	var x any
	var err error
	switch v.Kind() {
	case cue.BoolKind:
		x, err = v.Bool()
	case cue.IntKind:
		x, err = v.Int64()
	case cue.FloatKind:
		x, err = v.Float64()
	case cue.StringKind:
		x, err = v.String()
	case cue.BytesKind:
		x, err = v.Bytes()
	default:
		return nil, fmt.Errorf("default must be a concrete scalar, got %v", v.IncompleteKind())
	}
	if err != nil {
		return nil, err
	}
	return ir.FromGo(k, x)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
