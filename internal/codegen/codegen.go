// Package codegen emits typed Go accessors for livedb models.
//
// For every model the generated file declares its schema literal, key-path
// constants, a wrapper type embedding *engine.Accessor, constructors
// (New<Model>, Wrap<Model>, Add<Model>, <Model>ForPrimaryKey) and typed
// getters and setters. Ignored properties get <Prop>Local and
// Set<Prop>Local, which read and write the accessor's local slot.
package codegen

import (
	"fmt"
	"go/format"
	"go/token"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/schema"
)

// Header is the first line of every generated file.
const Header = "// Code generated by livedb generate. DO NOT EDIT."

const (
	importEngine = "github.com/roach88/livedb/internal/engine"
	importIR     = "github.com/roach88/livedb/internal/ir"
	importSchema = "github.com/roach88/livedb/internal/schema"
)

// Generate renders a gofmt'd Go file in package pkg for schemas.
// The schemas must validate together: every link target is one of them.
func Generate(pkg string, schemas []*ir.ObjectSchema) ([]byte, error) {
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("invalid package name %q", pkg)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no models to generate")
	}
	if errs := schema.ValidateAll(schemas); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid models:\n  %s", strings.Join(msgs, "\n  "))
	}

	g := &generator{decls: make(map[string]string)}
	for _, s := range schemas {
		if err := g.model(s); err != nil {
			return nil, err
		}
	}
	if err := g.register(schemas); err != nil {
		return nil, err
	}

	var file strings.Builder
	file.WriteString(Header + "\n\n")
	fmt.Fprintf(&file, "package %s\n\n", pkg)
	file.WriteString("import (\n")
	if g.usesTime {
		file.WriteString("\t\"time\"\n\n")
	}
	fmt.Fprintf(&file, "\t%q\n\t%q\n\t%q\n", importEngine, importIR, importSchema)
	file.WriteString(")\n\n")
	file.WriteString(g.body.String())

	formatted, err := format.Source([]byte(file.String()))
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return formatted, nil
}

type generator struct {
	body     strings.Builder
	usesTime bool
	decls    map[string]string // package-level identifier -> what declared it
}

// declare reserves package-level identifiers for what.
func (g *generator) declare(what string, names ...string) error {
	for _, name := range names {
		if prev, ok := g.decls[name]; ok {
			return fmt.Errorf("%s: identifier %s is already declared by %s", what, name, prev)
		}
		g.decls[name] = what
	}
	return nil
}

// goType describes how a scalar kind surfaces in generated code.
type goType struct {
	name     string // Go type of getters and setters
	wrap     string // ir conversion applied to a Go value
	unwrap   string // expression template turning %s (an ir.Value) into the Go type
	zero     string
	usesTime bool
}

var scalarTypes = map[ir.Kind]goType{
	ir.KindBool:    {name: "bool", wrap: "ir.Bool", unwrap: "bool(%s.(ir.Bool))", zero: "false"},
	ir.KindInt8:    {name: "int8", wrap: "ir.Int8", unwrap: "int8(%s.(ir.Int8))", zero: "0"},
	ir.KindInt16:   {name: "int16", wrap: "ir.Int16", unwrap: "int16(%s.(ir.Int16))", zero: "0"},
	ir.KindInt32:   {name: "int32", wrap: "ir.Int32", unwrap: "int32(%s.(ir.Int32))", zero: "0"},
	ir.KindInt64:   {name: "int64", wrap: "ir.Int64", unwrap: "int64(%s.(ir.Int64))", zero: "0"},
	ir.KindFloat32: {name: "float32", wrap: "ir.Float32", unwrap: "float32(%s.(ir.Float32))", zero: "0"},
	ir.KindFloat64: {name: "float64", wrap: "ir.Float64", unwrap: "float64(%s.(ir.Float64))", zero: "0"},
	ir.KindString:  {name: "string", wrap: "ir.String", unwrap: "string(%s.(ir.String))", zero: `""`},
	ir.KindBytes:   {name: "[]byte", wrap: "ir.Bytes", unwrap: "[]byte(%s.(ir.Bytes))", zero: "nil"},
	ir.KindInstant: {name: "time.Time", wrap: "ir.NewInstant", unwrap: "%s.(ir.Instant).Time()", zero: "time.Time{}", usesTime: true},
}

func (g *generator) model(s *ir.ObjectSchema) error {
	typ, err := exportName(s.Name)
	if err != nil {
		return fmt.Errorf("model %s: %w", s.Name, err)
	}
	methods := newMethodSet(typ)
	model := "model " + s.Name
	if err := g.declare(model, typ, typ+"Schema", "New"+typ, "Wrap"+typ, "Add"+typ); err != nil {
		return err
	}
	if _, ok := s.PrimaryKey(); ok {
		if err := g.declare(model, typ+"ForPrimaryKey"); err != nil {
			return err
		}
	}

	b := &g.body
	fmt.Fprintf(b, "// %sSchema is the schema of the %s model.\n", typ, s.Name)
	fmt.Fprintf(b, "var %sSchema = &ir.ObjectSchema{\n", typ)
	fmt.Fprintf(b, "\tName: %q,\n", s.Name)
	b.WriteString("\tProperties: []ir.Property{\n")
	for _, p := range s.Properties {
		lit, err := g.propertyLiteral(p)
		if err != nil {
			return fmt.Errorf("model %s: %w", s.Name, err)
		}
		fmt.Fprintf(b, "\t\t%s,\n", lit)
	}
	b.WriteString("\t},\n}\n\n")

	fmt.Fprintf(b, "// Key paths of %s.\n", s.Name)
	b.WriteString("const (\n")
	for _, p := range s.Properties {
		name, err := exportName(p.Name)
		if err != nil {
			return fmt.Errorf("model %s: property %s: %w", s.Name, p.Name, err)
		}
		if err := g.declare(model+" property "+p.Name, typ+name); err != nil {
			return err
		}
		if p.Ignored && p.Kind.IsLink() {
			return fmt.Errorf("model %s: property %s: ignored links are not supported", s.Name, p.Name)
		}
		fmt.Fprintf(b, "\t%s%s = %q\n", typ, name, p.Name)
	}
	b.WriteString(")\n\n")

	g.wrapper(s, typ)

	for _, p := range s.Properties {
		if err := g.property(s, typ, p, methods); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) wrapper(s *ir.ObjectSchema, typ string) {
	b := &g.body
	fmt.Fprintf(b, "// %s is a typed accessor for %s objects.\n", typ, s.Name)
	fmt.Fprintf(b, "type %s struct {\n\t*engine.Accessor\n}\n\n", typ)

	fmt.Fprintf(b, "// New%s creates a standalone %s.\n", typ, s.Name)
	fmt.Fprintf(b, "func New%s(init map[string]ir.Value, opts ...engine.ObjectOption) (*%s, error) {\n", typ, typ)
	fmt.Fprintf(b, "\ta, err := engine.NewObject(%sSchema, init, opts...)\n", typ)
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(b, "\treturn &%s{a}, nil\n}\n\n", typ)

	fmt.Fprintf(b, "// Wrap%s returns a typed view of a, or nil if a is nil or not a %s.\n", typ, s.Name)
	fmt.Fprintf(b, "func Wrap%s(a *engine.Accessor) *%s {\n", typ, typ)
	fmt.Fprintf(b, "\tif a == nil || a.Type() != %q {\n\t\treturn nil\n\t}\n", s.Name)
	fmt.Fprintf(b, "\treturn &%s{a}\n}\n\n", typ)

	fmt.Fprintf(b, "// Add%s admits o into s. Requires the write transaction.\n", typ)
	fmt.Fprintf(b, "func Add%s(s *engine.Store, o *%s) (*%s, error) {\n", typ, typ, typ)
	b.WriteString("\ta, err := s.Add(o.Accessor)\n")
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(b, "\treturn &%s{a}, nil\n}\n\n", typ)

	pk, ok := s.PrimaryKey()
	if !ok {
		return
	}
	t := scalarTypes[pk.Kind]
	fmt.Fprintf(b, "// %sForPrimaryKey looks up a persisted %s. Returns nil if there is none.\n", typ, s.Name)
	fmt.Fprintf(b, "func %sForPrimaryKey(s *engine.Store, key %s) (*%s, error) {\n", typ, t.name, typ)
	fmt.Fprintf(b, "\ta, err := s.ObjectForPrimaryKey(%q, %s(key))\n", s.Name, t.wrap)
	b.WriteString("\tif err != nil || a == nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(b, "\treturn &%s{a}, nil\n}\n\n", typ)
}

func (g *generator) property(s *ir.ObjectSchema, typ string, p ir.Property, methods *methodSet) error {
	name, _ := exportName(p.Name)
	keyPath := typ + name
	b := &g.body

	switch {
	case p.Ignored:
		t := scalarTypes[p.Kind]
		g.usesTime = g.usesTime || t.usesTime
		getter, setter := name+"Local", "Set"+name+"Local"
		if err := methods.add(getter, setter); err != nil {
			return fmt.Errorf("model %s: property %s: %w", s.Name, p.Name, err)
		}
		fmt.Fprintf(b, "// %s reads the local value of %s. It is never stored.\n", getter, p.Name)
		fmt.Fprintf(b, "func (o *%s) %s() (%s, error) {\n", typ, getter, t.name)
		fmt.Fprintf(b, "\tv, err := o.Accessor.Local(%s)\n", keyPath)
		fmt.Fprintf(b, "\tif err != nil {\n\t\treturn %s, err\n\t}\n", t.zero)
		fmt.Fprintf(b, "\treturn %s, nil\n}\n\n", fmt.Sprintf(t.unwrap, "v"))
		fmt.Fprintf(b, "// %s writes the local value of %s.\n", setter, p.Name)
		fmt.Fprintf(b, "func (o *%s) %s(v %s) error {\n", typ, setter, t.name)
		fmt.Fprintf(b, "\treturn o.Accessor.SetLocal(%s, %s(v))\n}\n\n", keyPath, t.wrap)

	case p.Kind == ir.KindReference:
		target, _ := exportName(p.Target)
		if err := methods.add(name, "Set"+name); err != nil {
			return fmt.Errorf("model %s: property %s: %w", s.Name, p.Name, err)
		}
		fmt.Fprintf(b, "// %s returns the linked %s, or nil.\n", name, p.Target)
		fmt.Fprintf(b, "func (o *%s) %s() (*%s, error) {\n", typ, name, target)
		fmt.Fprintf(b, "\ta, err := o.Accessor.Object(%s)\n", keyPath)
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		fmt.Fprintf(b, "\treturn Wrap%s(a), nil\n}\n\n", target)
		fmt.Fprintf(b, "// Set%s links %s to v (nil clears it).\n", name, p.Name)
		fmt.Fprintf(b, "func (o *%s) Set%s(v *%s) error {\n", typ, name, target)
		b.WriteString("\tvar a *engine.Accessor\n\tif v != nil {\n\t\ta = v.Accessor\n\t}\n")
		fmt.Fprintf(b, "\treturn o.Accessor.SetObject(%s, a)\n}\n\n", keyPath)

	case p.Kind == ir.KindList:
		target, _ := exportName(p.Target)
		if err := methods.add(name, "Set"+name, "Append"+name); err != nil {
			return fmt.Errorf("model %s: property %s: %w", s.Name, p.Name, err)
		}
		fmt.Fprintf(b, "// %s returns the objects in %s, in order.\n", name, p.Name)
		fmt.Fprintf(b, "func (o *%s) %s() ([]*%s, error) {\n", typ, name, target)
		fmt.Fprintf(b, "\tlist, err := o.Accessor.List(%s)\n", keyPath)
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		fmt.Fprintf(b, "\tout := make([]*%s, len(list))\n", target)
		fmt.Fprintf(b, "\tfor i, a := range list {\n\t\tout[i] = Wrap%s(a)\n\t}\n", target)
		b.WriteString("\treturn out, nil\n}\n\n")
		fmt.Fprintf(b, "// Set%s replaces the objects in %s.\n", name, p.Name)
		fmt.Fprintf(b, "func (o *%s) Set%s(v []*%s) error {\n", typ, name, target)
		b.WriteString("\tlist := make([]*engine.Accessor, len(v))\n")
		b.WriteString("\tfor i, e := range v {\n\t\tif e != nil {\n\t\t\tlist[i] = e.Accessor\n\t\t}\n\t}\n")
		fmt.Fprintf(b, "\treturn o.Accessor.SetList(%s, list)\n}\n\n", keyPath)
		fmt.Fprintf(b, "// Append%s adds v to the end of %s.\n", name, p.Name)
		fmt.Fprintf(b, "func (o *%s) Append%s(v *%s) error {\n", typ, name, target)
		fmt.Fprintf(b, "\treturn o.Accessor.Append(%s, v.Accessor)\n}\n\n", keyPath)

	default:
		t := scalarTypes[p.Kind]
		g.usesTime = g.usesTime || t.usesTime
		if err := methods.add(name, "Set"+name); err != nil {
			return fmt.Errorf("model %s: property %s: %w", s.Name, p.Name, err)
		}
		fmt.Fprintf(b, "// %s returns %s.\n", name, p.Name)
		fmt.Fprintf(b, "func (o *%s) %s() (%s, error) {\n", typ, name, t.name)
		fmt.Fprintf(b, "\tv, err := o.Accessor.Get(%s)\n", keyPath)
		fmt.Fprintf(b, "\tif err != nil {\n\t\treturn %s, err\n\t}\n", t.zero)
		fmt.Fprintf(b, "\treturn %s, nil\n}\n\n", fmt.Sprintf(t.unwrap, "v"))
		fmt.Fprintf(b, "// Set%s writes %s and notifies its observers.\n", name, p.Name)
		fmt.Fprintf(b, "func (o *%s) Set%s(v %s) error {\n", typ, name, t.name)
		fmt.Fprintf(b, "\treturn o.Accessor.Set(%s, %s(v))\n}\n\n", keyPath, t.wrap)
	}
	return nil
}

func (g *generator) register(schemas []*ir.ObjectSchema) error {
	if err := g.declare("package", "Schemas", "Register"); err != nil {
		return err
	}
	b := &g.body
	b.WriteString("// Schemas returns the models of this package in declaration order.\n")
	b.WriteString("func Schemas() []*ir.ObjectSchema {\n\treturn []*ir.ObjectSchema{\n")
	for _, s := range schemas {
		typ, _ := exportName(s.Name)
		fmt.Fprintf(b, "\t\t%sSchema,\n", typ)
	}
	b.WriteString("\t}\n}\n\n")

	b.WriteString("// Register adds the models of this package to reg.\n")
	b.WriteString("func Register(reg *schema.Registry) error {\n")
	b.WriteString("\tfor _, s := range Schemas() {\n")
	b.WriteString("\t\tif err := reg.Register(s); err != nil {\n\t\t\treturn err\n\t\t}\n\t}\n")
	b.WriteString("\treturn nil\n}\n")
	return nil
}

func (g *generator) propertyLiteral(p ir.Property) (string, error) {
	fields := []string{
		fmt.Sprintf("Name: %q", p.Name),
		"Kind: " + kindConst(p.Kind),
	}
	if p.Target != "" {
		fields = append(fields, fmt.Sprintf("Target: %q", p.Target))
	}
	if p.PrimaryKey {
		fields = append(fields, "PrimaryKey: true")
	}
	if p.Ignored {
		fields = append(fields, "Ignored: true")
	}
	if p.Default != nil {
		lit, err := g.valueLiteral(p.Default)
		if err != nil {
			return "", fmt.Errorf("property %s default: %w", p.Name, err)
		}
		fields = append(fields, "Default: "+lit)
	}
	return "{" + strings.Join(fields, ", ") + "}", nil
}

func (g *generator) valueLiteral(v ir.Value) (string, error) {
	switch val := v.(type) {
	case ir.Null:
		return "ir.Null{}", nil
	case ir.Bool:
		return fmt.Sprintf("ir.Bool(%t)", bool(val)), nil
	case ir.Int8:
		return fmt.Sprintf("ir.Int8(%d)", val), nil
	case ir.Int16:
		return fmt.Sprintf("ir.Int16(%d)", val), nil
	case ir.Int32:
		return fmt.Sprintf("ir.Int32(%d)", val), nil
	case ir.Int64:
		return fmt.Sprintf("ir.Int64(%d)", val), nil
	case ir.Float32:
		return floatLiteral("ir.Float32", float64(val), 32)
	case ir.Float64:
		return floatLiteral("ir.Float64", float64(val), 64)
	case ir.String:
		return fmt.Sprintf("ir.String(%s)", strconv.Quote(string(val))), nil
	case ir.Bytes:
		return fmt.Sprintf("ir.Bytes(%s)", strconv.Quote(string(val))), nil
	case ir.Instant:
		g.usesTime = true
		t := val.Time().UTC()
		return fmt.Sprintf("ir.NewInstant(time.Unix(%d, %d).UTC())", t.Unix(), t.Nanosecond()), nil
	case ir.List:
		if len(val) == 0 {
			return "ir.List{}", nil
		}
	}
	return "", fmt.Errorf("cannot render %s as a default", ir.Format(v))
}

func floatLiteral(conv string, f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite default %v", f)
	}
	return fmt.Sprintf("%s(%s)", conv, strconv.FormatFloat(f, 'g', -1, bits)), nil
}

func kindConst(k ir.Kind) string {
	switch k {
	case ir.KindBool:
		return "ir.KindBool"
	case ir.KindInt8:
		return "ir.KindInt8"
	case ir.KindInt16:
		return "ir.KindInt16"
	case ir.KindInt32:
		return "ir.KindInt32"
	case ir.KindInt64:
		return "ir.KindInt64"
	case ir.KindFloat32:
		return "ir.KindFloat32"
	case ir.KindFloat64:
		return "ir.KindFloat64"
	case ir.KindString:
		return "ir.KindString"
	case ir.KindBytes:
		return "ir.KindBytes"
	case ir.KindInstant:
		return "ir.KindInstant"
	case ir.KindReference:
		return "ir.KindReference"
	case ir.KindList:
		return "ir.KindList"
	}
	return "ir.KindInvalid"
}

var initialisms = map[string]string{
	"id":   "ID",
	"ids":  "IDs",
	"url":  "URL",
	"uuid": "UUID",
	"api":  "API",
}

// exportName turns a model or property name into an exported Go
// identifier: "int32Col" -> "Int32Col", "first_name" -> "FirstName",
// "id" -> "ID".
func exportName(name string) (string, error) {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var b strings.Builder
	for _, part := range parts {
		if initialism, ok := initialisms[strings.ToLower(part)]; ok {
			b.WriteString(initialism)
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	out := b.String()
	if !token.IsIdentifier(out) || !token.IsExported(out) {
		return "", fmt.Errorf("%q does not make an exported Go identifier", name)
	}
	return out, nil
}

// methodSet detects generated methods that would collide with each other
// or with methods promoted from *engine.Accessor.
type methodSet struct {
	typ  string
	seen map[string]bool
}

var accessorMethods = []string{
	"Accessor", "Append", "Get", "IsDetached", "IsPersisted", "Key", "List", "Local",
	"Object", "Observe", "Ref", "RemoveAt", "Replace", "SameObject", "Schema",
	"Set", "SetList", "SetLocal", "SetObject", "Store", "Target", "Type", "Values",
}

func newMethodSet(typ string) *methodSet {
	m := &methodSet{typ: typ, seen: make(map[string]bool)}
	for _, name := range accessorMethods {
		m.seen[name] = true
	}
	return m
}

func (m *methodSet) add(names ...string) error {
	for _, name := range names {
		if m.seen[name] {
			return fmt.Errorf("method %s.%s is already defined", m.typ, name)
		}
		m.seen[name] = true
	}
	return nil
}
