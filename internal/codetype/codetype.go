// Package codetype resolves type references to descriptors that know how a
// type looks in Dart and how it crosses the native boundary.
//
// Every reachable type has exactly one descriptor per Registry. A
// descriptor renders the static converter class for its type and, for
// declared types, the Dart declaration itself.
package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

// FfiType is how a value is passed through a native call: the dart:ffi
// native type used in signatures and the Dart type the binding sees.
type FfiType struct {
	Native string
	Dart   string
}

// Well-known native representations.
var (
	FfiInt8       = FfiType{"Int8", "int"}
	FfiUint8      = FfiType{"Uint8", "int"}
	FfiInt16      = FfiType{"Int16", "int"}
	FfiUint16     = FfiType{"Uint16", "int"}
	FfiInt32      = FfiType{"Int32", "int"}
	FfiUint32     = FfiType{"Uint32", "int"}
	FfiInt64      = FfiType{"Int64", "int"}
	FfiUint64     = FfiType{"Uint64", "int"}
	FfiFloat      = FfiType{"Float", "double"}
	FfiDouble     = FfiType{"Double", "double"}
	FfiRustBuffer = FfiType{"RustBuffer", "RustBuffer"}
	FfiPointer    = FfiType{"Pointer<Void>", "Pointer<Void>"}
	FfiHandle     = FfiType{"Uint64", "int"}
	FfiVoid       = FfiType{"Void", "void"}
)

// CodeType is the descriptor of one type.
type CodeType interface {
	// Type is the resolved reference this descriptor was built for.
	Type() *idl.Type

	// TypeLabel is the Dart type of values, e.g. List<String> or Person?.
	TypeLabel() string

	// ConverterName is the class holding lift, lower, read, write and
	// allocationSize for the type.
	ConverterName() string

	// Ffi is the native representation of a lowered value.
	Ffi() FfiType

	// Lift converts a native value expression into a Dart value expression.
	Lift(expr string) string

	// Lower converts a Dart value expression into a native value expression.
	Lower(expr string) string

	// Read is an expression yielding LiftRetVal for a Uint8List view.
	Read(buf string) string

	// Write is an expression writing value into buf and yielding the
	// number of bytes written.
	Write(value, buf string) string

	// AllocationSize is an expression bounding the encoded size of value.
	AllocationSize(value string) string

	// Literal renders a default value from the description as a Dart
	// constant expression.
	Literal(v any) (string, error)

	// Codec is the reference codec of the type, or nil when the layout is
	// defined in another package.
	Codec() wire.Codec

	// Render writes the converter class, preceded by the Dart
	// declaration for declared types.
	Render(b *strings.Builder) error
}

// Registry resolves types for one namespace. It is not safe for
// concurrent use; a generation run owns one Registry.
type Registry struct {
	ci     *idl.Interface
	oracle *naming.Oracle

	byName map[string]CodeType
	order  []CodeType

	// rendered holds the converters already written, so that shared
	// helpers are emitted once.
	rendered map[string]bool
}

// NewRegistry creates a registry for ci. The oracle hands out every Dart
// identifier the descriptors need.
func NewRegistry(ci *idl.Interface, oracle *naming.Oracle) *Registry {
	return &Registry{
		ci:       ci,
		oracle:   oracle,
		byName:   make(map[string]CodeType),
		rendered: make(map[string]bool),
	}
}

// Interface returns the description the registry resolves against.
func (r *Registry) Interface() *idl.Interface { return r.ci }

// Oracle returns the naming oracle shared by the descriptors.
func (r *Registry) Oracle() *naming.Oracle { return r.oracle }

// Get returns the descriptor for t, creating it on first use. Element
// types of compounds are reached before the compound itself.
func (r *Registry) Get(t *idl.Type) CodeType {
	key := t.CanonicalName()
	if ct, ok := r.byName[key]; ok {
		return ct
	}
	var ct CodeType
	switch t.Kind {
	case idl.KindOptional:
		ct = newOptional(r, t)
	case idl.KindSequence:
		ct = newSequence(r, t)
	case idl.KindMap:
		ct = newMap(r, t)
	case idl.KindRecord:
		ct = newRecord(r, t)
	case idl.KindEnum:
		ct = newEnum(r, t)
	case idl.KindObject:
		ct = newObject(r, t)
	case idl.KindCallbackInterface:
		ct = newCallback(r, t)
	case idl.KindCustom:
		ct = newCustom(r, t)
	case idl.KindExternal:
		ct = newExternal(r, t)
	default:
		ct = newPrimitive(t)
	}
	r.byName[key] = ct
	r.order = append(r.order, ct)
	return ct
}

// Named returns the descriptor of a declared type.
func (r *Registry) Named(name string) (CodeType, error) {
	t, ok := r.ci.LookupType(name)
	if !ok {
		return nil, errs.Unresolved([]string{"types"}, name)
	}
	return r.Get(t), nil
}

// ReachAll resolves every type referenced by the description, in
// declaration order. String is always reached first since the runtime
// preamble lifts panic messages with it.
func (r *Registry) ReachAll() {
	r.Get(idl.Builtin(idl.KindString))
	reach := func(t *idl.Type) {
		if t == nil {
			return
		}
		var visit func(*idl.Type)
		visit = func(n *idl.Type) {
			switch n.Kind {
			case idl.KindOptional, idl.KindSequence:
				visit(n.Inner)
			case idl.KindMap:
				visit(n.Key)
				visit(n.Value)
			}
			r.Get(n)
		}
		visit(t)
	}
	reachFields := func(fields []*idl.Field) {
		for _, f := range fields {
			reach(f.Type)
		}
	}
	reachFunc := func(f *idl.Function) {
		reachFields(f.Params)
		reach(f.Return)
		reach(f.Throws)
	}

	for _, rec := range r.ci.Records {
		t, _ := r.ci.LookupType(rec.Name)
		reach(t)
		reachFields(rec.Fields)
	}
	for _, e := range r.ci.Enums {
		t, _ := r.ci.LookupType(e.Name)
		reach(t)
		for _, v := range e.Variants {
			reachFields(v.Fields)
		}
	}
	for _, o := range r.ci.Objects {
		t, _ := r.ci.LookupType(o.Name)
		reach(t)
		for _, c := range o.Constructors {
			reachFields(c.Params)
			reach(c.Throws)
		}
		for _, m := range o.Methods {
			reachFunc(m)
		}
		if len(o.Traits) > 0 {
			r.Get(idl.Builtin(idl.KindBool))
			r.Get(idl.Builtin(idl.KindUInt64))
		}
	}
	for _, cb := range r.ci.CallbackInterfaces {
		t, _ := r.ci.LookupType(cb.Name)
		reach(t)
		for _, m := range cb.Methods {
			reachFunc(m)
		}
	}
	for _, c := range r.ci.CustomTypes {
		t, _ := r.ci.LookupType(c.Name)
		reach(c.Builtin)
		reach(t)
	}
	for _, f := range r.ci.Functions {
		reachFunc(f)
	}
}

// Reached returns all descriptors in the order they were first reached.
func (r *Registry) Reached() []CodeType {
	return append([]CodeType(nil), r.order...)
}

// Helpers returns the reached builtin and compound descriptors, whose
// converters are not tied to a declaration.
func (r *Registry) Helpers() []CodeType {
	var out []CodeType
	for _, ct := range r.order {
		k := ct.Type().Kind
		if k.IsBuiltin() || k == idl.KindOptional || k == idl.KindSequence || k == idl.KindMap {
			out = append(out, ct)
		}
	}
	return out
}

// Render writes the converter of ct once per registry.
func (r *Registry) Render(b *strings.Builder, ct CodeType) error {
	name := ct.ConverterName()
	if r.rendered[name] {
		return nil
	}
	r.rendered[name] = true
	if err := ct.Render(b); err != nil {
		return errs.WithNamespace(err, r.ci.Namespace)
	}
	return nil
}

// ErrorHandler returns the expression of the error handler instance for a
// throws clause, or "null" when the call cannot fail.
func (r *Registry) ErrorHandler(t *idl.Type) string {
	if t == nil {
		return "null"
	}
	return r.oracle.Global("handler:"+t.Name, naming.LowerCamel(t.Name)+"ErrorHandler")
}

// errorHandlerClass returns the class name of the error handler for t.
func (r *Registry) errorHandlerClass(t *idl.Type) string {
	return r.oracle.Global("handlerclass:"+t.Name, naming.UpperCamel(t.Name)+"ErrorHandler")
}

// base carries the behaviour shared by descriptors whose converter is a
// class with static methods.
type base struct {
	t *idl.Type
}

func (b base) Type() *idl.Type { return b.t }

func (b base) ConverterName() string { return "FfiConverter" + b.t.CanonicalName() }

func (b base) Lift(expr string) string { return b.ConverterName() + ".lift(" + expr + ")" }

func (b base) Lower(expr string) string { return b.ConverterName() + ".lower(" + expr + ")" }

func (b base) Read(buf string) string { return b.ConverterName() + ".read(" + buf + ")" }

func (b base) Write(value, buf string) string {
	return b.ConverterName() + ".write(" + value + ", " + buf + ")"
}

func (b base) AllocationSize(value string) string {
	return b.ConverterName() + ".allocationSize(" + value + ")"
}

func (b base) noLiteral(v any) (string, error) {
	return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
		Detail("type %s cannot have a default value (got %v)", b.t, v).Build()
}

// writeBufferLiftLower emits lift and lower for types that cross the
// boundary inside a RustBuffer.
func writeBufferLiftLower(b *strings.Builder, label string) {
	fmt.Fprintf(b, "  static %s lift(RustBuffer buf) {\n", label)
	b.WriteString("    return liftFromRustBuffer(buf, read);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static RustBuffer lower(%s value) {\n", label)
	b.WriteString("    final buf = Uint8List(allocationSize(value));\n")
	b.WriteString("    write(value, buf);\n")
	b.WriteString("    return toRustBuffer(buf);\n")
	b.WriteString("  }\n\n")
}

// view is the Dart expression of a Uint8List view at offset within buf.
func view(offset string) string {
	return "Uint8List.view(buf.buffer, " + offset + ")"
}

// writeDocs renders a doc comment, one /// line per source line.
func writeDocs(b *strings.Builder, docs, indent string) {
	if docs == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(docs, "\n"), "\n") {
		if line == "" {
			b.WriteString(indent + "///\n")
		} else {
			b.WriteString(indent + "/// " + line + "\n")
		}
	}
}
