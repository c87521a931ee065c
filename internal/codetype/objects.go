package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

// object renders a proxy class around a native handle. The proxy owns
// one handle; every call passes a fresh clone, and the handle is freed
// by dispose or by the finalizer, whichever comes first.
type object struct {
	base
	r    *Registry
	decl *idl.Object
}

func newObject(r *Registry, t *idl.Type) CodeType {
	return &object{base: base{t}, r: r, decl: r.ci.Object(t.Name)}
}

func (o *object) TypeLabel() string { return o.r.oracle.Class(o.t.Name) }

func (o *object) Ffi() FfiType { return FfiPointer }

func (o *object) Literal(v any) (string, error) { return o.noLiteral(v) }

// Codec computes layouts only; handles are never inline-encoded so a
// detached owner is enough.
func (o *object) Codec() wire.Codec { return wire.Object(o.t.Name, wire.Detached) }

func (o *object) finalizer() string {
	return o.r.oracle.Global("finalizer:"+o.t.Name, "_"+naming.LowerCamel(o.t.Name)+"Finalizer")
}

func (o *object) Render(b *strings.Builder) error {
	class := o.TypeLabel()
	ci := o.r.ci
	finalizer := o.finalizer()

	var supertypes []string
	for _, name := range o.decl.Implements {
		cb, err := o.r.Named(name)
		if err != nil {
			return err
		}
		supertypes = append(supertypes, cb.TypeLabel())
	}
	if ci.IsError(o.t.Name) {
		supertypes = append(supertypes, "Exception")
	}
	implements := ""
	if len(supertypes) > 0 {
		implements = " implements " + strings.Join(supertypes, ", ")
	}

	fmt.Fprintf(b, "final %s = Finalizer<Pointer<Void>>((ptr) {\n", finalizer)
	fmt.Fprintf(b, "  rustCall((status) => %s(ptr, status));\n", ci.FreeSymbol(o.t.Name))
	b.WriteString("});\n\n")

	writeDocs(b, o.decl.Docs, "")
	fmt.Fprintf(b, "class %s%s {\n", class, implements)
	b.WriteString("  final Pointer<Void> _ptr;\n")
	b.WriteString("  bool _disposed = false;\n\n")
	fmt.Fprintf(b, "  %s._(this._ptr) {\n", class)
	fmt.Fprintf(b, "    %s.attach(this, _ptr, detach: this);\n", finalizer)
	b.WriteString("  }\n\n")

	for _, c := range o.decl.Constructors {
		if err := o.renderConstructor(b, c); err != nil {
			return err
		}
	}

	b.WriteString("  Pointer<Void> uniffiClonePointer() {\n")
	b.WriteString("    if (_disposed) {\n")
	fmt.Fprintf(b, "      throw StateError(%s);\n", DartString(class+" has been disposed"))
	b.WriteString("    }\n")
	fmt.Fprintf(b, "    return rustCall((status) => %s(_ptr, status));\n", ci.CloneSymbol(o.t.Name))
	b.WriteString("  }\n\n")

	b.WriteString("  void dispose() {\n")
	b.WriteString("    if (_disposed) {\n")
	b.WriteString("      return;\n")
	b.WriteString("    }\n")
	b.WriteString("    _disposed = true;\n")
	fmt.Fprintf(b, "    %s.detach(this);\n", finalizer)
	fmt.Fprintf(b, "    rustCall((status) => %s(_ptr, status));\n", ci.FreeSymbol(o.t.Name))
	b.WriteString("  }\n")

	for _, m := range o.decl.Methods {
		if err := o.renderMethod(b, m); err != nil {
			return err
		}
	}
	o.renderTraits(b)
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "class %s {\n", o.ConverterName())
	fmt.Fprintf(b, "  static %s lift(Pointer<Void> value) {\n", class)
	fmt.Fprintf(b, "    return %s._(value);\n", class)
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static Pointer<Void> lower(%s value) {\n", class)
	b.WriteString("    return value.uniffiClonePointer();\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", class)
	b.WriteString("    final address = buf.buffer.asByteData(buf.offsetInBytes).getUint64(0);\n")
	b.WriteString("    return LiftRetVal(lift(Pointer<Void>.fromAddress(address)), 8);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", class)
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setUint64(0, lower(value).address);\n")
	b.WriteString("    return 8;\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", class)
	b.WriteString("    return 8;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	if ci.IsError(o.t.Name) {
		o.r.writeErrorHandler(b, o.t, o.ConverterName())
	}
	return nil
}

// renderConstructor emits a factory. The primary constructor is the
// unnamed factory; the others are named after their declaration.
func (o *object) renderConstructor(b *strings.Builder, c *idl.Constructor) error {
	class := o.TypeLabel()
	names := o.r.paramNames("ctor:"+o.t.Name+"."+c.Name, c.Params)
	params, err := o.r.paramList(c.Params, names)
	if err != nil {
		return fmt.Errorf("constructor %s.%s: %w", o.t.Name, c.Name, err)
	}
	factory := class
	if c.Name != "new" {
		factory += "." + o.r.oracle.Member(o.t.Name, c.Name)
	}

	writeDocs(b, c.Docs, "  ")
	fmt.Fprintf(b, "  factory %s(%s) {\n", factory, params)
	fmt.Fprintf(b, "    return %s._(%s);\n", class, o.r.callExpr(call{
		symbol: o.r.ci.ConstructorSymbol(o.decl, c),
		params: c.Params,
		names:  names,
		throws: c.Throws,
	}))
	b.WriteString("  }\n\n")
	return nil
}

func (o *object) renderMethod(b *strings.Builder, m *idl.Function) error {
	name := o.r.oracle.Member(o.t.Name, m.Name)
	names := o.r.paramNames("method:"+o.t.Name+"."+m.Name, m.Params)
	params, err := o.r.paramList(m.Params, names)
	if err != nil {
		return fmt.Errorf("method %s.%s: %w", o.t.Name, m.Name, err)
	}

	b.WriteString("\n")
	writeDocs(b, m.Docs, "  ")
	if o.implementsMethod(m.Name) {
		b.WriteString("  @override\n")
	}
	fmt.Fprintf(b, "  %s %s(%s) {\n", o.r.returnLabel(m.Return), name, params)
	o.r.writeCallBody(b, call{
		symbol:   o.r.ci.MethodSymbol(o.t.Name, m),
		receiver: "uniffiClonePointer()",
		params:   m.Params,
		names:    names,
		ret:      m.Return,
		throws:   m.Throws,
	}, "    ")
	b.WriteString("  }\n")
	return nil
}

// implementsMethod reports whether a callback interface implemented by
// the object declares a method with the same name.
func (o *object) implementsMethod(name string) bool {
	for _, cbName := range o.decl.Implements {
		cb := o.r.ci.CallbackInterface(cbName)
		if cb == nil {
			continue
		}
		for _, m := range cb.Methods {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

// renderTraits maps exported traits onto Object members. Display wins
// over Debug for toString.
func (o *object) renderTraits(b *strings.Builder) {
	ci := o.r.ci
	str := o.r.Get(idl.Builtin(idl.KindString))
	toString := ""
	switch {
	case o.decl.HasTrait(idl.TraitDisplay):
		toString = ci.TraitSymbol(o.decl, idl.TraitDisplay)
	case o.decl.HasTrait(idl.TraitDebug):
		toString = ci.TraitSymbol(o.decl, idl.TraitDebug)
	}
	if toString != "" {
		b.WriteString("\n  @override\n")
		b.WriteString("  String toString() {\n")
		fmt.Fprintf(b, "    return %s;\n", str.Lift(fmt.Sprintf("rustCall((status) => %s(uniffiClonePointer(), status))", toString)))
		b.WriteString("  }\n")
	}
	if o.decl.HasTrait(idl.TraitEq) {
		boolean := o.r.Get(idl.Builtin(idl.KindBool))
		b.WriteString("\n  @override\n")
		b.WriteString("  bool operator ==(Object other) {\n")
		fmt.Fprintf(b, "    if (other is! %s) {\n", o.TypeLabel())
		b.WriteString("      return false;\n")
		b.WriteString("    }\n")
		fmt.Fprintf(b, "    return %s;\n", boolean.Lift(fmt.Sprintf(
			"rustCall((status) => %s(uniffiClonePointer(), other.uniffiClonePointer(), status))",
			ci.TraitSymbol(o.decl, idl.TraitEq))))
		b.WriteString("  }\n")
	}
	if o.decl.HasTrait(idl.TraitHash) {
		b.WriteString("\n  @override\n")
		b.WriteString("  int get hashCode {\n")
		fmt.Fprintf(b, "    return rustCall((status) => %s(uniffiClonePointer(), status));\n",
			ci.TraitSymbol(o.decl, idl.TraitHash))
		b.WriteString("  }\n")
	}
}
