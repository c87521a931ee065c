package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

// callback renders a callback interface: an abstract class the user
// implements, a proxy for native implementations, and the vtable through
// which the native side calls into Dart implementations.
type callback struct {
	base
	r    *Registry
	decl *idl.CallbackInterface
}

func newCallback(r *Registry, t *idl.Type) CodeType {
	return &callback{base: base{t}, r: r, decl: r.ci.CallbackInterface(t.Name)}
}

func (c *callback) TypeLabel() string { return c.r.oracle.Class(c.t.Name) }

func (c *callback) Ffi() FfiType { return FfiHandle }

func (c *callback) Literal(v any) (string, error) { return c.noLiteral(v) }

func (c *callback) Codec() wire.Codec {
	return wire.CallbackInterface(c.t.Name, wire.NewHandleMap(), wire.Detached)
}

func (c *callback) global(kind, candidate string) string {
	return c.r.oracle.Global(kind+":"+c.t.Name, candidate)
}

func (c *callback) lower() string { return naming.LowerCamel(c.t.Name) }

func (c *callback) proxyClass() string { return c.global("proxy", "_"+c.TypeLabel()+"Proxy") }

func (c *callback) handleMap() string { return c.global("handles", "_"+c.lower()+"HandleMap") }

func (c *callback) finalizer() string { return c.global("finalizer", "_"+c.lower()+"Finalizer") }

// VTableStruct is the Dart struct mirroring the native vtable layout.
func (r *Registry) VTableStruct(cb *idl.CallbackInterface) string {
	return r.oracle.Global("vtable:"+cb.Name, "UniffiVTableCallbackInterface"+naming.UpperCamel(cb.Name))
}

// VTableInit is the Dart function registering the vtable of cb with the
// library. It is called once during initialization.
func (r *Registry) VTableInit(cb *idl.CallbackInterface) string {
	return r.oracle.Global("vtableinit:"+cb.Name, "_uniffiInit"+naming.UpperCamel(cb.Name)+"VTable")
}

func (c *callback) methodTypedef(m *idl.Function) string {
	return c.r.oracle.Global("cbmethod:"+c.t.Name+"."+m.Name,
		"UniffiCallbackInterface"+naming.UpperCamel(c.t.Name)+naming.UpperCamel(m.Name))
}

func (c *callback) methodImpl(m *idl.Function) string {
	return c.r.oracle.Global("cbimpl:"+c.t.Name+"."+m.Name,
		"_"+c.lower()+naming.UpperCamel(m.Name))
}

// outReturn is the native type of the out-parameter receiving the result
// of a callback method.
func (c *callback) outReturn(m *idl.Function) string {
	if m.Return == nil {
		return "Void"
	}
	return c.r.Get(m.Return).Ffi().Native
}

func (c *callback) Render(b *strings.Builder) error {
	class := c.TypeLabel()
	proxy := c.proxyClass()
	handles := c.handleMap()
	finalizer := c.finalizer()
	ci := c.r.ci

	type method struct {
		decl   *idl.Function
		name   string
		names  []string
		params string
	}
	methods := make([]method, 0, len(c.decl.Methods))
	for _, m := range c.decl.Methods {
		names := c.r.paramNames("cbmethod:"+c.t.Name+"."+m.Name, m.Params)
		params, err := c.r.paramList(m.Params, names)
		if err != nil {
			return fmt.Errorf("callback method %s.%s: %w", c.t.Name, m.Name, err)
		}
		methods = append(methods, method{m, c.r.oracle.Member(c.t.Name, m.Name), names, params})
	}

	writeDocs(b, c.decl.Docs, "")
	fmt.Fprintf(b, "abstract class %s {\n", class)
	for i, m := range methods {
		if i > 0 {
			b.WriteString("\n")
		}
		writeDocs(b, m.decl.Docs, "  ")
		fmt.Fprintf(b, "  %s %s(%s);\n", c.r.returnLabel(m.decl.Return), m.name, m.params)
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "final %s = Finalizer<int>((handle) {\n", finalizer)
	fmt.Fprintf(b, "  rustCall((status) => %s(handle, status));\n", ci.FreeSymbol(c.t.Name))
	b.WriteString("});\n\n")

	fmt.Fprintf(b, "class %s implements %s {\n", proxy, class)
	b.WriteString("  final int _handle;\n")
	b.WriteString("  bool _disposed = false;\n\n")
	fmt.Fprintf(b, "  %s(this._handle) {\n", proxy)
	fmt.Fprintf(b, "    %s.attach(this, _handle, detach: this);\n", finalizer)
	b.WriteString("  }\n\n")
	b.WriteString("  int uniffiCloneHandle() {\n")
	b.WriteString("    if (_disposed) {\n")
	fmt.Fprintf(b, "      throw StateError(%s);\n", DartString(class+" has been disposed"))
	b.WriteString("    }\n")
	fmt.Fprintf(b, "    return rustCall((status) => %s(_handle, status));\n", ci.CloneSymbol(c.t.Name))
	b.WriteString("  }\n\n")
	b.WriteString("  void dispose() {\n")
	b.WriteString("    if (_disposed) {\n")
	b.WriteString("      return;\n")
	b.WriteString("    }\n")
	b.WriteString("    _disposed = true;\n")
	fmt.Fprintf(b, "    %s.detach(this);\n", finalizer)
	fmt.Fprintf(b, "    rustCall((status) => %s(_handle, status));\n", ci.FreeSymbol(c.t.Name))
	b.WriteString("  }\n")
	for _, m := range methods {
		b.WriteString("\n  @override\n")
		fmt.Fprintf(b, "  %s %s(%s) {\n", c.r.returnLabel(m.decl.Return), m.name, m.params)
		c.r.writeCallBody(b, call{
			symbol:   ci.MethodSymbol(c.t.Name, m.decl),
			receiver: "uniffiCloneHandle()",
			params:   m.decl.Params,
			names:    m.names,
			ret:      m.decl.Return,
			throws:   m.decl.Throws,
		}, "    ")
		b.WriteString("  }\n")
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "final %s = UniffiHandleMap<%s>();\n\n", handles, class)

	fmt.Fprintf(b, "class %s {\n", c.ConverterName())
	fmt.Fprintf(b, "  static %s lift(int handle) {\n", class)
	b.WriteString("    if (handle.isOdd) {\n")
	fmt.Fprintf(b, "      return %s.remove(handle);\n", handles)
	b.WriteString("    }\n")
	fmt.Fprintf(b, "    return %s(handle);\n", proxy)
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int lower(%s value) {\n", class)
	fmt.Fprintf(b, "    if (value is %s) {\n", proxy)
	b.WriteString("      return value.uniffiCloneHandle();\n")
	b.WriteString("    }\n")
	fmt.Fprintf(b, "    return %s.insert(value);\n", handles)
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", class)
	b.WriteString("    final handle = buf.buffer.asByteData(buf.offsetInBytes).getUint64(0);\n")
	b.WriteString("    return LiftRetVal(lift(handle), 8);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", class)
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setUint64(0, lower(value));\n")
	b.WriteString("    return 8;\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", class)
	b.WriteString("    return 8;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	return c.renderVTable(b, handles)
}

// renderVTable emits the native callback signatures, the static Dart
// functions behind them and the registration routine.
func (c *callback) renderVTable(b *strings.Builder, handles string) error {
	vtable := c.r.VTableStruct(c.decl)

	for _, m := range c.decl.Methods {
		args := []string{"Uint64"}
		for _, p := range m.Params {
			args = append(args, c.r.Get(p.Type).Ffi().Native)
		}
		args = append(args, "Pointer<"+c.outReturn(m)+">", "Pointer<RustCallStatus>")
		fmt.Fprintf(b, "typedef %s = Void Function(%s);\n", c.methodTypedef(m), strings.Join(args, ", "))
	}
	if len(c.decl.Methods) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "final class %s extends Struct {\n", vtable)
	b.WriteString("  external Pointer<NativeFunction<UniffiCallbackInterfaceFree>> uniffiFree;\n")
	b.WriteString("  external Pointer<NativeFunction<UniffiCallbackInterfaceClone>> uniffiClone;\n")
	for _, m := range c.decl.Methods {
		fmt.Fprintf(b, "  external Pointer<NativeFunction<%s>> %s;\n",
			c.methodTypedef(m), c.r.oracle.Member("vtable:"+c.t.Name, m.Name))
	}
	b.WriteString("}\n\n")

	for _, m := range c.decl.Methods {
		if err := c.renderMethodImpl(b, m, handles); err != nil {
			return err
		}
	}

	freeImpl := c.global("cbfree", "_"+c.lower()+"Free")
	cloneImpl := c.global("cbclone", "_"+c.lower()+"Clone")
	fmt.Fprintf(b, "void %s(int handle) {\n", freeImpl)
	fmt.Fprintf(b, "  %s.remove(handle);\n", handles)
	b.WriteString("}\n\n")
	fmt.Fprintf(b, "int %s(int handle) {\n", cloneImpl)
	fmt.Fprintf(b, "  return %s.clone(handle);\n", handles)
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "void %s() {\n", c.r.VTableInit(c.decl))
	fmt.Fprintf(b, "  final vtable = calloc<%s>();\n", vtable)
	fmt.Fprintf(b, "  vtable.ref.uniffiFree = Pointer.fromFunction<UniffiCallbackInterfaceFree>(%s);\n", freeImpl)
	fmt.Fprintf(b, "  vtable.ref.uniffiClone = Pointer.fromFunction<UniffiCallbackInterfaceClone>(%s, 0);\n", cloneImpl)
	for _, m := range c.decl.Methods {
		fmt.Fprintf(b, "  vtable.ref.%s = Pointer.fromFunction<%s>(%s);\n",
			c.r.oracle.Member("vtable:"+c.t.Name, m.Name), c.methodTypedef(m), c.methodImpl(m))
	}
	fmt.Fprintf(b, "  %s(vtable);\n", c.r.ci.VTableInitSymbol(c.decl))
	b.WriteString("}\n\n")
	return nil
}

// renderMethodImpl emits the static function the native side calls for
// one method of a Dart implementation. Results go through the out
// parameter; failures are reported through the call status.
func (c *callback) renderMethodImpl(b *strings.Builder, m *idl.Function, handles string) error {
	owner := "cbimpl:" + c.t.Name + "." + m.Name
	c.r.oracle.Reserve(owner, "uniffiHandle", "uniffiOutReturn", "uniffiCallStatus", "uniffiObj", "uniffiResult")
	names := fieldNames(c.r, owner, m.Params)

	params := []string{"int uniffiHandle"}
	args := make([]string, len(m.Params))
	for i, p := range m.Params {
		ct := c.r.Get(p.Type)
		params = append(params, ct.Ffi().Dart+" "+names[i])
		args[i] = ct.Lift(names[i])
	}
	params = append(params, "Pointer<"+c.outReturn(m)+"> uniffiOutReturn", "Pointer<RustCallStatus> uniffiCallStatus")

	fmt.Fprintf(b, "void %s(%s) {\n", c.methodImpl(m), strings.Join(params, ", "))
	b.WriteString("  try {\n")
	fmt.Fprintf(b, "    final uniffiObj = %s.get(uniffiHandle);\n", handles)
	invoke := fmt.Sprintf("uniffiObj.%s(%s)", c.r.oracle.Member(c.t.Name, m.Name), strings.Join(args, ", "))
	if m.Return == nil {
		fmt.Fprintf(b, "    %s;\n", invoke)
	} else {
		ret := c.r.Get(m.Return)
		fmt.Fprintf(b, "    final uniffiResult = %s;\n", invoke)
		if ret.Ffi() == FfiRustBuffer {
			fmt.Fprintf(b, "    uniffiOutReturn.ref = %s;\n", ret.Lower("uniffiResult"))
		} else {
			fmt.Fprintf(b, "    uniffiOutReturn.value = %s;\n", ret.Lower("uniffiResult"))
		}
	}
	b.WriteString("    uniffiCallStatus.ref.code = CALL_SUCCESS;\n")
	if m.Throws != nil {
		thrown := c.r.Get(m.Throws)
		fmt.Fprintf(b, "  } on %s catch (e) {\n", thrown.TypeLabel())
		b.WriteString("    uniffiCallStatus.ref.code = CALL_ERROR;\n")
		fmt.Fprintf(b, "    uniffiCallStatus.ref.errorBuf = %s;\n", serialize(thrown, "e"))
	}
	b.WriteString("  } catch (e) {\n")
	b.WriteString("    uniffiCallStatus.ref.code = CALL_UNEXPECTED_ERROR;\n")
	fmt.Fprintf(b, "    uniffiCallStatus.ref.errorBuf = %s;\n", c.r.Get(idl.Builtin(idl.KindString)).Lower("e.toString()"))
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	return nil
}

// serialize is an expression producing a RustBuffer holding the buffer
// encoding of value, which is what error payloads carry.
func serialize(ct CodeType, value string) string {
	if ct.Ffi() == FfiRustBuffer {
		return ct.Lower(value)
	}
	return fmt.Sprintf("(() { final buf = Uint8List(%s); %s; return toRustBuffer(buf); })()",
		ct.AllocationSize(value), ct.Write(value, "buf"))
}
