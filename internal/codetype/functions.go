package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
)

// statusParam is the closure parameter carrying the call status pointer.
const statusParam = "status"

// call is one native call made from generated Dart code.
type call struct {
	symbol string
	// receiver is the handle expression passed before the arguments.
	receiver string
	params   []*idl.Field
	names    []string
	ret      *idl.Type
	throws   *idl.Type
}

// expr renders the call wrapped in rustCall. Lifting the result happens
// outside rustCall so that a failed call never reaches a converter.
func (r *Registry) callExpr(c call) string {
	var args []string
	if c.receiver != "" {
		args = append(args, c.receiver)
	}
	for i, p := range c.params {
		args = append(args, r.Get(p.Type).Lower(c.names[i]))
	}
	args = append(args, statusParam)
	expr := fmt.Sprintf("rustCall((%s) => %s(%s), %s)",
		statusParam, c.symbol, strings.Join(args, ", "), r.ErrorHandler(c.throws))
	if c.ret == nil {
		return expr
	}
	return r.Get(c.ret).Lift(expr)
}

// writeCallBody emits the statement performing c, returning its value
// when there is one.
func (r *Registry) writeCallBody(b *strings.Builder, c call, indent string) {
	if c.ret == nil {
		fmt.Fprintf(b, "%s%s;\n", indent, r.callExpr(c))
		return
	}
	fmt.Fprintf(b, "%sreturn %s;\n", indent, r.callExpr(c))
}

// paramNames claims the Dart names of params inside owner.
func (r *Registry) paramNames(owner string, params []*idl.Field) []string {
	r.oracle.Reserve(owner, statusParam)
	return fieldNames(r, owner, params)
}

// paramList renders a Dart parameter list. Parameters with a default are
// optional named parameters; the others stay positional and required.
func (r *Registry) paramList(params []*idl.Field, names []string) (string, error) {
	var positional, named []string
	for i, p := range params {
		ct := r.Get(p.Type)
		decl := ct.TypeLabel() + " " + names[i]
		if !p.HasDefault {
			positional = append(positional, decl)
			continue
		}
		lit, err := ct.Literal(p.Default)
		if err != nil {
			return "", errs.WithNamespace(err, r.ci.Namespace)
		}
		if lit != "null" {
			decl += " = " + lit
		}
		named = append(named, decl)
	}
	out := strings.Join(positional, ", ")
	if len(named) > 0 {
		if out != "" {
			out += ", "
		}
		out += "{" + strings.Join(named, ", ") + "}"
	}
	return out, nil
}

// returnLabel is the Dart return type of a callable.
func (r *Registry) returnLabel(t *idl.Type) string {
	if t == nil {
		return "void"
	}
	return r.Get(t).TypeLabel()
}

// RenderFunction writes the Dart wrapper of a top-level function.
func (r *Registry) RenderFunction(b *strings.Builder, f *idl.Function) error {
	name := r.oracle.Function(f.Name)
	names := r.paramNames("func:"+f.Name, f.Params)
	params, err := r.paramList(f.Params, names)
	if err != nil {
		return fmt.Errorf("function %s: %w", f.Name, err)
	}

	writeDocs(b, f.Docs, "")
	fmt.Fprintf(b, "%s %s(%s) {\n", r.returnLabel(f.Return), name, params)
	r.writeCallBody(b, call{
		symbol: r.ci.FuncSymbol(f),
		params: f.Params,
		names:  names,
		ret:    f.Return,
		throws: f.Throws,
	}, "  ")
	b.WriteString("}\n\n")
	return nil
}

// writeErrorHandler emits the handler class and instance that lift a
// typed error of t out of a call status buffer.
func (r *Registry) writeErrorHandler(b *strings.Builder, t *idl.Type, converter string) {
	handler := r.errorHandlerClass(t)
	fmt.Fprintf(b, "class %s extends UniffiRustCallStatusErrorHandler {\n", handler)
	b.WriteString("  @override\n")
	b.WriteString("  Exception lift(RustBuffer errorBuf) {\n")
	fmt.Fprintf(b, "    return liftFromRustBuffer(errorBuf, %s.read);\n", converter)
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	fmt.Fprintf(b, "final %s %s = %s();\n\n", handler, r.ErrorHandler(t), handler)
}
