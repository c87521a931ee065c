// Package ffi collects the native symbols a namespace exports and emits
// their dart:ffi declarations.
package ffi

import (
	"go.uber.org/zap"

	"github.com/funvibe/uniffi-bindgen-dart/internal/codetype"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/logging"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
)

// Arg is one parameter of a native function.
type Arg struct {
	Name string
	Type codetype.FfiType
}

// Func is the prototype of one exported symbol.
type Func struct {
	Symbol string
	Args   []Arg
	Return codetype.FfiType

	// HasStatus adds the trailing call status out-parameter. Only the
	// contract functions and the vtable registration go without it.
	HasStatus bool
}

var (
	ptrArg    = Arg{"uniffiPtr", codetype.FfiPointer}
	handleArg = Arg{"uniffiHandle", codetype.FfiHandle}
	bufArg    = Arg{"buf", codetype.FfiRustBuffer}
)

// collector accumulates prototypes, keeping the first one per symbol.
type collector struct {
	log   *zap.Logger
	funcs []Func
	seen  map[string]int
}

func (c *collector) add(f Func) {
	if i, ok := c.seen[f.Symbol]; ok {
		c.log.Warn("dropping duplicate ffi declaration",
			zap.String("symbol", f.Symbol),
			zap.Int("kept", i))
		return
	}
	c.seen[f.Symbol] = len(c.funcs)
	c.funcs = append(c.funcs, f)
}

// Collect returns the prototypes of every symbol used by the bindings of
// r's namespace, in emission order. A symbol declared twice is kept once;
// the first declaration wins.
func Collect(r *codetype.Registry) []Func {
	ci := r.Interface()
	c := &collector{
		log:  logging.Logger().With(zap.String("namespace", ci.Namespace)),
		seen: make(map[string]int),
	}

	c.add(Func{
		Symbol:    ci.RustBufferSymbol("alloc"),
		Args:      []Arg{{"size", codetype.FfiUint64}},
		Return:    codetype.FfiRustBuffer,
		HasStatus: true,
	})
	c.add(Func{
		Symbol:    ci.RustBufferSymbol("from_bytes"),
		Args:      []Arg{{"bytes", codetype.FfiType{Native: "ForeignBytes", Dart: "ForeignBytes"}}},
		Return:    codetype.FfiRustBuffer,
		HasStatus: true,
	})
	c.add(Func{
		Symbol:    ci.RustBufferSymbol("free"),
		Args:      []Arg{bufArg},
		Return:    codetype.FfiVoid,
		HasStatus: true,
	})
	c.add(Func{
		Symbol:    ci.RustBufferSymbol("reserve"),
		Args:      []Arg{bufArg, {"additional", codetype.FfiUint64}},
		Return:    codetype.FfiRustBuffer,
		HasStatus: true,
	})

	for _, f := range ci.Functions {
		c.add(Func{
			Symbol:    ci.FuncSymbol(f),
			Args:      args(r, nil, f.Params),
			Return:    ret(r, f.Return),
			HasStatus: true,
		})
	}

	for _, o := range ci.Objects {
		c.add(Func{
			Symbol:    ci.CloneSymbol(o.Name),
			Args:      []Arg{ptrArg},
			Return:    codetype.FfiPointer,
			HasStatus: true,
		})
		c.add(Func{
			Symbol:    ci.FreeSymbol(o.Name),
			Args:      []Arg{ptrArg},
			Return:    codetype.FfiVoid,
			HasStatus: true,
		})
		for _, ctor := range o.Constructors {
			c.add(Func{
				Symbol:    ci.ConstructorSymbol(o, ctor),
				Args:      args(r, nil, ctor.Params),
				Return:    codetype.FfiPointer,
				HasStatus: true,
			})
		}
		for _, m := range o.Methods {
			c.add(Func{
				Symbol:    ci.MethodSymbol(o.Name, m),
				Args:      args(r, &ptrArg, m.Params),
				Return:    ret(r, m.Return),
				HasStatus: true,
			})
		}
		for _, trait := range o.Traits {
			c.add(traitFunc(ci, o, trait))
		}
	}

	for _, cb := range ci.CallbackInterfaces {
		c.add(Func{
			Symbol:    ci.CloneSymbol(cb.Name),
			Args:      []Arg{handleArg},
			Return:    codetype.FfiHandle,
			HasStatus: true,
		})
		c.add(Func{
			Symbol:    ci.FreeSymbol(cb.Name),
			Args:      []Arg{handleArg},
			Return:    codetype.FfiVoid,
			HasStatus: true,
		})
		for _, m := range cb.Methods {
			c.add(Func{
				Symbol:    ci.MethodSymbol(cb.Name, m),
				Args:      args(r, &handleArg, m.Params),
				Return:    ret(r, m.Return),
				HasStatus: true,
			})
		}
		vtable := "Pointer<" + r.VTableStruct(cb) + ">"
		c.add(Func{
			Symbol: ci.VTableInitSymbol(cb),
			Args:   []Arg{{"vtable", codetype.FfiType{Native: vtable, Dart: vtable}}},
			Return: codetype.FfiVoid,
		})
	}

	for _, sym := range ChecksumSymbols(ci) {
		c.add(Func{Symbol: sym, Return: codetype.FfiUint16})
	}
	c.add(Func{Symbol: ci.ContractVersionSymbol(), Return: codetype.FfiUint32})

	return c.funcs
}

// ChecksumSymbols lists the checksum accessors in declaration order:
// functions, then constructors and methods of each object, then methods
// of each callback interface.
func ChecksumSymbols(ci *idl.Interface) []string {
	var out []string
	for _, f := range ci.Functions {
		out = append(out, ci.FuncChecksumSymbol(f))
	}
	for _, o := range ci.Objects {
		for _, ctor := range o.Constructors {
			out = append(out, ci.ConstructorChecksumSymbol(o, ctor))
		}
		for _, m := range o.Methods {
			out = append(out, ci.MethodChecksumSymbol(o.Name, m))
		}
	}
	for _, cb := range ci.CallbackInterfaces {
		for _, m := range cb.Methods {
			out = append(out, ci.MethodChecksumSymbol(cb.Name, m))
		}
	}
	return out
}

func args(r *codetype.Registry, receiver *Arg, params []*idl.Field) []Arg {
	var out []Arg
	if receiver != nil {
		out = append(out, *receiver)
	}
	for _, p := range params {
		out = append(out, Arg{Name: naming.VarName(p.Name), Type: r.Get(p.Type).Ffi()})
	}
	return out
}

func ret(r *codetype.Registry, t *idl.Type) codetype.FfiType {
	if t == nil {
		return codetype.FfiVoid
	}
	return r.Get(t).Ffi()
}

func traitFunc(ci *idl.Interface, o *idl.Object, trait string) Func {
	f := Func{
		Symbol:    ci.TraitSymbol(o, trait),
		Args:      []Arg{ptrArg},
		HasStatus: true,
	}
	switch trait {
	case idl.TraitEq:
		f.Args = append(f.Args, Arg{"other", codetype.FfiPointer})
		f.Return = codetype.FfiInt8
	case idl.TraitHash:
		f.Return = codetype.FfiUint64
	default:
		f.Return = codetype.FfiRustBuffer
	}
	return f
}
