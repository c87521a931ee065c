// Package contract computes the per-symbol checksums and emits the startup
// guard that checks the bindings against the loaded library.
package contract

import (
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
)

// Entry is one checksum the guard verifies.
type Entry struct {
	Symbol   string
	Checksum uint16
}

// Checksum folds the 64-bit xxh3 of a canonical signature to 16 bits.
func Checksum(signature string) uint16 {
	h := xxh3.HashString(signature)
	return uint16(h) ^ uint16(h>>16) ^ uint16(h>>32) ^ uint16(h>>48)
}

// Signature renders the canonical form of a callable. It covers
// everything that changes the ABI: the owner, the name, parameter names
// and types in order, the return type and the error type.
func Signature(owner, name string, params []*idl.Field, ret, throws *idl.Type) string {
	var b strings.Builder
	if owner != "" {
		b.WriteString(owner)
		b.WriteByte('.')
	}
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(p.Type.String())
	}
	b.WriteByte(')')
	if ret != nil {
		b.WriteString("->")
		b.WriteString(ret.String())
	}
	if throws != nil {
		b.WriteString("!")
		b.WriteString(throws.String())
	}
	return b.String()
}

func pick(supplied *uint16, signature string) uint16 {
	if supplied != nil {
		return *supplied
	}
	return Checksum(signature)
}

// Table returns the checksums of ci in the order of its checksum symbols.
// A checksum carried by the description wins over the computed one.
// Declarations that resolve to one symbol share a single native
// declaration, so only the first of them gets an entry.
func Table(ci *idl.Interface) []Entry {
	ns := ci.FfiNamespace()
	var out []Entry
	seen := make(map[string]bool)
	add := func(symbol string, supplied *uint16, signature string) {
		if seen[symbol] {
			return
		}
		seen[symbol] = true
		out = append(out, Entry{Symbol: symbol, Checksum: pick(supplied, signature)})
	}

	for _, f := range ci.Functions {
		add(ci.FuncChecksumSymbol(f), f.Checksum, Signature(ns, f.Name, f.Params, f.Return, f.Throws))
	}
	for _, o := range ci.Objects {
		for _, c := range o.Constructors {
			add(ci.ConstructorChecksumSymbol(o, c), c.Checksum,
				Signature(ns+"."+o.Name, "constructor:"+c.Name, c.Params, nil, c.Throws))
		}
		for _, m := range o.Methods {
			add(ci.MethodChecksumSymbol(o.Name, m), m.Checksum,
				Signature(ns+"."+o.Name, m.Name, m.Params, m.Return, m.Throws))
		}
	}
	for _, cb := range ci.CallbackInterfaces {
		for _, m := range cb.Methods {
			add(ci.MethodChecksumSymbol(cb.Name, m), m.Checksum,
				Signature(ns+"."+cb.Name, m.Name, m.Params, m.Return, m.Throws))
		}
	}
	return out
}
