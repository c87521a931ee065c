package idl

import "strings"

// Symbol names follow the scaffolding conventions of the core library; they
// are part of the ABI and must not change.

// FuncSymbol is the exported symbol of a top-level function.
func (ci *Interface) FuncSymbol(f *Function) string {
	return "uniffi_" + ci.FfiNamespace() + "_fn_func_" + ffiIdent(f.Name)
}

// ConstructorSymbol is the exported symbol of an object constructor.
func (ci *Interface) ConstructorSymbol(o *Object, c *Constructor) string {
	return "uniffi_" + ci.FfiNamespace() + "_fn_constructor_" + ffiIdent(o.Name) + "_" + ffiIdent(c.Name)
}

// MethodSymbol is the exported symbol of an object or callback method.
func (ci *Interface) MethodSymbol(owner string, m *Function) string {
	return "uniffi_" + ci.FfiNamespace() + "_fn_method_" + ffiIdent(owner) + "_" + ffiIdent(m.Name)
}

// TraitSymbol is the exported symbol of an exported trait method.
func (ci *Interface) TraitSymbol(o *Object, trait string) string {
	var suffix string
	switch trait {
	case TraitDebug:
		suffix = "uniffi_trait_debug"
	case TraitDisplay:
		suffix = "uniffi_trait_display"
	case TraitEq:
		suffix = "uniffi_trait_eq_eq"
	case TraitHash:
		suffix = "uniffi_trait_hash"
	}
	return "uniffi_" + ci.FfiNamespace() + "_fn_method_" + ffiIdent(o.Name) + "_" + suffix
}

// CloneSymbol is the exported symbol that duplicates a handle.
func (ci *Interface) CloneSymbol(owner string) string {
	return "uniffi_" + ci.FfiNamespace() + "_fn_clone_" + ffiIdent(owner)
}

// FreeSymbol is the exported symbol that releases a handle.
func (ci *Interface) FreeSymbol(owner string) string {
	return "uniffi_" + ci.FfiNamespace() + "_fn_free_" + ffiIdent(owner)
}

// VTableInitSymbol registers the foreign implementation table of a callback interface.
func (ci *Interface) VTableInitSymbol(cb *CallbackInterface) string {
	return "uniffi_" + ci.FfiNamespace() + "_fn_init_callback_vtable_" + ffiIdent(cb.Name)
}

// FuncChecksumSymbol returns the checksum accessor of a function.
func (ci *Interface) FuncChecksumSymbol(f *Function) string {
	return "uniffi_" + ci.FfiNamespace() + "_checksum_func_" + ffiIdent(f.Name)
}

// ConstructorChecksumSymbol returns the checksum accessor of a constructor.
func (ci *Interface) ConstructorChecksumSymbol(o *Object, c *Constructor) string {
	return "uniffi_" + ci.FfiNamespace() + "_checksum_constructor_" + ffiIdent(o.Name) + "_" + ffiIdent(c.Name)
}

// MethodChecksumSymbol returns the checksum accessor of a method.
func (ci *Interface) MethodChecksumSymbol(owner string, m *Function) string {
	return "uniffi_" + ci.FfiNamespace() + "_checksum_method_" + ffiIdent(owner) + "_" + ffiIdent(m.Name)
}

// ContractVersionSymbol returns the reserved contract version function.
func (ci *Interface) ContractVersionSymbol() string {
	return "ffi_" + ci.FfiNamespace() + "_uniffi_contract_version"
}

// RustBufferSymbol returns one of the buffer management functions
// (alloc, from_bytes, free, reserve).
func (ci *Interface) RustBufferSymbol(op string) string {
	return "ffi_" + ci.FfiNamespace() + "_rustbuffer_" + op
}

// ffiIdent lowers a declared name into its symbol fragment.
func ffiIdent(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}
