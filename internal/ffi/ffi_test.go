package ffi

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/funvibe/uniffi-bindgen-dart/internal/codetype"
	"github.com/funvibe/uniffi-bindgen-dart/internal/config"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/logging"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/testfixtures"
)

func registry(t *testing.T, fixture string) *codetype.Registry {
	t.Helper()
	fx := testfixtures.MustGet(fixture)
	ci, err := idl.Parse(fx.Interface, idl.FormatYAML, fixture)
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", fixture, err)
	}
	r := codetype.NewRegistry(ci, naming.New())
	r.ReachAll()
	return r
}

func find(funcs []Func, symbol string) *Func {
	for i := range funcs {
		if funcs[i].Symbol == symbol {
			return &funcs[i]
		}
	}
	return nil
}

func TestCollectCoversEverySymbol(t *testing.T) {
	funcs := Collect(registry(t, "trait_interfaces"))

	want := []string{
		"ffi_trait_interfaces_rustbuffer_alloc",
		"ffi_trait_interfaces_rustbuffer_from_bytes",
		"ffi_trait_interfaces_rustbuffer_free",
		"ffi_trait_interfaces_rustbuffer_reserve",
		"uniffi_trait_interfaces_fn_clone_friendlygreeter",
		"uniffi_trait_interfaces_fn_free_friendlygreeter",
		"uniffi_trait_interfaces_fn_constructor_friendlygreeter_new",
		"uniffi_trait_interfaces_fn_method_friendlygreeter_to_trait",
		"uniffi_trait_interfaces_fn_method_friendlygreeter_uniffi_trait_eq_eq",
		"uniffi_trait_interfaces_fn_method_registry_make_proc",
		"uniffi_trait_interfaces_fn_clone_greeter",
		"uniffi_trait_interfaces_fn_method_greeter_greet",
		"uniffi_trait_interfaces_fn_init_callback_vtable_greeter",
		"uniffi_trait_interfaces_checksum_constructor_registry_new",
		"uniffi_trait_interfaces_checksum_method_greeter_greet",
		"ffi_trait_interfaces_uniffi_contract_version",
	}
	for _, sym := range want {
		if find(funcs, sym) == nil {
			t.Errorf("missing %s", sym)
		}
	}

	seen := make(map[string]bool)
	for _, f := range funcs {
		if seen[f.Symbol] {
			t.Errorf("%s declared twice", f.Symbol)
		}
		seen[f.Symbol] = true
	}
}

func TestPrototypes(t *testing.T) {
	funcs := Collect(registry(t, "trait_interfaces"))

	tests := []struct {
		symbol string
		native string
	}{
		{"uniffi_trait_interfaces_fn_constructor_friendlygreeter_new", "Pointer<Void> Function(RustBuffer, Pointer<RustCallStatus>)"},
		{"uniffi_trait_interfaces_fn_method_friendlygreeter_to_trait", "Uint64 Function(Pointer<Void>, Pointer<RustCallStatus>)"},
		{"uniffi_trait_interfaces_fn_method_friendlygreeter_uniffi_trait_eq_eq", "Int8 Function(Pointer<Void>, Pointer<Void>, Pointer<RustCallStatus>)"},
		{"uniffi_trait_interfaces_fn_method_friendlygreeter_uniffi_trait_hash", "Uint64 Function(Pointer<Void>, Pointer<RustCallStatus>)"},
		{"uniffi_trait_interfaces_fn_free_greeter", "Void Function(Uint64, Pointer<RustCallStatus>)"},
		{"uniffi_trait_interfaces_fn_init_callback_vtable_greeter", "Void Function(Pointer<UniffiVTableCallbackInterfaceGreeter>)"},
		{"uniffi_trait_interfaces_checksum_method_greeter_greet", "Uint16 Function()"},
		{"ffi_trait_interfaces_uniffi_contract_version", "Uint32 Function()"},
		{"ffi_trait_interfaces_rustbuffer_reserve", "RustBuffer Function(RustBuffer, Uint64, Pointer<RustCallStatus>)"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			f := find(funcs, tt.symbol)
			if f == nil {
				t.Fatal("not collected")
			}
			if got := f.nativeSignature(); got != tt.native {
				t.Errorf("signature = %s, want %s", got, tt.native)
			}
		})
	}
}

func TestDuplicateSymbolsAreDroppedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(zap.NewNop())

	r := registry(t, "proc_macro_pure")
	ci := r.Interface()
	// A second declaration whose symbol folds onto greet.
	dup := *ci.Functions[1]
	dup.Name = "GREET"
	dup.Params = nil
	ci.Functions = append(ci.Functions, &dup)

	funcs := Collect(r)
	f := find(funcs, "uniffi_proc_macro_pure_fn_func_greet")
	if f == nil {
		t.Fatal("greet not collected")
	}
	if len(f.Args) != 1 {
		t.Errorf("later duplicate replaced the first declaration")
	}
	entries := logs.FilterField(zap.String("symbol", "uniffi_proc_macro_pure_fn_func_greet")).All()
	if len(entries) == 0 {
		t.Fatal("duplicate not logged")
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("logged at %s", entries[0].Level)
	}
}

func TestRenderNativeAssets(t *testing.T) {
	funcs := Collect(registry(t, "proc_macro_pure"))
	var b strings.Builder
	Render(&b, funcs, Library{Strategy: config.NativeAssets, AssetID: "package:proc_macro_pure/uniffi:pmp"})
	out := b.String()

	for _, want := range []string{
		"const _uniffiAssetId = 'package:proc_macro_pure/uniffi:pmp';",
		"@Native<RustBuffer Function(RustBuffer, Uint32, Uint32, Pointer<RustCallStatus>)>(assetId: _uniffiAssetId)\n" +
			"external RustBuffer uniffi_proc_macro_pure_fn_func_hash_data(RustBuffer data, int iterations, int length, Pointer<RustCallStatus> uniffiStatus);",
		"external void uniffi_proc_macro_pure_fn_method_counter_increment(Pointer<Void> uniffiPtr, Pointer<RustCallStatus> uniffiStatus);",
		"external int ffi_proc_macro_pure_uniffi_contract_version();",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "DynamicLibrary") {
		t.Error("native assets output opens a library")
	}
}

func TestRenderDynamicLibrary(t *testing.T) {
	funcs := Collect(registry(t, "trait_interfaces"))
	lib := Library{Strategy: config.DynamicLibrary, Name: "trait_interfaces", Directory: "native"}
	var b strings.Builder
	Render(&b, funcs, lib)
	out := b.String()

	for _, want := range []string{
		"return DynamicLibrary.process();",
		"name = 'native/libtrait_interfaces.dylib';",
		"name = 'native/trait_interfaces.dll';",
		"name = 'native/libtrait_interfaces.so';",
		"final int Function() ffi_trait_interfaces_uniffi_contract_version = _uniffiLib.lookupFunction<Uint32 Function(), int Function()>('ffi_trait_interfaces_uniffi_contract_version');",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if got := lib.Imports(); len(got) != 1 || got[0] != "dart:io" {
		t.Errorf("Imports() = %v", got)
	}
	if strings.Contains(out, "@Native") {
		t.Error("dynamic library output uses @Native")
	}
}

func TestDuplicateParamNames(t *testing.T) {
	f := Func{
		Symbol:    "sym",
		Args:      []Arg{{"uniffiPtr", codetype.FfiPointer}, {"uniffiPtr", codetype.FfiInt32}},
		Return:    codetype.FfiVoid,
		HasStatus: true,
	}
	if got := f.dartParams(); got != "Pointer<Void> uniffiPtr, int uniffiPtr2, Pointer<RustCallStatus> uniffiStatus" {
		t.Errorf("dartParams() = %s", got)
	}
}
