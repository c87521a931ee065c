package ffi

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/codetype"
	"github.com/funvibe/uniffi-bindgen-dart/internal/config"
)

const statusType = "Pointer<RustCallStatus>"

// Library tells the emitter how the bindings find the native library.
type Library struct {
	Strategy config.Strategy

	// AssetID is the full native asset id, used with NativeAssets.
	AssetID string

	// Name is the library base name and Directory the directory it is
	// opened from, used with DynamicLibrary.
	Name      string
	Directory string
}

// Imports lists the Dart libraries the declarations need beyond the
// runtime preamble.
func (l Library) Imports() []string {
	if l.Strategy == config.DynamicLibrary {
		return []string{"dart:io"}
	}
	return nil
}

// nativeSignature renders "Ret Function(A, B)" with native types.
func (f Func) nativeSignature() string {
	parts := make([]string, 0, len(f.Args)+1)
	for _, a := range f.Args {
		parts = append(parts, a.Type.Native)
	}
	if f.HasStatus {
		parts = append(parts, statusType)
	}
	return f.Return.Native + " Function(" + strings.Join(parts, ", ") + ")"
}

// dartSignature renders "ret Function(a, b)" with Dart types.
func (f Func) dartSignature() string {
	parts := make([]string, 0, len(f.Args)+1)
	for _, a := range f.Args {
		parts = append(parts, a.Type.Dart)
	}
	if f.HasStatus {
		parts = append(parts, statusType)
	}
	return f.Return.Dart + " Function(" + strings.Join(parts, ", ") + ")"
}

// dartParams renders the named parameter list of an external declaration.
func (f Func) dartParams() string {
	parts := make([]string, 0, len(f.Args)+1)
	used := make(map[string]bool)
	for _, a := range f.Args {
		name := a.Name
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s%d", a.Name, i)
		}
		used[name] = true
		parts = append(parts, a.Type.Dart+" "+name)
	}
	if f.HasStatus {
		parts = append(parts, statusType+" uniffiStatus")
	}
	return strings.Join(parts, ", ")
}

// Render writes the declarations of funcs for the loading strategy of
// lib. Each symbol becomes a top-level Dart function of the same name.
func Render(b *strings.Builder, funcs []Func, lib Library) {
	switch lib.Strategy {
	case config.DynamicLibrary:
		renderDynamic(b, funcs, lib)
	default:
		renderNative(b, funcs, lib)
	}
}

func renderNative(b *strings.Builder, funcs []Func, lib Library) {
	fmt.Fprintf(b, "const _uniffiAssetId = %s;\n\n", codetype.DartString(lib.AssetID))
	for _, f := range funcs {
		fmt.Fprintf(b, "@Native<%s>(assetId: _uniffiAssetId)\n", f.nativeSignature())
		fmt.Fprintf(b, "external %s %s(%s);\n\n", f.Return.Dart, f.Symbol, f.dartParams())
	}
}

func renderDynamic(b *strings.Builder, funcs []Func, lib Library) {
	dir := lib.Directory
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	b.WriteString("DynamicLibrary _uniffiOpenLibrary() {\n")
	b.WriteString("  if (Platform.isIOS) {\n")
	b.WriteString("    return DynamicLibrary.process();\n")
	b.WriteString("  }\n")
	b.WriteString("  final String name;\n")
	b.WriteString("  if (Platform.isMacOS) {\n")
	fmt.Fprintf(b, "    name = %s;\n", codetype.DartString(dir+"lib"+lib.Name+".dylib"))
	b.WriteString("  } else if (Platform.isWindows) {\n")
	fmt.Fprintf(b, "    name = %s;\n", codetype.DartString(dir+lib.Name+".dll"))
	b.WriteString("  } else {\n")
	fmt.Fprintf(b, "    name = %s;\n", codetype.DartString(dir+"lib"+lib.Name+".so"))
	b.WriteString("  }\n")
	b.WriteString("  return DynamicLibrary.open(name);\n")
	b.WriteString("}\n\n")
	b.WriteString("final DynamicLibrary _uniffiLib = _uniffiOpenLibrary();\n\n")

	for _, f := range funcs {
		dart := f.dartSignature()
		fmt.Fprintf(b, "final %s %s = _uniffiLib.lookupFunction<%s, %s>(%s);\n\n",
			dart, f.Symbol, f.nativeSignature(), dart, codetype.DartString(f.Symbol))
	}
}
