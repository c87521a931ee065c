package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/funvibe/uniffi-bindgen-dart/internal/config"
	"github.com/funvibe/uniffi-bindgen-dart/internal/contract"
	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/testfixtures"
)

func component(t *testing.T, fixture string) Component {
	t.Helper()
	fx := testfixtures.MustGet(fixture)
	ci, err := idl.Parse(fx.Interface, idl.FormatYAML, fixture)
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", fixture, err)
	}
	c := Component{Interface: ci}
	if fx.Config != nil {
		cfg, err := config.Parse(fx.Config, fixture+"/uniffi.toml")
		if err != nil {
			t.Fatalf("config.Parse(%s) failed: %v", fixture, err)
		}
		c.Config = cfg
	}
	return c
}

func generate(t *testing.T, fixture string, over *config.Config) string {
	t.Helper()
	c := component(t, fixture)
	e := NewEngine(t.TempDir(), WithConfig(over))
	src, err := Generate(c.Interface, e.Config(c))
	if err != nil {
		t.Fatalf("Generate(%s) failed: %v", fixture, err)
	}
	return src
}

func assertOrder(t *testing.T, src string, parts ...string) {
	t.Helper()
	last := -1
	for _, p := range parts {
		idx := strings.Index(src, p)
		if idx < 0 {
			t.Fatalf("output does not contain %q", p)
		}
		if idx < last {
			t.Errorf("%q appears out of order", p)
		}
		last = idx
	}
}

func noFormat(context.Context, string) error { return nil }

func TestGenerateIsDeterministic(t *testing.T) {
	for _, name := range testfixtures.Names() {
		t.Run(name, func(t *testing.T) {
			first := generate(t, name, nil)
			second := generate(t, name, nil)
			if first != second {
				t.Errorf("two runs over %s differ", name)
			}
		})
	}
}

func TestGenerateLayout(t *testing.T) {
	src := generate(t, "kitchen_sink", nil)

	if !strings.HasPrefix(src, "// This file was autogenerated") {
		t.Errorf("missing generated header")
	}
	assertOrder(t, src,
		"library kitchen;",
		"import 'dart:convert';",
		"import 'dart:ffi';",
		"import 'dart:typed_data';",
		"import 'package:ffi/ffi.dart';",
		"import 'package:accounts_dart/accounts.dart' show Account, FfiConverterTypeAccount;",
		"class UniffiInternalError",
		"typedef UniffiCallbackInterfaceClone",
		// declarations in description order
		"class Point {",
		"class Inventory {",
		"enum Level {",
		"sealed class Shape",
		"sealed class StoreError implements Exception",
		"class FfiConverterTypeUrl",
		"typedef Handle = int;",
		// functions
		"double area(",
		"bool toggle(",
		// helpers
		"class FfiConverterString {",
		// native declarations and the guard
		"const _uniffiAssetId = 'package:kitchen/uniffi:kitchen_core';",
		"@Native<RustBuffer Function(Uint64, Pointer<RustCallStatus>)>(assetId: _uniffiAssetId)\nexternal RustBuffer ffi_kitchen_sink_rustbuffer_alloc(",
		"void _checkApiVersion() {",
		"void ensureInitialized() {",
	)
	if strings.Contains(src, "dart:io") {
		t.Errorf("native assets loading should not import dart:io")
	}
	if !strings.HasSuffix(src, "}\n") || strings.HasSuffix(src, "\n\n") {
		t.Errorf("output should end with a single newline")
	}
}

func TestGenerateRuntimeUsesNamespaceSymbols(t *testing.T) {
	src := generate(t, "proc_macro_pure", nil)
	for _, want := range []string{
		"rustCall((status) => ffi_proc_macro_pure_rustbuffer_alloc(size, status));",
		"rustCall((status) => ffi_proc_macro_pure_rustbuffer_from_bytes(foreign.ref, status));",
		"rustCall((status) => ffi_proc_macro_pure_rustbuffer_free(this, status));",
		"throw UniffiInternalError.panicked(FfiConverterString.lift(status.ref.errorBuf));",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

func TestGenerateDynamicLibrary(t *testing.T) {
	src := generate(t, "trait_interfaces", nil)
	assertOrder(t, src,
		"import 'dart:io';",
		"import 'dart:typed_data';",
		"DynamicLibrary _uniffiOpenLibrary() {",
		"name = 'native/libuniffi_api.so';",
		"final DynamicLibrary _uniffiLib = _uniffiOpenLibrary();",
	)
	// vtable registration runs from the guard
	assertOrder(t, src, "_checkApiChecksums();", "_uniffiInitGreeterVTable();", "return const _UniffiInitialization(null);")
}

func TestGenerateOverridesWin(t *testing.T) {
	over := &config.Config{PackageName: "override_pkg", AssetID: "native"}
	src := generate(t, "kitchen_sink", over)
	for _, want := range []string{
		"library override_pkg;",
		"const _uniffiAssetId = 'package:override_pkg/native';",
		// file-level external packages survive the override
		"import 'package:accounts_dart/accounts.dart'",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

func TestGenerateInvalidDefault(t *testing.T) {
	ci, err := idl.Parse([]byte(`
namespace: broken
records:
  - name: Small
    fields:
      - {name: n, type: u8, default: 300}
`), idl.FormatYAML, "broken")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = Generate(ci, config.Defaults("broken"))
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.KindInvalidDefault {
		t.Fatalf("Generate error = %v, want invalid default", err)
	}
}

func TestRunWritesOneFilePerNamespace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "lib")
	var formatted []string
	e := NewEngine(dir, WithFormatter(func(_ context.Context, d string) error {
		formatted = append(formatted, d)
		return nil
	}))

	kitchen := component(t, "kitchen_sink")
	pure := component(t, "proc_macro_pure")
	paths, err := e.Run(context.Background(), kitchen, pure)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{filepath.Join(dir, "kitchen_sink.dart"), filepath.Join(dir, "proc_macro_pure.dart")}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], p)
		}
	}

	got, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	src, err := Generate(kitchen.Interface, e.Config(kitchen))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(got) != src {
		t.Errorf("written file differs from generated source")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		var names []string
		for _, en := range entries {
			names = append(names, en.Name())
		}
		t.Errorf("output dir holds %v, want only the two bindings", names)
	}

	if len(formatted) != 1 || formatted[0] != dir {
		t.Errorf("formatter ran over %v, want [%s]", formatted, dir)
	}
}

func TestRunIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(dir, WithFormatter(noFormat))

	var outputs []string
	for i := 0; i < 2; i++ {
		paths, err := e.Run(context.Background(), component(t, "trait_interfaces"))
		if err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
		data, err := os.ReadFile(paths[0])
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		outputs = append(outputs, string(data))
	}
	if outputs[0] != outputs[1] {
		t.Errorf("regeneration changed the output")
	}
}

func TestRunFormatterFailureIsAWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dir := t.TempDir()
	e := NewEngine(dir,
		WithLogger(zap.New(core)),
		WithFormatter(func(context.Context, string) error {
			return errors.New("dart: command not found")
		}))

	paths, err := e.Run(context.Background(), component(t, "proc_macro_pure"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(paths[0]); err != nil {
		t.Errorf("bindings not written: %v", err)
	}

	warnings := logs.FilterMessage("formatting generated bindings failed").All()
	if len(warnings) != 1 {
		t.Fatalf("got %d formatter warnings, want 1", len(warnings))
	}
	if got := warnings[0].ContextMap()["dir"]; got != dir {
		t.Errorf("warning dir = %v, want %s", got, dir)
	}
}

func TestRunWithoutFormatting(t *testing.T) {
	called := false
	e := NewEngine(t.TempDir(),
		WithFormatter(func(context.Context, string) error {
			called = true
			return nil
		}),
		WithoutFormatting())
	if _, err := e.Run(context.Background(), component(t, "proc_macro_pure")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if called {
		t.Errorf("formatter ran although formatting was disabled")
	}
}

func TestRunRenderFailureWritesNothing(t *testing.T) {
	ci, err := idl.Parse([]byte(`
namespace: broken
functions:
  - name: f
    params:
      - {name: flag, type: bool, default: "yes"}
`), idl.FormatYAML, "broken")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	e := NewEngine(dir, WithFormatter(noFormat))
	_, err = e.Run(context.Background(), component(t, "proc_macro_pure"), Component{Interface: ci})
	if err == nil {
		t.Fatalf("Run succeeded with a bad default")
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Errorf("output dir exists after a failed run: %v", statErr)
	}
}

func TestRunFilesystemError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	dir := filepath.Join(blocker, "lib")
	e := NewEngine(dir, WithFormatter(noFormat))
	_, err := e.Run(context.Background(), component(t, "proc_macro_pure"))

	var ge *errs.Error
	if !errors.As(err, &ge) || ge.Phase != errs.PhaseWrite || ge.Kind != errs.KindIO {
		t.Fatalf("Run error = %v, want write io error", err)
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("error %q does not name %s", err, dir)
	}
}

func TestWriteAllLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.dart")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	err := writeAll([]file{
		{path: existing, data: []byte("new")},
		{path: filepath.Join(dir, "missing", "b.dart"), data: []byte("b")},
	})
	if err == nil {
		t.Fatalf("writeAll succeeded into a missing directory")
	}
	if !strings.Contains(err.Error(), "b.dart") {
		t.Errorf("error %q does not name the failing file", err)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "old" {
		t.Errorf("existing file = %q, want it untouched", data)
	}
	entries, _ := os.ReadDir(dir)
	for _, en := range entries {
		if strings.HasSuffix(en.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", en.Name())
		}
	}
}

func TestRunDuplicateNamespace(t *testing.T) {
	e := NewEngine(t.TempDir(), WithFormatter(noFormat))
	c := component(t, "proc_macro_pure")
	_, err := e.Run(context.Background(), c, c)
	var ge *errs.Error
	if !errors.As(err, &ge) || ge.Kind != errs.KindDuplicate {
		t.Fatalf("Run error = %v, want duplicate", err)
	}
}

// section returns the text from the line starting with start up to the
// first line that closes it at column zero.
func section(t *testing.T, src, start string) string {
	t.Helper()
	i := strings.Index(src, start)
	if i < 0 {
		t.Fatalf("output does not contain %q", start)
	}
	rest := src[i:]
	end := strings.Index(rest, "\n}\n")
	if end < 0 {
		t.Fatalf("%q is not closed", start)
	}
	return rest[:end+2]
}

func TestGenerateChecksEveryChecksumOnce(t *testing.T) {
	for _, name := range testfixtures.Names() {
		t.Run(name, func(t *testing.T) {
			c := component(t, name)
			src := generate(t, name, nil)
			body := section(t, src, "void _checkApiChecksums() {")

			entries := contract.Table(c.Interface)
			for _, e := range entries {
				if n := strings.Count(body, e.Symbol+"()"); n != 1 {
					t.Errorf("%s checked %d times", e.Symbol, n)
				}
				if !strings.Contains(body, fmt.Sprintf("if (%s() != %d) {", e.Symbol, e.Checksum)) {
					t.Errorf("%s is not compared against %d", e.Symbol, e.Checksum)
				}
			}
			if n := strings.Count(body, "if ("); n != len(entries) {
				t.Errorf("%d checks for %d entries", n, len(entries))
			}
		})
	}
}

func TestGenerateRustCallInitializesFirst(t *testing.T) {
	src := generate(t, "proc_macro_pure", nil)
	body := section(t, src, "T rustCall<T>(")
	assertOrder(t, body,
		"  ensureInitialized();\n",
		"calloc<RustCallStatus>()",
		"final result = callback(status);",
		"checkCallStatus(errorHandler ?? NullRustCallStatusErrorHandler(), status);",
		"calloc.free(status);",
	)
}

func TestGeneratePassesErrorHandlers(t *testing.T) {
	handler := func(throws *idl.Type) string {
		if throws == nil {
			return "null"
		}
		return naming.LowerCamel(throws.Name) + "ErrorHandler"
	}
	for _, name := range testfixtures.Names() {
		t.Run(name, func(t *testing.T) {
			ci := component(t, name).Interface
			src := generate(t, name, nil)

			check := func(symbol string, throws *idl.Type) {
				t.Helper()
				var site string
				for _, line := range strings.Split(src, "\n") {
					if strings.Contains(line, "=> "+symbol+"(") {
						site = line
						break
					}
				}
				if site == "" {
					t.Errorf("no call site for %s", symbol)
					return
				}
				if want := "status), " + handler(throws) + ")"; !strings.Contains(site, want) {
					t.Errorf("call site of %s does not pass %s:\n%s", symbol, handler(throws), site)
				}
			}
			for _, f := range ci.Functions {
				check(ci.FuncSymbol(f), f.Throws)
			}
			for _, o := range ci.Objects {
				for _, c := range o.Constructors {
					check(ci.ConstructorSymbol(o, c), c.Throws)
				}
				for _, m := range o.Methods {
					check(ci.MethodSymbol(o.Name, m), m.Throws)
				}
			}
		})
	}
}
