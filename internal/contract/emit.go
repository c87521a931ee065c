package contract

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/codetype"
)

// Render writes the initialization routine of the bindings. The outcome
// is held by a lazily initialized top-level final, so the checks run at
// most once and a failure is rethrown by every later ensureInitialized.
// Callback vtables are registered after the checks pass.
func Render(b *strings.Builder, r *codetype.Registry, entries []Entry) {
	ci := r.Interface()

	b.WriteString("void _checkApiVersion() {\n")
	fmt.Fprintf(b, "  const bindingsVersion = %d;\n", ci.Contract())
	fmt.Fprintf(b, "  final scaffoldingVersion = %s();\n", ci.ContractVersionSymbol())
	b.WriteString("  if (bindingsVersion != scaffoldingVersion) {\n")
	b.WriteString("    throw UniffiInternalError.panicked(\n")
	b.WriteString("        'UniFFI contract version mismatch: bindings version $bindingsVersion, scaffolding version $scaffoldingVersion');\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	b.WriteString("void _checkApiChecksums() {\n")
	for _, e := range entries {
		fmt.Fprintf(b, "  if (%s() != %d) {\n", e.Symbol, e.Checksum)
		fmt.Fprintf(b, "    throw UniffiInternalError.panicked(%s);\n",
			codetype.DartString("UniFFI API checksum mismatch: "+e.Symbol))
		b.WriteString("  }\n")
	}
	b.WriteString("}\n\n")

	b.WriteString("class _UniffiInitialization {\n")
	b.WriteString("  final Object? error;\n\n")
	b.WriteString("  const _UniffiInitialization(this.error);\n\n")
	b.WriteString("  static _UniffiInitialization _run() {\n")
	b.WriteString("    try {\n")
	b.WriteString("      _checkApiVersion();\n")
	b.WriteString("      _checkApiChecksums();\n")
	for _, register := range CallbackInits(r) {
		fmt.Fprintf(b, "      %s();\n", register)
	}
	b.WriteString("      return const _UniffiInitialization(null);\n")
	b.WriteString("    } catch (e) {\n")
	b.WriteString("      return _UniffiInitialization(e);\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	b.WriteString("final _uniffiInitialization = _UniffiInitialization._run();\n\n")

	b.WriteString("void ensureInitialized() {\n")
	b.WriteString("  final error = _uniffiInitialization.error;\n")
	b.WriteString("  if (error != null) {\n")
	b.WriteString("    throw error;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

// CallbackInits lists the vtable registrations in the order the guard
// runs them.
func CallbackInits(r *codetype.Registry) []string {
	var out []string
	for _, cb := range r.Interface().CallbackInterfaces {
		out = append(out, r.VTableInit(cb))
	}
	return out
}
