// Package render turns a resolved interface description into the Dart
// source of its bindings and writes it to disk.
package render

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/funvibe/uniffi-bindgen-dart/internal/codetype"
	"github.com/funvibe/uniffi-bindgen-dart/internal/config"
	"github.com/funvibe/uniffi-bindgen-dart/internal/contract"
	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/ffi"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
)

// baseImports are needed by the runtime of every file.
var baseImports = []string{
	"dart:convert",
	"dart:ffi",
	"dart:typed_data",
	"package:ffi/ffi.dart",
}

var header = template.Must(template.New("header").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(headerTemplate))

type externalImport struct {
	Path string
	Show []string
}

type headerContext struct {
	PackageName     string
	Imports         []string
	Externals       []externalImport
	StringConverter string

	Alloc     string
	FromBytes string
	Free      string
	Reserve   string
}

// FileName is the name of the file generated for a namespace.
func FileName(ci *idl.Interface) string {
	return ci.Namespace + ".dart"
}

// Generate renders the bindings of ci. The output depends only on ci and
// cfg, so generating twice yields identical text.
func Generate(ci *idl.Interface, cfg *config.Config) (string, error) {
	r := codetype.NewRegistry(ci, naming.New())
	r.ReachAll()

	var body strings.Builder
	if err := renderDeclarations(&body, r); err != nil {
		return "", err
	}

	lib := library(cfg)
	ffi.Render(&body, ffi.Collect(r), lib)
	contract.Render(&body, r, contract.Table(ci))

	externals, err := externalImports(r, cfg)
	if err != nil {
		return "", err
	}
	stringType := r.Get(idl.Builtin(idl.KindString))
	ctx := headerContext{
		PackageName:     cfg.PackageName,
		Imports:         imports(r, lib),
		Externals:       externals,
		StringConverter: stringType.ConverterName(),
		Alloc:           ci.RustBufferSymbol("alloc"),
		FromBytes:       ci.RustBufferSymbol("from_bytes"),
		Free:            ci.RustBufferSymbol("free"),
		Reserve:         ci.RustBufferSymbol("reserve"),
	}

	var out strings.Builder
	if err := header.Execute(&out, ctx); err != nil {
		return "", errs.Wrap(errs.PhaseRender, errs.KindInvalidInput, err, "executing template")
	}
	out.WriteString(body.String())
	return strings.TrimRight(out.String(), "\n") + "\n", nil
}

// renderDeclarations writes the declared types, then the functions, then
// the helper converters of builtin and compound types in the order they
// were first reached.
func renderDeclarations(b *strings.Builder, r *codetype.Registry) error {
	ci := r.Interface()
	var names []string
	for _, rec := range ci.Records {
		names = append(names, rec.Name)
	}
	for _, e := range ci.Enums {
		names = append(names, e.Name)
	}
	for _, o := range ci.Objects {
		names = append(names, o.Name)
	}
	for _, cb := range ci.CallbackInterfaces {
		names = append(names, cb.Name)
	}
	for _, c := range ci.CustomTypes {
		names = append(names, c.Name)
	}
	for _, name := range names {
		ct, err := r.Named(name)
		if err != nil {
			return errs.WithNamespace(err, ci.Namespace)
		}
		if err := r.Render(b, ct); err != nil {
			return err
		}
	}

	for _, f := range ci.Functions {
		if err := r.RenderFunction(b, f); err != nil {
			return errs.WithNamespace(err, ci.Namespace)
		}
	}

	for _, ct := range r.Helpers() {
		if err := r.Render(b, ct); err != nil {
			return err
		}
	}
	return nil
}

func library(cfg *config.Config) ffi.Library {
	return ffi.Library{
		Strategy:  cfg.LibraryLoading,
		AssetID:   cfg.FullAssetID(),
		Name:      cfg.CdylibName,
		Directory: cfg.LibraryDirectory,
	}
}

// imports lists the Dart libraries in a stable order: dart: libraries
// first, then packages, each sorted.
func imports(r *codetype.Registry, lib ffi.Library) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(list []string) {
		for _, imp := range list {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	add(baseImports)
	add(lib.Imports())
	add(r.Imports())
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := strings.HasPrefix(out[i], "dart:"), strings.HasPrefix(out[j], "dart:")
		if di != dj {
			return di
		}
		return out[i] < out[j]
	})
	return out
}

// externalImports imports, per external crate, the types and converters
// the bindings use from the package generated for that crate.
func externalImports(r *codetype.Registry, cfg *config.Config) ([]externalImport, error) {
	ci := r.Interface()
	var out []externalImport
	for _, crate := range ci.ExternalCrates() {
		imp := externalImport{
			Path: fmt.Sprintf("package:%s/%s.dart", cfg.ExternalPackage(crate), crate),
		}
		for _, e := range ci.ExternalTypes {
			if e.Crate != crate {
				continue
			}
			ct, err := r.Named(e.Name)
			if err != nil {
				return nil, errs.WithNamespace(err, ci.Namespace)
			}
			imp.Show = append(imp.Show, ct.TypeLabel(), ct.ConverterName())
		}
		out = append(out, imp)
	}
	return out, nil
}
