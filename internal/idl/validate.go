package idl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// Resolve validates the description and resolves every type reference.
// It must be called once before the description is used; Parse does so.
func (ci *Interface) Resolve() error {
	if err := ci.resolve(); err != nil {
		return errs.WithNamespace(err, ci.Namespace)
	}
	return nil
}

func (ci *Interface) resolve() error {
	if strings.TrimSpace(ci.Namespace) == "" {
		return errs.New(errs.PhaseValidate, errs.KindInvalidInput).Detail("namespace is required").Build()
	}

	ci.types = make(map[string]*Type)
	ci.errorTypes = make(map[string]bool)

	declare := func(section, name string, t *Type) error {
		if name == "" {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).Path(section).Detail("name is required").Build()
		}
		if _, dup := ci.types[name]; dup {
			return errs.Duplicate(errs.PhaseValidate, []string{section}, "type", name)
		}
		t.Name = name
		ci.types[name] = t
		return nil
	}

	for _, r := range ci.Records {
		if err := declare("records", r.Name, &Type{Kind: KindRecord}); err != nil {
			return err
		}
	}
	for _, e := range ci.Enums {
		if err := declare("enums", e.Name, &Type{Kind: KindEnum}); err != nil {
			return err
		}
	}
	for _, o := range ci.Objects {
		if err := declare("objects", o.Name, &Type{Kind: KindObject}); err != nil {
			return err
		}
	}
	for _, c := range ci.CallbackInterfaces {
		if err := declare("callback_interfaces", c.Name, &Type{Kind: KindCallbackInterface}); err != nil {
			return err
		}
	}
	for _, c := range ci.CustomTypes {
		if err := declare("custom_types", c.Name, &Type{Kind: KindCustom}); err != nil {
			return err
		}
	}
	for _, e := range ci.ExternalTypes {
		kind, err := externalKind(e.KindName)
		if err != nil {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).Path("external_types", e.Name).Cause(err).Build()
		}
		if e.Crate == "" {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).Path("external_types", e.Name).Detail("crate is required").Build()
		}
		if err := declare("external_types", e.Name, &Type{Kind: KindExternal, Crate: e.Crate, ExternalKind: kind}); err != nil {
			return err
		}
	}

	for _, c := range ci.CustomTypes {
		t, err := ci.parse(c.BuiltinName, "custom_types", c.Name, "builtin")
		if err != nil {
			return err
		}
		if !t.Kind.IsBuiltin() {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).
				Path("custom_types", c.Name).
				Detail("custom type must wrap a builtin, got %s", t).Build()
		}
		if (c.Lift != "" || c.Lower != "") && c.TypeName == "" {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).
				Path("custom_types", c.Name).
				Detail("type_name is required when lift or lower is set").Build()
		}
		c.Builtin = t
	}

	for _, r := range ci.Records {
		if err := ci.resolveFields(r.Fields, "records", r.Name); err != nil {
			return err
		}
	}
	for _, e := range ci.Enums {
		if len(e.Variants) == 0 {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).Path("enums", e.Name).Detail("enum has no variants").Build()
		}
		seen := make(map[string]bool)
		for _, v := range e.Variants {
			if seen[v.Name] {
				return errs.Duplicate(errs.PhaseValidate, []string{"enums", e.Name}, "variant", v.Name)
			}
			seen[v.Name] = true
			if err := ci.resolveFields(v.Fields, "enums", e.Name, v.Name); err != nil {
				return err
			}
		}
	}

	seenFuncs := make(map[string]bool)
	for _, f := range ci.Functions {
		if seenFuncs[f.Name] {
			return errs.Duplicate(errs.PhaseValidate, []string{"functions"}, "function", f.Name)
		}
		seenFuncs[f.Name] = true
		if err := ci.resolveFunction(f, "functions", f.Name); err != nil {
			return err
		}
	}

	for _, o := range ci.Objects {
		if err := ci.resolveObject(o); err != nil {
			return err
		}
	}

	for _, cb := range ci.CallbackInterfaces {
		seen := make(map[string]bool)
		for _, m := range cb.Methods {
			if seen[m.Name] {
				return errs.Duplicate(errs.PhaseValidate, []string{"callback_interfaces", cb.Name}, "method", m.Name)
			}
			seen[m.Name] = true
			if err := ci.resolveFunction(m, "callback_interfaces", cb.Name, m.Name); err != nil {
				return err
			}
		}
	}

	return ci.checkCycles()
}

func (ci *Interface) resolveObject(o *Object) error {
	seen := make(map[string]bool)
	for _, c := range o.Constructors {
		if seen[c.Name] {
			return errs.Duplicate(errs.PhaseValidate, []string{"objects", o.Name}, "constructor", c.Name)
		}
		seen[c.Name] = true
		if err := ci.resolveFields(c.Params, "objects", o.Name, c.Name); err != nil {
			return err
		}
		if c.ThrowsName != "" {
			t, err := ci.resolveThrows(c.ThrowsName, "objects", o.Name, c.Name)
			if err != nil {
				return err
			}
			c.Throws = t
		}
	}
	for _, m := range o.Methods {
		if seen[m.Name] {
			return errs.Duplicate(errs.PhaseValidate, []string{"objects", o.Name}, "method", m.Name)
		}
		seen[m.Name] = true
		if err := ci.resolveFunction(m, "objects", o.Name, m.Name); err != nil {
			return err
		}
	}
	for _, name := range o.Implements {
		if ci.CallbackInterface(name) == nil {
			return errs.Unresolved([]string{"objects", o.Name, "implements"}, name)
		}
	}
	for _, trait := range o.Traits {
		switch trait {
		case TraitDebug, TraitDisplay, TraitEq, TraitHash:
		default:
			return errs.New(errs.PhaseValidate, errs.KindUnsupported).
				Path("objects", o.Name, "traits").
				Detail("unknown trait %q", trait).Build()
		}
	}
	return nil
}

func (ci *Interface) resolveFunction(f *Function, path ...string) error {
	if err := ci.resolveFields(f.Params, path...); err != nil {
		return err
	}
	if f.ReturnName != "" {
		t, err := ci.parse(f.ReturnName, append(path, "return")...)
		if err != nil {
			return err
		}
		f.Return = t
	}
	if f.ThrowsName != "" {
		t, err := ci.resolveThrows(f.ThrowsName, path...)
		if err != nil {
			return err
		}
		f.Throws = t
	}
	return nil
}

func (ci *Interface) resolveThrows(name string, path ...string) (*Type, error) {
	t, err := ci.parse(name, append(path, "throws")...)
	if err != nil {
		return nil, err
	}
	switch {
	case t.Kind == KindEnum, t.Kind == KindObject:
	case t.Kind == KindExternal && (t.ExternalKind == KindEnum || t.ExternalKind == KindObject):
	default:
		return nil, errs.New(errs.PhaseValidate, errs.KindInvalidInput).
			Path(append(path, "throws")...).
			Detail("error type must be an enum or object, got %s", t).Build()
	}
	ci.errorTypes[t.Name] = true
	return t, nil
}

func (ci *Interface) resolveFields(fields []*Field, path ...string) error {
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Name == "" {
			return errs.New(errs.PhaseValidate, errs.KindInvalidInput).Path(path...).Detail("field name is required").Build()
		}
		if seen[f.Name] {
			return errs.Duplicate(errs.PhaseValidate, path, "field", f.Name)
		}
		seen[f.Name] = true
		t, err := ci.parse(f.TypeName, append(path, f.Name)...)
		if err != nil {
			return err
		}
		f.Type = t
	}
	return nil
}

// parse resolves a textual reference and checks map key types.
func (ci *Interface) parse(ref string, path ...string) (*Type, error) {
	p := append([]string(nil), path...)
	t, err := ParseType(ref, ci.LookupType)
	if err != nil {
		var unresolved *unresolvedError
		if errors.As(err, &unresolved) {
			return nil, errs.Unresolved(p, ref)
		}
		return nil, errs.New(errs.PhaseResolve, errs.KindInvalidInput).Path(p...).Cause(err).Build()
	}
	var keyErr error
	t.Walk(func(n *Type) {
		if n.Kind != KindMap || keyErr != nil {
			return
		}
		if !n.Key.Kind.IsBuiltin() || n.Key.Kind == KindFloat32 || n.Key.Kind == KindFloat64 {
			keyErr = errs.New(errs.PhaseResolve, errs.KindUnsupported).
				Path(p...).
				Detail("map key type %s is not hashable", n.Key).Build()
		}
	})
	if keyErr != nil {
		return nil, keyErr
	}
	return t, nil
}

// checkCycles rejects records and enums that contain themselves by value.
func (ci *Interface) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)

	var visit func(name string, trail []string) error
	visit = func(name string, trail []string) error {
		switch state[name] {
		case visiting:
			return errs.New(errs.PhaseValidate, errs.KindUnsupported).
				Path(trail...).
				Detail("type %s contains itself", name).Build()
		case done:
			return nil
		}
		state[name] = visiting
		var fields []*Field
		if r := ci.Record(name); r != nil {
			fields = r.Fields
		} else if e := ci.Enum(name); e != nil {
			for _, v := range e.Variants {
				fields = append(fields, v.Fields...)
			}
		}
		for _, f := range fields {
			var err error
			f.Type.Walk(func(t *Type) {
				if err != nil {
					return
				}
				if t.Kind == KindRecord || t.Kind == KindEnum {
					err = visit(t.Name, append(trail, t.Name))
				}
			})
			if err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, r := range ci.Records {
		if err := visit(r.Name, []string{r.Name}); err != nil {
			return err
		}
	}
	for _, e := range ci.Enums {
		if err := visit(e.Name, []string{e.Name}); err != nil {
			return err
		}
	}
	return nil
}

func externalKind(name string) (Kind, error) {
	switch name {
	case "record":
		return KindRecord, nil
	case "enum":
		return KindEnum, nil
	case "object", "interface":
		return KindObject, nil
	case "callback_interface":
		return KindCallbackInterface, nil
	case "custom":
		return KindCustom, nil
	default:
		return 0, fmt.Errorf("unknown external kind %q", name)
	}
}
