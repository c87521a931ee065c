// Package idl models the interface description handed over by the upstream
// toolchain: a namespace with its exported functions and type declarations.
//
// A description is loaded once per generation run (see Load), validated and
// resolved, and treated as immutable afterwards. All declaration lists keep
// the order of the dump; generated code follows that order.
package idl

import (
	"gopkg.in/yaml.v3"
)

// DefaultContractVersion is the ABI contract version the generated bindings
// expect when the description does not carry one.
const DefaultContractVersion uint32 = 26

// Interface is the complete description of one namespace.
type Interface struct {
	// Namespace is the exported namespace; it names the generated file.
	Namespace string `yaml:"namespace" json:"namespace"`

	// Crate is the library the symbols are exported from. Defaults to Namespace.
	Crate string `yaml:"crate,omitempty" json:"crate,omitempty"`

	// ContractVersion is the ABI contract version baked into the bindings.
	ContractVersion uint32 `yaml:"contract_version,omitempty" json:"contract_version,omitempty"`

	Functions          []*Function          `yaml:"functions,omitempty" json:"functions,omitempty"`
	Records            []*Record            `yaml:"records,omitempty" json:"records,omitempty"`
	Enums              []*Enum              `yaml:"enums,omitempty" json:"enums,omitempty"`
	Objects            []*Object            `yaml:"objects,omitempty" json:"objects,omitempty"`
	CallbackInterfaces []*CallbackInterface `yaml:"callback_interfaces,omitempty" json:"callback_interfaces,omitempty"`
	CustomTypes        []*CustomType        `yaml:"custom_types,omitempty" json:"custom_types,omitempty"`
	ExternalTypes      []*ExternalType      `yaml:"external_types,omitempty" json:"external_types,omitempty"`

	// types maps declared names to their resolved type; filled by Resolve.
	types map[string]*Type
	// errorTypes holds names used in a throws clause.
	errorTypes map[string]bool
}

// Field is a record field or a function parameter. Order is ABI-significant.
type Field struct {
	Name     string `yaml:"name" json:"name"`
	TypeName string `yaml:"type" json:"type"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
	Docs     string `yaml:"docs,omitempty" json:"docs,omitempty"`

	// HasDefault is true when the dump carries a default, including null.
	HasDefault bool `yaml:"-" json:"-"`

	Type *Type `yaml:"-" json:"-"`
}

// UnmarshalYAML records whether a default key is present so that an
// explicit null default is distinguishable from no default.
func (f *Field) UnmarshalYAML(value *yaml.Node) error {
	type plain Field
	if err := value.Decode((*plain)(f)); err != nil {
		return err
	}
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value == "default" {
				f.HasDefault = true
			}
		}
	}
	return nil
}

// Function is an exported top-level function.
type Function struct {
	Name       string   `yaml:"name" json:"name"`
	Params     []*Field `yaml:"params,omitempty" json:"params,omitempty"`
	ReturnName string   `yaml:"return,omitempty" json:"return,omitempty"`
	ThrowsName string   `yaml:"throws,omitempty" json:"throws,omitempty"`
	Docs       string   `yaml:"docs,omitempty" json:"docs,omitempty"`

	// Checksum overrides the generation-time checksum when the upstream
	// toolchain supplies one.
	Checksum *uint16 `yaml:"checksum,omitempty" json:"checksum,omitempty"`

	Return *Type `yaml:"-" json:"-"`
	Throws *Type `yaml:"-" json:"-"`
}

// Record is a by-value struct serialized field by field.
type Record struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []*Field `yaml:"fields,omitempty" json:"fields,omitempty"`
	Docs   string   `yaml:"docs,omitempty" json:"docs,omitempty"`
}

// Enum is a tagged union. Variants without fields make a flat enum.
type Enum struct {
	Name     string     `yaml:"name" json:"name"`
	Variants []*Variant `yaml:"variants" json:"variants"`
	Error    bool       `yaml:"error,omitempty" json:"error,omitempty"`
	Docs     string     `yaml:"docs,omitempty" json:"docs,omitempty"`
}

// IsFlat reports whether no variant carries fields.
func (e *Enum) IsFlat() bool {
	for _, v := range e.Variants {
		if len(v.Fields) > 0 {
			return false
		}
	}
	return true
}

// Variant is one case of an enum.
type Variant struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []*Field `yaml:"fields,omitempty" json:"fields,omitempty"`
	Docs   string   `yaml:"docs,omitempty" json:"docs,omitempty"`
}

// Object is a reference type living on the native side, accessed through
// an opaque handle.
type Object struct {
	Name         string         `yaml:"name" json:"name"`
	Constructors []*Constructor `yaml:"constructors,omitempty" json:"constructors,omitempty"`
	Methods      []*Function    `yaml:"methods,omitempty" json:"methods,omitempty"`
	Implements   []string       `yaml:"implements,omitempty" json:"implements,omitempty"`
	Traits       []string       `yaml:"traits,omitempty" json:"traits,omitempty"`
	Docs         string         `yaml:"docs,omitempty" json:"docs,omitempty"`
}

// Exported trait names an object may declare.
const (
	TraitDebug   = "Debug"
	TraitDisplay = "Display"
	TraitEq      = "Eq"
	TraitHash    = "Hash"
)

// HasTrait reports whether the object exports the named trait.
func (o *Object) HasTrait(name string) bool {
	for _, t := range o.Traits {
		if t == name {
			return true
		}
	}
	return false
}

// PrimaryConstructor returns the constructor named "new", if any.
func (o *Object) PrimaryConstructor() *Constructor {
	for _, c := range o.Constructors {
		if c.Name == "new" {
			return c
		}
	}
	return nil
}

// Constructor creates an object instance.
type Constructor struct {
	Name       string   `yaml:"name" json:"name"`
	Params     []*Field `yaml:"params,omitempty" json:"params,omitempty"`
	ThrowsName string   `yaml:"throws,omitempty" json:"throws,omitempty"`
	Docs       string   `yaml:"docs,omitempty" json:"docs,omitempty"`
	Checksum   *uint16  `yaml:"checksum,omitempty" json:"checksum,omitempty"`

	Throws *Type `yaml:"-" json:"-"`
}

// CallbackInterface is an interface that may be implemented on either side
// of the boundary. It is passed as an opaque handle.
type CallbackInterface struct {
	Name    string      `yaml:"name" json:"name"`
	Methods []*Function `yaml:"methods,omitempty" json:"methods,omitempty"`
	Docs    string      `yaml:"docs,omitempty" json:"docs,omitempty"`
}

// CustomType wraps a builtin with user conversion expressions. Lift and
// Lower are Dart expressions with {} standing for the value.
type CustomType struct {
	Name        string   `yaml:"name" json:"name"`
	BuiltinName string   `yaml:"builtin" json:"builtin"`
	TypeName    string   `yaml:"type_name,omitempty" json:"type_name,omitempty"`
	Lift        string   `yaml:"lift,omitempty" json:"lift,omitempty"`
	Lower       string   `yaml:"lower,omitempty" json:"lower,omitempty"`
	Imports     []string `yaml:"imports,omitempty" json:"imports,omitempty"`

	Builtin *Type `yaml:"-" json:"-"`
}

// ExternalType is a type declared by another crate.
type ExternalType struct {
	Name     string `yaml:"name" json:"name"`
	Crate    string `yaml:"crate" json:"crate"`
	KindName string `yaml:"kind" json:"kind"`
}

// FfiNamespace is the crate name as it appears in exported symbols.
func (ci *Interface) FfiNamespace() string {
	crate := ci.Crate
	if crate == "" {
		crate = ci.Namespace
	}
	return ffiIdent(crate)
}

// Contract returns the contract version the bindings are generated for.
func (ci *Interface) Contract() uint32 {
	if ci.ContractVersion == 0 {
		return DefaultContractVersion
	}
	return ci.ContractVersion
}

// LookupType returns the resolved type of a declared name.
func (ci *Interface) LookupType(name string) (*Type, bool) {
	t, ok := ci.types[name]
	return t, ok
}

// IsError reports whether the named type is used as an error.
func (ci *Interface) IsError(name string) bool {
	if ci.errorTypes[name] {
		return true
	}
	if e := ci.Enum(name); e != nil {
		return e.Error
	}
	return false
}

// Record returns the record declaration with the given name.
func (ci *Interface) Record(name string) *Record {
	for _, r := range ci.Records {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Enum returns the enum declaration with the given name.
func (ci *Interface) Enum(name string) *Enum {
	for _, e := range ci.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Object returns the object declaration with the given name.
func (ci *Interface) Object(name string) *Object {
	for _, o := range ci.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// CallbackInterface returns the callback interface with the given name.
func (ci *Interface) CallbackInterface(name string) *CallbackInterface {
	for _, c := range ci.CallbackInterfaces {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// CustomType returns the custom type with the given name.
func (ci *Interface) CustomType(name string) *CustomType {
	for _, c := range ci.CustomTypes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ExternalCrates returns the crates referenced by external types, in
// declaration order without repeats.
func (ci *Interface) ExternalCrates() []string {
	seen := make(map[string]bool)
	var crates []string
	for _, e := range ci.ExternalTypes {
		if !seen[e.Crate] {
			seen[e.Crate] = true
			crates = append(crates, e.Crate)
		}
	}
	return crates
}
