package naming

import "strconv"

// Scope hands out identifiers that are unique within it. Claims are keyed
// by the source identifier, so asking twice for the same source yields the
// same name, while a different source that converts to a taken name gets a
// numeric suffix. Suffixes follow claim order, which the generator keeps
// equal to declaration order.
type Scope struct {
	taken   map[string]bool
	byOwner map[string]string
}

// NewScope returns a scope in which the given names are already taken.
func NewScope(reservedNames ...string) *Scope {
	s := &Scope{
		taken:   make(map[string]bool),
		byOwner: make(map[string]string),
	}
	for _, n := range reservedNames {
		s.taken[n] = true
	}
	return s
}

// Claim returns the identifier assigned to source, deriving it from
// candidate on first use.
func (s *Scope) Claim(source, candidate string) string {
	if name, ok := s.byOwner[source]; ok {
		return name
	}
	name := candidate
	for i := 2; s.taken[name]; i++ {
		name = candidate + strconv.Itoa(i)
	}
	s.taken[name] = true
	s.byOwner[source] = name
	return name
}

// Taken reports whether name is in use in the scope.
func (s *Scope) Taken(name string) bool {
	return s.taken[name]
}

// runtimeNames are top-level declarations emitted by every generated file.
var runtimeNames = []string{
	"RustBuffer", "ForeignBytes", "RustCallStatus", "LiftRetVal",
	"UniffiInternalError", "UniffiHandleMap", "UniffiRustCallStatusErrorHandler",
	"rustCall", "ensureInitialized", "checkCallStatus", "toRustBuffer",
	"createUint8ListFromInt", "uniffiContractVersion", "liftFromRustBuffer",
	"NullRustCallStatusErrorHandler", "UniffiCallbackInterfaceFree",
	"UniffiCallbackInterfaceClone", "CALL_SUCCESS", "CALL_ERROR",
	"CALL_UNEXPECTED_ERROR",
	"Object", "String", "List", "Map", "Exception", "Error", "Pointer",
	"DynamicLibrary", "Finalizer", "Uint8List", "ByteData", "Endian",
	"DateTime", "Duration", "Future",
}

// memberNames are identifiers every generated class already defines or
// inherits.
var memberNames = []string{
	"dispose", "uniffiClonePointer", "toString", "hashCode", "runtimeType",
	"noSuchMethod",
}

// variantNames are members Dart enums declare implicitly.
var variantNames = []string{"values", "index", "name", "hashCode", "runtimeType", "toString"}

// Oracle assigns Dart identifiers for one generation run. The top-level
// scope is shared by classes and functions since Dart has one library
// namespace; every class and function owns a member scope.
type Oracle struct {
	top     *Scope
	members map[string]*Scope
}

// New returns an oracle with the runtime names pre-claimed.
func New() *Oracle {
	return &Oracle{
		top:     NewScope(runtimeNames...),
		members: make(map[string]*Scope),
	}
}

// Class returns the Dart class name for a declared type.
func (o *Oracle) Class(name string) string {
	return o.top.Claim("type:"+name, ClassName(name))
}

// VariantClass returns the class name of a variant of a sealed enum. The
// claim is keyed apart from declared types, so a type named Enum_Variant
// gets a different class.
func (o *Oracle) VariantClass(enum, variant string) string {
	return o.top.Claim("variant:"+enum+"."+variant, ClassName(enum+"_"+variant))
}

// Function returns the Dart name for a top-level function.
func (o *Oracle) Function(name string) string {
	return o.top.Claim("func:"+name, FunctionName(name))
}

// Member returns the Dart name of a method, field, parameter or variant
// inside owner. Owners are keys such as "Counter" or "func:greet".
func (o *Oracle) Member(owner, name string) string {
	scope, ok := o.members[owner]
	if !ok {
		scope = NewScope(memberNames...)
		o.members[owner] = scope
	}
	return scope.Claim(name, VarName(name))
}

// Reserve marks names as taken inside owner before any member is claimed,
// for classes that define helpers next to the declared members.
func (o *Oracle) Reserve(owner string, names ...string) {
	scope, ok := o.members[owner]
	if !ok {
		scope = NewScope(memberNames...)
		o.members[owner] = scope
	}
	for _, n := range names {
		scope.taken[n] = true
	}
}

// Global claims a synthesized top-level identifier, such as a finalizer
// or an error handler instance, keyed by source.
func (o *Oracle) Global(source, candidate string) string {
	return o.top.Claim(source, Escape(candidate))
}

// Variant returns the Dart name of an enum variant.
func (o *Oracle) Variant(enum, name string) string {
	key := "enum:" + enum
	scope, ok := o.members[key]
	if !ok {
		scope = NewScope(variantNames...)
		o.members[key] = scope
	}
	return scope.Claim(name, VarName(name))
}

// Symbol returns the lower snake fragment used in native symbol names.
func (o *Oracle) Symbol(name string) string {
	return Snake(name)
}
