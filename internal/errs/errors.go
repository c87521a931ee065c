// Package errs defines the structured error type reported by binding generation.
package errs

import (
	"fmt"
	"strings"
)

// Phase indicates where in generation the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // reading the interface description
	PhaseConfig   Phase = "config"   // reading configuration
	PhaseValidate Phase = "validate" // checking the description for consistency
	PhaseResolve  Phase = "resolve"  // type descriptor resolution
	PhaseRender   Phase = "render"   // producing Dart source
	PhaseWrite    Phase = "write"    // writing output files
	PhaseDecode   Phase = "decode"   // wire decoding (reference codec)
	PhaseEncode   Phase = "encode"   // wire encoding (reference codec)
	PhaseInit     Phase = "init"     // contract guard
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicate       Kind = "duplicate"
	KindUnresolved      Kind = "unresolved_type"
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidDefault  Kind = "invalid_default"
	KindUnsupported     Kind = "unsupported"
	KindIO              Kind = "io"
	KindTypeMismatch    Kind = "type_mismatch"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidEnum     Kind = "invalid_enum"
	KindReleased        Kind = "released_handle"
	KindContractVersion Kind = "contract_version"
	KindChecksum        Kind = "checksum"
)

// Error is the structured error reported by the generator.
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	Namespace string
	Path      []string
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Namespace != "" {
		b.WriteString(" in ")
		b.WriteString(e.Namespace)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's phase and kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Namespace sets the namespace being generated
func (b *Builder) Namespace(ns string) *Builder {
	b.err.Namespace = ns
	return b
}

// Path sets the declaration path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Duplicate reports a name declared twice in one scope.
func Duplicate(phase Phase, path []string, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Path:   path,
		Detail: fmt.Sprintf("duplicate %s %q", what, name),
	}
}

// Unresolved reports a type reference that names no declaration.
func Unresolved(path []string, ref string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnresolved,
		Path:   path,
		Detail: fmt.Sprintf("unresolvable type reference %q", ref),
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds reports a read past the end of a buffer.
func OutOfBounds(phase Phase, offset, want, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("need %d bytes at offset %d, buffer has %d", want, offset, length),
	}
}

// TypeMismatch reports a Go value that does not fit the codec.
func TypeMismatch(phase Phase, want string, got any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("expected %s, got %T", want, got),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// WithNamespace returns err tagged with ns when it is an *Error without one.
func WithNamespace(err error, ns string) error {
	if e, ok := err.(*Error); ok && e.Namespace == "" {
		cp := *e
		cp.Namespace = ns
		return &cp
	}
	return err
}
