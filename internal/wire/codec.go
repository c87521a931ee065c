package wire

// Codec reads and writes one type in the buffer layout.
//
// Write appends v and Read consumes exactly the bytes Write produced.
// AllocationSize is an upper bound on what Write appends for v. FixedSize
// reports the encoded size when it does not depend on the value.
type Codec interface {
	Name() string
	Write(w *Writer, v any) error
	Read(r *Reader) (any, error)
	AllocationSize(v any) (int, error)
	FixedSize() (int, bool)
}
