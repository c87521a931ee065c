package wire

import (
	"time"
	"unicode/utf8"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

type fixed[T any] struct {
	name string
	size int
	put  func(*Writer, T)
	get  func(*Reader) (T, error)
}

func newFixed[T any](name string, size int, put func(*Writer, T), get func(*Reader) (T, error)) *fixed[T] {
	return &fixed[T]{name: name, size: size, put: put, get: get}
}

func (c *fixed[T]) Name() string { return c.name }

func (c *fixed[T]) Write(w *Writer, v any) error {
	x, ok := v.(T)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, c.name, v)
	}
	c.put(w, x)
	return nil
}

func (c *fixed[T]) Read(r *Reader) (any, error) {
	x, err := c.get(r)
	if err != nil {
		return nil, err
	}
	return x, nil
}

func (c *fixed[T]) AllocationSize(any) (int, error) { return c.size, nil }

func (c *fixed[T]) FixedSize() (int, bool) { return c.size, true }

// Primitive codecs. Go values use the matching sized type.
var (
	Bool    Codec = newFixed("bool", 1, (*Writer).Bool, (*Reader).Bool)
	Int8    Codec = newFixed("i8", 1, (*Writer).Int8, (*Reader).Int8)
	UInt8   Codec = newFixed("u8", 1, (*Writer).Uint8, (*Reader).Uint8)
	Int16   Codec = newFixed("i16", 2, (*Writer).Int16, (*Reader).Int16)
	UInt16  Codec = newFixed("u16", 2, (*Writer).Uint16, (*Reader).Uint16)
	Int32   Codec = newFixed("i32", 4, (*Writer).Int32, (*Reader).Int32)
	UInt32  Codec = newFixed("u32", 4, (*Writer).Uint32, (*Reader).Uint32)
	Int64   Codec = newFixed("i64", 8, (*Writer).Int64, (*Reader).Int64)
	UInt64  Codec = newFixed("u64", 8, (*Writer).Uint64, (*Reader).Uint64)
	Float32 Codec = newFixed("f32", 4, (*Writer).Float32, (*Reader).Float32)
	Float64 Codec = newFixed("f64", 8, (*Writer).Float64, (*Reader).Float64)
)

// Timestamp encodes a time.Time as signed seconds since the epoch followed
// by u32 nanoseconds. Before the epoch the seconds are negated and the
// nanoseconds hold the magnitude of the remainder.
var Timestamp Codec = newFixed("timestamp", 12, writeTimestamp, readTimestamp)

func writeTimestamp(w *Writer, t time.Time) {
	d := t.Sub(time.Unix(0, 0))
	sign := int64(1)
	if d < 0 {
		sign = -1
		d = -d
	}
	w.Int64(sign * int64(d/time.Second))
	w.Uint32(uint32(d % time.Second))
}

func readTimestamp(r *Reader) (time.Time, error) {
	secs, err := r.Int64()
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := r.Uint32()
	if err != nil {
		return time.Time{}, err
	}
	if secs >= 0 {
		return time.Unix(secs, int64(nanos)).UTC(), nil
	}
	return time.Unix(secs, -int64(nanos)).UTC(), nil
}

// Duration encodes a non-negative time.Duration as u64 seconds followed by
// u32 nanoseconds.
var Duration Codec = durationCodec{}

type durationCodec struct{}

func (durationCodec) Name() string { return "duration" }

func (durationCodec) Write(w *Writer, v any) error {
	d, ok := v.(time.Duration)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "time.Duration", v)
	}
	if d < 0 {
		return errs.New(errs.PhaseEncode, errs.KindInvalidInput).Detail("negative duration %s", d).Build()
	}
	w.Uint64(uint64(d / time.Second))
	w.Uint32(uint32(d % time.Second))
	return nil
}

func (durationCodec) Read(r *Reader) (any, error) {
	secs, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	nanos, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}

func (durationCodec) AllocationSize(any) (int, error) { return 12, nil }

func (durationCodec) FixedSize() (int, bool) { return 12, true }

// String is the nested string layout: i32 byte length then UTF-8 bytes.
var String Codec = stringCodec{}

type stringCodec struct{}

func (stringCodec) Name() string { return "string" }

func (stringCodec) Write(w *Writer, v any) error {
	s, ok := v.(string)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "string", v)
	}
	w.Int32(int32(len(s)))
	w.Raw([]byte(s))
	return nil
}

func (stringCodec) Read(r *Reader) (any, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	b, err := r.Raw(n)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, errs.New(errs.PhaseDecode, errs.KindInvalidInput).Detail("string is not valid UTF-8").Build()
	}
	return string(b), nil
}

func (stringCodec) AllocationSize(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errs.TypeMismatch(errs.PhaseEncode, "string", v)
	}
	return 4 + len(s), nil
}

func (stringCodec) FixedSize() (int, bool) { return 0, false }

// Bytes is an i32 length followed by the raw bytes.
var Bytes Codec = bytesCodec{}

type bytesCodec struct{}

func (bytesCodec) Name() string { return "bytes" }

func (bytesCodec) Write(w *Writer, v any) error {
	b, ok := v.([]byte)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "[]byte", v)
	}
	w.Int32(int32(len(b)))
	w.Raw(b)
	return nil
}

func (bytesCodec) Read(r *Reader) (any, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	return r.Raw(n)
}

func (bytesCodec) AllocationSize(v any) (int, error) {
	b, ok := v.([]byte)
	if !ok {
		return 0, errs.TypeMismatch(errs.PhaseEncode, "[]byte", v)
	}
	return 4 + len(b), nil
}

func (bytesCodec) FixedSize() (int, bool) { return 0, false }
