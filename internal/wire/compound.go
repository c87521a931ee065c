package wire

import (
	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// Some marks a present optional whose payload may itself be nil, which
// distinguishes Some(None) from None for nested optionals.
type Some struct {
	Value any
}

type optionalCodec struct {
	inner Codec
}

// Optional encodes a 1-byte presence flag followed by the inner value when
// present. A nil value is absent; any other value, or a Some, is present.
// Read returns nil for absent and wraps a present nil payload in Some.
func Optional(inner Codec) Codec {
	return &optionalCodec{inner: inner}
}

func (c *optionalCodec) Name() string { return "optional<" + c.inner.Name() + ">" }

func (c *optionalCodec) Write(w *Writer, v any) error {
	if v == nil {
		w.Uint8(0)
		return nil
	}
	if s, ok := v.(Some); ok {
		v = s.Value
	}
	w.Uint8(1)
	return c.inner.Write(w, v)
}

func (c *optionalCodec) Read(r *Reader) (any, error) {
	flag, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		return nil, nil
	case 1:
		v, err := c.inner.Read(r)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return Some{}, nil
		}
		return v, nil
	default:
		return nil, errs.New(errs.PhaseDecode, errs.KindInvalidInput).
			Detail("invalid optional flag %d at offset %d", flag, r.Position()-1).Build()
	}
}

func (c *optionalCodec) AllocationSize(v any) (int, error) {
	if v == nil {
		return 1, nil
	}
	if s, ok := v.(Some); ok {
		v = s.Value
	}
	n, err := c.inner.AllocationSize(v)
	return 1 + n, err
}

func (c *optionalCodec) FixedSize() (int, bool) { return 0, false }

type listCodec struct {
	elem Codec
}

// List encodes an i32 element count followed by each element. Go values
// are []any.
func List(elem Codec) Codec {
	return &listCodec{elem: elem}
}

func (c *listCodec) Name() string { return "sequence<" + c.elem.Name() + ">" }

func (c *listCodec) Write(w *Writer, v any) error {
	items, ok := v.([]any)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "[]any", v)
	}
	w.Int32(int32(len(items)))
	for _, item := range items {
		if err := c.elem.Write(w, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *listCodec) Read(r *Reader) (any, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, min(n, r.Remaining()))
	for i := 0; i < n; i++ {
		item, err := c.elem.Read(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *listCodec) AllocationSize(v any) (int, error) {
	items, ok := v.([]any)
	if !ok {
		return 0, errs.TypeMismatch(errs.PhaseEncode, "[]any", v)
	}
	if size, fixed := c.elem.FixedSize(); fixed {
		return 4 + size*len(items), nil
	}
	total := 4
	for _, item := range items {
		n, err := c.elem.AllocationSize(item)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *listCodec) FixedSize() (int, bool) { return 0, false }

// Entry is one key/value pair of a map.
type Entry struct {
	Key   any
	Value any
}

type mapCodec struct {
	key, value Codec
}

// Map encodes an i32 entry count followed by interleaved keys and values.
// Go values are []Entry so the insertion order survives a round trip.
func Map(key, value Codec) Codec {
	return &mapCodec{key: key, value: value}
}

func (c *mapCodec) Name() string { return "map<" + c.key.Name() + ", " + c.value.Name() + ">" }

func (c *mapCodec) Write(w *Writer, v any) error {
	entries, ok := v.([]Entry)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "[]Entry", v)
	}
	w.Int32(int32(len(entries)))
	for _, e := range entries {
		if err := c.key.Write(w, e.Key); err != nil {
			return err
		}
		if err := c.value.Write(w, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (c *mapCodec) Read(r *Reader) (any, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, min(n, r.Remaining()))
	for i := 0; i < n; i++ {
		k, err := c.key.Read(r)
		if err != nil {
			return nil, err
		}
		v, err := c.value.Read(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: k, Value: v})
	}
	return entries, nil
}

func (c *mapCodec) AllocationSize(v any) (int, error) {
	entries, ok := v.([]Entry)
	if !ok {
		return 0, errs.TypeMismatch(errs.PhaseEncode, "[]Entry", v)
	}
	total := 4
	for _, e := range entries {
		k, err := c.key.AllocationSize(e.Key)
		if err != nil {
			return 0, err
		}
		val, err := c.value.AllocationSize(e.Value)
		if err != nil {
			return 0, err
		}
		total += k + val
	}
	return total, nil
}

func (c *mapCodec) FixedSize() (int, bool) { return 0, false }
