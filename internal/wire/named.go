package wire

import (
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// Field pairs a field name with its codec.
type Field struct {
	Name  string
	Codec Codec
}

// fieldsCodec writes a fixed list of fields back to back. Values are []any
// in declaration order.
type fieldsCodec struct {
	fields []Field
}

func (c fieldsCodec) write(w *Writer, v any, owner string) error {
	values, ok := v.([]any)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "[]any", v)
	}
	if len(values) != len(c.fields) {
		return errs.New(errs.PhaseEncode, errs.KindInvalidInput).
			Path(owner).
			Detail("expected %d fields, got %d", len(c.fields), len(values)).Build()
	}
	for i, f := range c.fields {
		if err := f.Codec.Write(w, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c fieldsCodec) read(r *Reader) ([]any, error) {
	values := make([]any, len(c.fields))
	for i, f := range c.fields {
		v, err := f.Codec.Read(r)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (c fieldsCodec) size(v any) (int, error) {
	values, ok := v.([]any)
	if !ok || len(values) != len(c.fields) {
		return 0, errs.TypeMismatch(errs.PhaseEncode, "[]any", v)
	}
	total := 0
	for i, f := range c.fields {
		n, err := f.Codec.AllocationSize(values[i])
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c fieldsCodec) fixedSize() (int, bool) {
	total := 0
	for _, f := range c.fields {
		n, ok := f.Codec.FixedSize()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

type recordCodec struct {
	name string
	fieldsCodec
}

// Record encodes the fields in declaration order with no framing.
func Record(name string, fields ...Field) Codec {
	return &recordCodec{name: name, fieldsCodec: fieldsCodec{fields: fields}}
}

func (c *recordCodec) Name() string { return c.name }

func (c *recordCodec) Write(w *Writer, v any) error { return c.write(w, v, c.name) }

func (c *recordCodec) Read(r *Reader) (any, error) { return c.read(r) }

func (c *recordCodec) AllocationSize(v any) (int, error) { return c.size(v) }

func (c *recordCodec) FixedSize() (int, bool) { return c.fixedSize() }

// VariantCase declares one enum variant.
type VariantCase struct {
	Name   string
	Fields []Field
}

// Variant is an enum value. Index is the 0-based position of the variant
// in the declaration; the wire discriminant is Index+1.
type Variant struct {
	Index  int
	Fields []any
}

type enumCodec struct {
	name     string
	variants []VariantCase
}

// Enum encodes an i32 1-based discriminant followed by the variant's fields.
func Enum(name string, variants ...VariantCase) Codec {
	return &enumCodec{name: name, variants: variants}
}

func (c *enumCodec) Name() string { return c.name }

func (c *enumCodec) variant(v any) (Variant, fieldsCodec, error) {
	val, ok := v.(Variant)
	if !ok {
		return Variant{}, fieldsCodec{}, errs.TypeMismatch(errs.PhaseEncode, "Variant", v)
	}
	if val.Index < 0 || val.Index >= len(c.variants) {
		return Variant{}, fieldsCodec{}, errs.New(errs.PhaseEncode, errs.KindInvalidEnum).
			Path(c.name).
			Detail("variant index %d out of range", val.Index).Build()
	}
	if val.Fields == nil {
		val.Fields = []any{}
	}
	return val, fieldsCodec{fields: c.variants[val.Index].Fields}, nil
}

func (c *enumCodec) Write(w *Writer, v any) error {
	val, fc, err := c.variant(v)
	if err != nil {
		return err
	}
	w.Int32(int32(val.Index + 1))
	return fc.write(w, val.Fields, c.name+"."+c.variants[val.Index].Name)
}

func (c *enumCodec) Read(r *Reader) (any, error) {
	disc, err := r.Int32()
	if err != nil {
		return nil, err
	}
	idx := int(disc) - 1
	if idx < 0 || idx >= len(c.variants) {
		return nil, errs.New(errs.PhaseDecode, errs.KindInvalidEnum).
			Path(c.name).
			Detail("unknown discriminant %d", disc).Build()
	}
	fields, err := fieldsCodec{fields: c.variants[idx].Fields}.read(r)
	if err != nil {
		return nil, err
	}
	return Variant{Index: idx, Fields: fields}, nil
}

func (c *enumCodec) AllocationSize(v any) (int, error) {
	val, fc, err := c.variant(v)
	if err != nil {
		return 0, err
	}
	n, err := fc.size(val.Fields)
	return 4 + n, err
}

func (c *enumCodec) FixedSize() (int, bool) {
	size := -1
	for _, vc := range c.variants {
		n, ok := fieldsCodec{fields: vc.Fields}.fixedSize()
		if !ok || (size >= 0 && n != size) {
			return 0, false
		}
		size = n
	}
	if size < 0 {
		return 0, false
	}
	return 4 + size, true
}

// VariantName returns the declared name of the variant at index.
func (c *enumCodec) VariantName(index int) string {
	if index < 0 || index >= len(c.variants) {
		return ""
	}
	return c.variants[index].Name
}

type customCodec struct {
	name    string
	builtin Codec
	lift    func(any) (any, error)
	lower   func(any) (any, error)
}

// Custom delegates to the builtin codec after converting with lower, and
// converts values read by the builtin with lift. Nil conversions are the
// identity.
func Custom(name string, builtin Codec, lift, lower func(any) (any, error)) Codec {
	identity := func(v any) (any, error) { return v, nil }
	if lift == nil {
		lift = identity
	}
	if lower == nil {
		lower = identity
	}
	return &customCodec{name: name, builtin: builtin, lift: lift, lower: lower}
}

func (c *customCodec) Name() string { return c.name }

func (c *customCodec) Write(w *Writer, v any) error {
	b, err := c.lower(v)
	if err != nil {
		return errs.Wrap(errs.PhaseEncode, errs.KindInvalidInput, err, "lowering "+c.name)
	}
	return c.builtin.Write(w, b)
}

func (c *customCodec) Read(r *Reader) (any, error) {
	b, err := c.builtin.Read(r)
	if err != nil {
		return nil, err
	}
	v, err := c.lift(b)
	if err != nil {
		return nil, errs.Wrap(errs.PhaseDecode, errs.KindInvalidInput, err, "lifting "+c.name)
	}
	return v, nil
}

func (c *customCodec) AllocationSize(v any) (int, error) {
	b, err := c.lower(v)
	if err != nil {
		return 0, err
	}
	return c.builtin.AllocationSize(b)
}

func (c *customCodec) FixedSize() (int, bool) { return c.builtin.FixedSize() }

// Describe renders a decoded value for diagnostics.
func Describe(c Codec, v any) string {
	var b strings.Builder
	b.WriteString(c.Name())
	if e, ok := c.(*enumCodec); ok {
		if val, ok := v.(Variant); ok {
			b.WriteString("::")
			b.WriteString(e.VariantName(val.Index))
		}
	}
	return b.String()
}
