package codetype

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

// numeric describes a fixed-width number read with ByteData accessors.
type numeric struct {
	label    string
	accessor string
	ffi      FfiType
	codec    wire.Codec
	float    bool
	min      int64
	max      uint64
}

var numerics = map[idl.Kind]numeric{
	idl.KindInt8:    {"int", "Int8", FfiInt8, wire.Int8, false, math.MinInt8, math.MaxInt8},
	idl.KindUInt8:   {"int", "Uint8", FfiUint8, wire.UInt8, false, 0, math.MaxUint8},
	idl.KindInt16:   {"int", "Int16", FfiInt16, wire.Int16, false, math.MinInt16, math.MaxInt16},
	idl.KindUInt16:  {"int", "Uint16", FfiUint16, wire.UInt16, false, 0, math.MaxUint16},
	idl.KindInt32:   {"int", "Int32", FfiInt32, wire.Int32, false, math.MinInt32, math.MaxInt32},
	idl.KindUInt32:  {"int", "Uint32", FfiUint32, wire.UInt32, false, 0, math.MaxUint32},
	idl.KindInt64:   {"int", "Int64", FfiInt64, wire.Int64, false, math.MinInt64, math.MaxInt64},
	idl.KindUInt64:  {"int", "Uint64", FfiUint64, wire.UInt64, false, 0, math.MaxUint64},
	idl.KindFloat32: {"double", "Float32", FfiFloat, wire.Float32, true, 0, 0},
	idl.KindFloat64: {"double", "Float64", FfiDouble, wire.Float64, true, 0, 0},
}

type primitive struct {
	base
}

func newPrimitive(t *idl.Type) CodeType {
	return &primitive{base{t}}
}

func (p *primitive) TypeLabel() string {
	switch p.t.Kind {
	case idl.KindBool:
		return "bool"
	case idl.KindString:
		return "String"
	case idl.KindBytes:
		return "Uint8List"
	case idl.KindTimestamp:
		return "DateTime"
	case idl.KindDuration:
		return "Duration"
	default:
		return numerics[p.t.Kind].label
	}
}

func (p *primitive) Ffi() FfiType {
	switch p.t.Kind {
	case idl.KindBool:
		return FfiInt8
	case idl.KindString, idl.KindBytes, idl.KindTimestamp, idl.KindDuration:
		return FfiRustBuffer
	default:
		return numerics[p.t.Kind].ffi
	}
}

// Numbers pass through the boundary unchanged.
func (p *primitive) Lift(expr string) string {
	if _, ok := numerics[p.t.Kind]; ok {
		return expr
	}
	return p.base.Lift(expr)
}

func (p *primitive) Lower(expr string) string {
	if _, ok := numerics[p.t.Kind]; ok {
		return expr
	}
	return p.base.Lower(expr)
}

func (p *primitive) Codec() wire.Codec {
	switch p.t.Kind {
	case idl.KindBool:
		return wire.Bool
	case idl.KindString:
		return wire.String
	case idl.KindBytes:
		return wire.Bytes
	case idl.KindTimestamp:
		return wire.Timestamp
	case idl.KindDuration:
		return wire.Duration
	default:
		return numerics[p.t.Kind].codec
	}
}

func (p *primitive) Literal(v any) (string, error) {
	switch p.t.Kind {
	case idl.KindBool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	case idl.KindString:
		if s, ok := v.(string); ok {
			return DartString(s), nil
		}
	case idl.KindBytes, idl.KindTimestamp, idl.KindDuration:
		return p.noLiteral(v)
	default:
		return numericLiteral(p.t, numerics[p.t.Kind], v)
	}
	return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
		Detail("default %v (%T) does not fit %s", v, v, p.t).Build()
}

func numericLiteral(t *idl.Type, n numeric, v any) (string, error) {
	var f float64
	var exact *big.Int
	switch x := v.(type) {
	case int:
		f, exact = float64(x), big.NewInt(int64(x))
	case int64:
		f, exact = float64(x), big.NewInt(x)
	case uint64:
		f, exact = float64(x), new(big.Int).SetUint64(x)
	case float64:
		f = x
	default:
		return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
			Detail("default %v (%T) is not a number for %s", v, v, t).Build()
	}

	if n.float {
		switch {
		case math.IsNaN(f):
			return "double.nan", nil
		case math.IsInf(f, 1):
			return "double.infinity", nil
		case math.IsInf(f, -1):
			return "double.negativeInfinity", nil
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, nil
	}

	if exact == nil {
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
			return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
				Detail("default %v does not fit %s", v, t).Build()
		}
		exact, _ = big.NewFloat(f).Int(nil)
	}
	// Bounds are compared as exact integers: float64 rounds MaxInt64 up.
	if exact.Cmp(big.NewInt(n.min)) < 0 || exact.Cmp(new(big.Int).SetUint64(n.max)) > 0 {
		return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
			Detail("default %v does not fit %s", v, t).Build()
	}
	// Dart ints are signed 64-bit; larger u64 constants wrap.
	if !exact.IsInt64() {
		return strconv.FormatInt(int64(exact.Uint64()), 10), nil
	}
	return exact.String(), nil
}

// DartString quotes s as a Dart single-quoted string literal.
func DartString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '$':
			b.WriteString(`\$`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u{%x}`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func (p *primitive) Render(b *strings.Builder) error {
	name := p.ConverterName()
	switch p.t.Kind {
	case idl.KindBool:
		renderBool(b, name)
	case idl.KindString:
		renderString(b, name)
	case idl.KindBytes:
		renderBytes(b, name)
	case idl.KindTimestamp:
		renderTimestamp(b, name)
	case idl.KindDuration:
		renderDuration(b, name)
	default:
		renderNumeric(b, name, numerics[p.t.Kind])
	}
	return nil
}

func renderNumeric(b *strings.Builder, name string, n numeric) {
	size, _ := n.codec.FixedSize()
	zero := "0"
	if n.float {
		zero = "0.0"
	}
	fmt.Fprintf(b, "class %s {\n", name)
	fmt.Fprintf(b, "  static %s lift(%s value) => value;\n\n", n.label, n.label)
	fmt.Fprintf(b, "  static %s lower(%s value) => value;\n\n", n.label, n.label)
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", n.label)
	fmt.Fprintf(b, "    return LiftRetVal(buf.buffer.asByteData(buf.offsetInBytes).get%s(0), %d);\n", n.accessor, size)
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", n.label)
	fmt.Fprintf(b, "    buf.buffer.asByteData(buf.offsetInBytes).set%s(0, value);\n", n.accessor)
	fmt.Fprintf(b, "    return %d;\n", size)
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize([%s value = %s]) {\n", n.label, zero)
	fmt.Fprintf(b, "    return %d;\n", size)
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

func renderBool(b *strings.Builder, name string) {
	fmt.Fprintf(b, "class %s {\n", name)
	b.WriteString("  static bool lift(int value) => value != 0;\n\n")
	b.WriteString("  static int lower(bool value) => value ? 1 : 0;\n\n")
	b.WriteString("  static LiftRetVal<bool> read(Uint8List buf) {\n")
	fmt.Fprintf(b, "    return LiftRetVal(%s.lift(buf.first), 1);\n", name)
	b.WriteString("  }\n\n")
	b.WriteString("  static int write(bool value, Uint8List buf) {\n")
	b.WriteString("    buf[0] = lower(value);\n")
	b.WriteString("    return 1;\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int allocationSize([bool value = false]) {\n")
	b.WriteString("    return 1;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

// A top-level string is a RustBuffer of raw UTF-8; nested strings carry an
// i32 length prefix.
func renderString(b *strings.Builder, name string) {
	fmt.Fprintf(b, "class %s {\n", name)
	b.WriteString("  static String lift(RustBuffer buf) {\n")
	b.WriteString("    try {\n")
	b.WriteString("      return utf8.decoder.convert(buf.asUint8List());\n")
	b.WriteString("    } finally {\n")
	b.WriteString("      buf.free();\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static RustBuffer lower(String value) {\n")
	b.WriteString("    return toRustBuffer(utf8.encoder.convert(value));\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static LiftRetVal<String> read(Uint8List buf) {\n")
	b.WriteString("    final end = buf.buffer.asByteData(buf.offsetInBytes).getInt32(0) + 4;\n")
	b.WriteString("    return LiftRetVal(utf8.decoder.convert(buf, 4, end), end);\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int write(String value, Uint8List buf) {\n")
	b.WriteString("    final list = utf8.encoder.convert(value);\n")
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setInt32(0, list.length);\n")
	b.WriteString("    buf.setAll(4, list);\n")
	b.WriteString("    return list.length + 4;\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int allocationSize([String value = \"\"]) {\n")
	b.WriteString("    return utf8.encoder.convert(value).length + 4;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

func renderBytes(b *strings.Builder, name string) {
	fmt.Fprintf(b, "class %s {\n", name)
	writeBufferLiftLower(b, "Uint8List")
	b.WriteString("  static LiftRetVal<Uint8List> read(Uint8List buf) {\n")
	b.WriteString("    final length = buf.buffer.asByteData(buf.offsetInBytes).getInt32(0);\n")
	b.WriteString("    return LiftRetVal(Uint8List.fromList(buf.sublist(4, 4 + length)), length + 4);\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int write(Uint8List value, Uint8List buf) {\n")
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setInt32(0, value.length);\n")
	b.WriteString("    buf.setAll(4, value);\n")
	b.WriteString("    return value.length + 4;\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int allocationSize(Uint8List value) {\n")
	b.WriteString("    return value.length + 4;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

// Timestamps are i64 seconds and u32 nanoseconds relative to the epoch;
// before the epoch both hold magnitudes and the seconds carry the sign.
func renderTimestamp(b *strings.Builder, name string) {
	fmt.Fprintf(b, "class %s {\n", name)
	writeBufferLiftLower(b, "DateTime")
	b.WriteString("  static LiftRetVal<DateTime> read(Uint8List buf) {\n")
	b.WriteString("    final data = buf.buffer.asByteData(buf.offsetInBytes);\n")
	b.WriteString("    final seconds = data.getInt64(0);\n")
	b.WriteString("    final micros = data.getUint32(8) ~/ 1000;\n")
	b.WriteString("    final total = seconds >= 0 ? seconds * 1000000 + micros : seconds * 1000000 - micros;\n")
	b.WriteString("    return LiftRetVal(DateTime.fromMicrosecondsSinceEpoch(total, isUtc: true), 12);\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int write(DateTime value, Uint8List buf) {\n")
	b.WriteString("    final data = buf.buffer.asByteData(buf.offsetInBytes);\n")
	b.WriteString("    final micros = value.microsecondsSinceEpoch;\n")
	b.WriteString("    final magnitude = micros.abs();\n")
	b.WriteString("    final seconds = magnitude ~/ 1000000;\n")
	b.WriteString("    data.setInt64(0, micros < 0 ? -seconds : seconds);\n")
	b.WriteString("    data.setUint32(8, (magnitude % 1000000) * 1000);\n")
	b.WriteString("    return 12;\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int allocationSize([DateTime? value]) {\n")
	b.WriteString("    return 12;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

func renderDuration(b *strings.Builder, name string) {
	fmt.Fprintf(b, "class %s {\n", name)
	writeBufferLiftLower(b, "Duration")
	b.WriteString("  static LiftRetVal<Duration> read(Uint8List buf) {\n")
	b.WriteString("    final data = buf.buffer.asByteData(buf.offsetInBytes);\n")
	b.WriteString("    final seconds = data.getUint64(0);\n")
	b.WriteString("    final micros = data.getUint32(8) ~/ 1000;\n")
	b.WriteString("    return LiftRetVal(Duration(microseconds: seconds * 1000000 + micros), 12);\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int write(Duration value, Uint8List buf) {\n")
	b.WriteString("    if (value.isNegative) {\n")
	b.WriteString("      throw ArgumentError.value(value, 'value', 'negative durations cannot cross the boundary');\n")
	b.WriteString("    }\n")
	b.WriteString("    final data = buf.buffer.asByteData(buf.offsetInBytes);\n")
	b.WriteString("    data.setUint64(0, value.inSeconds);\n")
	b.WriteString("    data.setUint32(8, (value.inMicroseconds % 1000000) * 1000);\n")
	b.WriteString("    return 12;\n")
	b.WriteString("  }\n\n")
	b.WriteString("  static int allocationSize([Duration? value]) {\n")
	b.WriteString("    return 12;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}
