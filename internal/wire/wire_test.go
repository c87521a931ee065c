package wire

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

func roundTrip(t *testing.T, c Codec, v any) any {
	t.Helper()
	data, err := lower(c, v)
	if err != nil {
		t.Fatalf("%s: lower(%v) failed: %v", c.Name(), v, err)
	}
	size, err := c.AllocationSize(v)
	if err != nil {
		t.Fatalf("%s: AllocationSize failed: %v", c.Name(), err)
	}
	if len(data) > size {
		t.Errorf("%s: wrote %d bytes, AllocationSize promised at most %d", c.Name(), len(data), size)
	}
	got, n, err := readValue(c, data)
	if err != nil {
		t.Fatalf("%s: read failed: %v", c.Name(), err)
	}
	if n != len(data) {
		t.Errorf("%s: read consumed %d of %d bytes", c.Name(), n, len(data))
	}
	return got
}

func TestPrimitiveRoundTrip(t *testing.T) {
	tests := []struct {
		codec Codec
		value any
		size  int
	}{
		{Bool, true, 1},
		{Bool, false, 1},
		{Int8, int8(math.MinInt8), 1},
		{UInt8, uint8(math.MaxUint8), 1},
		{Int16, int16(-1234), 2},
		{UInt16, uint16(65000), 2},
		{Int32, int32(math.MinInt32), 4},
		{UInt32, uint32(math.MaxUint32), 4},
		{Int64, int64(math.MinInt64), 8},
		{UInt64, uint64(math.MaxUint64), 8},
		{Float32, float32(3.5), 4},
		{Float64, math.Inf(-1), 8},
		{String, "", 4},
		{String, "héllo", 10},
		{Bytes, []byte{}, 4},
		{Bytes, []byte{0, 1, 2, 255}, 8},
		{Duration, 90*time.Second + 5, 12},
	}
	for _, tt := range tests {
		t.Run(tt.codec.Name(), func(t *testing.T) {
			data, err := lower(tt.codec, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if len(data) != tt.size {
				t.Errorf("encoded size = %d, want %d", len(data), tt.size)
			}
			if got := roundTrip(t, tt.codec, tt.value); !reflect.DeepEqual(got, tt.value) {
				t.Errorf("round trip: got %#v, want %#v", got, tt.value)
			}
		})
	}
}

func TestBigEndianLayout(t *testing.T) {
	data, _ := lower(Int32, int32(0x01020304))
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Errorf("i32 layout = % x", data)
	}
	data, _ = lower(UInt16, uint16(0xBEEF))
	if !bytes.Equal(data, []byte{0xBE, 0xEF}) {
		t.Errorf("u16 layout = % x", data)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, ts := range []time.Time{
		time.Unix(0, 0).UTC(),
		time.Unix(1700000000, 123456789).UTC(),
		time.Unix(-1, -500000000).UTC(),
		time.Date(1900, 1, 1, 0, 0, 0, 42, time.UTC),
	} {
		got := roundTrip(t, Timestamp, ts).(time.Time)
		if !got.Equal(ts) {
			t.Errorf("round trip %v: got %v", ts, got)
		}
	}

	data, _ := lower(Timestamp, time.Unix(-1, -500000000))
	secs := int64(bytesToUint64(data[:8]))
	nanos := uint32(data[8])<<24 | uint32(data[9])<<16 | uint32(data[10])<<8 | uint32(data[11])
	if secs != -1 || nanos != 500000000 {
		t.Errorf("pre-epoch layout: secs=%d nanos=%d", secs, nanos)
	}
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func TestNegativeDurationRejected(t *testing.T) {
	if _, err := lower(Duration, -time.Second); err == nil {
		t.Error("negative durations cannot be encoded")
	}
}

func TestListOfStringsLayout(t *testing.T) {
	data, err := lower(List(String), []any{"", "ab", "xyz"})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0, 0, 0, 3,
		0, 0, 0, 0,
		0, 0, 0, 2, 'a', 'b',
		0, 0, 0, 3, 'x', 'y', 'z',
	}
	if !bytes.Equal(data, want) {
		t.Errorf("layout:\n got % x\nwant % x", data, want)
	}
}

func TestCompoundRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		value any
	}{
		{"empty list", List(Int32), []any{}},
		{"list of lists", List(List(UInt8)), []any{[]any{uint8(1)}, []any{}, []any{uint8(2), uint8(3)}}},
		{"absent", Optional(String), nil},
		{"present", Optional(String), "x"},
		{"nested absent inner", Optional(Optional(Bool)), Some{}},
		{"nested present", Optional(Optional(Bool)), true},
		{"map order", Map(String, Int64), []Entry{{"z", int64(1)}, {"a", int64(2)}, {"m", int64(3)}}},
		{"empty map", Map(String, Bytes), []Entry{}},
		{"map of optional", Map(UInt32, Optional(Float64)), []Entry{{uint32(1), nil}, {uint32(2), 2.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundTrip(t, tt.codec, tt.value); !reflect.DeepEqual(got, tt.value) {
				t.Errorf("got %#v, want %#v", got, tt.value)
			}
		})
	}
}

func TestOptionalFlagByte(t *testing.T) {
	data, _ := lower(Optional(UInt8), uint8(7))
	if !bytes.Equal(data, []byte{1, 7}) {
		t.Errorf("present layout = % x", data)
	}
	data, _ = lower(Optional(UInt8), nil)
	if !bytes.Equal(data, []byte{0}) {
		t.Errorf("absent layout = % x", data)
	}
	if _, err := lift(Optional(UInt8), []byte{2, 7}); err == nil {
		t.Error("flag 2 must be rejected")
	}
}

var point = Record("Point", Field{"x", Float64}, Field{"y", Float64})

var shape = Enum("Shape",
	VariantCase{Name: "Circle", Fields: []Field{{"radius", Float64}}},
	VariantCase{Name: "Rectangle", Fields: []Field{{"top_left", point}, {"bottom_right", point}}},
	VariantCase{Name: "Nothing"},
)

func TestRecordAndEnumRoundTrip(t *testing.T) {
	p := []any{1.5, -2.0}
	if got := roundTrip(t, point, p); !reflect.DeepEqual(got, p) {
		t.Errorf("record: got %#v", got)
	}
	if size, ok := point.FixedSize(); !ok || size != 16 {
		t.Errorf("Point fixed size = %d, %v", size, ok)
	}

	values := []Variant{
		{Index: 0, Fields: []any{3.0}},
		{Index: 1, Fields: []any{[]any{0.0, 1.0}, []any{2.0, 3.0}}},
		{Index: 2, Fields: []any{}},
	}
	for _, v := range values {
		if got := roundTrip(t, shape, v); !reflect.DeepEqual(got, v) {
			t.Errorf("enum: got %#v, want %#v", got, v)
		}
	}
}

func TestEnumDiscriminantIsOneBased(t *testing.T) {
	data, _ := lower(shape, Variant{Index: 2})
	if !bytes.Equal(data, []byte{0, 0, 0, 3}) {
		t.Errorf("Nothing layout = % x", data)
	}
	if _, err := lift(shape, []byte{0, 0, 0, 0}); !errors.Is(err, &errs.Error{Phase: errs.PhaseDecode, Kind: errs.KindInvalidEnum}) {
		t.Errorf("discriminant 0 must be rejected, got %v", err)
	}
	if _, err := lift(shape, []byte{0, 0, 0, 9}); err == nil {
		t.Error("unknown discriminant must be rejected")
	}
}

func TestFlatEnumFixedSize(t *testing.T) {
	level := Enum("Level", VariantCase{Name: "Low"}, VariantCase{Name: "High"})
	if size, ok := level.FixedSize(); !ok || size != 4 {
		t.Errorf("flat enum fixed size = %d, %v", size, ok)
	}
	if _, ok := shape.FixedSize(); ok {
		t.Error("Shape variants differ in size")
	}
}

func TestCustomDelegatesToBuiltin(t *testing.T) {
	type url struct{ raw string }
	c := Custom("Url", String,
		func(v any) (any, error) { return url{v.(string)}, nil },
		func(v any) (any, error) { return v.(url).raw, nil },
	)
	data, err := lower(c, url{"https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	direct, _ := lower(String, "https://example.com")
	if !bytes.Equal(data, direct) {
		t.Error("custom type must share the builtin layout")
	}
	if got := roundTrip(t, c, url{"a"}); got != (url{"a"}) {
		t.Errorf("got %#v", got)
	}
}

func TestTruncatedInput(t *testing.T) {
	data, _ := lower(List(String), []any{"abc"})
	for cut := 0; cut < len(data); cut++ {
		_, err := lift(List(String), data[:cut])
		if !errors.Is(err, &errs.Error{Phase: errs.PhaseDecode, Kind: errs.KindOutOfBounds}) {
			t.Errorf("cut at %d: expected out of bounds, got %v", cut, err)
		}
	}
	if _, err := lift(UInt8, []byte{1, 2}); err == nil {
		t.Error("trailing bytes must be rejected")
	}
}

func TestTypeMismatch(t *testing.T) {
	if _, err := lower(Int32, 5); !errors.Is(err, &errs.Error{Phase: errs.PhaseEncode, Kind: errs.KindTypeMismatch}) {
		t.Errorf("int is not int32: %v", err)
	}
	if _, err := lower(point, []any{1.0}); err == nil {
		t.Error("wrong field count must fail")
	}
}

func TestTopLevelStringHasNoPrefix(t *testing.T) {
	if got := lowerString("hi"); !bytes.Equal(got, []byte("hi")) {
		t.Errorf("lowerString = % x", got)
	}
	s, err := liftString([]byte("hi"))
	if err != nil || s != "hi" {
		t.Errorf("liftString = %q, %v", s, err)
	}
	if _, err := liftString([]byte{0xff}); err == nil {
		t.Error("invalid UTF-8 must fail")
	}
}

type countingOwner struct {
	clones atomic.Int64
	frees  atomic.Int64
}

func (o *countingOwner) CloneHandle(h uint64) uint64 {
	o.clones.Add(1)
	return h
}

func (o *countingOwner) FreeHandle(uint64) {
	o.frees.Add(1)
}

func TestObjectHandleLifecycle(t *testing.T) {
	owner := &countingOwner{}
	c := Object("Counter", owner)

	v, err := lift(c, []byte{0, 0, 0, 0, 0, 0, 0x10, 0})
	if err != nil {
		t.Fatal(err)
	}
	h := v.(*Handle)

	data, err := lower(c, h)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8 || owner.clones.Load() != 1 {
		t.Errorf("lower must clone once and write 8 bytes: %d bytes, %d clones", len(data), owner.clones.Load())
	}

	h.Release()
	h.Release()
	if owner.frees.Load() != 1 {
		t.Errorf("free called %d times", owner.frees.Load())
	}

	_, err = lower(c, h)
	if !errors.Is(err, &errs.Error{Phase: errs.PhaseEncode, Kind: errs.KindReleased}) {
		t.Errorf("lowering a released handle must fail, got %v", err)
	}
}

func TestConcurrentReleaseFreesOnce(t *testing.T) {
	owner := &countingOwner{}
	h := NewHandle(owner, 2)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Clone()
			h.Release()
		}()
	}
	wg.Wait()
	if owner.frees.Load() != 1 {
		t.Errorf("free called %d times", owner.frees.Load())
	}
}

func TestHandleMapOddHandles(t *testing.T) {
	m := NewHandleMap()
	a := m.Insert("a")
	b := m.Insert("b")
	if a != 1 || b != 3 {
		t.Errorf("handles = %d, %d", a, b)
	}
	c, err := m.Clone(a)
	if err != nil || c != 5 {
		t.Errorf("clone = %d, %v", c, err)
	}
	if v, _ := m.Remove(a); v != "a" {
		t.Errorf("Remove returned %v", v)
	}
	if _, err := m.Get(a); err == nil {
		t.Error("removed handle must be unknown")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestCallbackInterfaceCodec(t *testing.T) {
	owner := &countingOwner{}
	handles := NewHandleMap()
	c := CallbackInterface("Greeter", handles, owner)

	type greeter struct{ phrase string }
	impl := &greeter{"hi"}
	data, err := lower(c, impl)
	if err != nil {
		t.Fatal(err)
	}
	if data[7]&1 != 1 {
		t.Errorf("foreign implementations use odd handles: % x", data)
	}
	got, err := lift(c, data)
	if err != nil {
		t.Fatal(err)
	}
	if got != impl {
		t.Errorf("odd handle must resolve to the stored implementation")
	}

	native, err := lift(c, []byte{0, 0, 0, 0, 0, 0, 0, 8})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := native.(*Handle); !ok {
		t.Errorf("even handle must lift to a proxy, got %T", native)
	}
}

var storeError = Enum("StoreError",
	VariantCase{Name: "NotFound", Fields: []Field{{"key", String}}},
	VariantCase{Name: "Full", Fields: []Field{{"capacity", UInt32}}},
)

func TestCheckCallStatus(t *testing.T) {
	if err := checkCallStatus(callStatus{Code: callSuccess}, nil); err != nil {
		t.Errorf("success: %v", err)
	}

	payload, _ := lower(storeError, Variant{Index: 0, Fields: []any{"k"}})
	err := checkCallStatus(callStatus{Code: callErrorCode, ErrorBuf: payload}, storeError)
	var callErr *callError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *callError, got %T: %v", err, err)
	}
	want := Variant{Index: 0, Fields: []any{"k"}}
	if !reflect.DeepEqual(callErr.Value, want) {
		t.Errorf("error value = %#v", callErr.Value)
	}

	err = checkCallStatus(callStatus{Code: callUnexpectedErr, ErrorBuf: lowerString("boom")}, storeError)
	var panicErr *panicError
	if !errors.As(err, &panicErr) || !strings.Contains(err.Error(), "boom") {
		t.Errorf("panic must carry the message, got %v", err)
	}

	if err := checkCallStatus(callStatus{Code: callErrorCode, ErrorBuf: payload}, nil); err == nil {
		t.Error("error status without an error type must fail")
	}
	if err := checkCallStatus(callStatus{Code: 7}, nil); err == nil {
		t.Error("unknown status code must fail")
	}
}
