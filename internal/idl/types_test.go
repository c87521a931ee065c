package idl

import "testing"

func TestParseType(t *testing.T) {
	person := &Type{Kind: KindRecord, Name: "Person"}
	lookup := func(name string) (*Type, bool) {
		if name == "Person" {
			return person, true
		}
		return nil, false
	}

	tests := []struct {
		src       string
		canonical string
		text      string
	}{
		{"u32", "UInt32", "u32"},
		{"f32", "Float", "f32"},
		{"f64", "Double", "f64"},
		{"string", "String", "string"},
		{"sequence<string>", "SequenceString", "sequence<string>"},
		{"optional<Person>", "OptionalTypePerson", "optional<Person>"},
		{"Person?", "OptionalTypePerson", "optional<Person>"},
		{"map<string, i64>", "MapStringInt64", "map<string, i64>"},
		{"record<u8,sequence<Person?>>", "MapUInt8SequenceOptionalTypePerson", "map<u8, sequence<optional<Person>>>"},
		{"optional<optional<bool>>", "OptionalOptionalBool", "optional<optional<bool>>"},
		{"timestamp", "Timestamp", "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			typ, err := ParseType(tt.src, lookup)
			if err != nil {
				t.Fatalf("ParseType(%q) failed: %v", tt.src, err)
			}
			if got := typ.CanonicalName(); got != tt.canonical {
				t.Errorf("CanonicalName() = %q, want %q", got, tt.canonical)
			}
			if got := typ.String(); got != tt.text {
				t.Errorf("String() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, src := range []string{"", "sequence<", "map<string>", "u32 u8", "sequence<Nope>", "optional<u8"} {
		if _, err := ParseType(src, nil); err == nil {
			t.Errorf("ParseType(%q) should fail", src)
		}
	}
}

func TestCallbackCanonicalName(t *testing.T) {
	cb := &Type{Kind: KindCallbackInterface, Name: "Greeter"}
	if got := cb.CanonicalName(); got != "CallbackInterfaceGreeter" {
		t.Errorf("got %q", got)
	}
	obj := &Type{Kind: KindObject, Name: "Greeter"}
	if cb.CanonicalName() == obj.CanonicalName() {
		t.Error("callback and object canonical names must differ")
	}
}

func TestWalkOrder(t *testing.T) {
	typ, err := ParseType("map<string, sequence<u8>>", nil)
	if err != nil {
		t.Fatal(err)
	}
	var kinds []Kind
	typ.Walk(func(n *Type) { kinds = append(kinds, n.Kind) })
	want := []Kind{KindMap, KindString, KindSequence, KindUInt8}
	if len(kinds) != len(want) {
		t.Fatalf("walk visited %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("step %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
}
