package naming

import "testing"

func TestCaseConversion(t *testing.T) {
	tests := []struct {
		in, upper, lower, snake string
	}{
		{"proc_macro_pure", "ProcMacroPure", "procMacroPure", "proc_macro_pure"},
		{"get_value", "GetValue", "getValue", "get_value"},
		{"FriendlyGreeter", "FriendlyGreeter", "friendlyGreeter", "friendly_greeter"},
		{"HTTPServer", "HttpServer", "httpServer", "http_server"},
		{"user-status", "UserStatus", "userStatus", "user_status"},
		{"sha256_digest", "Sha256Digest", "sha256Digest", "sha256_digest"},
		{"x", "X", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := UpperCamel(tt.in); got != tt.upper {
				t.Errorf("UpperCamel = %q, want %q", got, tt.upper)
			}
			if got := LowerCamel(tt.in); got != tt.lower {
				t.Errorf("LowerCamel = %q, want %q", got, tt.lower)
			}
			if got := Snake(tt.in); got != tt.snake {
				t.Errorf("Snake = %q, want %q", got, tt.snake)
			}
		})
	}
}

func TestEscape(t *testing.T) {
	tests := map[string]string{
		"class":   "class_",
		"default": "default_",
		"in":      "in_",
		"value":   "value",
		"2fa":     "v2fa",
		"":        "_",
	}
	for in, want := range tests {
		if got := Escape(in); got != want {
			t.Errorf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
	if got := VarName("is"); got != "is_" {
		t.Errorf("VarName(is) = %q", got)
	}
}

func TestConversionIsIdempotent(t *testing.T) {
	for _, in := range []string{"get_value", "HTTPServer", "FriendlyGreeter", "status2"} {
		once := ClassName(in)
		if twice := ClassName(once); twice != once {
			t.Errorf("ClassName not idempotent on %q: %q then %q", in, once, twice)
		}
		fn := FunctionName(in)
		if twice := FunctionName(fn); twice != fn {
			t.Errorf("FunctionName not idempotent on %q: %q then %q", in, fn, twice)
		}
	}
}

func TestOracleCollisionFree(t *testing.T) {
	o := New()

	first := o.Function("get_value")
	second := o.Function("getValue")
	third := o.Function("GET_VALUE")
	if first != "getValue" || second != "getValue2" || third != "getValue3" {
		t.Errorf("got %q %q %q", first, second, third)
	}

	// Same source twice yields the same identifier.
	if again := o.Function("getValue"); again != second {
		t.Errorf("repeated claim returned %q, want %q", again, second)
	}

	// Runtime helpers are pre-claimed.
	if got := o.Class("rust_buffer"); got != "RustBuffer2" {
		t.Errorf("Class(rust_buffer) = %q", got)
	}
}

func TestOracleMemberScopes(t *testing.T) {
	o := New()
	a := o.Member("Counter", "value")
	b := o.Member("Person", "value")
	if a != "value" || b != "value" {
		t.Errorf("member scopes must be independent: %q %q", a, b)
	}
	if got := o.Member("Counter", "dispose"); got != "dispose2" {
		t.Errorf("dispose should be taken in object scopes, got %q", got)
	}
	if got := o.Variant("Level", "values"); got != "values2" {
		t.Errorf("Variant(values) = %q", got)
	}
	if got := o.Variant("Level", "High"); got != "high" {
		t.Errorf("Variant(High) = %q", got)
	}
}

func TestOracleVariantClassKeyedApart(t *testing.T) {
	o := New()
	declared := o.Class("Shape_Circle")
	variant := o.VariantClass("Shape", "Circle")
	if declared != "ShapeCircle" || variant != "ShapeCircle2" {
		t.Errorf("got %q and %q", declared, variant)
	}
	if again := o.VariantClass("Shape", "Circle"); again != variant {
		t.Errorf("repeated claim returned %q", again)
	}
}

func TestOracleDistinctInputsDistinctOutputs(t *testing.T) {
	o := New()
	inputs := []string{"a_b", "aB", "AB", "a__b", "ab", "Ab", "class", "class_"}
	seen := make(map[string]string)
	for _, in := range inputs {
		out := o.Function(in)
		if prev, dup := seen[out]; dup {
			t.Errorf("%q and %q both map to %q", prev, in, out)
		}
		seen[out] = in
	}
}
