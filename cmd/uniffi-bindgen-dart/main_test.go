package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/uniffi-bindgen-dart/internal/testfixtures"
)

// writeFixture lays out a fixture as a project: the interface file in
// src/ and the configuration, if any, at the project root.
func writeFixture(t *testing.T, name string) (root, iface string) {
	t.Helper()
	fx := testfixtures.MustGet(name)
	root = t.TempDir()
	iface = filepath.Join(root, "src", name+".yaml")
	if err := os.MkdirAll(filepath.Dir(iface), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(iface, fx.Interface, 0o644); err != nil {
		t.Fatal(err)
	}
	if fx.Config != nil {
		if err := os.WriteFile(filepath.Join(root, "uniffi.toml"), fx.Config, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root, iface
}

func TestGenerateFindsConfiguration(t *testing.T) {
	root, iface := writeFixture(t, "kitchen_sink")
	out := filepath.Join(root, "lib")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"generate", "-no-format", "-out-dir", out, iface}, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(out, "kitchen_sink.dart"))
	if err != nil {
		t.Fatalf("bindings not written: %v", err)
	}
	if !strings.Contains(string(data), "library kitchen;") {
		t.Errorf("configuration from uniffi.toml was not applied")
	}
}

func TestGenerateExplicitConfig(t *testing.T) {
	root, iface := writeFixture(t, "proc_macro_pure")
	cfgPath := filepath.Join(root, "other.toml")
	if err := os.WriteFile(cfgPath, []byte("[bindings.dart]\npackage_name = \"custom_pkg\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(root, "lib")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"generate", "-no-format", "-config", cfgPath, "-out-dir", out, iface}, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(out, "proc_macro_pure.dart"))
	if err != nil {
		t.Fatalf("bindings not written: %v", err)
	}
	if !strings.Contains(string(data), "library custom_pkg;") {
		t.Errorf("explicit configuration was not applied")
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"build"}, 2},
		{"no interface files", []string{"generate"}, 2},
		{"bad flag", []string{"generate", "-bogus", "x.yaml"}, 2},
		{"missing interface file", []string{"generate", "-no-format", filepath.Join(t.TempDir(), "missing.yaml")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stderr); code != tt.code {
				t.Errorf("exit code = %d, want %d; stderr:\n%s", code, tt.code, stderr.String())
			}
		})
	}
}

func TestHelp(t *testing.T) {
	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"help"}, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "-out-dir") {
		t.Errorf("help does not list flags:\n%s", stderr.String())
	}
}
