// Package testfixtures provides the interface descriptions shared by the
// generator's tests. Each fixture is a txtar archive holding an
// interface.yaml and an optional uniffi.toml.
package testfixtures

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"
)

//go:embed data/*.txtar
var data embed.FS

// Fixture is one parsed archive.
type Fixture struct {
	Name      string
	Comment   string
	Interface []byte
	Config    []byte
}

// Names lists the available fixtures.
func Names() []string {
	entries, err := data.ReadDir("data")
	if err != nil {
		panic(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".txtar"))
	}
	sort.Strings(names)
	return names
}

// Get returns the named fixture.
func Get(name string) (*Fixture, error) {
	raw, err := data.ReadFile("data/" + name + ".txtar")
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", name, err)
	}
	ar := txtar.Parse(raw)
	fx := &Fixture{Name: name, Comment: strings.TrimSpace(string(ar.Comment))}
	for _, f := range ar.Files {
		switch f.Name {
		case "interface.yaml":
			fx.Interface = f.Data
		case "uniffi.toml":
			fx.Config = f.Data
		default:
			return nil, fmt.Errorf("fixture %s: unexpected file %s", name, f.Name)
		}
	}
	if fx.Interface == nil {
		return nil, fmt.Errorf("fixture %s: missing interface.yaml", name)
	}
	return fx, nil
}

// MustGet is Get for tests that cannot proceed without the fixture.
func MustGet(name string) *Fixture {
	fx, err := Get(name)
	if err != nil {
		panic(err)
	}
	return fx
}
