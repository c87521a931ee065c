package idl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// Format is the serialization of an interface description dump.
type Format int

const (
	// FormatYAML covers YAML and JSON dumps.
	FormatYAML Format = iota
	// FormatCBOR is the binary dump written next to compiled libraries.
	FormatCBOR
)

// FormatFor picks the dump format from a file name.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor", ".bin":
		return FormatCBOR
	default:
		return FormatYAML
	}
}

// Load reads, parses and resolves an interface description file.
func Load(path string) (*Interface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.PhaseLoad, errs.KindIO, err, fmt.Sprintf("reading %s", path))
	}
	return Parse(data, FormatFor(path), path)
}

// Parse decodes an interface description and resolves its type references.
// The name argument is used only for error messages.
func Parse(data []byte, format Format, name string) (*Interface, error) {
	var ci Interface
	switch format {
	case FormatCBOR:
		if err := cbor.Unmarshal(data, &ci); err != nil {
			return nil, errs.Wrap(errs.PhaseLoad, errs.KindInvalidInput, err, fmt.Sprintf("parsing %s", name))
		}
	default:
		if err := yaml.Unmarshal(data, &ci); err != nil {
			return nil, errs.Wrap(errs.PhaseLoad, errs.KindInvalidInput, err, fmt.Sprintf("parsing %s", name))
		}
	}
	if err := ci.Resolve(); err != nil {
		return nil, err
	}
	return &ci, nil
}

// UnmarshalCBOR mirrors UnmarshalYAML: it records the presence of a
// default key.
func (f *Field) UnmarshalCBOR(data []byte) error {
	type plain Field
	if err := cbor.Unmarshal(data, (*plain)(f)); err != nil {
		return err
	}
	var keys map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, f.HasDefault = keys["default"]
	return nil
}
