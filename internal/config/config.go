// Package config reads the per-namespace binding configuration from the
// [bindings.dart] table of uniffi.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// FileName is the configuration file looked up next to the description.
const FileName = "uniffi.toml"

// Strategy selects how the generated bindings locate the native library.
type Strategy int

const (
	// NativeAssets resolves symbols through the assets registered with the
	// Dart process by a build hook.
	NativeAssets Strategy = iota
	// DynamicLibrary opens the platform library file from a directory.
	DynamicLibrary
)

var strategyNames = map[Strategy]string{
	NativeAssets:   "native_assets",
	DynamicLibrary: "dynamic_library",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	for k, name := range strategyNames {
		if name == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown library_loading %q (want native_assets or dynamic_library)", text)
}

// Config is the [bindings.dart] table.
type Config struct {
	// PackageName is the Dart package the bindings belong to. It names the
	// library and prefixes the native asset id.
	PackageName string `toml:"package_name"`

	// CdylibName is the base name of the compiled library.
	CdylibName string `toml:"cdylib_name"`

	LibraryLoading   Strategy `toml:"library_loading"`
	LibraryDirectory string   `toml:"library_directory"`

	// AssetID overrides the asset name registered by the build hook.
	AssetID string `toml:"asset_id"`

	// ExternalPackages maps a crate to the Dart package holding its bindings.
	ExternalPackages map[string]string `toml:"external_packages"`

	// loading records whether library_loading was set, so that a merge
	// can tell an explicit native_assets from the zero value.
	loading bool
}

type document struct {
	Bindings struct {
		Dart Config `toml:"dart"`
	} `toml:"bindings"`
}

// Load reads the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.PhaseConfig, errs.KindIO).Path(path).Cause(err).Build()
	}
	return Parse(data, path)
}

// Parse decodes configuration content. The path is used only in errors.
func Parse(data []byte, path string) (*Config, error) {
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, errs.Wrap(errs.PhaseConfig, errs.KindInvalidInput, err, "parsing "+path)
	}
	cfg := doc.Bindings.Dart
	cfg.loading = md.IsDefined("bindings", "dart", "library_loading")
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find looks for uniffi.toml in dir and its parents. It returns an empty
// path and no error when there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

var dartPackageName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (c *Config) validate(path string) error {
	invalid := func(field, format string, args ...any) error {
		return errs.New(errs.PhaseConfig, errs.KindInvalidInput).
			Path(path, "bindings.dart", field).Detail(format, args...).Build()
	}
	if c.PackageName != "" && !dartPackageName.MatchString(c.PackageName) {
		return invalid("package_name", "%q is not a valid Dart package name", c.PackageName)
	}
	if c.LibraryDirectory != "" && c.LibraryLoading != DynamicLibrary {
		return invalid("library_directory", "only used with library_loading = %q", DynamicLibrary)
	}
	for _, crate := range sortedKeys(c.ExternalPackages) {
		if pkg := c.ExternalPackages[crate]; !dartPackageName.MatchString(pkg) {
			return invalid("external_packages", "crate %s: %q is not a valid Dart package name", crate, pkg)
		}
	}
	return nil
}

// Defaults returns the configuration used for a namespace when no file
// sets a value.
func Defaults(namespace string) *Config {
	return &Config{
		PackageName:      namespace,
		CdylibName:       "uniffi_" + namespace,
		LibraryLoading:   NativeAssets,
		ExternalPackages: map[string]string{},
	}
}

// Merge returns a copy of c with every value set in over taking
// precedence. External package maps are merged key by key.
func (c *Config) Merge(over *Config) *Config {
	out := *c
	out.ExternalPackages = make(map[string]string, len(c.ExternalPackages))
	for k, v := range c.ExternalPackages {
		out.ExternalPackages[k] = v
	}
	if over == nil {
		return &out
	}
	if over.PackageName != "" {
		out.PackageName = over.PackageName
	}
	if over.CdylibName != "" {
		out.CdylibName = over.CdylibName
	}
	if over.loading || over.LibraryLoading != NativeAssets {
		out.LibraryLoading = over.LibraryLoading
		out.loading = true
	}
	if over.LibraryDirectory != "" {
		out.LibraryDirectory = over.LibraryDirectory
	}
	if over.AssetID != "" {
		out.AssetID = over.AssetID
	}
	for k, v := range over.ExternalPackages {
		out.ExternalPackages[k] = v
	}
	return &out
}

// FullAssetID is the asset id used by native declarations. Dart prefixes
// asset names with the package, so the default is
// package:<package_name>/uniffi:<cdylib_name>.
func (c *Config) FullAssetID() string {
	id := c.AssetID
	if id == "" {
		id = "uniffi:" + c.CdylibName
	}
	return "package:" + c.PackageName + "/" + id
}

// ExternalPackage returns the Dart package holding the bindings of crate.
// Without an entry the crate name is used.
func (c *Config) ExternalPackage(crate string) string {
	if pkg, ok := c.ExternalPackages[crate]; ok {
		return pkg
	}
	return crate
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
