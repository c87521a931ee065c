package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/funvibe/uniffi-bindgen-dart/internal/config"
	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/logging"
)

// Formatter reformats the files of a directory in place.
type Formatter func(ctx context.Context, dir string) error

// Component is one namespace to generate. Config holds the values read
// from the component's configuration file and may be nil.
type Component struct {
	Interface *idl.Interface
	Config    *config.Config
}

// Engine renders components and writes one file per namespace.
type Engine struct {
	// outDir is the directory the files are written to.
	outDir string

	// overrides are merged over every component's configuration.
	overrides *config.Config

	// format runs after all files are written; nil skips formatting.
	format Formatter

	log *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig merges over on top of each component's configuration.
func WithConfig(over *config.Config) Option {
	return func(e *Engine) { e.overrides = over }
}

// WithFormatter replaces the formatter run over the output directory.
func WithFormatter(f Formatter) Option {
	return func(e *Engine) { e.format = f }
}

// WithoutFormatting disables the formatter.
func WithoutFormatting() Option {
	return func(e *Engine) { e.format = nil }
}

// WithLogger sets the logger used for warnings and progress.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine writing to outDir. By default the output is
// formatted with dart format.
func NewEngine(outDir string, opts ...Option) *Engine {
	e := &Engine{
		outDir: outDir,
		format: DartFormat,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Logger()
	}
	return e
}

// Config returns the configuration a component is generated with:
// namespace defaults, then the component's file, then the engine
// overrides.
func (e *Engine) Config(c Component) *config.Config {
	return config.Defaults(c.Interface.Namespace).Merge(c.Config).Merge(e.overrides)
}

// Run generates every component and returns the written paths. All files
// are rendered before any is written, so a malformed description leaves
// the output directory untouched. A formatter failure is logged and does
// not fail the run.
func (e *Engine) Run(ctx context.Context, components ...Component) ([]string, error) {
	files := make([]file, 0, len(components))
	owners := make(map[string]string)
	for _, c := range components {
		ns := c.Interface.Namespace
		name := FileName(c.Interface)
		if prev, ok := owners[name]; ok {
			return nil, errs.New(errs.PhaseRender, errs.KindDuplicate).
				Namespace(ns).
				Detail("output file %s already generated for namespace %s", name, prev).
				Build()
		}
		owners[name] = ns

		src, err := Generate(c.Interface, e.Config(c))
		if err != nil {
			return nil, err
		}
		e.log.Debug("rendered namespace",
			zap.String("namespace", ns),
			zap.Int("bytes", len(src)))
		files = append(files, file{
			path: filepath.Join(e.outDir, name),
			data: []byte(src),
		})
	}

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, errs.New(errs.PhaseWrite, errs.KindIO).
			Cause(err).
			Detail("creating %s", e.outDir).
			Build()
	}
	if err := writeAll(files); err != nil {
		return nil, err
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
		e.log.Info("wrote bindings", zap.String("path", f.path))
	}

	if e.format != nil {
		if err := e.format(ctx, e.outDir); err != nil {
			e.log.Warn("formatting generated bindings failed",
				zap.String("dir", e.outDir),
				zap.Error(err))
		}
	}
	return paths, nil
}

// DartFormat runs `dart format .` in dir.
func DartFormat(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "dart", "format", ".")
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("dart format: %s\n%w", string(output), err)
	}
	return nil
}
