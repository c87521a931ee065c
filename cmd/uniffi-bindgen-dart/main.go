package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/funvibe/uniffi-bindgen-dart/internal/config"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/logging"
	"github.com/funvibe/uniffi-bindgen-dart/internal/render"
)

const usage = `Usage: uniffi-bindgen-dart generate [flags] <interface-file>...

Generates Dart bindings, one file per namespace, for interface
descriptions dumped as YAML, JSON or CBOR.

Flags:
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stderr, usage)
		newGenerateFlags(stderr).set.PrintDefaults()
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	if args[0] != "generate" {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", args[0])
		return 2
	}
	return handleGenerate(ctx, args[1:], stderr)
}

type generateFlags struct {
	set        *flag.FlagSet
	configPath string
	outDir     string
	noFormat   bool
	verbose    bool
}

func newGenerateFlags(stderr io.Writer) *generateFlags {
	f := &generateFlags{set: flag.NewFlagSet("generate", flag.ContinueOnError)}
	f.set.SetOutput(stderr)
	f.set.StringVar(&f.configPath, "config", "", "path to uniffi.toml (default: searched upwards from each interface file)")
	f.set.StringVar(&f.outDir, "out-dir", ".", "directory the bindings are written to")
	f.set.BoolVar(&f.noFormat, "no-format", false, "do not run dart format over the output")
	f.set.BoolVar(&f.verbose, "v", false, "verbose logging")
	return f
}

func handleGenerate(ctx context.Context, args []string, stderr io.Writer) int {
	flags := newGenerateFlags(stderr)
	if err := flags.set.Parse(args); err != nil {
		return 2
	}
	if flags.set.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		flags.set.PrintDefaults()
		return 2
	}

	color := false
	if f, ok := stderr.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	logger, err := logging.NewConsole(flags.verbose, color)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	logging.SetLogger(logger)

	components, err := loadComponents(flags.set.Args(), flags.configPath, logger)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return 1
	}

	opts := []render.Option{render.WithLogger(logger)}
	if flags.noFormat {
		opts = append(opts, render.WithoutFormatting())
	}
	engine := render.NewEngine(flags.outDir, opts...)
	if _, err := engine.Run(ctx, components...); err != nil {
		logger.Error("generation failed", zap.Error(err))
		return 1
	}
	return 0
}

// loadComponents reads each interface file together with its
// configuration. An explicit config path applies to every file.
func loadComponents(paths []string, configPath string, logger *zap.Logger) ([]render.Component, error) {
	var shared *config.Config
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		shared = cfg
	}

	components := make([]render.Component, 0, len(paths))
	for _, path := range paths {
		ci, err := idl.Load(path)
		if err != nil {
			return nil, err
		}
		c := render.Component{Interface: ci, Config: shared}
		if shared == nil {
			found, err := config.Find(filepath.Dir(path))
			if err != nil {
				return nil, err
			}
			if found != "" {
				logger.Debug("using configuration", zap.String("path", found), zap.String("namespace", ci.Namespace))
				if c.Config, err = config.Load(found); err != nil {
					return nil, err
				}
			}
		}
		components = append(components, c)
	}
	return components, nil
}
