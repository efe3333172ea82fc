package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hkxuan/folio/internal/config"
	"github.com/hkxuan/folio/internal/modelpack"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type cliConfig struct {
	Options   modelpack.Options
	Watch     bool
	LogLevel  string
	LogFormat string
}

// parse reads the flags. Directory and logging defaults come from the same
// environment the web server reads. It returns (nil, nil) when -h was asked.
func parse(args []string, output io.Writer, cfg *config.Config) (*cliConfig, error) {
	fs := flag.NewFlagSet("compress-models", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
compress-models - draco-compress the site's glTF models.

Usage:
  compress-models [options]

Every model directory must hold a scene.gltf. Models that are already
draco-compressed are copied as is. Pass -models=all to process every
model directory under -src.

Options:
`)
		fs.PrintDefaults()
	}

	src := fs.String("src", cfg.ModelsDir, "Directory holding the source model directories.")
	out := fs.String("out", cfg.CompressedModelsDir, "Directory the compressed models are written to.")
	models := fs.String("models", strings.Join(modelpack.DefaultModels, ","), "Comma-separated model directory names, or 'all'.")
	command := fs.String("command", modelpack.DefaultCommand, "Compressor command; {in} and {out} are replaced with scene paths.")
	concurrency := fs.Int("concurrency", 0, "Models processed at once. 0 uses the number of CPUs.")
	watch := fs.Bool("watch", false, "Keep running and re-compress models when their files change.")
	logLevel := fs.String("log-level", cfg.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'.")
	logFormat := fs.String("log-format", cfg.LogFormat, "Log output format: 'text' or 'json'.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, nil
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}

	format := strings.ToLower(*logFormat)
	if format != "text" && format != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	level := strings.ToLower(*logLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *concurrency < 0 {
		return nil, &ExitError{Code: 2, Message: "invalid concurrency: must not be negative"}
	}

	return &cliConfig{
		Options: modelpack.Options{
			SourceDir:   *src,
			OutputDir:   *out,
			Models:      splitModels(*models),
			Command:     *command,
			Concurrency: *concurrency,
		},
		Watch:     *watch,
		LogLevel:  level,
		LogFormat: format,
	}, nil
}

// splitModels turns the -models value into a list. "all" and "" mean
// discovery.
func splitModels(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil
	}
	var models []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}
