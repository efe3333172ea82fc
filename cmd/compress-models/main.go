// Command compress-models draco-compresses the glTF models under
// public/models into public/models-compressed and writes the manifest the
// web server uses to serve the smaller copies.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/hkxuan/folio/internal/config"
	"github.com/hkxuan/folio/internal/logging"
	"github.com/hkxuan/folio/internal/modelpack"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:], modelpack.ExecRunner{}); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args, packs the models and prints the report to out. Logs go
// to logW.
func run(ctx context.Context, out, logW io.Writer, args []string, runner modelpack.Runner) error {
	env, err := config.Load()
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	cfg, err := parse(args, out, env)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	logger := logging.New(logW, cfg.LogLevel, cfg.LogFormat)
	packer, err := modelpack.New(cfg.Options, runner, logger)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	opts := packer.Options()

	report, err := packer.Run(ctx)
	if report != nil {
		fmt.Fprintln(out, report.Summary())
	}
	if err != nil {
		return err
	}

	if cfg.Watch {
		err := packer.Watch(ctx, func(r modelpack.Result) {
			single := &modelpack.Report{Results: []modelpack.Result{r}, Duration: r.Duration}
			fmt.Fprintln(out, single.Summary())
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	if failed := report.Failed(); len(failed) > 0 {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d models failed", len(failed), len(report.Results))}
	}
	fmt.Fprintln(out, modelpack.NextSteps(opts.SourceDir, opts.OutputDir))
	return nil
}
