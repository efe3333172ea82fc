package modelpack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome for one model.
type Status string

const (
	StatusCompressed Status = "compressed"
	StatusCopied     Status = "copied"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Result records what happened to one model directory.
type Result struct {
	Model        string        `json:"model"`
	Status       Status        `json:"status"`
	OriginalSize int64         `json:"originalSize"`
	OutputSize   int64         `json:"outputSize"`
	Meshes       int           `json:"meshes"`
	Duration     time.Duration `json:"duration"`
	Err          string        `json:"error,omitempty"`
}

// Reduction is the percentage by which the scene shrank. Negative when the
// output grew.
func (r Result) Reduction() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.OriginalSize-r.OutputSize) / float64(r.OriginalSize) * 100
}

// Servable reports whether the output directory holds a usable copy.
func (r Result) Servable() bool {
	return r.Status == StatusCompressed || r.Status == StatusCopied
}

// Packer compresses a set of model directories.
type Packer struct {
	opts   Options
	runner Runner
	log    *slog.Logger
}

// New returns a Packer. A nil runner runs commands with os/exec; a nil
// logger uses slog.Default.
func New(opts Options, runner Runner, logger *slog.Logger) (*Packer, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Packer{opts: opts, runner: runner, log: logger}, nil
}

// Options returns the packer's effective options.
func (p *Packer) Options() Options { return p.opts }

// Models lists the model directories this packer handles.
func (p *Packer) Models() ([]string, error) {
	if len(p.opts.Models) > 0 {
		return p.opts.Models, nil
	}
	entries, err := os.ReadDir(p.opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var models []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(p.opts.SourceDir, e.Name(), SceneFile)); err == nil {
			models = append(models, e.Name())
		}
	}
	sort.Strings(models)
	return models, nil
}

// Run processes every model and writes the manifest. A model that fails is
// recorded in the report and does not stop the others; the returned error
// covers only problems with the batch itself.
func (p *Packer) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	models, err := p.Models()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	p.log.Info("Compressing models.", "count", len(models), "source", p.opts.SourceDir, "output", p.opts.OutputDir)

	results := make([]Result, len(models))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, name := range models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.PackModel(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results, Started: started, Duration: time.Since(started)}
	if err := WriteManifest(p.opts.OutputDir, report); err != nil {
		return report, err
	}
	return report, nil
}

// PackModel processes a single model directory.
func (p *Packer) PackModel(ctx context.Context, name string) Result {
	start := time.Now()
	log := p.log.With("model", name)
	res := p.packModel(ctx, name, log)
	res.Model = name
	res.Duration = time.Since(start)

	switch res.Status {
	case StatusSkipped:
		log.Warn("Skipping model.", "reason", res.Err)
	case StatusFailed:
		log.Error("Model failed.", "error", res.Err)
	default:
		log.Info("Model done.", "status", res.Status, "original", res.OriginalSize, "output", res.OutputSize)
	}
	return res
}

func (p *Packer) packModel(ctx context.Context, name string, log *slog.Logger) Result {
	srcDir := filepath.Join(p.opts.SourceDir, name)
	dstDir := filepath.Join(p.opts.OutputDir, name)
	in := filepath.Join(srcDir, SceneFile)
	out := filepath.Join(dstDir, SceneFile)

	info, err := Inspect(in)
	if errors.Is(err, ErrNoScene) {
		return Result{Status: StatusSkipped, Err: ErrNoScene.Error()}
	}
	if err != nil {
		return failed(err)
	}
	res := Result{OriginalSize: info.Size, Meshes: info.Meshes}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return failed(err)
	}

	skip := map[string]bool{SceneFile: true, BinFile: true}
	if info.Draco {
		log.Debug("Already draco-compressed, copying.")
		if err := copyFile(in, out); err != nil {
			return failed(err)
		}
		for _, b := range append([]string{BinFile}, info.Buffers...) {
			src := filepath.Join(srcDir, filepath.FromSlash(b))
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := copyFile(src, filepath.Join(dstDir, filepath.FromSlash(b))); err != nil {
				return failed(err)
			}
			skip[b] = true
		}
		res.Status = StatusCopied
	} else {
		// The compressor inlines buffers into the output scene. Inspect has
		// already rejected buffers outside the model directory.
		for _, b := range info.Buffers {
			skip[b] = true
		}
		bin, args, err := commandArgs(p.opts.Command, in, out)
		if err != nil {
			return failed(err)
		}
		log.Debug("Running compressor.", "command", bin, "args", args)
		if err := p.runner.Run(ctx, bin, args...); err != nil {
			return failed(err)
		}
		res.Status = StatusCompressed
	}

	st, err := os.Stat(out)
	if err != nil {
		return failed(fmt.Errorf("compressed scene missing: %w", err))
	}
	res.OutputSize = st.Size()

	if err := copyAssets(srcDir, dstDir, skip); err != nil {
		return failed(fmt.Errorf("copy assets: %w", err))
	}
	return res
}

func failed(err error) Result {
	return Result{Status: StatusFailed, Err: err.Error()}
}
