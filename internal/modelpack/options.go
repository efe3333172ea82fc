// Package modelpack prepares the site's glTF models for serving. It runs
// each model through an external draco compressor (gltf-pipeline by
// default), copies models that are already compressed, carries the
// textures and other assets along, and records the outcome in a manifest
// the web server reads to pick which copy to serve.
package modelpack

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"
)

// SceneFile and BinFile are the file names every model directory uses.
const (
	SceneFile = "scene.gltf"
	BinFile   = "scene.bin"
)

// DefaultCommand is the compressor invocation. {in} and {out} are replaced
// with the source and destination scene paths after the template is split
// into arguments, so paths containing spaces survive intact.
const DefaultCommand = "gltf-pipeline -i {in} -o {out}" +
	" --draco.compressionLevel=7" +
	" --draco.quantizePositionBits=11" +
	" --draco.quantizeTexcoordBits=10" +
	" --draco.quantizeColorBits=8" +
	" --draco.quantizeNormalBits=8"

// DefaultModels are the model directories the site ships with.
var DefaultModels = []string{
	"pusheen_-_im_busy",
	"pusheen_vs_noodle",
	"halloween",
	"pom-pom__blockbench",
}

// ErrNoScene marks a model directory without a scene.gltf.
var ErrNoScene = errors.New("scene.gltf not found")

// Options configures a Packer.
type Options struct {
	SourceDir string
	OutputDir string
	// Models lists directory names under SourceDir. Empty means every
	// subdirectory holding a scene.gltf.
	Models []string
	// Command is the compressor template; see DefaultCommand.
	Command string
	// Concurrency bounds how many models are processed at once.
	Concurrency int
}

func (o *Options) setDefaults() {
	if o.Command == "" {
		o.Command = DefaultCommand
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
}

func (o Options) validate() error {
	if o.SourceDir == "" {
		return errors.New("modelpack: source directory is required")
	}
	if o.OutputDir == "" {
		return errors.New("modelpack: output directory is required")
	}
	for _, m := range o.Models {
		if m == "" || strings.ContainsAny(m, `/\`) || m == "." || m == ".." {
			return fmt.Errorf("modelpack: %q is not a model directory name", m)
		}
	}
	return nil
}

// commandArgs expands the command template for one model.
func commandArgs(template, in, out string) (string, []string, error) {
	words, err := shellwords.Parse(template)
	if err != nil {
		return "", nil, fmt.Errorf("parse command %q: %w", template, err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("command %q is empty", template)
	}
	r := strings.NewReplacer("{in}", in, "{out}", out)
	for i, w := range words {
		words[i] = r.Replace(w)
	}
	return words[0], words[1:], nil
}
