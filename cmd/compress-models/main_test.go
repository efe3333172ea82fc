package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkxuan/folio/internal/config"
	"github.com/hkxuan/folio/internal/modelpack"
)

// stubCompressor writes a tiny scene to the -o path, or fails for the
// models listed in fail.
type stubCompressor struct {
	fail map[string]bool
}

func (s stubCompressor) Run(_ context.Context, _ string, args ...string) error {
	var in, out string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-i":
			in = args[i+1]
		case "-o":
			out = args[i+1]
		}
	}
	if s.fail[filepath.Base(filepath.Dir(in))] {
		return errors.New("gltf-pipeline: exit status 1")
	}
	return os.WriteFile(out, []byte(`{"asset":{"version":"2.0"}}`), 0o644)
}

func writeModel(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	scene := `{"asset":{"version":"2.0"},"meshes":[{"primitives":[]}],"buffers":[{"uri":"scene.bin","byteLength":4}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, name, "scene.gltf"), []byte(scene+"                "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name, "scene.bin"), []byte("abcd"), 0o644))
}

func defaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	return cfg
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(nil, io.Discard, defaults(t))
	require.NoError(t, err)
	assert.Equal(t, "public/models", cfg.Options.SourceDir)
	assert.Equal(t, "public/models-compressed", cfg.Options.OutputDir)
	assert.Equal(t, modelpack.DefaultModels, cfg.Options.Models)
	assert.Equal(t, modelpack.DefaultCommand, cfg.Options.Command)
	assert.False(t, cfg.Watch)
}

func TestParseFlags(t *testing.T) {
	cfg, err := parse([]string{
		"-src", "in", "-out", "out", "-models", " halloween, ,pusheen_vs_noodle ",
		"-concurrency", "2", "-watch", "-log-level", "DEBUG", "-log-format", "json",
	}, io.Discard, defaults(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"halloween", "pusheen_vs_noodle"}, cfg.Options.Models)
	assert.Equal(t, 2, cfg.Options.Concurrency)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	cfg, err = parse([]string{"-models", "all"}, io.Discard, defaults(t))
	require.NoError(t, err)
	assert.Nil(t, cfg.Options.Models)
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-log-format", "xml"},
		{"-log-level", "loud"},
		{"-concurrency", "-1"},
		{"-nope"},
		{"stray"},
	} {
		_, err := parse(args, io.Discard, defaults(t))
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr, "%v", args)
		assert.Equal(t, 2, exitErr.Code)
	}
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	cfg, err := parse([]string{"-h"}, &out, defaults(t))
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "draco-compress")
}

func TestRun(t *testing.T) {
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "compressed")
	writeModel(t, src, "halloween")
	writeModel(t, src, "pusheen_vs_noodle")

	var out bytes.Buffer
	err := run(context.Background(), &out, io.Discard, []string{
		"-src", src, "-out", dst, "-models", "halloween,pusheen_vs_noodle,missing",
	}, stubCompressor{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "ok    halloween")
	assert.Contains(t, out.String(), "skip  missing")
	assert.Contains(t, out.String(), "2 compressed, 0 copied, 1 skipped, 0 failed")
	assert.Contains(t, out.String(), "To serve the processed models")
	assert.FileExists(t, filepath.Join(dst, "halloween", "scene.gltf"))

	m, err := modelpack.ReadManifest(dst)
	require.NoError(t, err)
	assert.True(t, m.Models["halloween"].Servable())
}

func TestRunReportsFailures(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeModel(t, src, "halloween")
	writeModel(t, src, "pusheen_vs_noodle")

	var out bytes.Buffer
	err := run(context.Background(), &out, io.Discard, []string{"-src", src, "-out", dst, "-models", "all"},
		stubCompressor{fail: map[string]bool{"halloween": true}})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "1 of 2 models failed", exitErr.Message)
	assert.Contains(t, out.String(), "fail  halloween")
	assert.Contains(t, out.String(), "ok    pusheen_vs_noodle")
	assert.NotContains(t, out.String(), "To serve the processed models")
}
