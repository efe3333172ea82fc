package modelpack

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainScene = `{
  "asset": {"version": "2.0"},
  "buffers": [{"uri": "scene.bin", "byteLength": 4}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}]
}`

const dracoScene = `{
  "asset": {"version": "2.0"},
  "extensionsUsed": ["KHR_draco_mesh_compression"],
  "extensionsRequired": ["KHR_draco_mesh_compression"],
  "buffers": [{"uri": "scene.bin", "byteLength": 4}],
  "meshes": []
}`

// fakeCompressor stands in for gltf-pipeline: it writes a short scene to
// the -o path.
type fakeCompressor struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]error
}

func (f *fakeCompressor) Run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	var in, out string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-i":
			in = args[i+1]
		case "-o":
			out = args[i+1]
		}
	}
	if err := f.fail[filepath.Base(filepath.Dir(in))]; err != nil {
		return err
	}
	return os.WriteFile(out, []byte(`{"asset":{"version":"2.0"}}`), 0o644)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func setupModels(t *testing.T) (src, out string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "models")
	out = filepath.Join(root, "models-compressed")

	writeFile(t, filepath.Join(src, "halloween", SceneFile), plainScene)
	writeFile(t, filepath.Join(src, "halloween", BinFile), "\x00\x01\x02\x03")
	writeFile(t, filepath.Join(src, "halloween", "license.txt"), "CC-BY")
	writeFile(t, filepath.Join(src, "halloween", "textures", "pumpkin.png"), "png")

	writeFile(t, filepath.Join(src, "pom-pom__blockbench", SceneFile), dracoScene)
	writeFile(t, filepath.Join(src, "pom-pom__blockbench", BinFile), "\x00\x01\x02\x03")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "pusheen_vs_noodle"), 0o755))
	return src, out
}

func TestRunCompressesCopiesAndSkips(t *testing.T) {
	src, out := setupModels(t)
	fake := &fakeCompressor{}
	p, err := New(Options{
		SourceDir: src,
		OutputDir: out,
		Models:    []string{"halloween", "pom-pom__blockbench", "pusheen_vs_noodle"},
	}, fake, quietLogger())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	byModel := map[string]Result{}
	for _, r := range report.Results {
		byModel[r.Model] = r
	}

	h := byModel["halloween"]
	assert.Equal(t, StatusCompressed, h.Status)
	assert.Equal(t, int64(len(plainScene)), h.OriginalSize)
	assert.Positive(t, h.OutputSize)
	assert.Positive(t, h.Reduction())
	assert.Equal(t, 1, h.Meshes)
	assert.FileExists(t, filepath.Join(out, "halloween", "license.txt"))
	assert.FileExists(t, filepath.Join(out, "halloween", "textures", "pumpkin.png"))
	assert.NoFileExists(t, filepath.Join(out, "halloween", BinFile), "compressed scenes inline their buffers")

	pom := byModel["pom-pom__blockbench"]
	assert.Equal(t, StatusCopied, pom.Status)
	assert.Equal(t, pom.OriginalSize, pom.OutputSize)
	assert.FileExists(t, filepath.Join(out, "pom-pom__blockbench", BinFile))

	assert.Equal(t, StatusSkipped, byModel["pusheen_vs_noodle"].Status)

	require.Len(t, fake.calls, 1, "only the uncompressed scene goes through the compressor")
	call := fake.calls[0]
	assert.Equal(t, "gltf-pipeline", call[0])
	assert.Contains(t, call, "--draco.compressionLevel=7")
	assert.Contains(t, call, filepath.Join(src, "halloween", SceneFile))

	m, err := ReadManifest(out)
	require.NoError(t, err)
	assert.True(t, m.Models["halloween"].Servable())
	assert.True(t, m.Models["pom-pom__blockbench"].Servable())
	assert.False(t, m.Models["pusheen_vs_noodle"].Servable())
}

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	src, out := setupModels(t)
	writeFile(t, filepath.Join(src, "pusheen_-_im_busy", SceneFile), plainScene)
	fake := &fakeCompressor{fail: map[string]error{"halloween": errors.New("draco encoder crashed")}}

	p, err := New(Options{SourceDir: src, OutputDir: out, Concurrency: 2}, fake, quietLogger())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "halloween", failed[0].Model)
	assert.Contains(t, failed[0].Err, "draco encoder crashed")
	assert.Equal(t, 1, report.Count(StatusCompressed))
	assert.Equal(t, 1, report.Count(StatusCopied))
}

func TestRunRejectsBuffersOutsideModel(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a", "b", "models")
	out := filepath.Join(root, "o1", "o2", "o3", "out")
	writeFile(t, filepath.Join(root, "a", "x.bin"), "secret")

	escaping := func(scene, uri string) string {
		return strings.Replace(scene, `"uri": "scene.bin"`, `"uri": "`+uri+`"`, 1)
	}
	writeFile(t, filepath.Join(src, "draco", SceneFile), escaping(dracoScene, "../../../x.bin"))
	writeFile(t, filepath.Join(src, "plain", SceneFile), escaping(plainScene, "%2E%2E/%2E%2E/%2E%2E/x.bin"))

	fake := &fakeCompressor{}
	p, err := New(Options{SourceDir: src, OutputDir: out, Models: []string{"draco", "plain"}}, fake, quietLogger())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Failed(), 2)
	for _, r := range report.Results {
		assert.Equal(t, StatusFailed, r.Status, r.Model)
		assert.Contains(t, r.Err, ErrUnsafeBuffer.Error(), r.Model)
	}
	assert.Empty(t, fake.calls)
	assert.NoFileExists(t, filepath.Join(root, "o1", "o2", "x.bin"))
	assert.NoFileExists(t, filepath.Join(out, "draco", SceneFile))
}

func TestModelsDiscovery(t *testing.T) {
	src, out := setupModels(t)
	writeFile(t, filepath.Join(src, "README.md"), "notes")

	p, err := New(Options{SourceDir: src, OutputDir: out}, &fakeCompressor{}, quietLogger())
	require.NoError(t, err)

	models, err := p.Models()
	require.NoError(t, err)
	assert.Equal(t, []string{"halloween", "pom-pom__blockbench"}, models)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{OutputDir: "out"}, nil, nil)
	assert.Error(t, err)
	_, err = New(Options{SourceDir: "src"}, nil, nil)
	assert.Error(t, err)
	_, err = New(Options{SourceDir: "src", OutputDir: "out", Models: []string{"../etc"}}, nil, nil)
	assert.Error(t, err)

	p, err := New(Options{SourceDir: "src", OutputDir: "out"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCommand, p.Options().Command)
	assert.Positive(t, p.Options().Concurrency)
}

func TestCommandArgsKeepsPathsWhole(t *testing.T) {
	bin, args, err := commandArgs("gltf-pipeline -i {in} -o {out} --draco.compressionLevel=7",
		"/srv/my models/a/scene.gltf", "/srv/out dir/a/scene.gltf")
	require.NoError(t, err)
	assert.Equal(t, "gltf-pipeline", bin)
	assert.Equal(t, []string{
		"-i", "/srv/my models/a/scene.gltf",
		"-o", "/srv/out dir/a/scene.gltf",
		"--draco.compressionLevel=7",
	}, args)

	_, _, err = commandArgs("", "a", "b")
	assert.Error(t, err)
	_, _, err = commandArgs(`gltf-pipeline "unterminated`, "a", "b")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "plain.gltf"), plainScene)
	info, err := Inspect(filepath.Join(dir, "plain.gltf"))
	require.NoError(t, err)
	assert.False(t, info.Draco)
	assert.Equal(t, []string{"scene.bin"}, info.Buffers)

	writeFile(t, filepath.Join(dir, "draco.gltf"), dracoScene)
	info, err = Inspect(filepath.Join(dir, "draco.gltf"))
	require.NoError(t, err)
	assert.True(t, info.Draco)

	writeFile(t, filepath.Join(dir, "broken.gltf"), `{"extensionsUsed": ["KHR_draco_mesh_compression"], `)
	info, err = Inspect(filepath.Join(dir, "broken.gltf"))
	require.NoError(t, err)
	assert.True(t, info.Draco, "falls back to a text search")

	_, err = Inspect(filepath.Join(dir, "missing.gltf"))
	assert.ErrorIs(t, err, ErrNoScene)

	writeFile(t, filepath.Join(dir, "nested.gltf"),
		`{"asset":{"version":"2.0"},"buffers":[{"uri":"bin%20files/./a.bin","byteLength":1},{"uri":"x/../b.bin","byteLength":1}]}`)
	info, err = Inspect(filepath.Join(dir, "nested.gltf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bin files/a.bin", "b.bin"}, info.Buffers)

	for _, uri := range []string{"../x.bin", "/etc/x.bin", "a/../../x.bin", "%2e%2e/x.bin"} {
		writeFile(t, filepath.Join(dir, "escape.gltf"),
			`{"asset":{"version":"2.0"},"buffers":[{"uri":"`+uri+`","byteLength":1}]}`)
		_, err = Inspect(filepath.Join(dir, "escape.gltf"))
		assert.ErrorIs(t, err, ErrUnsafeBuffer, uri)
	}
}

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	r, err := NewResolver(dir, "/models", "/models-compressed/")
	require.NoError(t, err)

	u, ok := r.Resolve("/models/halloween/scene.gltf")
	assert.False(t, ok, "no manifest yet")
	assert.Equal(t, "/models/halloween/scene.gltf", u)

	require.NoError(t, WriteManifest(dir, &Report{Results: []Result{
		{Model: "halloween", Status: StatusCompressed},
		{Model: "pusheen_vs_noodle", Status: StatusFailed},
	}}))
	require.NoError(t, r.Reload())
	assert.Equal(t, 1, r.Available())

	u, ok = r.Resolve("/models/halloween/scene.gltf")
	assert.True(t, ok)
	assert.Equal(t, "/models-compressed/halloween/scene.gltf", u)

	_, ok = r.Resolve("/models/pusheen_vs_noodle/scene.gltf")
	assert.False(t, ok)
	_, ok = r.Resolve("/static/halloween/scene.gltf")
	assert.False(t, ok)
}

func TestWriteManifestMerges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteManifest(dir, &Report{Results: []Result{{Model: "a", Status: StatusCopied}}}))
	require.NoError(t, WriteManifest(dir, &Report{Results: []Result{{Model: "b", Status: StatusCompressed}}}))

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Len(t, m.Models, 2)
	assert.Equal(t, StatusCopied, m.Models["a"].Status)
}

func TestSummary(t *testing.T) {
	r := &Report{Results: []Result{
		{Model: "halloween", Status: StatusCompressed, OriginalSize: 2_000_000, OutputSize: 500_000},
		{Model: "pom", Status: StatusCopied, OriginalSize: 1000, OutputSize: 1000},
		{Model: "grown", Status: StatusCompressed, OriginalSize: 100, OutputSize: 150},
		{Model: "gone", Status: StatusSkipped, Err: ErrNoScene.Error()},
	}}
	s := r.Summary()
	assert.Contains(t, s, "2.0 MB")
	assert.Contains(t, s, "75.0% smaller")
	assert.Contains(t, s, "50.0% larger")
	assert.Contains(t, s, "copied as is")
	assert.Contains(t, s, "skip  gone")
	assert.Contains(t, s, "2 compressed, 1 copied, 1 skipped, 0 failed")

	steps := NextSteps("public/models", "public/models-compressed")
	assert.True(t, strings.Contains(steps, "public/models-original"))
}

func TestWatchRepacksChangedModel(t *testing.T) {
	src, out := setupModels(t)
	fake := &fakeCompressor{}
	p, err := New(Options{SourceDir: src, OutputDir: out}, fake, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 4)
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, func(r Result) { results <- r }) }()

	// Give the watcher time to register the tree.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(src, "halloween", SceneFile), plainScene+"\n")

	select {
	case r := <-results:
		assert.Equal(t, "halloween", r.Model)
		assert.Equal(t, StatusCompressed, r.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no result from watcher")
	}

	cancel()
	require.NoError(t, <-done)

	m, err := ReadManifest(out)
	require.NoError(t, err)
	assert.Contains(t, m.Models, "halloween")
}

func TestModelOf(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "halloween"), 0o755))

	assert.Equal(t, "halloween", modelOf(root, filepath.Join(root, "halloween", "scene.gltf")))
	assert.Equal(t, "halloween", modelOf(root, filepath.Join(root, "halloween")))
	assert.Equal(t, "", modelOf(root, filepath.Join(root, "notes.txt")))
	assert.Equal(t, "", modelOf(root, root))
	assert.Equal(t, "", modelOf(root, filepath.Dir(root)))
}
