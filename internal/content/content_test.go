package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResume(t *testing.T) {
	res, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "黄凯旋", res.Profile.Name)
	assert.Len(t, res.Awards, 2)
	assert.Len(t, res.Skills, 4)
	assert.Len(t, res.Skills[0].Subgroups, 5)

	p, ok := res.Project("blog")
	require.True(t, ok)
	assert.Equal(t, "/models/pusheen_vs_noodle/scene.gltf", p.Model.Path)
	require.NotNil(t, p.Camera)
	assert.Equal(t, []float32{-4.5, 2, 7}, p.Camera.Position)

	_, ok = res.Project("missing")
	assert.False(t, ok)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("profile:\n  name: a\n  nickname: b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nickname")
}

func TestValidateCollectsProblems(t *testing.T) {
	doc := `
profile: {name: ""}
skills:
  - category: tools
projects:
  - id: Bad ID
    title: x
  - id: dup
    title: one
    backgroundColor: blue
  - id: dup
    title: ""
    model: {type: pyramid}
  - id: cam
    title: cam
    camera: {position: [1, 2], fov: 200}
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	for _, want := range []string{
		"profile: name is required",
		`"tools" lists no skills`,
		`id "Bad ID"`,
		`backgroundColor "blue"`,
		`duplicate id "dup"`,
		"projects[2]: title is required",
		`unknown model type "pyramid"`,
		"camera.position needs 3 components",
		"camera.fov 200 out of range",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profile: {name: Ada}\n"), 0o644))

	res, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada", res.Profile.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAccentFallsBackToAmber(t *testing.T) {
	assert.Equal(t, "violet", SkillGroup{Color: "violet"}.Accent())
	assert.Equal(t, "amber", SkillGroup{Color: "teal"}.Accent())
}

func TestLayoutAlternates(t *testing.T) {
	even := Layout(0)
	assert.False(t, even.Reverse)
	assert.Equal(t, -100, even.OffsetX)
	assert.Equal(t, 100, even.OffsetY)
	assert.Zero(t, even.Delay)

	odd := Layout(3)
	assert.True(t, odd.Reverse)
	assert.Equal(t, 100, odd.OffsetX)
	assert.InDelta(t, 0.6, odd.Delay, 1e-9)
}
