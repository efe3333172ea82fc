// Package content holds the résumé data the site renders: profile, awards,
// skills and projects. The data lives in a YAML document; a default copy is
// embedded in the binary.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed resume.yaml
var defaultResume []byte

// ErrInvalid wraps every validation problem found in a résumé document.
var ErrInvalid = errors.New("invalid resume content")

type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Headline    string `yaml:"headline" json:"headline"`
	Description string `yaml:"description" json:"description"`
	Email       string `yaml:"email" json:"email"`
	Phone       string `yaml:"phone" json:"phone"`
	Location    string `yaml:"location" json:"location"`
}

type Award struct {
	Title string   `yaml:"title" json:"title"`
	Award string   `yaml:"award" json:"award"`
	Tags  []string `yaml:"tags" json:"tags"`
}

// SkillGroup is one panel of the skills grid. A group either lists skills
// directly or splits them into subgroups.
type SkillGroup struct {
	Category  string     `yaml:"category" json:"category"`
	Color     string     `yaml:"color" json:"color"`
	Skills    []string   `yaml:"skills" json:"skills,omitempty"`
	Subgroups []SubSkill `yaml:"subgroups" json:"subgroups,omitempty"`
}

type SubSkill struct {
	SubCategory string   `yaml:"subCategory" json:"subCategory"`
	Skills      []string `yaml:"skills" json:"skills"`
}

// Palette is the set of accent colors a skill group may use.
var Palette = []string{"emerald", "violet", "amber", "blue"}

// Accent returns the group's color, or amber when it is not in the palette.
func (g SkillGroup) Accent() string {
	for _, c := range Palette {
		if g.Color == c {
			return c
		}
	}
	return "amber"
}

// ModelType selects the primitive drawn when a project has no model file.
type ModelType string

const (
	ModelCube   ModelType = "cube"
	ModelSphere ModelType = "sphere"
	ModelTorus  ModelType = "torus"
	ModelCustom ModelType = "custom"
)

type ModelSpec struct {
	// Path is the URL of a glTF scene under /models. Empty means the
	// project shows a primitive instead.
	Path      string    `yaml:"path" json:"path,omitempty"`
	Type      ModelType `yaml:"type" json:"type,omitempty"`
	Color     string    `yaml:"color" json:"color,omitempty"`
	Size      float32   `yaml:"size" json:"size,omitempty"`
	Speed     float32   `yaml:"speed" json:"speed,omitempty"`
	Metalness float32   `yaml:"metalness" json:"metalness,omitempty"`
	Roughness float32   `yaml:"roughness" json:"roughness,omitempty"`
}

type CameraSpec struct {
	Position []float32 `yaml:"position" json:"position,omitempty"`
	Target   []float32 `yaml:"target" json:"target,omitempty"`
	FOV      float32   `yaml:"fov" json:"fov,omitempty"`
}

type Project struct {
	ID              string      `yaml:"id" json:"id"`
	Title           string      `yaml:"title" json:"title"`
	Description     []string    `yaml:"description" json:"description"`
	Technologies    []string    `yaml:"technologies" json:"technologies"`
	Highlights      []string    `yaml:"highlights" json:"highlights,omitempty"`
	Year            int         `yaml:"year" json:"year,omitempty"`
	URL             string      `yaml:"url" json:"url,omitempty"`
	Model           ModelSpec   `yaml:"model" json:"model"`
	Camera          *CameraSpec `yaml:"camera" json:"camera,omitempty"`
	BackgroundColor string      `yaml:"backgroundColor" json:"backgroundColor,omitempty"`
	Scale           float32     `yaml:"scale" json:"scale,omitempty"`
}

// Resume is the whole page's content.
type Resume struct {
	Profile  Profile      `yaml:"profile" json:"profile"`
	Awards   []Award      `yaml:"awards" json:"awards"`
	Skills   []SkillGroup `yaml:"skills" json:"skills"`
	Projects []Project    `yaml:"projects" json:"projects"`
}

// Default returns the embedded résumé.
func Default() (*Resume, error) {
	return Load(bytes.NewReader(defaultResume))
}

// LoadFile reads a résumé from a YAML file on disk.
func LoadFile(path string) (*Resume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a résumé document.
func Load(r io.Reader) (*Resume, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var res Resume
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

var (
	idPattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Validate checks the document and reports every problem at once.
func (r *Resume) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(r.Profile.Name) == "" {
		add("profile: name is required")
	}
	for i, a := range r.Awards {
		if strings.TrimSpace(a.Title) == "" {
			add("awards[%d]: title is required", i)
		}
	}
	for i, g := range r.Skills {
		if strings.TrimSpace(g.Category) == "" {
			add("skills[%d]: category is required", i)
		}
		if len(g.Skills) == 0 && len(g.Subgroups) == 0 {
			add("skills[%d]: %q lists no skills", i, g.Category)
		}
	}

	seen := make(map[string]bool, len(r.Projects))
	for i, p := range r.Projects {
		where := fmt.Sprintf("projects[%d]", i)
		switch {
		case !idPattern.MatchString(p.ID):
			add("%s: id %q must be lowercase letters, digits, '-' or '_'", where, p.ID)
		case seen[p.ID]:
			add("%s: duplicate id %q", where, p.ID)
		}
		seen[p.ID] = true

		if strings.TrimSpace(p.Title) == "" {
			add("%s: title is required", where)
		}
		if p.BackgroundColor != "" && !colorPattern.MatchString(p.BackgroundColor) {
			add("%s: backgroundColor %q is not a hex color", where, p.BackgroundColor)
		}
		if p.Model.Color != "" && !colorPattern.MatchString(p.Model.Color) {
			add("%s: model.color %q is not a hex color", where, p.Model.Color)
		}
		if p.Scale < 0 {
			add("%s: scale must be positive", where)
		}
		switch p.Model.Type {
		case "", ModelCube, ModelSphere, ModelTorus, ModelCustom:
		default:
			add("%s: unknown model type %q", where, p.Model.Type)
		}
		if p.Model.Type == ModelCustom && p.Model.Path == "" {
			add("%s: custom model needs a path", where)
		}
		if c := p.Camera; c != nil {
			if c.Position != nil && len(c.Position) != 3 {
				add("%s: camera.position needs 3 components", where)
			}
			if c.Target != nil && len(c.Target) != 3 {
				add("%s: camera.target needs 3 components", where)
			}
			if c.FOV < 0 || c.FOV >= 180 {
				add("%s: camera.fov %v out of range", where, c.FOV)
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Project looks up a project by id.
func (r *Resume) Project(id string) (Project, bool) {
	for _, p := range r.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// RowLayout describes how a project card enters the showcase.
type RowLayout struct {
	Reverse bool    `json:"reverse"`
	OffsetX int     `json:"offsetX"`
	OffsetY int     `json:"offsetY"`
	Delay   float64 `json:"delay"`
}

// Layout alternates cards: even rows put the model on the left and slide in
// from the left, odd rows mirror that. Each row starts 0.2s after the last.
func Layout(index int) RowLayout {
	l := RowLayout{OffsetX: -100, OffsetY: 100, Delay: float64(index) * 0.2}
	if index%2 == 1 {
		l.Reverse = true
		l.OffsetX = 100
	}
	return l
}
