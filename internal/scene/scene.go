// Package scene turns résumé projects into the descriptors the browser's
// WebGL layer renders: which model to load, where the orbit camera rests,
// how it animates back there, and when to skip 3D altogether.
package scene

import (
	"cogentcore.org/core/math32"

	"github.com/hkxuan/folio/internal/content"
)

// Vec3 is the JSON form of a vector: [x, y, z].
type Vec3 [3]float32

func toVec3(v math32.Vector3) Vec3 { return Vec3{v.X, v.Y, v.Z} }

// Vector converts back to a math32 vector.
func (v Vec3) Vector() math32.Vector3 { return math32.Vec3(v[0], v[1], v[2]) }

// Pose is an orbit camera's position and the point it looks at.
type Pose struct {
	Position math32.Vector3
	Target   math32.Vector3
}

// PoseJSON is the wire form of a Pose.
type PoseJSON struct {
	Position Vec3 `json:"position"`
	Target   Vec3 `json:"target"`
}

func (p Pose) JSON() PoseJSON {
	return PoseJSON{Position: toVec3(p.Position), Target: toVec3(p.Target)}
}

func (p PoseJSON) Pose() Pose {
	return Pose{Position: p.Position.Vector(), Target: p.Target.Vector()}
}

// Defaults for project thumbnails.
var (
	DefaultCameraPosition = math32.Vec3(-4.5, 1.5, 6)
	DefaultCameraTarget   = math32.Vec3(-4.5, 0, 0)
)

const (
	DefaultFOV        = 50
	DefaultBackground = "#FFF9E3"

	// The spinning cube shown when a project has no model of its own.
	DefaultModelColor = "#1890ff"
	DefaultModelSpin  = 0.01
)

// Light is one light in a scene. Position is omitted for ambient lights.
type Light struct {
	Kind       string  `json:"kind"`
	Intensity  float32 `json:"intensity"`
	Position   *Vec3   `json:"position,omitempty"`
	CastShadow bool    `json:"castShadow,omitempty"`
}

// Controls configures the orbit control attached to a canvas.
type Controls struct {
	EnableZoom     bool    `json:"enableZoom"`
	EnablePan      bool    `json:"enablePan"`
	MinPolarAngle  float32 `json:"minPolarAngle,omitempty"`
	MaxPolarAngle  float32 `json:"maxPolarAngle,omitempty"`
	ResetOnRelease bool    `json:"resetOnRelease"`
}

// Primitive is a procedural mesh drawn in place of a model file, or while
// the file is still loading.
type Primitive struct {
	Type      content.ModelType `json:"type"`
	Color     string            `json:"color"`
	Size      float32           `json:"size"`
	Spin      float32           `json:"spin"`
	Metalness float32           `json:"metalness,omitempty"`
	Roughness float32           `json:"roughness,omitempty"`
}

// Descriptor is everything the page needs to draw one project thumbnail.
type Descriptor struct {
	ID          string    `json:"id"`
	ModelURL    string    `json:"modelUrl,omitempty"`
	Compressed  bool      `json:"compressed"`
	Placeholder Primitive `json:"placeholder"`
	Camera      PoseJSON  `json:"camera"`
	FOV         float32   `json:"fov"`
	Background  string    `json:"background"`
	Scale       float32   `json:"scale"`
	Lights      []Light   `json:"lights"`
	Controls    Controls  `json:"controls"`
	ResetFrames int       `json:"resetFrames"`
}

// Resolver maps a model URL onto the copy that should be served, typically
// the draco-compressed one when it exists.
type Resolver interface {
	Resolve(modelURL string) (url string, compressed bool)
}

// Identity serves every model from its original URL.
type Identity struct{}

func (Identity) Resolve(u string) (string, bool) { return u, false }

// RestPose is where a project's camera sits when nobody is dragging it.
func RestPose(p content.Project) Pose {
	pose := Pose{Position: DefaultCameraPosition, Target: DefaultCameraTarget}
	if c := p.Camera; c != nil {
		if len(c.Position) == 3 {
			pose.Position = math32.Vec3(c.Position[0], c.Position[1], c.Position[2])
		}
		if len(c.Target) == 3 {
			pose.Target = math32.Vec3(c.Target[0], c.Target[1], c.Target[2])
		}
	}
	return pose
}

// ProjectScene builds the thumbnail descriptor for p.
func ProjectScene(p content.Project, r Resolver, resetFrames int) Descriptor {
	if r == nil {
		r = Identity{}
	}
	d := Descriptor{
		ID:          p.ID,
		Camera:      RestPose(p).JSON(),
		FOV:         DefaultFOV,
		Background:  DefaultBackground,
		Scale:       1,
		Placeholder: placeholder(p.Model),
		Lights: []Light{
			{Kind: "ambient", Intensity: 0.5},
			{Kind: "point", Intensity: 700, Position: &Vec3{10, 10, 10}},
		},
		Controls:    Controls{EnableZoom: false, EnablePan: true, ResetOnRelease: true},
		ResetFrames: resetFrames,
	}
	if p.Camera != nil && p.Camera.FOV > 0 {
		d.FOV = p.Camera.FOV
	}
	if p.BackgroundColor != "" {
		d.Background = p.BackgroundColor
	}
	if p.Scale > 0 {
		d.Scale = p.Scale
	}
	if p.Model.Path != "" {
		d.ModelURL, d.Compressed = r.Resolve(p.Model.Path)
	}
	return d
}

func placeholder(m content.ModelSpec) Primitive {
	prim := Primitive{
		Type:      content.ModelCube,
		Color:     DefaultModelColor,
		Size:      1,
		Spin:      DefaultModelSpin,
		Metalness: m.Metalness,
		Roughness: m.Roughness,
	}
	switch m.Type {
	case content.ModelSphere, content.ModelTorus:
		prim.Type = m.Type
	}
	if m.Color != "" {
		prim.Color = m.Color
	}
	if m.Size > 0 {
		prim.Size = m.Size
	}
	if m.Speed > 0 {
		prim.Spin = m.Speed
	}
	return prim
}
