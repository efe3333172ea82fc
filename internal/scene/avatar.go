package scene

import "cogentcore.org/core/math32"

// AvatarModel is the glTF scene used for the profile avatar.
const AvatarModel = "/models/pom-pom__blockbench/scene.gltf"

// AvatarFallback is shown instead of the avatar on devices that get no 3D.
const AvatarFallback = "👨‍💻"

// ShadowLight is a shadow-casting light with its shadow camera settings.
type ShadowLight struct {
	Light
	MapSize int     `json:"mapSize"`
	Bias    float32 `json:"bias"`
	Near    float32 `json:"near"`
	Far     float32 `json:"far"`
}

// AvatarDescriptor describes the rotating avatar in the profile section.
type AvatarDescriptor struct {
	ModelURL    string      `json:"modelUrl"`
	Compressed  bool        `json:"compressed"`
	Camera      Vec3        `json:"camera"`
	FOV         float32     `json:"fov"`
	Scale       float32     `json:"scale"`
	Offset      Vec3        `json:"offset"`
	InitialYaw  float32     `json:"initialYaw"`
	AutoRotate  float32     `json:"autoRotate"`
	Background  string      `json:"background"`
	FloorY      float32     `json:"floorY"`
	Shadows     bool        `json:"shadows"`
	Lights      []Light     `json:"lights"`
	ShadowLight ShadowLight `json:"shadowLight"`
	Controls    Controls    `json:"controls"`
	Fallback    string      `json:"fallback"`
}

// Avatar builds the avatar descriptor. The model starts turned half way
// round so it faces the viewer, then drifts slowly about the y axis.
func Avatar(r Resolver) AvatarDescriptor {
	if r == nil {
		r = Identity{}
	}
	url, compressed := r.Resolve(AvatarModel)
	return AvatarDescriptor{
		ModelURL:   url,
		Compressed: compressed,
		Camera:     Vec3{0, 0, 5},
		FOV:        50,
		Scale:      1.5,
		Offset:     Vec3{0, -2, 0},
		InitialYaw: math32.Pi,
		AutoRotate: 0.001,
		Background: "#f0f0f0",
		FloorY:     -2,
		Shadows:    true,
		Lights: []Light{
			{Kind: "ambient", Intensity: 0.4},
			{Kind: "directional", Intensity: 0.7, Position: &Vec3{0, -1, -5}},
		},
		ShadowLight: ShadowLight{
			Light:   Light{Kind: "point", Intensity: 50, Position: &Vec3{1, 3.5, 3}, CastShadow: true},
			MapSize: 1024,
			Bias:    -0.005,
			Near:    0.5,
			Far:     20,
		},
		Controls: Controls{
			EnableZoom:    false,
			EnablePan:     false,
			MinPolarAngle: math32.Pi / 3,
			MaxPolarAngle: math32.Pi / 2,
		},
		Fallback: AvatarFallback,
	}
}
