package scene

// ResetAnimation returns the camera poses for the frames that carry the
// camera from where the user let go back to rest. Frame i of n sits at
// t = i/n, so the last frame is exactly the rest pose. With frames <= 0
// the camera jumps straight to rest.
func ResetAnimation(from, rest Pose, frames int) []Pose {
	if frames <= 0 {
		return []Pose{rest}
	}
	out := make([]Pose, frames)
	for i := 1; i < frames; i++ {
		t := float32(i) / float32(frames)
		out[i-1] = Pose{
			Position: from.Position.Lerp(rest.Position, t),
			Target:   from.Target.Lerp(rest.Target, t),
		}
	}
	out[frames-1] = rest
	return out
}

// ResetKeyframes is ResetAnimation in wire form.
func ResetKeyframes(from, rest Pose, frames int) []PoseJSON {
	poses := ResetAnimation(from, rest, frames)
	out := make([]PoseJSON, len(poses))
	for i, p := range poses {
		out[i] = p.JSON()
	}
	return out
}

// AtRest reports whether both the position and the target of p lie within
// Euclidean distance eps of rest, in which case no animation is needed.
func AtRest(p, rest Pose, eps float32) bool {
	return p.Position.DistanceTo(rest.Position) <= eps && p.Target.DistanceTo(rest.Target) <= eps
}
