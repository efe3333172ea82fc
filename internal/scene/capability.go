package scene

import (
	"regexp"
	"strconv"
	"strings"
)

// RenderMode says whether a client gets live 3D or the static fallback.
type RenderMode string

const (
	RenderWebGL    RenderMode = "webgl"
	RenderFallback RenderMode = "fallback"
)

// Client is what the server knows about the browser asking for the page.
type Client struct {
	UserAgent string
	// ViewportWidth in CSS pixels; zero when the client sent no hint.
	ViewportWidth int
	// NoWebGL is set when the browser reported it cannot create a WebGL
	// context.
	NoWebGL bool
}

var mobileAgent = regexp.MustCompile(`(?i)android|iphone|ipad|ipod|mobile|blackberry|iemobile|opera mini`)

// Detect decides the render mode. A reported viewport width wins over the
// user agent, so a desktop browser squeezed below the breakpoint also
// degrades, and a tablet wider than it keeps 3D.
func Detect(c Client, breakpoint int) RenderMode {
	if c.NoWebGL {
		return RenderFallback
	}
	if c.ViewportWidth > 0 {
		if c.ViewportWidth < breakpoint {
			return RenderFallback
		}
		return RenderWebGL
	}
	if mobileAgent.MatchString(c.UserAgent) {
		return RenderFallback
	}
	return RenderWebGL
}

// ParseViewport reads a Viewport-Width style header or query value.
// Anything unparsable counts as "no hint".
func ParseViewport(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int(f)
}
