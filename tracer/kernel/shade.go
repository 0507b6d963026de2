package kernel

import (
	"image/color"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

// Default light direction used for hit shading (before normalization).
var DefaultLightDir = types.Vec3{1, -1, 1}

// Shading parameters shared by all invocations of a frame.
type Shading struct {
	// Normalized light direction.
	LightDir types.Vec3

	// Color multiplied with the hit intensity.
	Tint types.Vec3

	// Color for rays that miss the scene when Sky is nil.
	Background types.Vec3

	// Optional atmosphere model for rays that miss the scene.
	Sky *Sky
}

// Create shading parameters with a white tint, the default light direction
// and the default sky.
func DefaultShading() *Shading {
	return &Shading{
		LightDir: DefaultLightDir.Normalize(),
		Tint:     types.Vec3{1, 1, 1},
		Sky:      NewSky(),
	}
}

// Calculate the color for a hit. The intensity is the dot product of the
// geometric normal and the light direction remapped from [-1, 1] to [0, 1].
func ShadeHit(sc *scene.Scene, hit Hit, shading *Shading) types.Vec3 {
	normal := sc.TriangleNormal(hit.Prim)
	intensity := (normal.Dot(shading.LightDir) + 1) / 2
	return shading.Tint.Mul(intensity)
}

// Calculate the color for a ray that missed the scene.
func ShadeMiss(dir types.Vec3, time float32, shading *Shading) types.Vec3 {
	if shading.Sky == nil {
		return shading.Background
	}
	return shading.Sky.Color(dir, time)
}

// Shade a traversal result and pack it into an RGBA8 pixel.
func Shade(sc *scene.Scene, ray *Ray, hit Hit, ok bool, time float32, shading *Shading) color.RGBA {
	var c types.Vec3
	if ok {
		c = ShadeHit(sc, hit, shading)
	} else {
		c = ShadeMiss(ray.Dir, time, shading)
	}
	return ToRGBA(c)
}

// Convert a linear color to RGBA8 clamping each channel to [0, 1]. Alpha is
// always opaque.
func ToRGBA(c types.Vec3) color.RGBA {
	return color.RGBA{
		R: toByte(c[0]),
		G: toByte(c[1]),
		B: toByte(c[2]),
		A: 255,
	}
}

func toByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
