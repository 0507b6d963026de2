package kernel

import (
	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

// Generate the primary ray for pixel (x, y). The returned direction is not
// normalized; NewRay takes care of that before traversal.
//
// When jitter is set, the sensor sample is offset by a random sub-pixel
// amount. Cameras with a non-zero aperture sample the lens square and re-aim
// the ray at the focus plane.
func GeneratePrimaryRay(cam *scene.Camera, x, y uint32, jitter bool) (origin, dir types.Vec3) {
	rng := NewRng(x, y, cam.Width, cam.Seed)

	px, py := float32(x), float32(y)
	if jitter {
		px += rng.Float()
		py += rng.Float()
	}

	width, height := float32(cam.Width), float32(cam.Height)
	sensorWidth := cam.SensorHeight * width / height
	horizontal := (px/width - 0.5) * sensorWidth
	vertical := (py/height - 0.5) * cam.SensorHeight

	sensorPoint := cam.Position.
		Sub(cam.Forward.Mul(cam.FocalLength)).
		Add(cam.Side.Mul(horizontal)).
		Add(cam.Up.Mul(vertical))

	origin = cam.Position
	dir = origin.Sub(sensorPoint)

	if cam.Aperture > 0 {
		focusPoint := cam.Position.Add(dir.Mul(cam.FocusDistance / dir.Dot(cam.Forward)))
		lensX := (rng.Float() - 0.5) * cam.Aperture
		lensY := (rng.Float() - 0.5) * cam.Aperture
		origin = origin.Add(cam.Side.Mul(lensX)).Add(cam.Up.Mul(lensY))
		dir = focusPoint.Sub(origin)
	}

	return origin, dir
}
