package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/achilleasa/lumen/types"
)

const (
	DefaultFocalLength  float32 = 1.0
	DefaultSensorHeight float32 = 1.0

	basisEpsilon float32 = 1e-3
)

var (
	ErrInvalidResolution = errors.New("scene: camera resolution must be greater than zero")
	ErrInvalidBasis      = errors.New("scene: camera basis is not orthonormal")
	ErrInvalidLens       = errors.New("scene: invalid camera lens parameters")
)

var worldY = types.Vec3{0, 1, 0}

// A per-frame camera snapshot. Cameras are treated as immutable once handed
// to a tracer; use the With* and Orbit helpers to derive new snapshots.
//
// Side points to the camera's left and Up points up so that rays built as
// position - sensorPoint produce an upright image.
type Camera struct {
	Position types.Vec3
	Forward  types.Vec3
	Side     types.Vec3
	Up       types.Vec3

	// Distance between the lens and the sensor plane.
	FocalLength float32

	// Sensor height in world units. The sensor width is derived from the
	// frame aspect ratio.
	SensorHeight float32

	// Thin lens parameters. A zero aperture yields a pinhole camera.
	Aperture      float32
	FocusDistance float32

	// Frame dimensions in pixels.
	Width  uint32
	Height uint32

	// Elapsed time in seconds; drives the sky sun position.
	Time float32

	// Global seed for the per-pixel random streams.
	Seed uint32
}

// Create a pinhole camera at position looking at lookAt.
func NewCamera(position, lookAt, worldUp types.Vec3, width, height uint32) *Camera {
	c := &Camera{
		Position:     position,
		FocalLength:  DefaultFocalLength,
		SensorHeight: DefaultSensorHeight,
		Width:        width,
		Height:       height,
		Seed:         1,
	}
	c.lookAt(lookAt, worldUp)
	return c
}

// Setup the camera basis so it points at target.
func (c *Camera) lookAt(target, worldUp types.Vec3) {
	c.Forward = target.Sub(c.Position).Normalize()
	if c.Forward == (types.Vec3{}) {
		c.Forward = types.Vec3{0, 0, -1}
	}

	side := worldUp.Cross(c.Forward)
	if side.Len() < basisEpsilon {
		// Forward is parallel to the up vector; pick another reference axis.
		side = types.Vec3{0, 0, 1}.Cross(c.Forward)
		if side.Len() < basisEpsilon {
			side = types.Vec3{1, 0, 0}.Cross(c.Forward)
		}
	}
	c.Side = side.Normalize()
	c.Up = c.Forward.Cross(c.Side).Normalize()
}

// Return a copy of the camera orbiting the origin along the XZ plane. The
// orbit angle is time radians, measured from the +Z axis.
func (c *Camera) Orbit(time, distance float32) *Camera {
	out := *c
	rot := types.QuatFromAxisAngle(worldY, time)
	out.Position = rot.Rotate(types.Vec3{0, 0, distance})
	out.Time = time
	out.lookAt(types.Vec3{}, worldY)
	return &out
}

// Return a copy of the camera with the given time.
func (c *Camera) WithTime(time float32) *Camera {
	out := *c
	out.Time = time
	return &out
}

// Return a copy of the camera with the given frame dimensions.
func (c *Camera) WithResolution(width, height uint32) *Camera {
	out := *c
	out.Width = width
	out.Height = height
	return &out
}

// Get the camera sensor width.
func (c *Camera) SensorWidth() float32 {
	return c.SensorHeight * float32(c.Width) / float32(c.Height)
}

// Get the vertical field of view in degrees.
func (c *Camera) FOV() float32 {
	return float32(2 * math.Atan(float64(c.SensorHeight/(2*c.FocalLength))) * 180 / math.Pi)
}

// Validate camera settings.
func (c *Camera) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w (got %dx%d)", ErrInvalidResolution, c.Width, c.Height)
	}

	for _, v := range []types.Vec3{c.Forward, c.Side, c.Up} {
		if abs(v.Len()-1) > basisEpsilon {
			return fmt.Errorf("%w: vector %v is not normalized", ErrInvalidBasis, v)
		}
	}
	if abs(c.Forward.Dot(c.Side)) > basisEpsilon ||
		abs(c.Forward.Dot(c.Up)) > basisEpsilon ||
		abs(c.Side.Dot(c.Up)) > basisEpsilon {
		return fmt.Errorf("%w: forward %v side %v up %v", ErrInvalidBasis, c.Forward, c.Side, c.Up)
	}

	if !(c.FocalLength > 0) || !(c.SensorHeight > 0) {
		return fmt.Errorf("%w: focal length and sensor height must be positive", ErrInvalidLens)
	}
	if c.Aperture < 0 {
		return fmt.Errorf("%w: negative aperture", ErrInvalidLens)
	}
	if c.Aperture > 0 && !(c.FocusDistance > 0) {
		return fmt.Errorf("%w: focus distance must be positive when aperture is set", ErrInvalidLens)
	}

	return nil
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
