package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/tracer/kernel"
	"github.com/achilleasa/lumen/types"
	"gopkg.in/gcfg.v1"
)

const ExampleConfig = `# Example lumen render configuration. Every variable is optional; the values
# below are the defaults. Command line flags override values from this file.

[Render]

# Frame dimensions in pixels.
Width = 512
Height = 512

# Work group edge length for the cpu tracers. Must be 16 or 32.
GroupSize = 16

# Number of cpu tracers that split each frame. 0 uses one tracer.
Tracers = 0

# Global seed for the per-pixel random streams. Must be positive; a zero
# seed would give every pixel the same stream.
Seed = 1

# Elapsed time in seconds. Drives the sun position and the camera orbit.
Time = 0

# Jitter primary rays inside their pixel.
Jitter = false

# Integer magnification applied when writing the output image.
Scale = 1

Output = frame.png

[Camera]

# Use the camera defined by the scene file if it has one.
FromScene = true

# Vectors are written as three space separated numbers.
Position = 0 0 -5
LookAt = 0 0 0
Up = 0 1 0

FocalLength = 1
SensorHeight = 1

# A non-zero aperture enables depth of field around FocusDistance.
Aperture = 0
FocusDistance = 0

# Orbit the origin at OrbitDistance using Time as the angle.
Orbit = false
OrbitDistance = 5

[Shading]

LightDir = 1 -1 1
Tint = 1 1 1

# Color for rays that miss the scene when the sky is disabled.
Background = 0 0 0

[Sky]

Enabled = true

# Sun elevation at time 0 and its angular speed, both in radians.
SunElevation = 0.35
SunSpeed = 0.05

RayleighScale = 1
MieScale = 1`

var (
	ErrInvalidConfig = errors.New("config: invalid value")
	ErrInvalidVector = errors.New("config: invalid vector")
)

type RenderConfig struct {
	Width, Height int
	GroupSize     int
	Tracers       int
	Seed          int
	Time          float64
	Jitter        bool
	Scale         int
	Output        string
}

func (con *RenderConfig) ValidWidth() bool {
	return con.Width > 0
}
func (con *RenderConfig) ValidHeight() bool {
	return con.Height > 0
}
func (con *RenderConfig) ValidGroupSize() bool {
	return con.GroupSize == 16 || con.GroupSize == 32
}
func (con *RenderConfig) ValidTracers() bool {
	return con.Tracers >= 0
}
func (con *RenderConfig) ValidSeed() bool {
	return con.Seed > 0 && int64(con.Seed) <= math.MaxUint32
}
func (con *RenderConfig) ValidScale() bool {
	return con.Scale > 0
}
func (con *RenderConfig) ValidOutput() bool {
	return con.Output != ""
}

type CameraConfig struct {
	FromScene bool

	Position, LookAt, Up string

	FocalLength, SensorHeight float64
	Aperture, FocusDistance   float64

	Orbit         bool
	OrbitDistance float64
}

func (con *CameraConfig) ValidPosition() bool {
	_, err := ParseVec3(con.Position)
	return err == nil
}
func (con *CameraConfig) ValidLookAt() bool {
	_, err := ParseVec3(con.LookAt)
	return err == nil
}
func (con *CameraConfig) ValidUp() bool {
	v, err := ParseVec3(con.Up)
	return err == nil && v.Len() > 0
}
func (con *CameraConfig) ValidLens() bool {
	if !(con.FocalLength > 0) || !(con.SensorHeight > 0) || con.Aperture < 0 {
		return false
	}
	return con.Aperture == 0 || con.FocusDistance > 0
}
func (con *CameraConfig) ValidOrbitDistance() bool {
	return !con.Orbit || con.OrbitDistance > 0
}

type ShadingConfig struct {
	LightDir, Tint, Background string
}

func (con *ShadingConfig) ValidLightDir() bool {
	v, err := ParseVec3(con.LightDir)
	return err == nil && v.Len() > 0
}
func (con *ShadingConfig) ValidTint() bool {
	_, err := ParseVec3(con.Tint)
	return err == nil
}
func (con *ShadingConfig) ValidBackground() bool {
	_, err := ParseVec3(con.Background)
	return err == nil
}

type SkyConfig struct {
	Enabled bool

	SunElevation, SunSpeed  float64
	RayleighScale, MieScale float64
}

func (con *SkyConfig) ValidScattering() bool {
	return con.RayleighScale >= 0 && con.MieScale >= 0
}

// The root of a configuration file. Each field maps to a file section.
type Config struct {
	Render  RenderConfig
	Camera  CameraConfig
	Shading ShadingConfig
	Sky     SkyConfig
}

// Get the default configuration.
func Default() *Config {
	sky := kernel.NewSky()
	return &Config{
		Render: RenderConfig{
			Width:     512,
			Height:    512,
			GroupSize: 16,
			Seed:      1,
			Scale:     1,
			Output:    "frame.png",
		},
		Camera: CameraConfig{
			FromScene:     true,
			Position:      "0 0 -5",
			LookAt:        "0 0 0",
			Up:            "0 1 0",
			FocalLength:   float64(scene.DefaultFocalLength),
			SensorHeight:  float64(scene.DefaultSensorHeight),
			OrbitDistance: 5,
		},
		Shading: ShadingConfig{
			LightDir:   "1 -1 1",
			Tint:       "1 1 1",
			Background: "0 0 0",
		},
		Sky: SkyConfig{
			Enabled:       true,
			SunElevation:  0.35,
			SunSpeed:      0.05,
			RayleighScale: float64(sky.RayleighScale),
			MieScale:      float64(sky.MieScale),
		},
	}
}

// Load a configuration file on top of the defaults and validate it.
func Load(path string) (*Config, error) {
	con := Default()
	if err := gcfg.ReadFileInto(con, path); err != nil {
		return nil, fmt.Errorf("config: could not read '%s': %w", path, err)
	}
	if err := con.Validate(); err != nil {
		return nil, err
	}
	return con, nil
}

// Parse configuration file contents on top of the defaults and validate
// the result.
func Parse(src string) (*Config, error) {
	con := Default()
	if err := gcfg.ReadStringInto(con, src); err != nil {
		return nil, fmt.Errorf("config: could not parse configuration: %w", err)
	}
	if err := con.Validate(); err != nil {
		return nil, err
	}
	return con, nil
}

// Check that all configuration values are usable.
func (con *Config) Validate() error {
	checks := []struct {
		valid bool
		name  string
		value interface{}
	}{
		{con.Render.ValidWidth(), "Render.Width", con.Render.Width},
		{con.Render.ValidHeight(), "Render.Height", con.Render.Height},
		{con.Render.ValidGroupSize(), "Render.GroupSize", con.Render.GroupSize},
		{con.Render.ValidTracers(), "Render.Tracers", con.Render.Tracers},
		{con.Render.ValidSeed(), "Render.Seed", con.Render.Seed},
		{con.Render.ValidScale(), "Render.Scale", con.Render.Scale},
		{con.Render.ValidOutput(), "Render.Output", con.Render.Output},
		{con.Camera.ValidPosition(), "Camera.Position", con.Camera.Position},
		{con.Camera.ValidLookAt(), "Camera.LookAt", con.Camera.LookAt},
		{con.Camera.ValidUp(), "Camera.Up", con.Camera.Up},
		{con.Camera.ValidLens(), "Camera.Aperture", con.Camera.Aperture},
		{con.Camera.ValidOrbitDistance(), "Camera.OrbitDistance", con.Camera.OrbitDistance},
		{con.Shading.ValidLightDir(), "Shading.LightDir", con.Shading.LightDir},
		{con.Shading.ValidTint(), "Shading.Tint", con.Shading.Tint},
		{con.Shading.ValidBackground(), "Shading.Background", con.Shading.Background},
		{con.Sky.ValidScattering(), "Sky.RayleighScale", con.Sky.RayleighScale},
	}

	for _, check := range checks {
		if !check.valid {
			return fmt.Errorf("%w for %s: '%v'", ErrInvalidConfig, check.name, check.value)
		}
	}
	return nil
}

// Build the camera for a frame. If the scene defines a camera and FromScene
// is set, the scene camera is used as the base snapshot.
func (con *Config) BuildCamera(sceneCam *scene.Camera) (*scene.Camera, error) {
	width, height := uint32(con.Render.Width), uint32(con.Render.Height)

	var cam *scene.Camera
	if con.Camera.FromScene && sceneCam != nil {
		cam = sceneCam.WithResolution(width, height)
	} else {
		pos, err := ParseVec3(con.Camera.Position)
		if err != nil {
			return nil, err
		}
		lookAt, err := ParseVec3(con.Camera.LookAt)
		if err != nil {
			return nil, err
		}
		up, err := ParseVec3(con.Camera.Up)
		if err != nil {
			return nil, err
		}
		cam = scene.NewCamera(pos, lookAt, up, width, height)
		cam.FocalLength = float32(con.Camera.FocalLength)
		cam.SensorHeight = float32(con.Camera.SensorHeight)
		cam.Aperture = float32(con.Camera.Aperture)
		cam.FocusDistance = float32(con.Camera.FocusDistance)
	}

	if con.Camera.Orbit {
		cam = cam.Orbit(float32(con.Render.Time), float32(con.Camera.OrbitDistance))
	} else {
		cam = cam.WithTime(float32(con.Render.Time))
	}
	cam.Seed = uint32(con.Render.Seed)

	if err := cam.Validate(); err != nil {
		return nil, err
	}
	return cam, nil
}

// Build the shading parameters.
func (con *Config) BuildShading() (*kernel.Shading, error) {
	lightDir, err := ParseVec3(con.Shading.LightDir)
	if err != nil {
		return nil, err
	}
	tint, err := ParseVec3(con.Shading.Tint)
	if err != nil {
		return nil, err
	}
	background, err := ParseVec3(con.Shading.Background)
	if err != nil {
		return nil, err
	}

	shading := &kernel.Shading{
		LightDir:   lightDir.Normalize(),
		Tint:       tint,
		Background: background,
	}
	if con.Sky.Enabled {
		shading.Sky = &kernel.Sky{
			SunElevation:  float32(con.Sky.SunElevation),
			SunSpeed:      float32(con.Sky.SunSpeed),
			RayleighScale: float32(con.Sky.RayleighScale),
			MieScale:      float32(con.Sky.MieScale),
		}
	}
	return shading, nil
}

// Parse a vector written as three whitespace separated numbers.
func ParseVec3(val string) (types.Vec3, error) {
	fields := strings.Fields(val)
	if len(fields) != 3 {
		return types.Vec3{}, fmt.Errorf("%w '%s': expected 3 components; got %d", ErrInvalidVector, val, len(fields))
	}

	var v types.Vec3
	for i, field := range fields {
		c, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return types.Vec3{}, fmt.Errorf("%w '%s': %v", ErrInvalidVector, val, err)
		}
		v[i] = float32(c)
	}
	return v, nil
}
