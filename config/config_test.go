package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/tracer/kernel"
	"github.com/achilleasa/lumen/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	con, err := Parse(ExampleConfig)
	require.NoError(t, err)
	assert.Equal(t, Default(), con)
}

func TestParseOverridesDefaults(t *testing.T) {
	con, err := Parse(`[Render]
Width = 320
Height = 200
Jitter = true
Seed = 42

[Sky]
Enabled = false`)
	require.NoError(t, err)

	assert.Equal(t, 320, con.Render.Width)
	assert.Equal(t, 200, con.Render.Height)
	assert.True(t, con.Render.Jitter)
	assert.Equal(t, 42, con.Render.Seed)
	assert.False(t, con.Sky.Enabled)

	// Untouched values keep their defaults
	assert.Equal(t, 16, con.Render.GroupSize)
	assert.Equal(t, "frame.png", con.Render.Output)
}

func TestParseErrors(t *testing.T) {
	specs := []string{
		"[Render]\nWidth = nope",
		"[Render]\nUnknown = 1",
		"[Bogus]\nWidth = 1",
	}

	for index, src := range specs {
		_, err := Parse(src)
		assert.Error(t, err, "[spec %d]", index)
	}
}

func TestValidate(t *testing.T) {
	type spec struct {
		mutate  func(con *Config)
		expName string
	}
	specs := []spec{
		{func(con *Config) { con.Render.Width = 0 }, "Render.Width"},
		{func(con *Config) { con.Render.Height = -1 }, "Render.Height"},
		{func(con *Config) { con.Render.GroupSize = 8 }, "Render.GroupSize"},
		{func(con *Config) { con.Render.Tracers = -2 }, "Render.Tracers"},
		{func(con *Config) { con.Render.Seed = -1 }, "Render.Seed"},
		{func(con *Config) { con.Render.Seed = 0 }, "Render.Seed"},
		{func(con *Config) { con.Render.Scale = 0 }, "Render.Scale"},
		{func(con *Config) { con.Render.Output = "" }, "Render.Output"},
		{func(con *Config) { con.Camera.Position = "1 2" }, "Camera.Position"},
		{func(con *Config) { con.Camera.LookAt = "a b c" }, "Camera.LookAt"},
		{func(con *Config) { con.Camera.Up = "0 0 0" }, "Camera.Up"},
		{func(con *Config) { con.Camera.FocalLength = 0 }, "Camera.Aperture"},
		{func(con *Config) { con.Camera.Aperture = 0.1 }, "Camera.Aperture"},
		{func(con *Config) { con.Camera.Orbit, con.Camera.OrbitDistance = true, 0 }, "Camera.OrbitDistance"},
		{func(con *Config) { con.Shading.LightDir = "0 0 0" }, "Shading.LightDir"},
		{func(con *Config) { con.Shading.Tint = "" }, "Shading.Tint"},
		{func(con *Config) { con.Shading.Background = "1 1 1 1" }, "Shading.Background"},
		{func(con *Config) { con.Sky.MieScale = -1 }, "Sky.RayleighScale"},
	}

	for index, s := range specs {
		con := Default()
		s.mutate(con)
		err := con.Validate()
		require.Error(t, err, "[spec %d]", index)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "[spec %d] unexpected error type: %v", index, err)
		assert.Contains(t, err.Error(), s.expName, "[spec %d]", index)
	}

	// Aperture with a focus distance is accepted
	con := Default()
	con.Camera.Aperture = 0.1
	con.Camera.FocusDistance = 4
	assert.NoError(t, con.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.cfg")
	require.NoError(t, os.WriteFile(path, []byte("[Render]\nScale = 3\n"), 0644))

	con, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, con.Render.Scale)

	_, err = Load(filepath.Join(dir, "missing.cfg"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[Render]\nScale = 0\n"), 0644))
	_, err = Load(path)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestParseVec3(t *testing.T) {
	v, err := ParseVec3("  1.5 -2   3e-1 ")
	require.NoError(t, err)
	assert.Equal(t, types.Vec3{1.5, -2, 0.3}, v)

	for _, src := range []string{"", "1 2", "1 2 3 4", "1 x 3"} {
		_, err = ParseVec3(src)
		assert.True(t, errors.Is(err, ErrInvalidVector), "input %q: unexpected error %v", src, err)
	}
}

func TestBuildCamera(t *testing.T) {
	con := Default()
	con.Render.Width, con.Render.Height = 64, 32
	con.Render.Seed = 7
	con.Render.Time = 2

	cam, err := con.BuildCamera(nil)
	require.NoError(t, err)
	assert.Equal(t, types.Vec3{0, 0, -5}, cam.Position)
	assert.True(t, types.ApproxEqual(cam.Forward, types.Vec3{0, 0, 1}, 1e-6))
	assert.Equal(t, uint32(64), cam.Width)
	assert.Equal(t, uint32(32), cam.Height)
	assert.Equal(t, uint32(7), cam.Seed)
	assert.Equal(t, float32(2), cam.Time)

	// Scene cameras take precedence when FromScene is set
	sceneCam := scene.NewCamera(types.Vec3{3, 0, 0}, types.Vec3{}, types.Vec3{0, 1, 0}, 1, 1)
	cam, err = con.BuildCamera(sceneCam)
	require.NoError(t, err)
	assert.Equal(t, types.Vec3{3, 0, 0}, cam.Position)
	assert.Equal(t, uint32(64), cam.Width)
	assert.Equal(t, uint32(1), sceneCam.Width, "scene camera should not be modified")

	con.Camera.FromScene = false
	cam, err = con.BuildCamera(sceneCam)
	require.NoError(t, err)
	assert.Equal(t, types.Vec3{0, 0, -5}, cam.Position)

	// Orbiting cameras look at the origin from OrbitDistance
	con.Camera.Orbit = true
	con.Camera.OrbitDistance = 10
	cam, err = con.BuildCamera(nil)
	require.NoError(t, err)
	assert.InDelta(t, 10, cam.Position.Len(), 1e-4)
	assert.True(t, types.ApproxEqual(cam.Forward, cam.Position.Mul(-1).Normalize(), 1e-5))
}

func TestBuildShading(t *testing.T) {
	con := Default()
	shading, err := con.BuildShading()
	require.NoError(t, err)
	assert.True(t, types.ApproxEqual(shading.LightDir, kernel.DefaultLightDir.Normalize(), 1e-6))
	assert.Equal(t, types.Vec3{1, 1, 1}, shading.Tint)
	require.NotNil(t, shading.Sky)
	assert.Equal(t, *kernel.NewSky(), *shading.Sky)

	con.Sky.Enabled = false
	con.Shading.Background = "0.2 0.4 0.6"
	shading, err = con.BuildShading()
	require.NoError(t, err)
	assert.Nil(t, shading.Sky)
	assert.Equal(t, types.Vec3{0.2, 0.4, 0.6}, shading.Background)
}
