package wgsl

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/tracer/kernel"
	"github.com/achilleasa/lumen/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelSources(t *testing.T) {
	assert.Equal(t, []string{RayGen, Trace}, Kernels())

	for _, name := range Kernels() {
		src, err := Source(name)
		require.NoError(t, err)
		assert.True(t, strings.Contains(src, "struct Camera"), "%s kernel is missing the shared declarations", name)
		assert.True(t, strings.Contains(src, "@workgroup_size(16, 16, 1)"), "%s kernel must use 16x16 workgroups", name)
	}

	// Hit normals are derived from the triangle vertices
	traceSrc, err := Source(Trace)
	require.NoError(t, err)
	assert.Contains(t, traceSrc, "fn triangle_normal(prim: u32)")
	assert.Contains(t, traceSrc, "dot(triangle_normal(best_prim), shading.light_dir)")
	assert.NotContains(t, traceSrc, ".normal")

	_, err = Source("denoise")
	assert.True(t, errors.Is(err, ErrUnknownKernel))
	_, err = Compile("denoise")
	assert.True(t, errors.Is(err, ErrUnknownKernel))
}

func TestCompileKernels(t *testing.T) {
	for _, name := range Kernels() {
		code, err := Compile(name)
		if err != nil {
			// naga does not support the full WGSL feature set yet
			t.Skipf("Skipping: naga could not compile %s kernel: %v", name, err)
		}

		require.NotEmpty(t, code)
		assert.Equal(t, uint32(0x07230203), code[0], "invalid SPIR-V magic for %s kernel", name)
	}
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x05, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 0x00010500}, words)

	words, err = spirvWords(nil)
	require.NoError(t, err)
	assert.Empty(t, words)

	_, err = spirvWords([]byte{0x03, 0x02, 0x23})
	assert.Error(t, err)
}

func TestDispatchSize(t *testing.T) {
	type spec struct {
		w, h       uint32
		expX, expY uint32
	}
	specs := []spec{
		{16, 16, 1, 1},
		{17, 16, 2, 1},
		{1, 1, 1, 1},
		{1920, 1080, 120, 68},
		{0, 0, 0, 0},
	}

	for index, s := range specs {
		x, y := DispatchSize(s.w, s.h)
		assert.Equal(t, s.expX, x, "[spec %d] x groups", index)
		assert.Equal(t, s.expY, y, "[spec %d] y groups", index)
	}
}

func TestEncodeCamera(t *testing.T) {
	cam := scene.NewCamera(types.Vec3{1, 2, 3}, types.Vec3{}, types.Vec3{0, 1, 0}, 640, 480)
	cam.Aperture = 0.25
	cam.FocusDistance = 4
	cam.Time = 1.5
	cam.Seed = 42

	buf := EncodeCamera(cam, true)
	require.Len(t, buf, SizeofCamera)

	assert.Equal(t, float32(1), float32At(buf, 0))
	assert.Equal(t, float32(3), float32At(buf, 8))
	assert.Equal(t, float32(0.25), float32At(buf, 12))
	assert.Equal(t, cam.Forward[0], float32At(buf, 16))
	assert.Equal(t, cam.FocalLength, float32At(buf, 28))
	assert.Equal(t, cam.SensorHeight, float32At(buf, 44))
	assert.Equal(t, float32(4), float32At(buf, 60))
	assert.Equal(t, uint32(640), uint32At(buf, 64))
	assert.Equal(t, uint32(480), uint32At(buf, 68))
	assert.Equal(t, uint32(42), uint32At(buf, 72))
	assert.Equal(t, float32(1.5), float32At(buf, 76))
	assert.Equal(t, uint32(1), uint32At(buf, 80))

	assert.Equal(t, uint32(0), uint32At(EncodeCamera(cam, false), 80))
}

func TestEncodeShading(t *testing.T) {
	shading := kernel.DefaultShading()
	buf := EncodeShading(shading)
	require.Len(t, buf, SizeofShading)
	assert.Equal(t, uint32(1), uint32At(buf, 12))
	assert.Equal(t, shading.Sky.SunElevation, float32At(buf, 28))
	assert.Equal(t, shading.Sky.SunSpeed, float32At(buf, 44))
	assert.Equal(t, shading.Sky.RayleighScale, float32At(buf, 48))
	assert.Equal(t, shading.Sky.MieScale, float32At(buf, 52))

	shading.Sky = nil
	shading.Background = types.Vec3{0.1, 0.2, 0.3}
	buf = EncodeShading(shading)
	require.Len(t, buf, SizeofShading)
	assert.Equal(t, uint32(0), uint32At(buf, 12))
	assert.Equal(t, float32(0.2), float32At(buf, 36))
}

func TestEncodeTriangles(t *testing.T) {
	triangles := []scene.Triangle{
		scene.NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}),
		scene.NewTriangle(types.Vec3{5, 6, 7}, types.Vec3{8, 9, 10}, types.Vec3{11, 12, 14}),
	}

	buf := EncodeTriangles(triangles)
	require.Len(t, buf, 2*SizeofTriangle)

	// Vertex w is 1; the trailing vec4 is zero padding
	assert.Equal(t, float32(1), float32At(buf, 12))
	assert.Equal(t, float32(1), float32At(buf, 16))
	assert.Equal(t, float32(1), float32At(buf, 44))
	for offset := 48; offset < SizeofTriangle; offset += 4 {
		assert.Equal(t, float32(0), float32At(buf, offset), "offset %d", offset)
	}

	assert.Equal(t, float32(5), float32At(buf, SizeofTriangle))
	assert.Equal(t, float32(14), float32At(buf, SizeofTriangle+40))
}

func TestEncodeNodes(t *testing.T) {
	nodes := make([]scene.BvhNode, 3)
	nodes[0].SetBBox([2]types.Vec3{{-1, -2, -3}, {1, 2, 3}})
	nodes[0].SetChildNodes(1)
	nodes[2].SetPrimitives(7, 3)

	buf := EncodeNodes(nodes)
	require.Len(t, buf, 3*SizeofNode)

	assert.Equal(t, float32(-3), float32At(buf, 8))
	assert.Equal(t, uint32(1), uint32At(buf, 12))
	assert.Equal(t, float32(2), float32At(buf, 20))
	assert.Equal(t, uint32(0), uint32At(buf, 28))

	assert.Equal(t, uint32(7), uint32At(buf, 2*SizeofNode+12))
	assert.Equal(t, uint32(3), uint32At(buf, 2*SizeofNode+28))
}

func TestEncodeBlock(t *testing.T) {
	buf := EncodeBlock(16, 32, 640, 480)
	require.Len(t, buf, SizeofBlock)
	assert.Equal(t, uint32(16), uint32At(buf, 0))
	assert.Equal(t, uint32(32), uint32At(buf, 4))
	assert.Equal(t, uint32(640), uint32At(buf, 8))
	assert.Equal(t, uint32(480), uint32At(buf, 12))
}

func uint32At(buf []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(buf[offset:])
}

func float32At(buf []byte, offset int) float32 {
	return math.Float32frombits(uint32At(buf, offset))
}
