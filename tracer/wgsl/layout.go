package wgsl

import (
	"encoding/binary"
	"math"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/tracer/kernel"
	"github.com/achilleasa/lumen/types"
)

// Sizes of the GPU structs in bytes.
const (
	SizeofBlock    = 16
	SizeofCamera   = 96
	SizeofShading  = 64
	SizeofTriangle = 64
	SizeofNode     = 32
	SizeofRay      = 32
)

// Number of workgroups needed to cover a w x h region. Invocations past the
// region edge exit without writing.
func DispatchSize(w, h uint32) (x, y uint32) {
	return (w + WorkgroupSize - 1) / WorkgroupSize, (h + WorkgroupSize - 1) / WorkgroupSize
}

// Encode the block uniform. Must match Block in common.wgsl.
func EncodeBlock(originY, height, frameW, frameH uint32) []byte {
	buf := make([]byte, 0, SizeofBlock)
	buf = putUint32(buf, originY, height, frameW, frameH)
	return buf
}

// Encode the camera uniform. Must match Camera in common.wgsl.
func EncodeCamera(cam *scene.Camera, jitter bool) []byte {
	buf := make([]byte, 0, SizeofCamera)
	buf = putVec3(buf, cam.Position)
	buf = putFloat32(buf, cam.Aperture)
	buf = putVec3(buf, cam.Forward)
	buf = putFloat32(buf, cam.FocalLength)
	buf = putVec3(buf, cam.Side)
	buf = putFloat32(buf, cam.SensorHeight)
	buf = putVec3(buf, cam.Up)
	buf = putFloat32(buf, cam.FocusDistance)
	buf = putUint32(buf, cam.Width, cam.Height, cam.Seed)
	buf = putFloat32(buf, cam.Time)
	buf = putUint32(buf, boolToUint32(jitter), 0, 0, 0)
	return buf
}

// Encode the shading uniform. Must match Shading in common.wgsl.
func EncodeShading(shading *kernel.Shading) []byte {
	sky := shading.Sky
	var skyEnabled uint32
	if sky != nil {
		skyEnabled = 1
	} else {
		sky = &kernel.Sky{}
	}

	buf := make([]byte, 0, SizeofShading)
	buf = putVec3(buf, shading.LightDir)
	buf = putUint32(buf, skyEnabled)
	buf = putVec3(buf, shading.Tint)
	buf = putFloat32(buf, sky.SunElevation)
	buf = putVec3(buf, shading.Background)
	buf = putFloat32(buf, sky.SunSpeed)
	buf = putFloat32(buf, sky.RayleighScale, sky.MieScale, 0, 0)
	return buf
}

// Encode the triangle storage buffer. Each triangle stores its vertices as
// vec4s followed by a padding vec4; normals are recomputed by the kernel.
// Must match Triangle in trace.wgsl.
func EncodeTriangles(triangles []scene.Triangle) []byte {
	buf := make([]byte, 0, len(triangles)*SizeofTriangle)
	for _, tri := range triangles {
		for _, v := range tri.Vertices {
			buf = putVec3(buf, v)
			buf = putFloat32(buf, 1)
		}
		buf = putFloat32(buf, 0, 0, 0, 0)
	}
	return buf
}

// Encode the BVH node storage buffer. Must match BvhNode in trace.wgsl.
func EncodeNodes(nodes []scene.BvhNode) []byte {
	buf := make([]byte, 0, len(nodes)*SizeofNode)
	for _, node := range nodes {
		buf = putVec3(buf, node.Min)
		buf = putUint32(buf, node.LeftFirst)
		buf = putVec3(buf, node.Max)
		buf = putUint32(buf, node.Count)
	}
	return buf
}

func putVec3(buf []byte, v types.Vec3) []byte {
	return putFloat32(buf, v[0], v[1], v[2])
}

func putFloat32(buf []byte, values ...float32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func putUint32(buf []byte, values ...uint32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

func boolToUint32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
