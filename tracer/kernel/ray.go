package kernel

import (
	"math"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

// Distance returned by IntersectAABB when the box is missed. It is larger
// than any distance that can be reported as a hit.
const NoHitDistance float32 = math.MaxFloat32

// A ray with a precomputed reciprocal direction.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
	InvDir types.Vec3
}

// Create a ray for traversal. The direction is normalized so that hit
// distances are measured in world units.
func NewRay(origin, dir types.Vec3) Ray {
	dir = dir.Normalize()
	return Ray{
		Origin: origin,
		Dir:    dir,
		InvDir: dir.Reciprocal(),
	}
}

// A ray/triangle intersection.
type Hit struct {
	// Index of the intersected triangle.
	Prim uint32

	// Distance from the ray origin.
	T float32
}

// Get the world space hit location.
func (h Hit) Point(ray Ray) types.Vec3 {
	return ray.Origin.Add(ray.Dir.Mul(h.T))
}

// Get the normal of the hit triangle.
func (h Hit) Normal(sc *scene.Scene) types.Vec3 {
	return sc.TriangleNormal(h.Prim)
}
