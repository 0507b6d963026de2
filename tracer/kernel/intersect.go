package kernel

import (
	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

// Hits closer than this are ignored so rays leaving a surface do not
// re-intersect it.
const Epsilon float32 = 1e-8

// Intersect a ray with a triangle using the Möller-Trumbore algorithm. Only
// hits with Epsilon < t < best are reported.
//
// Every test is written in "accept only if" form so NaNs produced by rays
// parallel to the triangle plane are rejected.
func IntersectTriangle(ray *Ray, tri *scene.Triangle, best float32) (float32, bool) {
	v0 := tri.Vertices[0]
	e1 := tri.Vertices[1].Sub(v0)
	e2 := tri.Vertices[2].Sub(v0)

	h := ray.Dir.Cross(e2)
	f := 1.0 / e1.Dot(h)

	s := ray.Origin.Sub(v0)
	u := f * s.Dot(h)
	if !(u >= 0 && u <= 1) {
		return 0, false
	}

	q := s.Cross(e1)
	v := f * ray.Dir.Dot(q)
	if !(v >= 0 && u+v <= 1) {
		return 0, false
	}

	t := f * e2.Dot(q)
	if !(t > Epsilon && t < best) {
		return 0, false
	}
	return t, true
}

// Intersect a ray with an axis aligned box using the slab test. Returns the
// entry distance or NoHitDistance if the box is missed or lies beyond best.
// The entry distance is negative when the ray origin is inside the box.
//
// Axes where the ray direction is zero are handled explicitly: the axis does
// not constrain the ray if the origin lies within the slab, otherwise the box
// is missed. This avoids 0 * Inf.
func IntersectAABB(ray *Ray, min, max types.Vec3, best float32) float32 {
	tNear := -NoHitDistance
	tFar := NoHitDistance

	for axis := 0; axis < 3; axis++ {
		if ray.Dir[axis] == 0 {
			if ray.Origin[axis] < min[axis] || ray.Origin[axis] > max[axis] {
				return NoHitDistance
			}
			continue
		}

		t0 := (min[axis] - ray.Origin[axis]) * ray.InvDir[axis]
		t1 := (max[axis] - ray.Origin[axis]) * ray.InvDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
	}

	if tFar >= tNear && tNear < best && tFar > 0 {
		return tNear
	}
	return NoHitDistance
}
