package kernel

import (
	"math"
	"testing"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

var unitTriangle = scene.NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0})

func TestIntersectTriangle(t *testing.T) {
	type spec struct {
		origin types.Vec3
		dir    types.Vec3
		best   float32
		expHit bool
		expT   float32
	}

	specs := []spec{
		// Straight hit
		{types.Vec3{0.25, 0.25, -1}, types.Vec3{0, 0, 1}, infinity, true, 1},
		// Pointing away
		{types.Vec3{0.25, 0.25, -1}, types.Vec3{0, 0, -1}, infinity, false, 0},
		// Closer hit already known
		{types.Vec3{0.25, 0.25, -1}, types.Vec3{0, 0, 1}, 0.5, false, 0},
		// Outside the triangle (u+v > 1)
		{types.Vec3{0.75, 0.75, -1}, types.Vec3{0, 0, 1}, infinity, false, 0},
		// Outside the triangle (u < 0)
		{types.Vec3{-0.1, 0.25, -1}, types.Vec3{0, 0, 1}, infinity, false, 0},
		// Parallel to the triangle plane
		{types.Vec3{0.25, 0.25, -1}, types.Vec3{1, 0, 0}, infinity, false, 0},
		// Parallel and inside the triangle plane
		{types.Vec3{-1, 0.25, 0}, types.Vec3{1, 0, 0}, infinity, false, 0},
		// Back face hit
		{types.Vec3{0.25, 0.25, 2}, types.Vec3{0, 0, -1}, infinity, true, 2},
	}

	for index, s := range specs {
		ray := NewRay(s.origin, s.dir)
		tri := unitTriangle
		dist, hit := IntersectTriangle(&ray, &tri, s.best)
		if hit != s.expHit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", index, s.expHit, hit)
		}
		if hit && dist != s.expT {
			t.Fatalf("[spec %d] expected hit distance %f; got %f", index, s.expT, dist)
		}
	}
}

func TestIntersectDegenerateTriangle(t *testing.T) {
	tri := scene.NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{2, 0, 0})
	ray := NewRay(types.Vec3{0.5, 0, -1}, types.Vec3{0, 0, 1})
	if _, hit := IntersectTriangle(&ray, &tri, infinity); hit {
		t.Fatal("expected degenerate triangle to never be hit")
	}
}

func TestSelfIntersectionGuard(t *testing.T) {
	tri := unitTriangle

	// Origin on the surface; pointing away along either side of the plane.
	for _, dir := range []types.Vec3{{0, 0, 1}, {0, 0, -1}, {0.3, 0.2, 1}} {
		ray := NewRay(types.Vec3{0.25, 0.25, 0}, dir)
		if _, hit := IntersectTriangle(&ray, &tri, infinity); hit {
			t.Fatalf("expected ray leaving the surface along %v not to re-intersect the triangle", dir)
		}
	}
}

func TestIntersectAABB(t *testing.T) {
	min := types.Vec3{-1, -1, -1}
	max := types.Vec3{1, 1, 1}

	type spec struct {
		origin types.Vec3
		dir    types.Vec3
		best   float32
		expT   float32
	}

	specs := []spec{
		{types.Vec3{0, 0, -5}, types.Vec3{0, 0, 1}, infinity, 4},
		// Box behind the ray
		{types.Vec3{0, 0, -5}, types.Vec3{0, 0, -1}, infinity, NoHitDistance},
		// Box beyond the best hit
		{types.Vec3{0, 0, -5}, types.Vec3{0, 0, 1}, 3, NoHitDistance},
		// Zero direction components with origin outside the x slab
		{types.Vec3{2, 0, -5}, types.Vec3{0, 0, 1}, infinity, NoHitDistance},
		// Zero direction components with origin on the slab boundary
		{types.Vec3{1, 1, -5}, types.Vec3{0, 0, 1}, infinity, 4},
		// Origin inside the box
		{types.Vec3{0, 0, 0}, types.Vec3{0, 1, 0}, infinity, -1},
		// Diagonal miss
		{types.Vec3{-5, 3, 0}, types.Vec3{1, 0, 0}, infinity, NoHitDistance},
	}

	for index, s := range specs {
		ray := NewRay(s.origin, s.dir)
		if got := IntersectAABB(&ray, min, max, s.best); got != s.expT {
			t.Fatalf("[spec %d] expected entry distance %f; got %f", index, s.expT, got)
		}
	}
}

func TestIntersectAABBNegativeZeroDirection(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	ray := NewRay(types.Vec3{0, 0, -5}, types.Vec3{negZero, negZero, 1})

	got := IntersectAABB(&ray, types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1}, infinity)
	if got != 4 {
		t.Fatalf("expected entry distance 4; got %f", got)
	}
}
