// Package kernel contains the per-pixel ray tracing kernels. Kernels are
// total functions: they never allocate on the heap, never block and never
// return errors. They operate on scenes that have already passed
// scene.Validate.
package kernel

import (
	"math"

	"github.com/achilleasa/lumen/scene"
)

var infinity = float32(math.Inf(1))

type stackEntry struct {
	node uint32
	t    float32
}

// Counters collected while traversing the BVH.
type TraversalStats struct {
	NodesVisited    uint32
	LeafsVisited    uint32
	TrianglesTested uint32
}

// Add the counters of another traversal.
func (s *TraversalStats) Add(other TraversalStats) {
	s.NodesVisited += other.NodesVisited
	s.LeafsVisited += other.LeafsVisited
	s.TrianglesTested += other.TrianglesTested
}

// Find the closest triangle intersected by ray. Returns false if no triangle
// is hit. Triangle index 0 is a valid result.
func Traverse(sc *scene.Scene, ray *Ray) (Hit, bool) {
	return traverse(sc, ray, nil)
}

// Find the closest intersection and update stats with the work performed.
func TraverseWithStats(sc *scene.Scene, ray *Ray, stats *TraversalStats) (Hit, bool) {
	return traverse(sc, ray, stats)
}

func traverse(sc *scene.Scene, ray *Ray, stats *TraversalStats) (Hit, bool) {
	if sc.IsEmpty() {
		return Hit{}, false
	}

	nodes := sc.Nodes
	best := infinity
	var bestPrim uint32
	found := false

	// A ray that misses the root box cannot hit anything below it.
	if IntersectAABB(ray, nodes[0].Min, nodes[0].Max, best) == NoHitDistance {
		return Hit{}, false
	}

	var stack [scene.MaxDepth]stackEntry
	top := 0
	current := uint32(0)

	for {
		node := &nodes[current]
		if stats != nil {
			stats.NodesVisited++
		}

		if node.Count > 0 {
			if stats != nil {
				stats.LeafsVisited++
				stats.TrianglesTested += node.Count
			}
			last := node.LeftFirst + node.Count
			for prim := node.LeftFirst; prim < last; prim++ {
				if t, ok := IntersectTriangle(ray, &sc.Triangles[prim], best); ok {
					best = t
					bestPrim = prim
					found = true
				}
			}
		} else {
			left, right := node.Children()
			near, far := left, right
			tNear := IntersectAABB(ray, nodes[left].Min, nodes[left].Max, best)
			tFar := IntersectAABB(ray, nodes[right].Min, nodes[right].Max, best)
			if tFar < tNear {
				near, far = far, near
				tNear, tFar = tFar, tNear
			}

			if tNear != NoHitDistance {
				if tFar != NoHitDistance {
					stack[top] = stackEntry{node: far, t: tFar}
					top++
				}
				current = near
				continue
			}
		}

		// Pop the next entry, skipping any that were pushed before a
		// closer hit was found.
		popped := false
		for top > 0 {
			top--
			if stack[top].t < best {
				current = stack[top].node
				popped = true
				break
			}
		}
		if !popped {
			break
		}
	}

	if !found {
		return Hit{}, false
	}
	return Hit{Prim: bestPrim, T: best}, true
}

// Test the ray against every triangle in the scene. Used as a reference for
// validating BVH traversal.
func BruteForce(sc *scene.Scene, ray *Ray) (Hit, bool) {
	best := infinity
	var bestPrim uint32
	found := false
	for prim := range sc.Triangles {
		if t, ok := IntersectTriangle(ray, &sc.Triangles[prim], best); ok {
			best = t
			bestPrim = uint32(prim)
			found = true
		}
	}

	if !found {
		return Hit{}, false
	}
	return Hit{Prim: bestPrim, T: best}, true
}
