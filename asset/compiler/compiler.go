package compiler

import (
	"fmt"
	"time"

	"github.com/achilleasa/lumen/asset/compiler/bvh"
	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/scene"
)

// The maximum number of triangles stored in a BVH leaf.
const MaxLeafTriangles = 3

type sceneCompiler struct {
	triangles      []scene.Triangle
	optimizedScene *scene.Scene
	logger         log.Logger
}

// Compile a triangle soup into a GPU-friendly scene: a flat BVH node list
// and a triangle list reordered so that each leaf covers a contiguous range.
func Compile(triangles []scene.Triangle) (*scene.Scene, error) {
	compiler := &sceneCompiler{
		triangles:      triangles,
		optimizedScene: &scene.Scene{},
		logger:         log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene (%d triangles)", len(triangles))

	compiler.partitionGeometry()

	if err := compiler.optimizedScene.Validate(); err != nil {
		return nil, fmt.Errorf("compiler: generated an invalid bvh: %w", err)
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Build a BVH tree for the scene geometry and copy the triangles into the
// optimized scene in leaf order.
func (sc *sceneCompiler) partitionGeometry() {
	start := time.Now()
	sc.logger.Infof("building scene BVH tree (%d triangles)", len(sc.triangles))

	volList := make([]bvh.BoundedVolume, len(sc.triangles))
	for index, tri := range sc.triangles {
		volList[index] = tri
	}

	ordered := make([]scene.Triangle, 0, len(sc.triangles))
	nodes, stats := bvh.Build(volList, MaxLeafTriangles, func(node *scene.BvhNode, workList []bvh.BoundedVolume) {
		node.SetPrimitives(uint32(len(ordered)), uint32(len(workList)))
		for _, workItem := range workList {
			ordered = append(ordered, workItem.(scene.Triangle))
		}
	}, bvh.SurfaceAreaHeuristic)

	sc.optimizedScene.Nodes = nodes
	sc.optimizedScene.Triangles = ordered

	if stats.ForcedLeafs > 0 {
		sc.logger.Warningf("BVH depth limit reached; created %d leafs holding more than %d triangles", stats.ForcedLeafs, MaxLeafTriangles)
	}
	sc.logger.Infof(
		"partitioned geometry in %d ms (nodes: %d, leafs: %d, max depth: %d)",
		time.Since(start).Nanoseconds()/1e6, stats.Nodes, stats.Leafs, stats.MaxDepth,
	)
}
