package cpu

import (
	"time"

	"github.com/achilleasa/lumen/tracer"
	"github.com/achilleasa/lumen/tracer/kernel"
)

// A pipeline stage runs one dispatch over the block and returns the time it
// took to complete.
type PipelineStage func(tr *cpuTracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The default pipeline: generate, intersect and shade primary rays.
func DefaultPipeline() []PipelineStage {
	return []PipelineStage{
		GeneratePrimaryRays(),
		IntersectPrimaryRays(),
		ShadeHits(),
	}
}

func blockGrid(blockReq *tracer.BlockRequest) grid {
	return grid{
		originY: blockReq.BlockY,
		width:   blockReq.FrameW,
		height:  blockReq.BlockH,
	}
}

// Generate a primary ray for each pixel of the block into the ray buffer.
func GeneratePrimaryRays() PipelineStage {
	return func(tr *cpuTracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		cam := tr.camera
		jitter := blockReq.Jitter
		err := dispatch(blockGrid(blockReq), tr.groupSize, tr.workers, &tr.counters, func(x, y uint32, gc *groupCounters) {
			origin, dir := kernel.GeneratePrimaryRay(cam, x, y, jitter)
			tr.rays[y*tr.frameW+x] = kernel.NewRay(origin, dir)
			gc.rays++
		})
		return time.Since(start), err
	}
}

// Find the closest intersection for each ray in the ray buffer.
func IntersectPrimaryRays() PipelineStage {
	return func(tr *cpuTracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		sc := tr.sceneData
		err := dispatch(blockGrid(blockReq), tr.groupSize, tr.workers, &tr.counters, func(x, y uint32, gc *groupCounters) {
			index := y*tr.frameW + x
			var stats kernel.TraversalStats
			hit, ok := kernel.TraverseWithStats(sc, &tr.rays[index], &stats)
			tr.hits[index] = hitRecord{hit: hit, ok: ok}

			gc.nodesVisited += uint64(stats.NodesVisited)
			gc.trianglesTested += uint64(stats.TrianglesTested)
			if ok {
				gc.hits++
			}
		})
		return time.Since(start), err
	}
}

// Shade each traversal result and write it to the frame buffer.
func ShadeHits() PipelineStage {
	return func(tr *cpuTracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		sc := tr.sceneData
		shading := tr.shading
		camTime := tr.camera.Time
		err := dispatch(blockGrid(blockReq), tr.groupSize, tr.workers, &tr.counters, func(x, y uint32, _ *groupCounters) {
			index := y*tr.frameW + x
			rec := tr.hits[index]
			c := kernel.Shade(sc, &tr.rays[index], rec.hit, rec.ok, camTime, shading)

			offset := index * 4
			tr.frameBuffer[offset] = c.R
			tr.frameBuffer[offset+1] = c.G
			tr.frameBuffer[offset+2] = c.B
			tr.frameBuffer[offset+3] = c.A
		})
		return time.Since(start), err
	}
}
