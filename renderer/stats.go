package renderer

import "time"

type TracerStat struct {
	// The tracer id.
	Id string

	// True if this is the primary tracer; it receives any rows left over
	// by the block scheduler.
	IsPrimary bool

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block
	RenderTime time.Duration

	// Primary rays traced and rays that hit the scene.
	Rays uint64
	Hits uint64

	// BVH nodes visited while tracing the block.
	NodesVisited uint64
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for entire frame.
	RenderTime time.Duration

	// Number of frames rendered so far.
	Frame uint64
}
