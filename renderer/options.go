package renderer

import "github.com/achilleasa/lumen/tracer/kernel"

type Options struct {
	// Frame dims. If zero, the scene camera resolution is used.
	FrameW uint32
	FrameH uint32

	// Enable sub-pixel jitter for primary rays.
	Jitter bool

	// Shading parameters; defaults to kernel.DefaultShading().
	Shading *kernel.Shading
}
