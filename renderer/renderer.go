package renderer

import (
	"context"
	"image"

	"github.com/achilleasa/lumen/scene"
)

type Renderer interface {
	// Render a frame. Cancelling ctx abandons the frame between dispatches.
	Render(ctx context.Context) error

	// Get the last rendered frame. The returned image shares its pixels
	// with the renderer and is overwritten by the next call to Render.
	Frame() *image.RGBA

	// Queue a camera snapshot for the next frame.
	UpdateCamera(*scene.Camera)

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
