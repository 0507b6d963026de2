package tracer

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidFrameSize   = errors.New("tracer: frame dimensions must be greater than zero")
	ErrFrameBufferSize    = errors.New("tracer: frame buffer size does not match frame dimensions")
	ErrNotSetUp           = errors.New("tracer: tracer has not been set up")
	ErrSceneNotDefined    = errors.New("tracer: no scene defined")
	ErrCameraNotDefined   = errors.New("tracer: no camera defined")
	ErrBlockOutOfBounds   = errors.New("tracer: block request exceeds frame bounds")
	ErrUnsupportedPayload = errors.New("tracer: unsupported change payload")
	ErrTracerBusy         = errors.New("tracer: worker did not accept block request")
)

// The type of a change appended to a tracer's update buffer.
type ChangeType uint8

const (
	// Replace the scene buffers; payload is *scene.Scene.
	SetScene ChangeType = iota

	// Replace the camera snapshot; payload is *scene.Camera.
	UpdateCamera

	// Replace the shading parameters; payload is *kernel.Shading.
	SetShading

	// Total number of change types.
	NumChangeTypes
)

func (ct ChangeType) String() string {
	switch ct {
	case SetScene:
		return "SetScene"
	case UpdateCamera:
		return "UpdateCamera"
	case SetShading:
		return "SetShading"
	}
	return fmt.Sprintf("ChangeType(%d)", uint8(ct))
}

// A unit of work that is processed by a tracer: a horizontal band of the frame.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// Frame dimensions.
	FrameW uint32
	FrameH uint32

	// Enable sub-pixel jitter for primary rays.
	Jitter bool

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Validate the block against the frame dimensions.
func (br *BlockRequest) Validate() error {
	if br.FrameW == 0 || br.FrameH == 0 {
		return ErrInvalidFrameSize
	}
	if uint64(br.BlockY)+uint64(br.BlockH) > uint64(br.FrameH) {
		return fmt.Errorf("%w: rows [%d, %d) with frame height %d", ErrBlockOutOfBounds, br.BlockY, uint64(br.BlockY)+uint64(br.BlockH), br.FrameH)
	}
	return nil
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block
	RenderTime time.Duration

	// Primary rays traced and rays that hit the scene.
	Rays uint64
	Hits uint64

	// BVH traversal counters.
	NodesVisited    uint64
	TrianglesTested uint64
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline (single core) implementation.
	SpeedEstimate() float32

	// Setup the tracer. The frame buffer holds frameW * frameH RGBA8
	// pixels; each traced pixel is written exactly once per block.
	Setup(frameW, frameH uint32, frameBuffer []uint8) error

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Changes of the same
	// type replace each other.
	AppendChange(ChangeType, interface{})

	// Apply all pending changes from the update buffer.
	ApplyPendingChanges() error

	// Retrieve last block statistics.
	Stats() *Stats
}
