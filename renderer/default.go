package renderer

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/tracer"
	"github.com/achilleasa/lumen/tracer/kernel"
)

// A renderer that splits each frame into horizontal blocks and distributes
// them to a set of tracers.
type defaultRenderer struct {
	sync.Mutex

	logger log.Logger

	options Options

	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer

	// The scene shared by all tracers.
	scene *scene.Scene

	// Camera snapshot waiting to be sent to the tracers.
	pendingCamera *scene.Camera

	// Frame buffer shared by all tracers.
	frameBuffer []uint8
	frame       *image.RGBA

	// Block assignments for the last frame.
	blockAssignments []uint32

	stats FrameStats
}

// Create a new default renderer using the specified block scheduler and
// tracers. The renderer takes ownership of the tracers.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, tracers []tracer.Tracer, opts Options) (Renderer, error) {
	if len(tracers) == 0 {
		return nil, ErrNoTracers
	}
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		opts.FrameW, opts.FrameH = sc.Camera.Width, sc.Camera.Height
	}
	if opts.Shading == nil {
		opts.Shading = kernel.DefaultShading()
	}

	camera := sc.Camera.WithResolution(opts.FrameW, opts.FrameH)
	if err := camera.Validate(); err != nil {
		return nil, err
	}

	r := &defaultRenderer{
		logger:      log.New("renderer"),
		options:     opts,
		scheduler:   scheduler,
		tracers:     tracers,
		scene:       sc,
		frameBuffer: make([]uint8, opts.FrameW*opts.FrameH*4),
	}
	r.frame = &image.RGBA{
		Pix:    r.frameBuffer,
		Stride: int(opts.FrameW) * 4,
		Rect:   image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH)),
	}

	for _, tr := range tracers {
		if err := tr.Setup(opts.FrameW, opts.FrameH, r.frameBuffer); err != nil {
			r.Close()
			return nil, fmt.Errorf("renderer: could not setup tracer %s: %w", tr.Id(), err)
		}
		tr.AppendChange(tracer.SetScene, sc)
		tr.AppendChange(tracer.SetShading, opts.Shading)
		tr.AppendChange(tracer.UpdateCamera, camera)
	}

	r.logger.Infof("attached %d tracer(s) for a %dx%d frame", len(tracers), opts.FrameW, opts.FrameH)
	return r, nil
}

// Render a frame.
func (r *defaultRenderer) Render(ctx context.Context) error {
	r.Lock()
	defer r.Unlock()

	// Frames are only abandoned before any block has been dispatched or
	// after every dispatched block has completed.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	if r.pendingCamera != nil {
		for _, tr := range r.tracers {
			tr.AppendChange(tracer.UpdateCamera, r.pendingCamera)
		}
		r.pendingCamera = nil
	}

	start := time.Now()
	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))

	var blockY uint32 = 0
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}
		tr.Enqueue(tracer.BlockRequest{
			BlockY:   blockY,
			BlockH:   blockH,
			FrameW:   r.options.FrameW,
			FrameH:   r.options.FrameH,
			Jitter:   r.options.Jitter,
			DoneChan: doneChan,
			ErrChan:  errChan,
		})
		blockY += blockH
		pending++
	}

	var renderErr error
	interrupted := false
	ctxDone := ctx.Done()
	for pending > 0 {
		select {
		case <-doneChan:
			pending--
		case err := <-errChan:
			pending--
			if renderErr == nil {
				renderErr = err
			}
		case <-ctxDone:
			// Wait for in-flight blocks so no tracer writes to the
			// frame buffer after we return.
			interrupted = true
			ctxDone = nil
		}
	}

	if renderErr != nil {
		return fmt.Errorf("renderer: frame %d failed: %w", r.stats.Frame, renderErr)
	}

	r.updateStats(time.Since(start))
	if interrupted {
		return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}

	r.logger.Debugf("frame %d rendered in %d ms", r.stats.Frame, r.stats.RenderTime.Nanoseconds()/1e6)
	return nil
}

// Get the last rendered frame.
func (r *defaultRenderer) Frame() *image.RGBA {
	return r.frame
}

// Queue a camera snapshot for the next frame. The snapshot is resized to the
// frame dimensions if required.
func (r *defaultRenderer) UpdateCamera(camera *scene.Camera) {
	if camera == nil {
		return
	}

	r.Lock()
	defer r.Unlock()
	if camera.Width != r.options.FrameW || camera.Height != r.options.FrameH {
		camera = camera.WithResolution(r.options.FrameW, r.options.FrameH)
	}
	r.pendingCamera = camera
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	r.Lock()
	defer r.Unlock()

	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	r.Lock()
	defer r.Unlock()

	stats := r.stats
	stats.Tracers = append([]TracerStat(nil), r.stats.Tracers...)
	return stats
}

func (r *defaultRenderer) updateStats(renderTime time.Duration) {
	r.stats.Frame++
	r.stats.RenderTime = renderTime
	r.stats.Tracers = r.stats.Tracers[:0]

	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		stat := TracerStat{
			Id:           tr.Id(),
			IsPrimary:    idx == 0,
			BlockH:       blockH,
			FramePercent: 100.0 * float32(blockH) / float32(r.options.FrameH),
		}
		if blockH > 0 {
			trStats := tr.Stats()
			stat.RenderTime = trStats.RenderTime
			stat.Rays = trStats.Rays
			stat.Hits = trStats.Hits
			stat.NodesVisited = trStats.NodesVisited
		}
		r.stats.Tracers = append(r.stats.Tracers, stat)
	}
}
