package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/tracer"
	"github.com/achilleasa/lumen/tracer/kernel"
)

// Supported work group sizes.
const (
	GroupSize16 uint32 = 16
	GroupSize32 uint32 = 32
)

// Tracer options.
type Options struct {
	// Work group edge in pixels (16 or 32). Defaults to 16.
	GroupSize uint32

	// Number of work groups executing in parallel. Defaults to GOMAXPROCS.
	Workers int

	// Speed estimate reported to the block scheduler. Defaults to the
	// number of workers.
	SpeedEstimate float32

	// Pipeline stages; defaults to DefaultPipeline().
	Pipeline []PipelineStage
}

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	groupSize uint32
	workers   int
	speed     float32

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateMu     sync.Mutex
	updateBuffer map[tracer.ChangeType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline []PipelineStage

	// Frame setup.
	frameW      uint32
	frameH      uint32
	frameBuffer []uint8

	// Intermediate buffers shared by the pipeline stages; one entry per
	// frame pixel.
	rays []kernel.Ray
	hits []hitRecord

	// Uploaded state.
	sceneData *scene.Scene
	camera    *scene.Camera
	shading   *kernel.Shading

	// Counters accumulated by the stages of the block being rendered.
	counters blockCounters
}

type hitRecord struct {
	hit kernel.Hit
	ok  bool
}

// Create a new cpu tracer.
func NewTracer(id string, opts Options) (tracer.Tracer, error) {
	switch opts.GroupSize {
	case 0:
		opts.GroupSize = GroupSize16
	case GroupSize16, GroupSize32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidGroupSize, opts.GroupSize)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.SpeedEstimate <= 0 {
		opts.SpeedEstimate = float32(opts.Workers)
	}
	if opts.Pipeline == nil {
		opts.Pipeline = DefaultPipeline()
	}

	tr := &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		groupSize:    opts.GroupSize,
		workers:      opts.Workers,
		speed:        opts.SpeedEstimate,
		blockReqChan: make(chan tracer.BlockRequest, 1),
		updateBuffer: make(map[tracer.ChangeType]interface{}, 0),
		stats:        &tracer.Stats{},
		pipeline:     opts.Pipeline,
		shading:      kernel.DefaultShading(),
	}

	return tr, nil
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Get the computation speed estimate.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return tr.speed
}

// Allocate the intermediate buffers for a frame and start the worker.
func (tr *cpuTracer) Setup(frameW, frameH uint32, frameBuffer []uint8) error {
	if frameW == 0 || frameH == 0 {
		return tracer.ErrInvalidFrameSize
	}
	pixels := int(frameW) * int(frameH)
	if len(frameBuffer) != pixels*4 {
		return fmt.Errorf("%w: expected %d bytes; got %d", tracer.ErrFrameBufferSize, pixels*4, len(frameBuffer))
	}

	tr.Lock()
	defer tr.Unlock()

	tr.frameW = frameW
	tr.frameH = frameH
	tr.frameBuffer = frameBuffer
	if cap(tr.rays) < pixels {
		tr.rays = make([]kernel.Ray, pixels)
		tr.hits = make([]hitRecord, pixels)
	}
	tr.rays = tr.rays[:pixels]
	tr.hits = tr.hits[:pixels]

	if tr.closeChan == nil {
		tr.startWorker()
	}

	tr.logger.Debugf("allocated buffers for %dx%d frame (group size %d, %d workers)", frameW, frameH, tr.groupSize, tr.workers)
	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *cpuTracer) cleanup() {
	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		tr.wg.Wait()
		close(tr.closeChan)
		tr.closeChan = nil
	}

	tr.rays = nil
	tr.hits = nil
	tr.frameBuffer = nil
	tr.sceneData = nil
	tr.camera = nil
}

// Enqueue block request.
func (tr *cpuTracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
		if blockReq.ErrChan != nil {
			select {
			case blockReq.ErrChan <- tracer.ErrTracerBusy:
			default:
			}
		}
	}
}

// Append a change to the tracer's update buffer.
func (tr *cpuTracer) AppendChange(changeType tracer.ChangeType, data interface{}) {
	tr.updateMu.Lock()
	defer tr.updateMu.Unlock()
	tr.updateBuffer[changeType] = data
}

// Apply all pending changes from the update buffer. Must not be called while
// a block is being rendered.
func (tr *cpuTracer) ApplyPendingChanges() error {
	return tr.commitUpdates()
}

// Retrieve last block statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes. Changes with an unsupported payload are discarded
// and reported after the remaining changes have been applied.
func (tr *cpuTracer) commitUpdates() error {
	tr.updateMu.Lock()
	pending := tr.updateBuffer
	tr.updateBuffer = make(map[tracer.ChangeType]interface{}, 0)
	tr.updateMu.Unlock()

	var err error
	for changeType, data := range pending {
		var ok bool
		switch changeType {
		case tracer.SetScene:
			var sc *scene.Scene
			if sc, ok = data.(*scene.Scene); ok && sc != nil {
				tr.sceneData = sc
				if sc.Camera != nil && tr.camera == nil {
					tr.camera = sc.Camera
				}
			}
		case tracer.UpdateCamera:
			var cam *scene.Camera
			if cam, ok = data.(*scene.Camera); ok && cam != nil {
				tr.camera = cam
			}
		case tracer.SetShading:
			var shading *kernel.Shading
			if shading, ok = data.(*kernel.Shading); ok && shading != nil {
				tr.shading = shading
			}
		}

		if !ok {
			err = fmt.Errorf("%w: %T for change %s", tracer.ErrUnsupportedPayload, data, changeType)
			continue
		}
		tr.logger.Debugf("applied change %s", changeType)
	}

	return err
}

// Spawn a go-routine to process block render requests. This method is meant
// to be called while holding tr.Lock()
func (tr *cpuTracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}

	closeChan := make(chan struct{}, 0)
	tr.closeChan = closeChan
	readyChan := make(chan struct{}, 0)
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()

				// Apply any pending changes and render block
				err = tr.commitUpdates()
				if err == nil {
					err = tr.renderBlock(&blockReq)
				}

				if err != nil {
					tr.logger.Errorf("block [%d, %d) failed: %v", blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, err)
					if blockReq.ErrChan != nil {
						blockReq.ErrChan <- err
					}
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)
				tr.stats.Rays = tr.counters.rays.Load()
				tr.stats.Hits = tr.counters.hits.Load()
				tr.stats.NodesVisited = tr.counters.nodesVisited.Load()
				tr.stats.TrianglesTested = tr.counters.trianglesTested.Load()

				if blockReq.DoneChan != nil {
					blockReq.DoneChan <- blockReq.BlockH
				}
			case <-closeChan:
				// Ack close
				closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block.
func (tr *cpuTracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if err := blockReq.Validate(); err != nil {
		return err
	}
	if tr.frameBuffer == nil {
		return tracer.ErrNotSetUp
	}
	if blockReq.FrameW != tr.frameW || blockReq.FrameH != tr.frameH {
		return fmt.Errorf("%w: block targets %dx%d frame; tracer set up for %dx%d", tracer.ErrFrameBufferSize, blockReq.FrameW, blockReq.FrameH, tr.frameW, tr.frameH)
	}
	if tr.sceneData == nil {
		return tracer.ErrSceneNotDefined
	}
	if tr.camera == nil {
		return tracer.ErrCameraNotDefined
	}
	if tr.camera.Width != tr.frameW || tr.camera.Height != tr.frameH {
		tr.camera = tr.camera.WithResolution(tr.frameW, tr.frameH)
	}

	tr.counters.reset()

	// Execute pipeline
	for _, stage := range tr.pipeline {
		elapsed, err := stage(tr, blockReq)
		if err != nil {
			return err
		}
		tr.logger.Debugf("stage completed in %d ms", elapsed.Nanoseconds()/1e6)
	}

	return nil
}
