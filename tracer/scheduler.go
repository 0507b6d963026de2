package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list. The assignments always add up to frameH.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits the frame rows based on each tracer's speed estimate.
type naiveScheduler struct{}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

// Assign rows proportionally to each tracer's speed estimate.
func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	return speedEstimateAssignment(tracers, frameH)
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// When previous frame information is available the scheduler uses the
// following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(tracers) == 0 {
		sch.blockAssignment = nil
		return []uint32{}
	}

	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = speedEstimateAssignment(tracers, frameH)
		return sch.blockAssignment
	}

	// Use last frame statistics
	var total float64 = 0.0
	for _, tr := range tracers {
		stats := tr.Stats()
		if stats.BlockH == 0 || stats.RenderTime <= 0 {
			// Missing feedback; fall back to speed estimates
			sch.blockAssignment = speedEstimateAssignment(tracers, frameH)
			return sch.blockAssignment
		}
		total += float64(stats.BlockH) / float64(stats.RenderTime)
	}

	scaler := float64(frameH) / total
	for idx, tr := range tracers {
		stats := tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(stats.BlockH)/float64(stats.RenderTime)*scaler)))
	}

	balance(sch.blockAssignment, frameH)
	return sch.blockAssignment
}

func speedEstimateAssignment(tracers []Tracer, frameH uint32) []uint32 {
	blockAssignment := make([]uint32, len(tracers))
	if len(tracers) == 0 {
		return blockAssignment
	}

	// Get speed estimate for each tracer and distribute rows accordingly
	var total float64 = 0.0
	for _, tr := range tracers {
		total += float64(tr.SpeedEstimate())
	}
	if !(total > 0) {
		total = float64(len(tracers))
	}
	scaler := float64(frameH) / total

	for idx, tr := range tracers {
		speed := float64(tr.SpeedEstimate())
		if !(speed > 0) {
			speed = 1
		}
		blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(speed*scaler)))
	}

	balance(blockAssignment, frameH)
	return blockAssignment
}

// Adjust the assignment so that rows add up to the frame height. Missing rows
// are appended to the first tracer; surplus rows (caused by the one row minimum)
// are removed from the tracers with the largest assignments.
func balance(blockAssignment []uint32, frameH uint32) {
	if len(blockAssignment) == 0 {
		return
	}

	var scheduledRows uint32 = 0
	for _, rows := range blockAssignment {
		scheduledRows += rows
	}

	if scheduledRows <= frameH {
		blockAssignment[0] += frameH - scheduledRows
		return
	}

	for surplus := scheduledRows - frameH; surplus > 0; surplus-- {
		largest := 0
		for idx, rows := range blockAssignment {
			if rows > blockAssignment[largest] {
				largest = idx
			}
		}
		blockAssignment[largest]--
	}
}
