package kernel

import (
	"math"
	"math/bits"
)

const (
	// Maps a uint32 to [0, 1).
	uint32ToFloat = 2.3283064365387e-10

	// Replacement for an all-zero state which xorshift can never leave.
	zeroStateReplacement uint32 = 0x9e3779b9
)

var maxUnitFloat = math.Nextafter32(1, 0)

// A per-invocation xorshift32 pseudo-random generator. It carries no
// external entropy; streams are fully determined by the pixel and seed.
type Rng struct {
	state uint32
}

// Create a generator for pixel (x, y) of a frame with the given width.
func NewRng(x, y, width, seed uint32) Rng {
	state := avalanche((1 + x + y*width) * seed)
	if state == 0 {
		state = zeroStateReplacement
	}
	return Rng{state: state}
}

// Advance the generator and return the new state.
func (r *Rng) Next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Return a random float in [0, 1).
func (r *Rng) Float() float32 {
	return unitFloat(r.Next())
}

// Map v to [0, 1). Values close to 2^32 round up to 1 in float32 and are
// clamped to the largest float below 1.
func unitFloat(v uint32) float32 {
	f := float32(float64(v) * uint32ToFloat)
	if f > maxUnitFloat {
		f = maxUnitFloat
	}
	return f
}

// Integer avalanche hash. Every step is invertible so distinct inputs map to
// distinct states and only 0 maps to 0.
func avalanche(v uint32) uint32 {
	v ^= v >> 16
	v *= 0x85ebca6b
	v = bits.RotateLeft32(v, 13)
	v ^= v >> 13
	v *= 0xc2b2ae35
	v ^= v >> 16
	return v
}
