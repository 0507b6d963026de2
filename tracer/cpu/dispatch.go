package cpu

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidGroupSize = errors.New("cpu tracer: group size must be 16 or 32")

// Per block counters updated by concurrently running work groups.
type blockCounters struct {
	rays            atomic.Uint64
	hits            atomic.Uint64
	nodesVisited    atomic.Uint64
	trianglesTested atomic.Uint64
}

func (c *blockCounters) reset() {
	c.rays.Store(0)
	c.hits.Store(0)
	c.nodesVisited.Store(0)
	c.trianglesTested.Store(0)
}

func (c *blockCounters) add(gc *groupCounters) {
	c.rays.Add(gc.rays)
	c.hits.Add(gc.hits)
	c.nodesVisited.Add(gc.nodesVisited)
	c.trianglesTested.Add(gc.trianglesTested)
}

// Counters local to a work group; flushed once the group completes.
type groupCounters struct {
	rays            uint64
	hits            uint64
	nodesVisited    uint64
	trianglesTested uint64
}

// An invocation processes the single pixel (x, y).
type invocation func(x, y uint32, gc *groupCounters)

// The region of the frame covered by a dispatch.
type grid struct {
	originY uint32
	width   uint32
	height  uint32
}

// Number of work groups along each axis. The grid is over-dispatched when
// the region is not a multiple of the group size.
func (g grid) groups(groupSize uint32) (uint32, uint32) {
	return (g.width + groupSize - 1) / groupSize, (g.height + groupSize - 1) / groupSize
}

// Run kernel for every pixel of the grid. Work groups of groupSize x groupSize
// invocations are executed by up to workers goroutines. The call returns after
// all groups have completed so consecutive dispatches are separated by a
// barrier.
func dispatch(g grid, groupSize uint32, workers int, counters *blockCounters, kernel invocation) error {
	groupsX, groupsY := g.groups(groupSize)

	var eg errgroup.Group
	eg.SetLimit(workers)
	for gy := uint32(0); gy < groupsY; gy++ {
		for gx := uint32(0); gx < groupsX; gx++ {
			gx, gy := gx, gy
			eg.Go(func() error {
				var gc groupCounters
				runGroup(g, groupSize, gx, gy, &gc, kernel)
				counters.add(&gc)
				return nil
			})
		}
	}

	return eg.Wait()
}

func runGroup(g grid, groupSize, gx, gy uint32, gc *groupCounters, kernel invocation) {
	for ly := uint32(0); ly < groupSize; ly++ {
		for lx := uint32(0); lx < groupSize; lx++ {
			x := gx*groupSize + lx
			y := gy*groupSize + ly

			// Over-dispatched invocations exit immediately
			if x >= g.width || y >= g.height {
				continue
			}
			kernel(x, g.originY+y, gc)
		}
	}
}
