package bvh

import (
	"math"
	"sort"
	"time"

	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// Number of bins per axis used for generating split candidates.
	NumBins = 8

	// The BVH builder will not attempt to calculate split candidates
	// if the centroid bounds along an axis are less than this threshold.
	minSideLength float32 = 1e-6

	// Index of the first child node. Node 1 is left unused so that the
	// children of every internal node form an aligned pair.
	firstChildIndex = 2
)

var (
	// A split scoring strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic = surfaceAreaHeuristic{}
)

// The BoundedVolume interface is implemented by all primitives that can
// be partitioned by the bvh builder.
type BoundedVolume interface {
	BBox() [2]types.Vec3
	Center() types.Vec3
}

// A callback that is called whenever the BVH builder creates a new leaf.
type LeafCallback func(leaf *scene.BvhNode, itemList []BoundedVolume)

// A split scoring strategy.
type ScoreStrategy interface {
	// Calculate a score for splitting workList at splitPoint along a particular Axis.
	ScoreSplit(workList []BoundedVolume, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for all items in workList.
	ScorePartition(workList []BoundedVolume) (score float32)
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

// Check if this split should be preferred over other. Ties are resolved by
// axis and split point so that the generated tree does not depend on the
// order in which scores arrive.
func (s *splitScore) betterThan(other *splitScore) bool {
	if s.score != other.score {
		return s.score < other.score
	}
	if s.axis != other.axis {
		return s.axis < other.axis
	}
	return s.splitPoint < other.splitPoint
}

// Tree statistics collected while building.
type Stats struct {
	PartitionedItems int
	TotalItems       int
	Nodes            int
	Leafs            int
	MaxDepth         int
	ForcedLeafs      int
}

type builder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list
	nodes []scene.BvhNode

	// A callback invoked to set up BVH leafs.
	leafCb LeafCallback

	// The maximum number of items that can be stored in a leaf.
	maxLeafItems int

	// A channel for receiving score results.
	scoreChan chan splitScore

	// The split scoring strategy to use.
	scoreStrategy ScoreStrategy

	stats Stats
}

// Construct a BVH from a set of bounded volumes.
//
// The root is always stored at index 0 and the children of each internal
// node are allocated as a pair so that the right child immediately follows
// the left one. Split candidates are evaluated at NumBins bin boundaries of
// the centroid bounds along each axis; each candidate is scored in its own
// goroutine.
//
// The builder generates leafs once the work list holds at most maxLeafItems
// items. If no candidate improves on the unsplit node score, the work list is
// split at its centroid median instead. Nodes at depth scene.MaxDepth-1 are
// always turned into leafs so the tree never exceeds the traversal stack.
//
// An empty work list produces an empty tree (see scene.Scene.IsEmpty).
func Build(workList []BoundedVolume, maxLeafItems int, leafCb LeafCallback, scoreStrategy ScoreStrategy) ([]scene.BvhNode, Stats) {
	if maxLeafItems < 1 {
		maxLeafItems = 1
	}

	b := &builder{
		logger:        log.New("bvh builder"),
		nodes:         make([]scene.BvhNode, firstChildIndex, firstChildIndex+2*len(workList)),
		leafCb:        leafCb,
		maxLeafItems:  maxLeafItems,
		scoreChan:     make(chan splitScore, 0),
		scoreStrategy: scoreStrategy,
		stats: Stats{
			TotalItems: len(workList),
		},
	}

	if len(workList) == 0 {
		return b.nodes, b.stats
	}

	start := time.Now()
	b.partition(workList, 0, 0)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, forced leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.Nodes, b.stats.Leafs, b.stats.ForcedLeafs,
	)
	return b.nodes, b.stats
}

// Partition worklist into the node at nodeIndex.
func (b *builder) partition(workList []BoundedVolume, nodeIndex uint32, depth int) {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}
	b.stats.Nodes++

	bbox, centroidBox := bounds(workList)
	b.nodes[nodeIndex].SetBBox(bbox)

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.maxLeafItems {
		b.createLeaf(nodeIndex, workList)
		return
	}
	if depth >= scene.MaxDepth-1 {
		b.stats.ForcedLeafs++
		b.createLeaf(nodeIndex, workList)
		return
	}

	leftWorkList, rightWorkList := b.split(workList, centroidBox)

	left := uint32(len(b.nodes))
	b.nodes = append(b.nodes, scene.BvhNode{}, scene.BvhNode{})
	b.nodes[nodeIndex].SetChildNodes(left)

	b.partition(leftWorkList, left, depth+1)
	b.partition(rightWorkList, left+1, depth+1)
}

// Split work list into two non-empty sets.
func (b *builder) split(workList []BoundedVolume, centroidBox [2]types.Vec3) (left, right []BoundedVolume) {
	// Calc current node score
	parentScore := b.scoreStrategy.ScorePartition(workList)
	var bestSplit *splitScore

	// Run axis split tests in parallel
	pendingScores := 0
	side := centroidBox[1].Sub(centroidBox[0])
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if all centroids lie on the same plane
		if side[axis] < minSideLength {
			continue
		}

		binWidth := side[axis] / NumBins
		for bin := 1; bin < NumBins; bin++ {
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := b.scoreStrategy.ScoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, centroidBox[0][axis]+binWidth*float32(bin))
		}
	}

	// Process all scores and pick the best split that improves the node score
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.leftCount == 0 || candidate.rightCount == 0 || !(candidate.score < parentScore) {
			continue
		}
		if bestSplit == nil || candidate.betterThan(bestSplit) {
			best := candidate
			bestSplit = &best
		}
	}

	if bestSplit == nil {
		return medianSplit(workList, side)
	}

	left = make([]BoundedVolume, 0, bestSplit.leftCount)
	right = make([]BoundedVolume, 0, bestSplit.rightCount)
	for _, item := range workList {
		if item.Center()[bestSplit.axis] < bestSplit.splitPoint {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	return left, right
}

// Setup the node at nodeIndex as a leaf containing all items in the work list.
func (b *builder) createLeaf(nodeIndex uint32, workList []BoundedVolume) {
	b.leafCb(&b.nodes[nodeIndex], workList)

	b.stats.Leafs++
	b.stats.PartitionedItems += len(workList)
}

// Split the work list in half after sorting it by centroid along the axis with
// the largest centroid extent.
func medianSplit(workList []BoundedVolume, side types.Vec3) (left, right []BoundedVolume) {
	axis := XAxis
	if side[YAxis] > side[axis] {
		axis = YAxis
	}
	if side[ZAxis] > side[axis] {
		axis = ZAxis
	}

	sorted := make([]BoundedVolume, len(workList))
	copy(sorted, workList)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Center()[axis] < sorted[j].Center()[axis]
	})

	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// Calculate the bounding box of all items and the bounding box of their centroids.
func bounds(workList []BoundedVolume) (bbox, centroidBox [2]types.Vec3) {
	bbox = emptyBox()
	centroidBox = emptyBox()
	for _, item := range workList {
		itemBBox := item.BBox()
		center := item.Center()
		bbox[0] = types.MinVec3(bbox[0], itemBBox[0])
		bbox[1] = types.MaxVec3(bbox[1], itemBBox[1])
		centroidBox[0] = types.MinVec3(centroidBox[0], center)
		centroidBox[1] = types.MaxVec3(centroidBox[1], center)
	}
	return bbox, centroidBox
}

func emptyBox() [2]types.Vec3 {
	return [2]types.Vec3{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it enounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	left := emptyBox()
	right := emptyBox()

	for _, item := range workList {
		center := item.Center()
		itemBBox := item.BBox()
		if center[axis] < splitPoint {
			leftCount++
			left[0] = types.MinVec3(left[0], itemBBox[0])
			left[1] = types.MaxVec3(left[1], itemBBox[1])
		} else {
			rightCount++
			right[0] = types.MinVec3(right[0], itemBBox[0])
			right[1] = types.MaxVec3(right[1], itemBBox[1])
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*halfArea(left) + float32(rightCount)*halfArea(right)
	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(workList []BoundedVolume) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	bbox, _ := bounds(workList)
	return float32(len(workList)) * halfArea(bbox)
}

func halfArea(bbox [2]types.Vec3) float32 {
	side := bbox[1].Sub(bbox[0])
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}
