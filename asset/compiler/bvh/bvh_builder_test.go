package bvh

import (
	"testing"

	"github.com/achilleasa/lumen/scene"
	"github.com/achilleasa/lumen/types"
)

type box struct {
	min, max types.Vec3
}

func (b box) BBox() [2]types.Vec3 {
	return [2]types.Vec3{b.min, b.max}
}

func (b box) Center() types.Vec3 {
	return b.min.Add(b.max).Mul(0.5)
}

func TestLeafCallback(t *testing.T) {
	itemList := []BoundedVolume{
		box{types.Vec3{-2, 0, -2}, types.Vec3{-1, 1, -1}},
		box{types.Vec3{1, 0, -2}, types.Vec3{2, 1, -1}},
		box{types.Vec3{-2, 0, 1}, types.Vec3{-1, 1, 2}},
		box{types.Vec3{1, 0, 1}, types.Vec3{2, 1, 2}},
	}

	var cbCount = 0
	var expItemListCount = 0
	cb := func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		cbCount++
		if len(itemList) != expItemListCount {
			t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
		}
		leaf.SetPrimitives(0, uint32(len(itemList)))
	}

	var expCount = 0

	// Partition each item in a single leaf
	cbCount = 0
	expItemListCount = 1
	treeNodes, stats := Build(itemList, 1, cb, SurfaceAreaHeuristic)

	expCount = 4
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	// root + unused slot + 3 child pairs
	expCount = 8
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
	if stats.Leafs != 4 || stats.MaxDepth != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Partition two items in a single leaf
	cbCount = 0
	expItemListCount = 2
	treeNodes, _ = Build(itemList, 2, cb, SurfaceAreaHeuristic)

	expCount = 2
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 4
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
}

func TestChildNodesArePaired(t *testing.T) {
	itemList := make([]BoundedVolume, 0)
	for i := 0; i < 37; i++ {
		x := float32(i)
		itemList = append(itemList, box{types.Vec3{x, 0, 0}, types.Vec3{x + 0.5, 1, 1}})
	}

	nodes, _ := Build(itemList, 3, func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		if len(itemList) > 3 {
			t.Fatalf("expected leaf to hold at most 3 items; got %d", len(itemList))
		}
		leaf.SetPrimitives(0, uint32(len(itemList)))
	}, SurfaceAreaHeuristic)

	for index, node := range nodes {
		if index == 1 || node.Kind() == scene.Leaf {
			continue
		}
		left, right := node.Children()
		if left < 2 || left%2 != 0 || int(right) >= len(nodes) {
			t.Fatalf("node %d: expected aligned child pair; got (%d, %d)", index, left, right)
		}
	}
}

func TestCoincidentCentroidsFallBackToMedianSplit(t *testing.T) {
	itemList := make([]BoundedVolume, 10)
	for i := range itemList {
		itemList[i] = box{types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1}}
	}

	leafs := 0
	_, stats := Build(itemList, 3, func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		leafs++
		if len(itemList) > 3 {
			t.Fatalf("expected leaf to hold at most 3 items; got %d", len(itemList))
		}
		leaf.SetPrimitives(0, uint32(len(itemList)))
	}, SurfaceAreaHeuristic)

	if leafs != 4 || stats.PartitionedItems != 10 {
		t.Fatalf("expected 10 items to be split into 4 leafs; got %d leafs (stats %+v)", leafs, stats)
	}
}

func TestDepthLimit(t *testing.T) {
	// Exponentially shrinking boxes produce a maximally unbalanced tree.
	itemList := make([]BoundedVolume, 0)
	x := float32(1.0)
	for i := 0; i < 40; i++ {
		itemList = append(itemList, box{types.Vec3{x, 0, 0}, types.Vec3{x * 1.01, 1, 1}})
		x *= 2
	}

	nodes, stats := Build(itemList, 1, func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		leaf.SetPrimitives(0, uint32(len(itemList)))
	}, SurfaceAreaHeuristic)

	if stats.MaxDepth > scene.MaxDepth-1 {
		t.Fatalf("expected max depth <= %d; got %d", scene.MaxDepth-1, stats.MaxDepth)
	}
	if stats.PartitionedItems != len(itemList) {
		t.Fatalf("expected all %d items to be partitioned; got %d", len(itemList), stats.PartitionedItems)
	}
	if len(nodes) < 3 {
		t.Fatalf("expected a multi-node tree")
	}
}

func TestEmptyWorkList(t *testing.T) {
	nodes, stats := Build(nil, 3, func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		t.Fatal("unexpected leaf callback invocation")
	}, SurfaceAreaHeuristic)

	sc := &scene.Scene{Nodes: nodes}
	if !sc.IsEmpty() {
		t.Fatal("expected empty work list to produce an empty tree")
	}
	if stats.Nodes != 0 {
		t.Fatalf("expected no nodes to be partitioned; got %d", stats.Nodes)
	}
}
