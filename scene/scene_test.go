package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/achilleasa/lumen/types"
)

func twoLeafScene() *Scene {
	sc := &Scene{
		Triangles: []Triangle{
			NewTriangle(types.Vec3{-2, -1, 0}, types.Vec3{-1, -1, 0}, types.Vec3{-1.5, 1, 0}),
			NewTriangle(types.Vec3{1, -1, 0}, types.Vec3{2, -1, 0}, types.Vec3{1.5, 1, 0}),
		},
		Nodes: make([]BvhNode, 4),
	}

	sc.Nodes[0].SetBBox([2]types.Vec3{{-2, -1, 0}, {2, 1, 0}})
	sc.Nodes[0].SetChildNodes(2)
	sc.Nodes[2].SetBBox(sc.Triangles[0].BBox())
	sc.Nodes[2].SetPrimitives(0, 1)
	sc.Nodes[3].SetBBox(sc.Triangles[1].BBox())
	sc.Nodes[3].SetPrimitives(1, 1)
	return sc
}

func TestNodeAccessors(t *testing.T) {
	var n BvhNode

	n.SetPrimitives(5, 3)
	if n.Kind() != Leaf {
		t.Fatalf("expected node to be a leaf")
	}
	if first, count := n.Primitives(); first != 5 || count != 3 {
		t.Fatalf("expected primitives (5, 3); got (%d, %d)", first, count)
	}

	n.SetChildNodes(8)
	if n.Kind() != Internal {
		t.Fatalf("expected node to be internal")
	}
	if left, right := n.Children(); left != 8 || right != 9 {
		t.Fatalf("expected children (8, 9); got (%d, %d)", left, right)
	}
}

func TestIsEmpty(t *testing.T) {
	type spec struct {
		scene *Scene
		exp   bool
	}

	emptyRoot := twoLeafScene()
	emptyRoot.Nodes[0] = BvhNode{}

	specs := []spec{
		{&Scene{}, true},
		{&Scene{Triangles: []Triangle{{}}}, true},
		{emptyRoot, true},
		{twoLeafScene(), false},
	}

	for index, s := range specs {
		if got := s.scene.IsEmpty(); got != s.exp {
			t.Fatalf("[spec %d] expected IsEmpty() to return %t; got %t", index, s.exp, got)
		}
	}
}

func TestValidate(t *testing.T) {
	type spec struct {
		mutate func(*Scene)
		expErr error
	}

	specs := []spec{
		{func(sc *Scene) {}, nil},
		{func(sc *Scene) { sc.Nodes[0].SetChildNodes(3) }, ErrNodeOutOfBounds},
		{func(sc *Scene) { sc.Nodes[3].SetPrimitives(1, 2) }, ErrPrimitiveOutOfBounds},
		{func(sc *Scene) { sc.Nodes[2].Max = types.Vec3{5, 5, 5} }, ErrChildBBox},
		{
			func(sc *Scene) {
				sc.Nodes[2].SetBBox(sc.Nodes[0].BBox())
				sc.Nodes[3].SetBBox(sc.Nodes[0].BBox())
				sc.Nodes[2].SetChildNodes(2)
			},
			ErrNodeCycle,
		},
	}

	for index, s := range specs {
		sc := twoLeafScene()
		s.mutate(sc)
		err := sc.Validate()
		if s.expErr == nil {
			if err != nil {
				t.Fatalf("[spec %d] unexpected error: %v", index, err)
			}
			continue
		}
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestValidateDepthLimit(t *testing.T) {
	// Build a degenerate chain where each internal node has a leaf on the
	// left and the next internal node on the right.
	tri := NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0})
	bbox := tri.BBox()

	build := func(depth int) *Scene {
		sc := &Scene{Triangles: []Triangle{tri}}
		sc.Nodes = make([]BvhNode, 2+2*depth)
		sc.Nodes[0].SetBBox(bbox)
		parent := uint32(0)
		for level := 0; level < depth; level++ {
			left := uint32(2 + 2*level)
			sc.Nodes[parent].SetChildNodes(left)
			sc.Nodes[left].SetBBox(bbox)
			sc.Nodes[left].SetPrimitives(0, 1)
			sc.Nodes[left+1].SetBBox(bbox)
			sc.Nodes[left+1].SetPrimitives(0, 1)
			parent = left + 1
		}
		return sc
	}

	if err := build(MaxDepth - 1).Validate(); err != nil {
		t.Fatalf("expected tree with %d levels to be valid; got %v", MaxDepth, err)
	}
	if err := build(MaxDepth).Validate(); !errors.Is(err, ErrTreeTooDeep) {
		t.Fatalf("expected ErrTreeTooDeep; got %v", err)
	}
}

func TestTreeStats(t *testing.T) {
	sc := twoLeafScene()
	ts := sc.TreeStats()

	if ts.MaxDepth != 1 || ts.Leafs != 2 || ts.InternalNodes != 1 || ts.MaxLeafSize != 1 {
		t.Fatalf("unexpected tree stats: %+v", ts)
	}

	out := sc.Stats()
	if !strings.Contains(out, "Triangles (2)") || !strings.Contains(out, "BVH nodes (4)") {
		t.Fatalf("expected stats table to list buffer sizes; got:\n%s", out)
	}
}

func TestTriangleNormal(t *testing.T) {
	sc := &Scene{
		Triangles: []Triangle{
			NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}),
			NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{2, 0, 0}),
		},
	}

	if n := sc.TriangleNormal(0); n != (types.Vec3{0, 0, 1}) {
		t.Fatalf("expected normal +z; got %v", n)
	}
	if n := sc.TriangleNormal(1); n != (types.Vec3{}) {
		t.Fatalf("expected degenerate triangle to have a zero normal; got %v", n)
	}
}
