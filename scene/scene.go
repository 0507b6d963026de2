package scene

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/lumen/types"
	"github.com/olekukonko/tablewriter"
)

// Tolerance used when checking that child boxes are contained by their parents.
const bboxEpsilon float32 = 1e-4

var (
	ErrNodeOutOfBounds      = errors.New("scene: child node index out of bounds")
	ErrPrimitiveOutOfBounds = errors.New("scene: leaf primitive range out of bounds")
	ErrNodeCycle            = errors.New("scene: node reachable more than once")
	ErrChildBBox            = errors.New("scene: child bbox not contained in parent bbox")
	ErrTreeTooDeep          = errors.New("scene: bvh depth exceeds traversal stack size")
)

// A compiled scene. The triangle and node lists are laid out the way the
// tracers consume them and are never modified once the scene is built.
type Scene struct {
	Triangles []Triangle
	Nodes     []BvhNode

	// The scene camera.
	Camera *Camera
}

// Check whether the scene contains any geometry that can be hit. An internal
// root whose left child index is 0 would point back to itself; builders use it
// to mark an empty tree.
func (sc *Scene) IsEmpty() bool {
	if len(sc.Triangles) == 0 || len(sc.Nodes) == 0 {
		return true
	}
	root := &sc.Nodes[0]
	return root.Kind() == Internal && root.LeftFirst == 0
}

// Get the normalized geometric normal for the triangle at the given index.
func (sc *Scene) TriangleNormal(index uint32) types.Vec3 {
	return sc.Triangles[index].Normal()
}

// Validate the BVH structure. Traversal trusts its input so this check
// should run whenever a scene is loaded or compiled.
func (sc *Scene) Validate() error {
	if sc.IsEmpty() {
		return nil
	}

	type pending struct {
		node  uint32
		depth int
	}

	nodeCount := uint32(len(sc.Nodes))
	triCount := uint64(len(sc.Triangles))
	visited := make([]bool, nodeCount)
	stack := []pending{{0, 0}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[item.node] {
			return fmt.Errorf("node %d: %w", item.node, ErrNodeCycle)
		}
		visited[item.node] = true

		if item.depth >= MaxDepth {
			return fmt.Errorf("node %d at depth %d: %w", item.node, item.depth, ErrTreeTooDeep)
		}

		node := &sc.Nodes[item.node]
		if node.Kind() == Leaf {
			first, count := node.Primitives()
			if uint64(first)+uint64(count) > triCount {
				return fmt.Errorf("node %d: primitives [%d, %d) with %d triangles: %w", item.node, first, uint64(first)+uint64(count), triCount, ErrPrimitiveOutOfBounds)
			}
			continue
		}

		left, right := node.Children()
		if uint64(node.LeftFirst)+1 >= uint64(nodeCount) {
			return fmt.Errorf("node %d: children (%d, %d) with %d nodes: %w", item.node, left, uint64(left)+1, nodeCount, ErrNodeOutOfBounds)
		}
		for _, child := range []uint32{left, right} {
			if !contains(node, &sc.Nodes[child]) {
				return fmt.Errorf("node %d: child %d: %w", item.node, child, ErrChildBBox)
			}
		}
		stack = append(stack, pending{right, item.depth + 1}, pending{left, item.depth + 1})
	}

	return nil
}

// Calculate BVH tree statistics. The scene is expected to be valid.
func (sc *Scene) TreeStats() TreeStats {
	var ts TreeStats
	if sc.IsEmpty() {
		return ts
	}

	var walk func(index uint32, depth int)
	walk = func(index uint32, depth int) {
		node := &sc.Nodes[index]
		ts.TotalArea += node.SurfaceArea()
		if depth > ts.MaxDepth {
			ts.MaxDepth = depth
		}
		if node.Kind() == Leaf {
			ts.Leafs++
			_, count := node.Primitives()
			if int(count) > ts.MaxLeafSize {
				ts.MaxLeafSize = int(count)
			}
			return
		}
		ts.InternalNodes++
		left, right := node.Children()
		walk(left, depth+1)
		walk(right, depth+1)
	}
	walk(0, 0)

	return ts
}

// BVH tree statistics.
type TreeStats struct {
	MaxDepth      int
	Leafs         int
	InternalNodes int
	MaxLeafSize   int

	// The sum of the surface areas of all reachable node boxes.
	TotalArea float32
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	ts := sc.TreeStats()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Geometry", "---", fmtSize(sc.Triangles, sc.Nodes)})
	table.Append([]string{"", fmt.Sprintf("Triangles (%d)", len(sc.Triangles)), fmtSize(sc.Triangles)})
	table.Append([]string{"", fmt.Sprintf("BVH nodes (%d)", len(sc.Nodes)), fmtSize(sc.Nodes)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"BVH", "---", " "})
	table.Append([]string{"", "Max depth", fmt.Sprintf("%d", ts.MaxDepth)})
	table.Append([]string{"", "Internal nodes", fmt.Sprintf("%d", ts.InternalNodes)})
	table.Append([]string{"", "Leafs", fmt.Sprintf("%d", ts.Leafs)})
	table.Append([]string{"", "Max leaf size", fmt.Sprintf("%d", ts.MaxLeafSize)})
	table.Append([]string{"", "Total node area", fmt.Sprintf("%.2f", ts.TotalArea)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.Triangles, sc.Nodes), " ")})

	table.Render()
	return buf.String()
}

func contains(parent, child *BvhNode) bool {
	for axis := 0; axis < 3; axis++ {
		if child.Min[axis] < parent.Min[axis]-bboxEpsilon || child.Max[axis] > parent.Max[axis]+bboxEpsilon {
			return false
		}
	}
	return true
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
