package scene

import "github.com/achilleasa/lumen/types"

// The maximum depth of a BVH tree. The traversal stack holds exactly this
// many entries.
const MaxDepth = 32

// The type of a BVH node.
type NodeKind uint8

const (
	Internal NodeKind = iota
	Leaf
)

func (k NodeKind) String() string {
	if k == Leaf {
		return "leaf"
	}
	return "internal"
}

// Bvh nodes are comprised of two Vec3 and two multipurpose uint32 parameters
// whose value depends on the node type:
//
//   - For leafs, Count is > 0 and LeftFirst points to the first triangle
//     of the leaf. The leaf covers triangles [LeftFirst, LeftFirst+Count).
//   - For internal nodes, Count is 0 and LeftFirst points to the left child.
//     The right child is always stored at LeftFirst+1.
//
// Each node takes 32 bytes which matches the GPU buffer layout.
type BvhNode struct {
	Min       types.Vec3
	LeftFirst uint32

	Max   types.Vec3
	Count uint32
}

// Get node type.
func (n *BvhNode) Kind() NodeKind {
	if n.Count > 0 {
		return Leaf
	}
	return Internal
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Get bounding box.
func (n *BvhNode) BBox() [2]types.Vec3 {
	return [2]types.Vec3{n.Min, n.Max}
}

// Set the index of the left child node. The right child node must be stored
// immediately after the left one.
func (n *BvhNode) SetChildNodes(left uint32) {
	n.LeftFirst = left
	n.Count = 0
}

// Get left and right child node indices.
func (n *BvhNode) Children() (left, right uint32) {
	return n.LeftFirst, n.LeftFirst + 1
}

// Set primitive index and count.
func (n *BvhNode) SetPrimitives(firstPrimIndex, count uint32) {
	n.LeftFirst = firstPrimIndex
	n.Count = count
}

// Get primitive index and count.
func (n *BvhNode) Primitives() (firstPrimIndex, count uint32) {
	return n.LeftFirst, n.Count
}

// Calculate the surface area of the node bounding box.
func (n *BvhNode) SurfaceArea() float32 {
	side := n.Max.Sub(n.Min)
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}
