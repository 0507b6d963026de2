package scene

import "github.com/achilleasa/lumen/types"

// A triangle primitive. Degenerate triangles are allowed; they are never
// reported as hits.
type Triangle struct {
	Vertices [3]types.Vec3
}

// Create a triangle from three vertices.
func NewTriangle(v0, v1, v2 types.Vec3) Triangle {
	return Triangle{Vertices: [3]types.Vec3{v0, v1, v2}}
}

// Get triangle bounding box.
func (t Triangle) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.MinVec3(t.Vertices[0], types.MinVec3(t.Vertices[1], t.Vertices[2])),
		types.MaxVec3(t.Vertices[0], types.MaxVec3(t.Vertices[1], t.Vertices[2])),
	}
}

// Get triangle centroid.
func (t Triangle) Center() types.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2]).Mul(1.0 / 3.0)
}

// Get the triangle edges that share the first vertex.
func (t Triangle) Edges() (e1, e2 types.Vec3) {
	return t.Vertices[1].Sub(t.Vertices[0]), t.Vertices[2].Sub(t.Vertices[0])
}

// Calculate the normalized geometric normal. The winding order of the
// vertices defines its orientation. Degenerate triangles yield a zero vector.
func (t Triangle) Normal() types.Vec3 {
	e1, e2 := t.Edges()
	return e1.Cross(e2).Normalize()
}
