package tessellate

import (
	"github.com/chewxy/math32"

	"github.com/go-drift/lattice/pkg/graphics"
)

// Vertex is a mesh position in the path's coordinate space.
type Vertex struct {
	X, Y float32
}

// Mesh is an indexed triangle list. Every triangle is wound the same way
// (positive signed area), so overlapping triangles of one mesh accumulate
// coverage instead of cancelling.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Triangles returns the triangle count.
func (m *Mesh) Triangles() int {
	if m == nil {
		return 0
	}
	return len(m.Indices) / 3
}

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return m.Triangles() == 0
}

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c Vertex) {
	return m.Vertices[m.Indices[3*i]], m.Vertices[m.Indices[3*i+1]], m.Vertices[m.Indices[3*i+2]]
}

// Area returns the summed area of all triangles.
func (m *Mesh) Area() float32 {
	var sum float32
	for i := range m.Triangles() {
		a, b, c := m.Triangle(i)
		sum += math32.Abs(cross(a, b, c)) / 2
	}
	return sum
}

// Bounds returns the bounding box of the vertices.
func (m *Mesh) Bounds() graphics.Rect {
	if m == nil || len(m.Vertices) == 0 {
		return graphics.Rect{}
	}
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	for _, v := range m.Vertices {
		minX, maxX = math32.Min(minX, v.X), math32.Max(maxX, v.X)
		minY, maxY = math32.Min(minY, v.Y), math32.Max(maxY, v.Y)
	}
	return graphics.Rect{Left: float64(minX), Top: float64(minY), Right: float64(maxX), Bottom: float64(maxY)}
}

// Covers reports whether (x, y) lies inside at least one triangle.
func (m *Mesh) Covers(x, y float32) bool {
	p := Vertex{X: x, Y: y}
	for i := range m.Triangles() {
		a, b, c := m.Triangle(i)
		if cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0 {
			return true
		}
	}
	return false
}

// append adds o's triangles to m.
func (m *Mesh) append(o *Mesh) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, o.Vertices...)
	for _, idx := range o.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

func cross(a, b, c Vertex) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
