package layout

import "github.com/go-drift/lattice/pkg/graphics"

// Alignment is a point inside a box, with (-1, -1) the top-left corner and
// (1, 1) the bottom-right corner.
type Alignment struct {
	X, Y float64
}

var (
	AlignmentTopLeft      = Alignment{X: -1, Y: -1}
	AlignmentTopCenter    = Alignment{X: 0, Y: -1}
	AlignmentTopRight     = Alignment{X: 1, Y: -1}
	AlignmentCenterLeft   = Alignment{X: -1, Y: 0}
	AlignmentCenter       = Alignment{X: 0, Y: 0}
	AlignmentCenterRight  = Alignment{X: 1, Y: 0}
	AlignmentBottomLeft   = Alignment{X: -1, Y: 1}
	AlignmentBottomCenter = Alignment{X: 0, Y: 1}
	AlignmentBottomRight  = Alignment{X: 1, Y: 1}
)

// Inset returns the offset that places a child of size child inside a box
// of size outer at this alignment.
func (a Alignment) Inset(outer, child graphics.Size) graphics.Offset {
	dx := (outer.Width - child.Width) / 2
	dy := (outer.Height - child.Height) / 2
	return graphics.Offset{X: dx + a.X*dx, Y: dy + a.Y*dy}
}
