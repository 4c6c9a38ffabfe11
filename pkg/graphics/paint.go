package graphics

import "fmt"

// PaintStyle selects whether a path is filled or stroked.
type PaintStyle uint8

const (
	// PaintFill fills the path interior.
	PaintFill PaintStyle = iota
	// PaintStroke strokes the path outline with Stroke.
	PaintStroke
)

// String returns a human-readable representation of the paint style.
func (s PaintStyle) String() string {
	switch s {
	case PaintFill:
		return "fill"
	case PaintStroke:
		return "stroke"
	default:
		return fmt.Sprintf("PaintStyle(%d)", int(s))
	}
}

// LineCap specifies the shape of open contour endpoints.
type LineCap uint8

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

// LineJoin specifies how connected segments are joined.
type LineJoin uint8

const (
	JoinMiter LineJoin = iota
	JoinRound
	JoinBevel
)

// StrokeStyle describes how an outline is expanded into fill geometry.
type StrokeStyle struct {
	Width      float64
	Cap        LineCap
	Join       LineJoin
	MiterLimit float64
}

// DefaultMiterLimit matches the common 2D canvas default.
const DefaultMiterLimit = 4.0

// Paint describes how a path is drawn.
type Paint struct {
	Color  Color
	Style  PaintStyle
	Stroke StrokeStyle
}

// FillPaint returns a solid fill paint.
func FillPaint(c Color) Paint {
	return Paint{Color: c}
}

// StrokePaint returns a stroke paint with miter joins and butt caps.
func StrokePaint(c Color, width float64) Paint {
	return Paint{
		Color: c,
		Style: PaintStroke,
		Stroke: StrokeStyle{
			Width:      width,
			MiterLimit: DefaultMiterLimit,
		},
	}
}
