package graphics

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// PathVerb identifies a path segment type.
type PathVerb uint8

const (
	VerbMoveTo  PathVerb = iota // start a new contour at P[0]
	VerbLineTo                  // line to P[0]
	VerbQuadTo                  // quadratic curve via P[0] to P[1]
	VerbCubicTo                 // cubic curve via P[0], P[1] to P[2]
	VerbArcTo                   // circular arc; see Segment
	VerbClose                   // close the contour back to its start
)

// String returns a human-readable representation of the verb.
func (v PathVerb) String() string {
	switch v {
	case VerbMoveTo:
		return "move_to"
	case VerbLineTo:
		return "line_to"
	case VerbQuadTo:
		return "quad_to"
	case VerbCubicTo:
		return "cubic_to"
	case VerbArcTo:
		return "arc_to"
	case VerbClose:
		return "close"
	default:
		return fmt.Sprintf("PathVerb(%d)", int(v))
	}
}

// FillRule determines how path interiors are calculated for filling.
type FillRule uint8

const (
	// FillRuleNonZero fills regions with a nonzero winding count.
	FillRuleNonZero FillRule = iota
	// FillRuleEvenOdd fills regions crossed an odd number of times.
	FillRuleEvenOdd
)

// String returns a human-readable representation of the fill rule.
func (r FillRule) String() string {
	switch r {
	case FillRuleNonZero:
		return "nonzero"
	case FillRuleEvenOdd:
		return "evenodd"
	default:
		return fmt.Sprintf("FillRule(%d)", int(r))
	}
}

// Segment is one path element.
//
// For VerbArcTo, P[0] is the arc center, P[1].X the radius, P[1].Y the start
// angle and P[2].X the sweep angle (radians, positive is clockwise in a y-down
// coordinate system). The pen first draws a line to the arc's start point.
type Segment struct {
	Verb PathVerb
	P    [3]Offset
}

// Path is a vector path made of one or more contours.
type Path struct {
	Segments []Segment
	FillRule FillRule
}

// NewPath creates an empty path with the nonzero fill rule.
func NewPath() *Path {
	return &Path{}
}

// MoveTo starts a new contour.
func (p *Path) MoveTo(x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Verb: VerbMoveTo, P: [3]Offset{{X: x, Y: y}}})
	return p
}

// LineTo adds a straight line.
func (p *Path) LineTo(x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Verb: VerbLineTo, P: [3]Offset{{X: x, Y: y}}})
	return p
}

// QuadTo adds a quadratic Bézier curve.
func (p *Path) QuadTo(cx, cy, x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Verb: VerbQuadTo, P: [3]Offset{{X: cx, Y: cy}, {X: x, Y: y}}})
	return p
}

// CubicTo adds a cubic Bézier curve.
func (p *Path) CubicTo(c1x, c1y, c2x, c2y, x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{
		Verb: VerbCubicTo,
		P:    [3]Offset{{X: c1x, Y: c1y}, {X: c2x, Y: c2y}, {X: x, Y: y}},
	})
	return p
}

// ArcTo adds a circular arc around center.
func (p *Path) ArcTo(center Offset, radius, start, sweep float64) *Path {
	p.Segments = append(p.Segments, Segment{
		Verb: VerbArcTo,
		P:    [3]Offset{center, {X: radius, Y: start}, {X: sweep}},
	})
	return p
}

// Close closes the current contour.
func (p *Path) Close() *Path {
	p.Segments = append(p.Segments, Segment{Verb: VerbClose})
	return p
}

// IsEmpty reports whether the path has no drawing segments.
func (p *Path) IsEmpty() bool {
	return p == nil || len(p.Segments) == 0
}

// Clone returns a deep copy of the path.
func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	out := &Path{FillRule: p.FillRule, Segments: make([]Segment, len(p.Segments))}
	copy(out.Segments, p.Segments)
	return out
}

// RectPath returns a closed rectangle contour.
func RectPath(r Rect) *Path {
	return NewPath().
		MoveTo(r.Left, r.Top).
		LineTo(r.Right, r.Top).
		LineTo(r.Right, r.Bottom).
		LineTo(r.Left, r.Bottom).
		Close()
}

// CirclePath returns a closed circle contour.
func CirclePath(center Offset, radius float64) *Path {
	return NewPath().
		MoveTo(center.X+radius, center.Y).
		ArcTo(center, radius, 0, 2*math.Pi).
		Close()
}

// RoundRectPath returns a rectangle with uniformly rounded corners.
func RoundRectPath(r Rect, radius float64) *Path {
	radius = math.Min(radius, math.Min(r.Width(), r.Height())/2)
	if radius <= 0 {
		return RectPath(r)
	}
	p := NewPath().MoveTo(r.Left+radius, r.Top)
	p.LineTo(r.Right-radius, r.Top)
	p.ArcTo(Offset{X: r.Right - radius, Y: r.Top + radius}, radius, -math.Pi/2, math.Pi/2)
	p.LineTo(r.Right, r.Bottom-radius)
	p.ArcTo(Offset{X: r.Right - radius, Y: r.Bottom - radius}, radius, 0, math.Pi/2)
	p.LineTo(r.Left+radius, r.Bottom)
	p.ArcTo(Offset{X: r.Left + radius, Y: r.Bottom - radius}, radius, math.Pi/2, math.Pi/2)
	p.LineTo(r.Left, r.Top+radius)
	p.ArcTo(Offset{X: r.Left + radius, Y: r.Top + radius}, radius, math.Pi, math.Pi/2)
	return p.Close()
}

// ArcPoint returns the point at angle on a circle.
func ArcPoint(center Offset, radius, angle float64) Offset {
	sin, cos := math.Sincos(angle)
	return Offset{X: center.X + radius*cos, Y: center.Y + radius*sin}
}

// Bounds returns the control-point bounds of the path. Curves never leave
// the hull of their control points, so the result is conservative.
func (p *Path) Bounds() Rect {
	if p.IsEmpty() {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(o Offset) {
		minX = math.Min(minX, o.X)
		minY = math.Min(minY, o.Y)
		maxX = math.Max(maxX, o.X)
		maxY = math.Max(maxY, o.Y)
	}
	for _, seg := range p.Segments {
		switch seg.Verb {
		case VerbMoveTo, VerbLineTo:
			add(seg.P[0])
		case VerbQuadTo:
			add(seg.P[0])
			add(seg.P[1])
		case VerbCubicTo:
			add(seg.P[0])
			add(seg.P[1])
			add(seg.P[2])
		case VerbArcTo:
			r := seg.P[1].X
			add(Offset{X: seg.P[0].X - r, Y: seg.P[0].Y - r})
			add(Offset{X: seg.P[0].X + r, Y: seg.P[0].Y + r})
		}
	}
	if math.IsInf(minX, 1) {
		return Rect{}
	}
	return Rect{Left: minX, Top: minY, Right: maxX, Bottom: maxY}
}

// Transform returns a copy of the path with every point mapped through m.
// Arcs are only kept as arcs under translations; other transforms require
// flattening first and the arc is approximated by cubic curves.
func (p *Path) Transform(m Matrix) *Path {
	if p == nil {
		return nil
	}
	out := &Path{FillRule: p.FillRule, Segments: make([]Segment, 0, len(p.Segments))}
	for _, seg := range p.Segments {
		switch seg.Verb {
		case VerbArcTo:
			if m.IsTranslation() {
				seg.P[0] = m.Apply(seg.P[0])
				out.Segments = append(out.Segments, seg)
				continue
			}
			for _, c := range arcToCubics(seg) {
				c.P[0], c.P[1], c.P[2] = m.Apply(c.P[0]), m.Apply(c.P[1]), m.Apply(c.P[2])
				out.Segments = append(out.Segments, c)
			}
			continue
		case VerbClose:
		default:
			for i := range seg.P {
				seg.P[i] = m.Apply(seg.P[i])
			}
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}

// arcToCubics approximates an arc with a line to its start followed by
// cubic curves spanning at most a quarter turn each.
func arcToCubics(seg Segment) []Segment {
	center, radius, start, sweep := seg.P[0], seg.P[1].X, seg.P[1].Y, seg.P[2].X
	n := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	step := sweep / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4)
	out := []Segment{{Verb: VerbLineTo, P: [3]Offset{ArcPoint(center, radius, start)}}}
	for i := range n {
		a0 := start + step*float64(i)
		a1 := a0 + step
		p0 := ArcPoint(center, radius, a0)
		p3 := ArcPoint(center, radius, a1)
		s0, c0 := math.Sincos(a0)
		s1, c1 := math.Sincos(a1)
		p1 := Offset{X: p0.X - k*radius*s0, Y: p0.Y + k*radius*c0}
		p2 := Offset{X: p3.X + k*radius*s1, Y: p3.Y - k*radius*c1}
		out = append(out, Segment{Verb: VerbCubicTo, P: [3]Offset{p1, p2, p3}})
	}
	return out
}

// Hash returns a content hash of the path geometry and fill rule.
// Equal paths hash equally across frames, which is what the mesh cache and
// atlas key on.
func (p *Path) Hash() uint64 {
	if p == nil {
		return 0
	}
	d := xxhash.New()
	var buf [8]byte
	buf[0] = byte(p.FillRule)
	_, _ = d.Write(buf[:1])
	for _, seg := range p.Segments {
		buf[0] = byte(seg.Verb)
		_, _ = d.Write(buf[:1])
		for _, pt := range seg.P {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt.X))
			_, _ = d.Write(buf[:])
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt.Y))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}
