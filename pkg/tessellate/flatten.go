// Package tessellate converts vector paths into triangle meshes.
//
// Curves are flattened adaptively so that the deviation from the true
// curve stays under a tolerance, strokes are expanded into fill geometry,
// and fills are triangulated by ear clipping after holes are bridged into
// their outer contours.
package tessellate

import (
	"math"

	"github.com/go-drift/lattice/pkg/graphics"
)

// maxSegments caps the subdivision of a single curve.
const maxSegments = 1024

// Contour is a flattened polyline.
type Contour struct {
	Points []graphics.Offset
	Closed bool
}

// Flatten approximates path with polylines whose distance from the true
// curves is at most tolerance.
//
// Quadratic and cubic segment counts follow Wang's formula; arcs are split
// so the sagitta of each chord stays within tolerance.
func Flatten(path *graphics.Path, tolerance float64) []Contour {
	if path.IsEmpty() {
		return nil
	}
	if tolerance <= 0 {
		tolerance = 0.25
	}
	f := flattener{tol: tolerance}
	for _, seg := range path.Segments {
		switch seg.Verb {
		case graphics.VerbMoveTo:
			f.finish(false)
			f.start = seg.P[0]
			f.pen = seg.P[0]
			f.cur = []graphics.Offset{seg.P[0]}
		case graphics.VerbLineTo:
			f.lineTo(seg.P[0])
		case graphics.VerbQuadTo:
			f.quadTo(seg.P[0], seg.P[1])
		case graphics.VerbCubicTo:
			f.cubicTo(seg.P[0], seg.P[1], seg.P[2])
		case graphics.VerbArcTo:
			f.arc(seg.P[0], seg.P[1].X, seg.P[1].Y, seg.P[2].X)
		case graphics.VerbClose:
			f.finish(true)
			f.pen = f.start
		}
	}
	f.finish(false)
	return f.out
}

type flattener struct {
	tol   float64
	start graphics.Offset
	pen   graphics.Offset
	cur   []graphics.Offset
	out   []Contour
}

func (f *flattener) ensureStarted() {
	if len(f.cur) == 0 {
		f.start = f.pen
		f.cur = []graphics.Offset{f.pen}
	}
}

func (f *flattener) add(p graphics.Offset) {
	f.ensureStarted()
	if last := f.cur[len(f.cur)-1]; last.Distance(p) < 1e-9 {
		return
	}
	f.cur = append(f.cur, p)
	f.pen = p
}

func (f *flattener) finish(closed bool) {
	if len(f.cur) == 0 {
		return
	}
	pts := f.cur
	if closed && len(pts) > 1 && pts[0].Distance(pts[len(pts)-1]) < 1e-9 {
		pts = pts[:len(pts)-1]
	}
	f.out = append(f.out, Contour{Points: pts, Closed: closed})
	f.cur = nil
}

func (f *flattener) lineTo(p graphics.Offset) {
	f.add(p)
}

func (f *flattener) quadTo(c, p graphics.Offset) {
	f.ensureStarted()
	p0 := f.pen
	n := QuadSegments(p0, c, p, f.tol)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		mt := 1 - t
		f.add(graphics.Offset{
			X: mt*mt*p0.X + 2*mt*t*c.X + t*t*p.X,
			Y: mt*mt*p0.Y + 2*mt*t*c.Y + t*t*p.Y,
		})
	}
}

func (f *flattener) cubicTo(c1, c2, p graphics.Offset) {
	f.ensureStarted()
	p0 := f.pen
	n := CubicSegments(p0, c1, c2, p, f.tol)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		c := 3 * mt * t * t
		d := t * t * t
		f.add(graphics.Offset{
			X: a*p0.X + b*c1.X + c*c2.X + d*p.X,
			Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p.Y,
		})
	}
}

func (f *flattener) arc(center graphics.Offset, radius, start, sweep float64) {
	f.add(graphics.ArcPoint(center, radius, start))
	n := ArcSegments(radius, sweep, f.tol)
	for i := 1; i <= n; i++ {
		f.add(graphics.ArcPoint(center, radius, start+sweep*float64(i)/float64(n)))
	}
}

// QuadSegments returns the number of line segments needed to keep a
// quadratic curve within tol.
func QuadSegments(p0, p1, p2 graphics.Offset, tol float64) int {
	dd := math.Hypot(p0.X-2*p1.X+p2.X, p0.Y-2*p1.Y+p2.Y)
	return segments(math.Sqrt(dd / (4 * tol)))
}

// CubicSegments returns the number of line segments needed to keep a cubic
// curve within tol.
func CubicSegments(p0, p1, p2, p3 graphics.Offset, tol float64) int {
	dd := math.Max(
		math.Hypot(p0.X-2*p1.X+p2.X, p0.Y-2*p1.Y+p2.Y),
		math.Hypot(p1.X-2*p2.X+p3.X, p1.Y-2*p2.Y+p3.Y),
	)
	return segments(math.Sqrt(0.75 * dd / tol))
}

// ArcSegments returns the number of chords needed to keep an arc within
// tol. No chord spans more than a quarter turn.
func ArcSegments(radius, sweep, tol float64) int {
	sweep = math.Abs(sweep)
	if radius <= 0 || sweep == 0 {
		return 1
	}
	step := math.Pi / 2
	if tol < radius {
		step = math.Min(step, 2*math.Acos(1-tol/radius))
	}
	return segments(sweep / step)
}

func segments(v float64) int {
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	return int(math.Min(math.Ceil(v), maxSegments))
}
