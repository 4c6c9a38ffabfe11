package tessellate

import (
	"math"

	"github.com/go-drift/lattice/pkg/graphics"
)

// Stroke expands the outline of path into fill geometry.
//
// The result is a set of closed convex pieces: one quad per flattened
// segment, one piece per join and one per cap. Pieces overlap where they
// meet, so they are triangulated one by one rather than as a single fill.
func Stroke(path *graphics.Path, style graphics.StrokeStyle, tolerance float64) *graphics.Path {
	out := graphics.NewPath()
	hw := style.Width / 2
	if hw <= 0 {
		return out
	}
	if tolerance <= 0 {
		tolerance = 0.25
	}
	limit := style.MiterLimit
	if limit <= 0 {
		limit = graphics.DefaultMiterLimit
	}
	s := stroker{out: out, hw: hw, style: style, limit: limit, tol: tolerance}
	for _, c := range Flatten(path, tolerance) {
		s.contour(c)
	}
	return out
}

type stroker struct {
	out   *graphics.Path
	hw    float64
	style graphics.StrokeStyle
	limit float64
	tol   float64
}

func (s *stroker) contour(c Contour) {
	pts := c.Points
	n := len(pts)
	if n < 2 {
		return
	}
	closed := c.Closed && n > 2
	segs := n - 1
	if closed {
		segs = n
	}
	for i := range segs {
		a, b := pts[i], pts[(i+1)%n]
		nrm := s.normal(b.Sub(a))
		s.polygon(a.Add(nrm), b.Add(nrm), b.Sub(nrm), a.Sub(nrm))
	}
	first, last := 1, n-1
	if closed {
		first, last = 0, n
	}
	for i := first; i < last; i++ {
		prev := pts[(i-1+n)%n]
		next := pts[(i+1)%n]
		s.join(pts[i], pts[i].Sub(prev), next.Sub(pts[i]))
	}
	if !closed {
		s.cap(pts[0], pts[0].Sub(pts[1]))
		s.cap(pts[n-1], pts[n-1].Sub(pts[n-2]))
	}
}

// normal returns the left normal of d scaled to the half width.
func (s *stroker) normal(d graphics.Offset) graphics.Offset {
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return graphics.Offset{}
	}
	return graphics.Offset{X: -d.Y / l * s.hw, Y: d.X / l * s.hw}
}

func (s *stroker) polygon(pts ...graphics.Offset) {
	s.out.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		s.out.LineTo(p.X, p.Y)
	}
	s.out.Close()
}

// join fills the wedge on the outer side of the corner at p.
func (s *stroker) join(p, d0, d1 graphics.Offset) {
	cr := d0.X*d1.Y - d0.Y*d1.X
	dot := d0.X*d1.X + d0.Y*d1.Y
	l0, l1 := math.Hypot(d0.X, d0.Y), math.Hypot(d1.X, d1.Y)
	if l0 == 0 || l1 == 0 {
		return
	}
	if math.Abs(cr) <= 1e-9*l0*l1 && dot > 0 {
		return
	}
	side := 1.0
	if cr > 0 {
		side = -1
	}
	n0 := s.normal(d0).Scale(side)
	n1 := s.normal(d1).Scale(side)
	o0, o1 := p.Add(n0), p.Add(n1)

	switch s.style.Join {
	case graphics.JoinRound:
		s.fan(p, n0, n1)
	case graphics.JoinMiter:
		cos := dot / (l0 * l1)
		half := math.Sqrt((1 + cos) / 2)
		if half > 0 && 1/half <= s.limit {
			mid := n0.Add(n1)
			ml := math.Hypot(mid.X, mid.Y)
			if ml > 0 {
				m := p.Add(mid.Scale(s.hw / half / ml))
				s.polygon(p, o0, m, o1)
				return
			}
		}
		s.polygon(p, o0, o1)
	default:
		s.polygon(p, o0, o1)
	}
}

// cap closes an open end at p; out points away from the contour.
func (s *stroker) cap(p, out graphics.Offset) {
	l := math.Hypot(out.X, out.Y)
	if l == 0 {
		return
	}
	u := out.Scale(s.hw / l)
	n := s.normal(out)
	switch s.style.Cap {
	case graphics.CapSquare:
		s.polygon(p.Add(n), p.Add(n).Add(u), p.Sub(n).Add(u), p.Sub(n))
	case graphics.CapRound:
		// n is out rotated a quarter turn, so a negative half turn from n
		// passes through out.
		s.arc(p, math.Atan2(n.Y, n.X), -math.Pi)
	}
}

// fan adds the circular sector around p from offset a to offset b, taking
// the shorter way round.
func (s *stroker) fan(p, a, b graphics.Offset) {
	a0 := math.Atan2(a.Y, a.X)
	sweep := math.Atan2(b.Y, b.X) - a0
	for sweep > math.Pi {
		sweep -= 2 * math.Pi
	}
	for sweep <= -math.Pi {
		sweep += 2 * math.Pi
	}
	s.arc(p, a0, sweep)
}

func (s *stroker) arc(p graphics.Offset, a0, sweep float64) {
	steps := ArcSegments(s.hw, sweep, s.tol)
	pts := make([]graphics.Offset, 0, steps+2)
	pts = append(pts, p)
	for i := 0; i <= steps; i++ {
		pts = append(pts, graphics.ArcPoint(p, s.hw, a0+sweep*float64(i)/float64(steps)))
	}
	s.polygon(pts...)
}
