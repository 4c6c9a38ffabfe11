package tessellate

import (
	"cmp"
	"math"
	"slices"

	"github.com/go-drift/lattice/pkg/graphics"
)

// areaEpsilon is the smallest contour area that still produces triangles.
const areaEpsilon = 1e-9

// Fill triangulates the interior of path under rule.
//
// Contours are classified as outer boundaries or holes by nesting depth and
// winding, holes are bridged into their nearest enclosing outer contour and
// the resulting simple polygons are ear clipped. Self-intersecting contours
// are triangulated as drawn and may overlap.
func Fill(path *graphics.Path, rule graphics.FillRule, tolerance float64) *Mesh {
	var polys [][]graphics.Offset
	for _, c := range Flatten(path, tolerance) {
		if len(c.Points) >= 3 {
			polys = append(polys, c.Points)
		}
	}
	return fillPolygons(polys, rule)
}

// FillPieces triangulates every contour of path on its own. It is used for
// stroke geometry, whose pieces overlap but never form holes.
func FillPieces(path *graphics.Path, tolerance float64) *Mesh {
	out := &Mesh{}
	for _, c := range Flatten(path, tolerance) {
		if len(c.Points) < 3 {
			continue
		}
		out.append(fillPolygons([][]graphics.Offset{c.Points}, graphics.FillRuleNonZero))
	}
	return out
}

type ring struct {
	pts   []graphics.Offset
	area  float64
	sign  int
	outer bool
	hole  bool
	holes []int
}

func fillPolygons(polys [][]graphics.Offset, rule graphics.FillRule) *Mesh {
	rings := make([]*ring, 0, len(polys))
	for _, pts := range polys {
		a := signedArea(pts)
		if math.Abs(a) <= areaEpsilon {
			continue
		}
		s := 1
		if a < 0 {
			s = -1
		}
		rings = append(rings, &ring{pts: pts, area: a, sign: s})
	}
	if len(rings) == 0 {
		return &Mesh{}
	}

	// containers[i] lists the rings enclosing ring i, smallest first.
	containers := make([][]int, len(rings))
	for i, r := range rings {
		for j, o := range rings {
			if i == j || math.Abs(o.area) <= math.Abs(r.area) {
				continue
			}
			if pointInPolygon(r.pts[0], o.pts) {
				containers[i] = append(containers[i], j)
			}
		}
		slices.SortFunc(containers[i], func(a, b int) int {
			return cmp.Compare(math.Abs(rings[a].area), math.Abs(rings[b].area))
		})
	}

	for i, r := range rings {
		var inside, outside bool
		switch rule {
		case graphics.FillRuleEvenOdd:
			depth := len(containers[i])
			inside = (depth+1)%2 == 1
			outside = depth%2 == 1
		default:
			w := r.sign
			for _, j := range containers[i] {
				w += rings[j].sign
			}
			inside = w != 0
			outside = w-r.sign != 0
		}
		r.outer = inside && !outside
		r.hole = !inside && outside
	}

	for i, r := range rings {
		if !r.hole {
			continue
		}
		for _, j := range containers[i] {
			if rings[j].outer {
				rings[j].holes = append(rings[j].holes, i)
				break
			}
		}
	}

	m := &Mesh{}
	for _, r := range rings {
		if !r.outer {
			continue
		}
		m.append(triangulate(r, rings))
	}
	return m
}

// triangulate ear clips an outer ring together with its holes.
func triangulate(r *ring, rings []*ring) *Mesh {
	var verts []graphics.Offset
	addRing := func(pts []graphics.Offset, reverse bool) []int {
		idx := make([]int, len(pts))
		base := len(verts)
		verts = append(verts, pts...)
		for i := range pts {
			idx[i] = base + i
		}
		if reverse {
			slices.Reverse(idx)
		}
		return idx
	}

	poly := addRing(r.pts, r.area < 0)
	holes := make([][]int, 0, len(r.holes))
	for _, h := range r.holes {
		holes = append(holes, addRing(rings[h].pts, rings[h].area > 0))
	}
	slices.SortFunc(holes, func(a, b []int) int {
		return cmp.Compare(maxX(verts, b), maxX(verts, a))
	})
	for _, h := range holes {
		poly = bridge(verts, poly, h)
	}

	m := &Mesh{Vertices: make([]Vertex, len(verts))}
	for i, v := range verts {
		m.Vertices[i] = Vertex{X: float32(v.X), Y: float32(v.Y)}
	}
	for _, t := range earClip(verts, poly) {
		m.Indices = append(m.Indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}
	return m
}

func maxX(verts []graphics.Offset, idx []int) float64 {
	best := math.Inf(-1)
	for _, i := range idx {
		best = math.Max(best, verts[i].X)
	}
	return best
}

// bridge splices hole into poly through a pair of coincident edges joining
// the hole's rightmost vertex to a vertex of poly that it can see.
func bridge(verts []graphics.Offset, poly, hole []int) []int {
	hm := 0
	for i, v := range hole {
		if verts[v].X > verts[hole[hm]].X {
			hm = i
		}
	}
	m := verts[hole[hm]]

	// Cast a ray towards +X and find the closest edge it hits.
	best := math.Inf(1)
	pos := -1
	var hit graphics.Offset
	n := len(poly)
	for i := range n {
		a, b := verts[poly[i]], verts[poly[(i+1)%n]]
		if (a.Y > m.Y) == (b.Y > m.Y) {
			continue
		}
		x := a.X + (m.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if x < m.X || x >= best {
			continue
		}
		best = x
		hit = graphics.Offset{X: x, Y: m.Y}
		pos = i
		if b.X > a.X {
			pos = (i + 1) % n
		}
	}
	if pos < 0 {
		pos = nearest(verts, poly, m)
	} else {
		pos = visible(verts, poly, pos, m, hit)
	}
	pos = wedge(verts, poly, pos, m)

	out := make([]int, 0, len(poly)+len(hole)+2)
	out = append(out, poly[:pos+1]...)
	out = append(out, hole[hm:]...)
	out = append(out, hole[:hm+1]...)
	out = append(out, poly[pos])
	out = append(out, poly[pos+1:]...)
	return out
}

// visible refines candidate: when other vertices of poly lie inside the
// triangle (m, hit, candidate) the one with the smallest angle to the ray
// is taken instead.
func visible(verts []graphics.Offset, poly []int, candidate int, m, hit graphics.Offset) int {
	p := verts[poly[candidate]]
	best := candidate
	bestAngle := math.Inf(1)
	bestDist := math.Inf(1)
	for i, v := range poly {
		if i == candidate {
			continue
		}
		q := verts[v]
		if q == p || q.X < m.X || !inTriangle(m, hit, p, q) {
			continue
		}
		angle := math.Abs(math.Atan2(q.Y-m.Y, q.X-m.X))
		dist := m.Distance(q)
		if angle < bestAngle || (angle == bestAngle && dist < bestDist) {
			best, bestAngle, bestDist = i, angle, dist
		}
	}
	return best
}

// wedge picks, among the copies of a vertex duplicated by earlier bridges,
// the one whose interior angle contains the direction towards m.
func wedge(verts []graphics.Offset, poly []int, pos int, m graphics.Offset) int {
	v := verts[poly[pos]]
	n := len(poly)
	for i := range n {
		if verts[poly[i]] != v {
			continue
		}
		prev, next := verts[poly[(i-1+n)%n]], verts[poly[(i+1)%n]]
		if locallyInside(prev, v, next, m) {
			return i
		}
	}
	return pos
}

func locallyInside(prev, v, next, q graphics.Offset) bool {
	if orient(prev, v, next) >= 0 {
		return orient(v, next, q) >= 0 && orient(prev, v, q) >= 0
	}
	return orient(v, next, q) >= 0 || orient(prev, v, q) >= 0
}

func nearest(verts []graphics.Offset, poly []int, m graphics.Offset) int {
	best, dist := 0, math.Inf(1)
	for i, v := range poly {
		if d := m.Distance(verts[v]); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// earClip triangulates a counter-clockwise (positive area) polygon that may
// contain coincident bridge vertices.
func earClip(verts []graphics.Offset, poly []int) [][3]int {
	n := len(poly)
	if n < 3 {
		return nil
	}
	prev := make([]int, n)
	next := make([]int, n)
	for i := range n {
		prev[i] = (i - 1 + n) % n
		next[i] = (i + 1) % n
	}
	out := make([][3]int, 0, n-2)
	remaining := n
	i := 0
	stall := 0
	for remaining > 3 {
		p, nx := prev[i], next[i]
		a, b, c := verts[poly[p]], verts[poly[i]], verts[poly[nx]]
		turn := orient(a, b, c)
		switch {
		case math.Abs(turn) <= areaEpsilon:
			// Collinear or a zero-width spike.
		case turn > 0 && isEar(verts, poly, next, p, i, nx):
			out = append(out, [3]int{poly[p], poly[i], poly[nx]})
		default:
			i = nx
			stall++
			if stall <= remaining {
				continue
			}
			// No ear left: the remaining polygon is degenerate or self
			// intersecting. Cut the first convex vertex to make progress.
			i = firstConvex(verts, poly, prev, next, i, remaining)
			p, nx = prev[i], next[i]
			if orient(verts[poly[p]], verts[poly[i]], verts[poly[nx]]) > areaEpsilon {
				out = append(out, [3]int{poly[p], poly[i], poly[nx]})
			}
		}
		next[p], prev[nx] = nx, p
		remaining--
		stall = 0
		i = p
	}
	p, nx := prev[i], next[i]
	if orient(verts[poly[p]], verts[poly[i]], verts[poly[nx]]) > areaEpsilon {
		out = append(out, [3]int{poly[p], poly[i], poly[nx]})
	}
	return out
}

func isEar(verts []graphics.Offset, poly, next []int, p, i, nx int) bool {
	a, b, c := verts[poly[p]], verts[poly[i]], verts[poly[nx]]
	for j := next[nx]; j != p; j = next[j] {
		q := verts[poly[j]]
		if q == a || q == b || q == c {
			continue
		}
		if inTriangle(a, b, c, q) {
			return false
		}
	}
	return true
}

func firstConvex(verts []graphics.Offset, poly, prev, next []int, start, remaining int) int {
	i := start
	for range remaining {
		if orient(verts[poly[prev[i]]], verts[poly[i]], verts[poly[next[i]]]) > areaEpsilon {
			return i
		}
		i = next[i]
	}
	return start
}

func orient(a, b, c graphics.Offset) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// inTriangle reports whether q lies inside or on the boundary of the
// triangle (a, b, c), in either winding.
func inTriangle(a, b, c, q graphics.Offset) bool {
	d1, d2, d3 := orient(a, b, q), orient(b, c, q), orient(c, a, q)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func signedArea(pts []graphics.Offset) float64 {
	var sum float64
	n := len(pts)
	for i := range n {
		a, b := pts[i], pts[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

func pointInPolygon(p graphics.Offset, poly []graphics.Offset) bool {
	in := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}
