package graphics

import (
	"math"
	"testing"
)

func TestMatrixMultiplyOrder(t *testing.T) {
	m := Translation(10, 20).Multiply(Scaling(2, 3))
	got := m.Apply(Offset{X: 1, Y: 1})
	if got != (Offset{X: 12, Y: 23}) {
		t.Errorf("Apply = %+v, want {12 23}", got)
	}
}

func TestMatrixInvert(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"identity", Identity},
		{"translation", Translation(5, -7)},
		{"scale", Scaling(2, 0.5)},
		{"rotation", Translation(3, 4).Multiply(Rotation(math.Pi / 5)).Multiply(Scaling(2, 2))},
	}
	p := Offset{X: 13, Y: -4}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.m.Invert()
			if !ok {
				t.Fatal("matrix reported singular")
			}
			back := inv.Apply(tt.m.Apply(p))
			if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
				t.Errorf("round trip = %+v, want %+v", back, p)
			}
		})
	}
	if _, ok := Scaling(0, 1).Invert(); ok {
		t.Error("degenerate scale inverted")
	}
}

func TestMaxScale(t *testing.T) {
	if s := Scaling(2, 5).MaxScale(); s != 5 {
		t.Errorf("MaxScale = %v, want 5", s)
	}
	if s := Rotation(1).MaxScale(); math.Abs(s-1) > 1e-12 {
		t.Errorf("rotation MaxScale = %v, want 1", s)
	}
}

func TestRectIntersectAndUnion(t *testing.T) {
	a := RectFromLTWH(0, 0, 10, 10)
	b := RectFromLTWH(5, 5, 10, 10)
	if got := a.Intersect(b); got != RectFromLTWH(5, 5, 5, 5) {
		t.Errorf("Intersect = %+v", got)
	}
	if got := a.Union(b); got != RectFromLTWH(0, 0, 15, 15) {
		t.Errorf("Union = %+v", got)
	}
	if got := a.Intersect(RectFromLTWH(20, 20, 1, 1)); !got.IsEmpty() {
		t.Errorf("disjoint Intersect = %+v, want empty", got)
	}
	if got := (Rect{}).Union(b); got != b {
		t.Errorf("empty Union = %+v, want %+v", got, b)
	}
}

func TestPathHashIsContentBased(t *testing.T) {
	a := RectPath(RectFromLTWH(0, 0, 10, 10))
	b := RectPath(RectFromLTWH(0, 0, 10, 10))
	if a.Hash() != b.Hash() {
		t.Error("equal paths hash differently")
	}
	b.FillRule = FillRuleEvenOdd
	if a.Hash() == b.Hash() {
		t.Error("fill rule does not affect the hash")
	}
	if c := RectPath(RectFromLTWH(0, 0, 10, 11)); a.Hash() == c.Hash() {
		t.Error("different geometry hashes equal")
	}
}

func TestPathTransformApproximatesArcs(t *testing.T) {
	p := CirclePath(Offset{X: 0, Y: 0}, 10).Transform(Scaling(2, 2))
	for _, seg := range p.Segments {
		if seg.Verb == VerbArcTo {
			t.Fatal("scaled path still contains an arc")
		}
	}
	b := p.Bounds()
	if b.Right < 19.9 || b.Right > 20.1 {
		t.Errorf("scaled circle bounds = %+v", b)
	}
	moved := CirclePath(Offset{}, 10).Transform(Translation(5, 5))
	if moved.Segments[1].Verb != VerbArcTo || moved.Segments[1].P[0] != (Offset{X: 5, Y: 5}) {
		t.Errorf("translated arc = %+v", moved.Segments[1])
	}
}
