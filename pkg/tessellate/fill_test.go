package tessellate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/lattice/pkg/graphics"
)

func square(p *graphics.Path, x, y, s float64, reverse bool) *graphics.Path {
	if reverse {
		return p.MoveTo(x, y).LineTo(x, y+s).LineTo(x+s, y+s).LineTo(x+s, y).Close()
	}
	return p.MoveTo(x, y).LineTo(x+s, y).LineTo(x+s, y+s).LineTo(x, y+s).Close()
}

// requireOriented checks that every triangle winds the same way.
func requireOriented(t *testing.T, m *Mesh) {
	t.Helper()
	for i := range m.Triangles() {
		a, b, c := m.Triangle(i)
		require.Greater(t, cross(a, b, c), float32(0), "triangle %d is not positively wound", i)
	}
}

func TestFillRect(t *testing.T) {
	m := Fill(graphics.RectPath(graphics.RectFromLTWH(0, 0, 10, 20)), graphics.FillRuleNonZero, 0.25)
	assert.Equal(t, 2, m.Triangles())
	assert.InDelta(t, 200, m.Area(), 1e-4)
	assert.Equal(t, graphics.Rect{Right: 10, Bottom: 20}, m.Bounds())
	requireOriented(t, m)
}

func TestFillClockwiseRect(t *testing.T) {
	m := Fill(square(graphics.NewPath(), 0, 0, 10, true), graphics.FillRuleNonZero, 0.25)
	assert.Equal(t, 2, m.Triangles())
	assert.InDelta(t, 100, m.Area(), 1e-4)
	requireOriented(t, m)
}

func TestFillConcave(t *testing.T) {
	p := graphics.NewPath().
		MoveTo(0, 0).LineTo(20, 0).LineTo(20, 10).
		LineTo(10, 10).LineTo(10, 20).LineTo(0, 20).Close()
	m := Fill(p, graphics.FillRuleNonZero, 0.25)
	assert.Equal(t, 4, m.Triangles())
	assert.InDelta(t, 300, m.Area(), 1e-4)
	assert.False(t, m.Covers(15, 15))
	assert.True(t, m.Covers(5, 15))
	requireOriented(t, m)
}

func TestFillEvenOddHole(t *testing.T) {
	p := square(graphics.NewPath(), 0, 0, 10, false)
	square(p, 3, 3, 4, false)
	m := Fill(p, graphics.FillRuleEvenOdd, 0.25)
	assert.InDelta(t, 84, m.Area(), 1e-3)
	assert.False(t, m.Covers(5, 5))
	assert.True(t, m.Covers(1, 1))
	assert.True(t, m.Covers(8.5, 5))
	requireOriented(t, m)
}

func TestFillNonZeroWinding(t *testing.T) {
	same := square(graphics.NewPath(), 0, 0, 10, false)
	square(same, 3, 3, 4, false)
	m := Fill(same, graphics.FillRuleNonZero, 0.25)
	assert.InDelta(t, 100, m.Area(), 1e-3, "same winding fills the inner square")
	assert.True(t, m.Covers(5, 5))

	opposite := square(graphics.NewPath(), 0, 0, 10, false)
	square(opposite, 3, 3, 4, true)
	m = Fill(opposite, graphics.FillRuleNonZero, 0.25)
	assert.InDelta(t, 84, m.Area(), 1e-3, "opposite winding cuts a hole")
	assert.False(t, m.Covers(5, 5))
	requireOriented(t, m)
}

func TestFillNestedEvenOdd(t *testing.T) {
	p := square(graphics.NewPath(), 0, 0, 30, false)
	square(p, 5, 5, 20, false)
	square(p, 10, 10, 10, false)
	m := Fill(p, graphics.FillRuleEvenOdd, 0.25)
	assert.InDelta(t, 900-400+100, m.Area(), 1e-3)
	assert.True(t, m.Covers(15, 15))
	assert.False(t, m.Covers(7, 15))
	requireOriented(t, m)
}

func TestFillTwoHoles(t *testing.T) {
	p := square(graphics.NewPath(), 0, 0, 30, false)
	square(p, 5, 5, 5, true)
	square(p, 20, 12, 5, true)
	m := Fill(p, graphics.FillRuleNonZero, 0.25)
	assert.InDelta(t, 900-50, m.Area(), 1e-3)
	assert.False(t, m.Covers(7.5, 7.5))
	assert.False(t, m.Covers(22.5, 14.5))
	requireOriented(t, m)
}

func TestFillDisjoint(t *testing.T) {
	p := square(graphics.NewPath(), 0, 0, 10, false)
	square(p, 20, 0, 10, true)
	m := Fill(p, graphics.FillRuleNonZero, 0.25)
	assert.Equal(t, 4, m.Triangles())
	assert.InDelta(t, 200, m.Area(), 1e-4)
}

func TestFillCircle(t *testing.T) {
	m := Fill(graphics.CirclePath(graphics.Offset{X: 50, Y: 50}, 40), graphics.FillRuleNonZero, 0.1)
	assert.InDelta(t, 3.14159*40*40, m.Area(), 3.14159*40*40*0.01)
	assert.True(t, m.Covers(50, 50))
	requireOriented(t, m)
}

func TestFillDegenerate(t *testing.T) {
	assert.True(t, Fill(nil, graphics.FillRuleNonZero, 0.25).IsEmpty())
	line := graphics.NewPath().MoveTo(0, 0).LineTo(10, 10).Close()
	assert.True(t, Fill(line, graphics.FillRuleNonZero, 0.25).IsEmpty())
	flat := graphics.NewPath().MoveTo(0, 0).LineTo(10, 0).LineTo(20, 0).Close()
	assert.True(t, Fill(flat, graphics.FillRuleNonZero, 0.25).IsEmpty())
}
