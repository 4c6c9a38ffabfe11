package layout

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/tree"
)

// box has a fixed preferred size.
type box struct {
	size     graphics.Size
	measures int
}

func (b *box) Measure(_ *MeasureContext, c Constraints) graphics.Size {
	b.measures++
	return c.Constrain(b.size)
}

// row places its children left to right at their intrinsic widths.
type row struct {
	measures int
}

func (r *row) Measure(ctx *MeasureContext, c Constraints) graphics.Size {
	r.measures++
	var w, h float64
	for _, id := range ctx.Children() {
		s := ctx.MeasureChild(id, Constraints{MaxWidth: math.Inf(1), MaxHeight: c.MaxHeight})
		w += s.Width
		h = math.Max(h, s.Height)
	}
	return c.Constrain(graphics.Size{Width: w, Height: h})
}

func (r *row) Arrange(ctx *ArrangeContext, _ graphics.Size) {
	x := 0.0
	for _, id := range ctx.Children() {
		ctx.Place(id, graphics.Offset{X: x})
		x += ctx.ChildSize(id).Width
	}
}

func build(root any, children ...any) (*tree.Tree, arena.ID, []arena.ID) {
	t := tree.New()
	rootID := t.Insert(arena.ID{}, &tree.Node{TypeName: "root", Render: root})
	_ = t.SetRoot(rootID)
	t.Mark(rootID, tree.NeedsLayout)
	var ids []arena.ID
	for _, c := range children {
		id := t.Insert(rootID, &tree.Node{TypeName: "child", Render: c})
		t.Mark(id, tree.NeedsLayout)
		ids = append(ids, id)
	}
	return t, rootID, ids
}

func rects(t *tree.Tree, ids []arena.ID) []graphics.Rect {
	out := make([]graphics.Rect, len(ids))
	for i, id := range ids {
		n := t.Node(id)
		out[i] = graphics.RectFromOffsetSize(n.Geometry.Offset, n.Geometry.Size)
	}
	return out
}

func quietDiagnostics(t *testing.T) {
	t.Helper()
	old := errors.DefaultHandler
	errors.SetHandler(&errors.LogHandler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(func() { errors.SetHandler(old) })
}

func newPipeline() *Pipeline {
	return NewPipeline(config.Default().Layout)
}

func TestRowUnboundedUsesIntrinsicWidths(t *testing.T) {
	tr, _, ids := build(&row{},
		&box{size: graphics.Size{Width: 30, Height: 10}},
		&box{size: graphics.Size{Width: 40, Height: 10}},
		&box{size: graphics.Size{Width: 50, Height: 10}},
	)
	res := newPipeline().Run(tr, Unbounded())

	if res.Size.Width != 120 {
		t.Errorf("row width = %v, want 120", res.Size.Width)
	}
	want := []graphics.Rect{
		graphics.RectFromLTWH(0, 0, 30, 10),
		graphics.RectFromLTWH(30, 0, 40, 10),
		graphics.RectFromLTWH(70, 0, 50, 10),
	}
	if diff := cmp.Diff(want, rects(tr, ids)); diff != "" {
		t.Errorf("child rects mismatch (-want +got):\n%s", diff)
	}
}

func TestRunTwiceIsDeterministic(t *testing.T) {
	tr, root, ids := build(&row{},
		&box{size: graphics.Size{Width: 30, Height: 10}},
		&box{size: graphics.Size{Width: 40, Height: 20}},
	)
	p := newPipeline()
	c := Loose(graphics.Size{Width: 300, Height: 100})
	p.Run(tr, c)
	first := rects(tr, append([]arena.ID{root}, ids...))

	res := p.Run(tr, c)
	second := rects(tr, append([]arena.ID{root}, ids...))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rects changed between runs (-first +second):\n%s", diff)
	}
	if res.Measured != 0 || res.Arranged != 0 {
		t.Errorf("clean run measured %d and arranged %d nodes, want 0", res.Measured, res.Arranged)
	}
}

func TestChildResizeRemeasuresParentOnly(t *testing.T) {
	r := &row{}
	b0 := &box{size: graphics.Size{Width: 30, Height: 10}}
	b1 := &box{size: graphics.Size{Width: 40, Height: 10}}
	b2 := &box{size: graphics.Size{Width: 50, Height: 10}}
	tr, _, ids := build(r, b0, b1, b2)
	p := newPipeline()
	p.Run(tr, Unbounded())

	b1.size.Width = 60
	tr.Mark(ids[1], tree.NeedsLayout)
	res := p.Run(tr, Unbounded())

	if res.Measured != 2 {
		t.Errorf("Measured = %d, want 2 (child and parent)", res.Measured)
	}
	if b0.measures != 1 || b2.measures != 1 {
		t.Errorf("unchanged siblings re-measured: %d, %d", b0.measures, b2.measures)
	}
	if res.Size.Width != 140 {
		t.Errorf("row width = %v, want 140", res.Size.Width)
	}
	if got := tr.Node(ids[2]).Geometry.Offset.X; got != 90 {
		t.Errorf("third child x = %v, want 90", got)
	}
	if !tr.Node(ids[2]).Flags.Has(tree.NeedsPaint) {
		t.Error("moved sibling should need paint")
	}
}

func TestUnchangedSizeStopsPropagation(t *testing.T) {
	r := &row{}
	b := &box{size: graphics.Size{Width: 30, Height: 10}}
	tr, _, ids := build(r, b)
	p := newPipeline()
	p.Run(tr, Unbounded())
	for _, n := range tr.Preorder(tr.Root()) {
		tr.Clear(n.ID, tree.NeedsPaint)
	}

	tr.Mark(ids[0], tree.NeedsLayout)
	res := p.Run(tr, Unbounded())
	if res.Measured != 1 || r.measures != 1 {
		t.Errorf("Measured = %d, parent measures = %d; want 1, 1", res.Measured, r.measures)
	}
	if res.Arranged != 1 {
		t.Errorf("Arranged = %d, want 1", res.Arranged)
	}
	if tr.Node(ids[0]).Flags.Has(tree.NeedsPaint) {
		t.Error("unchanged geometry should not need paint")
	}
}

func TestRunClearsLayoutFlags(t *testing.T) {
	tr, _, _ := build(&row{}, &box{size: graphics.Size{Width: 5, Height: 5}})
	newPipeline().Run(tr, Unbounded())
	if dirty := tr.Dirty(tree.NeedsLayout); len(dirty) != 0 {
		t.Errorf("nodes still need layout: %v", dirty)
	}
}

func TestMountedChildRelayoutsParent(t *testing.T) {
	tr, root, _ := build(&row{}, &box{size: graphics.Size{Width: 30, Height: 10}})
	p := newPipeline()
	p.Run(tr, Unbounded())

	id := tr.Insert(root, &tree.Node{TypeName: "child", Render: &box{size: graphics.Size{Width: 20, Height: 10}}})
	tr.Mark(id, tree.NeedsLayout)
	res := p.Run(tr, Unbounded())

	if res.Size.Width != 50 {
		t.Errorf("row width = %v, want 50", res.Size.Width)
	}
	if got := tr.Node(id).Geometry.Offset.X; got != 30 {
		t.Errorf("new child x = %v, want 30", got)
	}
}

func TestPassThroughNode(t *testing.T) {
	tr, root, ids := build(nil, &box{size: graphics.Size{Width: 500, Height: 20}})
	res := newPipeline().Run(tr, Tight(graphics.Size{Width: 200, Height: 100}))

	if res.Size != (graphics.Size{Width: 200, Height: 100}) {
		t.Errorf("root size = %v", res.Size)
	}
	if got := tr.Node(ids[0]).Geometry.Size; got != (graphics.Size{Width: 200, Height: 100}) {
		t.Errorf("child size = %v, want the tight root size", got)
	}
	if tr.Node(root).Geometry.Offset != (graphics.Offset{}) {
		t.Error("root should sit at the origin")
	}
}

func TestInfiniteDesiredSizeIsSanitized(t *testing.T) {
	tr, _, _ := build(&box{size: graphics.Size{Width: math.Inf(1), Height: 10}})
	res := newPipeline().Run(tr, Unbounded())
	if !res.Size.IsFinite() {
		t.Errorf("root size = %v, want finite", res.Size)
	}
}

// greedy measures its children but asks for all the width it is offered.
type greedy struct{}

func (greedy) Measure(ctx *MeasureContext, c Constraints) graphics.Size {
	for _, id := range ctx.Children() {
		ctx.MeasureChild(id, c.Loosen())
	}
	return graphics.Size{Width: c.MaxWidth, Height: 20}
}

func TestInfiniteWidthFallsBackToWidestChild(t *testing.T) {
	tr, _, _ := build(greedy{},
		&box{size: graphics.Size{Width: 30, Height: 5}},
		&box{size: graphics.Size{Width: 70, Height: 5}},
	)
	res := newPipeline().Run(tr, Unbounded())
	if want := (graphics.Size{Width: 70, Height: 20}); res.Size != want {
		t.Errorf("root size = %v, want %v", res.Size, want)
	}
}

func TestRootConstraintChangeRelayouts(t *testing.T) {
	tr, _, _ := build(nil)
	p := newPipeline()
	p.Run(tr, Tight(graphics.Size{Width: 100, Height: 100}))
	res := p.Run(tr, Tight(graphics.Size{Width: 320, Height: 240}))
	if res.Size != (graphics.Size{Width: 320, Height: 240}) {
		t.Errorf("root size after resize = %v", res.Size)
	}
}

// aspect wants a height of half its arranged width.
type aspect struct{}

func (aspect) Measure(ctx *MeasureContext, c Constraints) graphics.Size {
	return c.Constrain(graphics.Size{Width: 100, Height: ctx.Geometry().Size.Width / 2})
}

func (aspect) Arrange(ctx *ArrangeContext, size graphics.Size) {
	if size.Height != size.Width/2 {
		ctx.RequestRemeasure()
	}
}

// grower never settles: it always wants to be wider than it was placed.
type grower struct{}

func (grower) Measure(ctx *MeasureContext, c Constraints) graphics.Size {
	return c.Constrain(graphics.Size{Width: ctx.Geometry().Size.Width + 10, Height: 10})
}

func (grower) Arrange(ctx *ArrangeContext, _ graphics.Size) {
	ctx.RequestRemeasure()
}

func TestFeedbackRemeasureConverges(t *testing.T) {
	tr, _, _ := build(aspect{})
	res := newPipeline().Run(tr, Loose(graphics.Size{Width: 200, Height: 200}))

	if res.Size != (graphics.Size{Width: 100, Height: 50}) {
		t.Errorf("size = %v, want 100x50", res.Size)
	}
	if res.Passes != 2 || len(res.NonConverged) != 0 {
		t.Errorf("passes = %d, non-converged = %v", res.Passes, res.NonConverged)
	}
}

func TestFeedbackNonConvergenceIsRecorded(t *testing.T) {
	quietDiagnostics(t)
	tr, root, _ := build(grower{})
	res := newPipeline().Run(tr, Loose(graphics.Size{Width: 500, Height: 500}))

	if res.Passes != 2 {
		t.Errorf("passes = %d, want 2 (one retry)", res.Passes)
	}
	if res.Size.Width != 20 {
		t.Errorf("width = %v, want the last computed 20", res.Size.Width)
	}
	if len(res.Diagnostics) != 1 || !errors.Is(res.Diagnostics[0], errors.ErrLayoutNonConvergence) {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
	if !tr.Node(root).Flags.Has(tree.NeedsLayout) {
		t.Error("non-converged node should stay flagged for the next frame")
	}
}

func TestConstraints(t *testing.T) {
	c := Constraints{MinWidth: 10, MaxWidth: 100, MinHeight: 0, MaxHeight: 50}
	if got := c.Constrain(graphics.Size{Width: 5, Height: 80}); got != (graphics.Size{Width: 10, Height: 50}) {
		t.Errorf("Constrain = %v", got)
	}
	d := c.Deflate(EdgeInsetsAll(10))
	if d.MinWidth != 0 || d.MaxWidth != 80 || d.MaxHeight != 30 {
		t.Errorf("Deflate = %v", d)
	}
	if !Tight(graphics.Size{Width: 3, Height: 4}).IsTight() || c.IsTight() {
		t.Error("IsTight")
	}
	u := Unbounded()
	if u.HasBoundedWidth() || u.HasBoundedHeight() {
		t.Error("Unbounded should have no max")
	}
	if got := c.Tighten(40, -1); got.MinWidth != 40 || got.MaxWidth != 40 || got.MaxHeight != 50 {
		t.Errorf("Tighten = %v", got)
	}
}
