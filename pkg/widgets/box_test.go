package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/paint"
)

func commandKinds(f *paint.Frame) []paint.CommandKind {
	out := make([]paint.CommandKind, len(f.Commands))
	for i, c := range f.Commands {
		out[i] = c.Kind
	}
	return out
}

func TestPaddingInsetsChild(t *testing.T) {
	h := newHarness(t, 100, 60)
	h.pump(Padding{
		Padding: layout.EdgeInsets{Left: 10, Top: 5, Right: 10, Bottom: 5},
		Child:   ColoredBox{WidgetKey: "box", Color: graphics.ColorRed},
	})

	if diff := cmp.Diff(ltwh(10, 5, 80, 50), h.rect("box")); diff != "" {
		t.Errorf("padded child (-want +got):\n%s", diff)
	}
}

func TestPaddingWithoutChildIsInsetSized(t *testing.T) {
	h := newHarness(t, 100, 60)
	h.pump(Centered(Padded(layout.EdgeInsetsAll(8), nil)))

	root := h.tree.Node(h.tree.Root())
	pad := h.tree.Node(root.Children[0])
	if got := pad.Geometry.Size; got != (graphics.Size{Width: 16, Height: 16}) {
		t.Errorf("padding size = %v, want 16x16", got)
	}
	if got := pad.Geometry.Offset; got != (graphics.Offset{X: 42, Y: 22}) {
		t.Errorf("padding offset = %v, want (42, 22)", got)
	}
}

func TestSizedBoxTightensExplicitDimensions(t *testing.T) {
	tests := []struct {
		name string
		box  SizedBox
		want graphics.Size
	}{
		{"both", SizedBox{Width: 30, Height: 20}, graphics.Size{Width: 30, Height: 20}},
		{"width only", SizedBox{Width: 30, Child: SizedBox{Height: 12}}, graphics.Size{Width: 30, Height: 12}},
		{"clamped", SizedBox{Width: 500, Height: 20}, graphics.Size{Width: 100, Height: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.box.WidgetKey = "box"
			h := newHarness(t, 100, 60)
			h.pump(Align{Alignment: layout.AlignmentTopLeft, Child: tt.box})
			if got := h.node("box").Geometry.Size; got != tt.want {
				t.Errorf("size = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlignPlacesChild(t *testing.T) {
	tests := []struct {
		alignment layout.Alignment
		want      graphics.Rect
	}{
		{layout.AlignmentTopLeft, ltwh(0, 0, 20, 10)},
		{layout.AlignmentCenter, ltwh(40, 20, 20, 10)},
		{layout.AlignmentBottomRight, ltwh(80, 40, 20, 10)},
		{layout.AlignmentCenterRight, ltwh(80, 20, 20, 10)},
	}
	for _, tt := range tests {
		h := newHarness(t, 100, 50)
		h.pump(Align{Alignment: tt.alignment, Child: SizedBox{WidgetKey: "c", Width: 20, Height: 10}})
		if diff := cmp.Diff(tt.want, h.rect("c")); diff != "" {
			t.Errorf("alignment %+v (-want +got):\n%s", tt.alignment, diff)
		}
	}
}

func TestStackAlignsAndExpands(t *testing.T) {
	h := newHarness(t, 200, 200)
	h.pump(Stack{Alignment: layout.AlignmentBottomRight, Children: []core.Widget{
		SizedBox{WidgetKey: "a", Width: 100, Height: 50},
		SizedBox{WidgetKey: "b", Width: 20, Height: 10},
	}})
	if diff := cmp.Diff(ltwh(100, 150, 100, 50), h.rect("a")); diff != "" {
		t.Errorf("bottom child (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ltwh(180, 190, 20, 10), h.rect("b")); diff != "" {
		t.Errorf("top child (-want +got):\n%s", diff)
	}

	h = newHarness(t, 200, 200)
	h.pump(Stack{Fit: StackFitExpand, Children: []core.Widget{
		ColoredBox{WidgetKey: "fill", Color: graphics.ColorWhite},
	}})
	if diff := cmp.Diff(ltwh(0, 0, 200, 200), h.rect("fill")); diff != "" {
		t.Errorf("expanded child (-want +got):\n%s", diff)
	}
}

func TestStackOfAlignsTopLeft(t *testing.T) {
	h := newHarness(t, 200, 200)
	h.pump(StackOf(SizedBox{WidgetKey: "a", Width: 20, Height: 20}))
	if got := h.rect("a").Origin(); got != (graphics.Offset{}) {
		t.Errorf("child origin = %v, want (0, 0)", got)
	}
}

func TestColoredBoxPaintsBounds(t *testing.T) {
	h := newHarness(t, 100, 60)
	f := h.pump(Padding{
		Padding: layout.EdgeInsetsAll(10),
		Child:   ColoredBox{WidgetKey: "box", Color: graphics.ColorRed},
	})

	if len(f.Commands) != 1 {
		t.Fatalf("commands = %v, want one fill", f.Commands)
	}
	c := f.Commands[0]
	if c.Kind != paint.KindFillPath || c.Paint.Color != graphics.ColorRed {
		t.Errorf("command = %v, want red fill", c)
	}
	if got := c.Transform.TransformRect(c.Path.Bounds()); got != ltwh(10, 10, 80, 40) {
		t.Errorf("fill covers %v, want %v", got, ltwh(10, 10, 80, 40))
	}
}

func TestOpacityLayers(t *testing.T) {
	box := ColoredBox{Color: graphics.ColorBlue}
	tests := []struct {
		name    string
		opacity float64
		want    []paint.CommandKind
	}{
		{"opaque paints directly", 1, []paint.CommandKind{paint.KindFillPath}},
		{"translucent uses a layer", 0.5, []paint.CommandKind{paint.KindPushLayer, paint.KindFillPath, paint.KindPopLayer}},
		{"transparent paints nothing", 0, []paint.CommandKind{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 50, 50)
			f := h.pump(Opacity{Opacity: tt.opacity, Child: box})
			if diff := cmp.Diff(tt.want, commandKinds(f)); diff != "" {
				t.Errorf("commands (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBlurDefaultsToOpaque(t *testing.T) {
	h := newHarness(t, 50, 50)
	f := h.pump(Blur{Radius: 4, Child: ColoredBox{Color: graphics.ColorBlue}})
	if len(f.Commands) != 3 || f.Commands[0].Kind != paint.KindPushLayer {
		t.Fatalf("commands = %v, want a layer around the fill", f.Commands)
	}
	if got := f.Commands[0].Layer; got.Opacity != 1 || got.Blur != 4 {
		t.Errorf("layer = %+v, want opacity 1 blur 4", got)
	}
}

func TestClipRectWrapsChild(t *testing.T) {
	h := newHarness(t, 100, 100)
	f := h.pump(Centered(SizedBox{Width: 40, Height: 40, Child: ClipRect{
		Child: Shape{Path: graphics.RectPath(ltwh(0, 0, 80, 80)), Paint: graphics.FillPaint(graphics.ColorRed)},
	}}))

	want := []paint.CommandKind{paint.KindPushClip, paint.KindFillPath, paint.KindPopClip}
	if diff := cmp.Diff(want, commandKinds(f)); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
	if got := f.Commands[1].Clip; got != ltwh(30, 30, 40, 40) {
		t.Errorf("fill clip = %v, want %v", got, ltwh(30, 30, 40, 40))
	}
}

func TestShapeSizesToPath(t *testing.T) {
	h := newHarness(t, 200, 200)
	h.pump(Align{Alignment: layout.AlignmentTopLeft, Child: Shape{
		WidgetKey: "stroke",
		Path:      graphics.CirclePath(graphics.Offset{X: 20, Y: 20}, 20),
		Paint:     graphics.StrokePaint(graphics.ColorBlack, 4),
	}})
	if got := h.node("stroke").Geometry.Size; got != (graphics.Size{Width: 42, Height: 42}) {
		t.Errorf("stroked circle size = %v, want 42x42", got)
	}
}

func TestShapeRepaintsOnlyOnChange(t *testing.T) {
	h := newHarness(t, 100, 100)
	build := func(c graphics.Color) core.Widget {
		return Align{Alignment: layout.AlignmentTopLeft, Child: Shape{
			Path:  graphics.RectPath(ltwh(0, 0, 10, 10)),
			Paint: graphics.FillPaint(c),
		}}
	}
	h.pump(build(graphics.ColorRed))

	f := h.pump(build(graphics.ColorRed))
	if f.Stats.Painted != 0 {
		t.Errorf("equal rebuild painted %d nodes, want 0", f.Stats.Painted)
	}
	f = h.pump(build(graphics.ColorBlue))
	if f.Stats.Painted != 1 {
		t.Errorf("color change painted %d nodes, want 1", f.Stats.Painted)
	}
}
