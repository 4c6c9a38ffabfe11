package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
)

// Padding adds empty space around its child widget.
//
// The child is constrained to the remaining space after padding is applied.
// Without a child, Padding is an empty box of the padding size.
//
//	Padding{Padding: layout.EdgeInsetsAll(16), Child: child}
type Padding struct {
	WidgetKey any
	Padding   layout.EdgeInsets
	Child     core.Widget
}

func (p Padding) Key() any { return p.WidgetKey }

func (p Padding) ChildWidgets() []core.Widget { return single(p.Child) }

func (p Padding) CreateRender(*core.BuildContext) any {
	return &renderPadding{padding: p.Padding}
}

func (p Padding) UpdateRender(ctx *core.BuildContext, render any) {
	if pad, ok := render.(*renderPadding); ok && pad.padding != p.Padding {
		pad.padding = p.Padding
		ctx.MarkNeedsLayout()
	}
}

type renderPadding struct {
	padding layout.EdgeInsets
}

func (r *renderPadding) Measure(ctx *layout.MeasureContext, c layout.Constraints) graphics.Size {
	inner := graphics.Size{}
	if children := ctx.Children(); len(children) > 0 {
		inner = ctx.MeasureChild(children[0], c.Deflate(r.padding))
	}
	return c.Constrain(graphics.Size{
		Width:  inner.Width + r.padding.Horizontal(),
		Height: inner.Height + r.padding.Vertical(),
	})
}

func (r *renderPadding) Arrange(ctx *layout.ArrangeContext, _ graphics.Size) {
	for _, id := range ctx.Children() {
		ctx.Place(id, graphics.Offset{X: r.padding.Left, Y: r.padding.Top})
	}
}
