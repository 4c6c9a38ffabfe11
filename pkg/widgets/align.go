package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
)

// Align positions its child within itself. Along a bounded axis Align
// takes all available space; along an unbounded one it shrinks to the
// child.
//
//	Align{Alignment: layout.AlignmentBottomRight, Child: badge}
type Align struct {
	WidgetKey any
	Alignment layout.Alignment
	Child     core.Widget
}

func (a Align) Key() any { return a.WidgetKey }

func (a Align) ChildWidgets() []core.Widget { return single(a.Child) }

func (a Align) CreateRender(*core.BuildContext) any {
	return &renderAlign{alignment: a.Alignment}
}

func (a Align) UpdateRender(ctx *core.BuildContext, render any) {
	if r, ok := render.(*renderAlign); ok && r.alignment != a.Alignment {
		r.alignment = a.Alignment
		ctx.MarkNeedsLayout()
	}
}

// Center positions its child at the center of itself.
type Center struct {
	WidgetKey any
	Child     core.Widget
}

func (c Center) Key() any { return c.WidgetKey }

func (c Center) ChildWidgets() []core.Widget { return single(c.Child) }

func (c Center) CreateRender(*core.BuildContext) any {
	return &renderAlign{alignment: layout.AlignmentCenter}
}

func (c Center) UpdateRender(*core.BuildContext, any) {}

type renderAlign struct {
	alignment layout.Alignment
}

func (r *renderAlign) Measure(ctx *layout.MeasureContext, c layout.Constraints) graphics.Size {
	child := graphics.Size{}
	if children := ctx.Children(); len(children) > 0 {
		child = ctx.MeasureChild(children[0], c.Loosen())
	}
	size := child
	if c.HasBoundedWidth() {
		size.Width = c.MaxWidth
	}
	if c.HasBoundedHeight() {
		size.Height = c.MaxHeight
	}
	return c.Constrain(size)
}

func (r *renderAlign) Arrange(ctx *layout.ArrangeContext, size graphics.Size) {
	for _, id := range ctx.Children() {
		ctx.Place(id, r.alignment.Inset(size, ctx.ChildSize(id)))
	}
}
