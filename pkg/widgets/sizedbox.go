package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
)

// SizedBox constrains its child to a specific width and/or height.
//
// A zero Width or Height leaves that axis to the child. Without a child the
// box takes the given dimensions, clamped by its constraints:
//
//	SizedBox{Width: 100, Height: 50, Child: child}
//	SizedBox{Width: 16} // horizontal spacer
type SizedBox struct {
	WidgetKey any
	Width     float64
	Height    float64
	Child     core.Widget
}

func (s SizedBox) Key() any { return s.WidgetKey }

func (s SizedBox) ChildWidgets() []core.Widget { return single(s.Child) }

func (s SizedBox) CreateRender(*core.BuildContext) any {
	return &renderSizedBox{width: s.Width, height: s.Height}
}

func (s SizedBox) UpdateRender(ctx *core.BuildContext, render any) {
	if box, ok := render.(*renderSizedBox); ok && (box.width != s.Width || box.height != s.Height) {
		box.width = s.Width
		box.height = s.Height
		ctx.MarkNeedsLayout()
	}
}

type renderSizedBox struct {
	width  float64
	height float64
}

func (r *renderSizedBox) Measure(ctx *layout.MeasureContext, c layout.Constraints) graphics.Size {
	desired := graphics.Size{Width: r.width, Height: r.height}
	constrained := c.Constrain(desired)
	children := ctx.Children()
	if len(children) == 0 {
		return constrained
	}

	// Tighten only the explicit dimensions.
	childConstraints := c
	if r.width > 0 {
		childConstraints.MinWidth = constrained.Width
		childConstraints.MaxWidth = constrained.Width
	}
	if r.height > 0 {
		childConstraints.MinHeight = constrained.Height
		childConstraints.MaxHeight = constrained.Height
	}
	size := ctx.MeasureChild(children[0], childConstraints)
	if r.width > 0 {
		size.Width = constrained.Width
	}
	if r.height > 0 {
		size.Height = constrained.Height
	}
	return c.Constrain(size)
}
