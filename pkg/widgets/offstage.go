package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/paint"
)

// Offstage lays out its child but optionally skips painting and hit testing.
//
// This keeps node state and cells alive without contributing to visual output.
// Use this to keep pages or tabs alive while avoiding their paint cost.
// The child still takes its laid-out size.
type Offstage struct {
	WidgetKey any
	// Offstage controls whether the child is hidden.
	Offstage bool
	// Child is the widget to lay out and optionally hide.
	Child core.Widget
}

func (o Offstage) Key() any { return o.WidgetKey }

func (o Offstage) ChildWidgets() []core.Widget { return single(o.Child) }

func (o Offstage) CreateRender(*core.BuildContext) any {
	return &renderOffstage{offstage: o.Offstage}
}

func (o Offstage) UpdateRender(ctx *core.BuildContext, render any) {
	if r, ok := render.(*renderOffstage); ok && r.offstage != o.Offstage {
		r.offstage = o.Offstage
		ctx.MarkNeedsPaint()
	}
}

type renderOffstage struct {
	offstage bool
}

// LayerEffect hides the subtree with a zero-opacity layer, which the paint
// pass skips entirely.
func (r *renderOffstage) LayerEffect() paint.Effect {
	if r.offstage {
		return paint.Effect{Opacity: 0}
	}
	return paint.Effect{Opacity: 1}
}

func (r *renderOffstage) BlocksHitTest() bool {
	return r.offstage
}
