package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/paint"
)

// Opacity applies transparency to its child widget.
//
//	widgets.Opacity{Opacity: 0.5, Child: content}
//
// The Opacity value should be between 0.0 (fully transparent) and 1.0 (fully
// opaque). At 0.0 the child is not painted at all; at 1.0 it is painted
// directly. Intermediate values composite the subtree through a layer whose
// texture is reused while the subtree is unchanged.
type Opacity struct {
	WidgetKey any
	Opacity   float64
	Child     core.Widget
}

func (o Opacity) Key() any { return o.WidgetKey }

func (o Opacity) ChildWidgets() []core.Widget { return single(o.Child) }

func (o Opacity) CreateRender(*core.BuildContext) any {
	return &renderLayer{effect: paint.Effect{Opacity: o.Opacity}}
}

func (o Opacity) UpdateRender(ctx *core.BuildContext, render any) {
	updateLayer(ctx, render, paint.Effect{Opacity: o.Opacity})
}

// Blur blurs its painted child by Radius pixels and composites the result
// with Opacity. A zero Opacity is treated as fully opaque.
type Blur struct {
	WidgetKey any
	Radius    float64
	Opacity   float64
	Child     core.Widget
}

func (b Blur) Key() any { return b.WidgetKey }

func (b Blur) ChildWidgets() []core.Widget { return single(b.Child) }

func (b Blur) CreateRender(*core.BuildContext) any {
	return &renderLayer{effect: b.effect()}
}

func (b Blur) UpdateRender(ctx *core.BuildContext, render any) {
	updateLayer(ctx, render, b.effect())
}

func (b Blur) effect() paint.Effect {
	opacity := b.Opacity
	if opacity <= 0 {
		opacity = 1
	}
	return paint.Effect{Opacity: opacity, Blur: b.Radius}
}

func updateLayer(ctx *core.BuildContext, render any, effect paint.Effect) {
	if r, ok := render.(*renderLayer); ok && r.effect != effect {
		r.effect = effect
		ctx.MarkNeedsPaint()
	}
}

type renderLayer struct {
	effect paint.Effect
}

func (r *renderLayer) LayerEffect() paint.Effect {
	return r.effect
}
