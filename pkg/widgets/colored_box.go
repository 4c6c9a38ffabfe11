package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/paint"
)

// ColoredBox fills its bounds with Color and paints its child on top. It
// sizes itself like its child, or to the smallest allowed size without one.
type ColoredBox struct {
	WidgetKey any
	Color     graphics.Color
	Child     core.Widget
}

func (b ColoredBox) Key() any { return b.WidgetKey }

func (b ColoredBox) ChildWidgets() []core.Widget { return single(b.Child) }

func (b ColoredBox) CreateRender(*core.BuildContext) any {
	return &renderColoredBox{color: b.Color}
}

func (b ColoredBox) UpdateRender(ctx *core.BuildContext, render any) {
	if r, ok := render.(*renderColoredBox); ok && r.color != b.Color {
		r.color = b.Color
		ctx.MarkNeedsPaint()
	}
}

type renderColoredBox struct {
	color graphics.Color
}

func (r *renderColoredBox) Paint(ctx *paint.Context) {
	ctx.FillRect(ctx.Bounds(), r.color)
}
