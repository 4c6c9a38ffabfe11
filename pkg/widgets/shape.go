package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/paint"
)

// Shape draws a vector path in its own coordinates. Without explicit
// dimensions it is as large as the path's bottom-right extent, including
// half the stroke width.
//
//	Shape{
//	    Path:  graphics.CirclePath(graphics.Offset{X: 20, Y: 20}, 20),
//	    Paint: graphics.FillPaint(graphics.ColorBlue),
//	}
type Shape struct {
	WidgetKey any
	Path      *graphics.Path
	Paint     graphics.Paint
	Width     float64
	Height    float64
}

func (s Shape) Key() any { return s.WidgetKey }

func (s Shape) ChildWidgets() []core.Widget { return nil }

func (s Shape) CreateRender(*core.BuildContext) any {
	r := &renderShape{}
	r.configure(s)
	return r
}

func (s Shape) UpdateRender(ctx *core.BuildContext, render any) {
	r, ok := render.(*renderShape)
	if !ok {
		return
	}
	old := *r
	r.configure(s)
	if old.width != r.width || old.height != r.height || old.extent != r.extent {
		ctx.MarkNeedsLayout()
	}
	if old.hash != r.hash || old.paint != r.paint {
		ctx.MarkNeedsPaint()
	}
}

type renderShape struct {
	path   *graphics.Path
	hash   uint64
	paint  graphics.Paint
	width  float64
	height float64
	extent graphics.Size
}

func (r *renderShape) configure(s Shape) {
	r.path = s.Path
	r.hash = s.Path.Hash()
	r.paint = s.Paint
	r.width = s.Width
	r.height = s.Height
	r.extent = graphics.Size{}
	if !s.Path.IsEmpty() {
		b := s.Path.Bounds()
		if s.Paint.Style == graphics.PaintStroke {
			b = b.Inflate(s.Paint.Stroke.Width / 2)
		}
		r.extent = graphics.Size{Width: max(b.Right, 0), Height: max(b.Bottom, 0)}
	}
}

func (r *renderShape) Measure(_ *layout.MeasureContext, c layout.Constraints) graphics.Size {
	size := r.extent
	if r.width > 0 {
		size.Width = r.width
	}
	if r.height > 0 {
		size.Height = r.height
	}
	return c.Constrain(size)
}

func (r *renderShape) Paint(ctx *paint.Context) {
	ctx.DrawPath(r.path, r.paint)
}
