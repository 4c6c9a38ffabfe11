package widgets

import (
	"context"
	"image"

	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/paint"
)

// Image draws a raster image scaled to its bounds.
//
// Without explicit dimensions the widget takes the image's pixel size.
// ImageKey identifies the pixels for the texture atlas; when zero a hash of
// the pixels is used. Higher Priority images keep their atlas slot when
// texture memory runs out.
type Image struct {
	WidgetKey any
	Image     image.Image
	ImageKey  uint64
	Width     float64
	Height    float64
	Priority  int
}

func (i Image) Key() any { return i.WidgetKey }

func (i Image) ChildWidgets() []core.Widget { return nil }

func (i Image) CreateRender(*core.BuildContext) any {
	r := &renderImage{}
	r.configure(i)
	return r
}

func (i Image) UpdateRender(ctx *core.BuildContext, render any) {
	r, ok := render.(*renderImage)
	if !ok {
		return
	}
	old := *r
	r.configure(i)
	if old.natural != r.natural || old.width != r.width || old.height != r.height {
		ctx.MarkNeedsLayout()
	}
	if old.key != r.key || old.priority != r.priority {
		ctx.MarkNeedsPaint()
	}
}

type renderImage struct {
	img      image.Image
	key      uint64
	priority int
	width    float64
	height   float64
	natural  graphics.Size
}

func (r *renderImage) configure(i Image) {
	switch {
	case i.Image == nil:
		r.key = 0
	case i.ImageKey != 0:
		r.key = i.ImageKey
	case i.Image != r.img || r.key == 0:
		r.key = graphics.HashPixels(i.Image)
	}
	r.img = i.Image
	r.priority = i.Priority
	r.width = i.Width
	r.height = i.Height
	r.natural = graphics.Size{}
	if i.Image != nil {
		b := i.Image.Bounds()
		r.natural = graphics.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
}

func (r *renderImage) Measure(_ *layout.MeasureContext, c layout.Constraints) graphics.Size {
	size := r.natural
	if r.width > 0 {
		size.Width = r.width
	}
	if r.height > 0 {
		size.Height = r.height
	}
	return c.Constrain(size)
}

func (r *renderImage) Paint(ctx *paint.Context) {
	ctx.DrawImageKey(r.key, r.img, ctx.Bounds(), r.priority)
}

// AsyncImage loads an image in the background and shows it once it
// arrives. Until then, or if loading fails, it shows Placeholder, or an
// empty box of the requested size. Load runs once per mounted node and is
// cancelled when the node unmounts.
type AsyncImage struct {
	WidgetKey   any
	Load        func(ctx context.Context) (image.Image, error)
	Width       float64
	Height      float64
	Priority    int
	Placeholder core.Widget
}

func (a AsyncImage) Key() any { return a.WidgetKey }

func (a AsyncImage) Build(ctx *core.BuildContext) core.Widget {
	loaded := core.UseState[image.Image](ctx, nil)
	core.UseEffect(ctx, func() func() {
		if a.Load != nil {
			_ = core.Spawn(ctx, a.Load, loaded.Write)
		}
		return nil
	})
	if img := loaded.Read(ctx); img != nil {
		return Image{Image: img, Width: a.Width, Height: a.Height, Priority: a.Priority}
	}
	if a.Placeholder != nil {
		return a.Placeholder
	}
	return SizedBox{Width: a.Width, Height: a.Height}
}
