package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
)

// ClipRect clips its child to its own bounds.
type ClipRect struct {
	WidgetKey any
	Child     core.Widget
}

func (c ClipRect) Key() any { return c.WidgetKey }

func (c ClipRect) ChildWidgets() []core.Widget { return single(c.Child) }

func (c ClipRect) CreateRender(*core.BuildContext) any { return &renderClipRect{} }

func (c ClipRect) UpdateRender(*core.BuildContext, any) {}

type renderClipRect struct{}

func (*renderClipRect) ClipRect(size graphics.Size) graphics.Rect {
	return graphics.RectFromOffsetSize(graphics.Offset{}, size)
}
