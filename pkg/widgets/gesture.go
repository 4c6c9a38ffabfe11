package widgets

import (
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/tree"
)

// GestureDetector reports pointer input over its child.
//
// OnPointer sees every event routed to the detector and consumes it by
// returning true. OnTap fires when a pointer goes down and up again inside
// the detector's bounds. A detector that saw a pointer go down keeps
// receiving that pointer's events until it is released.
//
//	GestureDetector{
//	    OnTap: func() { count.Update(func(n int) int { return n + 1 }) },
//	    Child: ColoredBox{Color: graphics.ColorBlue},
//	}
type GestureDetector struct {
	WidgetKey any
	OnTap     func()
	OnPointer func(ev layout.PointerEvent) bool
	Child     core.Widget
}

func (g GestureDetector) Key() any { return g.WidgetKey }

func (g GestureDetector) ChildWidgets() []core.Widget { return single(g.Child) }

func (g GestureDetector) CreateRender(ctx *core.BuildContext) any {
	return &renderGestureDetector{tree: ctx.Tree(), node: ctx.Node(), onTap: g.OnTap, onPointer: g.OnPointer}
}

func (g GestureDetector) UpdateRender(_ *core.BuildContext, render any) {
	if r, ok := render.(*renderGestureDetector); ok {
		r.onTap = g.OnTap
		r.onPointer = g.OnPointer
	}
}

type renderGestureDetector struct {
	tree      *tree.Tree
	node      arena.ID
	onTap     func()
	onPointer func(ev layout.PointerEvent) bool
	down      map[int]bool
}

func (r *renderGestureDetector) HandlePointer(ev layout.PointerEvent) bool {
	consumed := false
	if r.onPointer != nil {
		consumed = r.onPointer(ev)
	}
	if r.onTap == nil {
		return consumed
	}
	switch ev.Phase {
	case layout.PointerDown:
		if r.down == nil {
			r.down = make(map[int]bool)
		}
		r.down[ev.Pointer] = true
		return true
	case layout.PointerUp:
		if !r.down[ev.Pointer] {
			return consumed
		}
		delete(r.down, ev.Pointer)
		if n := r.tree.Node(r.node); n != nil && n.Geometry.Bounds().Contains(ev.Local) {
			r.onTap()
		}
		return true
	case layout.PointerCancel:
		delete(r.down, ev.Pointer)
	}
	return consumed
}
