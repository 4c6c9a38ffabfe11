package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
)

// IgnorePointer lays out and paints its child normally but optionally blocks
// all hit testing. When Ignoring is true, pointer events cannot reach the child
// or any of its descendants. This is useful for disabling interaction during
// a transition without affecting visual output.
type IgnorePointer struct {
	WidgetKey any
	// Ignoring controls whether pointer events are blocked.
	Ignoring bool
	// Child is the widget to render.
	Child core.Widget
}

func (ip IgnorePointer) Key() any { return ip.WidgetKey }

func (ip IgnorePointer) ChildWidgets() []core.Widget { return single(ip.Child) }

func (ip IgnorePointer) CreateRender(*core.BuildContext) any {
	return &renderIgnorePointer{ignoring: ip.Ignoring}
}

// Hit testing reads the flag directly, so no dirty mark is needed.
func (ip IgnorePointer) UpdateRender(_ *core.BuildContext, render any) {
	if r, ok := render.(*renderIgnorePointer); ok {
		r.ignoring = ip.Ignoring
	}
}

type renderIgnorePointer struct {
	ignoring bool
}

func (r *renderIgnorePointer) BlocksHitTest() bool {
	return r.ignoring
}
