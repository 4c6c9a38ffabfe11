package widgets

import (
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/focus"
)

// KeyListener makes its subtree focusable and receives key events while it
// or a descendant holds focus. OnKey returns true to stop the event from
// reaching enclosing listeners.
//
//	widgets.KeyListener{
//	    OnKey: func(ev focus.KeyEvent) bool {
//	        if ev.Down && ev.Key == "Enter" {
//	            submit()
//	            return true
//	        }
//	        return false
//	    },
//	    Child: field,
//	}
type KeyListener struct {
	WidgetKey     any
	OnKey         func(ev focus.KeyEvent) bool
	OnFocusChange func(hasFocus bool)
	Child         core.Widget
}

func (k KeyListener) Key() any { return k.WidgetKey }

func (k KeyListener) ChildWidgets() []core.Widget { return single(k.Child) }

func (k KeyListener) CreateRender(*core.BuildContext) any {
	return &renderKeyListener{onKey: k.OnKey, onFocusChange: k.OnFocusChange}
}

func (k KeyListener) UpdateRender(_ *core.BuildContext, render any) {
	if r, ok := render.(*renderKeyListener); ok {
		r.onKey = k.OnKey
		r.onFocusChange = k.OnFocusChange
	}
}

type renderKeyListener struct {
	onKey         func(ev focus.KeyEvent) bool
	onFocusChange func(hasFocus bool)
	focused       bool
}

func (r *renderKeyListener) HandleKey(ev focus.KeyEvent) focus.KeyEventResult {
	if r.onKey != nil && r.onKey(ev) {
		return focus.KeyEventHandled
	}
	return focus.KeyEventIgnored
}

func (r *renderKeyListener) FocusChanged(hasFocus bool) {
	r.focused = hasFocus
	if r.onFocusChange != nil {
		r.onFocusChange(hasFocus)
	}
}
