package engine

import (
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/focus"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/tree"
)

// Event is an input event delivered through HandleEvent.
type Event interface {
	isEvent()
}

// PointerEvent is a pointer event in logical root coordinates.
type PointerEvent struct {
	Pointer  int
	Phase    layout.PointerPhase
	Position graphics.Offset
}

// KeyEvent is a keyboard event delivered to the focused node.
type KeyEvent = focus.KeyEvent

// keyEvent wraps focus.KeyEvent so it satisfies Event without the focus
// package knowing about the engine.
type keyEvent struct{ focus.KeyEvent }

func (PointerEvent) isEvent() {}
func (keyEvent) isEvent()     {}

// Key wraps a key event for HandleEvent.
func Key(ev KeyEvent) Event {
	return keyEvent{ev}
}

// pointerRouter remembers, for each active pointer, the hit chain
// recorded on pointer down. Later events for that pointer go to the same
// nodes even when the pointer leaves their bounds.
type pointerRouter struct {
	captures map[int][]arena.ID
}

func newPointerRouter() *pointerRouter {
	return &pointerRouter{captures: make(map[int][]arena.ID)}
}

// forget removes an unmounted node from every capture.
func (r *pointerRouter) forget(id arena.ID) {
	for p, chain := range r.captures {
		for i, n := range chain {
			if n == id {
				r.captures[p] = append(chain[:i:i], chain[i+1:]...)
				break
			}
		}
	}
}

// handlers returns the hit nodes whose render objects take pointer events,
// deepest first. Decorative nodes in between are skipped, so they never
// absorb a pointer.
func handlers(t *tree.Tree, hits layout.HitTestResult) []arena.ID {
	var out []arena.ID
	for _, e := range hits.Entries {
		if n := t.Node(e.Node); n != nil {
			if _, ok := n.Render.(layout.PointerHandler); ok {
				out = append(out, e.Node)
			}
		}
	}
	return out
}

// deliver sends ev to chain in order until a handler consumes it. Local
// coordinates come from the inverse of each node's current global
// transform. It reports whether the event was consumed.
func deliver(t *tree.Tree, chain []arena.ID, ev PointerEvent) bool {
	for _, id := range chain {
		n := t.Node(id)
		if n == nil {
			continue
		}
		h, ok := n.Render.(layout.PointerHandler)
		if !ok {
			continue
		}
		inv, ok := t.GlobalTransform(id).Invert()
		if !ok {
			continue
		}
		if h.HandlePointer(layout.PointerEvent{
			Pointer:  ev.Pointer,
			Phase:    ev.Phase,
			Position: ev.Position,
			Local:    inv.Apply(ev.Position),
		}) {
			return true
		}
	}
	return false
}

// HandleEvent routes an input event into the tree and reports whether a
// node consumed it.
//
// A pointer down is hit tested against the last laid out frame. The
// handlers under it receive the event deepest first, and the deepest
// focusable node under it takes keyboard focus. Move, up and cancel go to
// the nodes captured on down; a move without a capture is hit tested.
// Key events go to the focused node and bubble to its ancestors; an
// unhandled Tab moves focus forward, or backward with Shift.
func (e *Engine) HandleEvent(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	defer e.owner.EnterUI()()
	switch ev := ev.(type) {
	case PointerEvent:
		return e.handlePointer(ev)
	case keyEvent:
		return e.handleKey(ev.KeyEvent)
	}
	return false
}

func (e *Engine) handlePointer(ev PointerEvent) bool {
	switch ev.Phase {
	case layout.PointerDown:
		hits := layout.HitTest(e.tree, ev.Position)
		chain := handlers(e.tree, hits)
		e.pointers.captures[ev.Pointer] = chain
		e.focusHit(hits)
		return deliver(e.tree, chain, ev)
	case layout.PointerMove:
		chain, ok := e.pointers.captures[ev.Pointer]
		if !ok {
			chain = handlers(e.tree, layout.HitTest(e.tree, ev.Position))
		}
		return deliver(e.tree, chain, ev)
	default:
		chain, ok := e.pointers.captures[ev.Pointer]
		if !ok {
			return false
		}
		delete(e.pointers.captures, ev.Pointer)
		return deliver(e.tree, chain, ev)
	}
}

// focusHit focuses the deepest focusable node under a pointer down.
func (e *Engine) focusHit(hits layout.HitTestResult) {
	for _, h := range hits.Entries {
		if e.focus.CanFocus(h.Node) {
			e.focus.Focus(h.Node)
			return
		}
	}
}

func (e *Engine) handleKey(ev focus.KeyEvent) bool {
	if e.focus.Dispatch(ev) == focus.KeyEventHandled {
		return true
	}
	if ev.Down && ev.Key == "Tab" {
		delta := 1
		if ev.Mods&focus.ModShift != 0 {
			delta = -1
		}
		return e.focus.MoveFocus(delta)
	}
	return false
}
