// Package focus tracks which node receives keyboard input and routes key
// events to it.
package focus

import (
	"math"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/tree"
)

// TraversalDirection indicates the focus traversal direction.
type TraversalDirection int

const (
	TraversalDirectionUp TraversalDirection = iota
	TraversalDirectionDown
	TraversalDirectionLeft
	TraversalDirectionRight
)

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// KeyEvent is a keyboard event. Key is the platform's key name.
type KeyEvent struct {
	Key  string
	Down bool
	Mods Modifiers
	Text string
}

// KeyEventResult indicates how a key event was handled.
type KeyEventResult int

const (
	// KeyEventIgnored lets the event continue to the node's ancestors.
	KeyEventIgnored KeyEventResult = iota
	// KeyEventHandled stops propagation.
	KeyEventHandled
)

// KeyHandler is implemented by render objects that accept focus.
type KeyHandler interface {
	HandleKey(ev KeyEvent) KeyEventResult
}

// ChangeListener is implemented by render objects that want to know when
// they gain or lose focus.
type ChangeListener interface {
	FocusChanged(hasFocus bool)
}

// Manager holds the primary focus of one tree. It belongs to the UI
// goroutine.
type Manager struct {
	tree    *tree.Tree
	primary arena.ID
}

// NewManager creates a focus manager for t.
func NewManager(t *tree.Tree) *Manager {
	return &Manager{tree: t}
}

// Primary returns the focused node, or the zero ID. A node that has been
// unmounted no longer holds focus.
func (m *Manager) Primary() arena.ID {
	if !m.primary.IsZero() && !m.tree.Contains(m.primary) {
		m.primary = arena.ID{}
	}
	return m.primary
}

// CanFocus reports whether id is a live node whose render object accepts
// key events.
func (m *Manager) CanFocus(id arena.ID) bool {
	n := m.tree.Node(id)
	if n == nil {
		return false
	}
	_, ok := n.Render.(KeyHandler)
	return ok
}

// Focus moves primary focus to id. It reports false, leaving focus
// unchanged, when id cannot take focus.
func (m *Manager) Focus(id arena.ID) bool {
	if !m.CanFocus(id) {
		return false
	}
	m.setPrimary(id)
	return true
}

// Unfocus clears the primary focus.
func (m *Manager) Unfocus() {
	m.setPrimary(arena.ID{})
}

// Forget drops focus from id if it holds it. The engine calls it when a
// node unmounts.
func (m *Manager) Forget(id arena.ID) {
	if m.primary == id {
		m.primary = arena.ID{}
	}
}

// Dispatch routes ev to the focused node and then to its ancestors until
// one handles it.
func (m *Manager) Dispatch(ev KeyEvent) KeyEventResult {
	id := m.Primary()
	if id.IsZero() {
		return KeyEventIgnored
	}
	for _, target := range append([]arena.ID{id}, m.tree.Ancestors(id)...) {
		n := m.tree.Node(target)
		if n == nil {
			continue
		}
		if h, ok := n.Render.(KeyHandler); ok && h.HandleKey(ev) == KeyEventHandled {
			return KeyEventHandled
		}
	}
	return KeyEventIgnored
}

// Focusable returns every focusable node in paint order.
func (m *Manager) Focusable() []arena.ID {
	var out []arena.ID
	root := m.tree.Root()
	if root.IsZero() {
		return nil
	}
	for _, n := range m.tree.Preorder(root) {
		if _, ok := n.Render.(KeyHandler); ok {
			out = append(out, n.ID)
		}
	}
	return out
}

// MoveFocus moves focus by delta positions in paint order, wrapping
// around.
func (m *Manager) MoveFocus(delta int) bool {
	nodes := m.Focusable()
	if len(nodes) == 0 {
		return false
	}
	current := -1
	primary := m.Primary()
	for i, id := range nodes {
		if id == primary {
			current = i
			break
		}
	}
	if current < 0 && delta < 0 {
		current = 0
	}
	m.setPrimary(nodes[wrapIndex(current+delta, len(nodes))])
	return true
}

// FocusInDirection moves focus to the nearest focusable node in direction,
// preferring nodes aligned with the current one. Without a focused node it
// focuses the first one; without a candidate it falls back to linear
// traversal.
func (m *Manager) FocusInDirection(direction TraversalDirection) bool {
	primary := m.Primary()
	if primary.IsZero() {
		return m.MoveFocus(1)
	}
	current := m.tree.AbsoluteBounds(primary)
	if current.IsEmpty() {
		return m.MoveFocus(linearDelta(direction))
	}

	var best arena.ID
	bestScore := math.MaxFloat64
	for _, id := range m.Focusable() {
		if id == primary {
			continue
		}
		r := m.tree.AbsoluteBounds(id)
		if r.IsEmpty() || !isInDirection(current, r, direction) {
			continue
		}
		if score := directionalScore(current, r, direction); score < bestScore {
			bestScore = score
			best = id
		}
	}
	if best.IsZero() {
		return m.MoveFocus(linearDelta(direction))
	}
	m.setPrimary(best)
	return true
}

func (m *Manager) setPrimary(id arena.ID) {
	old := m.Primary()
	if old == id {
		return
	}
	m.primary = id
	m.notify(old, false)
	m.notify(id, true)
}

func (m *Manager) notify(id arena.ID, focused bool) {
	if n := m.tree.Node(id); n != nil {
		if l, ok := n.Render.(ChangeListener); ok {
			l.FocusChanged(focused)
		}
	}
}

func linearDelta(direction TraversalDirection) int {
	if direction == TraversalDirectionUp || direction == TraversalDirectionLeft {
		return -1
	}
	return 1
}

func isInDirection(source, target graphics.Rect, direction TraversalDirection) bool {
	s, t := source.Center(), target.Center()
	switch direction {
	case TraversalDirectionUp:
		return t.Y < s.Y
	case TraversalDirectionDown:
		return t.Y > s.Y
	case TraversalDirectionLeft:
		return t.X < s.X
	case TraversalDirectionRight:
		return t.X > s.X
	}
	return false
}

// directionalScore is lower for better candidates. Cross-axis distance
// weighs double so aligned nodes win.
func directionalScore(source, target graphics.Rect, direction TraversalDirection) float64 {
	s, t := source.Center(), target.Center()
	var primary, cross float64
	switch direction {
	case TraversalDirectionUp, TraversalDirectionDown:
		primary = math.Abs(t.Y - s.Y)
		cross = math.Abs(t.X - s.X)
	case TraversalDirectionLeft, TraversalDirectionRight:
		primary = math.Abs(t.X - s.X)
		cross = math.Abs(t.Y - s.Y)
	}
	return primary + cross*2
}

func wrapIndex(index, count int) int {
	index %= count
	if index < 0 {
		index += count
	}
	return index
}
