package layout

import (
	"fmt"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/tree"
)

// PointerPhase is the stage of a pointer interaction.
type PointerPhase uint8

const (
	PointerDown PointerPhase = iota
	PointerMove
	PointerUp
	PointerCancel
)

func (p PointerPhase) String() string {
	switch p {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	default:
		return fmt.Sprintf("PointerPhase(%d)", int(p))
	}
}

// PointerEvent is a pointer event routed to a node. Position is in root
// coordinates and Local in the receiving node's coordinates.
type PointerEvent struct {
	Pointer  int
	Phase    PointerPhase
	Position graphics.Offset
	Local    graphics.Offset
}

// PointerHandler receives pointer events routed from hit testing. It
// returns true when it consumed the event, which stops propagation to
// ancestors.
type PointerHandler interface {
	HandlePointer(ev PointerEvent) bool
}

// HitTestBlocker is implemented by render objects that can keep pointer
// events from reaching themselves and their subtree. A blocked node is
// treated as missed, so siblings beneath it are still tested.
type HitTestBlocker interface {
	BlocksHitTest() bool
}

// HitEntry is one node under the pointer.
type HitEntry struct {
	Node  arena.ID
	Local graphics.Offset
}

// HitTestResult collects hit nodes, deepest first.
type HitTestResult struct {
	Entries []HitEntry
}

// Add appends a hit node.
func (h *HitTestResult) Add(node arena.ID, local graphics.Offset) {
	h.Entries = append(h.Entries, HitEntry{Node: node, Local: local})
}

// HitTest returns the nodes under pos (root coordinates). Later siblings
// are tested first since they paint on top. A node outside its own bounds
// is not hit and its children are not tested.
func HitTest(t *tree.Tree, pos graphics.Offset) HitTestResult {
	var res HitTestResult
	if root := t.Node(t.Root()); root != nil {
		hitNode(t, root, pos, &res)
	}
	return res
}

func hitNode(t *tree.Tree, n *tree.Node, p graphics.Offset, res *HitTestResult) bool {
	inv, ok := n.Geometry.LocalTransform().Invert()
	if !ok {
		return false
	}
	local := inv.Apply(p)
	if !n.Geometry.Bounds().Contains(local) {
		return false
	}
	if b, ok := n.Render.(HitTestBlocker); ok && b.BlocksHitTest() {
		return false
	}
	for i := len(n.Children) - 1; i >= 0; i-- {
		if c := t.Node(n.Children[i]); c != nil && hitNode(t, c, local, res) {
			break
		}
	}
	res.Add(n.ID, local)
	return true
}
