// Package tree holds the widget node arena shared by the build, layout and
// paint passes.
package tree

import (
	"fmt"
	"slices"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
)

// Geometry is the resolved placement of a node.
type Geometry struct {
	// Size is the final size assigned during arrange.
	Size graphics.Size
	// Offset is the position relative to the parent's origin.
	Offset graphics.Offset
	// Transform is an extra local transform applied after Offset.
	Transform graphics.Matrix
}

// LocalTransform maps the node's coordinates into its parent's.
func (g Geometry) LocalTransform() graphics.Matrix {
	t := graphics.Translation(g.Offset.X, g.Offset.Y)
	if g.Transform == (graphics.Matrix{}) {
		return t
	}
	return t.Multiply(g.Transform)
}

// Bounds returns the node's rect in its own coordinates.
func (g Geometry) Bounds() graphics.Rect {
	return graphics.RectFromOffsetSize(graphics.Offset{}, g.Size)
}

// Node is one entry of the tree arena.
type Node struct {
	ID       arena.ID
	Key      any
	TypeName string
	Parent   arena.ID
	Children []arena.ID
	Depth    int
	Flags    DirtyFlags
	State    Lifecycle
	Caps     Capability
	// Render is the node's payload: the render object created by its widget,
	// or nil for purely compositional nodes.
	Render   any
	Geometry Geometry
}

// Generation returns the generation token carried by the node's ID.
func (n *Node) Generation() uint32 {
	return n.ID.Generation()
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%s", n.TypeName, n.ID)
}

// Tree is an arena of nodes with a single root.
// It is owned by the UI goroutine and is not safe for concurrent use.
type Tree struct {
	nodes *arena.Arena[*Node]
	root  arena.ID

	rebuild map[arena.ID]struct{}
	layout  map[arena.ID]struct{}
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes:   arena.New[*Node](),
		rebuild: make(map[arena.ID]struct{}),
		layout:  make(map[arena.ID]struct{}),
	}
}

// Insert adds n as the last child of parent and returns its ID.
// A zero parent inserts a detached node, which must become the root.
func (t *Tree) Insert(parent arena.ID, n *Node) arena.ID {
	n.ID = t.nodes.Insert(n)
	n.Parent = parent
	n.State = Unmounted
	if n.Geometry.Transform == (graphics.Matrix{}) {
		n.Geometry.Transform = graphics.Identity
	}
	if p := t.Node(parent); p != nil {
		n.Depth = p.Depth + 1
		p.Children = append(p.Children, n.ID)
	}
	return n.ID
}

// Node returns the live node for id, or nil.
func (t *Tree) Node(id arena.ID) *Node {
	n, _ := t.nodes.Get(id)
	return n
}

// Contains reports whether id refers to a live node.
func (t *Tree) Contains(id arena.ID) bool {
	return t.nodes.Contains(id)
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return t.nodes.Len()
}

// Root returns the root node ID.
func (t *Tree) Root() arena.ID {
	return t.root
}

// SetRoot designates id as the single root. It fails if another root is
// still alive or the node has a parent.
func (t *Tree) SetRoot(id arena.ID) error {
	n := t.Node(id)
	if n == nil {
		return fmt.Errorf("tree: root %s is not a live node", id)
	}
	if !n.Parent.IsZero() {
		return fmt.Errorf("tree: root %s has a parent", id)
	}
	if !t.root.IsZero() && t.root != id && t.Contains(t.root) {
		return fmt.Errorf("tree: root already set to %s", t.root)
	}
	t.root = id
	n.Depth = 0
	return nil
}

// SetChildren replaces parent's child list. Every child must already name
// parent as its parent.
func (t *Tree) SetChildren(parent arena.ID, children []arena.ID) {
	p := t.Node(parent)
	if p == nil {
		return
	}
	p.Children = children
}

// Remove deletes a single node. Its children must have been removed first.
// The node is detached from its parent's child list and its ID becomes stale.
func (t *Tree) Remove(id arena.ID) bool {
	n := t.Node(id)
	if n == nil {
		return false
	}
	if p := t.Node(n.Parent); p != nil {
		if i := slices.Index(p.Children, id); i >= 0 {
			p.Children = slices.Delete(p.Children, i, i+1)
		}
	}
	delete(t.rebuild, id)
	delete(t.layout, id)
	n.State = Disposed
	n.Children = nil
	t.nodes.Remove(id)
	if t.root == id {
		t.root = arena.ID{}
	}
	return true
}

// Transition moves the node to the next lifecycle state.
func (t *Tree) Transition(id arena.ID, next Lifecycle) error {
	n := t.Node(id)
	if n == nil {
		return fmt.Errorf("tree: transition of stale node %s", id)
	}
	if !n.State.CanTransition(next) {
		return fmt.Errorf("tree: illegal transition %s -> %s for %s", n.State, next, n)
	}
	n.State = next
	return nil
}

// Mark sets flags on the node. NeedsRebuild moves a mounted node to Dirty
// and adds it to the pending rebuild set; NeedsPaint propagates
// ChildNeedsPaint to every ancestor.
func (t *Tree) Mark(id arena.ID, flags DirtyFlags) {
	n := t.Node(id)
	if n == nil || n.State == Unmounting || n.State == Disposed {
		return
	}
	n.Flags |= flags
	if flags&NeedsRebuild != 0 {
		t.rebuild[id] = struct{}{}
		if n.State == Mounted {
			n.State = Dirty
		}
	}
	if flags&NeedsLayout != 0 {
		t.layout[id] = struct{}{}
	}
	if flags&(NeedsPaint|ChildNeedsPaint) != 0 {
		for p := t.Node(n.Parent); p != nil; p = t.Node(p.Parent) {
			p.Flags |= ChildNeedsPaint
		}
	}
}

// Clear removes flags from the node. Only the pass that owns a concern
// clears its flag.
func (t *Tree) Clear(id arena.ID, flags DirtyFlags) {
	n := t.Node(id)
	if n == nil {
		return
	}
	n.Flags &^= flags
	if flags&NeedsRebuild != 0 {
		delete(t.rebuild, id)
		if n.State == Dirty {
			n.State = Mounted
		}
	}
	if flags&NeedsLayout != 0 {
		delete(t.layout, id)
	}
}

// Dirty returns the live nodes flagged with NeedsRebuild or NeedsLayout,
// ordered by depth (shallowest first) then ID index for determinism.
func (t *Tree) Dirty(flag DirtyFlags) []arena.ID {
	var set map[arena.ID]struct{}
	switch flag {
	case NeedsRebuild:
		set = t.rebuild
	case NeedsLayout:
		set = t.layout
	default:
		return nil
	}
	ids := make([]arena.ID, 0, len(set))
	for id := range set {
		if t.Contains(id) {
			ids = append(ids, id)
		} else {
			delete(set, id)
		}
	}
	t.SortByDepth(ids)
	return ids
}

// SortByDepth orders ids shallowest first, breaking ties by slot index.
func (t *Tree) SortByDepth(ids []arena.ID) {
	slices.SortFunc(ids, func(a, b arena.ID) int {
		da, db := t.Node(a).Depth, t.Node(b).Depth
		if da != db {
			return da - db
		}
		return int(a.Index()) - int(b.Index())
	})
}

// Walk visits the subtree rooted at id in preorder. Returning false from
// visit skips the node's children.
func (t *Tree) Walk(id arena.ID, visit func(*Node) bool) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		t.Walk(c, visit)
	}
}

// Preorder returns the subtree rooted at id in preorder.
func (t *Tree) Preorder(id arena.ID) []*Node {
	var out []*Node
	t.Walk(id, func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Ancestors returns the ancestors of id, nearest first.
func (t *Tree) Ancestors(id arena.ID) []arena.ID {
	var out []arena.ID
	n := t.Node(id)
	if n == nil {
		return nil
	}
	for p := t.Node(n.Parent); p != nil; p = t.Node(p.Parent) {
		out = append(out, p.ID)
	}
	return out
}

// GlobalTransform maps the node's coordinates into root coordinates.
func (t *Tree) GlobalTransform(id arena.ID) graphics.Matrix {
	m := graphics.Identity
	for n := t.Node(id); n != nil; n = t.Node(n.Parent) {
		m = n.Geometry.LocalTransform().Multiply(m)
	}
	return m
}

// AbsoluteOffset returns the node's origin in root coordinates.
func (t *Tree) AbsoluteOffset(id arena.ID) graphics.Offset {
	return t.GlobalTransform(id).Apply(graphics.Offset{})
}

// AbsoluteBounds returns the node's axis-aligned bounds in root coordinates.
func (t *Tree) AbsoluteBounds(id arena.ID) graphics.Rect {
	n := t.Node(id)
	if n == nil {
		return graphics.Rect{}
	}
	return t.GlobalTransform(id).TransformRect(n.Geometry.Bounds())
}
