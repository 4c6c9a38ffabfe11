package core

import (
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/tree"
)

// BuildContext identifies the node a build, hook or callback acts for.
// It is passed explicitly to every Build and to StateCell reads.
//
// A context stays usable after its build returns, for example from an
// event callback, but reads only subscribe while the node is building.
type BuildContext struct {
	owner *BuildOwner
	node  arena.ID
}

// Node returns the ID of the node this context belongs to.
func (c *BuildContext) Node() arena.ID {
	return c.node
}

// Owner returns the build owner.
func (c *BuildContext) Owner() *BuildOwner {
	return c.owner
}

// Tree returns the tree the node lives in.
func (c *BuildContext) Tree() *tree.Tree {
	return c.owner.tree
}

// Mounted reports whether the node is still alive.
func (c *BuildContext) Mounted() bool {
	return c.owner.tree.Contains(c.node)
}

// MarkNeedsRebuild schedules the node to build again.
func (c *BuildContext) MarkNeedsRebuild() {
	c.owner.schedule(c.node, tree.NeedsRebuild)
}

// MarkNeedsLayout schedules the node for re-measurement.
func (c *BuildContext) MarkNeedsLayout() {
	c.owner.schedule(c.node, tree.NeedsLayout)
}

// MarkNeedsPaint schedules the node's draw commands to be re-recorded.
func (c *BuildContext) MarkNeedsPaint() {
	c.owner.schedule(c.node, tree.NeedsPaint)
}

// OnDispose registers fn to run when the node unmounts. Callbacks run in
// reverse registration order. Call it from hook initializers, not on every
// build.
func (c *BuildContext) OnDispose(fn func()) {
	el := c.element()
	el.disposers = append(el.disposers, fn)
}

func (c *BuildContext) element() *element {
	el := c.owner.elements[c.node]
	if el == nil {
		panic(&errors.ContractError{Rule: errors.ErrDisposed, Detail: "build context of node " + c.node.String()})
	}
	return el
}
