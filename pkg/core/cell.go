package core

import (
	"fmt"
	"slices"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/tree"
)

// subscription is one edge from a cell to a dependent node.
type subscription struct {
	node  arena.ID
	flags tree.DirtyFlags
}

// cellCore is the type-independent part of a StateCell. The cell owns the
// ordered subscriber list; nodes only keep weak pointers back to it.
type cellCore struct {
	owner    *BuildOwner
	subs     []subscription
	disposed bool
	label    string
}

func (c *cellCore) subscribe(node arena.ID, flags tree.DirtyFlags) {
	for i := range c.subs {
		if c.subs[i].node == node {
			c.subs[i].flags |= flags
			return
		}
	}
	c.subs = append(c.subs, subscription{node: node, flags: flags})
}

func (c *cellCore) unsubscribe(node arena.ID) {
	c.subs = slices.DeleteFunc(c.subs, func(s subscription) bool {
		return s.node == node
	})
}

func (c *cellCore) String() string {
	if c.label != "" {
		return c.label
	}
	return fmt.Sprintf("cell(%p)", c)
}

// StateCell is a reactive container for a value of type T.
//
// StateCell is NOT thread-safe. It must only be accessed from the UI
// goroutine; other goroutines use BuildOwner.Post or Spawn.
type StateCell[T any] struct {
	core  *cellCore
	value T
}

// NewStateCell creates a free-standing cell. Cells created with UseState
// are owned by a node and disposed with it; free cells live until Dispose.
func NewStateCell[T any](owner *BuildOwner, initial T) *StateCell[T] {
	return &StateCell[T]{core: &cellCore{owner: owner}, value: initial}
}

// Named sets a label used in diagnostics and returns the cell.
func (s *StateCell[T]) Named(label string) *StateCell[T] {
	s.core.label = label
	return s
}

// Read returns the value and, while ctx's node is building, subscribes the
// node for rebuild on the next write.
func (s *StateCell[T]) Read(ctx *BuildContext) T {
	return s.Watch(ctx, tree.NeedsRebuild)
}

// Watch returns the value and subscribes ctx's node with the given flags.
// Use NeedsLayout or NeedsPaint for dependencies that do not change the
// node's structure.
func (s *StateCell[T]) Watch(ctx *BuildContext, flags tree.DirtyFlags) T {
	if ctx != nil && !s.core.disposed {
		s.core.owner.track(ctx, s.core, flags)
	}
	return s.value
}

// Peek returns the value without subscribing.
func (s *StateCell[T]) Peek() T {
	return s.value
}

// Write stores v and marks every subscriber dirty. Nothing is recomputed
// until the next build pass. Writing a cell that the node currently
// building has read panics with a *errors.ContractError.
// Writes to a disposed cell are ignored.
func (s *StateCell[T]) Write(v T) {
	if s.core.disposed {
		return
	}
	s.core.owner.checkWrite(s.core)
	s.value = v
	s.core.owner.notify(s.core)
}

// Update applies fn to the current value and writes the result.
func (s *StateCell[T]) Update(fn func(T) T) {
	s.Write(fn(s.value))
}

// Dispose drops every subscription. Later reads return the last value
// without subscribing.
func (s *StateCell[T]) Dispose() {
	s.core.disposed = true
	s.core.subs = nil
}

// Disposed reports whether Dispose has been called.
func (s *StateCell[T]) Disposed() bool {
	return s.core.disposed
}

// Subscribers returns the number of subscribed nodes.
func (s *StateCell[T]) Subscribers() int {
	return len(s.core.subs)
}

// Derived is a read-only mapped view of a cell. Reading it subscribes to
// the source cell.
type Derived[T, U any] struct {
	src *StateCell[T]
	fn  func(T) U
}

// Map returns a Derived view applying fn to src's value on every read.
func Map[T, U any](src *StateCell[T], fn func(T) U) Derived[T, U] {
	return Derived[T, U]{src: src, fn: fn}
}

// Read maps the source value and subscribes like StateCell.Read.
func (d Derived[T, U]) Read(ctx *BuildContext) U {
	return d.fn(d.src.Read(ctx))
}

// Watch maps the source value and subscribes with flags.
func (d Derived[T, U]) Watch(ctx *BuildContext, flags tree.DirtyFlags) U {
	return d.fn(d.src.Watch(ctx, flags))
}

// Peek maps the source value without subscribing.
func (d Derived[T, U]) Peek() U {
	return d.fn(d.src.Peek())
}

// contractViolation panics with a ContractError for rule.
func contractViolation(rule error, format string, args ...any) {
	panic(&errors.ContractError{Rule: rule, Detail: fmt.Sprintf(format, args...)})
}
