package core

import (
	"fmt"

	"github.com/go-drift/lattice/pkg/errors"
)

// useHook returns the value stored in the node's next hook slot, creating
// it on the first build. Hooks must be called in the same order on every
// build of a node.
func useHook[H any](ctx *BuildContext, create func() H) H {
	el := ctx.element()
	i := el.hookIndex
	el.hookIndex++
	if i < len(el.hooks) {
		h, ok := el.hooks[i].(H)
		if !ok {
			contractViolation(errors.ErrHookOrder, "slot %d of node %s holds %T, want %T", i, ctx.node, el.hooks[i], h)
		}
		return h
	}
	h := create()
	el.hooks = append(el.hooks, h)
	return h
}

// UseState returns a cell owned by the calling node. The cell is created
// with initial on the first build, keeps its value across rebuilds of the
// same node and is disposed when the node unmounts.
//
// Example:
//
//	func (c Counter) Build(ctx *core.BuildContext) core.Widget {
//	    count := core.UseState(ctx, 0)
//	    return widgets.Label{Text: fmt.Sprint(count.Read(ctx))}
//	}
func UseState[T any](ctx *BuildContext, initial T) *StateCell[T] {
	return useHook(ctx, func() *StateCell[T] {
		cell := NewStateCell(ctx.owner, initial)
		cell.core.label = fmt.Sprintf("%s.state", ctx.node)
		ctx.OnDispose(cell.Dispose)
		return cell
	})
}

// UseMemo computes a value once per node and returns it on later builds.
func UseMemo[T any](ctx *BuildContext, compute func() T) T {
	return useHook(ctx, func() *memoSlot[T] { return &memoSlot[T]{v: compute()} }).v
}

type memoSlot[T any] struct{ v T }

type effectSlot struct{}

type controllerSlot[C any] struct{ c C }

// UseEffect runs fn on the node's first build. A non-nil function returned
// by fn runs when the node unmounts.
func UseEffect(ctx *BuildContext, fn func() func()) {
	useHook(ctx, func() *effectSlot {
		if cleanup := fn(); cleanup != nil {
			ctx.OnDispose(cleanup)
		}
		return &effectSlot{}
	})
}

// UseController creates a resource once per node and disposes it on
// unmount.
func UseController[C Disposable](ctx *BuildContext, create func() C) C {
	return useHook(ctx, func() *controllerSlot[C] {
		c := create()
		ctx.OnDispose(c.Dispose)
		return &controllerSlot[C]{c: c}
	}).c
}

// UseErrorHandler installs the node's handler for task errors. The handler
// returns true when it consumed the error; otherwise the error travels to
// the nearest ancestor with a handler and finally to errors.Report.
func UseErrorHandler(ctx *BuildContext, handle func(error) bool) {
	ctx.element().onError = handle
}
