// Package core provides reactive state cells and the widget build layer.
//
// Widgets are immutable descriptions. The BuildOwner turns them into nodes
// of a tree.Tree, reconciles rebuilt descriptions against the existing
// nodes, and keeps track of which nodes depend on which state.
//
// # State
//
// A StateCell holds a value. Reading it through a BuildContext while a
// widget builds subscribes that widget's node; writing it marks every
// subscriber dirty without recomputing anything:
//
//	func (c Counter) Build(ctx *core.BuildContext) core.Widget {
//	    count := core.UseState(ctx, 0)
//	    return widgets.Label{Text: strconv.Itoa(count.Read(ctx))}
//	}
//
// Watch subscribes with finer flags, so a paint-only dependency only
// repaints its node.
//
// # Build passes
//
// FlushBuild drains the pending set shallowest first and repeats while
// rebuilds write more state, up to MaxRebuildIterations passes.
//
// # Threads
//
// The tree, cells and owner belong to the UI goroutine. Other goroutines
// hand work over with Post or Spawn; both go through bounded queues that
// the UI goroutine drains at frame boundaries.
package core
