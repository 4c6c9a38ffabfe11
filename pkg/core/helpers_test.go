package core

import (
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/tree"
)

// newOwner returns an owner over an empty tree with a small rebuild bound.
// A nil exec starts a goroutine per task.
func newOwner(exec Executor) *BuildOwner {
	return NewBuildOwner(tree.New(), Options{MaxRebuildIterations: 4, Executor: exec})
}

// builder is a component whose Build is supplied by the test.
type builder struct {
	key   any
	build func(ctx *BuildContext) Widget
}

func (p builder) Key() any { return p.key }

func (p builder) Build(ctx *BuildContext) Widget {
	return p.build(ctx)
}

// box is a render widget with fixed children. Its render object counts
// disposals in disposed when set.
type box struct {
	key      any
	children []Widget
	disposed *int
}

func (b box) Key() any { return b.key }

func (b box) CreateRender(*BuildContext) any {
	return &boxRender{disposed: b.disposed}
}

func (b box) UpdateRender(_ *BuildContext, render any) {
	render.(*boxRender).disposed = b.disposed
}

func (b box) ChildWidgets() []Widget {
	return b.children
}

type boxRender struct {
	disposed *int
}

func (r *boxRender) Dispose() {
	if r.disposed != nil {
		*r.disposed++
	}
}

// counter reads cell on every build, recording the build count and the
// value seen.
type counter struct {
	cell   *StateCell[int]
	builds *int
	seen   *int
}

func (c counter) Key() any { return nil }

func (c counter) Build(ctx *BuildContext) Widget {
	*c.builds++
	*c.seen = c.cell.Read(ctx)
	return nil
}

// manualExecutor holds submitted work until run is called. A positive
// limit caps the held work; further submissions report a full queue.
type manualExecutor struct {
	limit int
	queue []func()
}

func (x *manualExecutor) TrySubmit(work func()) error {
	if x.limit > 0 && len(x.queue) >= x.limit {
		return errors.ErrQueueFull
	}
	x.queue = append(x.queue, work)
	return nil
}

// run executes the held work in submission order.
func (x *manualExecutor) run() {
	for len(x.queue) > 0 {
		work := x.queue[0]
		x.queue = x.queue[1:]
		work()
	}
}
