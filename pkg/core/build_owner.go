package core

import (
	"context"
	"sync/atomic"
	"weak"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/tree"
)

// Executor runs background work for Spawn.
//
// TrySubmit is called on the UI goroutine and must not block. It returns
// errors.ErrQueueFull when the work cannot be accepted yet; Spawn then
// parks the task and offers it again at the next frame boundary.
type Executor interface {
	TrySubmit(work func()) error
}

type goExecutor struct{}

func (goExecutor) TrySubmit(work func()) error {
	go work()
	return nil
}

// Options configures a BuildOwner.
type Options struct {
	// MaxRebuildIterations bounds the passes of one FlushBuild.
	MaxRebuildIterations int
	// WriteQueue sizes the queue behind Post.
	WriteQueue config.QueueConfig
	// ResultQueue sizes the queue that carries task results.
	ResultQueue config.QueueConfig
	// Executor runs Spawn work. Nil starts a goroutine per task.
	Executor Executor
}

// OptionsFromConfig derives owner options from the scheduler section.
func OptionsFromConfig(cfg *config.Config, exec Executor) Options {
	return Options{
		MaxRebuildIterations: cfg.Scheduler.MaxRebuildIterations,
		WriteQueue:           cfg.Scheduler.WriteQueue,
		ResultQueue:          cfg.Scheduler.ResultQueue,
		Executor:             exec,
	}
}

// BuildStats counts the work done since the last BeginFrame.
type BuildStats struct {
	// Passes is the number of rebuild passes FlushBuild ran.
	Passes int
	// Rebuilt is the number of node builds, including mounts.
	Rebuilt   int
	Mounted   int
	Unmounted int
	// Writes is the number of posted writes applied.
	Writes int
	// Results is the number of task results applied.
	Results int
	// Discarded is the number of task results dropped because their node
	// was disposed or the task cancelled.
	Discarded int
}

// evaluation tracks the cells read by the node currently building.
type evaluation struct {
	node  arena.ID
	reads map[*cellCore]struct{}
}

// element is the owner's per-node record.
type element struct {
	widget    Widget
	ctx       *BuildContext
	hooks     []any
	hookIndex int
	sources   map[weak.Pointer[cellCore]]struct{}
	disposers []func()
	onError   func(error) bool
	tasks     map[uint64]context.CancelFunc
}

// BuildOwner schedules and runs builds for one tree.
//
// BuildOwner belongs to the UI goroutine and performs no locking. Only
// Post and the task executor may be used from other goroutines.
type BuildOwner struct {
	tree     *tree.Tree
	elements map[arena.ID]*element

	maxIterations int
	executor      Executor
	writes        *Queue[func()]
	results       *Queue[taskResult]
	nextTask      uint64
	parked        []parkedTask

	// ui counts the UI goroutine's active sections; see EnterUI.
	ui atomic.Int32

	current     *evaluation
	building    []arena.ID
	batchDepth  int
	deferred    []*cellCore
	deferredSet map[*cellCore]struct{}

	frame       uint64
	stats       BuildStats
	diagnostics []error

	// OnNeedsFrame is called when a node is scheduled, signalling that a
	// frame should be produced.
	OnNeedsFrame func()
	// OnUnmount is called for every node removed from the tree, after its
	// element is disposed. Renderers use it to drop resources held for the
	// node.
	OnUnmount func(id arena.ID)
}

// NewBuildOwner creates an owner for t.
func NewBuildOwner(t *tree.Tree, opts Options) *BuildOwner {
	def := config.Default().Scheduler
	if opts.MaxRebuildIterations < 1 {
		opts.MaxRebuildIterations = def.MaxRebuildIterations
	}
	if opts.WriteQueue.Size < 1 {
		opts.WriteQueue = def.WriteQueue
	}
	if opts.ResultQueue.Size < 1 {
		opts.ResultQueue = def.ResultQueue
	}
	if opts.Executor == nil {
		opts.Executor = goExecutor{}
	}
	o := &BuildOwner{
		tree:          t,
		elements:      make(map[arena.ID]*element),
		maxIterations: opts.MaxRebuildIterations,
		executor:      opts.Executor,
		writes:        NewQueue[func()](opts.WriteQueue.Size, opts.WriteQueue.Policy),
		results:       NewQueue[taskResult](opts.ResultQueue.Size, opts.ResultQueue.Policy),
		deferredSet:   make(map[*cellCore]struct{}),
	}
	o.writes.OnDrop = func(func()) {
		errors.Report(&errors.EngineError{Op: "core.Post", Kind: errors.KindAsync, Err: errors.ErrQueueFull})
	}
	o.results.OnDrop = func(r taskResult) {
		errors.Report(&errors.EngineError{Op: "core.Spawn", Kind: errors.KindAsync, Err: errors.ErrQueueFull, Node: r.node.String()})
	}
	return o
}

// Tree returns the owned tree.
func (o *BuildOwner) Tree() *tree.Tree {
	return o.tree
}

// BeginFrame resets per-frame statistics and diagnostics.
func (o *BuildOwner) BeginFrame(frame uint64) {
	o.frame = frame
	o.stats = BuildStats{}
	o.diagnostics = nil
}

// Stats returns the counters accumulated since BeginFrame.
func (o *BuildOwner) Stats() BuildStats {
	return o.stats
}

// TakeDiagnostics returns and clears the diagnostics recorded this frame.
func (o *BuildOwner) TakeDiagnostics() []error {
	d := o.diagnostics
	o.diagnostics = nil
	return d
}

// Pending returns the number of nodes waiting to rebuild.
func (o *BuildOwner) Pending() int {
	return len(o.tree.Dirty(tree.NeedsRebuild))
}

// ScheduleBuild marks a node as needing rebuild.
func (o *BuildOwner) ScheduleBuild(id arena.ID) {
	o.schedule(id, tree.NeedsRebuild)
}

func (o *BuildOwner) schedule(id arena.ID, flags tree.DirtyFlags) {
	if !o.tree.Contains(id) {
		return
	}
	o.tree.Mark(id, flags)
	if o.OnNeedsFrame != nil {
		o.OnNeedsFrame()
	}
}

// Batch runs fn with change notification deferred until fn returns, so
// several writes mark their subscribers once.
func (o *BuildOwner) Batch(fn func()) {
	o.batchDepth++
	defer func() {
		o.batchDepth--
		if o.batchDepth == 0 {
			o.flushDeferred()
		}
	}()
	fn()
}

func (o *BuildOwner) flushDeferred() {
	cells := o.deferred
	o.deferred = nil
	clear(o.deferredSet)
	for _, c := range cells {
		o.markSubscribers(c)
	}
}

// EnterUI marks the UI goroutine as busy until the returned function is
// called. Builds and drains mark themselves; hosts wrap event delivery.
func (o *BuildOwner) EnterUI() (exit func()) {
	o.ui.Add(1)
	return func() { o.ui.Add(-1) }
}

// Post queues fn to run on the UI goroutine at the next frame boundary.
// It is safe to call from any goroutine.
//
// Other goroutines follow the write queue's policy and may wait for space.
// While the UI goroutine is busy (see EnterUI) Post never waits: only that
// goroutine drains the queue, so a full blocking queue returns
// errors.ErrQueueFull instead.
func (o *BuildOwner) Post(ctx context.Context, fn func()) error {
	if o.ui.Load() > 0 {
		return o.writes.TryPush(fn)
	}
	return o.writes.Push(ctx, fn)
}

// DrainWrites runs the posted functions queued so far, batching their
// notifications.
func (o *BuildOwner) DrainWrites() int {
	defer o.EnterUI()()
	fns := o.writes.Drain()
	if len(fns) == 0 {
		return 0
	}
	o.Batch(func() {
		for _, fn := range fns {
			func() {
				defer errors.Recover("core.DrainWrites")
				fn()
			}()
		}
	})
	o.stats.Writes += len(fns)
	return len(fns)
}

// FlushBuild rebuilds dirty nodes shallowest first and repeats while the
// builds leave new dirty nodes behind. After MaxRebuildIterations passes it
// stops, leaves the remaining nodes dirty and returns an error wrapping
// errors.ErrNonConvergentRebuild. A contract violation during build is
// returned as a *errors.ContractError.
func (o *BuildOwner) FlushBuild() (err error) {
	defer o.EnterUI()()
	defer func() {
		if r := recover(); r != nil {
			o.current = nil
			o.abandonBuilds()
			if ce, ok := r.(*errors.ContractError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	for pass := 0; ; pass++ {
		dirty := o.tree.Dirty(tree.NeedsRebuild)
		if len(dirty) == 0 {
			return nil
		}
		if pass >= o.maxIterations {
			return o.diagnose("core.FlushBuild", errors.KindRebuild, dirty[0], errors.ErrNonConvergentRebuild)
		}
		o.stats.Passes++
		for _, id := range dirty {
			n := o.tree.Node(id)
			if n == nil || !n.Flags.Has(tree.NeedsRebuild) {
				continue
			}
			o.performBuild(n, o.elements[id])
		}
	}
}

func (o *BuildOwner) diagnose(op string, kind errors.ErrorKind, node arena.ID, err error) *errors.EngineError {
	d := errors.Diagnostic(op, kind, node.String(), o.frame, err)
	o.diagnostics = append(o.diagnostics, d)
	return d
}

// track subscribes the building node to c.
func (o *BuildOwner) track(ctx *BuildContext, c *cellCore, flags tree.DirtyFlags) {
	ev := o.current
	if ev == nil || ev.node != ctx.node || ctx.owner != o {
		return
	}
	ev.reads[c] = struct{}{}
	c.subscribe(ctx.node, flags)
	if el := o.elements[ctx.node]; el != nil {
		el.sources[weak.Make(c)] = struct{}{}
	}
}

func (o *BuildOwner) checkWrite(c *cellCore) {
	if ev := o.current; ev != nil {
		if _, read := ev.reads[c]; read {
			contractViolation(errors.ErrWriteDuringRead, "%s written while node %s is building", c, ev.node)
		}
	}
}

func (o *BuildOwner) notify(c *cellCore) {
	if o.batchDepth > 0 {
		if _, ok := o.deferredSet[c]; !ok {
			o.deferredSet[c] = struct{}{}
			o.deferred = append(o.deferred, c)
		}
		return
	}
	o.markSubscribers(c)
}

func (o *BuildOwner) markSubscribers(c *cellCore) {
	subs := c.subs
	live := subs[:0]
	for _, s := range subs {
		if !o.tree.Contains(s.node) {
			continue
		}
		live = append(live, s)
	}
	c.subs = live
	for _, s := range live {
		o.schedule(s.node, s.flags)
	}
}

// unsubscribeAll removes the node from every cell it read.
func (o *BuildOwner) unsubscribeAll(id arena.ID, el *element) {
	for wp := range el.sources {
		if c := wp.Value(); c != nil {
			c.unsubscribe(id)
		}
	}
	clear(el.sources)
}
