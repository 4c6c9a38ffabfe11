package core

import (
	"context"
	"slices"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/errors"
)

// taskResult carries a finished task back to the UI goroutine.
type taskResult struct {
	node  arena.ID
	task  uint64
	err   error
	apply func()
}

// parkedTask is a spawned task waiting for executor capacity.
type parkedTask struct {
	node arena.ID
	task uint64
	run  func()
}

// Spawn runs work on the owner's executor on behalf of ctx's node.
//
// The work's context is cancelled when the node unmounts. On completion the
// result is queued, tagged with the node's ID and generation, and onDone runs
// on the UI goroutine during the next DrainResults, unless the node was
// disposed in the meantime, in which case the result is discarded. Errors
// go to the node's error handler chain instead of onDone.
//
// Spawn never blocks. When the executor is saturated the task is parked
// and offered again at each DrainResults, in spawn order.
func Spawn[T any](ctx *BuildContext, work func(context.Context) (T, error), onDone func(T)) error {
	o := ctx.owner
	el := o.elements[ctx.node]
	if el == nil || !o.tree.Contains(ctx.node) {
		return errors.ErrDisposed
	}
	tctx, cancel := context.WithCancel(context.Background())
	o.nextTask++
	id := o.nextTask
	el.tasks[id] = cancel
	node := ctx.node

	run := func() {
		v, err := work(tctx)
		if err == nil && tctx.Err() != nil {
			err = errors.ErrTaskCancelled
		}
		res := taskResult{node: node, task: id, err: err}
		if err == nil && onDone != nil {
			res.apply = func() { onDone(v) }
		}
		// A cancelled task gives up waiting for queue space; its result
		// would be discarded anyway.
		_ = o.results.Push(tctx, res)
	}
	if err := o.submit(parkedTask{node: node, task: id, run: run}); err != nil {
		delete(el.tasks, id)
		cancel()
		return err
	}
	return nil
}

// submit hands t to the executor, parking it when the executor is full or
// earlier tasks are still parked.
func (o *BuildOwner) submit(t parkedTask) error {
	if len(o.parked) == 0 {
		err := o.executor.TrySubmit(t.run)
		if !errors.Is(err, errors.ErrQueueFull) {
			return err
		}
	}
	o.parked = append(o.parked, t)
	return nil
}

// resubmitParked offers parked tasks to the executor until it refuses one.
// Tasks whose node is gone are dropped; other executor errors go to the
// node's error handlers.
func (o *BuildOwner) resubmitParked() {
	n := 0
	for ; n < len(o.parked); n++ {
		t := o.parked[n]
		el := o.elements[t.node]
		if el == nil {
			continue
		}
		cancel, live := el.tasks[t.task]
		if !live {
			continue
		}
		err := o.executor.TrySubmit(t.run)
		if errors.Is(err, errors.ErrQueueFull) {
			break
		}
		if err != nil {
			delete(el.tasks, t.task)
			cancel()
			o.routeError(t.node, err)
		}
	}
	o.parked = slices.Delete(o.parked, 0, n)
}

// Parked returns the number of spawned tasks waiting for executor capacity.
func (o *BuildOwner) Parked() int {
	return len(o.parked)
}

// DrainResults applies queued task results on the UI goroutine and returns
// the number applied. Results whose node is gone, or whose generation no
// longer matches, are discarded without touching the tree.
func (o *BuildOwner) DrainResults() int {
	defer o.EnterUI()()
	o.resubmitParked()
	applied := 0
	for _, r := range o.results.Drain() {
		el := o.elements[r.node]
		if el == nil || !o.tree.Contains(r.node) {
			o.stats.Discarded++
			continue
		}
		cancel, live := el.tasks[r.task]
		if !live {
			o.stats.Discarded++
			continue
		}
		delete(el.tasks, r.task)
		cancel()
		if r.err != nil {
			o.routeError(r.node, r.err)
			continue
		}
		if r.apply != nil {
			func() {
				defer errors.Recover("core.DrainResults")
				r.apply()
			}()
		}
		applied++
	}
	o.stats.Results += applied
	return applied
}

// InFlight returns the number of tasks started for id that have not
// delivered a result.
func (o *BuildOwner) InFlight(id arena.ID) int {
	if el := o.elements[id]; el != nil {
		return len(el.tasks)
	}
	return 0
}

// routeError offers err to the node's handler and then its ancestors'.
// Unhandled errors are reported and recorded as diagnostics.
func (o *BuildOwner) routeError(id arena.ID, err error) {
	for cur := id; !cur.IsZero(); {
		if el := o.elements[cur]; el != nil && el.onError != nil && el.onError(err) {
			return
		}
		n := o.tree.Node(cur)
		if n == nil {
			break
		}
		cur = n.Parent
	}
	o.diagnose("core.Spawn", errors.KindAsync, id, err)
}

// CloseQueues rejects further posts and task results.
func (o *BuildOwner) CloseQueues() {
	o.parked = nil
	o.writes.Close()
	o.results.Close()
}
