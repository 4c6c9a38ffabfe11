package core

import (
	"context"
	"reflect"
	"slices"
	"weak"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/tree"
)

// MountRoot builds w as the tree's root. If a root exists and w can update
// it, the existing node is reused; otherwise the old tree is unmounted.
func (o *BuildOwner) MountRoot(w Widget) (id arena.ID, err error) {
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
	root := o.tree.Root()
	if el := o.elements[root]; el != nil && canUpdateWidget(el.widget, w) {
		el.widget = w
		o.performBuild(o.tree.Node(root), el)
		return root, nil
	}
	if !root.IsZero() {
		o.unmount(root)
	}
	id = o.mount(arena.ID{}, w)
	if err := o.tree.SetRoot(id); err != nil {
		return id, err
	}
	return id, nil
}

// Unmount disposes the whole tree.
func (o *BuildOwner) Unmount() {
	if root := o.tree.Root(); !root.IsZero() {
		o.unmount(root)
	}
}

// Widget returns the widget currently configuring id.
func (o *BuildOwner) Widget(id arena.ID) Widget {
	if el := o.elements[id]; el != nil {
		return el.widget
	}
	return nil
}

// Context returns the build context of a live node.
func (o *BuildOwner) Context(id arena.ID) *BuildContext {
	if el := o.elements[id]; el != nil {
		return el.ctx
	}
	return nil
}

func (o *BuildOwner) mount(parent arena.ID, w Widget) arena.ID {
	n := &tree.Node{Key: w.Key(), TypeName: typeName(w)}
	id := o.tree.Insert(parent, n)
	el := &element{
		widget:  w,
		sources: make(map[weak.Pointer[cellCore]]struct{}),
		tasks:   make(map[uint64]context.CancelFunc),
	}
	el.ctx = &BuildContext{owner: o, node: id}
	o.elements[id] = el
	o.stats.Mounted++
	o.performBuild(n, el)
	o.tree.Mark(id, tree.NeedsLayout|tree.NeedsPaint)
	return id
}

// performBuild runs the node's build, refreshes its subscriptions and
// reconciles its children.
func (o *BuildOwner) performBuild(n *tree.Node, el *element) {
	o.tree.Clear(n.ID, tree.NeedsRebuild)
	o.transition(n.ID, tree.Building)
	o.building = append(o.building, n.ID)
	o.unsubscribeAll(n.ID, el)
	el.hookIndex = 0
	o.stats.Rebuilt++

	children := o.evaluate(n, el)

	if o.tree.Contains(n.ID) {
		o.reconcileChildren(n, children)
		o.transition(n.ID, tree.Mounted)
		if n.Flags.Has(tree.NeedsRebuild) {
			o.transition(n.ID, tree.Dirty)
		}
	}
	o.building = o.building[:len(o.building)-1]
}

// transition moves id to the next lifecycle state. An illegal move is
// recorded as a contract diagnostic and leaves the state unchanged.
func (o *BuildOwner) transition(id arena.ID, next tree.Lifecycle) {
	if err := o.tree.Transition(id, next); err != nil {
		o.diagnose("core.lifecycle", errors.KindContract, id, err)
	}
}

// abandonBuilds resets the nodes whose builds a contract violation
// unwound. They return to Dirty with NeedsRebuild set, so a later pass
// builds them again.
func (o *BuildOwner) abandonBuilds() {
	for i := len(o.building) - 1; i >= 0; i-- {
		id := o.building[i]
		if n := o.tree.Node(id); n != nil && n.State == tree.Building {
			o.transition(id, tree.Mounted)
			o.tree.Mark(id, tree.NeedsRebuild)
		}
	}
	o.building = o.building[:0]
}

// evaluate runs the widget's build step with read tracking enabled and
// returns the child widgets to reconcile.
func (o *BuildOwner) evaluate(n *tree.Node, el *element) (children []Widget) {
	prev := o.current
	o.current = &evaluation{node: n.ID, reads: make(map[*cellCore]struct{})}
	defer func() { o.current = prev }()

	switch w := el.widget.(type) {
	case Component:
		if child := o.safeBuild(n, w, el.ctx); child != nil {
			children = []Widget{child}
		}
	case RenderWidget:
		if !o.created(el) {
			el.hooks = append(el.hooks, renderCreated{})
			el.hookIndex = 1
			n.Render = w.CreateRender(el.ctx)
			n.Caps = tree.CapabilitiesOf(n.Render)
		} else {
			el.hookIndex = 1
			w.UpdateRender(el.ctx, n.Render)
		}
		children = w.ChildWidgets()
	}
	return children
}

// renderCreated occupies the first hook slot of render nodes so that
// CreateRender runs once per node.
type renderCreated struct{}

func (o *BuildOwner) created(el *element) bool {
	if len(el.hooks) == 0 {
		return false
	}
	_, ok := el.hooks[0].(renderCreated)
	return ok
}

// safeBuild calls Build, converting panics into a reported BuildError and
// a placeholder child. Contract violations keep unwinding.
func (o *BuildOwner) safeBuild(n *tree.Node, w Component, ctx *BuildContext) (child Widget) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*errors.ContractError); ok {
				panic(ce)
			}
			be := &errors.BuildError{
				Widget:     n.TypeName,
				Node:       n.ID.String(),
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
			}
			errors.ReportBuildError(be)
			o.diagnostics = append(o.diagnostics, be)
			child = placeholder{}
		}
	}()
	return w.Build(ctx)
}

// reconcileChildren matches widgets against the existing children by
// position.
func (o *BuildOwner) reconcileChildren(parent *tree.Node, widgets []Widget) {
	ws := make([]Widget, 0, len(widgets))
	for _, w := range widgets {
		if w != nil {
			ws = append(ws, w)
		}
	}
	checkDuplicateKeys(parent, ws)

	old := slices.Clone(parent.Children)
	next := make([]arena.ID, 0, len(ws))
	for i, w := range ws {
		var prev arena.ID
		if i < len(old) {
			prev = old[i]
		}
		next = append(next, o.updateChild(parent, prev, w))
	}
	if len(old) > len(ws) {
		for _, id := range old[len(ws):] {
			o.unmount(id)
		}
	}
	o.tree.SetChildren(parent.ID, next)
	if !slices.Equal(old, next) {
		o.tree.Mark(parent.ID, tree.NeedsLayout|tree.NeedsPaint)
	}
}

func (o *BuildOwner) updateChild(parent *tree.Node, prev arena.ID, w Widget) arena.ID {
	if !prev.IsZero() {
		if el := o.elements[prev]; el != nil && canUpdateWidget(el.widget, w) {
			el.widget = w
			o.performBuild(o.tree.Node(prev), el)
			return prev
		}
		o.unmount(prev)
	}
	return o.mount(parent.ID, w)
}

func checkDuplicateKeys(parent *tree.Node, ws []Widget) {
	seen := make(map[any]struct{})
	var uncomparable []any
	for _, w := range ws {
		k := w.Key()
		if k == nil {
			continue
		}
		if reflect.TypeOf(k).Comparable() {
			if _, dup := seen[k]; dup {
				contractViolation(errors.ErrDuplicateKey, "key %v under %s", k, parent)
			}
			seen[k] = struct{}{}
			continue
		}
		for _, u := range uncomparable {
			if reflect.DeepEqual(u, k) {
				contractViolation(errors.ErrDuplicateKey, "key %v under %s", k, parent)
			}
		}
		uncomparable = append(uncomparable, k)
	}
}

// unmount disposes the subtree rooted at id, children first.
func (o *BuildOwner) unmount(id arena.ID) {
	n := o.tree.Node(id)
	if n == nil {
		return
	}
	o.transition(id, tree.Unmounting)
	for _, c := range slices.Clone(n.Children) {
		o.unmount(c)
	}
	if el := o.elements[id]; el != nil {
		o.disposeElement(id, el)
		delete(o.elements, id)
	}
	if d, ok := n.Render.(Disposable); ok {
		d.Dispose()
	}
	if p := o.tree.Node(n.Parent); p != nil {
		o.tree.Mark(p.ID, tree.NeedsLayout|tree.NeedsPaint)
	}
	o.tree.Remove(id)
	if o.OnUnmount != nil {
		o.OnUnmount(id)
	}
	o.stats.Unmounted++
}

func (o *BuildOwner) disposeElement(id arena.ID, el *element) {
	o.unsubscribeAll(id, el)
	for _, cancel := range el.tasks {
		cancel()
	}
	clear(el.tasks)
	for i := len(el.disposers) - 1; i >= 0; i-- {
		func() {
			defer errors.Recover("core.dispose")
			el.disposers[i]()
		}()
	}
	el.disposers = nil
	el.hooks = nil
}
