package core

import (
	"reflect"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/tree"
)

// Provide makes Value available to every widget built below Child.
// Descendants look it up with Of.
//
// When Provide is rebuilt with a value that is not deeply equal to the
// previous one, every descendant that looked it up is scheduled to
// rebuild. Providing a *StateCell or a Derived view shares reactive state
// instead: looking it up subscribes the caller to the cell, so a write
// rebuilds the nodes that looked it up and nothing else.
type Provide[T any] struct {
	WidgetKey any
	Value     T
	Child     Widget
}

// Key implements Widget.
func (p Provide[T]) Key() any { return p.WidgetKey }

// Build implements Component.
func (p Provide[T]) Build(ctx *BuildContext) Widget {
	slot := useHook(ctx, func() *providerSlot {
		return &providerSlot{value: p.Value, dependents: make(map[arena.ID]struct{})}
	})
	if !sameProvided(slot.value, p.Value) {
		slot.value = p.Value
		for id := range slot.dependents {
			ctx.owner.schedule(id, tree.NeedsRebuild)
		}
		clear(slot.dependents)
	}
	return p.Child
}

// providerSlot is the hook state of a Provide node. Dependents only
// accumulate until the value changes; unmounted IDs are ignored when
// scheduling.
type providerSlot struct {
	value      any
	dependents map[arena.ID]struct{}
}

// sameProvided compares cells by identity and other values deeply.
func sameProvided(prev, next any) bool {
	if a, ok := prev.(reactiveSource); ok {
		b, ok := next.(reactiveSource)
		return ok && a.source() == b.source()
	}
	return reflect.DeepEqual(prev, next)
}

// reactiveSource is implemented by cells and views that Of subscribes to.
type reactiveSource interface {
	source() *cellCore
}

func (s *StateCell[T]) source() *cellCore { return s.core }

func (d Derived[T, U]) source() *cellCore { return d.src.core }

// Of returns the value of the nearest ancestor Provide[T]. While ctx's
// node is building, the node is registered as a dependent of that
// provider. ok is false when no ancestor provides a T.
//
// Example:
//
//	theme, ok := core.Of[*core.StateCell[Theme]](ctx)
//	if ok {
//	    color = theme.Read(ctx).Accent
//	}
func Of[T any](ctx *BuildContext) (v T, ok bool) {
	o := ctx.owner
	for _, id := range o.tree.Ancestors(ctx.node) {
		el := o.elements[id]
		if el == nil {
			continue
		}
		p, isProvider := el.widget.(Provide[T])
		if !isProvider {
			continue
		}
		if ev := o.current; ev != nil && ev.node == ctx.node {
			if len(el.hooks) > 0 {
				if slot, ok := el.hooks[0].(*providerSlot); ok {
					slot.dependents[ctx.node] = struct{}{}
				}
			}
			if src, reactive := any(p.Value).(reactiveSource); reactive && !src.source().disposed {
				o.track(ctx, src.source(), tree.NeedsRebuild)
			}
		}
		return p.Value, true
	}
	return v, false
}
