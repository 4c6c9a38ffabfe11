package core

import "reflect"

// Widget is an immutable description of part of the UI.
type Widget interface {
	// Key distinguishes siblings of the same type. Nil means no key.
	Key() any
}

// Component is a widget that describes its UI in terms of another widget.
type Component interface {
	Widget
	Build(ctx *BuildContext) Widget
}

// RenderWidget is a widget backed by a render object that takes part in
// layout and paint.
type RenderWidget interface {
	Widget
	// CreateRender creates the node's render object.
	CreateRender(ctx *BuildContext) any
	// UpdateRender applies the widget's configuration to an existing
	// render object and marks layout or paint as needed.
	UpdateRender(ctx *BuildContext, render any)
	// ChildWidgets returns the widgets to mount below this node.
	ChildWidgets() []Widget
}

// Disposable is implemented by render objects and values that hold
// resources released on unmount.
type Disposable interface {
	Dispose()
}

// Func adapts a build function into a keyless Component.
type Func func(ctx *BuildContext) Widget

// Key implements Widget.
func (Func) Key() any { return nil }

// Build implements Component.
func (f Func) Build(ctx *BuildContext) Widget { return f(ctx) }

// placeholder is mounted in place of a widget whose Build panicked.
type placeholder struct{}

func (placeholder) Key() any { return nil }
func (placeholder) CreateRender(*BuildContext) any { return nil }
func (placeholder) UpdateRender(*BuildContext, any) {}
func (placeholder) ChildWidgets() []Widget { return nil }

// canUpdateWidget reports whether next may reuse the node built for existing.
func canUpdateWidget(existing, next Widget) bool {
	if existing == nil || next == nil {
		return false
	}
	if reflect.TypeOf(existing) != reflect.TypeOf(next) {
		return false
	}
	return reflect.DeepEqual(existing.Key(), next.Key())
}

func typeName(w Widget) string {
	if w == nil {
		return "<nil>"
	}
	return reflect.TypeOf(w).String()
}
