package widgets

import (
	"fmt"
	"math"

	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
)

// StackFit determines how children are sized within a Stack.
type StackFit int

const (
	// StackFitLoose allows children to size themselves.
	StackFitLoose StackFit = iota
	// StackFitExpand forces children to fill the bounded axes of the stack.
	StackFitExpand
	// StackFitPassthrough hands the stack's constraints to its children
	// unchanged.
	StackFitPassthrough
)

// String returns a human-readable representation of the stack fit.
func (f StackFit) String() string {
	switch f {
	case StackFitLoose:
		return "loose"
	case StackFitExpand:
		return "expand"
	case StackFitPassthrough:
		return "passthrough"
	default:
		return fmt.Sprintf("StackFit(%d)", int(f))
	}
}

// Stack overlays children on top of each other.
//
// Children are painted in order, with the first child at the bottom and
// the last child on top. Hit testing proceeds in reverse (topmost first).
// The stack is as large as its largest child and positions every child
// with Alignment. The zero Alignment centers children; StackOf aligns them
// to the top-left corner.
type Stack struct {
	WidgetKey any
	Children  []core.Widget
	Alignment layout.Alignment
	Fit       StackFit
}

// StackOf creates a stack with the given children.
func StackOf(children ...core.Widget) Stack {
	return Stack{Children: children, Alignment: layout.AlignmentTopLeft}
}

func (s Stack) Key() any { return s.WidgetKey }

func (s Stack) ChildWidgets() []core.Widget { return s.Children }

func (s Stack) CreateRender(*core.BuildContext) any {
	return &renderStack{alignment: s.Alignment, fit: s.Fit}
}

func (s Stack) UpdateRender(ctx *core.BuildContext, render any) {
	if stack, ok := render.(*renderStack); ok && (stack.alignment != s.Alignment || stack.fit != s.Fit) {
		stack.alignment = s.Alignment
		stack.fit = s.Fit
		ctx.MarkNeedsLayout()
	}
}

type renderStack struct {
	alignment layout.Alignment
	fit       StackFit
}

func (r *renderStack) childConstraints(c layout.Constraints) layout.Constraints {
	switch r.fit {
	case StackFitExpand:
		if c.HasBoundedWidth() {
			c.MinWidth = c.MaxWidth
		}
		if c.HasBoundedHeight() {
			c.MinHeight = c.MaxHeight
		}
		return c
	case StackFitPassthrough:
		return c
	default:
		return c.Loosen()
	}
}

func (r *renderStack) Measure(ctx *layout.MeasureContext, c layout.Constraints) graphics.Size {
	cc := r.childConstraints(c)
	size := c.Smallest()
	for _, id := range ctx.Children() {
		s := ctx.MeasureChild(id, cc)
		size.Width = math.Max(size.Width, s.Width)
		size.Height = math.Max(size.Height, s.Height)
	}
	return c.Constrain(size)
}

func (r *renderStack) Arrange(ctx *layout.ArrangeContext, size graphics.Size) {
	for _, id := range ctx.Children() {
		ctx.Place(id, r.alignment.Inset(size, ctx.ChildSize(id)))
	}
}
