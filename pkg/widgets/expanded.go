package widgets

import (
	"fmt"

	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/tree"
)

// FlexFit controls whether a flex child must fill its share of space.
type FlexFit int

const (
	// FlexFitTight forces the child to fill its share.
	FlexFitTight FlexFit = iota
	// FlexFitLoose lets the child be smaller than its share.
	FlexFitLoose
)

func (f FlexFit) String() string {
	switch f {
	case FlexFitTight:
		return "tight"
	case FlexFitLoose:
		return "loose"
	default:
		return fmt.Sprintf("FlexFit(%d)", int(f))
	}
}

// Expanded makes its child fill the remaining space along the main axis of
// a [Flex], [Row] or [Column]. Space is split between flexible children in
// proportion to Flex, which defaults to 1:
//
//	Row{
//	    MainAxisSize: MainAxisSizeMax,
//	    Children: []core.Widget{
//	        Expanded{Flex: 1, Child: panelA}, // 1/3 of the space
//	        Expanded{Flex: 2, Child: panelB}, // 2/3 of the space
//	    },
//	}
type Expanded struct {
	WidgetKey any
	Flex      int
	Child     core.Widget
}

func (e Expanded) Key() any { return e.WidgetKey }

func (e Expanded) ChildWidgets() []core.Widget { return single(e.Child) }

func (e Expanded) CreateRender(*core.BuildContext) any {
	return &renderFlexible{flex: effectiveFlex(e.Flex), fit: FlexFitTight}
}

func (e Expanded) UpdateRender(ctx *core.BuildContext, render any) {
	updateFlexible(ctx, render, effectiveFlex(e.Flex), FlexFitTight)
}

// Flexible is like [Expanded] but lets its child be smaller than its share
// of the space.
type Flexible struct {
	WidgetKey any
	Flex      int
	Fit       FlexFit
	Child     core.Widget
}

func (f Flexible) Key() any { return f.WidgetKey }

func (f Flexible) ChildWidgets() []core.Widget { return single(f.Child) }

func (f Flexible) CreateRender(*core.BuildContext) any {
	return &renderFlexible{flex: effectiveFlex(f.Flex), fit: f.Fit}
}

func (f Flexible) UpdateRender(ctx *core.BuildContext, render any) {
	updateFlexible(ctx, render, effectiveFlex(f.Flex), f.Fit)
}

func effectiveFlex(flex int) int {
	if flex <= 0 {
		return 1
	}
	return flex
}

func updateFlexible(ctx *core.BuildContext, render any, flex int, fit FlexFit) {
	r, ok := render.(*renderFlexible)
	if !ok || (r.flex == flex && r.fit == fit) {
		return
	}
	r.flex = flex
	r.fit = fit
	// The parent distributes the space, so it has to measure again.
	ctx.MarkNeedsLayout()
	if n := ctx.Tree().Node(ctx.Node()); n != nil && !n.Parent.IsZero() {
		ctx.Tree().Mark(n.Parent, tree.NeedsLayout)
	}
}

// renderFlexible sizes to its child; the enclosing flex reads its factor.
type renderFlexible struct {
	flex int
	fit  FlexFit
}

func (r *renderFlexible) FlexFactor() (int, FlexFit) {
	return r.flex, r.fit
}
