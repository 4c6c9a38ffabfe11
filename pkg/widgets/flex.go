package widgets

import (
	"fmt"
	"math"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
)

// Axis represents the layout direction.
type Axis int

const (
	AxisHorizontal Axis = iota
	AxisVertical
)

// String returns a human-readable representation of the axis.
func (a Axis) String() string {
	switch a {
	case AxisVertical:
		return "vertical"
	case AxisHorizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// MainAxisAlignment controls how children are positioned along the main axis
// (horizontal for [Row], vertical for [Column]).
type MainAxisAlignment int

const (
	// MainAxisAlignmentStart places children at the start (left for Row, top for Column).
	MainAxisAlignmentStart MainAxisAlignment = iota
	// MainAxisAlignmentEnd places children at the end (right for Row, bottom for Column).
	MainAxisAlignmentEnd
	// MainAxisAlignmentCenter centers children along the main axis.
	MainAxisAlignmentCenter
	// MainAxisAlignmentSpaceBetween distributes free space evenly between children.
	// No space before the first or after the last child.
	MainAxisAlignmentSpaceBetween
	// MainAxisAlignmentSpaceAround distributes free space evenly, with half-sized
	// spaces at the start and end.
	MainAxisAlignmentSpaceAround
	// MainAxisAlignmentSpaceEvenly distributes free space evenly, including
	// equal space before the first and after the last child.
	MainAxisAlignmentSpaceEvenly
)

// String returns a human-readable representation of the main axis alignment.
func (a MainAxisAlignment) String() string {
	switch a {
	case MainAxisAlignmentStart:
		return "start"
	case MainAxisAlignmentEnd:
		return "end"
	case MainAxisAlignmentCenter:
		return "center"
	case MainAxisAlignmentSpaceBetween:
		return "space_between"
	case MainAxisAlignmentSpaceAround:
		return "space_around"
	case MainAxisAlignmentSpaceEvenly:
		return "space_evenly"
	default:
		return fmt.Sprintf("MainAxisAlignment(%d)", int(a))
	}
}

// CrossAxisAlignment controls how children are positioned along the cross axis
// (vertical for [Row], horizontal for [Column]).
type CrossAxisAlignment int

const (
	// CrossAxisAlignmentStart places children at the start of the cross axis.
	CrossAxisAlignmentStart CrossAxisAlignment = iota
	// CrossAxisAlignmentEnd places children at the end of the cross axis.
	CrossAxisAlignmentEnd
	// CrossAxisAlignmentCenter centers children along the cross axis.
	CrossAxisAlignmentCenter
	// CrossAxisAlignmentStretch stretches children to fill their line.
	CrossAxisAlignmentStretch
)

// String returns a human-readable representation of the cross axis alignment.
func (a CrossAxisAlignment) String() string {
	switch a {
	case CrossAxisAlignmentStart:
		return "start"
	case CrossAxisAlignmentEnd:
		return "end"
	case CrossAxisAlignmentCenter:
		return "center"
	case CrossAxisAlignmentStretch:
		return "stretch"
	default:
		return fmt.Sprintf("CrossAxisAlignment(%d)", int(a))
	}
}

// MainAxisSize controls how much space the flex container takes along its main axis.
type MainAxisSize int

const (
	// MainAxisSizeMin sizes the container to fit its children (shrink-wrap).
	MainAxisSizeMin MainAxisSize = iota
	// MainAxisSizeMax expands to fill all available space along the main
	// axis when it is bounded.
	MainAxisSizeMax
)

// String returns a human-readable representation of the main axis size.
func (s MainAxisSize) String() string {
	switch s {
	case MainAxisSizeMin:
		return "min"
	case MainAxisSizeMax:
		return "max"
	default:
		return fmt.Sprintf("MainAxisSize(%d)", int(s))
	}
}

// FlexFactor reports the flex value and fit of a child render object.
type FlexFactor interface {
	FlexFactor() (flex int, fit FlexFit)
}

// Flex lays out children in runs along Direction.
//
// Children are first measured loosely. Children wrapped in [Expanded] or
// [Flexible] then share the space left on their line in proportion to their
// flex factor. When the main axis is unbounded, flex children keep their
// intrinsic size. With Wrap set, a child that does not fit on the current
// line starts a new one; lines stack along the cross axis. Reverse lays
// children out from the end of the list.
type Flex struct {
	WidgetKey          any
	Direction          Axis
	Reverse            bool
	Wrap               bool
	MainAxisAlignment  MainAxisAlignment
	CrossAxisAlignment CrossAxisAlignment
	MainAxisSize       MainAxisSize
	Children           []core.Widget
}

func (f Flex) Key() any { return f.WidgetKey }

func (f Flex) ChildWidgets() []core.Widget { return f.Children }

func (f Flex) CreateRender(*core.BuildContext) any {
	return &renderFlex{cfg: f.config()}
}

func (f Flex) UpdateRender(ctx *core.BuildContext, render any) {
	if flex, ok := render.(*renderFlex); ok && flex.cfg != f.config() {
		flex.cfg = f.config()
		ctx.MarkNeedsLayout()
	}
}

func (f Flex) config() flexConfig {
	return flexConfig{
		direction:      f.Direction,
		reverse:        f.Reverse,
		wrap:           f.Wrap,
		alignment:      f.MainAxisAlignment,
		crossAlignment: f.CrossAxisAlignment,
		axisSize:       f.MainAxisSize,
	}
}

// Row lays out children horizontally from left to right.
//
// By default (MainAxisSizeMin), Row shrinks to fit its children. Wrap
// children in [Expanded] to share the remaining width:
//
//	Row{
//	    MainAxisSize: MainAxisSizeMax,
//	    Children: []core.Widget{
//	        SizedBox{Width: 40},
//	        Expanded{Child: content},
//	    },
//	}
type Row struct {
	WidgetKey          any
	Children           []core.Widget
	MainAxisAlignment  MainAxisAlignment
	CrossAxisAlignment CrossAxisAlignment
	MainAxisSize       MainAxisSize
}

// RowOf creates a horizontal layout with the specified alignments and sizing behavior.
func RowOf(alignment MainAxisAlignment, crossAlignment CrossAxisAlignment, size MainAxisSize, children ...core.Widget) Row {
	return Row{
		Children:           children,
		MainAxisAlignment:  alignment,
		CrossAxisAlignment: crossAlignment,
		MainAxisSize:       size,
	}
}

func (r Row) Key() any { return r.WidgetKey }

func (r Row) ChildWidgets() []core.Widget { return r.Children }

func (r Row) CreateRender(ctx *core.BuildContext) any { return r.flex().CreateRender(ctx) }

func (r Row) UpdateRender(ctx *core.BuildContext, render any) { r.flex().UpdateRender(ctx, render) }

func (r Row) flex() Flex {
	return Flex{
		Direction:          AxisHorizontal,
		MainAxisAlignment:  r.MainAxisAlignment,
		CrossAxisAlignment: r.CrossAxisAlignment,
		MainAxisSize:       r.MainAxisSize,
	}
}

// Column lays out children vertically from top to bottom. It is the
// vertical counterpart of [Row].
type Column struct {
	WidgetKey          any
	Children           []core.Widget
	MainAxisAlignment  MainAxisAlignment
	CrossAxisAlignment CrossAxisAlignment
	MainAxisSize       MainAxisSize
}

// ColumnOf creates a vertical layout with the specified alignments and sizing behavior.
func ColumnOf(alignment MainAxisAlignment, crossAlignment CrossAxisAlignment, size MainAxisSize, children ...core.Widget) Column {
	return Column{
		Children:           children,
		MainAxisAlignment:  alignment,
		CrossAxisAlignment: crossAlignment,
		MainAxisSize:       size,
	}
}

func (c Column) Key() any { return c.WidgetKey }

func (c Column) ChildWidgets() []core.Widget { return c.Children }

func (c Column) CreateRender(ctx *core.BuildContext) any { return c.flex().CreateRender(ctx) }

func (c Column) UpdateRender(ctx *core.BuildContext, render any) { c.flex().UpdateRender(ctx, render) }

func (c Column) flex() Flex {
	return Flex{
		Direction:          AxisVertical,
		MainAxisAlignment:  c.MainAxisAlignment,
		CrossAxisAlignment: c.CrossAxisAlignment,
		MainAxisSize:       c.MainAxisSize,
	}
}

type flexConfig struct {
	direction      Axis
	reverse        bool
	wrap           bool
	alignment      MainAxisAlignment
	crossAlignment CrossAxisAlignment
	axisSize       MainAxisSize
}

type renderFlex struct {
	cfg                 flexConfig
	unboundedFlexWarned bool
}

// flexLine is a run of children along the main axis.
type flexLine struct {
	start, end int
	main       float64
	cross      float64
}

func (r *renderFlex) mainAxis(size graphics.Size) float64 {
	if r.cfg.direction == AxisHorizontal {
		return size.Width
	}
	return size.Height
}

func (r *renderFlex) crossAxis(size graphics.Size) float64 {
	if r.cfg.direction == AxisHorizontal {
		return size.Height
	}
	return size.Width
}

func (r *renderFlex) makeSize(main, cross float64) graphics.Size {
	if r.cfg.direction == AxisHorizontal {
		return graphics.Size{Width: main, Height: cross}
	}
	return graphics.Size{Width: cross, Height: main}
}

func (r *renderFlex) makeOffset(main, cross float64) graphics.Offset {
	if r.cfg.direction == AxisHorizontal {
		return graphics.Offset{X: main, Y: cross}
	}
	return graphics.Offset{X: cross, Y: main}
}

func (r *renderFlex) makeConstraints(minMain, maxMain, minCross, maxCross float64) layout.Constraints {
	if r.cfg.direction == AxisHorizontal {
		return layout.Constraints{MinWidth: minMain, MaxWidth: maxMain, MinHeight: minCross, MaxHeight: maxCross}
	}
	return layout.Constraints{MinWidth: minCross, MaxWidth: maxCross, MinHeight: minMain, MaxHeight: maxMain}
}

// ordered returns the children in layout order.
func (r *renderFlex) ordered(children []arena.ID) []arena.ID {
	if !r.cfg.reverse {
		return children
	}
	out := make([]arena.ID, len(children))
	for i, id := range children {
		out[len(children)-1-i] = id
	}
	return out
}

// breakLines splits children into lines no longer than limit. Without
// wrapping every child lands on one line.
func (r *renderFlex) breakLines(sizes []graphics.Size, limit float64) []flexLine {
	if len(sizes) == 0 {
		return nil
	}
	var lines []flexLine
	cur := flexLine{}
	for i, s := range sizes {
		main := r.mainAxis(s)
		if r.cfg.wrap && cur.end > cur.start && cur.main+main > limit+1e-9 {
			lines = append(lines, cur)
			cur = flexLine{start: i, end: i}
		}
		cur.end = i + 1
		cur.main += main
		cur.cross = math.Max(cur.cross, r.crossAxis(s))
	}
	return append(lines, cur)
}

func flexOf(render any) (int, FlexFit) {
	if f, ok := render.(FlexFactor); ok {
		return f.FlexFactor()
	}
	return 0, FlexFitTight
}

func (r *renderFlex) Measure(ctx *layout.MeasureContext, c layout.Constraints) graphics.Size {
	maxMain := r.mainAxis(graphics.Size{Width: c.MaxWidth, Height: c.MaxHeight})
	maxCross := r.crossAxis(graphics.Size{Width: c.MaxWidth, Height: c.MaxHeight})
	minCross := r.crossAxis(graphics.Size{Width: c.MinWidth, Height: c.MinHeight})
	bounded := !math.IsInf(maxMain, 1)

	children := r.ordered(ctx.Children())
	sizes := make([]graphics.Size, len(children))
	loose := r.makeConstraints(0, maxMain, 0, maxCross)
	for i, id := range children {
		sizes[i] = ctx.MeasureChild(id, loose)
	}

	lines := r.breakLines(sizes, maxMain)
	for li := range lines {
		ln := &lines[li]
		if !r.cfg.wrap {
			ln.cross = math.Max(ln.cross, minCross)
		}
		r.resolveLine(ctx, children, sizes, ln, maxMain, bounded)
	}

	var main, cross float64
	for _, ln := range lines {
		main = math.Max(main, ln.main)
		cross += ln.cross
	}
	if r.cfg.axisSize == MainAxisSizeMax && bounded {
		main = maxMain
	}
	return c.Constrain(r.makeSize(main, cross))
}

// resolveLine hands the line's free space to its flex children and
// stretches children across the line when requested. Children are only
// measured again when their size has to change.
func (r *renderFlex) resolveLine(ctx *layout.MeasureContext, children []arena.ID, sizes []graphics.Size, ln *flexLine, maxMain float64, bounded bool) {
	totalFlex := 0
	fixed := 0.0
	for i := ln.start; i < ln.end; i++ {
		if flex, _ := flexOf(ctx.ChildRender(children[i])); flex > 0 {
			totalFlex += flex
			continue
		}
		fixed += r.mainAxis(sizes[i])
	}
	if totalFlex > 0 && !bounded {
		r.warnUnbounded(ctx.Node().String())
		totalFlex = 0
	}
	remaining := math.Max(maxMain-fixed, 0)
	stretch := r.cfg.crossAlignment == CrossAxisAlignmentStretch

	ln.main = 0
	for i := ln.start; i < ln.end; i++ {
		pre := sizes[i]
		main, cross := r.mainAxis(pre), r.crossAxis(pre)
		minMain, maxMainChild := main, main
		changed := false
		if flex, fit := flexOf(ctx.ChildRender(children[i])); flex > 0 && totalFlex > 0 {
			allocated := remaining * float64(flex) / float64(totalFlex)
			maxMainChild = allocated
			minMain = allocated
			if fit == FlexFitLoose {
				minMain = 0
			}
			changed = true
		}
		minCross := 0.0
		if stretch && cross < ln.cross {
			minCross = ln.cross
			changed = true
		}
		if changed {
			sizes[i] = ctx.MeasureChild(children[i], r.makeConstraints(minMain, maxMainChild, minCross, ln.cross))
		}
		ln.main += r.mainAxis(sizes[i])
	}
}

func (r *renderFlex) warnUnbounded(node string) {
	if r.unboundedFlexWarned {
		return
	}
	r.unboundedFlexWarned = true
	errors.Report(&errors.EngineError{
		Op:   "widgets.Flex",
		Kind: errors.KindLayout,
		Node: node,
		Err:  fmt.Errorf("flex children in unbounded %s axis keep their intrinsic size", r.cfg.direction),
	})
}

func (r *renderFlex) Arrange(ctx *layout.ArrangeContext, size graphics.Size) {
	children := r.ordered(ctx.Children())
	sizes := make([]graphics.Size, len(children))
	for i, id := range children {
		sizes[i] = ctx.ChildSize(id)
	}
	mainSize, crossSize := r.mainAxis(size), r.crossAxis(size)
	lines := r.breakLines(sizes, mainSize)

	crossCursor := 0.0
	if r.cfg.wrap {
		total := 0.0
		for _, ln := range lines {
			total += ln.cross
		}
		crossCursor = r.crossOffset(crossSize, total)
	} else if len(lines) == 1 {
		lines[0].cross = crossSize
	}

	for _, ln := range lines {
		spacing, cursor := r.computeSpacing(math.Max(0, mainSize-ln.main), ln.end-ln.start)
		for i := ln.start; i < ln.end; i++ {
			cross := crossCursor + r.crossOffset(ln.cross, r.crossAxis(sizes[i]))
			ctx.Place(children[i], r.makeOffset(cursor, cross))
			cursor += r.mainAxis(sizes[i]) + spacing
		}
		crossCursor += ln.cross
	}
}

func (r *renderFlex) crossOffset(extent, child float64) float64 {
	freeSpace := extent - child
	if freeSpace <= 0 {
		return 0
	}
	switch r.cfg.crossAlignment {
	case CrossAxisAlignmentEnd:
		return freeSpace
	case CrossAxisAlignmentCenter:
		return freeSpace * 0.5
	default:
		return 0
	}
}

func (r *renderFlex) computeSpacing(freeSpace float64, n int) (spacing, offset float64) {
	switch r.cfg.alignment {
	case MainAxisAlignmentEnd:
		offset = freeSpace
	case MainAxisAlignmentCenter:
		offset = freeSpace * 0.5
	case MainAxisAlignmentSpaceBetween:
		if n > 1 {
			spacing = freeSpace / float64(n-1)
		}
	case MainAxisAlignmentSpaceAround:
		if n > 0 {
			spacing = freeSpace / float64(n)
			offset = spacing * 0.5
		}
	case MainAxisAlignmentSpaceEvenly:
		if n > 0 {
			spacing = freeSpace / float64(n+1)
			offset = spacing
		}
	}
	return
}
