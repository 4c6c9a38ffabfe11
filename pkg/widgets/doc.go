// Package widgets provides the primitive widgets applications compose:
// layout (Row, Column, Flex, Stack, Padding, SizedBox, Align, Center),
// painting (ColoredBox, Shape, Image, ClipRect, Opacity, Blur), input
// (GestureDetector, KeyListener, IgnorePointer), visibility (Offstage) and
// composition helpers (Builder, AsyncImage).
//
// # Widget Construction
//
// Widgets are plain structs. The struct literal is the canonical form and
// exposes every field:
//
//	widgets.Padding{
//	    Padding: layout.EdgeInsetsAll(16),
//	    Child:   widgets.ColoredBox{Color: graphics.RGB(30, 30, 30)},
//	}
//
// Layout helpers exist for ergonomics:
//
//	col := widgets.ColumnOf(
//	    widgets.MainAxisAlignmentCenter,
//	    widgets.CrossAxisAlignmentCenter,
//	    widgets.MainAxisSizeMin,
//	    child1, child2,
//	)
//
// Also: RowOf, StackOf, VSpace, HSpace, Centered, Padded, Tap.
//
// # Render Objects
//
// Each render widget creates one render object when it mounts and updates
// it in place on rebuild. Updates only mark the node for layout or paint
// when a field that affects it actually changed, so rebuilding a subtree
// with equal widgets costs no layout or paint work.
//
// # State
//
// Stateful composition goes through hooks on the build context:
//
//	widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
//	    count := core.UseState(ctx, 0)
//	    return widgets.Tap(func() { count.Update(func(n int) int { return n + 1 }) },
//	        widgets.SizedBox{Width: float64(10 * count.Read(ctx)), Height: 10})
//	}}
package widgets
