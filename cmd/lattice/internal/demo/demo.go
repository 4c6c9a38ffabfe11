// Package demo contains the sample applications rendered by the lattice CLI.
package demo

import (
	"fmt"
	"sort"

	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/widgets"
)

// Keys of nodes the CLI and tests look up.
const (
	ButtonKey = "counter.button"
	BarKey    = "counter.bar"
)

var apps = map[string]func() core.Widget{
	"counter": Counter,
	"gallery": Gallery,
}

// Names returns the registered app names in sorted order.
func Names() []string {
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a fresh root widget for the named app.
func Lookup(name string) (core.Widget, error) {
	build, ok := apps[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (available: %v)", name, Names())
	}
	return build(), nil
}

// Counter is a tappable button above a bar that grows by one step per tap.
func Counter() core.Widget {
	return widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
		count := core.UseState(ctx, 0)
		n := count.Read(ctx)
		return widgets.Padding{
			Padding: layout.EdgeInsetsAll(8),
			Child: widgets.ColumnOf(
				widgets.MainAxisAlignmentStart,
				widgets.CrossAxisAlignmentStart,
				widgets.MainAxisSizeMax,
				widgets.Tap(func() {
					count.Update(func(v int) int { return v + 1 })
				}, widgets.ColoredBox{
					WidgetKey: ButtonKey,
					Color:     graphics.RGB(0x33, 0x66, 0xCC),
					Child:     widgets.SizedBox{Width: 48, Height: 24},
				}),
				widgets.VSpace(8),
				widgets.ColoredBox{
					WidgetKey: BarKey,
					Color:     graphics.RGB(0x2E, 0xA0, 0x43),
					Child:     widgets.SizedBox{Width: BarWidth(n), Height: 12},
				},
			),
		}
	}}
}

// BarWidth is the width of the counter bar after n taps.
func BarWidth(n int) float64 {
	return float64(8 * (n + 1))
}

// Gallery exercises every paint primitive: shapes, opacity, blur and clipping.
func Gallery() core.Widget {
	return widgets.ColoredBox{
		Color: graphics.ColorWhite,
		Child: widgets.Padding{
			Padding: layout.EdgeInsetsSymmetric(8, 8),
			Child: widgets.ColumnOf(
				widgets.MainAxisAlignmentStart,
				widgets.CrossAxisAlignmentStart,
				widgets.MainAxisSizeMax,
				widgets.RowOf(
					widgets.MainAxisAlignmentStart,
					widgets.CrossAxisAlignmentStart,
					widgets.MainAxisSizeMax,
					circle(graphics.ColorRed),
					widgets.HSpace(8),
					widgets.Opacity{Opacity: 0.5, Child: circle(graphics.ColorBlue)},
					widgets.HSpace(8),
					widgets.Blur{Radius: 3, Opacity: 1, Child: circle(graphics.ColorGreen)},
				),
				widgets.VSpace(8),
				widgets.ClipRect{Child: widgets.SizedBox{
					Width:  40,
					Height: 20,
					Child: widgets.Shape{
						Path:   graphics.RoundRectPath(graphics.RectFromLTWH(0, 0, 60, 40), 8),
						Paint:  graphics.FillPaint(graphics.RGB(0xF5, 0xA6, 0x23)),
						Width:  60,
						Height: 40,
					},
				}},
				widgets.VSpace(8),
				widgets.Expanded{Flex: 1, Child: widgets.Stack{Fit: widgets.StackFitExpand, Children: []core.Widget{
					widgets.ColoredBox{Color: graphics.RGB(0xEE, 0xEE, 0xEE)},
					widgets.Align{
						Alignment: layout.AlignmentCenter,
						Child: widgets.Shape{
							Path:   graphics.RectPath(graphics.RectFromLTWH(0, 0, 24, 24)),
							Paint:  graphics.StrokePaint(graphics.ColorBlack, 2),
							Width:  24,
							Height: 24,
						},
					},
				}}},
			),
		},
	}
}

func circle(c graphics.Color) core.Widget {
	return widgets.Shape{
		Path:   graphics.CirclePath(graphics.Offset{X: 12, Y: 12}, 12),
		Paint:  graphics.FillPaint(c),
		Width:  24,
		Height: 24,
	}
}
