package widgets

import "github.com/go-drift/lattice/pkg/core"

// Builder builds its child with a callback. It gives a subtree its own
// node, so state read in Builder rebuilds only that subtree.
//
//	Builder{Builder: func(ctx *core.BuildContext) core.Widget {
//	    return ColoredBox{Color: color.Read(ctx)}
//	}}
type Builder struct {
	WidgetKey any
	Builder   func(ctx *core.BuildContext) core.Widget
}

func (b Builder) Key() any { return b.WidgetKey }

func (b Builder) Build(ctx *core.BuildContext) core.Widget {
	if b.Builder == nil {
		return nil
	}
	return b.Builder(ctx)
}
