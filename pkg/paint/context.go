package paint

import (
	"image"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
)

// Painter is implemented by render objects that draw content.
type Painter interface {
	Paint(ctx *Context)
}

// Clipper is implemented by render objects that clip their children.
// The returned rect is in the node's local coordinates.
type Clipper interface {
	ClipRect(size graphics.Size) graphics.Rect
}

// Effect describes a layer requested by a render object.
type Effect struct {
	Opacity float64
	Blur    float64
}

// Layered is implemented by render objects that composite their subtree
// through an offscreen layer. An effect with opacity 1 and no blur paints
// directly without a layer.
type Layered interface {
	LayerEffect() Effect
}

// Context records the draw commands of one node. Coordinates are local to
// the node, with the origin at its top-left corner.
type Context struct {
	node      arena.ID
	size      graphics.Size
	transform graphics.Matrix
	cmds      []DrawCommand
	layers    int
	versions  func() uint64
}

// Node returns the ID of the node being painted.
func (c *Context) Node() arena.ID {
	return c.node
}

// Size returns the node's arranged size.
func (c *Context) Size() graphics.Size {
	return c.size
}

// Bounds returns the node's local bounds.
func (c *Context) Bounds() graphics.Rect {
	return graphics.RectFromOffsetSize(graphics.Offset{}, c.size)
}

// FillRect fills r with a solid color.
func (c *Context) FillRect(r graphics.Rect, color graphics.Color) {
	c.DrawPath(graphics.RectPath(r), graphics.FillPaint(color))
}

// FillPath fills path with a solid color using the path's fill rule.
func (c *Context) FillPath(path *graphics.Path, color graphics.Color) {
	c.DrawPath(path, graphics.FillPaint(color))
}

// StrokePath strokes the outline of path.
func (c *Context) StrokePath(path *graphics.Path, color graphics.Color, style graphics.StrokeStyle) {
	c.DrawPath(path, graphics.Paint{Color: color, Style: graphics.PaintStroke, Stroke: style})
}

// DrawPath draws path with paint.
func (c *Context) DrawPath(path *graphics.Path, paint graphics.Paint) {
	if path.IsEmpty() || paint.Color.A() == 0 {
		return
	}
	c.cmds = append(c.cmds, DrawCommand{
		Kind:      KindFillPath,
		Transform: c.transform,
		Path:      path,
		Paint:     paint,
	})
}

// DrawImage draws img scaled into dst. The image is keyed by a hash of its
// pixels.
func (c *Context) DrawImage(img image.Image, dst graphics.Rect, priority int) {
	if img == nil {
		return
	}
	c.DrawImageKey(graphics.HashPixels(img), img, dst, priority)
}

// DrawImageKey draws img scaled into dst using a caller-supplied content
// key, for images identified by a resource loader.
func (c *Context) DrawImageKey(key uint64, img image.Image, dst graphics.Rect, priority int) {
	if img == nil || dst.IsEmpty() {
		return
	}
	c.cmds = append(c.cmds, DrawCommand{
		Kind:      KindImage,
		Transform: c.transform,
		Image:     img,
		ImageKey:  key,
		Dst:       dst,
		Priority:  priority,
	})
}

// ClipRect clips the commands recorded by draw to r.
func (c *Context) ClipRect(r graphics.Rect, draw func()) {
	c.cmds = append(c.cmds, DrawCommand{Kind: KindPushClip, Transform: c.transform, Clip: c.transform.TransformRect(r)})
	draw()
	c.cmds = append(c.cmds, DrawCommand{Kind: KindPopClip})
}

// Transform applies m to the commands recorded by draw.
func (c *Context) Transform(m graphics.Matrix, draw func()) {
	saved := c.transform
	c.transform = saved.Multiply(m)
	draw()
	c.transform = saved
}

// Layer composites the commands recorded by draw through an offscreen
// layer with the given opacity.
func (c *Context) Layer(opacity float64, draw func()) {
	c.layers++
	c.cmds = append(c.cmds, DrawCommand{
		Kind: KindPushLayer,
		Layer: Layer{
			ID:      LayerID{Node: c.node, Sub: c.layers},
			Opacity: opacity,
			Bounds:  c.transform.TransformRect(c.Bounds()),
			Version: c.versions(),
		},
	})
	draw()
	c.cmds = append(c.cmds, DrawCommand{Kind: KindPopLayer})
}
