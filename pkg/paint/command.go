// Package paint records draw commands for the node tree and composes them
// into one ordered frame list, reusing the commands of clean subtrees.
package paint

import (
	"fmt"
	"image"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
)

// CommandKind identifies a draw command.
type CommandKind uint8

const (
	// KindFillPath fills or strokes Path with Paint.
	KindFillPath CommandKind = iota
	// KindImage draws Image scaled into Dst.
	KindImage
	// KindPushClip intersects the clip with Clip until the matching PopClip.
	KindPushClip
	// KindPopClip restores the clip that was active before the matching push.
	KindPopClip
	// KindPushLayer starts an offscreen layer described by Layer.
	KindPushLayer
	// KindPopLayer composites the current layer into its parent.
	KindPopLayer
)

func (k CommandKind) String() string {
	switch k {
	case KindFillPath:
		return "fill_path"
	case KindImage:
		return "image"
	case KindPushClip:
		return "push_clip"
	case KindPopClip:
		return "pop_clip"
	case KindPushLayer:
		return "push_layer"
	case KindPopLayer:
		return "pop_layer"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// LayerID identifies a compositing layer across frames. Sub is zero for
// the layer a node requests through its render object and counts layers
// opened from the node's own paint code.
type LayerID struct {
	Node arena.ID
	Sub  int
}

func (id LayerID) String() string {
	return fmt.Sprintf("%s/%d", id.Node, id.Sub)
}

// Layer describes an offscreen compositing layer.
type Layer struct {
	ID      LayerID
	Opacity float64
	Blur    float64
	// Bounds is the layer's area in root coordinates.
	Bounds graphics.Rect
	// Version changes every time the layer's content is re-emitted, so a
	// cached layer texture is valid while the version matches.
	Version uint64
}

// DrawCommand is one entry of a frame's command list.
//
// Path and Dst are in the emitting node's local coordinates and Transform
// maps them to root coordinates. Clip is the root-space clip rect in effect
// for draw commands and the new clip for KindPushClip.
type DrawCommand struct {
	Kind CommandKind
	// Z is the command's position in the frame's command list. Commands are
	// emitted during the preorder walk, so Z increases with the emitting
	// node's preorder index and a node's commands keep their relative order.
	// Reused subtree commands are rebased to their new position.
	Z         int
	Node      arena.ID
	Transform graphics.Matrix
	Path      *graphics.Path
	Paint     graphics.Paint
	Image     image.Image
	ImageKey  uint64
	Dst       graphics.Rect
	Clip      graphics.Rect
	Layer     Layer
	// Priority orders image content when atlas space runs out; the lowest
	// priority is skipped first.
	Priority int
}

func (c DrawCommand) String() string {
	switch c.Kind {
	case KindFillPath:
		return fmt.Sprintf("%d %s node=%s paint=%v", c.Z, c.Kind, c.Node, c.Paint.Style)
	case KindImage:
		return fmt.Sprintf("%d %s node=%s key=%x dst=%v", c.Z, c.Kind, c.Node, c.ImageKey, c.Dst)
	case KindPushLayer:
		return fmt.Sprintf("%d %s %s v%d", c.Z, c.Kind, c.Layer.ID, c.Layer.Version)
	default:
		return fmt.Sprintf("%d %s", c.Z, c.Kind)
	}
}

// Stats counts node-level work done by one Paint.
type Stats struct {
	// Painted is the number of nodes whose own commands were re-recorded.
	Painted int
	// Reused is the number of nodes whose commands came from cache.
	Reused int
	// Culled is the number of subtrees skipped because they lie outside
	// the clip.
	Culled int
}

// Frame is the composed output of one paint pass.
type Frame struct {
	Commands []DrawCommand
	Stats    Stats
	Viewport graphics.Rect
}
