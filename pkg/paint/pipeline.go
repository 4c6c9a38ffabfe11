package paint

import (
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/tree"
)

// record is the paint cache of one node.
type record struct {
	// local holds the node's own commands in local coordinates.
	local    []DrawCommand
	recorded bool
	// subtree holds the commands emitted for the node's whole subtree in
	// the frame they were composed, with Z relative to zBase.
	subtree   []DrawCommand
	composed  bool
	zBase     int
	transform graphics.Matrix
	clip      graphics.Rect
	nodes     int
	version   uint64
}

// Pipeline composes the tree's draw commands each frame. It belongs to the
// UI goroutine.
type Pipeline struct {
	records  map[arena.ID]*record
	viewport graphics.Rect
	version  uint64

	tree  *tree.Tree
	out   []DrawCommand
	stats Stats
}

// NewPipeline creates a paint pipeline for a surface of the given size.
func NewPipeline(size graphics.Size) *Pipeline {
	return &Pipeline{
		records:  make(map[arena.ID]*record),
		viewport: graphics.RectFromOffsetSize(graphics.Offset{}, size),
	}
}

// SetViewport changes the surface size. Subtrees are re-emitted when their
// clip changes as a result.
func (p *Pipeline) SetViewport(size graphics.Size) {
	p.viewport = graphics.RectFromOffsetSize(graphics.Offset{}, size)
}

// Invalidate drops every cached command list.
func (p *Pipeline) Invalidate() {
	clear(p.records)
}

// Paint walks t in preorder and returns the frame's commands. Nodes are
// re-recorded when flagged tree.NeedsPaint or when an ancestor layer was
// invalidated; clean subtrees at an unchanged transform and clip reuse
// last frame's commands. Paint clears the paint flags of every visited
// node.
func (p *Pipeline) Paint(t *tree.Tree) *Frame {
	p.tree = t
	p.out = nil
	p.stats = Stats{}
	defer func() { p.tree = nil }()

	for id := range p.records {
		if !t.Contains(id) {
			delete(p.records, id)
		}
	}
	if root := t.Node(t.Root()); root != nil {
		p.visit(root, graphics.Identity, p.viewport, false)
	}
	return &Frame{Commands: p.out, Stats: p.stats, Viewport: p.viewport}
}

func (p *Pipeline) nextVersion() uint64 {
	p.version++
	return p.version
}

// visit emits n's subtree and returns the number of nodes it covered.
func (p *Pipeline) visit(n *tree.Node, parent graphics.Matrix, clip graphics.Rect, force bool) int {
	global := parent.Multiply(n.Geometry.LocalTransform())
	rec := p.records[n.ID]
	dirty := force || n.Flags&(tree.NeedsPaint|tree.ChildNeedsPaint) != 0

	if !dirty && rec != nil && rec.composed && rec.transform == global && rec.clip == clip {
		start := len(p.out)
		p.out = append(p.out, rec.subtree...)
		if delta := start - rec.zBase; delta != 0 {
			for i := start; i < len(p.out); i++ {
				p.out[i].Z += delta
			}
		}
		p.stats.Reused += rec.nodes
		return rec.nodes
	}

	bounds := global.TransformRect(n.Geometry.Bounds())
	clipper, clips := n.Render.(Clipper)
	effect := Effect{Opacity: 1}
	layered, hasLayer := n.Render.(Layered)
	if hasLayer {
		effect = layered.LayerEffect()
		hasLayer = effect.Opacity < 1 || effect.Blur > 0
	}
	if ((clips || len(n.Children) == 0) && !bounds.Overlaps(clip)) || (hasLayer && effect.Opacity <= 0) {
		p.cull(n)
		return 0
	}

	if rec == nil {
		rec = &record{}
		p.records[n.ID] = rec
	}
	repaint := force || n.Flags.Has(tree.NeedsPaint) || !rec.recorded
	if repaint {
		rec.local = nil
		if painter, ok := n.Render.(Painter); ok {
			ctx := &Context{node: n.ID, size: n.Geometry.Size, transform: graphics.Identity, versions: p.nextVersion}
			painter.Paint(ctx)
			rec.local = ctx.cmds
		}
		rec.recorded = true
		p.stats.Painted++
	}
	// An invalidated layer re-emits everything it contains.
	forceChildren := force || (hasLayer && n.Flags.Has(tree.NeedsPaint))

	start := len(p.out)
	if hasLayer {
		rec.version = p.nextVersion()
		p.emit(DrawCommand{
			Kind: KindPushLayer,
			Node: n.ID,
			Layer: Layer{
				ID:      LayerID{Node: n.ID},
				Opacity: effect.Opacity,
				Blur:    effect.Blur,
				Bounds:  bounds,
				Version: rec.version,
			},
			Clip: clip,
		})
	}
	p.emitLocal(n.ID, rec.local, global, clip)

	childClip := clip
	if clips {
		childClip = clip.Intersect(global.TransformRect(clipper.ClipRect(n.Geometry.Size)))
		p.emit(DrawCommand{Kind: KindPushClip, Node: n.ID, Transform: global, Clip: childClip})
	}
	nodes := 1
	for _, child := range n.Children {
		if c := p.tree.Node(child); c != nil {
			nodes += p.visit(c, global, childClip, forceChildren)
		}
	}
	if clips {
		p.emit(DrawCommand{Kind: KindPopClip, Node: n.ID, Clip: clip})
	}
	if hasLayer {
		p.emit(DrawCommand{Kind: KindPopLayer, Node: n.ID, Clip: clip})
	}

	rec.subtree = append(rec.subtree[:0], p.out[start:]...)
	rec.composed = true
	rec.zBase = start
	rec.transform = global
	rec.clip = clip
	rec.nodes = nodes
	p.tree.Clear(n.ID, tree.NeedsPaint|tree.ChildNeedsPaint)
	return nodes
}

// emitLocal appends a node's recorded commands mapped to root space.
func (p *Pipeline) emitLocal(id arena.ID, local []DrawCommand, global graphics.Matrix, clip graphics.Rect) {
	clips := []graphics.Rect{clip}
	for _, c := range local {
		c.Node = id
		c.Transform = global.Multiply(c.Transform)
		top := clips[len(clips)-1]
		switch c.Kind {
		case KindPushClip:
			c.Clip = top.Intersect(global.TransformRect(c.Clip))
			clips = append(clips, c.Clip)
		case KindPopClip:
			if len(clips) > 1 {
				clips = clips[:len(clips)-1]
			}
			c.Clip = clips[len(clips)-1]
		case KindPushLayer:
			c.Layer.Bounds = global.TransformRect(c.Layer.Bounds)
			c.Clip = top
		default:
			c.Clip = top
		}
		p.emit(c)
	}
}

func (p *Pipeline) emit(c DrawCommand) {
	c.Z = len(p.out)
	p.out = append(p.out, c)
}

// cull skips a subtree that cannot contribute pixels. Its cache is dropped
// so it is recorded fresh once it becomes visible.
func (p *Pipeline) cull(n *tree.Node) {
	p.stats.Culled++
	p.tree.Walk(n.ID, func(d *tree.Node) bool {
		delete(p.records, d.ID)
		p.tree.Clear(d.ID, tree.NeedsPaint|tree.ChildNeedsPaint)
		return true
	})
}
