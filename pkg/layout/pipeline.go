// Package layout implements the incremental measure/arrange pass over the
// node tree.
//
// Measure runs bottom-up: a node receives Constraints and reports its
// desired size, measuring children as it needs them. Arrange runs top-down:
// a node receives its final size and places its children. Only nodes
// flagged tree.NeedsLayout are re-measured, and a parent is re-measured
// only when a child's desired size changed.
package layout

import (
	"math"
	"slices"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/tree"
)

// Measurer is implemented by render objects that compute their own
// desired size. Render objects without it pass the constraints to their
// children and take the largest child size.
type Measurer interface {
	Measure(ctx *MeasureContext, c Constraints) graphics.Size
}

// Arranger is implemented by render objects that position their children.
// Children the Arranger does not place are put at the origin with their
// desired size.
type Arranger interface {
	Arrange(ctx *ArrangeContext, size graphics.Size)
}

// Result summarizes one Run.
type Result struct {
	// Size is the root's final size.
	Size graphics.Size
	// Measured counts Measure invocations that were not served from cache.
	Measured int
	// CacheHits counts child measurements answered from cache.
	CacheHits int
	// Arranged counts nodes whose arrange step ran.
	Arranged int
	// Passes counts measure/arrange passes, including feedback passes.
	Passes int
	// NonConverged lists nodes that still asked for re-measurement after
	// their retry budget was spent. They stay flagged for the next frame.
	NonConverged []arena.ID
	// Diagnostics holds one layout error per non-converged node.
	Diagnostics []error
}

// entry caches a node's last measurement.
type entry struct {
	constraints Constraints
	size        graphics.Size
	valid       bool
	// pass is the pass in which the node was last measured.
	pass uint64
	// arranged is the pass in which the node was last arranged.
	arranged   uint64
	remeasures int
	frame      uint64
}

// Pipeline runs layout for one tree and owns the measurement cache.
// It belongs to the UI goroutine.
type Pipeline struct {
	entries      map[arena.ID]*entry
	maxRemeasure int

	frame    uint64
	pass     uint64
	feedback []arena.ID
	result   *Result
	tree     *tree.Tree
	rootC    Constraints
	hasRootC bool
}

// NewPipeline creates a layout pipeline.
func NewPipeline(cfg config.LayoutConfig) *Pipeline {
	maxRemeasure := cfg.MaxRemeasure
	if maxRemeasure < 0 {
		maxRemeasure = 0
	}
	return &Pipeline{
		entries:      make(map[arena.ID]*entry),
		maxRemeasure: maxRemeasure,
	}
}

// Invalidate drops every cached measurement, forcing a full layout on the
// next Run.
func (p *Pipeline) Invalidate() {
	clear(p.entries)
	p.hasRootC = false
}

// DesiredSize returns the cached desired size of id.
func (p *Pipeline) DesiredSize(id arena.ID) (graphics.Size, bool) {
	e, ok := p.entries[id]
	if !ok || !e.valid {
		return graphics.Size{}, false
	}
	return e.size, true
}

// Run lays out the dirty parts of t with the root bound by rootConstraints.
// Changing rootConstraints between runs re-measures the root.
func (p *Pipeline) Run(t *tree.Tree, rootConstraints Constraints) Result {
	p.frame++
	p.tree = t
	res := Result{}
	p.result = &res
	defer func() {
		p.result = nil
		p.tree = nil
	}()

	root := t.Root()
	rootNode := t.Node(root)
	if rootNode == nil {
		return res
	}
	for id := range p.entries {
		if !t.Contains(id) {
			delete(p.entries, id)
		}
	}

	work := t.Dirty(tree.NeedsLayout)
	if !p.hasRootC || p.rootC != rootConstraints {
		work = append(work, root)
	}
	p.rootC = rootConstraints
	p.hasRootC = true

	var pending []arena.ID
	for len(work) > 0 {
		p.runPass(work)
		res.Passes++
		work = work[:0]
		seen := make(map[arena.ID]bool, len(p.feedback))
		for _, id := range p.feedback {
			e := p.entries[id]
			if e == nil || seen[id] || !t.Contains(id) {
				continue
			}
			seen[id] = true
			if e.remeasures >= p.maxRemeasure {
				pending = append(pending, id)
				res.NonConverged = append(res.NonConverged, id)
				res.Diagnostics = append(res.Diagnostics,
					errors.Diagnostic("layout.Run", errors.KindLayout, id.String(), p.frame, errors.ErrLayoutNonConvergence))
				continue
			}
			e.remeasures++
			t.Mark(id, tree.NeedsLayout)
			work = append(work, id)
		}
		p.feedback = nil
	}
	for _, id := range pending {
		t.Mark(id, tree.NeedsLayout)
	}
	res.Size = rootNode.Geometry.Size
	return res
}

// runPass re-measures the given nodes deepest first, walking up while
// sizes change, and then arranges top-down from every node whose size held.
func (p *Pipeline) runPass(dirty []arena.ID) {
	p.pass++
	t := p.tree
	root := t.Root()

	buckets := make(map[int][]arena.ID)
	queued := make(map[arena.ID]bool)
	maxDepth := 0
	enqueue := func(id arena.ID) {
		// Nodes that were never measured are laid out by their parent.
		for id != root {
			if e := p.entries[id]; e != nil && e.valid {
				break
			}
			n := t.Node(id)
			if n == nil || n.Parent.IsZero() {
				break
			}
			id = n.Parent
		}
		if queued[id] {
			return
		}
		n := t.Node(id)
		if n == nil {
			return
		}
		queued[id] = true
		buckets[n.Depth] = append(buckets[n.Depth], id)
		maxDepth = max(maxDepth, n.Depth)
	}
	for _, id := range dirty {
		enqueue(id)
	}

	var arrangeRoots []arena.ID
	for depth := maxDepth; depth >= 0; depth-- {
		ids := buckets[depth]
		slices.SortFunc(ids, func(a, b arena.ID) int { return int(a.Index()) - int(b.Index()) })
		for _, id := range ids {
			n := t.Node(id)
			if n == nil {
				continue
			}
			if id == root {
				p.measure(n, p.rootC, true)
				arrangeRoots = append(arrangeRoots, id)
				continue
			}
			e := p.entries[id]
			before := e.size
			after := p.measure(n, e.constraints, true)
			if after != before {
				enqueue(n.Parent)
				continue
			}
			arrangeRoots = append(arrangeRoots, id)
		}
	}

	t.SortByDepth(arrangeRoots)
	for _, id := range arrangeRoots {
		n := t.Node(id)
		e := p.entries[id]
		if n == nil || e == nil || e.arranged == p.pass {
			continue
		}
		size := n.Geometry.Size
		if id == root || e.arranged == 0 {
			size = e.size
		}
		p.arrange(n, n.Geometry.Offset, size)
	}
}

// measure returns the desired size of n under c, serving it from cache
// when the node is clean and the constraints match.
func (p *Pipeline) measure(n *tree.Node, c Constraints, force bool) graphics.Size {
	e := p.entries[n.ID]
	if e == nil {
		e = &entry{}
		p.entries[n.ID] = e
	}
	if e.frame != p.frame {
		e.frame = p.frame
		e.remeasures = 0
	}
	fresh := e.pass == p.pass
	if !force && e.valid && e.constraints == c && (fresh || !n.Flags.Has(tree.NeedsLayout)) {
		p.result.CacheHits++
		return e.size
	}

	var size graphics.Size
	ctx := &MeasureContext{p: p, node: n}
	if m, ok := n.Render.(Measurer); ok {
		size = m.Measure(ctx, c)
	} else {
		size = c.Smallest()
		for _, child := range n.Children {
			cs := ctx.MeasureChild(child, c)
			size.Width = math.Max(size.Width, cs.Width)
			size.Height = math.Max(size.Height, cs.Height)
		}
	}
	size = sanitize(c.Constrain(size), c, p.intrinsic(n))

	e.constraints = c
	e.size = size
	e.valid = true
	e.pass = p.pass
	p.result.Measured++
	return size
}

// sanitize replaces non-finite dimensions, which only an unbounded axis
// lets through, with the node's intrinsic size clamped to c.
func sanitize(s graphics.Size, c Constraints, intrinsic graphics.Size) graphics.Size {
	if math.IsInf(s.Width, 0) || math.IsNaN(s.Width) {
		s.Width = math.Max(c.MinWidth, math.Min(intrinsic.Width, c.MaxWidth))
	}
	if math.IsInf(s.Height, 0) || math.IsNaN(s.Height) {
		s.Height = math.Max(c.MinHeight, math.Min(intrinsic.Height, c.MaxHeight))
	}
	return s
}

// intrinsic is the largest size measured for any of n's children.
func (p *Pipeline) intrinsic(n *tree.Node) graphics.Size {
	var s graphics.Size
	for _, child := range n.Children {
		if e := p.entries[child]; e != nil && e.valid {
			s.Width = math.Max(s.Width, e.size.Width)
			s.Height = math.Max(s.Height, e.size.Height)
		}
	}
	return s
}

// arrange assigns n its final offset and size and places its children.
func (p *Pipeline) arrange(n *tree.Node, offset graphics.Offset, size graphics.Size) {
	e := p.entries[n.ID]
	if e == nil {
		// Placed without being measured: treat its size as tight.
		p.measure(n, Tight(size), false)
		e = p.entries[n.ID]
	}
	old := n.Geometry
	n.Geometry.Offset = offset
	n.Geometry.Size = size
	e.arranged = p.pass
	p.result.Arranged++

	ctx := &ArrangeContext{p: p, node: n, placed: make(map[arena.ID]bool, len(n.Children))}
	if a, ok := n.Render.(Arranger); ok {
		a.Arrange(ctx, size)
	}
	for _, child := range n.Children {
		if ctx.placed[child] {
			continue
		}
		ctx.Place(child, graphics.Offset{})
	}

	p.tree.Clear(n.ID, tree.NeedsLayout)
	if old.Size != n.Geometry.Size || old.Offset != n.Geometry.Offset {
		p.tree.Mark(n.ID, tree.NeedsPaint)
	}
}

// place positions child within its parent. The child's subtree is only
// revisited when it was measured in this pass, never arranged, or its size
// changed.
func (p *Pipeline) place(child arena.ID, offset graphics.Offset, size graphics.Size) {
	n := p.tree.Node(child)
	if n == nil {
		return
	}
	e := p.entries[child]
	if e == nil || e.arranged == 0 || e.pass == p.pass || n.Flags.Has(tree.NeedsLayout) || n.Geometry.Size != size {
		p.arrange(n, offset, size)
		return
	}
	if n.Geometry.Offset != offset {
		n.Geometry.Offset = offset
		p.tree.Mark(child, tree.NeedsPaint)
	}
}
