package layout

import (
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/tree"
)

// MeasureContext is passed to Measurer.Measure.
type MeasureContext struct {
	p    *Pipeline
	node *tree.Node
}

// Node returns the node being measured.
func (m *MeasureContext) Node() *tree.Node {
	return m.node
}

// Children returns the node's children in order.
func (m *MeasureContext) Children() []arena.ID {
	return m.node.Children
}

// Geometry returns the node's geometry from its last arrange. Nodes whose
// size depends on their own placement read it here.
func (m *MeasureContext) Geometry() tree.Geometry {
	return m.node.Geometry
}

// ChildRender returns the render object of child.
func (m *MeasureContext) ChildRender(child arena.ID) any {
	if n := m.p.tree.Node(child); n != nil {
		return n.Render
	}
	return nil
}

// MeasureChild returns the desired size of child under c.
func (m *MeasureContext) MeasureChild(child arena.ID, c Constraints) graphics.Size {
	n := m.p.tree.Node(child)
	if n == nil {
		return graphics.Size{}
	}
	return m.p.measure(n, c, false)
}

// ArrangeContext is passed to Arranger.Arrange.
type ArrangeContext struct {
	p      *Pipeline
	node   *tree.Node
	placed map[arena.ID]bool
}

// Node returns the node being arranged.
func (a *ArrangeContext) Node() *tree.Node {
	return a.node
}

// Children returns the node's children in order.
func (a *ArrangeContext) Children() []arena.ID {
	return a.node.Children
}

// ChildRender returns the render object of child.
func (a *ArrangeContext) ChildRender(child arena.ID) any {
	if n := a.p.tree.Node(child); n != nil {
		return n.Render
	}
	return nil
}

// ChildSize returns the size child reported during measure.
func (a *ArrangeContext) ChildSize(child arena.ID) graphics.Size {
	s, _ := a.p.DesiredSize(child)
	return s
}

// Place positions child at offset with its desired size.
func (a *ArrangeContext) Place(child arena.ID, offset graphics.Offset) {
	a.PlaceRect(child, graphics.RectFromOffsetSize(offset, a.ChildSize(child)))
}

// PlaceRect positions child at r.Origin and gives it r.Size as its final
// size.
func (a *ArrangeContext) PlaceRect(child arena.ID, r graphics.Rect) {
	a.placed[child] = true
	a.p.place(child, r.Origin(), r.Size())
}

// RequestRemeasure asks for the node to be measured again after this pass
// because its size depends on the geometry it was just given. The request
// is honored a bounded number of times per frame.
func (a *ArrangeContext) RequestRemeasure() {
	a.p.feedback = append(a.p.feedback, a.node.ID)
}
