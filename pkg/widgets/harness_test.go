package widgets

import (
	"testing"

	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/paint"
	"github.com/go-drift/lattice/pkg/tree"
)

// inlineExecutor runs spawned work on the calling goroutine so task
// results are queued before Spawn returns.
type inlineExecutor struct{}

func (inlineExecutor) TrySubmit(work func()) error {
	work()
	return nil
}

// harness drives the build, layout and paint passes for one viewport.
type harness struct {
	t        *testing.T
	tree     *tree.Tree
	owner    *core.BuildOwner
	layout   *layout.Pipeline
	paint    *paint.Pipeline
	viewport graphics.Size
	last     *paint.Frame
}

func newHarness(t *testing.T, width, height float64) *harness {
	t.Helper()
	cfg := config.Default()
	tr := tree.New()
	size := graphics.Size{Width: width, Height: height}
	return &harness{
		t:        t,
		tree:     tr,
		owner:    core.NewBuildOwner(tr, core.OptionsFromConfig(cfg, inlineExecutor{})),
		layout:   layout.NewPipeline(cfg.Layout),
		paint:    paint.NewPipeline(size),
		viewport: size,
	}
}

// pump mounts root (or updates the mounted root with it) and produces a
// frame.
func (h *harness) pump(root core.Widget) *paint.Frame {
	h.t.Helper()
	if _, err := h.owner.MountRoot(root); err != nil {
		h.t.Fatalf("MountRoot: %v", err)
	}
	return h.frame()
}

// frame applies pending writes and task results, then rebuilds, lays out
// and paints the dirty parts of the tree.
func (h *harness) frame() *paint.Frame {
	h.t.Helper()
	h.owner.DrainWrites()
	h.owner.DrainResults()
	if err := h.owner.FlushBuild(); err != nil {
		h.t.Fatalf("FlushBuild: %v", err)
	}
	h.layout.Run(h.tree, layout.Tight(h.viewport))
	h.last = h.paint.Paint(h.tree)
	return h.last
}

// node returns the node built from the widget with the given key.
func (h *harness) node(key any) *tree.Node {
	h.t.Helper()
	root := h.tree.Root()
	if root.IsZero() {
		h.t.Fatalf("no root mounted")
	}
	for _, n := range h.tree.Preorder(root) {
		if n.Key == key {
			return n
		}
	}
	h.t.Fatalf("no node with key %v", key)
	return nil
}

// rect returns the root-space bounds of the node with the given key.
func (h *harness) rect(key any) graphics.Rect {
	h.t.Helper()
	return h.tree.AbsoluteBounds(h.node(key).ID)
}

// pointer hit tests pos and routes ev to the handlers under it, deepest
// first, until one consumes it.
func (h *harness) pointer(phase layout.PointerPhase, pos graphics.Offset) bool {
	h.t.Helper()
	for _, e := range layout.HitTest(h.tree, pos).Entries {
		n := h.tree.Node(e.Node)
		handler, ok := n.Render.(layout.PointerHandler)
		if !ok {
			continue
		}
		if handler.HandlePointer(layout.PointerEvent{Phase: phase, Position: pos, Local: e.Local}) {
			return true
		}
	}
	return false
}

func ltwh(l, t, w, h float64) graphics.Rect {
	return graphics.RectFromLTWH(l, t, w, h)
}
