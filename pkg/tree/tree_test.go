package tree

import (
	"testing"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/graphics"
)

func buildTree(t *testing.T) (*Tree, arena.ID, arena.ID, arena.ID) {
	t.Helper()
	tr := New()
	root := tr.Insert(arena.ID{}, &Node{TypeName: "root"})
	if err := tr.SetRoot(root); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	a := tr.Insert(root, &Node{TypeName: "a"})
	b := tr.Insert(a, &Node{TypeName: "b"})
	return tr, root, a, b
}

func TestInsertSetsDepthAndChildren(t *testing.T) {
	tr, root, a, b := buildTree(t)
	if got := tr.Node(b).Depth; got != 2 {
		t.Errorf("depth of b = %d, want 2", got)
	}
	if kids := tr.Node(root).Children; len(kids) != 1 || kids[0] != a {
		t.Errorf("root children = %v, want [%s]", kids, a)
	}
	if tr.Len() != 3 {
		t.Errorf("Len = %d, want 3", tr.Len())
	}
}

func TestSingleRoot(t *testing.T) {
	tr, _, _, _ := buildTree(t)
	other := tr.Insert(arena.ID{}, &Node{TypeName: "other"})
	if err := tr.SetRoot(other); err == nil {
		t.Error("expected error when a second root is set")
	}
}

func TestMarkPaintPropagatesToAncestors(t *testing.T) {
	tr, root, a, b := buildTree(t)
	tr.Mark(b, NeedsPaint)
	if !tr.Node(b).Flags.Has(NeedsPaint) {
		t.Error("b should need paint")
	}
	for _, id := range []arena.ID{root, a} {
		if !tr.Node(id).Flags.Has(ChildNeedsPaint) {
			t.Errorf("%s should carry ChildNeedsPaint", tr.Node(id))
		}
		if tr.Node(id).Flags.Has(NeedsPaint) {
			t.Errorf("%s should not need paint itself", tr.Node(id))
		}
	}
}

func TestMarkRebuildTracksLifecycle(t *testing.T) {
	tr, _, a, b := buildTree(t)
	for _, id := range []arena.ID{a, b} {
		tr.Node(id).State = Mounted
	}
	tr.Mark(b, NeedsRebuild)
	tr.Mark(a, NeedsRebuild)
	if got := tr.Node(b).State; got != Dirty {
		t.Errorf("state = %s, want dirty", got)
	}
	dirty := tr.Dirty(NeedsRebuild)
	if len(dirty) != 2 || dirty[0] != a || dirty[1] != b {
		t.Errorf("Dirty = %v, want [%s %s] (shallowest first)", dirty, a, b)
	}
	tr.Clear(b, NeedsRebuild)
	if got := tr.Node(b).State; got != Mounted {
		t.Errorf("state after clear = %s, want mounted", got)
	}
	if len(tr.Dirty(NeedsRebuild)) != 1 {
		t.Error("expected one pending node after clear")
	}
}

func TestRemoveDetachesAndInvalidates(t *testing.T) {
	tr, _, a, b := buildTree(t)
	tr.Mark(b, NeedsLayout)
	if !tr.Remove(b) {
		t.Fatal("Remove returned false")
	}
	if tr.Contains(b) {
		t.Error("removed node still live")
	}
	if len(tr.Node(a).Children) != 0 {
		t.Error("parent still lists removed child")
	}
	if len(tr.Dirty(NeedsLayout)) != 0 {
		t.Error("removed node still in layout set")
	}
	c := tr.Insert(a, &Node{TypeName: "c"})
	if c == b {
		t.Error("stale ID reused for new node")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		from, to Lifecycle
		ok       bool
	}{
		{Unmounted, Building, true},
		{Building, Mounted, true},
		{Mounted, Dirty, true},
		{Dirty, Mounted, true},
		{Mounted, Unmounting, true},
		{Unmounting, Disposed, true},
		{Disposed, Mounted, false},
		{Unmounted, Mounted, false},
		{Unmounting, Mounted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestGlobalTransformAndPreorder(t *testing.T) {
	tr, root, a, b := buildTree(t)
	tr.Node(a).Geometry.Offset = graphics.Offset{X: 10, Y: 5}
	tr.Node(b).Geometry.Offset = graphics.Offset{X: 1, Y: 2}
	tr.Node(b).Geometry.Size = graphics.Size{Width: 4, Height: 4}

	if got := tr.AbsoluteOffset(b); got != (graphics.Offset{X: 11, Y: 7}) {
		t.Errorf("AbsoluteOffset = %+v, want {11 7}", got)
	}
	if got := tr.AbsoluteBounds(b); got != graphics.RectFromLTWH(11, 7, 4, 4) {
		t.Errorf("AbsoluteBounds = %+v", got)
	}
	order := tr.Preorder(root)
	if len(order) != 3 || order[0].ID != root || order[2].ID != b {
		t.Errorf("unexpected preorder %v", order)
	}
	if anc := tr.Ancestors(b); len(anc) != 2 || anc[0] != a || anc[1] != root {
		t.Errorf("Ancestors = %v", anc)
	}
}
