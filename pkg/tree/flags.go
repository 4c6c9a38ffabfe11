package tree

import (
	"fmt"
	"strings"
)

// DirtyFlags records which passes must revisit a node.
type DirtyFlags uint8

const (
	// NeedsRebuild schedules the node's build to run again.
	NeedsRebuild DirtyFlags = 1 << iota
	// NeedsLayout schedules the node for re-measurement.
	NeedsLayout
	// NeedsPaint schedules the node's own draw commands to be re-recorded.
	NeedsPaint
	// ChildNeedsPaint marks ancestors of a NeedsPaint node so the paint
	// pass can find dirty descendants without visiting clean subtrees.
	ChildNeedsPaint
)

// Has reports whether all bits in other are set.
func (f DirtyFlags) Has(other DirtyFlags) bool {
	return f&other == other
}

func (f DirtyFlags) String() string {
	if f == 0 {
		return "clean"
	}
	var parts []string
	names := []struct {
		flag DirtyFlags
		name string
	}{
		{NeedsRebuild, "rebuild"},
		{NeedsLayout, "layout"},
		{NeedsPaint, "paint"},
		{ChildNeedsPaint, "child-paint"},
	}
	for _, n := range names {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Lifecycle is the mount state of a node.
type Lifecycle uint8

const (
	Unmounted Lifecycle = iota
	Building
	Mounted
	Dirty
	Unmounting
	Disposed
)

func (l Lifecycle) String() string {
	switch l {
	case Unmounted:
		return "unmounted"
	case Building:
		return "building"
	case Mounted:
		return "mounted"
	case Dirty:
		return "dirty"
	case Unmounting:
		return "unmounting"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("Lifecycle(%d)", int(l))
	}
}

// CanTransition reports whether a node may move from l to next.
func (l Lifecycle) CanTransition(next Lifecycle) bool {
	switch l {
	case Unmounted:
		return next == Building || next == Disposed
	case Building:
		return next == Mounted || next == Unmounting
	case Mounted:
		return next == Dirty || next == Building || next == Unmounting
	case Dirty:
		return next == Mounted || next == Building || next == Unmounting
	case Unmounting:
		return next == Disposed
	default:
		return false
	}
}

// Capability is the set of pipeline roles a node's render object plays.
type Capability uint8

const (
	CapMeasure Capability = 1 << iota
	CapArrange
	CapPaint
	CapLayer
	CapClip
	CapEvents
)

// Has reports whether all bits in other are set.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Capable is implemented by render objects to declare their capabilities.
type Capable interface {
	Capabilities() Capability
}

// CapabilitiesOf returns the capabilities declared by render, or zero.
func CapabilitiesOf(render any) Capability {
	if c, ok := render.(Capable); ok {
		return c.Capabilities()
	}
	return 0
}
