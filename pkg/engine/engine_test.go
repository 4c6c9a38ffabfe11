package engine

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/lattice/pkg/animation"
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/focus"
	"github.com/go-drift/lattice/pkg/gpu/soft"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/tree"
	"github.com/go-drift/lattice/pkg/widgets"
)

// inlineExecutor runs spawned work on the calling goroutine.
type inlineExecutor struct{}

func (inlineExecutor) TrySubmit(work func()) error {
	work()
	return nil
}

func newEngine(t *testing.T, root core.Widget, opts ...Option) (*Engine, *soft.Device) {
	t.Helper()
	dev := soft.New(1024)
	e := New(config.Default(), dev, root, graphics.Size{Width: 100, Height: 100}, opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e, dev
}

func step(t *testing.T, e *Engine) *FrameReport {
	t.Helper()
	r, err := e.StepFrame(context.Background())
	require.NoError(t, err)
	return r
}

// counter shows its count as the width of a bar and exposes the cell.
type counter struct {
	cell   *core.StateCell[int]
	builds int
}

func (c *counter) widget() core.Widget {
	return widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
		c.cell = core.UseState(ctx, 0)
		c.builds++
		return widgets.Align{
			Alignment: layout.AlignmentTopLeft,
			Child:     widgets.SizedBox{WidgetKey: "bar", Width: float64(10 * (c.cell.Read(ctx) + 1)), Height: 10},
		}
	}}
}

func (c *counter) increment() {
	c.cell.Update(func(n int) int { return n + 1 })
}

func barWidth(e *Engine) float64 {
	var w float64
	e.Inspect(func(t *tree.Tree) {
		for _, n := range t.Preorder(t.Root()) {
			if n.Key == "bar" {
				w = n.Geometry.Size.Width
			}
		}
	})
	return w
}

func TestSequentialWritesRebuildEachFrame(t *testing.T) {
	c := &counter{}
	e, _ := newEngine(t, c.widget())
	step(t, e)
	require.Equal(t, 1, c.builds)

	for i := 1; i <= 3; i++ {
		require.NoError(t, e.Dispatch(context.Background(), c.increment))
		r := step(t, e)
		assert.Equal(t, 1, r.Build.Writes)
		assert.Equal(t, 1, r.Build.Passes)
		assert.Empty(t, r.Diagnostics)
	}
	assert.Equal(t, 3, c.cell.Peek())
	assert.Equal(t, 4, c.builds)
	assert.Equal(t, 40.0, barWidth(e))
}

func TestBatchedWritesRebuildOnce(t *testing.T) {
	c := &counter{}
	e, _ := newEngine(t, c.widget())
	step(t, e)

	for range 3 {
		require.NoError(t, e.Dispatch(context.Background(), c.increment))
	}
	r := step(t, e)
	assert.Equal(t, 3, r.Build.Writes)
	assert.Equal(t, 1, r.Build.Passes)
	assert.Equal(t, 2, c.builds)
	assert.Equal(t, 3, c.cell.Peek())
}

func TestIdleFrameDoesNoWork(t *testing.T) {
	c := &counter{}
	e, _ := newEngine(t, c.widget())
	step(t, e)
	assert.False(t, e.NeedsFrame())

	r := step(t, e)
	assert.Zero(t, r.Build.Passes)
	assert.Zero(t, r.Layout.Measured)
	assert.Zero(t, r.Paint.Painted)
}

func TestFrameRequestOnDispatch(t *testing.T) {
	requests := 0
	c := &counter{}
	e, _ := newEngine(t, c.widget(), WithFrameRequest(func() { requests++ }))
	step(t, e)
	before := requests

	require.NoError(t, e.Dispatch(context.Background(), c.increment))
	assert.Greater(t, requests, before)
	assert.True(t, e.NeedsFrame())
}

// pingPong builds two siblings that each write the cell the other reads
// once armed, so the rebuild never settles.
type pingPong struct {
	armed *core.StateCell[bool]
}

func (p *pingPong) widget() core.Widget {
	return widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
		p.armed = core.UseState(ctx, false)
		ping := core.UseState(ctx, 0)
		pong := core.UseState(ctx, 0)
		return widgets.Row{Children: []core.Widget{
			widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
				ping.Read(ctx)
				if p.armed.Read(ctx) {
					pong.Write(pong.Peek() + 1)
				}
				return widgets.SizedBox{Width: 10, Height: 10, Child: widgets.ColoredBox{Color: graphics.ColorRed}}
			}},
			widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
				pong.Read(ctx)
				if p.armed.Read(ctx) {
					ping.Write(ping.Peek() + 1)
				}
				return widgets.SizedBox{Width: 10, Height: 10}
			}},
		}}
	}}
}

func TestNonConvergentRebuildFallsBack(t *testing.T) {
	p := &pingPong{}
	e, _ := newEngine(t, p.widget())
	first := step(t, e)
	require.False(t, first.Fallback)

	require.NoError(t, e.Dispatch(context.Background(), func() { p.armed.Write(true) }))
	r := step(t, e)
	assert.True(t, r.Fallback)
	assert.Equal(t, config.Default().Scheduler.MaxRebuildIterations, r.Build.Passes)
	assert.Equal(t, first.Commands, r.Commands, "last stable frame is rendered again")
	require.NotEmpty(t, r.Diagnostics)
	assert.ErrorIs(t, r.Diagnostics[0], errors.ErrNonConvergentRebuild)
	assert.True(t, e.NeedsFrame(), "unsettled nodes stay dirty")

	require.NoError(t, e.Dispatch(context.Background(), func() { p.armed.Write(false) }))
	r = step(t, e)
	assert.False(t, r.Fallback)
}

func TestTapRoutesToDetector(t *testing.T) {
	taps := 0
	e, _ := newEngine(t, widgets.Centered(widgets.Tap(func() { taps++ }, widgets.SizedBox{Width: 40, Height: 40})))
	step(t, e)

	in := graphics.Offset{X: 50, Y: 50}
	assert.True(t, e.HandleEvent(PointerEvent{Phase: layout.PointerDown, Position: in}))
	assert.True(t, e.HandleEvent(PointerEvent{Phase: layout.PointerUp, Position: in}))
	assert.Equal(t, 1, taps)

	assert.False(t, e.HandleEvent(PointerEvent{Phase: layout.PointerDown, Position: graphics.Offset{X: 5, Y: 5}}))
	assert.False(t, e.HandleEvent(PointerEvent{Phase: layout.PointerUp, Position: graphics.Offset{X: 5, Y: 5}}))
	assert.Equal(t, 1, taps)
}

func TestPointerCapturedUntilRelease(t *testing.T) {
	var phases []layout.PointerPhase
	taps := 0
	e, _ := newEngine(t, widgets.Centered(widgets.GestureDetector{
		OnTap: func() { taps++ },
		OnPointer: func(ev layout.PointerEvent) bool {
			phases = append(phases, ev.Phase)
			return false
		},
		Child: widgets.SizedBox{Width: 40, Height: 40},
	}))
	step(t, e)

	outside := graphics.Offset{X: 95, Y: 95}
	e.HandleEvent(PointerEvent{Pointer: 1, Phase: layout.PointerDown, Position: graphics.Offset{X: 50, Y: 50}})
	e.HandleEvent(PointerEvent{Pointer: 1, Phase: layout.PointerMove, Position: outside})
	e.HandleEvent(PointerEvent{Pointer: 1, Phase: layout.PointerUp, Position: outside})
	assert.Equal(t, []layout.PointerPhase{layout.PointerDown, layout.PointerMove, layout.PointerUp}, phases)
	assert.Zero(t, taps, "released outside the detector")

	assert.False(t, e.HandleEvent(PointerEvent{Pointer: 1, Phase: layout.PointerUp, Position: outside}), "capture ends on release")
}

func keyRow(keys *[]string) core.Widget {
	listener := func(name string) core.Widget {
		return widgets.KeyListener{
			WidgetKey: name,
			OnKey: func(ev focus.KeyEvent) bool {
				*keys = append(*keys, name+":"+ev.Key)
				return ev.Key != "Tab"
			},
			Child: widgets.SizedBox{Width: 50, Height: 50},
		}
	}
	return widgets.RowOf(widgets.MainAxisAlignmentStart, widgets.CrossAxisAlignmentStart, widgets.MainAxisSizeMax,
		listener("left"), listener("right"))
}

func nodeKey(e *Engine, id arena.ID) any {
	var key any
	e.Inspect(func(t *tree.Tree) {
		if n := t.Node(id); n != nil {
			key = n.Key
		}
	})
	return key
}

func TestTabCyclesFocus(t *testing.T) {
	var keys []string
	e, _ := newEngine(t, keyRow(&keys))
	step(t, e)
	require.True(t, e.Focused().IsZero())

	assert.True(t, e.HandleEvent(Key(KeyEvent{Key: "Tab", Down: true})))
	assert.Equal(t, "left", nodeKey(e, e.Focused()))
	assert.True(t, e.HandleEvent(Key(KeyEvent{Key: "Tab", Down: true})))
	assert.Equal(t, "right", nodeKey(e, e.Focused()))
	assert.True(t, e.HandleEvent(Key(KeyEvent{Key: "Tab", Down: true, Mods: focus.ModShift})))
	assert.Equal(t, "left", nodeKey(e, e.Focused()))

	assert.True(t, e.HandleEvent(Key(KeyEvent{Key: "Enter", Down: true})))
	assert.Equal(t, "left:Enter", keys[len(keys)-1])
}

func TestPointerDownFocusesHitNode(t *testing.T) {
	var keys []string
	e, _ := newEngine(t, keyRow(&keys))
	step(t, e)

	e.HandleEvent(PointerEvent{Phase: layout.PointerDown, Position: graphics.Offset{X: 75, Y: 25}})
	e.HandleEvent(PointerEvent{Phase: layout.PointerUp, Position: graphics.Offset{X: 75, Y: 25}})
	assert.Equal(t, "right", nodeKey(e, e.Focused()))

	assert.True(t, e.HandleEvent(Key(KeyEvent{Key: "a", Down: true, Text: "a"})))
	assert.Equal(t, []string{"right:a"}, keys)
}

func TestUnmountReleasesNodeResources(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var keys []string
	e, _ := newEngine(t, widgets.StackOf(
		widgets.Image{Image: img},
		keyRow(&keys),
	))
	step(t, e)
	require.Equal(t, 1, e.Renderer().Atlas().Stats().Slots)
	require.True(t, e.HandleEvent(Key(KeyEvent{Key: "Tab", Down: true})))
	require.False(t, e.Focused().IsZero())

	e.SetRoot(widgets.ColoredBox{Color: graphics.ColorBlack})
	r := step(t, e)
	assert.Positive(t, r.Build.Unmounted)
	assert.Zero(t, e.Renderer().Atlas().Stats().Slots)
	assert.True(t, e.Focused().IsZero())
}

func TestCaptureRendersPixels(t *testing.T) {
	e, _ := newEngine(t, widgets.Centered(widgets.SizedBox{
		Width: 40, Height: 40,
		Child: widgets.ColoredBox{Color: graphics.ColorRed},
	}))
	step(t, e)

	img, err := e.Capture()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(5, 5))
}

func TestResizeRelayoutsRoot(t *testing.T) {
	e, _ := newEngine(t, widgets.ColoredBox{WidgetKey: "bar", Color: graphics.ColorRed})
	step(t, e)
	e.Resize(graphics.Size{Width: 60, Height: 30})
	assert.True(t, e.NeedsFrame())
	r := step(t, e)
	assert.Equal(t, graphics.Size{Width: 60, Height: 30}, r.Layout.Size)
	assert.Equal(t, 60.0, barWidth(e))
}

func TestDeviceLossAndReset(t *testing.T) {
	e, dev := newEngine(t, widgets.ColoredBox{Color: graphics.ColorRed})
	step(t, e)

	dev.Lose()
	e.Resize(graphics.Size{Width: 80, Height: 80})
	_, err := e.StepFrame(context.Background())
	require.ErrorIs(t, err, errors.ErrDeviceLost)

	e.ResetDevice(soft.New(1024))
	r := step(t, e)
	assert.Positive(t, r.Commands)
	img, err := e.Capture()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(40, 40))
}

func TestSpawnResultAppliedOnNextFrame(t *testing.T) {
	loaded := false
	app := widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
		done := core.UseState(ctx, false)
		core.UseEffect(ctx, func() func() {
			_ = core.Spawn(ctx, func(context.Context) (bool, error) { return true, nil }, func(v bool) {
				loaded = v
				done.Write(v)
			})
			return nil
		})
		if done.Read(ctx) {
			return widgets.ColoredBox{WidgetKey: "bar", Color: graphics.ColorRed}
		}
		return widgets.SizedBox{}
	}}
	e, _ := newEngine(t, app, WithExecutor(inlineExecutor{}))
	step(t, e)
	assert.True(t, e.NeedsFrame(), "finished task requests a frame")

	r := step(t, e)
	assert.Equal(t, 1, r.Build.Results)
	assert.True(t, loaded)
	assert.Equal(t, 100.0, barWidth(e))
}

func TestClosedEngineRejectsWork(t *testing.T) {
	c := &counter{}
	e, _ := newEngine(t, c.widget())
	step(t, e)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.StepFrame(context.Background())
	assert.ErrorIs(t, err, errors.ErrDisposed)
	assert.ErrorIs(t, e.Dispatch(context.Background(), c.increment), errors.ErrQueueClosed)
	assert.False(t, e.HandleEvent(Key(KeyEvent{Key: "Tab", Down: true})))
}

func TestFramesAreTraced(t *testing.T) {
	c := &counter{}
	e, _ := newEngine(t, c.widget())
	step(t, e)
	require.NoError(t, e.Dispatch(context.Background(), c.increment))
	step(t, e)

	tl := e.Timeline()
	require.Len(t, tl.Samples, 2)
	assert.Equal(t, uint64(1), tl.Samples[0].Frame)
	assert.Equal(t, uint64(2), tl.Samples[1].Frame)
	assert.Positive(t, tl.Samples[0].Counts.Nodes)
	assert.Positive(t, tl.Samples[1].Counts.Rebuilt)
	assert.Positive(t, tl.Samples[1].Counts.Measured)
}

func TestDispatchFromEventHandlerDoesNotWait(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.WriteQueue.Size = 1
	var e *Engine
	var errs []error
	root := widgets.Centered(widgets.Tap(func() {
		for range 2 {
			errs = append(errs, e.Dispatch(context.Background(), func() {}))
		}
	}, widgets.SizedBox{Width: 40, Height: 40}))
	e = New(cfg, soft.New(1024), root, graphics.Size{Width: 100, Height: 100})
	t.Cleanup(func() { _ = e.Close() })
	step(t, e)

	in := graphics.Offset{X: 50, Y: 50}
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.HandleEvent(PointerEvent{Phase: layout.PointerDown, Position: in})
		e.HandleEvent(PointerEvent{Phase: layout.PointerUp, Position: in})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch from a tap handler waited on a full write queue")
	}

	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], errors.ErrQueueFull)
	r := step(t, e)
	assert.Equal(t, 1, r.Build.Writes)
}

func TestAnimationWritesStateEachFrame(t *testing.T) {
	clk := animation.NewFakeClock()
	var value *core.StateCell[float64]
	builds := 0
	root := widgets.Builder{Builder: func(ctx *core.BuildContext) core.Widget {
		value = core.UseState(ctx, 0.0)
		builds++
		return widgets.Align{
			Alignment: layout.AlignmentTopLeft,
			Child:     widgets.SizedBox{WidgetKey: "bar", Width: 10 + 80*value.Read(ctx), Height: 10},
		}
	}}
	e, _ := newEngine(t, root, WithClock(clk))
	step(t, e)
	require.False(t, e.NeedsFrame())

	ctrl := animation.NewController(e.Animations(), value, 100*time.Millisecond)
	ctrl.Forward()
	assert.True(t, e.NeedsFrame())

	clk.Advance(50 * time.Millisecond)
	r := step(t, e)
	assert.Equal(t, 1, r.Ticks)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 50.0, barWidth(e))
	assert.True(t, e.NeedsFrame(), "a running animation keeps frames coming")

	clk.Advance(50 * time.Millisecond)
	step(t, e)
	assert.Equal(t, 3, builds)
	assert.Equal(t, 90.0, barWidth(e))
	assert.Equal(t, animation.Completed, ctrl.Status())
	assert.False(t, e.NeedsFrame())
}
