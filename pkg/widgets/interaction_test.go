package widgets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/focus"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/paint"
)

func TestTapFiresOnRelease(t *testing.T) {
	taps := 0
	h := newHarness(t, 100, 100)
	h.pump(Centered(Tap(func() { taps++ }, SizedBox{Width: 40, Height: 40})))

	center := graphics.Offset{X: 50, Y: 50}
	require.True(t, h.pointer(layout.PointerDown, center))
	assert.Equal(t, 0, taps, "tap must wait for release")
	require.True(t, h.pointer(layout.PointerUp, center))
	assert.Equal(t, 1, taps)

	assert.False(t, h.pointer(layout.PointerDown, graphics.Offset{X: 5, Y: 5}), "outside the detector")
	assert.Equal(t, 1, taps)
}

func TestTapCancelledByPointerCancel(t *testing.T) {
	taps := 0
	h := newHarness(t, 100, 100)
	h.pump(Tap(func() { taps++ }, ColoredBox{Color: graphics.ColorRed}))

	pos := graphics.Offset{X: 10, Y: 10}
	h.pointer(layout.PointerDown, pos)
	h.pointer(layout.PointerCancel, pos)
	h.pointer(layout.PointerUp, pos)
	assert.Equal(t, 0, taps)
}

func TestTapRequiresReleaseInsideBounds(t *testing.T) {
	taps := 0
	h := newHarness(t, 100, 100)
	h.pump(Centered(GestureDetector{WidgetKey: "g", OnTap: func() { taps++ }, Child: SizedBox{Width: 40, Height: 40}}))

	handler := h.node("g").Render.(layout.PointerHandler)
	handler.HandlePointer(layout.PointerEvent{Phase: layout.PointerDown, Local: graphics.Offset{X: 20, Y: 20}})
	handler.HandlePointer(layout.PointerEvent{Phase: layout.PointerUp, Local: graphics.Offset{X: 60, Y: 20}})
	assert.Equal(t, 0, taps, "release outside the detector")
}

func TestNestedDetectorsDeepestWins(t *testing.T) {
	var outer, inner int
	h := newHarness(t, 100, 100)
	h.pump(Tap(func() { outer++ }, Centered(Tap(func() { inner++ }, SizedBox{Width: 20, Height: 20}))))

	h.pointer(layout.PointerDown, graphics.Offset{X: 50, Y: 50})
	h.pointer(layout.PointerUp, graphics.Offset{X: 50, Y: 50})
	h.pointer(layout.PointerDown, graphics.Offset{X: 5, Y: 5})
	h.pointer(layout.PointerUp, graphics.Offset{X: 5, Y: 5})
	assert.Equal(t, 1, inner)
	assert.Equal(t, 1, outer)
}

func TestOnPointerSeesEveryPhase(t *testing.T) {
	var phases []layout.PointerPhase
	h := newHarness(t, 100, 100)
	h.pump(GestureDetector{
		OnPointer: func(ev layout.PointerEvent) bool {
			phases = append(phases, ev.Phase)
			return true
		},
		Child: ColoredBox{Color: graphics.ColorWhite},
	})
	for _, phase := range []layout.PointerPhase{layout.PointerDown, layout.PointerMove, layout.PointerUp} {
		require.True(t, h.pointer(phase, graphics.Offset{X: 1, Y: 1}))
	}
	assert.Equal(t, []layout.PointerPhase{layout.PointerDown, layout.PointerMove, layout.PointerUp}, phases)
}

func TestKeyListenerReceivesFocusedKeys(t *testing.T) {
	var keys []string
	var focusChanges []bool
	h := newHarness(t, 100, 100)
	h.pump(KeyListener{
		WidgetKey: "outer",
		OnKey: func(ev focus.KeyEvent) bool {
			keys = append(keys, "outer:"+ev.Key)
			return true
		},
		Child: KeyListener{
			WidgetKey: "inner",
			OnKey: func(ev focus.KeyEvent) bool {
				keys = append(keys, "inner:"+ev.Key)
				return ev.Key == "Enter"
			},
			OnFocusChange: func(hasFocus bool) { focusChanges = append(focusChanges, hasFocus) },
			Child:         ColoredBox{Color: graphics.ColorWhite},
		},
	})

	m := focus.NewManager(h.tree)
	require.True(t, m.Focus(h.node("inner").ID))
	assert.Equal(t, focus.KeyEventHandled, m.Dispatch(focus.KeyEvent{Key: "Enter", Down: true}))
	assert.Equal(t, focus.KeyEventHandled, m.Dispatch(focus.KeyEvent{Key: "Tab", Down: true}))
	assert.Equal(t, []string{"inner:Enter", "inner:Tab", "outer:Tab"}, keys)

	m.Unfocus()
	assert.Equal(t, []bool{true, false}, focusChanges)
}

// counterApp increments a count on tap and shows it as the width of a bar.
func counterApp() core.Widget {
	return Builder{Builder: func(ctx *core.BuildContext) core.Widget {
		count := core.UseState(ctx, 1)
		return Align{Alignment: layout.AlignmentTopLeft, Child: Tap(
			func() { count.Update(func(n int) int { return n + 1 }) },
			SizedBox{WidgetKey: "bar", Width: float64(10 * count.Read(ctx)), Height: 10},
		)}
	}}
}

func TestBuilderStateDrivesLayout(t *testing.T) {
	h := newHarness(t, 200, 100)
	h.pump(counterApp())
	require.Equal(t, 10.0, h.rect("bar").Width())

	pos := graphics.Offset{X: 5, Y: 5}
	h.pointer(layout.PointerDown, pos)
	h.pointer(layout.PointerUp, pos)
	h.frame()

	assert.Equal(t, 20.0, h.rect("bar").Width())
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAsyncImageShowsLoadedImage(t *testing.T) {
	img := solidImage(8, 4, color.RGBA{R: 255, A: 255})
	loads := 0
	h := newHarness(t, 100, 100)
	app := Align{Alignment: layout.AlignmentTopLeft, Child: AsyncImage{
		Load: func(context.Context) (image.Image, error) {
			loads++
			return img, nil
		},
		Width:       16,
		Height:      8,
		Placeholder: ColoredBox{WidgetKey: "placeholder", Color: graphics.ColorBlack},
	}}

	// The load result is queued during the first build and applied by the
	// next frame.
	_, err := h.owner.MountRoot(app)
	require.NoError(t, err)
	h.node("placeholder")

	f := h.frame()
	var images []paint.DrawCommand
	for _, c := range f.Commands {
		if c.Kind == paint.KindImage {
			images = append(images, c)
		}
	}
	require.Len(t, images, 1)
	assert.Equal(t, graphics.HashPixels(img), images[0].ImageKey)
	assert.Equal(t, ltwh(0, 0, 16, 8), images[0].Dst)

	h.pump(app)
	h.frame()
	assert.Equal(t, 1, loads, "load runs once per mounted node")
}

func TestAsyncImageKeepsPlaceholderOnError(t *testing.T) {
	h := newHarness(t, 100, 100)
	h.pump(AsyncImage{
		Load: func(context.Context) (image.Image, error) {
			return nil, errors.New("not found")
		},
		Placeholder: ColoredBox{WidgetKey: "placeholder", Color: graphics.ColorBlack},
	})
	h.frame()
	h.node("placeholder")
	assert.Len(t, h.owner.TakeDiagnostics(), 1)
}
