package gpu

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/graphics"
)

// fakeDevice records the calls it receives.
type fakeDevice struct {
	next     TextureID
	textures map[TextureID]image.Point
	uploads  int
	copies   int
	draws    []Batch
	ops      []string
	lost     bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{textures: make(map[TextureID]image.Point)}
}

func (d *fakeDevice) check() error {
	if d.lost {
		return fmt.Errorf("fake: %w", errors.ErrDeviceLost)
	}
	return nil
}

func (d *fakeDevice) MaxTextureSize() int { return 4096 }

func (d *fakeDevice) CreateTexture(w, h int) (TextureID, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	d.next++
	d.textures[d.next] = image.Pt(w, h)
	return d.next, nil
}

func (d *fakeDevice) UploadRegion(TextureID, int, int, image.Image) error {
	d.uploads++
	return d.check()
}

func (d *fakeDevice) CopyRegion(TextureID, int, int, TextureID, image.Rectangle) error {
	d.copies++
	return d.check()
}

func (d *fakeDevice) ReleaseTexture(tex TextureID) { delete(d.textures, tex) }

func (d *fakeDevice) BeginFrame(image.Point, graphics.Color) error {
	d.ops = append(d.ops, "begin")
	return d.check()
}

func (d *fakeDevice) PushClip(image.Rectangle) { d.ops = append(d.ops, "clip") }
func (d *fakeDevice) PopClip()                 { d.ops = append(d.ops, "unclip") }

func (d *fakeDevice) BeginLayer(image.Rectangle, float64) error {
	d.ops = append(d.ops, "layer")
	return d.check()
}

func (d *fakeDevice) EndLayer() (TextureID, error) {
	d.ops = append(d.ops, "endlayer")
	return d.CreateTexture(1, 1)
}

func (d *fakeDevice) CompositeTexture(TextureID, image.Rectangle, float64) error {
	d.ops = append(d.ops, "composite")
	return d.check()
}

func (d *fakeDevice) Draw(b Batch) error {
	if b.Texture == 0 {
		d.ops = append(d.ops, "solid")
	} else {
		d.ops = append(d.ops, "textured")
	}
	d.draws = append(d.draws, b)
	return d.check()
}

func (d *fakeDevice) EndFrame() error {
	d.ops = append(d.ops, "end")
	return d.check()
}

func (d *fakeDevice) Capture() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), d.check()
}

func (d *fakeDevice) reset() {
	d.ops = nil
	d.draws = nil
}

func quietDiagnostics(t *testing.T) {
	t.Helper()
	old := errors.DefaultHandler
	errors.SetHandler(&errors.LogHandler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(func() { errors.SetHandler(old) })
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}
