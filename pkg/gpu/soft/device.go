// Package soft implements gpu.Device on the CPU. It rasterizes triangles
// with golang.org/x/image/vector and samples textures with
// golang.org/x/image/draw, which makes it suitable for headless rendering
// and pixel tests.
package soft

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/gpu"
	"github.com/go-drift/lattice/pkg/graphics"
)

// DefaultMaxTextureSize is the texture limit used when none is given.
const DefaultMaxTextureSize = 8192

// Stats counts device calls since creation.
type Stats struct {
	DrawCalls  int
	Triangles  int
	Uploads    int
	Copies     int
	Layers     int
	Composites int
}

type surface struct {
	img   *image.RGBA
	clips []image.Rectangle
	blur  float64
}

func (s *surface) clip() image.Rectangle {
	return s.clips[len(s.clips)-1]
}

// Device is a software graphics device. It is not safe for concurrent use.
type Device struct {
	maxTexture int
	textures   map[gpu.TextureID]*image.RGBA
	next       gpu.TextureID
	surfaces   []*surface
	last       *image.RGBA
	lost       bool
	stats      Stats
}

var _ gpu.Device = (*Device)(nil)

// New creates a device. A non-positive maxTextureSize uses
// DefaultMaxTextureSize.
func New(maxTextureSize int) *Device {
	if maxTextureSize <= 0 {
		maxTextureSize = DefaultMaxTextureSize
	}
	return &Device{maxTexture: maxTextureSize, textures: make(map[gpu.TextureID]*image.RGBA)}
}

// Lose simulates device loss: every texture is dropped and all further
// calls fail with errors.ErrDeviceLost.
func (d *Device) Lose() {
	d.lost = true
	clear(d.textures)
	d.surfaces = nil
}

// Stats returns the call counters.
func (d *Device) Stats() Stats { return d.stats }

// Textures returns the number of live textures.
func (d *Device) Textures() int { return len(d.textures) }

// Texture returns the pixels of a live texture.
func (d *Device) Texture(id gpu.TextureID) (*image.RGBA, bool) {
	t, ok := d.textures[id]
	return t, ok
}

func (d *Device) errLost() error {
	return fmt.Errorf("soft device: %w", errors.ErrDeviceLost)
}

func (d *Device) MaxTextureSize() int { return d.maxTexture }

func (d *Device) CreateTexture(width, height int) (gpu.TextureID, error) {
	if d.lost {
		return 0, d.errLost()
	}
	if width <= 0 || height <= 0 || width > d.maxTexture || height > d.maxTexture {
		return 0, fmt.Errorf("soft device: texture %dx%d out of range: %w", width, height, errors.ErrResourceExhausted)
	}
	return d.register(image.NewRGBA(image.Rect(0, 0, width, height))), nil
}

func (d *Device) register(img *image.RGBA) gpu.TextureID {
	d.next++
	d.textures[d.next] = img
	return d.next
}

func (d *Device) texture(id gpu.TextureID) (*image.RGBA, error) {
	if d.lost {
		return nil, d.errLost()
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("soft device: unknown texture %d", id)
	}
	return t, nil
}

func (d *Device) UploadRegion(tex gpu.TextureID, x, y int, img image.Image) error {
	t, err := d.texture(tex)
	if err != nil {
		return err
	}
	b := img.Bounds()
	xdraw.Draw(t, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, xdraw.Src)
	d.stats.Uploads++
	return nil
}

func (d *Device) CopyRegion(dst gpu.TextureID, x, y int, src gpu.TextureID, r image.Rectangle) error {
	dt, err := d.texture(dst)
	if err != nil {
		return err
	}
	st, err := d.texture(src)
	if err != nil {
		return err
	}
	xdraw.Draw(dt, image.Rect(x, y, x+r.Dx(), y+r.Dy()), st, r.Min, xdraw.Src)
	d.stats.Copies++
	return nil
}

func (d *Device) ReleaseTexture(tex gpu.TextureID) {
	delete(d.textures, tex)
}

func (d *Device) BeginFrame(size image.Point, clear graphics.Color) error {
	if d.lost {
		return d.errLost()
	}
	img := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.Draw(img, img.Bounds(), image.NewUniform(clear.Premultiplied()), image.Point{}, xdraw.Src)
	d.surfaces = []*surface{{img: img, clips: []image.Rectangle{img.Bounds()}}}
	return nil
}

func (d *Device) top() *surface {
	return d.surfaces[len(d.surfaces)-1]
}

func (d *Device) PushClip(r image.Rectangle) {
	if len(d.surfaces) == 0 {
		return
	}
	s := d.top()
	s.clips = append(s.clips, s.clip().Intersect(r))
}

func (d *Device) PopClip() {
	if len(d.surfaces) == 0 {
		return
	}
	if s := d.top(); len(s.clips) > 1 {
		s.clips = s.clips[:len(s.clips)-1]
	}
}

func (d *Device) BeginLayer(bounds image.Rectangle, blur float64) error {
	if d.lost {
		return d.errLost()
	}
	if len(d.surfaces) == 0 {
		return fmt.Errorf("soft device: layer outside a frame")
	}
	img := image.NewRGBA(bounds)
	d.surfaces = append(d.surfaces, &surface{img: img, clips: []image.Rectangle{bounds}, blur: blur})
	d.stats.Layers++
	return nil
}

func (d *Device) EndLayer() (gpu.TextureID, error) {
	if d.lost {
		return 0, d.errLost()
	}
	if len(d.surfaces) < 2 {
		return 0, fmt.Errorf("soft device: EndLayer without BeginLayer")
	}
	s := d.top()
	d.surfaces = d.surfaces[:len(d.surfaces)-1]
	if s.blur > 0 {
		boxBlur(s.img, int(math32.Ceil(float32(s.blur))))
	}
	return d.register(s.img), nil
}

func (d *Device) CompositeTexture(tex gpu.TextureID, bounds image.Rectangle, opacity float64) error {
	src, err := d.texture(tex)
	if err != nil {
		return err
	}
	if len(d.surfaces) == 0 {
		return fmt.Errorf("soft device: composite outside a frame")
	}
	s := d.top()
	r := bounds.Intersect(s.clip())
	if r.Empty() || opacity <= 0 {
		return nil
	}
	a := uint16(math32.Min(1, float32(opacity)) * 0xffff)
	xdraw.DrawMask(s.img, r, src, r.Min, image.NewUniform(color.Alpha16{A: a}), image.Point{}, xdraw.Over)
	d.stats.Composites++
	return nil
}

func (d *Device) Draw(b gpu.Batch) error {
	if d.lost {
		return d.errLost()
	}
	if len(d.surfaces) == 0 {
		return fmt.Errorf("soft device: draw outside a frame")
	}
	s := d.top()
	if b.Texture == 0 {
		d.drawSolid(s, b)
	} else {
		tex, err := d.texture(b.Texture)
		if err != nil {
			return err
		}
		d.drawTextured(s, tex, b)
	}
	d.stats.DrawCalls++
	d.stats.Triangles += b.Triangles()
	return nil
}

func (d *Device) EndFrame() error {
	if d.lost {
		return d.errLost()
	}
	if len(d.surfaces) == 0 {
		return fmt.Errorf("soft device: EndFrame without BeginFrame")
	}
	d.last = d.surfaces[0].img
	d.surfaces = nil
	return nil
}

func (d *Device) Capture() (*image.RGBA, error) {
	if d.lost {
		return nil, d.errLost()
	}
	if d.last == nil {
		return nil, fmt.Errorf("soft device: no frame rendered")
	}
	out := image.NewRGBA(d.last.Bounds())
	copy(out.Pix, d.last.Pix)
	return out, nil
}

// drawSolid rasterizes each shape of b, one run of equally colored
// triangles at a time. Coverage inside a run is clamped, so overlapping
// triangles of one shape do not blend twice.
func (d *Device) drawSolid(s *surface, b gpu.Batch) {
	clip := s.clip()
	if clip.Empty() {
		return
	}
	shapes := b.Shapes
	if len(shapes) == 0 {
		shapes = []int{0}
	}
	for k, start := range shapes {
		end := len(b.Indices)
		if k+1 < len(shapes) {
			end = shapes[k+1]
		}
		for t := start; t+2 < end; {
			col := b.Vertices[b.Indices[t]].Color
			u := t
			for u+2 < end && b.Vertices[b.Indices[u]].Color == col {
				u += 3
			}
			fill(s.img, clip, b.Vertices, b.Indices[t:u], col)
			t = u
		}
	}
}

func fill(dst *image.RGBA, clip image.Rectangle, verts []gpu.Vertex, idx []uint32, col graphics.Color) {
	if col.A() == 0 || len(idx) < 3 {
		return
	}
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	for _, i := range idx {
		v := verts[i]
		minX, maxX = math32.Min(minX, v.X), math32.Max(maxX, v.X)
		minY, maxY = math32.Min(minY, v.Y), math32.Max(maxY, v.Y)
	}
	r := image.Rect(
		int(math32.Floor(minX)), int(math32.Floor(minY)),
		int(math32.Ceil(maxX)), int(math32.Ceil(maxY)),
	).Intersect(clip)
	if r.Empty() {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	for i := 0; i+2 < len(idx); i += 3 {
		a, b, c := verts[idx[i]], verts[idx[i+1]], verts[idx[i+2]]
		z.MoveTo(a.X-ox, a.Y-oy)
		z.LineTo(b.X-ox, b.Y-oy)
		z.LineTo(c.X-ox, c.Y-oy)
		z.ClosePath()
	}
	z.Draw(dst, r, image.NewUniform(col.Premultiplied()), image.Point{})
}

// drawTextured maps each quad's texel rectangle onto its parallelogram.
func (d *Device) drawTextured(s *surface, tex *image.RGBA, b gpu.Batch) {
	clip := s.clip()
	if clip.Empty() {
		return
	}
	dst, ok := s.img.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	for q := 0; q+3 < len(b.Vertices); q += 4 {
		v0, v1, v3 := b.Vertices[q], b.Vertices[q+1], b.Vertices[q+3]
		du, dv := float64(v1.U-v0.U), float64(v3.V-v0.V)
		if du == 0 || dv == 0 {
			continue
		}
		a := float64(v1.X-v0.X) / du
		bb := float64(v3.X-v0.X) / dv
		c := float64(v1.Y-v0.Y) / du
		dd := float64(v3.Y-v0.Y) / dv
		s2d := f64.Aff3{
			a, bb, float64(v0.X) - a*float64(v0.U) - bb*float64(v0.V),
			c, dd, float64(v0.Y) - c*float64(v0.U) - dd*float64(v0.V),
		}
		sr := image.Rect(int(v0.U), int(v0.V), int(v1.U), int(v3.V))
		var opts *xdraw.Options
		if alpha := v0.Color.A(); alpha < 0xff {
			opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: alpha})}
		}
		xdraw.ApproxBiLinear.Transform(dst, s2d, tex, sr, xdraw.Over, opts)
	}
}

// boxBlur blurs img in place with a separable box filter of the given
// radius.
func boxBlur(img *image.RGBA, radius int) {
	if radius <= 0 {
		return
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]uint8, len(img.Pix))
	pass := func(src, dst []uint8, n, lines int, at func(line, i int) int) {
		for line := range lines {
			for i := range n {
				var sum [4]int
				count := 0
				for k := max(0, i-radius); k <= min(n-1, i+radius); k++ {
					o := at(line, k)
					sum[0] += int(src[o])
					sum[1] += int(src[o+1])
					sum[2] += int(src[o+2])
					sum[3] += int(src[o+3])
					count++
				}
				o := at(line, i)
				for c := range 4 {
					dst[o+c] = uint8(sum[c] / count)
				}
			}
		}
	}
	pass(img.Pix, tmp, w, h, func(y, x int) int { return y*img.Stride + x*4 })
	pass(tmp, img.Pix, h, w, func(x, y int) int { return y*img.Stride + x*4 })
}
