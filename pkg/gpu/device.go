// Package gpu packs image content into texture atlases and submits
// tessellated draw commands to a graphics device in batches.
package gpu

import (
	"fmt"
	"image"

	"github.com/go-drift/lattice/pkg/graphics"
)

// TextureID names a device texture. The zero ID means "no texture": the
// batch is drawn with its vertex colors.
type TextureID uint32

// Vertex is a device vertex in root coordinates. U and V are texel
// coordinates into the batch texture and are ignored for solid batches.
type Vertex struct {
	X, Y  float32
	U, V  float32
	Color graphics.Color
}

// Batch is one draw call.
//
// Solid batches hold arbitrary triangles. Textured batches hold quads: four
// vertices (top-left, top-right, bottom-right, bottom-left of the source
// region) and six indices each.
type Batch struct {
	Texture  TextureID
	Vertices []Vertex
	Indices  []uint32
	// Shapes holds the offsets into Indices where each merged shape
	// starts. Coverage of triangles within one shape accumulates once;
	// separate shapes blend over each other.
	Shapes []int
}

// Triangles returns the number of triangles in the batch.
func (b *Batch) Triangles() int {
	return len(b.Indices) / 3
}

func (b *Batch) String() string {
	return fmt.Sprintf("Batch(tex=%d, %d tris)", b.Texture, b.Triangles())
}

// Device is the graphics backend the renderer submits to.
//
// Methods are called from the UI goroutine only. Any error wrapping
// errors.ErrDeviceLost is fatal: the renderer stops using the device until
// Reset is called with a new one.
type Device interface {
	// MaxTextureSize returns the largest supported texture edge in pixels.
	MaxTextureSize() int
	CreateTexture(width, height int) (TextureID, error)
	// UploadRegion copies img into tex with its top-left corner at (x, y).
	UploadRegion(tex TextureID, x, y int, img image.Image) error
	// CopyRegion copies the texels of src inside r to dst at (x, y).
	CopyRegion(dst TextureID, x, y int, src TextureID, r image.Rectangle) error
	ReleaseTexture(tex TextureID)

	// BeginFrame starts a frame of the given size cleared to clear.
	BeginFrame(size image.Point, clear graphics.Color) error
	// PushClip intersects the current clip with r until PopClip.
	PushClip(r image.Rectangle)
	PopClip()
	// BeginLayer redirects drawing to an offscreen target covering bounds.
	// A positive blur radius is applied to the content when the layer ends.
	BeginLayer(bounds image.Rectangle, blur float64) error
	// EndLayer finishes the innermost layer and returns its content as a
	// texture covering the layer bounds. The caller owns the texture.
	EndLayer() (TextureID, error)
	// CompositeTexture blends a layer texture onto the current target at
	// bounds with uniform opacity.
	CompositeTexture(tex TextureID, bounds image.Rectangle, opacity float64) error
	Draw(b Batch) error
	EndFrame() error

	// Capture returns a copy of the last completed frame.
	Capture() (*image.RGBA, error)
}
