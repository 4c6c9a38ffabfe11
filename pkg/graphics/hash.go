package graphics

import (
	"image"
	"image/draw"

	"github.com/cespare/xxhash/v2"
)

// HashPixels returns a content hash of an image's RGBA pixels and bounds size.
// Two images with identical pixels share the hash regardless of origin, so
// the atlas can reuse an already uploaded slot.
func HashPixels(img image.Image) uint64 {
	if img == nil {
		return 0
	}
	rgba := ToRGBA(img)
	d := xxhash.New()
	b := rgba.Bounds()
	var hdr [8]byte
	w, h := uint32(b.Dx()), uint32(b.Dy())
	hdr[0], hdr[1], hdr[2], hdr[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
	hdr[4], hdr[5], hdr[6], hdr[7] = byte(h), byte(h>>8), byte(h>>16), byte(h>>24)
	_, _ = d.Write(hdr[:])
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := rgba.PixOffset(b.Min.X, y)
		_, _ = d.Write(rgba.Pix[off : off+4*b.Dx()])
	}
	return d.Sum64()
}

// ToRGBA returns img as *image.RGBA, converting when necessary.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
