package raster

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// BytesPerPixel is the NRGBA stride the decode and encode streams agree on.
const BytesPerPixel = 4

// Buffer is the off-screen raster the render stage draws sampled frames into.
// Between draws the buffer retains its previous contents, which the encoder
// reads again for strided (held) frames. A Buffer belongs to exactly one
// pipeline and is never shared.
type Buffer struct {
	img   *image.NRGBA
	draws int64
}

// NewBuffer allocates a raster buffer at the encode dimensions.
func NewBuffer(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid dimensions %dx%d", width, height)
	}
	return &Buffer{img: image.NewNRGBA(image.Rect(0, 0, width, height))}, nil
}

// Draw scales src onto the buffer, replacing its contents. Linear resampling
// keeps the per-frame cost low; the encoder's rate control absorbs the rest.
func (b *Buffer) Draw(src image.Image) {
	bounds := b.img.Bounds()
	scaled := imaging.Resize(src, bounds.Dx(), bounds.Dy(), imaging.Linear)
	copy(b.img.Pix, scaled.Pix)
	b.draws++
}

// Pix exposes the raw NRGBA bytes for the encoder's input surface. The slice
// aliases the buffer; callers must consume it before the next Draw.
func (b *Buffer) Pix() []byte {
	return b.img.Pix
}

// Image returns the current raster contents.
func (b *Buffer) Image() *image.NRGBA {
	return b.img
}

// Width returns the raster width in pixels.
func (b *Buffer) Width() int { return b.img.Bounds().Dx() }

// Height returns the raster height in pixels.
func (b *Buffer) Height() int { return b.img.Bounds().Dy() }

// Draws returns how many frames were actually rendered (stride hits).
func (b *Buffer) Draws() int64 { return b.draws }

// FrameBytes returns the byte length of one raw frame at the buffer size.
func (b *Buffer) FrameBytes() int {
	return b.Width() * b.Height() * BytesPerPixel
}
