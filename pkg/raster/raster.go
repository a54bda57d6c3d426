// Package raster holds the per-pixel results of a render.
//
// A Raster is written exactly once per pixel. Distinct rows may be written
// from different goroutines without synchronization; a Raster must not be read
// until every writer has finished.
package raster

import (
	"errors"
	"fmt"
	"github.com/willbeason/mandelbrot/pkg/escape"
	"image"
)

var ErrSize = errors.New("raster: size mismatch")

// Raster is a row-major grid of escape-time iteration counts.
type Raster struct {
	Width, Height int

	// Pix holds the iteration count of pixel (x, y) at Pix[y*Width+x].
	Pix []int32
}

func New(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]int32, width*height),
	}
}

// FromUint32 builds a Raster from a row-major slice of counts, as read back
// from an accelerator.
func FromUint32(width, height int, counts []uint32) (*Raster, error) {
	if len(counts) != width*height {
		return nil, fmt.Errorf("%w: %d counts for %dx%d raster", ErrSize, len(counts), width, height)
	}

	r := New(width, height)
	for i, c := range counts {
		r.Pix[i] = int32(c) //nolint:gosec // counts are bounded by the iteration budget
	}
	return r, nil
}

func (r *Raster) Set(x, y, iter int) {
	r.Pix[y*r.Width+x] = int32(iter) //nolint:gosec // counts are bounded by the iteration budget
}

func (r *Raster) At(x, y int) int {
	return int(r.Pix[y*r.Width+x])
}

// Row returns the counts of row y. The slice aliases the raster.
func (r *Raster) Row(y int) []int32 {
	return r.Pix[y*r.Width : (y+1)*r.Width]
}

// RGB returns the packed 0xRRGGBB color of pixel (x, y).
func (r *Raster) RGB(x, y int) uint32 {
	return escape.Color(r.At(x, y))
}

// Packed returns every pixel's packed color in row-major order.
func (r *Raster) Packed() []uint32 {
	out := make([]uint32, len(r.Pix))
	for i, c := range r.Pix {
		out[i] = escape.Color(int(c))
	}
	return out
}

// Image renders the packed colors as an opaque RGBA image.
func (r *Raster) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))

	for i, c := range r.Pix {
		rgb := escape.Color(int(c))
		o := i * 4
		img.Pix[o+0] = uint8(rgb >> 16) //nolint:gosec // masked by the shift
		img.Pix[o+1] = uint8(rgb >> 8)  //nolint:gosec // truncation intended
		img.Pix[o+2] = uint8(rgb)       //nolint:gosec // truncation intended
		img.Pix[o+3] = 0xff
	}

	return img
}

// Diff counts the pixels whose iteration counts differ. Rasters of different
// size differ everywhere.
func (r *Raster) Diff(other *Raster) int {
	if r.Width != other.Width || r.Height != other.Height {
		return max(len(r.Pix), len(other.Pix))
	}

	n := 0
	for i := range r.Pix {
		if r.Pix[i] != other.Pix[i] {
			n++
		}
	}
	return n
}

func (r *Raster) Equal(other *Raster) bool {
	return r.Width == other.Width && r.Height == other.Height && r.Diff(other) == 0
}
