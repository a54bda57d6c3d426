// Package plane maps a pixel raster onto a rectangle of the complex plane.
package plane

import (
	"errors"
	"fmt"
	"github.com/go-gl/mathgl/mgl32"
	"math"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("plane: invalid configuration")

const (
	// DefaultMaxIter is the iteration budget of the reference renders.
	DefaultMaxIter = 10000

	// DefaultThreads is the worker count of the fixed-thread render.
	DefaultThreads = 8
)

// Window is the visible rectangle of the complex plane.
type Window struct {
	MinReal, MaxReal float64
	MinImag, MaxImag float64
}

// Config describes a single render. It is passed by value and never mutated
// once a render starts.
type Config struct {
	Window Window

	// Width and Height are the raster size in pixels.
	Width, Height int

	// MaxIter is the iteration budget shared by every pixel.
	MaxIter int
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: raster %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.MaxIter < 0 {
		return fmt.Errorf("%w: iteration budget %d is negative", ErrInvalidConfig, c.MaxIter)
	}
	if c.MaxIter > math.MaxInt32 {
		return fmt.Errorf("%w: iteration budget %d exceeds %d", ErrInvalidConfig, c.MaxIter, math.MaxInt32)
	}

	w := c.Window
	for _, v := range []float64{w.MinReal, w.MaxReal, w.MinImag, w.MaxImag} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bound %v is not finite", ErrInvalidConfig, v)
		}
	}
	if w.MinReal >= w.MaxReal {
		return fmt.Errorf("%w: real bounds [%v, %v] are empty", ErrInvalidConfig, w.MinReal, w.MaxReal)
	}
	if w.MinImag >= w.MaxImag {
		return fmt.Errorf("%w: imaginary bounds [%v, %v] are empty", ErrInvalidConfig, w.MinImag, w.MaxImag)
	}

	return nil
}

// PixelWidth is the real-axis distance between horizontally adjacent pixels.
func (c Config) PixelWidth() float64 {
	return (c.Window.MaxReal - c.Window.MinReal) / float64(c.Width)
}

// PixelHeight is the imaginary-axis distance between vertically adjacent pixels.
func (c Config) PixelHeight() float64 {
	return (c.Window.MaxImag - c.Window.MinImag) / float64(c.Height)
}

// Coord returns the plane coordinate of pixel (px, py).
func (c Config) Coord(px, py int) (re, im float64) {
	return c.Real(px), c.Imag(py)
}

// Real returns the real coordinate of column px.
func (c Config) Real(px int) float64 {
	return c.Window.MinReal + float64(px)*c.PixelWidth()
}

// Imag returns the imaginary coordinate of row py.
func (c Config) Imag(py int) float64 {
	return c.Window.MinImag + float64(py)*c.PixelHeight()
}

// Pixels is the number of pixels in the raster.
func (c Config) Pixels() int {
	return c.Width * c.Height
}

// Single is the single-precision form of a Config's pixel mapping, as handed
// to the accelerator kernel.
type Single struct {
	// Origin is (MinReal, MinImag).
	Origin mgl32.Vec2

	// Step is (PixelWidth, PixelHeight).
	Step mgl32.Vec2
}

func (c Config) Single() Single {
	return Single{
		Origin: mgl32.Vec2{float32(c.Window.MinReal), float32(c.Window.MinImag)},
		Step:   mgl32.Vec2{float32(c.PixelWidth()), float32(c.PixelHeight())},
	}
}

// Coord returns the single-precision plane coordinate of pixel (px, py).
func (s Single) Coord(px, py int) mgl32.Vec2 {
	return mgl32.Vec2{
		s.Origin[0] + float32(px)*s.Step[0],
		s.Origin[1] + float32(py)*s.Step[1],
	}
}
