package accel

import (
	"encoding/binary"
	"fmt"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"math"
)

// UniformSize is the size in bytes of the kernel's parameter block.
const UniformSize = 32

// KernelArgs are the kernel parameters, in the order the kernel declares them.
type KernelArgs struct {
	Output Buffer

	Width, Height uint32

	MinImag, MinReal        float32
	PixelWidth, PixelHeight float32

	MaxIter int32
}

// ArgsFor narrows cfg to the kernel's single-precision parameters. cfg must
// be valid, so the budget already fits in an int32.
func ArgsFor(out Buffer, cfg plane.Config) KernelArgs {
	s := cfg.Single()
	return KernelArgs{
		Output:      out,
		Width:       uint32(cfg.Width),  //nolint:gosec // validated positive raster size
		Height:      uint32(cfg.Height), //nolint:gosec // validated positive raster size
		MinImag:     s.Origin.Y(),
		MinReal:     s.Origin.X(),
		PixelWidth:  s.Step.X(),
		PixelHeight: s.Step.Y(),
		MaxIter:     int32(cfg.MaxIter), //nolint:gosec // validated budget fits in int32
	}
}

// Single returns the pixel mapping the kernel applies.
func (a KernelArgs) Single() plane.Single {
	return plane.Single{
		Origin: mgl32.Vec2{a.MinReal, a.MinImag},
		Step:   mgl32.Vec2{a.PixelWidth, a.PixelHeight},
	}
}

// OutputSize is the number of bytes the kernel writes: one uint32 per pixel.
func (a KernelArgs) OutputSize() uint64 {
	return uint64(a.Width) * uint64(a.Height) * 4
}

// Uniform packs the scalar parameters into the kernel's little-endian
// parameter block. The last word is padding.
func (a KernelArgs) Uniform() []byte {
	b := make([]byte, UniformSize)
	binary.LittleEndian.PutUint32(b[0:], a.Width)
	binary.LittleEndian.PutUint32(b[4:], a.Height)
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(a.MinImag))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(a.MinReal))
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(a.PixelWidth))
	binary.LittleEndian.PutUint32(b[20:], math.Float32bits(a.PixelHeight))
	binary.LittleEndian.PutUint32(b[24:], uint32(a.MaxIter)) //nolint:gosec // bit pattern of an i32
	return b
}

func (a KernelArgs) validate(global [2]uint32) error {
	if a.Output == nil {
		return fmt.Errorf("%w: no output buffer", ErrInvalidDispatch)
	}
	if global[0] < a.Width || global[1] < a.Height {
		return fmt.Errorf("%w: global size %dx%d smaller than raster %dx%d",
			ErrInvalidDispatch, global[0], global[1], a.Width, a.Height)
	}
	if a.Output.Size() < a.OutputSize() {
		return fmt.Errorf("%w: output buffer holds %d bytes, need %d",
			ErrInvalidDispatch, a.Output.Size(), a.OutputSize())
	}
	return nil
}

// DecodeCounts converts a read back output buffer into iteration counts.
func DecodeCounts(data []byte) []uint32 {
	counts := make([]uint32, len(data)/4)
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return counts
}
