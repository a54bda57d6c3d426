package accel

import (
	"encoding/binary"
	"fmt"
	"github.com/willbeason/mandelbrot/pkg/escape"
	"runtime"
	"sync"
)

// maxSoftwareBuffer bounds a single software allocation.
const maxSoftwareBuffer = 1 << 32

// Software executes the kernel on the CPU. Each row of work-items is one job;
// runtime.NumCPU() goroutines take rows until none are left. Arithmetic is
// float32, matching a device run.
type Software struct {
	workers int
	closed  bool
}

type softwareKernel struct {
	entry string
}

func (k *softwareKernel) EntryPoint() string { return k.entry }

type softwareBuffer struct {
	data []byte
}

func (b *softwareBuffer) Size() uint64 { return uint64(len(b.data)) }

func NewSoftware() *Software {
	return &Software{workers: runtime.NumCPU()}
}

func (s *Software) Name() string {
	return "software"
}

// Compile checks that source declares the kernel entry point. The kernel body
// is not interpreted; Dispatch always runs the built-in escape-time kernel.
func (s *Software) Compile(source string) (Kernel, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := checkEntryPoint(source); err != nil {
		return nil, err
	}
	return &softwareKernel{entry: EntryPoint}, nil
}

func (s *Software) AllocateBuffer(size uint64) (Buffer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if size > maxSoftwareBuffer {
		return nil, fmt.Errorf("%w: %d bytes requested", ErrOutOfDeviceMemory, size)
	}
	return &softwareBuffer{data: make([]byte, size)}, nil
}

func (s *Software) Dispatch(k Kernel, global [2]uint32, args KernelArgs) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := k.(*softwareKernel); !ok {
		return fmt.Errorf("%w: kernel %T was not compiled by this accelerator", ErrInvalidDispatch, k)
	}
	out, ok := args.Output.(*softwareBuffer)
	if !ok {
		return fmt.Errorf("%w: buffer %T was not allocated by this accelerator", ErrInvalidDispatch, args.Output)
	}
	if err := args.validate(global); err != nil {
		return err
	}

	mapping := args.Single()
	width := int(args.Width)
	maxIter := int(args.MaxIter)

	rows := make(chan int)
	go func() {
		for y := 0; y < int(args.Height); y++ {
			rows <- y
		}
		close(rows)
	}()

	wg := sync.WaitGroup{}
	wg.Add(s.workers)
	for range s.workers {
		go func() {
			defer wg.Done()
			for y := range rows {
				line := out.data[y*width*4 : (y+1)*width*4]
				for x := 0; x < width; x++ {
					c := mapping.Coord(x, y)
					n := escape.Iterate32(c.X(), c.Y(), maxIter)
					binary.LittleEndian.PutUint32(line[x*4:], uint32(n)) //nolint:gosec // bounded by MaxIter
				}
			}
		}()
	}
	wg.Wait()

	slogger().Debug("software dispatch", "width", args.Width, "height", args.Height, "workers", s.workers)
	return nil
}

func (s *Software) ReadBack(b Buffer) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	sb, ok := b.(*softwareBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %T was not allocated by this accelerator", ErrInvalidDispatch, b)
	}

	data := make([]byte, len(sb.data))
	copy(data, sb.data)
	return data, nil
}

func (s *Software) Close() {
	s.closed = true
}
