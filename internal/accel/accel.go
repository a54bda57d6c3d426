// Package accel runs the Mandelbrot kernel on a data-parallel compute device.
//
// An Accelerator compiles a kernel, owns the device buffers it writes and
// copies results back to the host. Dispatch blocks until the device has
// finished. Backends:
//   - wgpu: a GPU through gogpu/wgpu's Vulkan HAL (absent with -tags nogpu)
//   - software: the same kernel semantics on CPU goroutines in float32
//
// All computation is single precision. Results differ from the float64 CPU
// strategies near the set boundary and at deep zoom.
package accel

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice means no usable compute device was found.
	ErrNoDevice = errors.New("accel: no compute device")

	// ErrKernelBuild means the kernel source failed to compile.
	ErrKernelBuild = errors.New("accel: kernel build failed")

	// ErrOutOfDeviceMemory means a buffer could not be allocated on the device.
	ErrOutOfDeviceMemory = errors.New("accel: out of device memory")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("accel: accelerator closed")

	// ErrInvalidDispatch means the kernel, buffer or sizes handed to Dispatch
	// do not belong together.
	ErrInvalidDispatch = errors.New("accel: invalid dispatch")
)

// Kernel is a compiled kernel program.
type Kernel interface {
	EntryPoint() string
}

// Buffer is device memory owned by the Accelerator which allocated it.
type Buffer interface {
	Size() uint64
}

// Accelerator is a compute device able to run the Mandelbrot kernel.
//
// Buffers and kernels are released by Close. An Accelerator is not safe for
// concurrent use.
type Accelerator interface {
	Name() string

	// Compile builds kernel source for the device.
	Compile(source string) (Kernel, error)

	// AllocateBuffer reserves size bytes of device memory.
	AllocateBuffer(size uint64) (Buffer, error)

	// Dispatch runs k over a global work size of global[0] by global[1]
	// work-items and waits for completion.
	Dispatch(k Kernel, global [2]uint32, args KernelArgs) error

	// ReadBack copies the whole of b to host memory.
	ReadBack(b Buffer) ([]byte, error)

	Close()
}

// SetupError is a failure to bring up the device, build the kernel or
// allocate its buffers. Callers may recover from it by rendering on the CPU.
type SetupError struct {
	// Stage is the step which failed: "open", "compile" or "allocate".
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("accel: %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Setup marks err as a setup failure at stage. Errors which already are
// setup errors are returned unchanged.
func Setup(stage string, err error) error {
	if err == nil {
		return nil
	}
	if IsSetupError(err) {
		return err
	}
	return &SetupError{Stage: stage, Err: err}
}

// IsSetupError reports whether err is, or wraps, a *SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
