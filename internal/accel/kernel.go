package accel

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"github.com/gogpu/naga"
	"os"
	"regexp"
)

const (
	// EntryPoint is the kernel function every kernel source must define.
	EntryPoint = "mandelbrotKernel"

	// WorkgroupSize is the kernel's workgroup edge length.
	WorkgroupSize = 8

	spirvMagic = 0x07230203
)

// DefaultKernel is the built-in WGSL kernel.
//
//go:embed mandelbrot.wgsl
var DefaultKernel string

var entryPointPattern = regexp.MustCompile(`@compute[^;{]*fn\s+` + EntryPoint + `\s*\(`)

// LoadKernel reads kernel source from path. An empty path selects
// DefaultKernel.
func LoadKernel(path string) (string, error) {
	if path == "" {
		return DefaultKernel, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrKernelBuild, path, err)
	}
	return string(src), nil
}

// ValidateKernel compiles WGSL source to SPIR-V with naga and returns the
// SPIR-V words.
func ValidateKernel(source string) ([]uint32, error) {
	if err := checkEntryPoint(source); err != nil {
		return nil, err
	}

	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKernelBuild, err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V output of %d bytes", ErrKernelBuild, len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: bad SPIR-V magic %#x", ErrKernelBuild, words[0])
	}

	return words, nil
}

// checkEntryPoint reports whether source declares EntryPoint as a compute
// entry point.
func checkEntryPoint(source string) error {
	if !entryPointPattern.MatchString(source) {
		return fmt.Errorf("%w: no @compute entry point %q", ErrKernelBuild, EntryPoint)
	}
	return nil
}
