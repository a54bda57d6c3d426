//go:build nogpu

package accel

import "fmt"

func openWGPU() (Accelerator, error) {
	return nil, fmt.Errorf("%w: built with nogpu", ErrNoDevice)
}
