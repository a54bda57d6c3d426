package accel

import "fmt"

const (
	BackendAuto     = "auto"
	BackendWGPU     = "wgpu"
	BackendSoftware = "software"
)

// Backends lists the names Open accepts.
func Backends() []string {
	return []string{BackendAuto, BackendWGPU, BackendSoftware}
}

// Open returns an accelerator for the named backend. "auto" (or "") tries the
// GPU and falls back to software.
func Open(name string) (Accelerator, error) {
	switch name {
	case "", BackendAuto:
		a, err := openWGPU()
		if err == nil {
			return a, nil
		}
		slogger().Warn("GPU unavailable, using software accelerator", "err", err)
		return NewSoftware(), nil
	case BackendWGPU:
		return openWGPU()
	case BackendSoftware:
		return NewSoftware(), nil
	}

	return nil, fmt.Errorf("%w: unknown backend %q", ErrNoDevice, name)
}
