package accel

import (
	"errors"
	"testing"
)

func TestSoftware_Dispatch(t *testing.T) {
	cfg := testConfig()

	s := NewSoftware()
	defer s.Close()

	k, err := s.Compile(DefaultKernel)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if k.EntryPoint() != EntryPoint {
		t.Errorf("EntryPoint() = %q, want %q", k.EntryPoint(), EntryPoint)
	}

	args := ArgsFor(nil, cfg)
	out, err := s.AllocateBuffer(args.OutputSize())
	if err != nil {
		t.Fatalf("AllocateBuffer() error = %v", err)
	}
	args.Output = out

	if err := s.Dispatch(k, [2]uint32{args.Width, args.Height}, args); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	data, err := s.ReadBack(out)
	if err != nil {
		t.Fatalf("ReadBack() error = %v", err)
	}
	expectCounts(t, cfg, data)
}

func TestSoftware_InvalidDispatch(t *testing.T) {
	cfg := testConfig()

	s := NewSoftware()
	defer s.Close()

	k, err := s.Compile(DefaultKernel)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	small, err := s.AllocateBuffer(16)
	if err != nil {
		t.Fatalf("AllocateBuffer() error = %v", err)
	}

	args := ArgsFor(small, cfg)
	global := [2]uint32{args.Width, args.Height}

	tests := []struct {
		name   string
		global [2]uint32
		args   KernelArgs
	}{
		{"buffer too small", global, args},
		{"no buffer", global, ArgsFor(nil, cfg)},
		{"global too small", [2]uint32{1, 1}, args},
	}
	for _, tc := range tests {
		if err := s.Dispatch(k, tc.global, tc.args); !errors.Is(err, ErrInvalidDispatch) {
			t.Errorf("%s: Dispatch() = %v, want ErrInvalidDispatch", tc.name, err)
		}
	}
}

func TestSoftware_AllocateTooLarge(t *testing.T) {
	s := NewSoftware()
	defer s.Close()

	if _, err := s.AllocateBuffer(maxSoftwareBuffer + 1); !errors.Is(err, ErrOutOfDeviceMemory) {
		t.Errorf("AllocateBuffer() = %v, want ErrOutOfDeviceMemory", err)
	}
}

func TestSoftware_Closed(t *testing.T) {
	s := NewSoftware()
	buf, err := s.AllocateBuffer(4)
	if err != nil {
		t.Fatalf("AllocateBuffer() error = %v", err)
	}
	s.Close()

	if _, err := s.Compile(DefaultKernel); !errors.Is(err, ErrClosed) {
		t.Errorf("Compile() after Close = %v, want ErrClosed", err)
	}
	if _, err := s.AllocateBuffer(4); !errors.Is(err, ErrClosed) {
		t.Errorf("AllocateBuffer() after Close = %v, want ErrClosed", err)
	}
	if _, err := s.ReadBack(buf); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadBack() after Close = %v, want ErrClosed", err)
	}
}

func TestOpen(t *testing.T) {
	a, err := Open(BackendSoftware)
	if err != nil {
		t.Fatalf("Open(software) error = %v", err)
	}
	defer a.Close()
	if a.Name() != "software" {
		t.Errorf("Name() = %q, want software", a.Name())
	}

	if _, err := Open("opencl"); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Open(opencl) = %v, want ErrNoDevice", err)
	}
}

func TestOpen_Auto(t *testing.T) {
	// Either a GPU or the software fallback; never an error.
	a, err := Open(BackendAuto)
	if err != nil {
		t.Fatalf("Open(auto) error = %v", err)
	}
	a.Close()
}
