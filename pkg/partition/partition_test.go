package partition

import (
	"errors"
	"testing"
)

func TestFixed(t *testing.T) {
	tests := []struct {
		height, n int
		want      []Unit
	}{
		{4, 2, []Unit{{0, 2}, {2, 4}}},
		{10, 3, []Unit{{0, 3}, {3, 6}, {6, 10}}},
		{4096, 8, nil},
		{3, 5, []Unit{{0, 0}, {0, 1}, {1, 1}, {1, 2}, {2, 3}}},
		{1, 1, []Unit{{0, 1}}},
	}

	for _, tc := range tests {
		units, err := Fixed(tc.height, tc.n)
		if err != nil {
			t.Fatalf("Fixed(%d, %d) error = %v", tc.height, tc.n, err)
		}
		if len(units) != tc.n {
			t.Fatalf("Fixed(%d, %d) returned %d units", tc.height, tc.n, len(units))
		}
		if tc.want != nil {
			for i := range units {
				if units[i] != tc.want[i] {
					t.Errorf("Fixed(%d, %d)[%d] = %v, want %v", tc.height, tc.n, i, units[i], tc.want[i])
				}
			}
		}
		if err := Verify(units, tc.height); err != nil {
			t.Errorf("Fixed(%d, %d) does not cover the raster: %v", tc.height, tc.n, err)
		}
	}
}

func TestFixed_InvalidWorkers(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := Fixed(10, n); !errors.Is(err, ErrWorkers) {
			t.Errorf("Fixed(10, %d) error = %v, want ErrWorkers", n, err)
		}
	}
}

func TestFixed_CoverageGrid(t *testing.T) {
	for height := 0; height <= 64; height++ {
		for n := 1; n <= 17; n++ {
			units, _ := Fixed(height, n)
			if err := Verify(units, height); err != nil {
				t.Fatalf("Fixed(%d, %d): %v", height, n, err)
			}
		}
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		height, cores, want int
	}{
		{2048, 8, 25},
		{4096, 4, 102},
		{4, 8, MinThreshold},
		{100, 10, MinThreshold},
		{0, 1, MinThreshold},
	}

	for _, tc := range tests {
		if got := Threshold(tc.height, tc.cores); got != tc.want {
			t.Errorf("Threshold(%d, %d) = %d, want %d", tc.height, tc.cores, got, tc.want)
		}
	}

	if got := Threshold(1<<20, 0); got < MinThreshold {
		t.Errorf("Threshold with default cores = %d, want >= %d", got, MinThreshold)
	}
}

func TestMaxDepth(t *testing.T) {
	tests := []struct{ cores, want int }{
		{1, 5},
		{2, 6},
		{3, 6},
		{8, 8},
		{12, 8},
		{64, 11},
	}
	for _, tc := range tests {
		if got := MaxDepth(tc.cores); got != tc.want {
			t.Errorf("MaxDepth(%d) = %d, want %d", tc.cores, got, tc.want)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in           Unit
		upper, lower Unit
	}{
		{Unit{0, 4}, Unit{2, 4}, Unit{0, 2}},
		{Unit{0, 5}, Unit{3, 5}, Unit{0, 3}},
		{Unit{10, 17}, Unit{14, 17}, Unit{10, 14}},
		{Unit{3, 4}, Unit{4, 4}, Unit{3, 4}},
	}

	for _, tc := range tests {
		upper, lower := Split(tc.in)
		if upper != tc.upper || lower != tc.lower {
			t.Errorf("Split(%v) = %v, %v, want %v, %v", tc.in, upper, lower, tc.upper, tc.lower)
		}
	}
}

func TestSplit_Tiles(t *testing.T) {
	for start := 0; start < 5; start++ {
		for h := 0; h < 100; h++ {
			u := Unit{start, start + h}
			upper, lower := Split(u)
			if lower.Start != u.Start || lower.End != upper.Start || upper.End != u.End {
				t.Fatalf("Split(%v) = %v, %v does not tile the unit", u, upper, lower)
			}
			if upper.Height() != h/2 || lower.Height() != h-h/2 {
				t.Fatalf("Split(%v) heights = %d, %d, want %d, %d", u, upper.Height(), lower.Height(), h/2, h-h/2)
			}
		}
	}
}

func TestLeaves_Coverage(t *testing.T) {
	for _, height := range []int{1, 2, 3, 4, 7, 64, 100, 2048, 4097} {
		for _, threshold := range []int{0, 1, 2, 3, 10, 25, 5000} {
			leaves := Leaves(Unit{0, height}, threshold)
			if err := Verify(leaves, height); err != nil {
				t.Fatalf("Leaves(%d, threshold %d): %v", height, threshold, err)
			}
			for _, l := range leaves {
				if l.Height() >= max(threshold, MinThreshold) {
					t.Fatalf("leaf %v not below threshold %d", l, threshold)
				}
			}
		}
	}
}

func TestLeaves_Order(t *testing.T) {
	leaves := Leaves(Unit{0, 8}, 3)
	want := []Unit{{6, 8}, {4, 6}, {2, 4}, {0, 2}}

	if len(leaves) != len(want) {
		t.Fatalf("Leaves() = %v, want %v", leaves, want)
	}
	for i := range want {
		if leaves[i] != want[i] {
			t.Errorf("Leaves()[%d] = %v, want %v", i, leaves[i], want[i])
		}
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name  string
		units []Unit
		want  error
	}{
		{"exact", []Unit{{2, 4}, {0, 2}}, nil},
		{"with empty unit", []Unit{{0, 2}, {2, 2}, {2, 4}}, nil},
		{"gap", []Unit{{0, 1}, {2, 4}}, ErrGap},
		{"short", []Unit{{0, 3}}, ErrGap},
		{"overlap", []Unit{{0, 3}, {2, 4}}, ErrOverlap},
		{"duplicate", []Unit{{0, 2}, {0, 2}, {2, 4}}, ErrOverlap},
		{"out of range", []Unit{{0, 5}}, ErrOutOfRange},
		{"negative", []Unit{{-1, 4}}, ErrOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.units, 4)
			if tc.want == nil {
				if err != nil {
					t.Errorf("Verify() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Verify() = %v, want %v", err, tc.want)
			}
		})
	}
}
