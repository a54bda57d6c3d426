// Package partition splits a raster's rows into work units.
//
// Every scheme here yields units which are pairwise disjoint and whose union
// is exactly the rows of the raster. Workers rely on this to write the raster
// without locks.
package partition

import (
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"sort"
)

var (
	ErrGap        = errors.New("partition: rows not covered")
	ErrOverlap    = errors.New("partition: rows covered more than once")
	ErrOutOfRange = errors.New("partition: unit outside raster")
	ErrWorkers    = errors.New("partition: worker count must be positive")
)

// MinThreshold is the smallest usable split threshold. With a threshold of 1
// or less, a unit one row high splits into units of height 0 and 1 forever.
const MinThreshold = 2

// Unit is the half-open row range [Start, End) across the full raster width.
type Unit struct {
	Start, End int
}

func (u Unit) Height() int {
	return u.End - u.Start
}

func (u Unit) String() string {
	return fmt.Sprintf("[%d, %d)", u.Start, u.End)
}

// Fixed splits height rows among n workers. Worker i owns
// [i*height/n, (i+1)*height/n); integer division means unit heights may
// differ by one row.
func Fixed(height, n int) ([]Unit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrWorkers, n)
	}

	units := make([]Unit, n)
	for i := range units {
		units[i] = Unit{
			Start: i * height / n,
			End:   (i + 1) * height / n,
		}
	}
	return units, nil
}

// Threshold returns the divide-and-conquer leaf threshold for a raster of the
// given height: height / (10 * cores), never less than MinThreshold.
// cores <= 0 means runtime.NumCPU().
func Threshold(height, cores int) int {
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	return max(height/(10*cores), MinThreshold)
}

// MaxDepth is the expected recursion depth for the given core count. It is
// advisory; recursion stops on the threshold, not on depth.
func MaxDepth(cores int) int {
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	return bits.Len(uint(cores)) - 1 + 5
}

// Split halves u into an upper half of h/2 rows and a lower half of h-h/2
// rows, so the lower half takes the odd row. The upper half starts where the
// lower one ends.
func Split(u Unit) (upper, lower Unit) {
	h := u.Height()
	mid := u.Start + h - h/2
	upper = Unit{Start: mid, End: u.End}
	lower = Unit{Start: u.Start, End: mid}
	return upper, lower
}

// IsLeaf reports whether u is processed serially under threshold.
func IsLeaf(u Unit, threshold int) bool {
	return u.Height() < threshold
}

// Leaves returns the units the divide-and-conquer strategy processes serially
// when started from root, in depth-first order with the upper half first.
func Leaves(root Unit, threshold int) []Unit {
	threshold = max(threshold, MinThreshold)

	var leaves []Unit
	var walk func(Unit)
	walk = func(u Unit) {
		if IsLeaf(u, threshold) {
			leaves = append(leaves, u)
			return
		}
		upper, lower := Split(u)
		walk(upper)
		walk(lower)
	}
	walk(root)

	return leaves
}

// Verify checks that units cover [0, height) exactly once. Empty units are
// ignored.
func Verify(units []Unit, height int) error {
	sorted := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.Start < 0 || u.End > height || u.Start > u.End {
			return fmt.Errorf("%w: %v not within [0, %d)", ErrOutOfRange, u, height)
		}
		if u.Height() > 0 {
			sorted = append(sorted, u)
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	next := 0
	for _, u := range sorted {
		switch {
		case u.Start > next:
			return fmt.Errorf("%w: rows [%d, %d)", ErrGap, next, u.Start)
		case u.Start < next:
			return fmt.Errorf("%w: rows [%d, %d)", ErrOverlap, u.Start, min(next, u.End))
		}
		next = u.End
	}

	if next != height {
		return fmt.Errorf("%w: rows [%d, %d)", ErrGap, next, height)
	}

	return nil
}
