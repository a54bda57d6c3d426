package plane

import (
	"fmt"
	"sort"
)

// Classic landmarks of the Mandelbrot set.
var (
	// Full is the whole set, the window of the reference renders.
	Full = Window{
		MinReal: -2.0,
		MaxReal: 0.5,
		MinImag: -1.25,
		MaxImag: 1.25,
	}

	// SeahorseValley has dense filaments and repeating "seahorse" curls.
	SeahorseValley = Window{
		MinReal: -0.8,
		MaxReal: -0.7,
		MinImag: 0.05,
		MaxImag: 0.15,
	}

	// ElephantValley is a large bulb with trunk-like tendrils.
	ElephantValley = Window{
		MinReal: -1.85,
		MaxReal: -1.75,
		MinImag: -0.10,
		MaxImag: -0.02,
	}

	// SpiralMinibrot is a small copy of the set with tight spiral arms.
	SpiralMinibrot = Window{
		MinReal: -0.7435,
		MaxReal: -0.7420,
		MinImag: 0.1310,
		MaxImag: 0.1325,
	}

	// TripleSpiral has threefold symmetric spirals.
	TripleSpiral = Window{
		MinReal: -0.7480,
		MaxReal: -0.7450,
		MinImag: 0.0950,
		MaxImag: 0.0980,
	}

	// ValleyOfTheDragon has deep, highly detailed spiral filaments.
	ValleyOfTheDragon = Window{
		MinReal: -0.7400,
		MaxReal: -0.7350,
		MinImag: 0.1800,
		MaxImag: 0.1850,
	}

	// MinibrotInMiniSpiral is a self-similar copy inside a spiral arm.
	MinibrotInMiniSpiral = Window{
		MinReal: -1.7390,
		MaxReal: -1.7375,
		MinImag: -0.0235,
		MaxImag: -0.0220,
	}
)

// DefaultWindow is the window used when none is configured.
var DefaultWindow = Full

var regions = map[string]Window{
	"full":                    Full,
	"seahorse-valley":         SeahorseValley,
	"elephant-valley":         ElephantValley,
	"spiral-minibrot":         SpiralMinibrot,
	"triple-spiral":           TripleSpiral,
	"valley-of-the-dragon":    ValleyOfTheDragon,
	"minibrot-in-mini-spiral": MinibrotInMiniSpiral,
}

// Region looks up a landmark window by name.
func Region(name string) (Window, error) {
	w, ok := regions[name]
	if !ok {
		return Window{}, fmt.Errorf("%w: unknown region %q", ErrInvalidConfig, name)
	}
	return w, nil
}

// Regions returns the known region names in sorted order.
func Regions() []string {
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
