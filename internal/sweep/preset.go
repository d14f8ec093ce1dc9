package sweep

import (
	"fmt"
	"sort"
	"time"
)

// powersOfTwo returns 1<<lo .. 1<<hi
func powersOfTwo(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, 1<<i)
	}
	return out
}

var presets = map[string]func() Config{
	// Flat MPI transpose, one rank per core on 24-core nodes
	"mpi1": func() Config {
		return Config{
			Name:              "mpi1",
			Kernel:            "mpi",
			Template:          "mpi1",
			NodeCounts:        powersOfTwo(0, 8),
			ProcessesPerNode:  24,
			HyperThreadFactor: 1,
			Layout:            LayoutRankPerCore,
			Iterations:        IterationPolicy{Cutoff: 16, Low: 25, High: 50},
			ProblemOrder:      49152,
			TimeLimit:         3 * time.Minute,
			Partition:         "debug",
			Binary:            "../../../MPI1/Transpose/transpose",
			OutputPrefix:      "transpose",
			OutputDir:         ".",
		}
	},
	// Chapel transpose, one locale per node using both hardware threads of every core
	"chapel": func() Config {
		return Config{
			Name:              "chapel",
			Kernel:            "chapel",
			Template:          "chapel",
			NodeCounts:        powersOfTwo(1, 8),
			ProcessesPerNode:  24,
			HyperThreadFactor: 2,
			Layout:            LayoutRankPerNode,
			Iterations:        IterationPolicy{Cutoff: 32, Low: 25, High: 50},
			ProblemOrder:      49152,
			TileSize:          32,
			TimeLimit:         10 * time.Minute,
			Partition:         "debug",
			Binary:            "../../../CHAPEL/ChapelMPI/Transpose/transpose.x",
			OutputPrefix:      "transpose",
			OutputDir:         ".",
		}
	},
}

// PresetNames returns the known preset names, sorted
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of the named sweep preset
func Preset(name string) (Config, error) {
	build, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPreset, name, PresetNames())
	}
	return build(), nil
}
