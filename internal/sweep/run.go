// Package sweep generates one batch script per node count of a benchmark
// sweep and hands each script to the batch scheduler.
package sweep

import (
	"fmt"
	"time"

	"github.com/viniciusmctf/prksweep/internal/scheduler"
)

// Layout decides how the tasks of a run are grouped into launched ranks
type Layout string

const (
	// LayoutRankPerCore launches one rank per task (flat MPI)
	LayoutRankPerCore Layout = "rank-per-core"
	// LayoutRankPerNode launches one rank per node owning all of its tasks (Chapel locales)
	LayoutRankPerNode Layout = "rank-per-node"
)

// ParseLayout validates a layout name
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case LayoutRankPerCore, LayoutRankPerNode:
		return Layout(s), nil
	}
	return "", fmt.Errorf("%w: unknown layout %q (want %s or %s)", ErrInvalidConfig, s, LayoutRankPerCore, LayoutRankPerNode)
}

// IterationPolicy picks the iteration count from the node count:
// runs above Cutoff nodes use High, all others Low.
type IterationPolicy struct {
	Cutoff int
	Low    int
	High   int
}

// For returns the iteration count for nodes
func (p IterationPolicy) For(nodes int) int {
	if nodes > p.Cutoff {
		return p.High
	}
	return p.Low
}

// RunConfiguration is the immutable parameter set of one sweep element
type RunConfiguration struct {
	NodeCount         int
	ProcessesPerNode  int
	HyperThreadFactor int
	Iterations        int
	ProblemOrder      int
	TileSize          int
	TimeLimit         time.Duration
	Partition         string
	Binary            string
	Kernel            string
	Prefix            string
	Layout            Layout
}

// TotalTasks is the number of hardware threads the run occupies
func (r RunConfiguration) TotalTasks() int {
	return r.NodeCount * r.ProcessesPerNode * r.HyperThreadFactor
}

// Ranks is the number of processes launched by srun
func (r RunConfiguration) Ranks() int {
	if r.Layout == LayoutRankPerNode {
		return r.NodeCount
	}
	return r.TotalTasks()
}

// CpusPerTask is the number of hardware threads owned by each rank
func (r RunConfiguration) CpusPerTask() int {
	ranks := r.Ranks()
	if ranks == 0 {
		return 0
	}
	return r.TotalTasks() / ranks
}

// JobName is the scheduler job name, e.g. transpose_mpi_0016
func (r RunConfiguration) JobName() string {
	return fmt.Sprintf("%s_%s_%04d", r.Prefix, r.Kernel, r.NodeCount)
}

// ScriptName is the generated file name, e.g. transpose_0016.sh
func (r RunConfiguration) ScriptName() string {
	return fmt.Sprintf("%s_%04d.sh", r.Prefix, r.NodeCount)
}

// OutputName is the job's stdout file
func (r RunConfiguration) OutputName() string {
	return r.JobName() + ".out"
}

// Values returns the template slots of this run
func (r RunConfiguration) Values() map[string]any {
	return map[string]any{
		"NodeCount":         r.NodeCount,
		"ProcessesPerNode":  r.ProcessesPerNode,
		"HyperThreadFactor": r.HyperThreadFactor,
		"TotalTasks":        r.TotalTasks(),
		"Ranks":             r.Ranks(),
		"CpusPerTask":       r.CpusPerTask(),
		"Iterations":        r.Iterations,
		"ProblemOrder":      r.ProblemOrder,
		"TileSize":          r.TileSize,
		"TimeLimit":         scheduler.FormatSlurmTime(r.TimeLimit),
		"Partition":         r.Partition,
		"Binary":            r.Binary,
		"Kernel":            r.Kernel,
		"JobName":           r.JobName(),
		"OutputName":        r.OutputName(),
		"ScriptName":        r.ScriptName(),
	}
}
