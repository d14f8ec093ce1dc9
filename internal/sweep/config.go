package sweep

import (
	"fmt"
	"strings"
	"time"
)

// Config describes a whole sweep
type Config struct {
	Name              string // Sweep name, used in reports
	Kernel            string // Kernel tag in job names, e.g. "mpi"
	Template          string // Built-in template name or template file path
	NodeCounts        []int
	ProcessesPerNode  int
	HyperThreadFactor int
	Layout            Layout
	Iterations        IterationPolicy
	ProblemOrder      int
	TileSize          int
	TimeLimit         time.Duration
	Partition         string
	Binary            string
	OutputPrefix      string
	OutputDir         string
}

// Validate checks the sweep before anything is written
func (c Config) Validate() error {
	var problems []string
	add := func(format string, a ...any) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}

	if len(c.NodeCounts) == 0 {
		add("node_counts is empty")
	}
	seen := make(map[int]bool, len(c.NodeCounts))
	for _, n := range c.NodeCounts {
		if n <= 0 {
			add("node count %d is not positive", n)
			continue
		}
		if seen[n] {
			add("node count %d appears twice", n)
		}
		seen[n] = true
	}
	if c.ProcessesPerNode <= 0 {
		add("processes_per_node must be positive, got %d", c.ProcessesPerNode)
	}
	if c.HyperThreadFactor <= 0 {
		add("hyper_thread_factor must be positive, got %d", c.HyperThreadFactor)
	}
	if _, err := ParseLayout(string(c.Layout)); err != nil {
		add("layout %q is unknown", c.Layout)
	}
	if c.Iterations.Low <= 0 || c.Iterations.High <= 0 {
		add("iterations must be positive, got low=%d high=%d", c.Iterations.Low, c.Iterations.High)
	}
	if c.ProblemOrder <= 0 {
		add("problem_order must be positive, got %d", c.ProblemOrder)
	}
	if c.TileSize < 0 {
		add("tile_size must not be negative, got %d", c.TileSize)
	}
	if c.TimeLimit <= 0 {
		add("time_limit must be positive")
	}
	if c.OutputPrefix == "" || strings.ContainsRune(c.OutputPrefix, '/') {
		add("output_prefix %q must be a plain file name prefix", c.OutputPrefix)
	}
	if c.Kernel == "" {
		add("kernel is empty")
	}
	if c.Template == "" {
		add("template is empty")
	}
	if c.Binary == "" {
		add("binary is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
