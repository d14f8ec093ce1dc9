package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// hclSweepFile is the top-level structure of a sweep file.
//
//	sweep "mpi1-small" {
//	  preset      = "mpi1"
//	  node_counts = [1, 2, 4]
//	  iterations {
//	    cutoff = 2
//	  }
//	}
type hclSweepFile struct {
	Sweeps []*hclSweep `hcl:"sweep,block"`
}

type hclSweep struct {
	Name              string         `hcl:"name,label"`
	Preset            *string        `hcl:"preset,optional"`
	Kernel            *string        `hcl:"kernel,optional"`
	Template          *string        `hcl:"template,optional"`
	NodeCounts        []int          `hcl:"node_counts,optional"`
	ProcessesPerNode  *int           `hcl:"processes_per_node,optional"`
	HyperThreadFactor *int           `hcl:"hyper_thread_factor,optional"`
	Layout            *string        `hcl:"layout,optional"`
	ProblemOrder      *int           `hcl:"problem_order,optional"`
	TileSize          *int           `hcl:"tile_size,optional"`
	TimeLimit         *string        `hcl:"time_limit,optional"`
	Partition         *string        `hcl:"partition,optional"`
	Binary            *string        `hcl:"binary,optional"`
	OutputPrefix      *string        `hcl:"output_prefix,optional"`
	OutputDir         *string        `hcl:"output_dir,optional"`
	Iterations        *hclIterations `hcl:"iterations,block"`
}

type hclIterations struct {
	Cutoff *int `hcl:"cutoff,optional"`
	Low    *int `hcl:"low,optional"`
	High   *int `hcl:"high,optional"`
}

// LoadSweepFile reads every sweep block of an HCL file, in file order.
// A sweep without output_dir writes to <baseDir>/<sweep name> so sweeps of
// one file never overwrite each other's scripts.
func LoadSweepFile(path, baseDir string) ([]sweep.Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse sweep file %s: %w", path, diags)
	}

	var parsed hclSweepFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode sweep file %s: %w", path, diags)
	}
	if len(parsed.Sweeps) == 0 {
		return nil, fmt.Errorf("sweep file %s defines no sweep blocks", path)
	}

	seen := make(map[string]bool, len(parsed.Sweeps))
	out := make([]sweep.Config, 0, len(parsed.Sweeps))
	for _, block := range parsed.Sweeps {
		if seen[block.Name] {
			return nil, fmt.Errorf("sweep file %s: sweep %q defined twice", path, block.Name)
		}
		seen[block.Name] = true
		if !validSweepName(block.Name) {
			return nil, fmt.Errorf("sweep file %s: sweep name %q must be a plain directory name", path, block.Name)
		}

		cfg, err := block.toConfig(baseDir)
		if err != nil {
			return nil, fmt.Errorf("sweep file %s: sweep %q: %w", path, block.Name, err)
		}
		out = append(out, cfg)
	}
	utils.PrintDebug("Loaded %d sweeps from %s", len(out), path)
	return out, nil
}

// validSweepName accepts labels that name a single directory below the base dir
func validSweepName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func (b *hclSweep) toConfig(baseDir string) (sweep.Config, error) {
	preset := "mpi1"
	if b.Preset != nil {
		preset = *b.Preset
	}
	cfg, err := sweep.Preset(preset)
	if err != nil {
		return sweep.Config{}, err
	}
	cfg.Name = b.Name
	cfg.OutputDir = filepath.Join(baseDir, b.Name)

	if len(b.NodeCounts) > 0 {
		cfg.NodeCounts = b.NodeCounts
	}
	setString(&cfg.Kernel, b.Kernel)
	setString(&cfg.Template, b.Template)
	setString(&cfg.Partition, b.Partition)
	setString(&cfg.Binary, b.Binary)
	setString(&cfg.OutputPrefix, b.OutputPrefix)
	setString(&cfg.OutputDir, b.OutputDir)
	setInt(&cfg.ProcessesPerNode, b.ProcessesPerNode)
	setInt(&cfg.HyperThreadFactor, b.HyperThreadFactor)
	setInt(&cfg.ProblemOrder, b.ProblemOrder)
	setInt(&cfg.TileSize, b.TileSize)

	if b.Layout != nil {
		layout, err := sweep.ParseLayout(*b.Layout)
		if err != nil {
			return sweep.Config{}, err
		}
		cfg.Layout = layout
	}
	if b.TimeLimit != nil {
		dur, err := utils.ParseDuration(*b.TimeLimit)
		if err != nil {
			return sweep.Config{}, fmt.Errorf("time_limit: %w", err)
		}
		cfg.TimeLimit = dur
	}
	if it := b.Iterations; it != nil {
		setInt(&cfg.Iterations.Cutoff, it.Cutoff)
		setInt(&cfg.Iterations.Low, it.Low)
		setInt(&cfg.Iterations.High, it.High)
	}
	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
