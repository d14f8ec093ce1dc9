package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viniciusmctf/prksweep/internal/sweep"
)

func writeSweepFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweeps.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSweepFile(t *testing.T) {
	path := writeSweepFile(t, `
sweep "mpi-small" {
  preset      = "mpi1"
  node_counts = [1, 2, 4]
  partition   = "regular"

  iterations {
    cutoff = 2
  }
}

sweep "chapel-large" {
  preset      = "chapel"
  node_counts = [128, 256]
  time_limit  = "00:20:00"
  output_dir  = "/scratch/chapel"
  layout      = "rank-per-node"
}
`)

	sweeps, err := LoadSweepFile(path, "/scratch/base")
	require.NoError(t, err)
	require.Len(t, sweeps, 2)

	small := sweeps[0]
	require.Equal(t, "mpi-small", small.Name)
	require.Equal(t, []int{1, 2, 4}, small.NodeCounts)
	require.Equal(t, "regular", small.Partition)
	require.Equal(t, sweep.IterationPolicy{Cutoff: 2, Low: 25, High: 50}, small.Iterations)
	require.Equal(t, filepath.Join("/scratch/base", "mpi-small"), small.OutputDir)
	require.Equal(t, 3*time.Minute, small.TimeLimit)
	require.NoError(t, small.Validate())

	large := sweeps[1]
	require.Equal(t, "chapel", large.Kernel)
	require.Equal(t, 20*time.Minute, large.TimeLimit)
	require.Equal(t, "/scratch/chapel", large.OutputDir)
	require.Equal(t, sweep.LayoutRankPerNode, large.Layout)
	require.Equal(t, 32, large.TileSize)
}

func TestLoadSweepFileDefaultsToMPIPreset(t *testing.T) {
	path := writeSweepFile(t, `sweep "plain" {}`)

	sweeps, err := LoadSweepFile(path, ".")
	require.NoError(t, err)
	require.Len(t, sweeps, 1)
	require.Equal(t, "mpi", sweeps[0].Kernel)
	require.Equal(t, "plain", sweeps[0].Name)
}

func TestLoadSweepFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `sweep "broken" {`},
		{"unknown attribute", `sweep "x" { colour = "red" }`},
		{"no sweeps", ``},
		{"duplicate name", `
sweep "a" {}
sweep "a" {}
`},
		{"unknown preset", `sweep "a" { preset = "openmp" }`},
		{"bad time", `sweep "a" { time_limit = "soon" }`},
		{"bad layout", `sweep "a" { layout = "ring" }`},
		{"missing label", `sweep { preset = "mpi1" }`},
		{"label escapes base dir", `sweep "../x" {}`},
		{"label with slash", `sweep "runs/x" {}`},
		{"dot label", `sweep "." {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSweepFile(writeSweepFile(t, tt.content), ".")
			require.Error(t, err)
		})
	}
}

func TestLoadSweepFileMissing(t *testing.T) {
	_, err := LoadSweepFile(filepath.Join(t.TempDir(), "none.hcl"), ".")
	require.Error(t, err)
}
