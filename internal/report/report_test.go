package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viniciusmctf/prksweep/internal/sweep"
)

func sampleReport() *sweep.Report {
	return &sweep.Report{
		Name:      "mpi1",
		Scheduler: "SLURM",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Outcomes: []sweep.Outcome{
			{NodeCount: 16, Script: "/s/transpose_0016.sh", JobName: "transpose_mpi_0016", State: sweep.StateSubmitted, JobID: "9001"},
			{NodeCount: 32, Script: "/s/transpose_0032.sh", JobName: "transpose_mpi_0032", State: sweep.StateFailed, Err: errors.New("sbatch exited 1")},
		},
	}
}

func TestNewCountsStates(t *testing.T) {
	doc := New("0.3.0", sampleReport(), nil)
	require.Len(t, doc.Sweeps, 1)

	s := doc.Sweeps[0]
	require.Equal(t, 1, s.Submitted)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, "1.5s", s.Duration)
	require.Equal(t, "sbatch exited 1", s.Jobs[1].Error)
	require.Empty(t, s.Jobs[0].Error)
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	doc := New("0.3.0", sampleReport())

	require.NoError(t, Write(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "job_id: \"9001\"")
	require.Contains(t, string(data), "state: failed")

	back, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, doc.Sweeps, back.Sweeps)
	require.True(t, doc.GeneratedAt.Equal(back.GeneratedAt))
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sweeps: [unclosed"), 0644))
	_, err = Read(bad)
	require.Error(t, err)
}
