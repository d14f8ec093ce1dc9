package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/viniciusmctf/prksweep/internal/render"
	"github.com/viniciusmctf/prksweep/internal/scheduler"
)

func mpiConfig(t *testing.T, nodes ...int) Config {
	t.Helper()
	cfg, err := Preset("mpi1")
	require.NoError(t, err)
	if len(nodes) > 0 {
		cfg.NodeCounts = nodes
	}
	cfg.OutputDir = t.TempDir()
	return cfg
}

func builtin(t *testing.T, name string) *render.ScriptTemplate {
	t.Helper()
	tmpl, err := render.Builtin(name)
	require.NoError(t, err)
	return tmpl
}

func fakeSbatch(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sbatch")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestPlanSixteenAndThirtyTwoNodes(t *testing.T) {
	runs, err := Plan(mpiConfig(t, 16, 32))
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, 16, runs[0].NodeCount)
	require.Equal(t, 25, runs[0].Iterations)
	require.Equal(t, 384, runs[0].TotalTasks())
	require.Equal(t, "transpose_0016.sh", runs[0].ScriptName())
	require.Equal(t, "transpose_mpi_0016", runs[0].JobName())
	require.Equal(t, "transpose_mpi_0016.out", runs[0].OutputName())

	require.Equal(t, 50, runs[1].Iterations)
	require.Equal(t, "transpose_0032.sh", runs[1].ScriptName())
}

func TestPlanChapelLayout(t *testing.T) {
	cfg, err := Preset("chapel")
	require.NoError(t, err)
	cfg.NodeCounts = []int{32, 64}

	runs, err := Plan(cfg)
	require.NoError(t, err)

	require.Equal(t, 25, runs[0].Iterations)
	require.Equal(t, 50, runs[1].Iterations)
	require.Equal(t, 64, runs[1].Ranks())
	require.Equal(t, 48, runs[1].CpusPerTask())
	require.Equal(t, 64*48, runs[1].TotalTasks())
	require.Equal(t, "transpose_chapel_0064", runs[1].JobName())
}

func TestPresets(t *testing.T) {
	require.Equal(t, []string{"chapel", "mpi1"}, PresetNames())

	mpi, err := Preset("mpi1")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 4, 8, 16, 32, 64, 128, 256}, mpi.NodeCounts)
	require.Equal(t, 3*time.Minute, mpi.TimeLimit)
	require.NoError(t, mpi.Validate())

	chapel, err := Preset("chapel")
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 8, 16, 32, 64, 128, 256}, chapel.NodeCounts)
	require.NoError(t, chapel.Validate())

	// presets hand out copies
	mpi.NodeCounts[0] = 99
	again, _ := Preset("mpi1")
	require.Equal(t, 1, again.NodeCounts[0])

	_, err = Preset("openmp")
	require.ErrorIs(t, err, ErrUnknownPreset)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"duplicate node count", func(c *Config) { c.NodeCounts = []int{2, 4, 2} }, "appears twice"},
		{"zero node count", func(c *Config) { c.NodeCounts = []int{0} }, "not positive"},
		{"empty node counts", func(c *Config) { c.NodeCounts = nil }, "empty"},
		{"no processes", func(c *Config) { c.ProcessesPerNode = 0 }, "processes_per_node"},
		{"bad layout", func(c *Config) { c.Layout = "ring" }, "layout"},
		{"prefix with slash", func(c *Config) { c.OutputPrefix = "a/b" }, "output_prefix"},
		{"no time limit", func(c *Config) { c.TimeLimit = 0 }, "time_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := mpiConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.Contains(t, err.Error(), tt.want)

			_, err = Plan(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("rank-per-node")
	require.NoError(t, err)
	require.Equal(t, LayoutRankPerNode, l)

	_, err = ParseLayout("per-socket")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGenerateWritesExecutableScript(t *testing.T) {
	cfg := mpiConfig(t, 16)
	runs, err := Plan(cfg)
	require.NoError(t, err)

	script, err := Generate(runs[0], builtin(t, "mpi1"), cfg.OutputDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.OutputDir, "transpose_0016.sh"), script.Path)

	data, err := os.ReadFile(script.Path)
	require.NoError(t, err)
	require.Equal(t, script.Text, string(data))
	require.Contains(t, script.Text, "#SBATCH -N 16\n")
	require.Contains(t, script.Text, "srun -n 384 ../../../MPI1/Transpose/transpose 25 49152\n")

	info, err := os.Stat(script.Path)
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0100, "script should be executable")
}

func TestRegenerationIsByteIdentical(t *testing.T) {
	cfg := mpiConfig(t, 64)
	runs, err := Plan(cfg)
	require.NoError(t, err)
	tmpl := builtin(t, "mpi1")

	first, err := Generate(runs[0], tmpl, cfg.OutputDir)
	require.NoError(t, err)
	before, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	_, err = Generate(runs[0], tmpl, cfg.OutputDir)
	require.NoError(t, err)
	after, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestGenerateFileWriteError(t *testing.T) {
	// a regular file cannot hold children, even for root
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	runs, err := Plan(mpiConfig(t, 4))
	require.NoError(t, err)

	_, err = Generate(runs[0], builtin(t, "mpi1"), filepath.Join(blocker, "out"))
	require.True(t, IsFileWriteError(err))

	var fe *FileWriteError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 4, fe.NodeCount)
	require.Contains(t, fe.Error(), "transpose_0004.sh")
}

func TestRunDryRun(t *testing.T) {
	cfg := mpiConfig(t, 1, 2, 4)

	report, err := NewRunner(cfg, builtin(t, "mpi1"), nil).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Empty(t, report.Scheduler)
	require.Len(t, report.Outcomes, 3)

	for i, nodes := range []int{1, 2, 4} {
		out := report.Outcomes[i]
		require.Equal(t, nodes, out.NodeCount)
		require.Equal(t, StateGenerated, out.State)
		require.FileExists(t, out.Script)
	}
}

func TestRunCreatesOutputDir(t *testing.T) {
	cfg := mpiConfig(t, 2)
	cfg.OutputDir = filepath.Join(cfg.OutputDir, "nested", "scripts")

	report, err := NewRunner(cfg, builtin(t, "mpi1"), nil).Run(context.Background())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(cfg.OutputDir, "transpose_0002.sh"))
	require.True(t, report.OK())
}

func TestRunSubmitsEveryScript(t *testing.T) {
	bin := fakeSbatch(t, `echo "Submitted batch job 1$(basename "$1" .sh | tr -dc 0-9)"`)
	sched, err := scheduler.NewSlurmSchedulerWithBinary(bin)
	require.NoError(t, err)

	cfg := mpiConfig(t, 8, 16)
	report, err := NewRunner(cfg, builtin(t, "mpi1"), sched).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, "SLURM", report.Scheduler)

	require.Equal(t, StateSubmitted, report.Outcomes[0].State)
	require.Equal(t, "10008", report.Outcomes[0].JobID)
	require.Equal(t, "10016", report.Outcomes[1].JobID)
}

func TestRunMissingCommandContinues(t *testing.T) {
	bin := fakeSbatch(t, "exit 0")
	sched, err := scheduler.NewSlurmSchedulerWithBinary(bin)
	require.NoError(t, err)
	require.NoError(t, os.Remove(bin))

	cfg := mpiConfig(t, 1, 2, 4)
	report, err := NewRunner(cfg, builtin(t, "mpi1"), sched).Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Equal(t, 3, report.Failed())
	require.Len(t, report.Outcomes, 3)

	for _, out := range report.Outcomes {
		require.Equal(t, StateFailed, out.State)
		require.True(t, scheduler.IsExternalToolError(out.Err), "got %v", out.Err)
		// the script was still written
		require.FileExists(t, out.Script)
	}
}

func TestRunFailFastStopsAtFirstFailure(t *testing.T) {
	bin := fakeSbatch(t, `echo "sbatch: error: QOSMaxNodePerJobLimit" >&2; exit 1`)
	sched, err := scheduler.NewSlurmSchedulerWithBinary(bin)
	require.NoError(t, err)

	cfg := mpiConfig(t, 1, 2, 4)
	report, err := NewRunner(cfg, builtin(t, "mpi1"), sched, WithFailFast(true)).Run(context.Background())
	require.ErrorIs(t, err, ErrSweepAborted)
	require.True(t, report.Cancelled)
	require.Len(t, report.Outcomes, 1)
	require.Contains(t, report.Outcomes[0].Err.Error(), "QOSMaxNodePerJobLimit")
}

func TestRunSubmitTimeout(t *testing.T) {
	bin := fakeSbatch(t, `
if [ "$1" = "--version" ]; then exit 1; fi
exec sleep 10
`)
	sched, err := scheduler.NewSlurmSchedulerWithBinary(bin)
	require.NoError(t, err)

	cfg := mpiConfig(t, 1)
	report, err := NewRunner(cfg, builtin(t, "mpi1"), sched, WithSubmitTimeout(200*time.Millisecond)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFailed, report.Outcomes[0].State)
	require.ErrorIs(t, report.Outcomes[0].Err, context.DeadlineExceeded)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(mpiConfig(t, 1, 2), builtin(t, "mpi1"), nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, report.Cancelled)
	require.Empty(t, report.Outcomes)
}

func TestRunTemplateErrorContinues(t *testing.T) {
	tmpl, err := render.New("partial", "#!/bin/bash\n#SBATCH -N {{.NodeCount}} -J {{.JobName}} -o {{.OutputName}}\n{{.QueueDepth}}\n", render.RequiredSlots...)
	require.NoError(t, err)

	report, err := NewRunner(mpiConfig(t, 1, 2), tmpl, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Failed())
	for _, out := range report.Outcomes {
		require.True(t, render.IsTemplateRenderError(out.Err))
		require.Empty(t, out.Script)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := mpiConfig(t, 2, 2)
	_, err := NewRunner(cfg, builtin(t, "mpi1"), nil).Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLockDir(t *testing.T) {
	dir := t.TempDir()

	// no sweep has run here yet
	reader, err := LockDir(dir, false)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoFileExists(t, filepath.Join(dir, LockFileName))

	writer, err := LockDir(dir, true)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, LockFileName))

	_, err = LockDir(dir, true)
	require.ErrorIs(t, err, ErrDirLocked)
	_, err = LockDir(dir, false)
	require.ErrorIs(t, err, ErrDirLocked)

	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close())

	reader, err = LockDir(dir, false)
	require.NoError(t, err)
	defer reader.Close()
	other, err := LockDir(dir, false)
	require.NoError(t, err)
	require.NoError(t, other.Close())
}

func TestRunRefusesLockedDir(t *testing.T) {
	cfg := mpiConfig(t, 1)
	lock, err := LockDir(cfg.OutputDir, true)
	require.NoError(t, err)
	defer lock.Close()

	_, err = NewRunner(cfg, builtin(t, "mpi1"), nil).Run(context.Background())
	require.ErrorIs(t, err, ErrDirLocked)
	require.NoFileExists(t, filepath.Join(cfg.OutputDir, "transpose_0001.sh"))
}

func TestDerivationProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cutoff := rapid.IntRange(0, 512).Draw(t, "cutoff")
		cfg := Config{
			Name:              "prop",
			Kernel:            "mpi",
			Template:          "mpi1",
			NodeCounts:        rapid.SliceOfNDistinct(rapid.IntRange(1, 4096), 1, 20, rapid.ID[int]).Draw(t, "nodes"),
			ProcessesPerNode:  rapid.IntRange(1, 128).Draw(t, "ppn"),
			HyperThreadFactor: rapid.IntRange(1, 4).Draw(t, "ht"),
			Layout:            rapid.SampledFrom([]Layout{LayoutRankPerCore, LayoutRankPerNode}).Draw(t, "layout"),
			Iterations:        IterationPolicy{Cutoff: cutoff, Low: 25, High: 50},
			ProblemOrder:      49152,
			TimeLimit:         time.Minute,
			Binary:            "transpose",
			OutputPrefix:      "transpose",
		}

		runs, err := Plan(cfg)
		require.NoError(t, err)
		require.Len(t, runs, len(cfg.NodeCounts))

		names := make(map[string]bool)
		jobs := make(map[string]bool)
		for i, run := range runs {
			require.Equal(t, cfg.NodeCounts[i], run.NodeCount, "list order")
			require.Equal(t, run.NodeCount*cfg.ProcessesPerNode*cfg.HyperThreadFactor, run.TotalTasks())
			require.Equal(t, run.TotalTasks(), run.Ranks()*run.CpusPerTask())

			if run.NodeCount > cutoff {
				require.Equal(t, 50, run.Iterations)
			} else {
				require.Equal(t, 25, run.Iterations)
			}

			require.True(t, strings.HasPrefix(run.ScriptName(), "transpose_"))
			require.False(t, names[run.ScriptName()], "script name collision")
			require.False(t, jobs[run.JobName()], "job name collision")
			names[run.ScriptName()] = true
			jobs[run.JobName()] = true
		}

		again, err := Plan(cfg)
		require.NoError(t, err)
		require.Equal(t, runs, again)
	})
}
