package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPbsSubmit(t *testing.T) {
	bin := writeFakeTool(t, "qsub", `echo "1234.pbs-server"`)
	script := writeJobScript(t, "#!/bin/bash\n#PBS -l nodes=16:ppn=24\n")

	res := newPbsParser(bin).Submit(context.Background(), script)
	if !res.OK() {
		t.Fatalf("Submit failed: %v", res.Err)
	}
	if res.JobID != "1234.pbs-server" {
		t.Errorf("JobID = %q; want 1234.pbs-server", res.JobID)
	}
}

func TestPbsSubmitFailure(t *testing.T) {
	bin := writeFakeTool(t, "qsub", `echo "qsub: Unknown queue" >&2; exit 3`)
	script := writeJobScript(t, "#!/bin/bash\n#PBS -q nowhere\n")

	res := newPbsParser(bin).Submit(context.Background(), script)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if !IsExternalToolError(res.Err) {
		t.Errorf("error = %v; want ExternalToolError", res.Err)
	}
}

func TestPbsSubmitRejectsSlurmScript(t *testing.T) {
	record := filepath.Join(t.TempDir(), "called")
	bin := writeFakeTool(t, "qsub", "touch "+record+"\necho 1234.pbs-server")
	script := writeJobScript(t, "#!/bin/bash -l\n#SBATCH -N 16\n#SBATCH -t 00:03:00\nsrun ./transpose\n")

	res := newPbsParser(bin).Submit(context.Background(), script)
	if res.OK() {
		t.Fatal("expected a script without #PBS lines to be refused")
	}
	if !errors.Is(res.Err, ErrNoDirectives) {
		t.Errorf("error = %v; want ErrNoDirectives", res.Err)
	}
	if _, err := os.Stat(record); err == nil {
		t.Error("qsub was called for a script without #PBS lines")
	}
}

func TestReadAnyScriptSpecs(t *testing.T) {
	dir := t.TempDir()
	slurm := filepath.Join(dir, "a.sh")
	pbs := filepath.Join(dir, "b.pbs")
	if err := os.WriteFile(slurm, []byte("#!/bin/bash\n#SBATCH -N 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pbs, []byte("#!/bin/bash\n#PBS -l nodes=2:ppn=4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	specs, err := ReadAnyScriptSpecs(slurm)
	if err != nil || specs.Nodes != 8 {
		t.Errorf("SLURM script: specs=%+v err=%v; want 8 nodes", specs, err)
	}
	specs, err = ReadAnyScriptSpecs(pbs)
	if err != nil || specs.Nodes != 2 || specs.Ntasks != 8 {
		t.Errorf("PBS script: specs=%+v err=%v; want 2 nodes, 8 tasks", specs, err)
	}
}

func TestPbsReadScriptSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pbs")
	content := `#!/bin/bash
#PBS -N transpose_mpi_0004
#PBS -q debug
#PBS -o transpose_mpi_0004.out
#PBS -l nodes=4:ppn=24,walltime=00:03:00
#PBS -j oe
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	specs, err := newPbsParser("").ReadScriptSpecs(path)
	if err != nil {
		t.Fatalf("ReadScriptSpecs failed: %v", err)
	}
	if specs.JobName != "transpose_mpi_0004" || specs.Partition != "debug" || specs.Stdout != "transpose_mpi_0004.out" {
		t.Errorf("control fields = %+v", specs)
	}
	if specs.Nodes != 4 || specs.Ntasks != 96 {
		t.Errorf("Nodes/Ntasks = %d/%d; want 4/96", specs.Nodes, specs.Ntasks)
	}
	if specs.Time != 3*time.Minute {
		t.Errorf("Time = %v; want 3m", specs.Time)
	}
	if len(specs.RemainingFlags) != 1 {
		t.Errorf("RemainingFlags = %v; want [-j oe]", specs.RemainingFlags)
	}
}
