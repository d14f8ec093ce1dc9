package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viniciusmctf/prksweep/internal/render"
	"github.com/viniciusmctf/prksweep/internal/sweep"
)

func dryRun(t *testing.T, nodes ...int) (*sweep.Report, string) {
	t.Helper()
	cfg, err := sweep.Preset("mpi1")
	require.NoError(t, err)
	cfg.NodeCounts = nodes
	cfg.OutputDir = t.TempDir()

	tmpl, err := render.Builtin("mpi1")
	require.NoError(t, err)
	rep, err := sweep.NewRunner(cfg, tmpl, nil).Run(context.Background())
	require.NoError(t, err)
	return rep, cfg.OutputDir
}

func TestWriteLoadVerify(t *testing.T) {
	rep, dir := dryRun(t, 4, 16)

	m, err := FromReport(rep)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	require.Equal(t, "generated", m.Entries[0].Job)

	path, err := Write(dir, m)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, FileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "script_0016 = transpose_0016.sh\n")

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, m, loaded)

	mismatches, err := Verify(dir)
	require.NoError(t, err)
	require.Empty(t, mismatches)
}

func TestVerifyDetectsChanges(t *testing.T) {
	rep, dir := dryRun(t, 1, 2, 4)
	m, err := FromReport(rep)
	require.NoError(t, err)
	_, err = Write(dir, m)
	require.NoError(t, err)

	// edited by hand
	require.NoError(t, os.WriteFile(m.Entries[1].Script, []byte("#!/bin/bash\necho edited\n"), 0775))
	// deleted
	require.NoError(t, os.Remove(m.Entries[2].Script))

	mismatches, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)

	require.Equal(t, 2, mismatches[0].Entry.NodeCount)
	require.NotEmpty(t, mismatches[0].Got)
	require.Contains(t, mismatches[0].String(), "manifest has")

	require.Equal(t, 4, mismatches[1].Entry.NodeCount)
	require.Empty(t, mismatches[1].Got)
	require.True(t, strings.HasSuffix(mismatches[1].String(), "missing"))
}

func TestVerifyFromAnotherDirectory(t *testing.T) {
	base := t.TempDir()
	chdir(t, base)

	cfg, err := sweep.Preset("mpi1")
	require.NoError(t, err)
	cfg.NodeCounts = []int{1, 2}
	cfg.OutputDir = filepath.Join("runs", "mpi1")
	tmpl, err := render.Builtin("mpi1")
	require.NoError(t, err)
	rep, err := sweep.NewRunner(cfg, tmpl, nil).Run(context.Background())
	require.NoError(t, err)

	m, err := FromReport(rep)
	require.NoError(t, err)
	_, err = Write(cfg.OutputDir, m)
	require.NoError(t, err)

	// from inside the output directory
	chdir(t, filepath.Join(base, "runs", "mpi1"))
	mismatches, err := Verify(".")
	require.NoError(t, err)
	require.Empty(t, mismatches)

	// from somewhere else entirely
	chdir(t, t.TempDir())
	dir := filepath.Join(base, "runs", "mpi1")
	mismatches, err = Verify(dir)
	require.NoError(t, err)
	require.Empty(t, mismatches)

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "transpose_0002.sh"), loaded.Entries[1].Script)
}

func TestWriteKeepsOutsideScriptsAbsolute(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "x.sh")
	m := &Manifest{Sweep: "a", Entries: []Entry{{NodeCount: 1, Script: outside, Checksum: "00", Job: "1"}}}
	_, err := Write(dir, m)
	require.NoError(t, err)

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, outside, loaded.Entries[0].Script)
}

func TestLoadWithoutManifest(t *testing.T) {
	_, err := Load(t.TempDir())
	require.ErrorIs(t, err, ErrNoManifest)

	_, err = Verify(t.TempDir())
	require.ErrorIs(t, err, ErrNoManifest)
}

func TestWriteRejectsUnstorableValues(t *testing.T) {
	m := &Manifest{Sweep: "a", Entries: []Entry{{NodeCount: 1, Script: "/tmp/run#1/x.sh", Checksum: "00", Job: "1"}}}
	_, err := Write(t.TempDir(), m)
	require.Error(t, err)
}

func TestChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	sum, err := Checksum(path)
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, err = Checksum(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

// chdir changes the working directory for the rest of the test and restores
// it on cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}
