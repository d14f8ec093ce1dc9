package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"00:03:00", 3 * time.Minute, false},
		{"00:10:00", 10 * time.Minute, false},
		{"2:30", 2*time.Hour + 30*time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"90s", 90 * time.Second, false},
		{"", 0, true},
		{"1:2:3:4", 0, true},
		{"abc", 0, true},
		{"aa:10", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDuration(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList("1,2, 4 8\t16")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 4, 8, 16}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v; want %v", got, want)
		}
	}

	if _, err := ParseIntList("1,two"); err == nil {
		t.Fatalf("expected error for non-numeric entry")
	}

	empty, err := ParseIntList("")
	if err != nil || len(empty) != 0 {
		t.Fatalf("ParseIntList(\"\") = %v, %v; want empty list", empty, err)
	}
}

func TestJoinInts(t *testing.T) {
	if got := JoinInts([]int{2, 4, 8}); got != "2,4,8" {
		t.Errorf("JoinInts = %q; want %q", got, "2,4,8")
	}
	if got := JoinInts(nil); got != "" {
		t.Errorf("JoinInts(nil) = %q; want empty", got)
	}
}

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.sh")

	if err := ReplaceFile(path, []byte("first\n"), PermExec); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}
	if err := ReplaceFile(path, []byte("second\n"), PermExec); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != "second\n" {
		t.Errorf("content = %q; want %q", data, "second\n")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("expected owner execute bit, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file in dir, found %d entries", len(entries))
	}
}

func TestReplaceFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "job.sh")
	if err := ReplaceFile(path, []byte("x"), PermFile); err == nil {
		t.Fatal("expected error when parent directory does not exist")
	}
}
