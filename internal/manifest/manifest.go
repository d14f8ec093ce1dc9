// Package manifest records the scripts a sweep generated, with their
// checksums and job ids, in a key/value file next to the scripts.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gvallee/go_util/pkg/util"
	"github.com/gvallee/kv/pkg/kv"

	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// FileName is the manifest file written into each output directory
const FileName = "sweep.MANIFEST"

const (
	sweepKey     = "sweep"
	scriptPrefix = "script_"
	hashPrefix   = "sha256_"
	jobPrefix    = "job_"
)

// ErrNoManifest indicates the directory holds no manifest
var ErrNoManifest = errors.New("no manifest found")

// Entry describes one generated script
type Entry struct {
	NodeCount int
	Script    string
	Checksum  string // sha256 of the script, hex
	Job       string // Job id, or the element state when there is none
}

// Manifest is the content of a sweep.MANIFEST file
type Manifest struct {
	Sweep   string
	Entries []Entry
}

// Checksum returns the hex sha256 of a file
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FromReport builds a manifest from the scripts a sweep wrote. Elements that
// never produced a script are left out.
func FromReport(rep *sweep.Report) (*Manifest, error) {
	m := &Manifest{Sweep: rep.Name}
	for _, out := range rep.Outcomes {
		if out.Script == "" {
			continue
		}
		sum, err := Checksum(out.Script)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", out.Script, err)
		}
		job := out.JobID
		if job == "" {
			job = string(out.State)
		}
		m.Entries = append(m.Entries, Entry{
			NodeCount: out.NodeCount,
			Script:    out.Script,
			Checksum:  sum,
			Job:       job,
		})
	}
	return m, nil
}

// Path returns the manifest location inside dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Write replaces the manifest of dir
func Write(dir string, m *Manifest) (string, error) {
	kvs := []kv.KV{{Key: sweepKey, Value: m.Sweep}}
	for _, e := range m.Entries {
		suffix := fmt.Sprintf("%04d", e.NodeCount)
		kvs = append(kvs,
			kv.KV{Key: scriptPrefix + suffix, Value: relativeTo(dir, e.Script)},
			kv.KV{Key: hashPrefix + suffix, Value: e.Checksum},
			kv.KV{Key: jobPrefix + suffix, Value: e.Job},
		)
	}
	for _, pair := range kvs {
		// the kv reader splits on '=' and drops any line holding '#'
		if strings.ContainsAny(pair.Value, "=#\n") {
			return "", fmt.Errorf("manifest value %q for %s cannot be stored", pair.Value, pair.Key)
		}
	}

	lines := append([]string{"# prksweep manifest, do not edit"}, kv.ToStringSlice(kvs)...)
	path := Path(dir)
	if err := utils.ReplaceFile(path, []byte(strings.Join(lines, "\n")+"\n"), utils.PermFile); err != nil {
		return "", fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return path, nil
}

// relativeTo returns script relative to dir so the manifest stays valid from
// any working directory. Scripts outside dir are stored absolute.
func relativeTo(dir, script string) string {
	absScript, err := filepath.Abs(script)
	if err != nil {
		return script
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return absScript
	}
	rel, err := filepath.Rel(absDir, absScript)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absScript
	}
	return rel
}

// Load reads the manifest of dir. Script paths are resolved against dir.
func Load(dir string) (*Manifest, error) {
	path := Path(dir)
	if !util.PathExists(path) {
		return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}

	kvs, err := kv.LoadKeyValueConfig(path)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Sweep: kv.GetValue(kvs, sweepKey)}
	for _, pair := range kvs {
		if !strings.HasPrefix(pair.Key, scriptPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(pair.Key, scriptPrefix)
		nodes, err := strconv.Atoi(suffix)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: bad key %q", path, pair.Key)
		}
		script := strings.TrimSpace(pair.Value)
		if !filepath.IsAbs(script) {
			script = filepath.Join(dir, script)
		}
		m.Entries = append(m.Entries, Entry{
			NodeCount: nodes,
			Script:    script,
			Checksum:  strings.TrimSpace(kv.GetValue(kvs, hashPrefix+suffix)),
			Job:       strings.TrimSpace(kv.GetValue(kvs, jobPrefix+suffix)),
		})
	}
	sort.SliceStable(m.Entries, func(i, j int) bool {
		return m.Entries[i].NodeCount < m.Entries[j].NodeCount
	})
	return m, nil
}

// Mismatch is a script whose content no longer matches the manifest
type Mismatch struct {
	Entry Entry
	Got   string // Current checksum, empty when the script is gone
}

func (m Mismatch) String() string {
	if m.Got == "" {
		return fmt.Sprintf("%s (%d nodes): missing", m.Entry.Script, m.Entry.NodeCount)
	}
	return fmt.Sprintf("%s (%d nodes): sha256 %s, manifest has %s", m.Entry.Script, m.Entry.NodeCount, m.Got, m.Entry.Checksum)
}

// Verify re-hashes every script listed in the manifest of dir
func Verify(dir string) ([]Mismatch, error) {
	m, err := Load(dir)
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for _, e := range m.Entries {
		if !util.FileExists(e.Script) {
			mismatches = append(mismatches, Mismatch{Entry: e})
			continue
		}
		sum, err := Checksum(e.Script)
		if err != nil {
			return nil, err
		}
		if sum != e.Checksum {
			mismatches = append(mismatches, Mismatch{Entry: e, Got: sum})
		}
	}
	return mismatches, nil
}
