package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/viniciusmctf/prksweep/internal/utils"
)

// parsableSince is the first SLURM release whose sbatch understands --parsable
const parsableSince = "v14.3.0"

// versionTimeout bounds the one-off "sbatch --version" query
const versionTimeout = 10 * time.Second

// SlurmScheduler implements the Scheduler interface for SLURM
type SlurmScheduler struct {
	sbatchBin   string
	directiveRe *regexp.Regexp
	jobIDRe     *regexp.Regexp
	parsableRe  *regexp.Regexp

	versionOnce sync.Once
	version     string
}

// NewSlurmScheduler creates a new SLURM scheduler instance using sbatch from PATH
func NewSlurmScheduler() (*SlurmScheduler, error) {
	return newSlurmSchedulerWithBinary("")
}

// NewSlurmSchedulerWithBinary creates a SLURM scheduler using an explicit sbatch path
func NewSlurmSchedulerWithBinary(sbatchBin string) (*SlurmScheduler, error) {
	return newSlurmSchedulerWithBinary(sbatchBin)
}

func newSlurmSchedulerWithBinary(sbatchBin string) (*SlurmScheduler, error) {
	binPath, err := resolveBinary(sbatchBin, "sbatch")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulerNotFound, err)
	}
	return newSlurmParser(binPath), nil
}

func newSlurmParser(binPath string) *SlurmScheduler {
	return &SlurmScheduler{
		sbatchBin:   binPath,
		directiveRe: regexp.MustCompile(`^\s*#SBATCH\s+(.+)$`),
		jobIDRe:     regexp.MustCompile(`Submitted batch job (\d+)`),
		parsableRe:  regexp.MustCompile(`^(\d+)(;\S+)?$`),
	}
}

// IsAvailable checks if sbatch is configured
func (s *SlurmScheduler) IsAvailable() bool {
	return s.sbatchBin != ""
}

// GetInfo returns information about the SLURM scheduler
func (s *SlurmScheduler) GetInfo() *SchedulerInfo {
	return &SchedulerInfo{
		Type:      string(SchedulerSLURM),
		Binary:    s.sbatchBin,
		Version:   s.Version(),
		InJob:     IsInsideJob(),
		Available: s.IsAvailable(),
	}
}

// Version returns the SLURM version reported by sbatch, or "" if unknown.
// sbatch is only asked once.
func (s *SlurmScheduler) Version() string {
	s.versionOnce.Do(func() {
		if s.sbatchBin == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
		defer cancel()
		out, _, err := runTool(ctx, s.sbatchBin, "--version")
		if err != nil {
			utils.PrintDebug("Could not query SLURM version: %v", err)
			return
		}
		s.version = parseSlurmVersion(out)
	})
	return s.version
}

// parseSlurmVersion extracts "23.02.6" from output like "slurm 23.02.6"
func parseSlurmVersion(output string) string {
	for _, field := range strings.Fields(output) {
		if len(field) > 0 && field[0] >= '0' && field[0] <= '9' && strings.Contains(field, ".") {
			return field
		}
	}
	return ""
}

// canonicalSlurmVersion maps SLURM's zero-padded "23.02.6" onto "v23.2.6".
// Returns "" when the version cannot be read.
func canonicalSlurmVersion(version string) string {
	parts := strings.SplitN(version, ".", 3)
	nums := make([]int, 3)
	for i, p := range parts {
		// drop suffixes like "6-2" or "0rc1"
		end := 0
		for end < len(p) && p[end] >= '0' && p[end] <= '9' {
			end++
		}
		if end == 0 {
			if i == 0 {
				return ""
			}
			break
		}
		n, err := strconv.Atoi(p[:end])
		if err != nil {
			return ""
		}
		nums[i] = n
	}
	v := fmt.Sprintf("v%d.%d.%d", nums[0], nums[1], nums[2])
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// supportsParsable reports whether sbatch can be asked for machine-readable output
func (s *SlurmScheduler) supportsParsable() bool {
	v := canonicalSlurmVersion(s.Version())
	if v == "" {
		return false
	}
	return semver.Compare(v, parsableSince) >= 0
}

// Submit submits a SLURM batch script
func (s *SlurmScheduler) Submit(ctx context.Context, scriptPath string) SubmitResult {
	if !utils.FileExists(scriptPath) {
		return Failed(fmt.Errorf("%w: %s", ErrScriptNotFound, scriptPath))
	}

	args := []string{scriptPath}
	if s.supportsParsable() {
		args = append([]string{"--parsable"}, args...)
	}

	output, exitCode, err := runTool(ctx, s.sbatchBin, args...)
	if err != nil {
		return Failed(NewExternalToolError("SLURM", s.sbatchBin, filepath.Base(scriptPath), exitCode, output, err))
	}

	jobID, err := s.parseJobID(output)
	if err != nil {
		// sbatch accepted the script; only the id is unknown
		utils.PrintWarning("%v", err)
	}
	return Submitted(jobID)
}

// parseJobID extracts the job id from either sbatch output format
func (s *SlurmScheduler) parseJobID(output string) (string, error) {
	if m := s.jobIDRe.FindStringSubmatch(output); m != nil {
		return m[1], nil
	}
	for _, line := range strings.Split(output, "\n") {
		if m := s.parsableRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrJobIDParseFailed, strings.TrimSpace(output))
}

// ReadScriptSpecs parses #SBATCH directives from a batch script
func (s *SlurmScheduler) ReadScriptSpecs(scriptPath string) (*ScriptSpecs, error) {
	lines, err := readFileLines(scriptPath)
	if err != nil {
		return nil, err
	}
	specs, err := parseScript(lines, s.extractDirectives, parseSlurmDirective)
	if err != nil {
		return nil, err
	}
	specs.ScriptPath = scriptPath
	return specs, nil
}

// extractDirectives extracts raw directive strings from script lines (strips the #SBATCH prefix).
func (s *SlurmScheduler) extractDirectives(lines []string) []string {
	var out []string
	for _, line := range lines {
		if m := s.directiveRe.FindStringSubmatch(line); m != nil {
			out = append(out, stripInlineComment(m[1]))
		}
	}
	return out
}

// parseSlurmDirective applies one directive to specs. It returns false for
// directives it does not know.
func parseSlurmDirective(specs *ScriptSpecs, flag string) (bool, error) {
	name, value := splitDirective(flag)
	var err error
	switch name {
	case "-J", "--job-name":
		specs.JobName = value
	case "-o", "--output":
		specs.Stdout = value
	case "-p", "--partition":
		specs.Partition = value
	case "-N", "--nodes":
		specs.Nodes, err = strconv.Atoi(value)
	case "-n", "--ntasks":
		specs.Ntasks, err = strconv.Atoi(value)
	case "-c", "--cpus-per-task":
		specs.CpusPerTask, err = strconv.Atoi(value)
	case "-t", "--time":
		specs.Time, err = ParseSlurmTime(value)
	default:
		return false, nil
	}
	return true, err
}

// splitDirective turns "-N 16", "--nodes=16" and "--nodes 16" into ("-N", "16") or ("--nodes", "16")
func splitDirective(flag string) (string, string) {
	flag = strings.TrimSpace(flag)
	if strings.HasPrefix(flag, "--") {
		if idx := strings.Index(flag, "="); idx >= 0 {
			return flag[:idx], strings.TrimSpace(flag[idx+1:])
		}
	}
	fields := strings.Fields(flag)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		// "-N16"
		if len(flag) > 2 && flag[0] == '-' && flag[1] != '-' {
			return flag[:2], flag[2:]
		}
		return fields[0], ""
	}
	return fields[0], strings.TrimSpace(strings.TrimPrefix(flag, fields[0]))
}

// ParseSlurmTime parses SLURM time limits: "M", "M:S", "H:M:S", "D-H",
// "D-H:M" and "D-H:M:S".
func ParseSlurmTime(timeStr string) (time.Duration, error) {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTimeFormat)
	}

	var days int64
	hms := timeStr
	hasDays := false
	if idx := strings.Index(hms, "-"); idx >= 0 {
		parsed, err := strconv.ParseInt(hms[:idx], 10, 64)
		if err != nil || parsed < 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidTimeFormat, timeStr)
		}
		days = parsed
		hasDays = true
		hms = hms[idx+1:]
	}

	parts := strings.Split(hms, ":")
	vals := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidTimeFormat, timeStr)
		}
		vals[i] = v
	}

	var hours, minutes, seconds int64
	switch {
	case hasDays && len(vals) == 1:
		hours = vals[0]
	case hasDays && len(vals) == 2:
		hours, minutes = vals[0], vals[1]
	case len(vals) == 3:
		hours, minutes, seconds = vals[0], vals[1], vals[2]
	case !hasDays && len(vals) == 2:
		minutes, seconds = vals[0], vals[1]
	case !hasDays && len(vals) == 1:
		minutes = vals[0]
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimeFormat, timeStr)
	}

	total := days*24*3600 + hours*3600 + minutes*60 + seconds
	return time.Duration(total) * time.Second, nil
}

// FormatSlurmTime renders d as HH:MM:SS, or D-HH:MM:SS past one day.
// Sub-second remainders are rounded up so a limit is never shortened.
func FormatSlurmTime(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int64((d + time.Second - 1) / time.Second)
	days := total / (24 * 3600)
	rem := total % (24 * 3600)
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60
	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// TryParseSlurmScript attempts to parse a SLURM script without requiring SLURM binaries.
// This is a static parser that can work in any environment.
func TryParseSlurmScript(scriptPath string) (*ScriptSpecs, error) {
	return newSlurmParser("").ReadScriptSpecs(scriptPath)
}

// ReadAnyScriptSpecs reads the #SBATCH directives of a script, or its #PBS
// directives when it has no #SBATCH lines.
func ReadAnyScriptSpecs(scriptPath string) (*ScriptSpecs, error) {
	specs, err := TryParseSlurmScript(scriptPath)
	if err != nil || specs.HasDirectives {
		return specs, err
	}
	return newPbsParser("").ReadScriptSpecs(scriptPath)
}
