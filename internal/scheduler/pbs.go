package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/viniciusmctf/prksweep/internal/utils"
)

// PbsScheduler implements the Scheduler interface for PBS/Torque
type PbsScheduler struct {
	qsubBin     string
	directiveRe *regexp.Regexp
	jobIDRe     *regexp.Regexp
}

// NewPbsScheduler creates a new PBS scheduler instance using qsub from PATH
func NewPbsScheduler() (*PbsScheduler, error) {
	return newPbsSchedulerWithBinary("")
}

// NewPbsSchedulerWithBinary creates a PBS scheduler using an explicit qsub path
func NewPbsSchedulerWithBinary(qsubBin string) (*PbsScheduler, error) {
	return newPbsSchedulerWithBinary(qsubBin)
}

func newPbsSchedulerWithBinary(qsubBin string) (*PbsScheduler, error) {
	binPath, err := resolveBinary(qsubBin, "qsub")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulerNotFound, err)
	}
	return newPbsParser(binPath), nil
}

func newPbsParser(binPath string) *PbsScheduler {
	return &PbsScheduler{
		qsubBin:     binPath,
		directiveRe: regexp.MustCompile(`^\s*#PBS\s+(.+)$`),
		jobIDRe:     regexp.MustCompile(`^\d+(\.\S+)?$`),
	}
}

// IsAvailable checks if qsub is configured
func (p *PbsScheduler) IsAvailable() bool {
	return p.qsubBin != ""
}

// GetInfo returns information about the PBS scheduler
func (p *PbsScheduler) GetInfo() *SchedulerInfo {
	return &SchedulerInfo{
		Type:      string(SchedulerPBS),
		Binary:    p.qsubBin,
		InJob:     IsInsideJob(),
		Available: p.IsAvailable(),
	}
}

// Submit submits a PBS job script
func (p *PbsScheduler) Submit(ctx context.Context, scriptPath string) SubmitResult {
	if !utils.FileExists(scriptPath) {
		return Failed(fmt.Errorf("%w: %s", ErrScriptNotFound, scriptPath))
	}

	// qsub ignores #SBATCH lines and would queue the job with default resources
	lines, err := readFileLines(scriptPath)
	if err != nil {
		return Failed(err)
	}
	if len(p.extractDirectives(lines)) == 0 {
		return Failed(fmt.Errorf("%w: %s has no #PBS lines", ErrNoDirectives, filepath.Base(scriptPath)))
	}

	output, exitCode, err := runTool(ctx, p.qsubBin, scriptPath)
	if err != nil {
		return Failed(NewExternalToolError("PBS", p.qsubBin, filepath.Base(scriptPath), exitCode, output, err))
	}

	// qsub prints the bare job id, e.g. "1234.server"
	jobID := strings.TrimSpace(output)
	if !p.jobIDRe.MatchString(jobID) {
		utils.PrintWarning("%v", fmt.Errorf("%w: %s", ErrJobIDParseFailed, jobID))
		jobID = ""
	}
	return Submitted(jobID)
}

// ReadScriptSpecs parses #PBS directives from a batch script
func (p *PbsScheduler) ReadScriptSpecs(scriptPath string) (*ScriptSpecs, error) {
	lines, err := readFileLines(scriptPath)
	if err != nil {
		return nil, err
	}
	specs, err := parseScript(lines, p.extractDirectives, parsePbsDirective)
	if err != nil {
		return nil, err
	}
	specs.ScriptPath = scriptPath
	return specs, nil
}

func (p *PbsScheduler) extractDirectives(lines []string) []string {
	var out []string
	for _, line := range lines {
		if m := p.directiveRe.FindStringSubmatch(line); m != nil {
			out = append(out, stripInlineComment(m[1]))
		}
	}
	return out
}

// parsePbsDirective understands -N, -o, -q and the nodes/walltime resource lists
func parsePbsDirective(specs *ScriptSpecs, flag string) (bool, error) {
	name, value := splitDirective(flag)
	switch name {
	case "-N":
		specs.JobName = value
	case "-o":
		specs.Stdout = value
	case "-q":
		specs.Partition = value
	case "-l":
		return true, parsePbsResources(specs, value)
	default:
		return false, nil
	}
	return true, nil
}

// parsePbsResources reads "nodes=4:ppn=24,walltime=00:10:00"
func parsePbsResources(specs *ScriptSpecs, list string) error {
	for _, item := range strings.Split(list, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case "nodes":
			nodes, ppn, _ := strings.Cut(value, ":")
			if specs.Nodes, err = strconv.Atoi(nodes); err != nil {
				return err
			}
			if strings.HasPrefix(ppn, "ppn=") {
				perNode, err := strconv.Atoi(strings.TrimPrefix(ppn, "ppn="))
				if err != nil {
					return err
				}
				specs.Ntasks = specs.Nodes * perNode
			}
		case "walltime":
			if specs.Time, err = ParseSlurmTime(value); err != nil {
				return err
			}
		}
	}
	return nil
}
