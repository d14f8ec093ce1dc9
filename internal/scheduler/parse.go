package scheduler

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// ScriptSpecs holds the scheduler directives read back from a batch script
type ScriptSpecs struct {
	ScriptPath  string
	JobName     string
	Stdout      string
	Partition   string
	Nodes       int
	Ntasks      int
	CpusPerTask int
	Time        time.Duration

	HasDirectives  bool     // At least one directive was found
	RawFlags       []string // Every directive in file order
	RemainingFlags []string // Directives not understood by the parser
}

// readFileLines opens a file and returns all its lines.
// Shared helper used by all scheduler ReadScriptSpecs implementations.
func readFileLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading script: %w", err)
	}
	return lines, nil
}

// parseScript runs extractor over lines and feeds each directive to apply.
// A directive that apply knows but cannot parse is a ParseError.
// RawFlags is the immutable audit log of ALL directives in the script.
func parseScript(
	lines []string,
	extractor func([]string) []string,
	apply func(*ScriptSpecs, string) (bool, error),
) (*ScriptSpecs, error) {
	directives := extractor(lines)
	specs := &ScriptSpecs{
		HasDirectives: len(directives) > 0,
		RawFlags:      directives,
	}

	for _, flag := range directives {
		known, err := apply(specs, flag)
		if err != nil {
			return nil, NewParseError("directive", lineOf(lines, flag), flag, err.Error())
		}
		if !known {
			specs.RemainingFlags = append(specs.RemainingFlags, flag)
		}
	}
	return specs, nil
}

// lineOf returns the 1-based line holding directive, or 0
func lineOf(lines []string, directive string) int {
	for i, line := range lines {
		if strings.Contains(line, directive) {
			return i + 1
		}
	}
	return 0
}

// stripInlineComment removes a trailing "# comment" from a directive value
func stripInlineComment(s string) string {
	if idx := strings.Index(s, " #"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
