package sweep

import (
	"path/filepath"

	"github.com/viniciusmctf/prksweep/internal/render"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// GeneratedScript is a rendered script and the path it is written to
type GeneratedScript struct {
	Run  RunConfiguration
	Path string
	Text string
}

// Plan derives the run configuration of every sweep element, in list order.
// It has no side effects.
func Plan(cfg Config) ([]RunConfiguration, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runs := make([]RunConfiguration, 0, len(cfg.NodeCounts))
	for _, nodes := range cfg.NodeCounts {
		runs = append(runs, RunConfiguration{
			NodeCount:         nodes,
			ProcessesPerNode:  cfg.ProcessesPerNode,
			HyperThreadFactor: cfg.HyperThreadFactor,
			Iterations:        cfg.Iterations.For(nodes),
			ProblemOrder:      cfg.ProblemOrder,
			TileSize:          cfg.TileSize,
			TimeLimit:         cfg.TimeLimit,
			Partition:         cfg.Partition,
			Binary:            cfg.Binary,
			Kernel:            cfg.Kernel,
			Prefix:            cfg.OutputPrefix,
			Layout:            cfg.Layout,
		})
	}
	return runs, nil
}

// Render produces the script for run without touching the filesystem
func Render(run RunConfiguration, tmpl *render.ScriptTemplate, dir string) (*GeneratedScript, error) {
	text, err := tmpl.Render(run.Values())
	if err != nil {
		return nil, err
	}
	return &GeneratedScript{
		Run:  run,
		Path: filepath.Join(dir, run.ScriptName()),
		Text: text,
	}, nil
}

// Write replaces the script file wholesale with an executable copy of Text
func (g *GeneratedScript) Write() error {
	if err := utils.ReplaceFile(g.Path, []byte(g.Text), utils.PermExec); err != nil {
		return NewFileWriteError(g.Run.NodeCount, g.Path, err)
	}
	return nil
}

// Generate renders and writes the script for run into dir
func Generate(run RunConfiguration, tmpl *render.ScriptTemplate, dir string) (*GeneratedScript, error) {
	script, err := Render(run, tmpl, dir)
	if err != nil {
		return nil, err
	}
	if err := script.Write(); err != nil {
		return nil, err
	}
	return script, nil
}
