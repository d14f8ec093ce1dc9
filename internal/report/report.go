// Package report writes the outcome of one or more sweeps as YAML.
package report

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// Document is the top-level report file
type Document struct {
	Version     string    `yaml:"version"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Sweeps      []Sweep   `yaml:"sweeps"`
}

// Sweep summarises one sweep
type Sweep struct {
	Name      string    `yaml:"name"`
	Scheduler string    `yaml:"scheduler,omitempty"`
	StartedAt time.Time `yaml:"started_at"`
	Duration  string    `yaml:"duration"`
	Cancelled bool      `yaml:"cancelled,omitempty"`
	Submitted int       `yaml:"submitted"`
	Failed    int       `yaml:"failed"`
	Jobs      []Job     `yaml:"jobs"`
}

// Job is the outcome of one sweep element
type Job struct {
	Nodes   int    `yaml:"nodes"`
	Script  string `yaml:"script,omitempty"`
	JobName string `yaml:"job_name"`
	State   string `yaml:"state"`
	JobID   string `yaml:"job_id,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// New builds a report document from sweep reports
func New(version string, reps ...*sweep.Report) *Document {
	doc := &Document{
		Version:     version,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, rep := range reps {
		if rep == nil {
			continue
		}
		s := Sweep{
			Name:      rep.Name,
			Scheduler: rep.Scheduler,
			StartedAt: rep.StartedAt.UTC().Truncate(time.Second),
			Duration:  rep.Duration.Round(time.Millisecond).String(),
			Cancelled: rep.Cancelled,
		}
		for _, out := range rep.Outcomes {
			job := Job{
				Nodes:   out.NodeCount,
				Script:  out.Script,
				JobName: out.JobName,
				State:   string(out.State),
				JobID:   out.JobID,
			}
			if out.Err != nil {
				job.Error = out.Err.Error()
			}
			switch out.State {
			case sweep.StateSubmitted:
				s.Submitted++
			case sweep.StateFailed:
				s.Failed++
			}
			s.Jobs = append(s.Jobs, job)
		}
		doc.Sweeps = append(doc.Sweeps, s)
	}
	return doc
}

// Write stores doc at path as YAML
func Write(path string, doc *Document) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := utils.ReplaceFile(path, buf.Bytes(), utils.PermFile); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// Read loads a report written by Write
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &doc, nil
}
