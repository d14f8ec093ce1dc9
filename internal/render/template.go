// Package render turns job script templates with named placeholders into
// batch script text.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"
	"text/template/parse"
)

// Slots every job script must reference. Without them the scheduler cannot
// tell the runs of a sweep apart.
var RequiredSlots = []string{"NodeCount", "JobName", "OutputName"}

// ScriptTemplate is a parsed job script template. It is immutable after New.
type ScriptTemplate struct {
	name  string
	text  string
	tmpl  *template.Template
	slots []string // top-level fields referenced by the template, sorted
}

// New parses text as a template named name and checks that every slot in
// required is referenced. Unknown values are an error at render time.
func New(name, text string, required ...string) (*ScriptTemplate, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, NewTemplateRenderError(name, "", err)
	}

	fields := make(map[string]bool)
	if tmpl.Tree != nil {
		collectFields(tmpl.Tree.Root, fields, false)
	}

	for _, slot := range required {
		if !fields[slot] {
			return nil, NewTemplateRenderError(name, slot, ErrRequiredSlotMissing)
		}
	}

	slots := make([]string, 0, len(fields))
	for f := range fields {
		slots = append(slots, f)
	}
	sort.Strings(slots)

	return &ScriptTemplate{
		name:  name,
		text:  text,
		tmpl:  tmpl,
		slots: slots,
	}, nil
}

// Load reads a template file from disk. The file base name becomes the
// template name and RequiredSlots are enforced.
func Load(path string) (*ScriptTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return New(filepath.Base(path), string(data), RequiredSlots...)
}

// Name returns the template name.
func (t *ScriptTemplate) Name() string { return t.name }

// Text returns the unparsed template source.
func (t *ScriptTemplate) Text() string { return t.text }

// Slots returns the top-level placeholders the template references.
func (t *ScriptTemplate) Slots() []string {
	out := make([]string, len(t.slots))
	copy(out, t.slots)
	return out
}

// Render substitutes values into the template. A referenced slot without a
// value, or any execution failure, yields a *TemplateRenderError and no
// partial output.
func (t *ScriptTemplate) Render(values map[string]any) (string, error) {
	for _, slot := range t.slots {
		if _, ok := values[slot]; !ok {
			return "", NewTemplateRenderError(t.name, slot, ErrUnknownSlot)
		}
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, values); err != nil {
		return "", NewTemplateRenderError(t.name, "", err)
	}
	return buf.String(), nil
}

// collectFields records the first identifier of every field reference
// ({{.NodeCount}} -> NodeCount). Bodies of range/with blocks rebind dot, so
// fields inside them are skipped.
func collectFields(node parse.Node, into map[string]bool, rebound bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectFields(c, into, rebound)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, into, rebound)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			collectFields(c, into, rebound)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			collectFields(a, into, rebound)
		}
	case *parse.ChainNode:
		collectFields(n.Node, into, rebound)
	case *parse.FieldNode:
		if !rebound && len(n.Ident) > 0 {
			into[n.Ident[0]] = true
		}
	case *parse.IfNode:
		collectFields(n.Pipe, into, rebound)
		collectFields(n.List, into, rebound)
		collectFields(n.ElseList, into, rebound)
	case *parse.RangeNode:
		collectFields(n.Pipe, into, rebound)
		collectFields(n.List, into, true)
		collectFields(n.ElseList, into, rebound)
	case *parse.WithNode:
		collectFields(n.Pipe, into, rebound)
		collectFields(n.List, into, true)
		collectFields(n.ElseList, into, rebound)
	case *parse.TemplateNode:
		collectFields(n.Pipe, into, rebound)
	}
}
