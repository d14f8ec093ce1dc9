package render

import (
	"errors"
	"fmt"
)

var (
	// ErrRequiredSlotMissing indicates a template does not reference a slot
	// every job script needs
	ErrRequiredSlotMissing = errors.New("required slot not referenced by template")

	// ErrUnknownSlot indicates a template references a slot no value was given for
	ErrUnknownSlot = errors.New("no value for slot")

	// ErrUnknownTemplate indicates a built-in template name is not known
	ErrUnknownTemplate = errors.New("unknown template")
)

// TemplateRenderError represents a failure to parse or render a job script template
type TemplateRenderError struct {
	Template string // Template name
	Slot     string // Offending slot, empty when not slot specific
	Err      error  // Underlying error
}

func (e *TemplateRenderError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("template %s: slot %s: %v", e.Template, e.Slot, e.Err)
	}
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateRenderError) Unwrap() error {
	return e.Err
}

// NewTemplateRenderError creates a new TemplateRenderError
func NewTemplateRenderError(template string, slot string, err error) *TemplateRenderError {
	return &TemplateRenderError{
		Template: template,
		Slot:     slot,
		Err:      err,
	}
}

// IsTemplateRenderError checks if an error is a TemplateRenderError
func IsTemplateRenderError(err error) bool {
	var te *TemplateRenderError
	return errors.As(err, &te)
}
