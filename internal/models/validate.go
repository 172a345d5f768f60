package models

import (
	"fmt"
	"strings"
)

// FieldError reports a single form field that failed validation. Field
// errors are shown inline next to the field; they never reach the
// request pipeline.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the user-entered fields of an action form.
func (a Action) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(a.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(a.Prompt) == "" {
		errs = append(errs, FieldError{Field: "prompt", Message: "prompt is required"})
	} else if !strings.Contains(a.Prompt, "{{") {
		errs = append(errs, FieldError{Field: "prompt", Message: "prompt needs at least one {{placeholder}}"})
	}
	if strings.TrimSpace(a.ModelID) == "" {
		errs = append(errs, FieldError{Field: "model", Message: "model is required"})
	}
	return errs
}

// Validate checks the user-entered fields of a model configuration form.
func (m ModelConfig) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(m.Option) == "" {
		errs = append(errs, FieldError{Field: "option", Message: "model option is required"})
	}
	if m.Temperature < 0 || m.Temperature > 2 {
		errs = append(errs, FieldError{Field: "temperature", Message: "temperature must be between 0 and 2"})
	}
	return errs
}
