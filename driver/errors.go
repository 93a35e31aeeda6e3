package driver

import "fmt"

// ElementTimeoutError reports an element that did not appear within the
// per-element timeout.
type ElementTimeoutError struct {
	Step     string
	Selector string
	Err      error
}

func (e *ElementTimeoutError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Selector)
}

func (e *ElementTimeoutError) Unwrap() error {
	return e.Err
}

// Kind labels the error for metrics.
func (e *ElementTimeoutError) Kind() string {
	return "timeout"
}

// PermissionError reports an image directory that cannot be read. A page
// reload does not fix it.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("image folder unavailable: %v", e.Err)
	}
	return fmt.Sprintf("image folder %s unavailable: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

func (e *PermissionError) Permanent() bool { return true }

func (e *PermissionError) Kind() string { return "permission" }

// FieldError reports a record value the sell form cannot accept.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (e *FieldError) Permanent() bool { return true }

func (e *FieldError) Kind() string { return "invalid_field" }

// StepError wraps a failure with the form step it happened in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type permanentError string

func (e permanentError) Error() string   { return string(e) }
func (e permanentError) Permanent() bool { return true }
func (e permanentError) Kind() string    { return "no_images" }

// ErrNoImages is returned when none of a record's images resolve.
var ErrNoImages error = permanentError("no images to upload")
