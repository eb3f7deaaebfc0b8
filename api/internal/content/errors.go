package content

import (
	"fmt"
	"strings"
)

// ValidationError means the caller left out a required field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return "required field: " + e.Fields[0]
	}
	return "required fields: " + strings.Join(e.Fields, ", ")
}

// UpstreamError wraps a failed call to the generation service.
type UpstreamError struct {
	Engine string
	Model  string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Engine, e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// requireFields returns a ValidationError naming every blank field, or nil.
// pairs is name, value, name, value, ...
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Fields: missing}
}
