package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPolicy indicates the policy table failed startup validation.
	// A process holding such a table must refuse to start.
	ErrInvalidPolicy = errors.New("invalid masking policy")

	// ErrInvalidOverride indicates a per-record override was rejected.
	ErrInvalidOverride = errors.New("invalid masking override")

	// ErrInvalidArtifact indicates a policy document could not be parsed.
	ErrInvalidArtifact = errors.New("invalid policy artifact")

	errRequired = errors.New("required")
)

// ValidationError pins a policy problem to the entry that caused it.
type ValidationError struct {
	DataType string // data type of the offending entry (may be empty)
	Tier     string // tier of the offending entry (may be empty)
	Field    string // field name (optional)
	Err      error  // underlying error
}

// Error returns formatted error message.
func (e *ValidationError) Error() string {
	loc := e.DataType
	if e.Tier != "" {
		loc += "/" + e.Tier
	}
	if e.Field != "" {
		return fmt.Sprintf("policy entry '%s': field '%s': %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("policy entry '%s': %v", loc, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes every ValidationError match ErrInvalidPolicy.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPolicy
}

func newValidationError(dataType, tier, field string, err error) *ValidationError {
	return &ValidationError{DataType: dataType, Tier: tier, Field: field, Err: err}
}
