package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidFields        = errors.New("invalid fields")
	ErrSubmitInProgress     = errors.New("submission already in progress")
	ErrUnknownField         = errors.New("unknown field")
	ErrProviderRejected     = errors.New("provider rejected")
	ErrRegistrationRejected = errors.New("registration rejected")
	ErrUnexpected           = errors.New("unexpected failure")
)

// ValidationError is returned by Submit when the fields fail validation. No
// collaborator is contacted in that case.
type ValidationError struct {
	Errors Errors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, field := range e.Errors.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return fmt.Sprintf("%v: %s", ErrInvalidFields, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidFields
}
