package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// InputError rejects malformed structural input such as a missing timestamp.
// Free text is never an input error: it always has a default category.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewInputError(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
