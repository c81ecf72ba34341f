package domain

import "fmt"

// ValidationError represents rejected client input. Handlers map it to a
// 400-class response; no write happens when one is returned.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input"
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var (
	ErrInvalidIdentity  = ValidationError{Field: "email"}
	ErrInvalidEventKind = ValidationError{Field: "event"}
	ErrEmptySecret      = ValidationError{Field: "password"}
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}
