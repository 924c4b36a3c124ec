package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input that cannot be accepted.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidFilter is a ValidationError raised while parsing search parameters.
	ErrInvalidFilter = fmt.Errorf("%w: invalid filter parameters", ErrValidation)
	// ErrListingNotFound indicates that the referenced listing does not exist.
	ErrListingNotFound = errors.New("listing not found")
	// ErrForbidden indicates that the actor may not perform the action.
	ErrForbidden = errors.New("action forbidden")
	// ErrUnauthenticated indicates a request without a valid identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUpstreamStorage indicates that an image backend failed a required write.
	ErrUpstreamStorage = errors.New("image storage failure")
	// ErrPersistence indicates that the listing store failed.
	ErrPersistence = errors.New("persistence failure")
	// ErrCacheMiss is returned by caches when a key is absent.
	ErrCacheMiss = errors.New("cache miss")
	// ErrUserNotFound is returned by the user directory.
	ErrUserNotFound = errors.New("user not found")
)

// DenyReason explains why the authorization guard refused an operation.
type DenyReason string

const (
	ReasonNotOwner         DenyReason = "not_owner"
	ReasonInsufficientRole DenyReason = "insufficient_role"
)

// AccessDeniedError carries the deny reason and matches ErrForbidden.
type AccessDeniedError struct {
	Operation Operation
	Reason    DenyReason
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s: %s denied (%s)", ErrForbidden, e.Operation, e.Reason)
}

func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrForbidden
}

// Validationf wraps ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
