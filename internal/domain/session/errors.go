package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned by Storage.Load when no record exists for the key.
	ErrNotFound = errors.New("session record not found")

	// ErrMissingToken is returned when an authenticated session has no token.
	ErrMissingToken = errors.New("session token is required")

	// ErrMissingUser is returned when an authenticated session has no user.
	ErrMissingUser = errors.New("session user is required")

	// ErrInvalidUser matches any *InvalidUserError via errors.Is.
	ErrInvalidUser = errors.New("invalid session user")

	// ErrMalformedRecord is returned when a durable record cannot be decoded.
	ErrMalformedRecord = errors.New("malformed session record")
)

// InvalidUserError wraps the validation failure for a User.
type InvalidUserError struct {
	Err error
}

// Error lists the failing fields.
func (e *InvalidUserError) Error() string {
	var verrs validator.ValidationErrors
	if errors.As(e.Err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return "invalid session user: " + strings.Join(fields, ", ")
	}
	return fmt.Sprintf("invalid session user: %v", e.Err)
}

// Unwrap returns the underlying validation error.
func (e *InvalidUserError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, ErrInvalidUser).
func (e *InvalidUserError) Is(target error) bool {
	return target == ErrInvalidUser
}
