package types

import "errors"

// Error kinds shared by the server, the HTTP client and the local
// projection. Callers wrap them with context and match with errors.Is.
var (
	// ErrValidation reports malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized reports an actor lacking the role or ownership
	// required for a mutation.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound reports a target id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition reports a moderation transition outside
	// pending->approved and pending->rejected.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict reports a uniqueness violation, e.g. a duplicate email.
	ErrConflict = errors.New("conflict")

	// ErrRateLimited reports a caller that exceeded its request quota.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetwork reports a transport failure with no usable response.
	ErrNetwork = errors.New("network error")
)

// ErrorCode returns the stable wire code for the kind of err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "internal"
	}
}

// ErrorForCode is the inverse of ErrorCode. Unknown codes yield nil.
func ErrorForCode(code string) error {
	switch code {
	case "validation":
		return ErrValidation
	case "unauthorized":
		return ErrUnauthorized
	case "not_found":
		return ErrNotFound
	case "invalid_transition":
		return ErrInvalidTransition
	case "conflict":
		return ErrConflict
	case "rate_limited":
		return ErrRateLimited
	case "network":
		return ErrNetwork
	default:
		return nil
	}
}
