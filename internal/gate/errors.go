package gate

import "errors"

// Sentinel errors returned by Gate.Authorize.
var (
	// ErrUnauthenticated means no subject identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the subject is known but the policy denies the action.
	ErrForbidden       = errors.New("forbidden")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)
