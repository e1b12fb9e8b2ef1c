package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidStateTransition indicates a status-guarded update found the
	// record outside the required predecessor state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
