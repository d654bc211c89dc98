package errs

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input data is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when an operation does not fit the current view state
	ErrInvalidState = errors.New("invalid view state")

	// ErrFetchFailed is returned when the user list could not be loaded
	ErrFetchFailed = errors.New("fetch users failed")

	// ErrDeleteFailed is returned when the remote remove request did not succeed
	ErrDeleteFailed = errors.New("delete user failed")

	// ErrValidationFailed is returned when the edit form holds invalid fields
	ErrValidationFailed = errors.New("validation failed")
)
