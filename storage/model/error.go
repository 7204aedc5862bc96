package model

import (
	"fmt"
)

// NotFoundError is an error signaling that something was not found in the
// database
type NotFoundError string

// Error implements the error interface
func (e NotFoundError) Error() string {
	return string(e)
}

// NotFoundErrorFmt returns a NotFoundError from the passed format string and parameters
func NotFoundErrorFmt(format string, params ...any) NotFoundError {
	return NotFoundError(fmt.Sprintf(format, params...))
}

// AlreadyExistsError signals a unique constraint violation
type AlreadyExistsError string

// Error implements the error interface
func (e AlreadyExistsError) Error() string {
	return string(e)
}

// AlreadyExistsErrorFmt returns an AlreadyExistsError from the passed format string and parameters
func AlreadyExistsErrorFmt(format string, params ...any) AlreadyExistsError {
	return AlreadyExistsError(fmt.Sprintf(format, params...))
}

// InvalidCredentialsError is returned for unknown usernames and wrong
// passwords alike
type InvalidCredentialsError struct{}

// Error implements the error interface
func (InvalidCredentialsError) Error() string {
	return "invalid credentials"
}

// ValidationError signals bad input that is safe to show to the caller
type ValidationError string

// Error implements the error interface
func (e ValidationError) Error() string {
	return string(e)
}
