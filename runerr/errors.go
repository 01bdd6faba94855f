// Package runerr defines the configuration and usage failure taxonomy for
// joml-runner.
//
// Fixture mismatches are not errors: they are verdicts, tallied by the
// reporter. Every error that aborts a run maps to exactly one FailureClass,
// which determines the process exit code.
package runerr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable category for run-aborting failures.
type FailureClass string

const (
	CLIUsage         FailureClass = "CLI_USAGE"
	WrongDirectory   FailureClass = "WRONG_DIRECTORY"
	MissingReference FailureClass = "MISSING_REFERENCE"
	MissingInput     FailureClass = "MISSING_INPUT"
	InvalidReference FailureClass = "INVALID_REFERENCE"
	InvalidConfig    FailureClass = "INVALID_CONFIG"
	SubjectLaunch    FailureClass = "SUBJECT_LAUNCH"
	InternalIO       FailureClass = "INTERNAL_IO"
	InternalError    FailureClass = "INTERNAL_ERROR"
)

// Process exit codes.
const (
	ExitPassed       = 0
	ExitFailed       = 1
	ExitInvalidSetup = 2
	ExitInternal     = 10
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case InternalIO, InternalError:
		return ExitInternal
	default:
		return ExitInvalidSetup
	}
}

// Error is the structured error type for run-aborting failures.
type Error struct {
	Class   FailureClass
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Class, e.Path, msg)
	}
	return fmt.Sprintf("%s: %s", e.Class, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, path string, message string) *Error {
	return &Error{Class: class, Path: path, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, path string, message string, cause error) *Error {
	return &Error{Class: class, Path: path, Message: message, Cause: cause}
}

// ClassOf returns the class of the first *Error in err's chain, or
// InternalError when err carries no classification.
func ClassOf(err error) FailureClass {
	var target *Error
	if errors.As(err, &target) {
		return target.Class
	}
	return InternalError
}
