// Package errorkit provides the error kinds and propagation policy used
// throughout the credential protocol (spec §7).
package errorkit

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds named exactly per the protocol's error handling design.
var (
	ErrMalformed           = errors.New("malformed input")
	ErrMissingArtifact     = errors.New("missing artifact")
	ErrAttributeMismatch   = errors.New("attribute mismatch")
	ErrUnknownAttribute    = errors.New("unknown attribute")
	ErrCryptoFailure       = errors.New("crypto failure")
	ErrCapacityExhausted   = errors.New("revocation registry capacity exhausted")
	ErrNotIssued           = errors.New("revocation id not issued")
	ErrAlreadyRevoked      = errors.New("revocation id already revoked")
	ErrRegistryUnavailable = errors.New("registry unavailable")
	ErrUnsupportedMessage  = errors.New("unsupported message type")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context using the %w verb.
// If err is nil, Wrap returns nil.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("%s: %w", format, err)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func formatError(baseError error, format string, args ...interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: %w", format, baseError)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), baseError)
}

// Malformedf reports that input JSON failed to parse against its expected shape.
func Malformedf(format string, args ...interface{}) error {
	return formatError(ErrMalformed, format, args...)
}

// MissingArtifactf reports a Registry NotFound for a referenced DID.
func MissingArtifactf(format string, args ...interface{}) error {
	return formatError(ErrMissingArtifact, format, args...)
}

// AttributeMismatchf reports that supplied values don't match a schema's properties.
func AttributeMismatchf(format string, args ...interface{}) error {
	return formatError(ErrAttributeMismatch, format, args...)
}

// UnknownAttributef reports a revealed or referenced attribute absent from its schema.
func UnknownAttributef(format string, args ...interface{}) error {
	return formatError(ErrUnknownAttribute, format, args...)
}

// CryptoFailuref reports a negative CryptoEngine result.
func CryptoFailuref(format string, args ...interface{}) error {
	return formatError(ErrCryptoFailure, format, args...)
}

// CapacityExhaustedf reports a full revocation registry.
func CapacityExhaustedf(format string, args ...interface{}) error {
	return formatError(ErrCapacityExhausted, format, args...)
}

// NotIssuedf reports revocation of an id that was never issued.
func NotIssuedf(format string, args ...interface{}) error {
	return formatError(ErrNotIssued, format, args...)
}

// AlreadyRevokedf reports revocation of an id that is already revoked.
func AlreadyRevokedf(format string, args ...interface{}) error {
	return formatError(ErrAlreadyRevoked, format, args...)
}

// RegistryUnavailablef reports a transient Registry failure; retryable by the caller.
func RegistryUnavailablef(format string, args ...interface{}) error {
	return formatError(ErrRegistryUnavailable, format, args...)
}

// UnsupportedMessagef reports an unrecognised dispatcher message type.
func UnsupportedMessagef(format string, args ...interface{}) error {
	return formatError(ErrUnsupportedMessage, format, args...)
}

// Newf creates a new error with a formatted message, without wrapping a sentinel.
func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// kinds lists every sentinel in the order Reason checks them.
var kinds = []struct {
	sentinel error
	name     string
}{
	{ErrMalformed, "Malformed"},
	{ErrMissingArtifact, "MissingArtifact"},
	{ErrAttributeMismatch, "AttributeMismatch"},
	{ErrUnknownAttribute, "UnknownAttribute"},
	{ErrCryptoFailure, "CryptoFailure"},
	{ErrCapacityExhausted, "CapacityExhausted"},
	{ErrNotIssued, "NotIssued"},
	{ErrAlreadyRevoked, "AlreadyRevoked"},
	{ErrRegistryUnavailable, "RegistryUnavailable"},
	{ErrUnsupportedMessage, "UnsupportedMessage"},
}

// Reason returns the short name of the sentinel err's tree matches, or
// "Unknown" if none does. Used to label metrics without leaking operand
// values into a Prometheus label.
func Reason(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.name
		}
	}
	return "Unknown"
}

// Multiple combines multiple errors into a single error, dropping nils.
func Multiple(errs ...error) error {
	validErrors := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			validErrors = append(validErrors, err)
		}
	}

	switch len(validErrors) {
	case 0:
		return nil
	case 1:
		return validErrors[0]
	default:
		return &multiError{errors: validErrors}
	}
}

// multiError is an error that wraps multiple errors.
type multiError struct {
	errors []error
}

func (me *multiError) Error() string {
	if len(me.errors) == 0 {
		return ""
	}
	if len(me.errors) == 1 {
		return me.errors[0].Error()
	}
	messages := make([]string, len(me.errors))
	for i, err := range me.errors {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

func (me *multiError) Unwrap() error {
	if len(me.errors) == 0 {
		return nil
	}
	return me.errors[0]
}

func (me *multiError) Errors() []error {
	return me.errors
}
