package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. The message is shared by
	// the unknown-user and wrong-password paths so callers cannot enumerate
	// accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicate indicates a unique constraint rejected an insert or update.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrUnauthenticated indicates no valid session accompanied the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrReservedRole guards mutations of the privileged role.
	ErrReservedRole = errors.New(`the "Admin" role is reserved`)
	// ErrReservedPrincipal guards mutations of the privileged account.
	ErrReservedPrincipal = errors.New(`the username "Admin" is reserved`)
	// ErrTooManyAttempts indicates the login throttle tripped.
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
)

// ValidationError carries field-scoped input errors safe to show verbatim.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// AuthzError indicates a capability or authorship-scope violation. The caller
// is already authenticated, so the message may name the missing capabilities.
type AuthzError struct {
	Message string
	// Missing lists capability ids the actor attempted to grant without
	// holding them itself.
	Missing []string
}

func (e *AuthzError) Error() string {
	if e == nil {
		return "forbidden"
	}
	return e.Message
}

// NewAuthzError builds an AuthzError with a plain message.
func NewAuthzError(message string) *AuthzError {
	return &AuthzError{Message: message}
}

// NewMissingPermissionsError names capabilities the actor does not hold.
func NewMissingPermissionsError(missing []string) *AuthzError {
	return &AuthzError{
		Message: "cannot assign permissions you do not possess: " + strings.Join(missing, ", "),
		Missing: missing,
	}
}

// ConfigError marks an operational misconfiguration (missing signing secret,
// privileged role absent after bootstrap). Fatal to the operation, logged
// loudly, and never surfaced verbatim to the caller.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration fault: %s: %v", e.Reason, e.Err)
	}
	return "configuration fault: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a configuration fault.
func NewConfigError(reason string, err error) *ConfigError {
	return &ConfigError{Reason: reason, Err: err}
}

// StoreError wraps an infrastructure failure from the credential store. Full
// detail is logged server-side; callers see a generic message.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a store failure.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// UserSafeMessage maps any error to a message safe to return to a client.
// Raw store and configuration detail never leaves the server.
func UserSafeMessage(err error) string {
	var ve *ValidationError
	var ae *AuthzError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "Invalid input."
	case errors.As(err, &ae):
		return ae.Message
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrTooManyAttempts):
		return "Too many login attempts. Please try again later."
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrDuplicate):
		return "Already exists."
	case errors.Is(err, ErrReservedRole):
		return `The "Admin" role is reserved.`
	case errors.Is(err, ErrReservedPrincipal):
		return `The username "Admin" is reserved.`
	default:
		return "An internal server error occurred. Please try again later."
	}
}
