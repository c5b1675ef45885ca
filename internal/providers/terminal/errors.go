package terminal

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is
var (
	ErrCapacityExceeded  = errors.New("maximum terminal sessions reached")
	ErrResourceExhausted = errors.New("pty resources exhausted")
	ErrSpawnFailure      = errors.New("failed to spawn shell")
	ErrSessionNotFound   = errors.New("session not found")
	ErrIO                = errors.New("terminal i/o failed")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Generic remediation when a failure is not recognised as exhaustion
const genericSuggestion = "Check system resources and permissions"

// Error carries the failure kind, the session it concerns and a remediation hint.
type Error struct {
	Kind       error
	SessionID  string
	Err        error
	Suggestion string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.SessionID != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.SessionID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, sessionID string, err error, suggestion string) *Error {
	return &Error{Kind: kind, SessionID: sessionID, Err: err, Suggestion: suggestion}
}

func notFound(sessionID string) *Error {
	return newError(ErrSessionNotFound, sessionID, nil, "")
}

// Suggestion returns the remediation hint carried by err, if any.
func Suggestion(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Suggestion
	}
	return ""
}

var kinds = []struct {
	name string
	err  error
}{
	{"capacity_exceeded", ErrCapacityExceeded},
	{"resource_exhausted", ErrResourceExhausted},
	{"spawn_failure", ErrSpawnFailure},
	{"session_not_found", ErrSessionNotFound},
	{"io_error", ErrIO},
	{"invalid_argument", ErrInvalidArgument},
}

// Kind returns the stable wire name of err's kind, or "internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// ErrorForKind maps a wire kind back to its sentinel. Unknown kinds yield nil.
func ErrorForKind(kind string) error {
	for _, k := range kinds {
		if k.name == kind {
			return k.err
		}
	}
	return nil
}
