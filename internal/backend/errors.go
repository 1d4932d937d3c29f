package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of launch failure categories
type Kind int

const (
	KindOther Kind = iota
	KindConflict
	KindUserUninitialized
	KindLauncherNotFound
)

// Markers the agent embeds in launch error strings
const (
	MarkerConflict          = "CONFLICT"
	MarkerUserUninitialized = "USER_UNINITIALIZED"
	MarkerLauncherNotFound  = "BNET_NOT_FOUND"
)

// classification order matters: a message is assigned the first marker it contains
var markers = []struct {
	marker string
	kind   Kind
}{
	{MarkerConflict, KindConflict},
	{MarkerUserUninitialized, KindUserUninitialized},
	{MarkerLauncherNotFound, KindLauncherNotFound},
}

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindUserUninitialized:
		return "user_uninitialized"
	case KindLauncherNotFound:
		return "launcher_not_found"
	default:
		return "other"
	}
}

// Recoverable reports whether the kind can be resolved through a user decision
func (k Kind) Recoverable() bool {
	return k == KindConflict || k == KindUserUninitialized
}

// Classify maps a raw agent error message to its Kind
func Classify(raw string) Kind {
	for _, m := range markers {
		if strings.Contains(raw, m.marker) {
			return m.kind
		}
	}
	return KindOther
}

// LaunchError is a classified launch failure
type LaunchError struct {
	Kind    Kind
	Message string
}

// Error implements error interface
func (e *LaunchError) Error() string {
	return e.Message
}

// NewLaunchError classifies a raw message into a LaunchError
func NewLaunchError(raw string) *LaunchError {
	return &LaunchError{Kind: Classify(raw), Message: raw}
}

// AsLaunchError returns err as a *LaunchError. Errors that did not come
// from the agent (transport failures) are classified as KindOther.
func AsLaunchError(err error) *LaunchError {
	if err == nil {
		return nil
	}
	var le *LaunchError
	if errors.As(err, &le) {
		return le
	}
	return &LaunchError{Kind: KindOther, Message: err.Error()}
}

// RPCError is an error string returned by the agent for a command
type RPCError struct {
	Command string
	Message string
}

// Error implements error interface
func (e *RPCError) Error() string {
	return e.Message
}

// TransportError wraps a failure to reach the agent at all
type TransportError struct {
	Command string
	Err     error
}

// Error implements error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}
