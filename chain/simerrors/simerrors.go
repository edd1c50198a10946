// Package simerrors models the four error kinds (see Kind) the Simulation Engine, Overlay State Manager and Signature
// Matcher raise across their shared boundary, the way cmd/exitcodes models exit-code-carrying errors for the CLI layer.
package simerrors

import (
	"github.com/pkg/errors"
)

// Kind classifies a SimError for propagation-policy decisions (InvalidArgument/Precondition/Upstream cause the
// surrounding bundle to revert; Internal escapes to the caller unchanged; EvmException is never constructed here —
// it lives on the receipt, not as a Go error).
type Kind int

const (
	// InvalidArgument covers a malformed address, a call missing `to`, or a bad block tag.
	InvalidArgument Kind = iota
	// Precondition covers a synthetic-key request against an unregistered public key.
	Precondition
	// Upstream covers a remote RPC failure that preparation cannot recover from.
	Upstream
	// Internal covers an invariant breach in the Signature Matcher's reverse map or an EVM contract violation.
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case Precondition:
		return "Precondition"
	case Upstream:
		return "Upstream"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// SimError wraps an inner error with a Kind, preserving the stack trace pkg/errors attaches at construction.
type SimError struct {
	kind  Kind
	inner error
}

func (e *SimError) Error() string {
	return e.kind.String() + ": " + e.inner.Error()
}

// Unwrap allows errors.Is/errors.As to see through to the inner error.
func (e *SimError) Unwrap() error {
	return e.inner
}

// Cause allows pkg/errors' errors.Cause to see through to the inner error.
func (e *SimError) Cause() error {
	return e.inner
}

// Kind returns the error's taxonomy kind.
func (e *SimError) Kind() Kind {
	return e.kind
}

// New constructs a Kind-tagged SimError from a message, attaching a stack trace at the call site.
func New(kind Kind, message string) *SimError {
	return &SimError{kind: kind, inner: errors.New(message)}
}

// Wrap attaches kind and message to an existing error, preserving cause for errors.Cause(). Returns nil if err is nil.
func Wrap(err error, kind Kind, message string) *SimError {
	if err == nil {
		return nil
	}
	return &SimError{kind: kind, inner: errors.Wrap(err, message)}
}

// Is reports whether err is a *SimError of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*SimError)
	return ok && se.kind == kind
}
