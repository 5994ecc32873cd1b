// Package bmerr provides the structured error kinds that every boom
// subsystem returns, modeled as a single tagged error type rather than a
// sentinel per failure mode.
package bmerr

import "fmt"

// Kind classifies a boom error so callers can branch with errors.As without
// string-matching messages.
type Kind string

const (
	KindParse        Kind = "PARSE"
	KindProfile      Kind = "PROFILE"
	KindEntry        Kind = "ENTRY"
	KindRootDevice   Kind = "ROOT_DEVICE"
	KindLegacyFormat Kind = "LEGACY_FORMAT"
	KindCache        Kind = "CACHE"
	KindConfig       Kind = "CONFIG"
	KindIO           Kind = "IO"
)

// Error is the single error type returned from every public boom entry
// point. Context carries debugging key/value pairs (e.g. the offending
// filename or identity) without polluting the message string.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap gives errors.Is/errors.As access to the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new Error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf attaches a cause to a new Error with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithContext returns a copy of e carrying additional debug context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	merged := make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &Error{Kind: e.Kind, Message: e.Message, Cause: e.Cause, Context: merged}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var be *Error
	if ok := asError(err, &be); ok {
		return be.Kind == kind
	}
	return false
}

// asError is a small local stand-in for errors.As to keep this file
// dependency-free beyond fmt; it still honours Unwrap chains.
func asError(err error, target **Error) bool {
	for err != nil {
		if be, ok := err.(*Error); ok {
			*target = be
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
