// Package apperror holds the closed set of failures account operations report
// to their callers.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindInvalid      Kind = "invalid"
	KindBusinessRule Kind = "business_rule"
	KindExternal     Kind = "external"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalid      = &Error{Kind: KindInvalid}
	ErrBusinessRule = &Error{Kind: KindBusinessRule}
	ErrExternal     = &Error{Kind: KindExternal}
)

// Details carries structured context for an Error.
type Details struct {
	// Supported lists the accepted values when an input was rejected.
	Supported []string `json:"supported,omitempty"`
	ID        uint     `json:"id,omitempty"`
}

// Error is a typed account failure.
type Error struct {
	Kind    Kind
	Message string
	Details *Details
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports kind equality against sentinels (errors with an empty message).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Details == nil && t.Kind == e.Kind
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing user.
func NotFound(id uint) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("user %d not found", id),
		Details: &Details{ID: id},
	}
}

// Invalid reports a rejected input.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedMediaType is an Invalid error naming the accepted types.
func UnsupportedMediaType(supported ...string) *Error {
	return &Error{
		Kind:    KindInvalid,
		Message: fmt.Sprintf("unsupported media type, supported types = [%s]", strings.Join(supported, ", ")),
		Details: &Details{Supported: append([]string(nil), supported...)},
	}
}

// BusinessRule reports an operation blocked by an account invariant.
func BusinessRule(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// External wraps a provider or storage failure.
func External(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the Kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsUnsupportedMediaType reports whether err rejected an avatar content type.
func IsUnsupportedMediaType(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == KindInvalid && appErr.Details != nil && len(appErr.Details.Supported) > 0
}
