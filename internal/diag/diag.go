// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package diag defines the ScribeScript error taxonomy.
//
// Evaluation never aborts a page of content: failures are localized to
// the offending field, degraded to a safe value, and reported as
// warnings carrying one of the codes below.
package diag

import (
	"fmt"
	"strings"
)

// Code is a machine-readable diagnostic code.
type Code string

const (
	// ParseError reports malformed braces, brackets or operators.
	ParseError Code = "PARSE_ERROR"
	// UnknownIdentifier reports a reference to a quality or alias that does not exist.
	UnknownIdentifier Code = "UNKNOWN_IDENTIFIER"
	// TypeMismatch reports an operation applied to an incompatible quality type.
	TypeMismatch Code = "TYPE_MISMATCH"
	// RecursionLimitExceeded reports a description or re-parse chain that went too deep.
	RecursionLimitExceeded Code = "RECURSION_LIMIT_EXCEEDED"
	// InvalidChallengeSyntax reports a challenge field that is not a challenge.
	InvalidChallengeSyntax Code = "INVALID_CHALLENGE_SYNTAX"
	// ScheduledTargetMissing reports a pending event whose quality no longer exists.
	ScheduledTargetMissing Code = "SCHEDULED_TARGET_MISSING"
)

// Error is a localized evaluation failure.
type Error struct {
	Code    Code   // Machine-readable code
	Message string // Human-readable message for the authoring UI
	Field   string // Offending fragment, when known
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Field != "" {
		fmt.Fprintf(&sb, " (in %q)", e.Field)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a diag error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a diagnostic with a code and message.
func New(code Code, field, message string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// Newf creates a diagnostic with a formatted message.
func Newf(code Code, field, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Field: field}
}

// Wrap creates a diagnostic wrapping an underlying cause.
func Wrap(code Code, field, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Field: field, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrParse                  = &Error{Code: ParseError}
	ErrUnknownIdentifier      = &Error{Code: UnknownIdentifier}
	ErrTypeMismatch           = &Error{Code: TypeMismatch}
	ErrRecursionLimit         = &Error{Code: RecursionLimitExceeded}
	ErrInvalidChallenge       = &Error{Code: InvalidChallengeSyntax}
	ErrScheduledTargetMissing = &Error{Code: ScheduledTargetMissing}
)

// Warnings accumulates diagnostics in the order they occurred.
type Warnings []*Error

// Add appends a diagnostic.
func (w *Warnings) Add(err *Error) {
	if err != nil {
		*w = append(*w, err)
	}
}

// Has reports whether any warning carries the given code.
func (w Warnings) Has(code Code) bool {
	for _, e := range w {
		if e.Code == code {
			return true
		}
	}
	return false
}
