// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package errors provides the structured error type shared by the lexer,
// parser, loader and evaluator.
package errors

import (
	"fmt"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Source errors
	CodeLexical    Code = "LEXICAL"
	CodeStructural Code = "STRUCTURAL"

	// Resolution errors
	CodeUnresolvedFile   Code = "UNRESOLVED_FILE"
	CodeUnresolvedModule Code = "UNRESOLVED_MODULE"
	CodeUnresolvedScene  Code = "UNRESOLVED_SCENE"
	CodeIO               Code = "IO"

	// Session errors
	CodeDeadEnd          Code = "DEAD_END"
	CodeInvalidChoice    Code = "INVALID_CHOICE"
	CodeCancelled        Code = "CANCELLED"
	CodeRetriesExhausted Code = "RETRIES_EXHAUSTED"
	CodeInvalidState     Code = "INVALID_STATE"
)

// Recoverable reports whether a session may continue after an error with this code.
func (c Code) Recoverable() bool {
	return c == CodeInvalidChoice
}

// Unresolved reports whether the code is one of the unresolved-reference codes.
func (c Code) Unresolved() bool {
	switch c {
	case CodeUnresolvedFile, CodeUnresolvedModule, CodeUnresolvedScene:
		return true
	}
	return false
}

// Position locates an error in a source file. The zero value means unknown.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsZero reports whether no location is attached.
func (p Position) IsZero() bool {
	return p.File == "" && p.Line == 0
}

func (p Position) String() string {
	switch {
	case p.Line == 0:
		return p.File
	case p.File == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code     // Machine-readable error code
	Message  string   // Human-readable message
	Position Position // Source location, if any
	Address  string   // Scene address involved, if any
	Cause    error    // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if !e.Position.IsZero() {
		sb.WriteString(e.Position.String())
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At creates a domain error attached to a source position.
func At(code Code, pos Position, message string) *Error {
	return &Error{Code: code, Message: message, Position: pos}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithAddress returns a copy of e that names the scene address involved.
func (e *Error) WithAddress(addr string) *Error {
	c := *e
	c.Address = addr
	return &c
}

// Sentinels for errors.Is matching by code.
var (
	ErrLexical          = New(CodeLexical, "lexical error")
	ErrStructural       = New(CodeStructural, "structural error")
	ErrUnresolvedFile   = New(CodeUnresolvedFile, "unresolved file")
	ErrUnresolvedModule = New(CodeUnresolvedModule, "unresolved module")
	ErrUnresolvedScene  = New(CodeUnresolvedScene, "unresolved scene")
	ErrIO               = New(CodeIO, "i/o error")
	ErrDeadEnd          = New(CodeDeadEnd, "dead end")
	ErrInvalidChoice    = New(CodeInvalidChoice, "invalid choice")
	ErrCancelled        = New(CodeCancelled, "session cancelled")
	ErrRetriesExhausted = New(CodeRetriesExhausted, "too many invalid choices")
	ErrInvalidState     = New(CodeInvalidState, "invalid session state")
)

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeUnknown
}
