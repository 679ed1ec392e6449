// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package parser

import (
	"fmt"
	"strings"

	apperrors "nickandperla.net/narrate/internal/errors"
	"nickandperla.net/narrate/internal/token"
)

// Severity distinguishes fatal diagnostics from advisory ones.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a single parser finding.
type Diagnostic struct {
	Severity Severity
	Code     apperrors.Code
	Message  string
	File     string
	Pos      token.Pos
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.position(), d.Severity, d.Message)
}

func (d Diagnostic) position() apperrors.Position {
	return apperrors.Position{File: d.File, Line: d.Pos.Line, Column: d.Pos.Column}
}

// Err converts the diagnostic into a structured error.
func (d Diagnostic) Err() *apperrors.Error {
	return apperrors.At(d.Code, d.position(), d.Message)
}

// Diagnostics is the ordered list of findings for one file.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	return ds.filter(SeverityError)
}

// Warnings returns only the warning-severity diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	return ds.filter(SeverityWarning)
}

func (ds Diagnostics) filter(sev Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Err returns nil when there are no error-severity diagnostics. Otherwise it
// returns the first error, noting how many more follow.
func (ds Diagnostics) Err() error {
	errs := ds.Errors()
	if len(errs) == 0 {
		return nil
	}
	err := errs[0].Err()
	if n := len(errs) - 1; n > 0 {
		suffix := "error"
		if n > 1 {
			suffix = "errors"
		}
		err.Message = fmt.Sprintf("%s (and %d more %s)", err.Message, n, suffix)
	}
	return err
}

func (ds Diagnostics) String() string {
	var sb strings.Builder
	for _, d := range ds {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
