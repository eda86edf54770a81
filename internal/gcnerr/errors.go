/*
errors.go, part of GCNdesign



LICENSE

Copyright (c) 2024 Raul Mera <rmeraa{at}academicosDOTutaDOTcl>


This program, including its documentation,
is free software; you can redistribute it and/or modify
it under the terms of the GNU General Public License version 2.0 as
published by the Free Software Foundation.

This program and its documentation is distributed in the hope that
it will be useful, but WITHOUT ANY WARRANTY; without even the
implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR
PURPOSE.  See the GNU General Public License for more details.

You should have received a copy of the GNU General
Public License along with this program.  If not, see
<http://www.gnu.org/licenses/>.

*/

// Package gcnerr holds the error taxonomy shared by every GCNdesign package.
// Concrete errors wrap one of the sentinels below, so callers classify
// failures with errors.Is.
package gcnerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputNotFound is returned for a missing structure, list, parameter or checkpoint file.
	ErrInputNotFound = errors.New("input not found")

	// ErrDataNotFound is returned when a training or validation list names a missing file.
	// It always wraps ErrInputNotFound too.
	ErrDataNotFound = errors.New("data not found")

	// ErrMalformedStructure is returned for unparsable or incomplete backbone geometry.
	ErrMalformedStructure = errors.New("malformed structure")

	// ErrShapeMismatch is returned when persisted parameters or configurations do not
	// match the requested architecture.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDeviceUnavailable is returned when the requested compute device is not present.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrInvalidConfig is returned when a hyperparameter record fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InputNotFound builds the error for a missing file.
func InputNotFound(kind, path string) error {
	return fmt.Errorf("%s file %q: %w", kind, path, ErrInputNotFound)
}

// DataNotFound builds the error for a missing file listed in a data list.
func DataNotFound(list, path string) error {
	return fmt.Errorf("file %q listed in %q: %w: %w", path, list, ErrDataNotFound, ErrInputNotFound)
}

// ShapeMismatch formats a shape error for the named tensor or field.
func ShapeMismatch(what string, format string, a ...any) error {
	return fmt.Errorf("%s: %s: %w", what, fmt.Sprintf(format, a...), ErrShapeMismatch)
}

// StructureError reports a malformed structure, with the residue that caused it
// when there is one.
type StructureError struct {
	File    string
	Chain   string
	ResNum  int
	ResName string
	Msg     string
	//the functions the error went through, innermost first, like gochem's CError.
	deco []string
}

func (e *StructureError) Error() string {
	var b strings.Builder
	if len(e.deco) > 0 {
		b.WriteString(strings.Join(e.deco, ": "))
		b.WriteString(": ")
	}
	if e.File != "" {
		fmt.Fprintf(&b, "%s: ", e.File)
	}
	if e.ResName != "" || e.ResNum != 0 {
		fmt.Fprintf(&b, "residue %s%d%s: ", e.ResName, e.ResNum, e.Chain)
	}
	b.WriteString(e.Msg)
	return b.String()
}

// Decorate adds the caller name to the error trace and returns the trace.
func (e *StructureError) Decorate(dec string) []string {
	if dec != "" {
		e.deco = append([]string{dec}, e.deco...)
	}
	return e.deco
}

func (e *StructureError) Unwrap() error { return ErrMalformedStructure }

// Malformed builds a StructureError without residue context.
func Malformed(file, format string, a ...any) *StructureError {
	return &StructureError{File: file, Msg: fmt.Sprintf(format, a...)}
}
