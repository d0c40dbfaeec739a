// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package diag implements the batched, per-stage diagnostic reporting
// described in spec.md §7: every pipeline stage accumulates zero or more
// Diagnostics and may not hand its result to the next stage if any of them
// is an error.
//
// The shape (an accumulator with Error/Warn/Merge/HasErrors, formatted as
// "file:line:col: kind: message") generalises the teacher's
// Diagnostic/DiagnosticLevel pair in internal/grammar/builder.go, and the
// errList accumulator pattern used by the pack's bootstrapped pigeon
// parser (other_examples/...pigeon-bootstrap-parser.go.go).
package diag

import (
	"fmt"
	"strings"

	"github.com/mdhender/polygen/internal/ast"
)

// Kind classifies a Diagnostic per spec.md §7.
type Kind string

const (
	Lexical  Kind = "LexicalError"
	Syntax   Kind = "SyntaxError"
	Include  Kind = "IncludeError"
	Semantic Kind = "SemanticError"
	Backend  Kind = "BackendError"
)

// Severity distinguishes hard errors (block the stage from proceeding)
// from warnings (collected and reported, but non-fatal).
type Severity uint8

const (
	SevError Severity = iota + 1
	SevWarn
)

// Diagnostic is one user-visible finding.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string
	At       *ast.ParseInfo

	// Snippet is an optional caret-underlined source excerpt, printed by
	// String when set. No stage in this module sets it: the core
	// pipeline only carries positions, and rendering a snippet needs the
	// file's bytes.
	Snippet string
}

// String renders "file:line:col: kind: message", per spec.md §7.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.At != nil && d.At.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", d.At.File, d.At.Line, d.At.ColumnBegin)
	}
	b.WriteString(string(d.Kind))
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Snippet != "" {
		b.WriteString("\n")
		b.WriteString(d.Snippet)
	}
	return b.String()
}

// Batch accumulates diagnostics for a single pipeline stage.
type Batch struct {
	items []Diagnostic
}

// Error records a hard error.
func (b *Batch) Error(kind Kind, at *ast.ParseInfo, format string, args ...any) {
	b.items = append(b.items, Diagnostic{
		Kind: kind, Severity: SevError, At: at,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warn records a non-fatal finding.
func (b *Batch) Warn(kind Kind, at *ast.ParseInfo, format string, args ...any) {
	b.items = append(b.items, Diagnostic{
		Kind: kind, Severity: SevWarn, At: at,
		Message: fmt.Sprintf(format, args...),
	})
}

// Merge appends another batch's diagnostics (used to fold nested include
// or query results into the current stage's batch).
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// Diagnostics returns every diagnostic collected so far, errors and warnings.
func (b *Batch) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), b.items...)
}

// HasErrors reports whether any SevError diagnostic was recorded.
func (b *Batch) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SevError {
			return true
		}
	}
	return false
}

// Err returns a non-nil error aggregating every diagnostic, or nil if
// there are none. Warnings count too, so whether a stage may proceed is
// decided by HasErrors, not by Err.
func (b *Batch) Err() error {
	if len(b.items) == 0 {
		return nil
	}
	return batchError(b.items)
}

type batchError []Diagnostic

func (e batchError) Error() string {
	lines := make([]string, len(e))
	for i, d := range e {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
