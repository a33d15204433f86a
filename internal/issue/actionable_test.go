// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "discover projects"},
			expected: "failed to discover projects",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "discover projects", Resource: "/repo"},
			expected: "failed to discover projects: /repo",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "parse project",
				Cause:     errors.New("XML syntax error on line 5"),
			},
			expected: "failed to parse project: XML syntax error on line 5",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load configuration",
				Resource:  "./slncrawl.cue",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to load configuration: ./slncrawl.cue: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("dotnet not found")
	err := NewErrorContext().WithOperation("run toolchain").Wrap(fmt.Errorf("exec: %w", sentinel)).BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped sentinel")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("errors.As should find *ActionableError")
	}
	if ae.Operation != "run toolchain" {
		t.Errorf("Operation = %q", ae.Operation)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	err := &ActionableError{
		Operation:   "populate solutions",
		Resource:    "/repo",
		Suggestions: []string{"Re-run with --verbose", "Check file locks"},
		Cause:       fmt.Errorf("outer: %w", errors.New("inner")),
	}

	plain := err.Format(false)
	if !strings.Contains(plain, "  • Re-run with --verbose") || !strings.Contains(plain, "  • Check file locks") {
		t.Errorf("Format(false) missing suggestions:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("Format(false) should not include the error chain:\n%s", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") ||
		!strings.Contains(verbose, "1. outer: inner") ||
		!strings.Contains(verbose, "2. inner") {
		t.Errorf("Format(true) missing error chain:\n%s", verbose)
	}
}

func TestActionableError_FormatJoinedCauses(t *testing.T) {
	t.Parallel()

	err := &ActionableError{
		Operation: "populate solutions",
		Cause: errors.Join(
			fmt.Errorf("A.sln: %w", errors.New("locked")),
			errors.New("B.sln: exit status 1"),
		),
	}

	verbose := err.Format(true)
	for _, want := range []string{
		"\n    2. A.sln: locked",
		"\n    3. locked",
		"\n    4. B.sln: exit status 1",
	} {
		if !strings.Contains(verbose, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, verbose)
		}
	}
	if strings.Index(verbose, "A.sln") > strings.Index(verbose, "B.sln") {
		t.Errorf("joined causes out of order:\n%s", verbose)
	}
}

func TestActionableError_HasSuggestions(t *testing.T) {
	t.Parallel()

	if (&ActionableError{Operation: "x"}).HasSuggestions() {
		t.Error("expected no suggestions")
	}
	if !(&ActionableError{Operation: "x", Suggestions: []string{"y"}}).HasSuggestions() {
		t.Error("expected suggestions")
	}
}

func TestActionableError_CatalogEntry(t *testing.T) {
	t.Parallel()

	ae := NewErrorContext().WithOperation("run toolchain").WithIssue(ToolchainNotFoundId).Build()
	entry := ae.CatalogEntry()
	if entry == nil || entry.Id() != ToolchainNotFoundId {
		t.Fatalf("CatalogEntry() = %v, want ToolchainNotFoundId", entry)
	}

	if (&ActionableError{Operation: "x"}).CatalogEntry() != nil {
		t.Error("CatalogEntry() should be nil without an issue id")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("verify solutions").
		WithResource("/repo/A/A.sln").
		WithSuggestion("first").
		WithSuggestions("second", "third").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "verify solutions" || ae.Resource != "/repo/A/A.sln" || ae.Cause != cause {
		t.Errorf("unexpected fields: %+v", ae)
	}
	if len(ae.Suggestions) != 3 || ae.Suggestions[2] != "third" {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if err := NewErrorContext().Wrap(errors.New("x")).BuildError(); err != nil {
		t.Errorf("BuildError() without operation should return nil, got %v", err)
	}
}

func TestWrapWithOperation(t *testing.T) {
	t.Parallel()

	if WrapWithOperation(nil, "anything") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}

	cause := errors.New("permission denied")
	ae := WrapWithOperation(cause, "write solution")
	if ae.Error() != "failed to write solution: permission denied" {
		t.Errorf("Error() = %q", ae.Error())
	}
}
