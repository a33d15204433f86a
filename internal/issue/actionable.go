// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is what the CLI renders on failure: which step broke,
	// on which path, and what the user can try next. Issue optionally points
	// at the catalog page describing the failure class.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("populate solutions").
	//		WithResource("/repo").
	//		WithIssue(issue.ReferenceOperationFailedId).
	//		Wrap(aggregate).
	//		BuildError()
	ActionableError struct {
		Operation   string // verb phrase, e.g. "discover projects"
		Resource    string
		Suggestions []string
		Issue       Id
		Cause       error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}

	// chainLink is one pending entry of the verbose error chain.
	chainLink struct {
		err    error
		indent int
	}
)

// NewErrorContext starts an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation attaches op to err; a nil err stays nil.
func WrapWithOperation(err error, op string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: op, Cause: err}
}

// Error renders "failed to <op>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders Error followed by the suggestions as a bullet list. In
// verbose mode it appends the numbered cause chain; errors that join
// several causes list each of them indented beneath the parent.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteByte('\n')
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		writeChain(&b, e.Cause)
	}
	return b.String()
}

func writeChain(b *strings.Builder, root error) {
	stack := []chainLink{{err: root, indent: 1}}
	for n := 1; len(stack) > 0; n++ {
		link := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fmt.Fprintf(b, "\n%s%d. %s", strings.Repeat("  ", link.indent), n, link.err)

		switch u := link.err.(type) {
		case interface{ Unwrap() []error }:
			children := u.Unwrap()
			for i := len(children) - 1; i >= 0; i-- {
				if children[i] != nil {
					stack = append(stack, chainLink{err: children[i], indent: link.indent + 1})
				}
			}
		default:
			if next := errors.Unwrap(link.err); next != nil {
				stack = append(stack, chainLink{err: next, indent: link.indent})
			}
		}
	}
}

func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// CatalogEntry returns the linked catalog Issue, or nil when none is set.
func (e *ActionableError) CatalogEntry() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends one hint; call it once per hint.
func (c *ErrorContext) WithSuggestion(s string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s)
	return c
}

func (c *ErrorContext) WithSuggestions(s ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s...)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns a copy of the accumulated error, or nil when no
// operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build typed as error so a missing operation yields a
// true nil interface.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
