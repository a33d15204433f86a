// SPDX-License-Identifier: MPL-2.0

package crawl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slncrawl/slncrawl/internal/graph"
)

// ErrArtifactNotCreated is returned when the toolchain reports success for
// create but the expected solution file is still absent, as happens when
// "new sln" writes a different format than the configured extension.
var ErrArtifactNotCreated = errors.New("toolchain did not create the solution file")

// Op names a toolchain operation performed for a root.
type Op string

const (
	// OpExists is the existence check for the root's solution file.
	OpExists Op = "exists"
	// OpCreate creates the solution file.
	OpCreate Op = "create"
	// OpAdd adds a project to the solution file.
	OpAdd Op = "add"
)

type (
	// ReferenceOperationError reports the operation that stopped a root.
	ReferenceOperationError struct {
		Root   graph.ProjectPath
		Op     Op
		Target string
		Err    error
	}

	// AggregateError collects the failures of every root that did not
	// complete, ordered by root path.
	AggregateError struct {
		Errors []*ReferenceOperationError
	}
)

// Error implements the error interface.
func (e *ReferenceOperationError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %s failed: %v", e.Root, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s failed: %v", e.Root, e.Op, e.Target, e.Err)
}

// Unwrap returns the toolchain or filesystem error.
func (e *ReferenceOperationError) Unwrap() error {
	return e.Err
}

// Error joins the individual messages with newlines.
func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes every root failure to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Roots returns the failing roots.
func (e *AggregateError) Roots() []graph.ProjectPath {
	roots := make([]graph.ProjectPath, len(e.Errors))
	for i, err := range e.Errors {
		roots[i] = err.Root
	}
	return roots
}
