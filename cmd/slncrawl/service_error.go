// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/config"
	"github.com/slncrawl/slncrawl/internal/crawl"
	"github.com/slncrawl/slncrawl/internal/graph"
	"github.com/slncrawl/slncrawl/internal/issue"
	"github.com/slncrawl/slncrawl/internal/search"
	"github.com/slncrawl/slncrawl/internal/sln"
	"github.com/slncrawl/slncrawl/internal/toolchain"
	"github.com/slncrawl/slncrawl/internal/watch"
)

// errRootNotFound is returned when the crawl root is missing or not a directory.
var errRootNotFound = errors.New("root directory not found")

// ServiceError is an error that carries the issue catalog entry the CLI layer
// renders after the error message. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps a failure to its catalog entry, or zero when none fits.
// Toolchain absence is checked first: it surfaces inside aggregates too.
func classifyError(err error) issue.Id {
	var (
		svcErr  *ServiceError
		agg     *crawl.AggregateError
		metaErr *graph.MetadataError
		slnErr  *sln.ParseError
		srchErr *search.Error
	)
	switch {
	case errors.As(err, &svcErr) && svcErr.IssueID != 0:
		return svcErr.IssueID
	case errors.Is(err, errRootNotFound):
		return issue.RootNotFoundId
	case errors.Is(err, toolchain.ErrNotFound):
		return issue.ToolchainNotFoundId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	case errors.As(err, &agg):
		return issue.ReferenceOperationFailedId
	case errors.As(err, &metaErr):
		return issue.MetadataParseErrorId
	case errors.As(err, &slnErr):
		return issue.SolutionParseErrorId
	case errors.As(err, &srchErr):
		return issue.DiscoveryFailedId
	case errors.Is(err, search.ErrBadPattern),
		errors.Is(err, doublestar.ErrBadPattern),
		errors.Is(err, config.ErrInvalidPattern):
		return issue.InvalidPatternId
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrInvalidLoadOptions):
		return issue.ConfigLoadFailedId
	case errors.Is(err, watch.ErrFatal):
		return issue.WatchFailedId
	default:
		return 0
	}
}

// formatErrorForDisplay uses ActionableError.Format when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err and its catalog entry to stderr.
func renderError(stderr io.Writer, err error, verbose bool, style string) {
	fmt.Fprintln(stderr, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	if catalogEntry := issue.Get(id); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(style)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}

// fail renders err once and converts it to an exit code.
func (a *App) fail(cmd *cobra.Command, flags *rootFlagValues, err error) error {
	renderError(a.stderr, err, flags.verbose, flags.issueStyle())
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: 1, Err: err, Rendered: true}
}
