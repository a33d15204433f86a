// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/crawl"
	"github.com/slncrawl/slncrawl/internal/issue"
)

// errSolutionDrift is returned by verify when a solution is absent or does
// not list exactly its closure.
var errSolutionDrift = errors.New("solutions out of date")

func newVerifyCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [dir]",
		Short: "Check existing solutions against the reference graph",
		Long: `Check existing solutions against the reference graph.

Every non-test project's solution is parsed and its projects are compared
with the closure crawl would produce. Solution folders are ignored. The
command exits non-zero when any solution is missing, lacks a project or
lists a project outside the closure.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runVerify(cmd, app, rootFlags, args); err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			return nil
		},
	}
}

func runVerify(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, args []string) error {
	ctx := cmd.Context()
	s, err := app.open(ctx, rootFlags, args)
	if err != nil {
		return err
	}
	parser, err := s.parser(0)
	if err != nil {
		return err
	}
	g, err := s.buildGraph(ctx, app.FS, parser)
	if err != nil {
		return err
	}

	results, err := crawl.Verify(app.FS, s.root, g, s.extension())
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("verify solutions").
			WithResource(s.root).
			Wrap(err).
			BuildError()
	}

	drifted := 0
	for _, v := range results {
		if !v.OK() {
			drifted++
		}
		printVerification(app.stdout, v)
	}
	if drifted > 0 {
		return issue.NewErrorContext().
			WithOperation("verify solutions").
			WithResource(s.root).
			WithSuggestion("Run 'slncrawl crawl' to create missing solutions and add missing projects").
			WithSuggestion("Remove unexpected projects with 'dotnet sln remove'").
			Wrap(fmt.Errorf("%w: %d of %d", errSolutionDrift, drifted, len(results))).
			BuildError()
	}
	return nil
}

func printVerification(w io.Writer, v crawl.Verification) {
	artifact := path.Join(v.Root.Dir(), v.Artifact)
	switch {
	case v.OK():
		fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("ok"), PathStyle.Render(artifact))
		return
	case v.Absent:
		fmt.Fprintf(w, "%s %s %s\n", WarningStyle.Render("missing"), PathStyle.Render(artifact), SubtitleStyle.Render("(no solution file)"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("drift"), PathStyle.Render(artifact))
	for _, m := range v.Missing {
		fmt.Fprintf(w, "  - %s %s\n", m, SubtitleStyle.Render("(not listed)"))
	}
	for _, u := range v.Unexpected {
		fmt.Fprintf(w, "  + %s %s\n", u, SubtitleStyle.Render("(outside closure)"))
	}
}
