// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/issue"
	"github.com/slncrawl/slncrawl/internal/search"
)

// buildOutputDirs are the directory names clean removes.
var buildOutputDirs = []string{"bin", "obj"}

type cleanFlagValues struct {
	dryRun bool
}

func newCleanCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &cleanFlagValues{}

	cmd := &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove bin and obj directories next to project files",
		Long: `Remove bin and obj directories next to project files.

Only directories whose parent holds a file matching discovery.pattern are
removed; a bin directory elsewhere in the tree is left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runClean(cmd, app, rootFlags, flags, args); err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "list the directories without removing them")
	return cmd
}

func runClean(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *cleanFlagValues, args []string) error {
	ctx := cmd.Context()
	s, err := app.open(ctx, rootFlags, args)
	if err != nil {
		return err
	}
	isDescriptor, err := search.Glob(s.cfg.Discovery.Pattern)
	if err != nil {
		return err
	}

	// Discovery ignores are not applied: they usually exclude bin and obj.
	searcher := search.New(app.FS,
		search.WithDirectories(),
		search.WithConcurrency(s.cfg.Discovery.Concurrency),
	)
	dirs, err := search.Collect(searcher.Search(ctx, s.root, func(name string) bool {
		return slices.Contains(buildOutputDirs, name)
	}))
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("find build output").
			WithResource(s.root).
			Wrap(err).
			BuildError()
	}

	removed := 0
	for _, dir := range dirs {
		owned, err := hasDescriptor(app.FS, filepath.Dir(dir), isDescriptor)
		if err != nil {
			return err
		}
		if !owned {
			s.logger.Debug("skipping build output without project", "dir", dir)
			continue
		}

		rel, err := filepath.Rel(s.root, dir)
		if err != nil {
			rel = dir
		}
		rel = filepath.ToSlash(rel)
		if flags.dryRun {
			fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("would remove"), PathStyle.Render(rel))
			continue
		}
		if err := app.FS.RemoveAll(dir); err != nil {
			return issue.NewErrorContext().
				WithOperation("remove build output").
				WithResource(dir).
				Wrap(err).
				BuildError()
		}
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("removed"), PathStyle.Render(rel))
		removed++
	}
	s.logger.Debug("clean complete", "found", len(dirs), "removed", removed)
	return nil
}

// hasDescriptor reports whether dir directly holds a file accepted by match.
func hasDescriptor(fs afero.Fs, dir string, match search.Matcher) (bool, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && match(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}
