// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/crawl"
	"github.com/slncrawl/slncrawl/internal/fsutil"
	"github.com/slncrawl/slncrawl/internal/graph"
	"github.com/slncrawl/slncrawl/internal/issue"
	"github.com/slncrawl/slncrawl/internal/project"
	"github.com/slncrawl/slncrawl/internal/watch"
)

// crawlFlagValues holds the crawl command's own flags.
type crawlFlagValues struct {
	jobs   int
	dryRun bool
	watch  bool
}

func newCrawlCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &crawlFlagValues{}

	cmd := &cobra.Command{
		Use:   "crawl [dir]",
		Short: "Create and populate one solution per non-test project",
		Long: `Create and populate one solution per non-test project.

Every project file below dir (default: the current directory) is parsed.
For each project that is not a test project, a solution named after it is
created next to it if missing, then the project, its transitive
dependencies and every test project referencing one of them are added.

Roots are populated concurrently. A failing root does not stop the others;
all failures are reported together at the end.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.dryRun && flags.watch {
				return app.fail(cmd, rootFlags, errors.New("--watch and --dry-run cannot be used together"))
			}
			if err := runCrawl(cmd, app, rootFlags, flags, args); err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "maximum roots populated at once (0 = unbounded, overrides crawl.jobs)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the planned solution contents without running the toolchain")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-crawl when project files change")
	return cmd
}

func runCrawl(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *crawlFlagValues, args []string) error {
	ctx := cmd.Context()
	s, err := app.open(ctx, rootFlags, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		s.cfg.Crawl.Jobs = flags.jobs
	}

	if flags.dryRun {
		parser, err := s.parser(0)
		if err != nil {
			return err
		}
		g, err := s.buildGraph(ctx, app.FS, parser)
		if err != nil {
			return err
		}
		return printPlan(app, s, g)
	}

	tc, err := app.NewToolchain(s.cfg, s.logger)
	if err != nil {
		return err
	}
	populator := crawl.New(app.FS, tc,
		crawl.WithJobs(s.cfg.Crawl.Jobs),
		crawl.WithExtension(s.extension()),
		crawl.WithLogger(s.logger),
	)

	if !flags.watch {
		parser, err := s.parser(0)
		if err != nil {
			return err
		}
		return crawlOnce(ctx, app, s, parser, populator)
	}
	return watchCrawl(ctx, app, rootFlags, s, populator)
}

// crawlOnce builds the graph and populates every root's solution.
func crawlOnce(ctx context.Context, app *App, s *session, parser project.Parser, populator *crawl.Populator) error {
	g, err := s.buildGraph(ctx, app.FS, parser)
	if err != nil {
		return err
	}

	report, err := populator.Populate(ctx, s.root, g)
	if err != nil {
		var agg *crawl.AggregateError
		if errors.As(err, &agg) {
			ectx := issue.NewErrorContext().
				WithOperation("populate solutions").
				WithResource(s.root).
				WithSuggestion(fmt.Sprintf("%d of %d solutions failed; fix the listed projects and re-run", len(agg.Errors), len(report.Roots)))
			if errors.Is(err, crawl.ErrArtifactNotCreated) {
				ectx = ectx.WithSuggestion("Set toolchain.solution_format to match toolchain.artifact_extension; newer SDKs create .slnx by default")
			}
			return ectx.
				WithSuggestion("Run with --verbose to see every toolchain invocation").
				Wrap(err).
				BuildError()
		}
		return err
	}

	created := 0
	for _, r := range report.Roots {
		if r.Created {
			created++
		}
	}
	s.logger.Debug("crawl complete", "projects", g.Len(), "solutions", len(report.Roots), "created", created)
	return nil
}

// watchCrawl crawls once, then again on every descriptor change until the
// context is cancelled. Failed runs are logged and do not stop watching.
func watchCrawl(ctx context.Context, app *App, rootFlags *rootFlagValues, s *session, populator *crawl.Populator) error {
	parser, err := s.parser(s.cfg.Project.CacheSize)
	if err != nil {
		return err
	}
	debounce, err := s.cfg.Watch.DebounceDuration()
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		BaseDir:  s.root,
		Patterns: []string{s.cfg.Discovery.Pattern},
		Ignore:   slices.Concat(s.cfg.Watch.Ignore, s.cfg.Discovery.Ignore),
		Debounce: debounce,
		Logger:   s.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			s.logger.Info("re-crawling", "changed", len(changed))
			return crawlOnce(ctx, app, s, parser, populator)
		},
	})
	if err != nil {
		return err
	}

	if err := crawlOnce(ctx, app, s, parser, populator); err != nil {
		renderError(app.stderr, err, rootFlags.verbose, rootFlags.issueStyle())
	}
	s.logger.Info("watching for changes", "root", s.root, "pattern", s.cfg.Discovery.Pattern)
	return w.Run(ctx)
}

// printPlan writes what crawl would do for every root, without touching the
// toolchain.
func printPlan(app *App, s *session, g *graph.Graph) error {
	plans := crawl.Plan(g, s.extension())
	if len(plans) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("no non-test projects found"))
		return nil
	}
	for _, p := range plans {
		if err := printRootPlan(app.stdout, app, s.root, p); err != nil {
			return err
		}
	}
	return nil
}

func printRootPlan(w io.Writer, app *App, root string, p crawl.RootPlan) error {
	artifact := path.Join(p.Dir, p.Artifact)
	exists, err := fsutil.Exists(app.FS, filepath.Join(root, filepath.FromSlash(artifact)))
	if err != nil {
		return err
	}
	action := "create"
	if exists {
		action = "update"
	}
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(artifact), SubtitleStyle.Render("("+action+")"))
	for _, rel := range p.Expected() {
		fmt.Fprintf(w, "  + %s\n", PathStyle.Render(rel))
	}
	return nil
}
