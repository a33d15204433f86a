// SPDX-License-Identifier: MPL-2.0

// Package crawl materializes one solution file per non-test project, holding
// the project's transitive dependencies and the test projects that reference
// anything in that closure.
//
// Roots are populated independently and concurrently. Within a root the
// operations run strictly in order: create the solution if it is missing,
// add the project itself, then add every closure member in walk order. The
// first failing operation stops that root only; every root is awaited and the
// failures are reported together.
package crawl

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/slncrawl/slncrawl/internal/fsutil"
	"github.com/slncrawl/slncrawl/internal/graph"
)

type (
	// Toolchain performs the solution file mutations. Implementations must
	// be safe for concurrent use across different solution files.
	Toolchain interface {
		// CreateArtifact creates <name>.<ext> in dir.
		CreateArtifact(ctx context.Context, dir, name string) error
		// AddReference adds relPath, relative to dir, to the artifact in dir.
		AddReference(ctx context.Context, dir, artifact, relPath string) error
	}

	// Populator drives a Toolchain over a reference graph.
	Populator struct {
		fs        afero.Fs
		toolchain Toolchain
		jobs      int
		ext       string
		logger    *slog.Logger
	}

	// Option configures a Populator.
	Option func(*Populator)

	// RootReport describes what happened to one root.
	RootReport struct {
		Root     graph.ProjectPath
		Artifact string
		// Created is true when the solution file did not exist beforehand.
		Created bool
		// Added lists every path passed to AddReference, in order.
		Added []string
	}

	// Report summarizes a Populate call. Roots are ordered by path and
	// include failed roots with the operations that succeeded.
	Report struct {
		Roots []RootReport
	}
)

// WithJobs bounds how many roots are populated at once. Zero or less means
// no bound.
func WithJobs(n int) Option {
	return func(p *Populator) {
		p.jobs = n
	}
}

// WithExtension sets the solution file extension.
func WithExtension(ext string) Option {
	return func(p *Populator) {
		if ext != "" {
			p.ext = ext
		}
	}
}

// WithLogger sets the logger for progress output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Populator) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Populator.
func New(fs afero.Fs, toolchain Toolchain, opts ...Option) *Populator {
	p := &Populator{
		fs:        fs,
		toolchain: toolchain,
		ext:       DefaultExtension,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Populate creates or updates the solution of every non-test project in g.
// root is the directory g was built from. When some roots fail, the report
// still covers every root and the error is an *AggregateError.
func (p *Populator) Populate(ctx context.Context, root string, g *graph.Graph) (*Report, error) {
	plans := Plan(g, p.ext)
	reports := make([]RootReport, len(plans))
	failures := make([]*ReferenceOperationError, len(plans))

	workers := pool.New().WithErrors()
	if p.jobs > 0 {
		workers = workers.WithMaxGoroutines(p.jobs)
	}
	for i, plan := range plans {
		workers.Go(func() error {
			reports[i], failures[i] = p.populateRoot(ctx, root, plan)
			if failures[i] != nil {
				return failures[i]
			}
			return nil
		})
	}
	// Failures are gathered per root below, in root order.
	_ = workers.Wait()

	report := &Report{Roots: reports}
	agg := &AggregateError{}
	for _, f := range failures {
		if f != nil {
			agg.Errors = append(agg.Errors, f)
		}
	}
	if len(agg.Errors) == 0 {
		return report, nil
	}
	slices.SortFunc(agg.Errors, func(a, b *ReferenceOperationError) int {
		return cmp.Compare(a.Root, b.Root)
	})
	return report, agg
}

func (p *Populator) populateRoot(ctx context.Context, root string, plan RootPlan) (RootReport, *ReferenceOperationError) {
	rep := RootReport{Root: plan.Root, Artifact: plan.Artifact}
	dir := filepath.Join(root, filepath.FromSlash(plan.Dir))
	logger := p.logger.With("project", plan.Name)

	fail := func(op Op, target string, err error) (RootReport, *ReferenceOperationError) {
		logger.Debug("root stopped", "op", op, "target", target, "error", err)
		return rep, &ReferenceOperationError{Root: plan.Root, Op: op, Target: target, Err: err}
	}

	exists, err := fsutil.Exists(p.fs, filepath.Join(dir, plan.Artifact))
	if err != nil {
		return fail(OpExists, plan.Artifact, err)
	}
	if !exists {
		logger.Debug("creating solution", "artifact", plan.Artifact, "dir", dir)
		if err := p.toolchain.CreateArtifact(ctx, dir, plan.Name); err != nil {
			return fail(OpCreate, plan.Artifact, err)
		}
		created, err := fsutil.Exists(p.fs, filepath.Join(dir, plan.Artifact))
		if err != nil {
			return fail(OpExists, plan.Artifact, err)
		}
		if !created {
			return fail(OpCreate, plan.Artifact, ErrArtifactNotCreated)
		}
		rep.Created = true
	}

	for _, rel := range plan.Expected() {
		if err := p.toolchain.AddReference(ctx, dir, plan.Artifact, rel); err != nil {
			return fail(OpAdd, rel, err)
		}
		rep.Added = append(rep.Added, rel)
	}

	logger.Debug("solution populated", "artifact", plan.Artifact, "created", rep.Created, "added", len(rep.Added))
	return rep, nil
}

// Failed returns the reports of roots that did not complete, given the error
// returned alongside the report.
func (r *Report) Failed(err error) []RootReport {
	var agg *AggregateError
	if !errors.As(err, &agg) {
		return nil
	}
	var out []RootReport
	for _, root := range agg.Roots() {
		for _, rr := range r.Roots {
			if rr.Root == root {
				out = append(out, rr)
			}
		}
	}
	return out
}
