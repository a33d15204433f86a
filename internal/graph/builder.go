// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/slncrawl/slncrawl/internal/project"
	"github.com/slncrawl/slncrawl/internal/search"
)

// DefaultPattern matches C# project descriptors.
const DefaultPattern = "*.csproj"

type (
	// Builder discovers descriptors under a root and assembles their graph.
	Builder struct {
		fs          afero.Fs
		parser      project.Parser
		pattern     string
		ignores     []string
		concurrency int
		parallelism int
		logger      *slog.Logger
	}

	// BuilderOption configures a Builder.
	BuilderOption func(*Builder)

	// MetadataError reports a descriptor that could not be read or parsed.
	MetadataError struct {
		Path string
		Err  error
	}

	parsed struct {
		path       ProjectPath
		references []ProjectPath
		isTest     bool
	}
)

// Error implements the error interface.
func (e *MetadataError) Error() string {
	return fmt.Sprintf("read project metadata %s: %v", e.Path, e.Err)
}

// Unwrap returns the read or parse error.
func (e *MetadataError) Unwrap() error {
	return e.Err
}

// WithPattern sets the descriptor file name glob.
func WithPattern(pattern string) BuilderOption {
	return func(b *Builder) {
		if pattern != "" {
			b.pattern = pattern
		}
	}
}

// WithIgnore adds subtrees the search must not enter.
func WithIgnore(patterns ...string) BuilderOption {
	return func(b *Builder) {
		b.ignores = append(b.ignores, patterns...)
	}
}

// WithSearchConcurrency bounds concurrent directory reads.
func WithSearchConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		b.concurrency = n
	}
}

// WithParallelism bounds concurrent descriptor reads and parses.
func WithParallelism(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.parallelism = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder that reads descriptors from fs.
func NewBuilder(fs afero.Fs, parser project.Parser, opts ...BuilderOption) *Builder {
	b := &Builder{
		fs:          fs,
		parser:      parser,
		pattern:     DefaultPattern,
		concurrency: search.DefaultConcurrency,
		parallelism: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build searches root for descriptors and returns the complete graph.
// Any search, read, or parse failure aborts the build; no partial graph is
// returned.
func (b *Builder) Build(ctx context.Context, root string) (*Graph, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	match, err := search.Glob(b.pattern)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	searcher := search.New(b.fs,
		search.WithIgnore(b.ignores...),
		search.WithConcurrency(b.concurrency),
	)
	stream := searcher.Search(ctx, root, match)

	results := make(chan parsed)
	g := New()
	merged := make(chan struct{})
	go func() {
		defer close(merged)
		for r := range results {
			g.merge(r)
		}
	}()

	parsers, pctx := errgroup.WithContext(ctx)
	parsers.SetLimit(b.parallelism)

	// Drain the stream fully so the search can finish even after a parse
	// failure; the cancelled context makes that quick.
	for p := range stream.Paths() {
		if pctx.Err() != nil {
			continue
		}
		parsers.Go(func() error {
			r, err := b.parse(absRoot, root, p)
			if err != nil {
				cancel()
				return err
			}
			select {
			case results <- r:
				return nil
			case <-pctx.Done():
				return pctx.Err()
			}
		})
	}

	parseErr := parsers.Wait()
	close(results)
	<-merged
	searchErr := stream.Wait()

	if parseErr != nil {
		var metaErr *MetadataError
		if errors.As(parseErr, &metaErr) || searchErr == nil {
			return nil, parseErr
		}
	}
	if searchErr != nil {
		return nil, searchErr
	}

	g.freeze()
	b.logger.Debug("project graph built", "root", root, "projects", g.Len())
	return g, nil
}

func (b *Builder) parse(absRoot, root, osPath string) (parsed, error) {
	rel, err := filepath.Rel(root, osPath)
	if err != nil {
		return parsed{}, &MetadataError{Path: osPath, Err: err}
	}
	self := FromPath(rel)

	content, err := afero.ReadFile(b.fs, osPath)
	if err != nil {
		return parsed{}, &MetadataError{Path: osPath, Err: err}
	}
	d, err := b.parser.Parse(osPath, content)
	if err != nil {
		return parsed{}, &MetadataError{Path: osPath, Err: err}
	}

	r := parsed{path: self, isTest: d.IsTest}
	for _, inc := range d.References {
		r.references = append(r.references, Resolve(absRoot, self, inc))
	}
	b.logger.Debug("parsed project", "path", self, "references", len(r.references), "test", d.IsTest)
	return r, nil
}

// merge applies one parse result. It is only called from the merge goroutine.
func (g *Graph) merge(r parsed) {
	n := g.ensure(r.path)
	if r.isTest {
		n.IsTestProject = true
		for _, target := range r.references {
			g.addTestProject(target, r.path)
		}
	}
	if len(r.references) > 0 {
		g.addDependencies(r.path, r.references)
	}
}
