// SPDX-License-Identifier: MPL-2.0

// Package search walks a directory tree concurrently and streams every path
// whose base name satisfies a predicate.
//
// Each subdirectory is listed in its own goroutine, so sibling subtrees are
// walked in parallel and results arrive in no particular order. A Stream is
// closed only after every branch has finished. The first filesystem error
// cancels the remaining work and is reported by Stream.Wait.
package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency bounds the number of directories listed at the same time.
const DefaultConcurrency = 16

// ErrBadPattern is returned by Glob for patterns doublestar cannot compile.
var ErrBadPattern = errors.New("invalid search pattern")

// defaultIgnores are subtrees that never contain project descriptors worth
// crawling and tend to be very large.
var defaultIgnores = []string{
	"**/.git",
	"**/node_modules",
}

type (
	// Matcher reports whether a file (or, in directory mode, a directory)
	// with the given base name should be emitted.
	Matcher func(name string) bool

	// Option configures a Searcher.
	Option func(*Searcher)

	// Searcher performs recursive searches over an afero filesystem.
	Searcher struct {
		fs          afero.Fs
		concurrency int64
		ignores     []string
		directories bool
	}

	// Stream delivers the results of a single search.
	Stream struct {
		paths chan string
		done  chan struct{}
		err   error
	}

	// Error reports a filesystem failure encountered while walking.
	Error struct {
		Path string
		Err  error
	}

	walker struct {
		*Searcher
		ctx   context.Context
		group *errgroup.Group
		sem   *semaphore.Weighted
		root  string
		match Matcher
		out   chan<- string
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("search %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithConcurrency bounds how many directories are listed at once.
// Values below one fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(s *Searcher) {
		if n < 1 {
			n = DefaultConcurrency
		}
		s.concurrency = int64(n)
	}
}

// WithIgnore adds doublestar patterns, matched against slash-separated
// root-relative paths, for subtrees that must not be entered.
func WithIgnore(patterns ...string) Option {
	return func(s *Searcher) {
		s.ignores = append(s.ignores, patterns...)
	}
}

// WithDirectories switches the searcher to directory mode: matching
// directories are emitted and not descended into, and files are ignored.
func WithDirectories() Option {
	return func(s *Searcher) {
		s.directories = true
	}
}

// New creates a Searcher over fs.
func New(fs afero.Fs, opts ...Option) *Searcher {
	s := &Searcher{
		fs:          fs,
		concurrency: DefaultConcurrency,
		ignores:     slices.Clone(defaultIgnores),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Glob returns a Matcher that applies a doublestar pattern to base names.
func Glob(pattern string) (Matcher, error) {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	return func(name string) bool {
		matched, _ := doublestar.Match(pattern, name)
		return matched
	}, nil
}

// Search starts walking root and returns immediately. Callers must drain
// Paths until it is closed, then call Wait. Cancelling ctx stops the walk.
func (s *Searcher) Search(ctx context.Context, root string, match Matcher) *Stream {
	out := make(chan string)
	st := &Stream{paths: out, done: make(chan struct{})}

	group, gctx := errgroup.WithContext(ctx)
	w := &walker{
		Searcher: s,
		ctx:      gctx,
		group:    group,
		sem:      semaphore.NewWeighted(s.concurrency),
		root:     filepath.Clean(root),
		match:    match,
		out:      out,
	}
	group.Go(func() error {
		return w.walk(w.root)
	})

	go func() {
		st.err = group.Wait()
		close(out)
		close(st.done)
	}()

	return st
}

// Paths returns the channel of matching paths. Each path is root joined with
// the entry's relative location, so it is absolute only when root is.
func (st *Stream) Paths() <-chan string {
	return st.paths
}

// Wait blocks until the search has finished and returns the first error.
func (st *Stream) Wait() error {
	<-st.done
	return st.err
}

// Collect drains a stream into a sorted slice.
func Collect(st *Stream) ([]string, error) {
	var paths []string
	for p := range st.Paths() {
		paths = append(paths, p)
	}
	if err := st.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

func (w *walker) walk(dir string) error {
	if err := w.sem.Acquire(w.ctx, 1); err != nil {
		return err
	}
	entries, err := afero.ReadDir(w.fs, dir)
	w.sem.Release(1)
	if err != nil {
		return &Error{Path: dir, Err: err}
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if !entry.IsDir() {
			if !w.directories && w.match(entry.Name()) {
				if err := w.emit(path); err != nil {
					return err
				}
			}
			continue
		}

		if w.ignored(path) {
			continue
		}
		if w.directories && w.match(entry.Name()) {
			if err := w.emit(path); err != nil {
				return err
			}
			continue
		}
		w.group.Go(func() error {
			return w.walk(path)
		})
	}
	return nil
}

func (w *walker) emit(path string) error {
	select {
	case w.out <- path:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

func (w *walker) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, rel); matchErr == nil && matched {
			return true
		}
	}
	return false
}
