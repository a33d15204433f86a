// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when project descriptors change.
//
// It monitors every non-ignored directory below a base directory and fires
// a callback after a debounce period. Events within the window are coalesced
// so the callback sees the full, sorted set of changed paths once.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("watch: Run called more than once")
	// ErrFatal wraps fsnotify errors after which the watcher cannot recover.
	ErrFatal = errors.New("watch: fatal fsnotify error")

	// defaultIgnores are never watched: VCS metadata, build output, IDE
	// state and editor swap files.
	defaultIgnores = []string{
		"**/.git",
		"**/.git/**",
		"**/.vs",
		"**/.vs/**",
		"**/bin",
		"**/bin/**",
		"**/obj",
		"**/obj/**",
		"**/node_modules",
		"**/node_modules/**",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the root directory to watch; empty means the working
		// directory.
		BaseDir string

		// Patterns are doublestar globs matched against the base name of a
		// changed file, e.g. "*.csproj". Empty matches every file.
		Patterns []string

		// Ignore are doublestar globs relative to BaseDir whose paths never
		// trigger the callback. They extend the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative uses DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the changed paths relative to BaseDir, in
		// slash form and sorted. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives diagnostics; nil means slog.Default().
		Logger *slog.Logger
	}

	// Watcher monitors a directory tree and fires a debounced callback when
	// matching files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *slog.Logger
		debounce time.Duration
		baseDir  string
		started  atomic.Bool

		dirsMu sync.Mutex
		dirs   map[string]struct{}
	}
)

// New creates a Watcher and registers every non-ignored directory below
// BaseDir with fsnotify.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		logger:   logger,
		debounce: debounce,
		baseDir:  absBase,
		dirs:     make(map[string]struct{}),
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "error", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an ErrFatal-wrapped error when fsnotify
// reports resource exhaustion.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after cancellation via time.AfterFunc; the callback
	// still receives ctx. Overlapping runs are skipped and rescheduled.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Info("change detected while a run is in progress, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Debug("change batch", "paths", changed)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("re-run failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "error", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}

			rel, relevant := w.classify(evt)
			if !relevant {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("%w: %w", ErrFatal, err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// classify maps an event to its slash-form relative path and reports
// whether it should trigger a re-run. Created directories are added to the
// watch set and count as a change, since they may already hold descriptors.
// Removing a watched directory counts as a change too.
func (w *Watcher) classify(evt fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.baseDir, evt.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	if w.isIgnored(rel) {
		return "", false
	}

	if evt.Has(fsnotify.Create) && w.maybeAddDir(evt.Name, rel) {
		return rel, true
	}
	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		if w.forgetDir(rel) {
			return rel, true
		}
	}
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return "", false
	}
	return rel, w.matchesPatterns(rel)
}

// addDirectories registers every non-ignored directory under baseDir.
// Inaccessible directories are logged and skipped.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(p string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", p, "error", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, p)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && w.isIgnored(rel) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(p); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", p, addErr)
		}
		w.rememberDir(rel)
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir watches a newly created directory and its subdirectories.
// It reports whether p was a directory.
func (w *Watcher) maybeAddDir(p, rel string) bool {
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return false
	}
	walkErr := filepath.WalkDir(p, func(sub string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // best effort for trees still being written
		}
		subRel, relErr := filepath.Rel(w.baseDir, sub)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		subRel = filepath.ToSlash(subRel)
		if w.isIgnored(subRel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(sub); addErr != nil {
			w.logger.Warn("watch new directory", "path", sub, "error", addErr)
			return nil
		}
		w.rememberDir(subRel)
		return nil
	})
	if walkErr != nil {
		w.logger.Warn("walk new directory", "path", rel, "error", walkErr)
	}
	return true
}

func (w *Watcher) rememberDir(rel string) {
	w.dirsMu.Lock()
	w.dirs[rel] = struct{}{}
	w.dirsMu.Unlock()
}

// forgetDir drops rel and everything below it, reporting whether rel was a
// watched directory.
func (w *Watcher) forgetDir(rel string) bool {
	w.dirsMu.Lock()
	defer w.dirsMu.Unlock()
	if _, ok := w.dirs[rel]; !ok {
		return false
	}
	for d := range w.dirs {
		if d == rel || (len(d) > len(rel) && d[:len(rel)+1] == rel+"/") {
			delete(w.dirs, d)
		}
	}
	return true
}

// WatchedDirs returns the watched directories relative to the base, sorted.
func (w *Watcher) WatchedDirs() []string {
	w.dirsMu.Lock()
	defer w.dirsMu.Unlock()
	return slices.Sorted(maps.Keys(w.dirs))
}

// isIgnored reports whether the slash-form relative path matches any ignore
// pattern.
func (w *Watcher) isIgnored(rel string) bool {
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, rel); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// matchesPatterns reports whether the base name of rel matches a watch
// pattern. No patterns means everything matches.
func (w *Watcher) matchesPatterns(rel string) bool {
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	name := path.Base(rel)
	for _, pat := range w.cfg.Patterns {
		if matched, matchErr := doublestar.Match(pat, name); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// validatePatterns checks every pattern is a valid doublestar glob; label
// names the pattern list in the error.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}

// isFatal reports whether err is one of the platform's fatalErrnos.
func isFatal(err error) bool {
	return slices.ContainsFunc(fatalErrnos, func(errno syscall.Errno) bool {
		return errors.Is(err, errno)
	})
}
