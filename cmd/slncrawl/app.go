// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/slncrawl/slncrawl/internal/config"
	"github.com/slncrawl/slncrawl/internal/crawl"
	"github.com/slncrawl/slncrawl/internal/fsutil"
	"github.com/slncrawl/slncrawl/internal/graph"
	"github.com/slncrawl/slncrawl/internal/issue"
	"github.com/slncrawl/slncrawl/internal/logging"
	"github.com/slncrawl/slncrawl/internal/project"
	"github.com/slncrawl/slncrawl/internal/toolchain"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every Cobra handler receives it.
	App struct {
		Config       ConfigProvider
		FS           afero.Fs
		NewToolchain ToolchainFactory
		stdout       io.Writer
		stderr       io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config       ConfigProvider
		FS           afero.Fs
		NewToolchain ToolchainFactory
		Stdout       io.Writer
		Stderr       io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// ToolchainFactory builds the solution toolchain for a loaded config.
	ToolchainFactory func(cfg *config.Config, logger *slog.Logger) (crawl.Toolchain, error)

	// session is the per-invocation state shared by a command's steps.
	session struct {
		cfg    *config.Config
		logger *slog.Logger
		// root is the absolute crawl root.
		root string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	if deps.NewToolchain == nil {
		deps.NewToolchain = newDotnetToolchain
	}

	return &App{
		Config:       deps.Config,
		FS:           deps.FS,
		NewToolchain: deps.NewToolchain,
		stdout:       deps.Stdout,
		stderr:       deps.Stderr,
	}, nil
}

// newDotnetToolchain builds the production toolchain: the configured command
// line with dotnet env files and variables layered over the process env.
func newDotnetToolchain(cfg *config.Config, logger *slog.Logger) (crawl.Toolchain, error) {
	baseDir := "."
	if cfg.Source != "" {
		baseDir = filepath.Dir(cfg.Source)
	}
	fileEnv, err := toolchain.LoadEnvFiles(baseDir, cfg.Toolchain.EnvFiles)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load toolchain env files").
			WithResource(baseDir).
			WithSuggestion("Mark optional files with a trailing '?', e.g. 'local.env?'").
			Wrap(err).
			BuildError()
	}

	dotnet, err := toolchain.NewDotnet(cfg.Toolchain.Command,
		toolchain.WithEnv(toolchain.BuildEnv(fileEnv, cfg.Toolchain.Env)),
		toolchain.WithSolutionFormat(solutionFormat(cfg.Toolchain)),
		toolchain.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return dotnet, nil
}

// solutionFormat returns the --format value for "new sln". An .slnx
// extension implies the slnx format unless one is set explicitly.
func solutionFormat(tc config.ToolchainConfig) string {
	if tc.SolutionFormat != "" {
		return tc.SolutionFormat
	}
	if tc.ArtifactExtension == config.ExtensionSlnx {
		return string(config.ExtensionSlnx)
	}
	return ""
}

// open loads configuration, installs the logger and resolves the crawl root
// from the optional positional argument.
func (a *App) open(ctx context.Context, flags *rootFlagValues, args []string) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId)
	}
	flags.colorScheme = cfg.UI.ColorScheme

	logger, err := logging.New(a.stderr, logging.Options{
		Verbose: flags.verbose || cfg.UI.Verbose,
		Format:  flags.logFormat,
	})
	if err != nil {
		return nil, err
	}
	logging.Install(logger)

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", dir, err)
	}
	isDir, err := fsutil.IsDir(a.FS, root)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, issue.NewErrorContext().
			WithOperation("open root").
			WithResource(root).
			Wrap(errRootNotFound).
			BuildError()
	}

	logger.Debug("session ready", "root", root, "config", cfg.Source)
	return &session{cfg: cfg, logger: logger, root: root}, nil
}

// parser builds the descriptor parser; cacheSize > 0 wraps it in an LRU.
func (s *session) parser(cacheSize int) (project.Parser, error) {
	var p project.Parser = project.NewXMLParser(project.WithTestMarkers(s.cfg.Project.TestMarkers...))
	if cacheSize <= 0 {
		return p, nil
	}
	return project.NewCachingParser(p, cacheSize)
}

// buildGraph discovers and parses every descriptor under the root.
func (s *session) buildGraph(ctx context.Context, fs afero.Fs, parser project.Parser) (*graph.Graph, error) {
	builder := graph.NewBuilder(fs, parser,
		graph.WithPattern(s.cfg.Discovery.Pattern),
		graph.WithIgnore(s.cfg.Discovery.Ignore...),
		graph.WithSearchConcurrency(s.cfg.Discovery.Concurrency),
		graph.WithLogger(s.logger),
	)
	g, err := builder.Build(ctx, s.root)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build project graph").
			WithResource(s.root).
			Wrap(err).
			BuildError()
	}
	return g, nil
}

// extension returns the configured solution extension.
func (s *session) extension() string {
	return string(s.cfg.Toolchain.ArtifactExtension)
}
