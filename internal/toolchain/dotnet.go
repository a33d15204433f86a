// SPDX-License-Identifier: MPL-2.0

// Package toolchain runs the dotnet CLI to create solution files and add
// project references to them, relaying process output through slog.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// DefaultCommand is the toolchain executable.
const DefaultCommand = "dotnet"

// ErrNotFound is wrapped by errors returned when the toolchain executable
// cannot be located.
var ErrNotFound = errors.New("toolchain executable not found")

type (
	// Dotnet drives the dotnet CLI. It is safe for concurrent use; every
	// call starts its own process.
	Dotnet struct {
		argv   []string
		env    []string
		format string
		logger *slog.Logger
	}

	// Option configures Dotnet.
	Option func(*Dotnet)

	// CommandError reports a toolchain process that failed.
	CommandError struct {
		Args     []string
		Dir      string
		ExitCode int
		Err      error
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s (in %s) exited with code %d", strings.Join(e.Args, " "), e.Dir, e.ExitCode)
	}
	return fmt.Sprintf("%s (in %s): %v", strings.Join(e.Args, " "), e.Dir, e.Err)
}

// Unwrap returns the underlying process error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// WithEnv sets the complete process environment.
func WithEnv(env []string) Option {
	return func(d *Dotnet) {
		d.env = env
	}
}

// WithSolutionFormat passes --format to "new sln". Newer SDKs use it to pick
// between sln and slnx; older ones reject it, so it is empty by default.
func WithSolutionFormat(format string) Option {
	return func(d *Dotnet) {
		d.format = format
	}
}

// WithLogger sets the logger that receives relayed output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dotnet) {
		if l != nil {
			d.logger = l
		}
	}
}

// SplitCommand splits a configured command line into argv using shell
// quoting rules, expanding environment variables.
func SplitCommand(command string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	argv, err := shell.Fields(command, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse toolchain command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parse toolchain command %q: empty command", command)
	}
	return argv, nil
}

// NewDotnet creates a Dotnet runner for the given command line.
func NewDotnet(command string, opts ...Option) (*Dotnet, error) {
	argv, err := SplitCommand(command)
	if err != nil {
		return nil, err
	}
	d := &Dotnet{argv: argv, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// CreateArtifact runs "new sln -n <name>" in dir.
func (d *Dotnet) CreateArtifact(ctx context.Context, dir, name string) error {
	args := []string{"new", "sln", "-n", name}
	if d.format != "" {
		args = append(args, "--format", d.format)
	}
	return d.run(ctx, dir, name, args...)
}

// AddReference runs "sln <artifact> add <relPath>" in dir.
func (d *Dotnet) AddReference(ctx context.Context, dir, artifact, relPath string) error {
	return d.run(ctx, dir, strings.TrimSuffix(artifact, filepath.Ext(artifact)), "sln", artifact, "add", relPath)
}

func (d *Dotnet) run(ctx context.Context, dir, project string, args ...string) error {
	full := append(append([]string{}, d.argv[1:]...), args...)
	cmd := exec.CommandContext(ctx, d.argv[0], full...)
	cmd.Dir = dir
	cmd.Env = d.env

	logger := d.logger.With("project", project)
	stdout := NewLineWriter(logger, slog.LevelInfo)
	stderr := NewLineWriter(logger, slog.LevelWarn)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("running toolchain", "dir", dir, "args", strings.Join(full, " "))
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		return d.wrap(err, dir, append([]string{d.argv[0]}, full...))
	}
	return nil
}

func (d *Dotnet) wrap(err error, dir string, args []string) error {
	cerr := &CommandError{Args: args, Dir: dir, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(err, exec.ErrNotFound) {
		cerr.Err = fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return cerr
}
