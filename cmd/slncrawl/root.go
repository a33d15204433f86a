// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/config"
	"github.com/slncrawl/slncrawl/internal/logging"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	configPath string
	verbose    bool
	logFormat  string
	// colorScheme is filled from the loaded config.
	colorScheme config.ColorScheme
}

// issueStyle maps the color scheme to a glamour style name.
func (f *rootFlagValues) issueStyle() string {
	switch f.colorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "slncrawl",
		Short: "Generate one solution per project from its reference graph",
		Long: TitleStyle.Render("slncrawl") + SubtitleStyle.Render(" - solution files from project references") + `

slncrawl finds every project file below a directory, follows the
ProjectReference items between them and drives the dotnet CLI to create
one solution per non-test project. Each solution holds the project, its
transitive dependencies and the test projects that reference any of them.

` + SubtitleStyle.Render("Examples:") + `
  slncrawl crawl              Populate solutions below the current directory
  slncrawl crawl --dry-run    Print what would be added
  slncrawl graph --format dot Print the reference graph for Graphviz
  slncrawl verify src         Check existing solutions for drift
  slncrawl config show        Show current configuration`,
		SilenceUsage: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is ./slncrawl.cue, then the user config directory)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", logging.FormatText, "log format: text, json or logfmt")

	root.AddCommand(
		newCrawlCommand(app, flags),
		newGraphCommand(app, flags),
		newVerifyCommand(app, flags),
		newCleanCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler prints errors the commands have not already rendered.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Rendered {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits with the resulting status. It is called by
// main.main.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
