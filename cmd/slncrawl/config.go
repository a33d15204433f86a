// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/config"
	"github.com/slncrawl/slncrawl/internal/issue"
)

// newConfigCommand creates the `slncrawl config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage slncrawl configuration",
		Long: `Manage slncrawl configuration.

Configuration is read from the first of:
  - the --config flag
  - ./slncrawl.cue
  - Linux: ~/.config/slncrawl/config.cue
  - macOS: ~/Library/Application Support/slncrawl/config.cue
  - Windows: %APPDATA%\slncrawl\config.cue

SLNCRAWL_<SECTION>_<KEY> environment variables override file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rootFlags)
			if err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			showConfig(app.stdout, cfg)
			return nil
		},
	})

	var force, local bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(app.stdout, rootFlags.configPath, local, force); err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&local, "local", false, "write ./"+config.LocalConfigFile+" instead of the user config")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfigPath(app.stdout, rootFlags.configPath); err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			return nil
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rootFlags)
			if err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			out, err := config.Dump(cfg, format)
			if err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			_, err = app.stdout.Write(out)
			return err
		},
	}
	dumpCmd.Flags().StringVarP(&format, "format", "f", config.FormatCUE, "output format: "+strings.Join(config.Formats(), ", "))
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func loadConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) (*config.Config, error) {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: rootFlags.configPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId)
	}
	rootFlags.colorScheme = cfg.UI.ColorScheme
	return cfg, nil
}

func showConfig(w io.Writer, cfg *config.Config) {
	keyStyle := PathStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Source != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	section := func(name string, rows ...[2]string) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render(name))
		for _, r := range rows {
			fmt.Fprintf(w, "  %s: %s\n", keyStyle.Render(r[0]), valueStyle.Render(r[1]))
		}
	}
	list := func(items []string) string {
		if len(items) == 0 {
			return "(none)"
		}
		return strings.Join(items, ", ")
	}

	section("discovery",
		[2]string{"pattern", cfg.Discovery.Pattern},
		[2]string{"ignore", list(cfg.Discovery.Ignore)},
		[2]string{"concurrency", fmt.Sprint(cfg.Discovery.Concurrency)},
	)
	section("project",
		[2]string{"test_markers", list(cfg.Project.TestMarkers)},
		[2]string{"cache_size", fmt.Sprint(cfg.Project.CacheSize)},
	)
	envKeys := make([]string, 0, len(cfg.Toolchain.Env))
	for k := range cfg.Toolchain.Env {
		envKeys = append(envKeys, k)
	}
	slices.Sort(envKeys)
	section("toolchain",
		[2]string{"command", cfg.Toolchain.Command},
		[2]string{"artifact_extension", cfg.Toolchain.ArtifactExtension.String()},
		[2]string{"solution_format", solutionFormat(cfg.Toolchain)},
		[2]string{"env", list(envKeys)},
		[2]string{"env_files", list(cfg.Toolchain.EnvFiles)},
	)
	section("crawl", [2]string{"jobs", fmt.Sprint(cfg.Crawl.Jobs)})
	section("watch",
		[2]string{"debounce", cfg.Watch.Debounce},
		[2]string{"ignore", list(cfg.Watch.Ignore)},
	)
	section("ui",
		[2]string{"verbose", fmt.Sprint(cfg.UI.Verbose)},
		[2]string{"color_scheme", cfg.UI.ColorScheme.String()},
	)
}

func initConfig(w io.Writer, explicitPath string, local, force bool) error {
	target := explicitPath
	switch {
	case target != "":
	case local:
		target = config.LocalConfigFile
	default:
		p, err := config.UserConfigPath("")
		if err != nil {
			return err
		}
		target = p
	}

	if err := config.WriteDefault(target, force); err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("create config file").
			WithResource(target)
		if errors.Is(err, fs.ErrExist) {
			ctx = ctx.WithSuggestion("Pass --force to overwrite it")
		}
		return ctx.Wrap(err).BuildError()
	}
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("created"), PathStyle.Render(target))
	return nil
}

func showConfigPath(w io.Writer, explicitPath string) error {
	resolved, err := config.Resolve(config.LoadOptions{ConfigFilePath: explicitPath})
	if err != nil {
		return err
	}
	if resolved != "" {
		fmt.Fprintln(w, resolved)
		return nil
	}
	user, err := config.UserConfigPath("")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", user, SubtitleStyle.Render("(not created, using defaults)"))
	return nil
}
