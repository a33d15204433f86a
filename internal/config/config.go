// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"github.com/spf13/viper"

	"github.com/slncrawl/slncrawl/internal/cueutil"
	"github.com/slncrawl/slncrawl/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "slncrawl"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is the per-repository config file looked up in the
	// working directory.
	LocalConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment variable overrides, e.g.
	// SLNCRAWL_CRAWL_JOBS=4.
	EnvPrefix = "SLNCRAWL"

	// maxFileSize bounds config files read into memory.
	maxFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the slncrawl configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// UserConfigPath returns the path of the user-level config file.
func UserConfigPath(configDirPath string) (string, error) {
	dir, err := configDirWithOverride(configDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// Resolve returns the config file that Load would read, or "" when none
// exists and defaults apply.
func Resolve(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	local := LocalConfigFile
	if opts.WorkDir != "" {
		local = filepath.Join(opts.WorkDir, LocalConfigFile)
	}
	if fileExists(local) {
		return local, nil
	}
	user, err := UserConfigPath(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if fileExists(user) {
		return user, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" && !fileExists(opts.ConfigFilePath) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			WithSuggestion("Use 'slncrawl config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	path, err := Resolve(opts)
	if err != nil {
		return nil, err
	}

	var env map[string]string
	if path != "" {
		env, err = loadCUEIntoViper(v, path)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'slncrawl config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Viper folds map keys to lower case; environment names are case-sensitive.
	if env != nil {
		cfg.Toolchain.Env = env
	}
	cfg.Source = path

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Glob patterns use doublestar syntax, e.g. '**/bin'").
			WithSuggestion("Durations use Go syntax, e.g. '500ms' or '2s'").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("discovery.pattern", d.Discovery.Pattern)
	v.SetDefault("discovery.ignore", d.Discovery.Ignore)
	v.SetDefault("discovery.concurrency", d.Discovery.Concurrency)
	v.SetDefault("project.test_markers", d.Project.TestMarkers)
	v.SetDefault("project.cache_size", d.Project.CacheSize)
	v.SetDefault("toolchain.command", d.Toolchain.Command)
	v.SetDefault("toolchain.artifact_extension", string(d.Toolchain.ArtifactExtension))
	v.SetDefault("toolchain.solution_format", d.Toolchain.SolutionFormat)
	v.SetDefault("toolchain.env", d.Toolchain.Env)
	v.SetDefault("toolchain.env_files", d.Toolchain.EnvFiles)
	v.SetDefault("crawl.jobs", d.Crawl.Jobs)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. It returns toolchain.env verbatim.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecode[map[string]any]([]byte(configSchema), data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
		cueutil.WithMaxFileSize(maxFileSize),
	)
	if err != nil {
		return nil, err
	}

	var env map[string]string
	if envValue := result.Unified.LookupPath(cue.ParsePath("toolchain.env")); envValue.Exists() {
		if err := envValue.Decode(&env); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
	}

	if err := v.MergeConfigMap(result.Value); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return env, nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration as CUE to path. It refuses
// to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%s already exists: %w", path, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// slncrawl configuration file\n")
	sb.WriteString("// Every field is optional; see 'slncrawl config --help'.\n")

	sb.WriteString("\ndiscovery: {\n")
	fmt.Fprintf(&sb, "\tpattern: %q\n", cfg.Discovery.Pattern)
	fmt.Fprintf(&sb, "\tignore: %s\n", cueList(cfg.Discovery.Ignore))
	fmt.Fprintf(&sb, "\tconcurrency: %d\n", cfg.Discovery.Concurrency)
	sb.WriteString("}\n")

	sb.WriteString("\nproject: {\n")
	fmt.Fprintf(&sb, "\ttest_markers: %s\n", cueList(cfg.Project.TestMarkers))
	fmt.Fprintf(&sb, "\tcache_size: %d\n", cfg.Project.CacheSize)
	sb.WriteString("}\n")

	sb.WriteString("\ntoolchain: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Toolchain.Command)
	fmt.Fprintf(&sb, "\tartifact_extension: %q\n", cfg.Toolchain.ArtifactExtension)
	if cfg.Toolchain.SolutionFormat != "" {
		fmt.Fprintf(&sb, "\tsolution_format: %q\n", cfg.Toolchain.SolutionFormat)
	} else {
		sb.WriteString("\t// Uncomment when \"dotnet new sln\" creates .slnx files (SDK 10+).\n")
		fmt.Fprintf(&sb, "\t// solution_format: %q\n", cfg.Toolchain.ArtifactExtension)
	}
	if len(cfg.Toolchain.Env) > 0 {
		sb.WriteString("\tenv: {\n")
		keys := make([]string, 0, len(cfg.Toolchain.Env))
		for k := range cfg.Toolchain.Env {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", k, cfg.Toolchain.Env[k])
		}
		sb.WriteString("\t}\n")
	}
	if len(cfg.Toolchain.EnvFiles) > 0 {
		fmt.Fprintf(&sb, "\tenv_files: %s\n", cueList(cfg.Toolchain.EnvFiles))
	}
	sb.WriteString("}\n")

	sb.WriteString("\ncrawl: {\n")
	fmt.Fprintf(&sb, "\tjobs: %d\n", cfg.Crawl.Jobs)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce)
	fmt.Fprintf(&sb, "\tignore: %s\n", cueList(cfg.Watch.Ignore))
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
