// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// ExtensionSln is the classic solution format.
	ExtensionSln ArtifactExtension = "sln"
	// ExtensionSlnx is the XML solution format.
	ExtensionSlnx ArtifactExtension = "slnx"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidArtifactExtension is returned for unknown solution extensions.
	ErrInvalidArtifactExtension = errors.New("invalid artifact extension")
	// ErrInvalidPattern is returned for globs doublestar cannot compile.
	ErrInvalidPattern = errors.New("invalid glob pattern")
	// ErrInvalidDebounce is returned when watch.debounce is not a positive duration.
	ErrInvalidDebounce = errors.New("invalid debounce duration")
	// ErrInvalidBound is returned for negative concurrency limits.
	ErrInvalidBound = errors.New("invalid concurrency bound")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// ArtifactExtension is the solution file extension without the dot.
	ArtifactExtension string

	// InvalidValueError reports one rejected field value.
	InvalidValueError struct {
		Field string
		Value string
		Err   error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Discovery controls the descriptor search.
		Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery" toml:"discovery" yaml:"discovery"`
		// Project controls descriptor parsing.
		Project ProjectConfig `json:"project" mapstructure:"project" toml:"project" yaml:"project"`
		// Toolchain configures the dotnet CLI invocation.
		Toolchain ToolchainConfig `json:"toolchain" mapstructure:"toolchain" toml:"toolchain" yaml:"toolchain"`
		// Crawl controls solution population.
		Crawl CrawlConfig `json:"crawl" mapstructure:"crawl" toml:"crawl" yaml:"crawl"`
		// Watch configures watch mode.
		Watch WatchConfig `json:"watch" mapstructure:"watch" toml:"watch" yaml:"watch"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui" toml:"ui" yaml:"ui"`

		// Source is the file the configuration was read from, empty for
		// built-in defaults.
		Source string `json:"-" mapstructure:"-" toml:"-" yaml:"-"`
	}

	// DiscoveryConfig controls the descriptor search.
	DiscoveryConfig struct {
		// Pattern is the descriptor file name glob.
		Pattern string `json:"pattern" mapstructure:"pattern" toml:"pattern" yaml:"pattern"`
		// Ignore lists root-relative globs for subtrees to skip.
		Ignore []string `json:"ignore" mapstructure:"ignore" toml:"ignore" yaml:"ignore"`
		// Concurrency bounds concurrent directory reads.
		Concurrency int `json:"concurrency" mapstructure:"concurrency" toml:"concurrency" yaml:"concurrency"`
	}

	// ProjectConfig controls descriptor parsing.
	ProjectConfig struct {
		// TestMarkers are package names whose reference marks a test project.
		TestMarkers []string `json:"test_markers" mapstructure:"test_markers" toml:"test_markers" yaml:"test_markers"`
		// CacheSize is the parse cache capacity used in watch mode.
		CacheSize int `json:"cache_size" mapstructure:"cache_size" toml:"cache_size" yaml:"cache_size"`
	}

	// ToolchainConfig configures the dotnet CLI invocation.
	ToolchainConfig struct {
		// Command is the toolchain command line, split with shell rules.
		Command string `json:"command" mapstructure:"command" toml:"command" yaml:"command"`
		// ArtifactExtension is the solution file extension.
		ArtifactExtension ArtifactExtension `json:"artifact_extension" mapstructure:"artifact_extension" toml:"artifact_extension" yaml:"artifact_extension"`
		// SolutionFormat, when set, is passed as --format to "new sln".
		// SDKs whose "new sln" defaults to slnx need it set to "sln" when
		// ArtifactExtension is sln.
		SolutionFormat string `json:"solution_format" mapstructure:"solution_format" toml:"solution_format" yaml:"solution_format"`
		// Env holds extra environment variables for toolchain processes.
		Env map[string]string `json:"env" mapstructure:"env" toml:"env" yaml:"env"`
		// EnvFiles are dotenv files loaded before Env; a '?' suffix marks
		// a file as optional.
		EnvFiles []string `json:"env_files" mapstructure:"env_files" toml:"env_files" yaml:"env_files"`
	}

	// CrawlConfig controls solution population.
	CrawlConfig struct {
		// Jobs bounds concurrently populated roots; 0 means unbounded.
		Jobs int `json:"jobs" mapstructure:"jobs" toml:"jobs" yaml:"jobs"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period before a re-crawl, as a Go duration.
		Debounce string `json:"debounce" mapstructure:"debounce" toml:"debounce" yaml:"debounce"`
		// Ignore lists extra globs whose changes never trigger a re-crawl.
		Ignore []string `json:"ignore" mapstructure:"ignore" toml:"ignore" yaml:"ignore"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose" yaml:"verbose"`
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme" yaml:"color_scheme"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Pattern:     "*.csproj",
			Ignore:      []string{"**/bin", "**/obj"},
			Concurrency: 16,
		},
		Project: ProjectConfig{
			TestMarkers: []string{"Microsoft.NET.Test.Sdk"},
			CacheSize:   512,
		},
		Toolchain: ToolchainConfig{
			Command:           "dotnet",
			ArtifactExtension: ExtensionSln,
			Env:               map[string]string{},
			EnvFiles:          []string{},
		},
		Crawl: CrawlConfig{
			Jobs: 0,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
			Ignore:   []string{"**/*.sln", "**/*.slnx"},
		},
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// DebounceDuration parses Watch.Debounce.
func (c WatchConfig) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return 0, &InvalidValueError{Field: "watch.debounce", Value: c.Debounce, Err: ErrInvalidDebounce}
	}
	return d, nil
}

// IsValid returns whether the Config has valid fields, and the field errors
// if it does not. It covers the rules the CUE schema cannot express.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Toolchain.ArtifactExtension.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if !doublestar.ValidatePattern(c.Discovery.Pattern) || c.Discovery.Pattern == "" {
		errs = append(errs, &InvalidValueError{Field: "discovery.pattern", Value: c.Discovery.Pattern, Err: ErrInvalidPattern})
	}
	errs = append(errs, validatePatterns("discovery.ignore", c.Discovery.Ignore)...)
	errs = append(errs, validatePatterns("watch.ignore", c.Watch.Ignore)...)
	if _, err := c.Watch.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Discovery.Concurrency < 0 {
		errs = append(errs, &InvalidValueError{Field: "discovery.concurrency", Value: fmt.Sprint(c.Discovery.Concurrency), Err: ErrInvalidBound})
	}
	if c.Crawl.Jobs < 0 {
		errs = append(errs, &InvalidValueError{Field: "crawl.jobs", Value: fmt.Sprint(c.Crawl.Jobs), Err: ErrInvalidBound})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func validatePatterns(field string, patterns []string) []error {
	var errs []error
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, &InvalidValueError{Field: field, Value: p, Err: ErrInvalidPattern})
		}
	}
	return errs
}

// Error implements the error interface for InvalidValueError.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %v %q", e.Field, e.Err, e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.Err }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Field: "ui.color_scheme", Value: string(cs), Err: ErrInvalidColorScheme}}
	}
}

// String returns the string representation of the ArtifactExtension.
func (e ArtifactExtension) String() string { return string(e) }

// IsValid returns whether the extension is a known solution format.
func (e ArtifactExtension) IsValid() (bool, []error) {
	switch e {
	case ExtensionSln, ExtensionSlnx:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Field: "toolchain.artifact_extension", Value: string(e), Err: ErrInvalidArtifactExtension}}
	}
}
