// SPDX-License-Identifier: MPL-2.0

// Package logging builds the structured logger shared by every slncrawl
// component. Records go through log/slog so libraries stay decoupled from
// the backend; the backend is a charmbracelet/log handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Options configures New.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// Format is one of FormatText, FormatJSON, FormatLogfmt; empty means text.
	Format string
	// Prefix is printed before every text record.
	Prefix string
	// Timestamps enables time reporting on each record.
	Timestamps bool
}

// New returns a slog.Logger writing to w through a charm log handler.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	formatter, err := parseFormatter(opts.Format)
	if err != nil {
		return nil, err
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
		Formatter:       formatter,
	})
	handler.SetStyles(styles())

	return slog.New(handler), nil
}

// Install makes l the process default so slog.Default() callers share it.
func Install(l *slog.Logger) {
	slog.SetDefault(l)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseFormatter(format string) (log.Formatter, error) {
	switch format {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q (want %s, %s or %s)", format, FormatText, FormatJSON, FormatLogfmt)
	}
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Keys["project"] = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	s.Values["project"] = lipgloss.NewStyle().Bold(true)
	s.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	return s
}
