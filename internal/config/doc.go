// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is read from the first of: an explicit --config path, ./slncrawl.cue in
// the working directory, or the user config file (config.cue under $XDG_CONFIG_HOME/slncrawl
// on Linux, ~/Library/Application Support/slncrawl on macOS, %APPDATA%\slncrawl on Windows).
// Values not present in the file keep their built-in defaults, and SLNCRAWL_* environment
// variables override both (e.g. SLNCRAWL_CRAWL_JOBS=4).
//
// Files are validated against the embedded CUE schema (config_schema.cue) before they are
// merged; rules CUE cannot express, such as glob syntax, are checked by Config.IsValid.
package config
