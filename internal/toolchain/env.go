// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFiles reads dotenv files in order and merges them; later files win.
// Relative paths are resolved against baseDir. A path suffixed with '?' is
// optional and silently skipped when missing.
func LoadEnvFiles(baseDir string, files []string) (map[string]string, error) {
	env := make(map[string]string)
	for _, f := range files {
		optional := strings.HasSuffix(f, "?")
		f = strings.TrimSuffix(f, "?")

		full := filepath.FromSlash(f)
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, full)
		}

		values, err := godotenv.Read(full)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read env file '%s': %w", f, err)
		}
		maps.Copy(env, values)
	}
	return env, nil
}

// BuildEnv returns the process environment for toolchain invocations: the
// inherited environment, then env file values, then explicit overrides.
func BuildEnv(fileEnv, overrides map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	maps.Copy(merged, fileEnv)
	maps.Copy(merged, overrides)
	return EnvToSlice(merged)
}

// EnvToSlice converts an env map into sorted KEY=value entries.
func EnvToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
