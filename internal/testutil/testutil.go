// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// TestMarker is the package reference Csproj adds for test projects.
const TestMarker = "Microsoft.NET.Test.Sdk"

// Csproj returns SDK-style project content with a ProjectReference for each
// ref, written verbatim so backslash separators survive. A test project also
// references TestMarker.
func Csproj(test bool, refs ...string) string {
	var b strings.Builder
	b.WriteString("<Project Sdk=\"Microsoft.NET.Sdk\">\n  <ItemGroup>\n")
	if test {
		fmt.Fprintf(&b, "    <PackageReference Include=\"%s\" Version=\"17.8.0\" />\n", TestMarker)
	}
	for _, r := range refs {
		fmt.Fprintf(&b, "    <ProjectReference Include=\"%s\" />\n", r)
	}
	b.WriteString("  </ItemGroup>\n</Project>\n")
	return b.String()
}

// WriteTree writes files, keyed by slash-separated paths relative to root,
// into fsys. root itself is always created.
func WriteTree(t testing.TB, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", root, err)
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := afero.WriteFile(fsys, p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// MemTree returns an in-memory filesystem holding files under root.
func MemTree(t testing.TB, root string, files map[string]string) afero.Fs {
	t.Helper()
	mem := afero.NewMemMapFs()
	WriteTree(t, mem, root, files)
	return mem
}

// DiskTree writes files under a fresh temporary directory and returns it.
func DiskTree(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteTree(t, afero.NewOsFs(), dir, files)
	return dir
}

// ReadFile returns the content of path, failing the test when unreadable.
func ReadFile(t testing.TB, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// MustMkdirAll creates a directory on disk along with any necessary parents.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}
