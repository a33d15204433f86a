// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCsproj(t *testing.T) {
	t.Parallel()

	got := Csproj(true, `..\Lib\Lib.csproj`, "../Core/Core.csproj")
	for _, want := range []string{
		`<PackageReference Include="Microsoft.NET.Test.Sdk"`,
		`<ProjectReference Include="..\Lib\Lib.csproj" />`,
		`<ProjectReference Include="../Core/Core.csproj" />`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Csproj() missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(Csproj(false), "PackageReference") {
		t.Error("non-test project should not carry the marker")
	}
}

func TestMemTree(t *testing.T) {
	t.Parallel()

	fsys := MemTree(t, "/repo", map[string]string{
		"App/App.csproj": "<Project />",
	})
	if got := ReadFile(t, fsys, filepath.Join("/repo", "App", "App.csproj")); got != "<Project />" {
		t.Errorf("content = %q", got)
	}
}

func TestDiskTree(t *testing.T) {
	t.Parallel()

	dir := DiskTree(t, map[string]string{"a/b/c.txt": "x"})
	data, err := os.ReadFile(filepath.Join(dir, "a", "b", "c.txt"))
	if err != nil || string(data) != "x" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}

	MustMkdirAll(t, filepath.Join(dir, "d", "e"))
	if info, err := os.Stat(filepath.Join(dir, "d", "e")); err != nil || !info.IsDir() {
		t.Errorf("MustMkdirAll did not create directory: %v", err)
	}
}
