// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"sync/atomic"
	"testing"
)

const appProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <ProjectReference Include="..\Core\Core.csproj" />
    <ProjectReference Include="../Data/Data.csproj" />
  </ItemGroup>
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
  </ItemGroup>
</Project>`

const testProject = `<?xml version="1.0" encoding="utf-8"?>
<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <PackageReference Include="microsoft.net.test.sdk" Version="17.8.0" />
    <PackageReference Include="xunit" Version="2.6.1" />
    <ProjectReference Include="..\App\App.csproj" />
  </ItemGroup>
</Project>`

func TestXMLParserParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantRefs []string
		wantTest bool
	}{
		{
			name:     "references in declaration order",
			content:  appProject,
			wantRefs: []string{`..\Core\Core.csproj`, "../Data/Data.csproj"},
		},
		{
			name:     "test marker is case-insensitive",
			content:  testProject,
			wantRefs: []string{`..\App\App.csproj`},
			wantTest: true,
		},
		{
			name:    "no item groups",
			content: `<Project Sdk="Microsoft.NET.Sdk"><PropertyGroup /></Project>`,
		},
		{
			name:     "legacy msbuild namespace",
			content:  `<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003"><ItemGroup><ProjectReference Include="Lib\Lib.csproj"><Project>{6A3D}</Project></ProjectReference></ItemGroup></Project>`,
			wantRefs: []string{`Lib\Lib.csproj`},
		},
		{
			name:     "byte order mark",
			content:  "\ufeff" + `<Project><ItemGroup><ProjectReference Include=" A.csproj " /></ItemGroup></Project>`,
			wantRefs: []string{"A.csproj"},
		},
	}

	p := NewXMLParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := p.Parse("x.csproj", []byte(tt.content))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(d.References) != len(tt.wantRefs) {
				t.Fatalf("References = %v, want %v", d.References, tt.wantRefs)
			}
			for i := range tt.wantRefs {
				if d.References[i] != tt.wantRefs[i] {
					t.Errorf("References[%d] = %q, want %q", i, d.References[i], tt.wantRefs[i])
				}
			}
			if d.IsTest != tt.wantTest {
				t.Errorf("IsTest = %v, want %v", d.IsTest, tt.wantTest)
			}
		})
	}
}

func TestXMLParserErrors(t *testing.T) {
	t.Parallel()

	p := NewXMLParser()

	_, err := p.Parse("bad.csproj", []byte(`<Project><ItemGroup>`))
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("truncated XML: error = %v, want *SyntaxError", err)
	}
	if syntaxErr.Path != "bad.csproj" {
		t.Errorf("SyntaxError.Path = %q", syntaxErr.Path)
	}

	_, err = p.Parse("empty.csproj", nil)
	if !errors.As(err, &syntaxErr) {
		t.Errorf("empty content: error = %v, want *SyntaxError", err)
	}

	_, err = p.Parse("wrong.csproj", []byte(`<Solution />`))
	if !errors.As(err, &syntaxErr) {
		t.Errorf("wrong root: error = %v, want *SyntaxError", err)
	}

	_, err = p.Parse("noinc.csproj", []byte(`<Project><ItemGroup><ProjectReference /></ItemGroup></Project>`))
	var missing *MissingAttributeError
	if !errors.As(err, &missing) {
		t.Fatalf("missing Include: error = %v, want *MissingAttributeError", err)
	}
	if missing.Attr != "Include" || missing.Element != "ProjectReference" {
		t.Errorf("MissingAttributeError = %+v", missing)
	}
}

func TestWithTestMarkers(t *testing.T) {
	t.Parallel()

	p := NewXMLParser(WithTestMarkers("  ", "NUnit3TestAdapter"))
	d, err := p.Parse("t.csproj", []byte(testProject))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.IsTest {
		t.Error("IsTest = true, want false when only custom markers are configured")
	}

	if got := NewXMLParser(WithTestMarkers()).Markers(); len(got) != 1 || got[0] != DefaultTestMarker {
		t.Errorf("Markers() = %v, want default", got)
	}
}

type countingParser struct {
	calls atomic.Int32
	inner Parser
}

func (c *countingParser) Parse(path string, content []byte) (*Descriptor, error) {
	c.calls.Add(1)
	return c.inner.Parse(path, content)
}

func TestCachingParser(t *testing.T) {
	t.Parallel()

	counter := &countingParser{inner: NewXMLParser()}
	cp, err := NewCachingParser(counter, 0)
	if err != nil {
		t.Fatalf("NewCachingParser() error = %v", err)
	}

	first, err := cp.Parse("App.csproj", []byte(appProject))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	first.References[0] = "mutated"

	second, err := cp.Parse("App.csproj", []byte(appProject))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := counter.calls.Load(); got != 1 {
		t.Errorf("inner calls = %d, want 1", got)
	}
	if second.References[0] != `..\Core\Core.csproj` {
		t.Errorf("cached descriptor was mutated through a returned value: %v", second.References)
	}

	if _, err := cp.Parse("App.csproj", []byte(testProject)); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := counter.calls.Load(); got != 2 {
		t.Errorf("inner calls after content change = %d, want 2", got)
	}

	if _, err := cp.Parse("bad.csproj", []byte("<")); err == nil {
		t.Fatal("expected error for malformed content")
	}
	if cp.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (errors are not cached)", cp.Len())
	}

	cp.Purge()
	if cp.Len() != 0 {
		t.Errorf("Len() after Purge = %d", cp.Len())
	}
}
