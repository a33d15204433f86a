// SPDX-License-Identifier: MPL-2.0

package crawl

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slncrawl/slncrawl/internal/testutil"
)

func solutionListing(paths ...string) string {
	var b strings.Builder
	b.WriteString("Microsoft Visual Studio Solution File, Format Version 12.00\n")
	for i, p := range paths {
		name := p[strings.LastIndex(p, "/")+1:]
		fmt.Fprintf(&b, "Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"%s\", \"%s\", \"{00000000-0000-0000-0000-%012d}\"\nEndProject\n",
			strings.TrimSuffix(name, ".csproj"), strings.ReplaceAll(p, "/", `\`), i)
	}
	b.WriteString(`Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "B", "B", "{11111111-0000-0000-0000-000000000000}"` + "\nEndProject\n")
	b.WriteString("Global\nEndGlobal\n")
	return b.String()
}

func TestVerify(t *testing.T) {
	t.Parallel()

	mem, g := setup(t, map[string]string{
		"A/A.csproj":       testutil.Csproj(false, "../B/B.csproj"),
		"B/B.csproj":       testutil.Csproj(false),
		"C/C.csproj":       testutil.Csproj(false),
		"B.Tests/T.csproj": testutil.Csproj(true, "../B/B.csproj"),
	})
	require.NoError(t, afero.WriteFile(mem, "/repo/A/A.sln",
		[]byte(solutionListing("A.csproj", "../B/B.csproj", "../B.Tests/T.csproj")), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/repo/B/B.sln",
		[]byte(solutionListing("B.csproj", "../Stale/Stale.csproj")), 0o644))

	results, err := Verify(mem, root, g, "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK(), "%+v", results[0])

	assert.False(t, results[1].OK())
	assert.Equal(t, []string{"../B.Tests/T.csproj"}, results[1].Missing)
	assert.Equal(t, []string{"../Stale/Stale.csproj"}, results[1].Unexpected)

	assert.True(t, results[2].Absent)
	assert.Equal(t, []string{"C.csproj"}, results[2].Missing)
}

func TestVerifyXMLSolution(t *testing.T) {
	t.Parallel()

	mem, g := setup(t, map[string]string{
		"A/A.csproj":       testutil.Csproj(false, "../B/B.csproj"),
		"B/B.csproj":       testutil.Csproj(false),
		"B.Tests/T.csproj": testutil.Csproj(true, "../B/B.csproj"),
	})
	require.NoError(t, afero.WriteFile(mem, "/repo/A/A.slnx", []byte(`<Solution>
  <Project Path="A.csproj" />
  <Folder Name="/deps/">
    <Project Path="..\B\B.csproj" />
    <Folder Name="/deps/tests/">
      <Project Path="../B.Tests/T.csproj" />
    </Folder>
  </Folder>
</Solution>
`), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/repo/B/B.slnx", []byte(`<Solution>
  <Project Path="B.csproj" />
</Solution>
`), 0o644))

	results, err := Verify(mem, root, g, "slnx")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "A.slnx", results[0].Artifact)
	assert.True(t, results[0].OK(), "%+v", results[0])

	assert.False(t, results[1].OK())
	assert.False(t, results[1].Absent)
	assert.Equal(t, []string{"../B.Tests/T.csproj"}, results[1].Missing)
	assert.Empty(t, results[1].Unexpected)
}

func TestVerifyMalformedSolution(t *testing.T) {
	t.Parallel()

	mem, g := setup(t, map[string]string{"A/A.csproj": testutil.Csproj(false)})
	require.NoError(t, afero.WriteFile(mem, "/repo/A/A.sln", []byte(`Project("{X}") = "A", "A.csproj", "{1}"`+"\n"), 0o644))

	_, err := Verify(mem, root, g, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/repo/A/A.sln")
}
