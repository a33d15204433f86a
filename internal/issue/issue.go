// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

// Issue identifiers. Values are stable; append new ones at the end.
const (
	RootNotFoundId Id = iota + 1
	DiscoveryFailedId
	MetadataParseErrorId
	ToolchainNotFoundId
	ReferenceOperationFailedId
	ConfigLoadFailedId
	InvalidPatternId
	PermissionDeniedId
	SolutionParseErrorId
	WatchFailedId
)

type (
	//nolint:revive // Id mirrors the accessor name used across the catalog
	Id int

	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation or external URL.
	//
	//nolint:revive
	HttpLink string

	// Issue is a catalog entry with remediation guidance for a class of failure.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

// Id returns the issue identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw Markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// ExtLinks returns a copy of the external links.
func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue through glamour using the given style
// ("dark", "light", "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	rootNotFoundIssue = &Issue{
		id: RootNotFoundId,
		mdMsg: `
# Root directory not found!

The directory given to slncrawl does not exist or is not a directory.

## Things you can try:
- Pass the repository root explicitly:
~~~
$ slncrawl crawl /path/to/repo
~~~
- Run slncrawl from inside the repository (the default root is the working directory)`,
	}

	discoveryFailedIssue = &Issue{
		id: DiscoveryFailedId,
		mdMsg: `
# Project discovery failed!

A directory under the root could not be read while searching for project files.

## Things you can try:
- Check that every directory under the root is readable
- Exclude unreadable subtrees in your config:
~~~cue
discovery: ignore: ["**/bin", "**/obj", "**/secrets"]
~~~`,
	}

	metadataParseErrorIssue = &Issue{
		id: MetadataParseErrorId,
		mdMsg: `
# Malformed project file!

A project file could not be parsed, so the reference graph cannot be built.

## Common causes:
- Unbalanced XML tags or an unterminated attribute
- A ` + "`<ProjectReference>`" + ` or ` + "`<PackageReference>`" + ` without an ` + "`Include`" + ` attribute

## Things you can try:
- Open the file in an editor with XML validation
- Run ` + "`dotnet build`" + ` on the project to get the MSBuild diagnostic`,
	}

	toolchainNotFoundIssue = &Issue{
		id: ToolchainNotFoundId,
		mdMsg: `
# dotnet CLI not found!

slncrawl drives the dotnet CLI to create and edit solution files, and it is not on your PATH.

## Things you can try:
- Install the .NET SDK and make sure ` + "`dotnet`" + ` is on your PATH
- Point slncrawl at a specific binary:
~~~cue
toolchain: command: "/usr/share/dotnet/dotnet"
~~~
- Or for a single run:
~~~
$ SLNCRAWL_TOOLCHAIN_COMMAND=/opt/dotnet/dotnet slncrawl crawl
~~~`,
		extLinks: []HttpLink{"https://learn.microsoft.com/dotnet/core/install/"},
	}

	referenceOperationFailedIssue = &Issue{
		id: ReferenceOperationFailedId,
		mdMsg: `
# Some solutions could not be populated!

The dotnet CLI failed for one or more root projects. Other roots were still processed.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the toolchain output for each root
- Check whether a listed solution file is locked by an IDE
- Compare the current state with ` + "`slncrawl verify`" + ``,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- See which file was used:
~~~
$ slncrawl config path
~~~
- Compare it with the defaults:
~~~
$ slncrawl config show
~~~
- Write a fresh file with ` + "`slncrawl config init --force`" + ``,
	}

	invalidPatternIssue = &Issue{
		id: InvalidPatternId,
		mdMsg: `
# Invalid glob pattern!

Patterns use doublestar syntax: ` + "`*`" + ` matches within a path segment and ` + "`**`" + ` crosses segments.

## Examples:
- ` + "`*.csproj`" + `: project files
- ` + "`*.{csproj,fsproj}`" + `: C# and F# projects
- ` + "`**/bin`" + `: every bin directory`,
		extLinks: []HttpLink{"https://github.com/bmatcuk/doublestar#patterns"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

slncrawl could not read a project or write a solution file.

## Things you can try:
- Check file and directory permissions under the root
- Run slncrawl from a checkout you own`,
	}

	solutionParseErrorIssue = &Issue{
		id: SolutionParseErrorId,
		mdMsg: `
# Unreadable solution file!

An existing solution file could not be parsed during verification.

## Things you can try:
- Delete the file and run ` + "`slncrawl crawl`" + ` to recreate it
- Check for merge conflict markers in the file`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# File watching failed!

The operating system refused to watch the project tree.

## Things you can try:
- On Linux, raise the inotify limits:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~
- Ignore large generated trees with ` + "`watch.ignore`" + ``,
	}

	issues = map[Id]*Issue{
		rootNotFoundIssue.Id():             rootNotFoundIssue,
		discoveryFailedIssue.Id():          discoveryFailedIssue,
		metadataParseErrorIssue.Id():       metadataParseErrorIssue,
		toolchainNotFoundIssue.Id():        toolchainNotFoundIssue,
		referenceOperationFailedIssue.Id(): referenceOperationFailedIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		invalidPatternIssue.Id():           invalidPatternIssue,
		permissionDeniedIssue.Id():         permissionDeniedIssue,
		solutionParseErrorIssue.Id():       solutionParseErrorIssue,
		watchFailedIssue.Id():              watchFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
	return values
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
