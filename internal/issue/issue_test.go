// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{RootNotFoundId, false, "Root directory not found"},
		{DiscoveryFailedId, false, "Project discovery failed"},
		{MetadataParseErrorId, false, "Malformed project file"},
		{ToolchainNotFoundId, false, "dotnet CLI not found"},
		{ReferenceOperationFailedId, false, "could not be populated"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{InvalidPatternId, false, "Invalid glob pattern"},
		{PermissionDeniedId, false, "Permission denied"},
		{SolutionParseErrorId, false, "Unreadable solution file"},
		{WatchFailedId, false, "File watching failed"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Get(%d).Id() = %d", tt.id, issue.Id())
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues_SortedAndComplete(t *testing.T) {
	values := Values()

	if len(values) != int(WatchFailedId) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), WatchFailedId)
	}
	for i, issue := range values {
		if issue.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, issue.Id(), i+1)
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty MarkdownMsg", issue.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := Get(ToolchainNotFoundId)
	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	original := links[0]
	links[0] = "modified"
	if issue.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
	if issue.DocLinks() != nil {
		t.Error("DocLinks() should be nil when none are set")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	var gotStyle string
	render = func(in string, stylePath string) (string, error) {
		gotStyle = stylePath
		return in, nil
	}

	rendered, err := Get(InvalidPatternId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q, want notty", gotStyle)
	}
	if !strings.Contains(rendered, "## See also") || !strings.Contains(rendered, "doublestar#patterns") {
		t.Errorf("Render() should list links:\n%s", rendered)
	}

	rendered, err = Get(PermissionDeniedId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestIssue_RenderWithGlamour(t *testing.T) {
	out, err := Get(RootNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(out, "Root directory not found") {
		t.Errorf("rendered output missing heading:\n%s", out)
	}
}
