// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

var allIds = []Id{
	JavaNotFoundId,
	SystemBundleMissingId,
	BootstrapWriteFailedId,
	SpawnFailedId,
	FrameworkExitedId,
	ConfigLoadFailedId,
	BundleSetInvalidId,
	SourceDirUnreadableId,
	PermissionDeniedId,
}

// stubRender replaces the glamour renderer for the duration of a test.
// Tests using it must not run in parallel.
func stubRender(t *testing.T) {
	t.Helper()
	original := render
	render = func(in string, _ string) (string, error) { return in, nil }
	t.Cleanup(func() { render = original })
}

func TestId_Constants(t *testing.T) {
	seen := make(map[Id]bool)
	for _, id := range allIds {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}
	if JavaNotFoundId != 1 {
		t.Errorf("JavaNotFoundId = %d, want 1", JavaNotFoundId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		contains string
	}{
		{JavaNotFoundId, "Java not found"},
		{SystemBundleMissingId, "No system bundle"},
		{BootstrapWriteFailedId, "bootstrap file"},
		{SpawnFailedId, "Failed to start the framework"},
		{FrameworkExitedId, "non-zero exit code"},
		{ConfigLoadFailedId, "Failed to load configuration"},
		{BundleSetInvalidId, "Invalid bundle set"},
		{SourceDirUnreadableId, "could not be packaged"},
		{PermissionDeniedId, "Permission denied"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}

	if Get(Id(9999)) != nil {
		t.Error("Get(9999) should return nil")
	}
}

func TestValues(t *testing.T) {
	issues := Values()
	if len(issues) != len(allIds) {
		t.Errorf("Values() returned %d issues, want %d", len(issues), len(allIds))
	}
	for _, issue := range issues {
		if issue.Id() == 0 {
			t.Error("found issue with ID 0")
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty MarkdownMsg", issue.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := Get(JavaNotFoundId)
	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("JavaNotFound should carry an external link")
	}
	original := links[0]
	links[0] = "modified"
	if issue.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
	if issue.DocLinks() != nil {
		t.Errorf("DocLinks() = %v, want nil", issue.DocLinks())
	}
}

func TestIssue_Render(t *testing.T) {
	stubRender(t)

	withLinks := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}
	rendered, err := withLinks.Render("")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{"## See also", "- <https://docs.example.com>", "- <https://external.example.com>"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Render() missing %q in:\n%s", want, rendered)
		}
	}

	noLinks := &Issue{id: Id(9998), mdMsg: "# Test Issue"}
	rendered, err = noLinks.Render("")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	for _, issue := range Values() {
		rendered, err := issue.Render("notty")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", issue.Id(), err)
		}
		if strings.TrimSpace(rendered) == "" {
			t.Errorf("issue %d rendered to empty string", issue.Id())
		}
	}
}
