// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	values := Values()
	if len(values) != int(PermissionDeniedId) {
		t.Fatalf("Values() has %d issues, want %d", len(values), PermissionDeniedId)
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if strings.TrimSpace(string(v.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", v.Id())
		}
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		contains string
	}{
		{ManifestNotFoundId, "No pack manifest found"},
		{ManifestParseErrorId, "Failed to parse the pack manifest"},
		{InvalidPackNameId, "Invalid pack name"},
		{PackNotFoundId, "Pack not found"},
		{CyclicExtensionId, "Extension cycle detected"},
		{NameCollisionId, "Name collision"},
		{EmptyNamespaceId, "exposes nothing"},
		{FetchFailedId, "Failed to fetch"},
		{IntegrityFailureId, "Integrity check failed"},
		{VersionNotFoundId, "No matching version"},
		{TemplateChoiceId, "Which template"},
		{RegistryUnavailableId, "registry is unavailable"},
		{ConfigLoadFailedId, "Failed to load configuration"},
		{PermissionDeniedId, "Permission denied"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d) message should contain %q", tt.id, tt.contains)
			}
		})
	}

	if Get(Id(9999)) != nil {
		t.Error("Get(9999) should return nil")
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := Get(ConfigLoadFailedId)
	links := issue.DocLinks()
	if len(links) == 0 {
		t.Fatal("config issue should carry a doc link")
	}
	original := links[0]
	links[0] = "modified"
	if issue.DocLinks()[0] != original {
		t.Error("DocLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, _ string) (string, error) {
		return in, nil
	}

	rendered, err := Get(RegistryUnavailableId).Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "circuit breaker") {
		t.Error("Render() output should contain the message")
	}
	if !strings.Contains(rendered, "## See also") || !strings.Contains(rendered, "<https://status.crates.io>") {
		t.Errorf("Render() should list the links:\n%s", rendered)
	}
}

func TestIssue_RenderWithGlamour(t *testing.T) {
	t.Parallel()

	rendered, err := Get(NameCollisionId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "Name collision") {
		t.Errorf("rendered output lost the heading:\n%s", rendered)
	}
}
