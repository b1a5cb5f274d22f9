// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	ids := []Id{
		MalformedManifestId,
		UnresolvableArtifactId,
		TransportErrorId,
		IntegrityErrorId,
		ResolverLimitExceededId,
		InvalidDescriptorId,
		SymbolNotFoundId,
		InstantiationErrorId,
		LibraryOpenFailedId,
		NotAnApplicationId,
		DeadlineExceededId,
		ConfigLoadFailedId,
		CacheAccessFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
		if Get(id) == nil {
			t.Errorf("Get(%d) returned nil; every id needs a catalog entry", id)
		}
	}

	if MalformedManifestId != 1 {
		t.Errorf("MalformedManifestId = %d, want 1", MalformedManifestId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{MalformedManifestId, false, "Malformed bootstrap manifest"},
		{UnresolvableArtifactId, false, "not found in any repository"},
		{TransportErrorId, false, "Download failed"},
		{IntegrityErrorId, false, "integrity check"},
		{ResolverLimitExceededId, false, "too large"},
		{InvalidDescriptorId, false, "Invalid artifact descriptor"},
		{SymbolNotFoundId, false, "Symbol not found"},
		{InstantiationErrorId, false, "construct the application"},
		{LibraryOpenFailedId, false, "open a library"},
		{NotAnApplicationId, false, "not an application"},
		{DeadlineExceededId, false, "timed out"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{CacheAccessFailedId, false, "Cache directory"},
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
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		issue := Lookup(name)
		if issue == nil {
			t.Fatalf("Lookup(%q) returned nil", name)
		}
		if issue.Name() != name {
			t.Errorf("Lookup(%q).Name() = %q", name, issue.Name())
		}
	}

	if Lookup("no-such-kind") != nil {
		t.Error("Lookup of an unknown name should return nil")
	}
	if got := Lookup("unresolvable-artifact"); got == nil || got.Id() != UnresolvableArtifactId {
		t.Errorf("Lookup(unresolvable-artifact) = %v", got)
	}
}

func TestValues(t *testing.T) {
	issues := Values()
	if len(issues) != len(Names()) {
		t.Fatalf("len(Values()) = %d, len(Names()) = %d", len(issues), len(Names()))
	}

	names := make(map[string]bool)
	for i, issue := range issues {
		if i > 0 && issues[i-1].Id() >= issue.Id() {
			t.Errorf("Values() not ordered by id at %d", i)
		}
		if issue.Name() == "" || names[issue.Name()] {
			t.Errorf("issue %d has empty or duplicate name %q", issue.Id(), issue.Name())
		}
		names[issue.Name()] = true
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has an empty message", issue.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := &Issue{id: 1, docLinks: []HttpLink{"https://example.org/docs"}, extLinks: []HttpLink{"https://example.org/ext"}}

	links := issue.DocLinks()
	links[0] = "modified"
	if issue.DocLinks()[0] != "https://example.org/docs" {
		t.Error("DocLinks() should return a clone")
	}

	ext := issue.ExtLinks()
	ext[0] = "modified"
	if issue.ExtLinks()[0] != "https://example.org/ext" {
		t.Error("ExtLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	issue := &Issue{id: 1, mdMsg: "# Title", docLinks: []HttpLink{"https://example.org/docs"}}
	rendered, err := issue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "# Title") || !strings.Contains(rendered, "https://example.org/docs") {
		t.Errorf("Render() = %q, want message and links", rendered)
	}
}

func TestIssue_RenderGlamour(t *testing.T) {
	rendered, err := Get(SymbolNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "Symbol not found") {
		t.Errorf("Render() output missing title:\n%s", rendered)
	}
}
