package collector

import (
	"testing"
	"time"

	"digestpipe/internal/domain"
)

func githubSourceConfig() SourceConfig {
	return SourceConfig{
		ID:       "gh-test",
		URL:      "https://api.github.com/repos/test/repo/releases",
		Tier:     0,
		Method:   MethodGitHubReleases,
		Kind:     domain.KindRelease,
		MaxItems: 100,
	}
}

const sampleGitHubReleases = `[
  {"id": 1, "tag_name": "v1.0", "name": "Release 1", "html_url": "https://github.com/test/repo/releases/tag/v1.0", "published_at": "2024-01-15T10:00:00Z", "body": "Release notes"},
  {"id": 2, "tag_name": "v0.9", "name": "", "html_url": "https://github.com/test/repo/releases/tag/v0.9", "published_at": "2024-01-01T10:00:00Z", "body": "Earlier notes"},
  {"id": 3, "tag_name": "v1.1-draft", "name": "Draft", "html_url": "https://github.com/test/repo/releases/tag/v1.1-draft", "published_at": "2024-02-01T10:00:00Z", "draft": true}
]`

func TestGitHubAdapterParsesReleasesAndSkipsDrafts(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: githubSourceConfig().URL, Body: []byte(sampleGitHubReleases)}}}
	result := GitHubAdapter{}.Collect(t.Context(), githubSourceConfig(), transport, time.Now())

	if result.State != SourceDone {
		t.Fatalf("expected SOURCE_DONE, got %s (%v)", result.State, result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected draft release to be excluded, got %d items", len(result.Items))
	}
	if result.Items[1].Title != "v0.9" {
		t.Errorf("expected a release with no name to fall back to tag_name, got %q", result.Items[1].Title)
	}
}

func TestGitHubAdapterReportsAuthErrorWithRemediation(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: githubSourceConfig().URL, StatusCode: 401, Body: []byte("Unauthorized")}}}
	result := GitHubAdapter{}.Collect(t.Context(), githubSourceConfig(), transport, time.Now())

	if result.State != SourceFailed {
		t.Fatalf("expected SOURCE_FAILED on 401, got %s", result.State)
	}
	if result.Error == nil {
		t.Fatal("expected an error")
	}
	if got := result.Error.Message; got == "" {
		t.Fatal("expected a remediation message")
	}
}
