package cache

import (
	"strings"
	"testing"
)

func TestSanitizeTagPrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"My_Project": "my_project",
		"..-hidden":  "hidden",
		"a b/c:d":    "abcd",
		"ünïcode-ok": "ncode-ok",
		"v1.2.3":     "v1.2.3",
		"///":        "",
	}
	for in, want := range tests {
		if got := sanitizeTagPrefix(in); got != want {
			t.Fatalf("sanitizeTagPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComposePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                                 "unknown-project",
		"/":                                "unknown-project",
		"/srv/projects/Analysis/notebooks": "analysis_notebooks",
		"/srv/projects/analysis/run.py":    "projects_analysis",
		"/data":                            "data",
	}
	for in, want := range tests {
		if got := composePrefix(in); got != want {
			t.Fatalf("composePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComposeImageTag(t *testing.T) {
	t.Parallel()

	key := CacheKey(strings.Repeat("ab", 32))
	if got, want := composeImageTag("proj", key), "proj-abababababababab"; got != want {
		t.Fatalf("composeImageTag = %q, want %q", got, want)
	}
	if got, want := composeImageTag("", key), "abababababababab"; got != want {
		t.Fatalf("composeImageTag without prefix = %q, want %q", got, want)
	}

	long := composeImageTag(strings.Repeat("x", 300), key)
	if len(long) != maxTagLength {
		t.Fatalf("long tag length = %d, want %d", len(long), maxTagLength)
	}
	if !strings.HasSuffix(long, "-abababababababab") {
		t.Fatalf("long tag lost its key: %q", long)
	}
}

func TestImageReference(t *testing.T) {
	t.Parallel()

	key := CacheKey(strings.Repeat("0f", 32))
	got := ImageReference("/srv/work/repo", key)
	if want := "conda2docker:work_repo-0f0f0f0f0f0f0f0f"; got != want {
		t.Fatalf("ImageReference = %q, want %q", got, want)
	}
}
