package versioncheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xa1bed0/conda2docker/internal/state"
)

func newKV(t *testing.T) *state.KVStore {
	t.Helper()
	db, err := state.Open(t.Context(), state.Config{Path: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	kv, err := state.NewKVStore(t.Context(), db)
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	return kv
}

func releaseServer(t *testing.T, tag string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/repos/"+GitHubOwner+"/"+GitHubRepo+"/releases/latest" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `","html_url":"https://example.com/` + tag + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckUpdateAvailable(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := releaseServer(t, "v1.3.0", &hits)
	c := NewChecker(newKV(t), WithBaseURL(srv.URL))

	res, err := c.Check(t.Context(), "v1.2.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.UpdateAvailable {
		t.Fatalf("UpdateAvailable = false, want true")
	}
	if res.LatestVersion != "v1.3.0" {
		t.Fatalf("LatestVersion = %q, want %q", res.LatestVersion, "v1.3.0")
	}
	if res.UpdateURL != "https://example.com/v1.3.0" {
		t.Fatalf("UpdateURL = %q", res.UpdateURL)
	}

	res, err = c.Check(t.Context(), "1.3.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.UpdateAvailable {
		t.Fatalf("UpdateAvailable = true for the latest release")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("GitHub hit %d times, want 1 (second check is cached)", got)
	}
}

func TestCheckCacheExpires(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := releaseServer(t, "v2.0.0", &hits)
	c := NewChecker(newKV(t), WithBaseURL(srv.URL))
	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.Check(t.Context(), "v1.0.0"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	now = now.Add(CacheTTL + time.Minute)
	if _, err := c.Check(t.Context(), "v1.0.0"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("GitHub hit %d times, want 2", got)
	}
}

func TestCheckFallsBackToStaleCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := releaseServer(t, "v1.1.0", &hits)
	kv := newKV(t)
	c := NewChecker(kv, WithBaseURL(srv.URL))
	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.Check(t.Context(), "v1.0.0"); err != nil {
		t.Fatalf("Check: %v", err)
	}

	srv.Close()
	now = now.Add(2 * CacheTTL)
	res, err := c.Check(t.Context(), "v1.0.0")
	if err != nil {
		t.Fatalf("Check with GitHub down: %v", err)
	}
	if res.LatestVersion != "v1.1.0" || !res.UpdateAvailable {
		t.Fatalf("result = %+v, want the cached v1.1.0", res)
	}
}

func TestCheckErrors(t *testing.T) {
	t.Parallel()

	c := NewChecker(nil, WithBaseURL("http://127.0.0.1:1"))
	if _, err := c.Check(context.Background(), "local"); !errors.Is(err, ErrUnversionedBuild) {
		t.Fatalf("Check(local) err = %v, want ErrUnversionedBuild", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c = NewChecker(nil, WithBaseURL(srv.URL))
	if _, err := c.Check(context.Background(), "v1.0.0"); err == nil {
		t.Fatalf("Check with a failing API succeeded")
	}
}

func TestUpgradeHint(t *testing.T) {
	t.Parallel()

	r := &Result{UpdateURL: "https://example.com/r", InstallMethod: InstallMethodHomebrew}
	if got := r.UpgradeHint(); got != "Run: brew upgrade conda2docker" {
		t.Fatalf("UpgradeHint() = %q", got)
	}
	r.InstallMethod = InstallMethodDownload
	if got := r.UpgradeHint(); got != "Download: https://example.com/r" {
		t.Fatalf("UpgradeHint() = %q", got)
	}
}
