// Package versioncheck looks up the latest conda2docker release.
package versioncheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/0xa1bed0/conda2docker/internal/state"
)

const (
	GitHubOwner = "0xa1bed0"
	GitHubRepo  = "conda2docker"

	// CacheTTL is how long a fetched release is trusted.
	CacheTTL       = 24 * time.Hour
	RequestTimeout = 5 * time.Second

	cacheKey = state.KVStoreKey("versioncheck:latest")
)

var ErrUnversionedBuild = errors.New("version check needs a released build")

type InstallMethod int

const (
	InstallMethodUnknown InstallMethod = iota
	InstallMethodHomebrew
	InstallMethodDownload
)

type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

type Result struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateURL       string
	UpdateAvailable bool
	InstallMethod   InstallMethod
}

// Checker fetches the latest release from the GitHub API and remembers it
// in the KV store for CacheTTL.
type Checker struct {
	client  *http.Client
	baseURL string
	kv      *state.KVStore
	now     func() time.Time
}

type CheckerOption func(*Checker)

// WithBaseURL points the checker at another GitHub API endpoint.
func WithBaseURL(u string) CheckerOption {
	return func(c *Checker) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) { c.client = client }
}

// NewChecker creates a checker. kv may be nil, then nothing is cached.
func NewChecker(kv *state.KVStore, opts ...CheckerOption) *Checker {
	c := &Checker{
		client:  &http.Client{Timeout: RequestTimeout},
		baseURL: "https://api.github.com",
		kv:      kv,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares current against the latest release. A cached release is
// used while fresh, and as a fallback when GitHub can't be reached.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnversionedBuild, current)
	}

	cached, fetchedAt, cacheErr := c.loadCache(ctx)
	if cacheErr == nil && c.now().Sub(fetchedAt) < CacheTTL {
		return buildResult(current, cur, cached), nil
	}

	latest, err := c.fetchLatestRelease(ctx)
	if err != nil {
		if cacheErr == nil {
			return buildResult(current, cur, cached), nil
		}
		return nil, err
	}
	c.saveCache(ctx, latest)

	return buildResult(current, cur, latest), nil
}

func buildResult(current string, cur *semver.Version, latest *githubRelease) *Result {
	r := &Result{
		CurrentVersion: current,
		LatestVersion:  latest.TagName,
		UpdateURL:      latest.HTMLURL,
		InstallMethod:  detectInstallMethod(),
	}
	if lv, err := semver.NewVersion(latest.TagName); err == nil {
		r.UpdateAvailable = lv.GreaterThan(cur)
	}
	return r
}

func (c *Checker) fetchLatestRelease(ctx context.Context) (*githubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, GitHubOwner, GitHubRepo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if release.TagName == "" {
		return nil, errors.New("github API returned a release without tag")
	}
	return &release, nil
}

// loadCache returns the cached release and when it was fetched.
func (c *Checker) loadCache(ctx context.Context) (*githubRelease, time.Time, error) {
	if c.kv == nil {
		return nil, time.Time{}, errors.New("no cache")
	}
	entry, found, err := c.kv.Get(ctx, cacheKey)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !found {
		return nil, time.Time{}, errors.New("cache not found")
	}

	var data struct {
		githubRelease
		FetchedAt int64 `json:"fetched_at"`
	}
	if err := json.Unmarshal([]byte(entry.Value), &data); err != nil {
		return nil, time.Time{}, err
	}
	return &data.githubRelease, time.Unix(data.FetchedAt, 0), nil
}

func (c *Checker) saveCache(ctx context.Context, release *githubRelease) {
	if c.kv == nil {
		return
	}
	data, err := json.Marshal(struct {
		githubRelease
		FetchedAt int64 `json:"fetched_at"`
	}{*release, c.now().Unix()})
	if err != nil {
		return
	}
	_ = c.kv.Upsert(ctx, cacheKey, string(data))
}

// detectInstallMethod guesses how conda2docker was installed from the
// executable path.
func detectInstallMethod() InstallMethod {
	execPath, err := os.Executable()
	if err != nil {
		return InstallMethodUnknown
	}

	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		realPath = execPath
	}

	if strings.Contains(realPath, "/Cellar/") ||
		strings.Contains(realPath, "/homebrew/") ||
		strings.Contains(realPath, "/linuxbrew/") {
		return InstallMethodHomebrew
	}

	return InstallMethodDownload
}

// UpgradeHint tells the user how to get the latest release.
func (r *Result) UpgradeHint() string {
	if r.InstallMethod == InstallMethodHomebrew {
		return "Run: brew upgrade conda2docker"
	}
	return "Download: " + r.UpdateURL
}
