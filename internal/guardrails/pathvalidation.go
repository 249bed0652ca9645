// Package guardrails keeps system and credential folders out of build contexts.
package guardrails

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hostappconfig "github.com/0xa1bed0/conda2docker/internal/apps/conda2docker/config"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/utils"
)

var ErrPathDenied = errors.New("path is denied by guardrails")

// A forbidden rule: either exact path or prefix path.
type forbiddenRule struct {
	Path   string // normalized absolute path
	Exact  bool   // forbid ONLY this exact path
	Prefix bool   // forbid this path AND any child paths
}

var forbiddenRules []forbiddenRule

func init() {
	home := homeDir()

	expand := func(p string) string {
		if after, ok := strings.CutPrefix(p, "~/"); ok {
			return filepath.Join(home, after)
		}
		return p
	}

	raw := []forbiddenRule{
		// whole filesystem or whole home as a build context
		{Path: "/", Exact: true},
		{Path: home, Exact: true},

		// --- LINUX & MACOS SYSTEM DIRECTORIES ---
		{Path: "/bin", Prefix: true},
		{Path: "/sbin", Prefix: true},
		{Path: "/lib", Prefix: true},
		{Path: "/lib32", Prefix: true},
		{Path: "/lib64", Prefix: true},
		{Path: "/usr", Prefix: true},
		{Path: "/etc", Prefix: true},
		{Path: "/dev", Prefix: true},
		{Path: "/proc", Prefix: true},
		{Path: "/sys", Prefix: true},
		{Path: "/run", Prefix: true},
		{Path: "/boot", Prefix: true},
		{Path: "/lost+found", Prefix: true},
		{Path: "/var", Exact: true},
		{Path: "/opt", Exact: true},
		{Path: "/srv", Exact: true},
		{Path: "/tmp", Exact: true},
		{Path: "/mnt", Exact: true},
		{Path: "/media", Exact: true},
		{Path: "/home", Exact: true},
		{Path: "/root", Exact: true},

		// --- MACOS SYSTEM DIRECTORIES ---
		{Path: "/System", Prefix: true},
		{Path: "/Applications", Prefix: true},
		{Path: "/Library", Prefix: true},
		{Path: "/Users", Exact: true},
		{Path: "/Volumes", Exact: true},
		{Path: expand("~/Library"), Prefix: true},

		// --- USER-SENSITIVE PATHS ---
		{Path: expand("~/.ssh"), Prefix: true},
		{Path: expand("~/.gnupg"), Prefix: true},
		{Path: expand("~/.pki"), Prefix: true},
		{Path: expand("~/.aws"), Prefix: true},
		{Path: expand("~/.azure"), Prefix: true},
		{Path: expand("~/.docker"), Prefix: true},
		{Path: expand("~/.kube"), Prefix: true},
		{Path: expand("~/.config/gh"), Prefix: true},
		{Path: expand("~/.config/gcloud"), Prefix: true},
		{Path: expand("~/.local/share/keyrings"), Prefix: true},
		{Path: expand("~/.mozilla"), Prefix: true},
		{Path: expand("~/.config/google-chrome"), Prefix: true},
		{Path: expand("~/.config/chromium"), Prefix: true},
		{Path: expand("~/.conda"), Prefix: true},

		// --- CONDA2DOCKER INTERNALS ---
		{Path: hostappconfig.ConfigBasePath(), Prefix: true},
	}

	for _, r := range raw {
		if r.Path == "" {
			continue
		}
		r.Path = filepath.Clean(r.Path)
		forbiddenRules = append(forbiddenRules, r)
		// rules are compared against symlink-free paths (/tmp -> /private/tmp on macOS)
		if real, err := filepath.EvalSymlinks(r.Path); err == nil && real != r.Path {
			r.Path = real
			forbiddenRules = append(forbiddenRules, r)
		}
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// CheckRepositoryPath fails with ErrPathDenied when rawPath resolves to a
// folder that must never be copied into an image.
func CheckRepositoryPath(rawPath string) error {
	if rawPath == "" {
		rawPath = "."
	}

	p, err := utils.ResolveFolderStrict(rawPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", rawPath, err)
	}

	for _, rule := range forbiddenRules {
		r := rule.Path

		if rule.Exact && p == r {
			logs.Debugf("path %s is forbidden globally by rule %s", p, r)
			return fmt.Errorf("%w: %s", ErrPathDenied, p)
		}
		if rule.Prefix && IsUnderPrefix(r, p) {
			logs.Debugf("path %s is under globally forbidden path %s", p, r)
			return fmt.Errorf("%w: %s is under %s", ErrPathDenied, p, r)
		}
	}

	return nil
}

func IsUnderPrefix(base, path string) bool {
	var err error
	path, err = utils.ResolvePathStrict(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
