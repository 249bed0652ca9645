package cache

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ImageRepository is the local repository every built image is tagged under.
const ImageRepository = "conda2docker"

const (
	maxTagLength  = 128
	tagKeyLength  = 16
	unknownPrefix = "unknown-project"
)

// ImageReference returns "conda2docker:<prefix>-<key>" for a project path.
func ImageReference(projectPath string, key CacheKey) string {
	return ImageRepository + ":" + composeImageTag(composePrefix(projectPath), key)
}

// composeImageTag returns a Docker-safe tag from an optional prefix and a hex
// cache key. Result is either "<prefix>-<16-hex>" or just "<16-hex>".
func composeImageTag(prefix string, key CacheKey) string {
	core := sanitizeTagPrefix(key.Short(tagKeyLength))
	if core == "" {
		core = "latest"
	}

	pfx := sanitizeTagPrefix(prefix)
	if pfx == "" {
		return core
	}

	if limit := maxTagLength - len(core) - 1; len(pfx) > limit {
		pfx = pfx[:limit]
	}
	return pfx + "-" + core
}

// composePrefix takes an absolute project path and returns a short, Docker-safe
// prefix derived from its last one or two directories. Example:
//
//	/Users/alice/projects/analysis/notebooks         → analysis_notebooks
//	/Users/alice/projects/analysis/notebooks/run.py  → analysis_notebooks
//	/Users/alice/analysis                            → analysis
//
// The home directory is trimmed, and the result contains only letters,
// digits, underscores, dots and hyphens.
func composePrefix(projectPath string) string {
	if projectPath == "" {
		return unknownPrefix
	}

	if after, ok := strings.CutPrefix(projectPath, "~"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			projectPath = filepath.Join(home, after)
		}
	}
	projectPath = filepath.Clean(projectPath)

	if home, err := os.UserHomeDir(); err == nil && home != "/" {
		if after, ok := strings.CutPrefix(projectPath, home); ok {
			projectPath = after
		}
	}

	parts := strings.FieldsFunc(projectPath, func(r rune) bool {
		return r == filepath.Separator
	})
	if len(parts) == 0 {
		return unknownPrefix
	}

	// drop a trailing file name
	if last := parts[len(parts)-1]; strings.ContainsRune(last, '.') && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}

	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}

	prefix := sanitizeTagPrefix(strings.Join(parts, "_"))
	if prefix == "" {
		return unknownPrefix
	}
	return prefix
}

// sanitizeTagPrefix keeps only [a-z0-9_.-], lowercases, trims leading '.'/'-'.
// Returns "" if nothing valid remains.
func sanitizeTagPrefix(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.TrimLeft(b.String(), ".-")
}
