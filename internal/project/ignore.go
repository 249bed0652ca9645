package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

// DockerIgnoreFile is read from the repository root.
const DockerIgnoreFile = ".dockerignore"

// IgnoreMatcher applies .dockerignore rules to repository relative paths.
type IgnoreMatcher struct {
	patterns []string
	pm       *patternmatcher.PatternMatcher
}

// LoadIgnoreMatcher reads dir/.dockerignore. A missing file matches nothing.
func LoadIgnoreMatcher(dir string) (*IgnoreMatcher, error) {
	file := filepath.Join(dir, DockerIgnoreFile)
	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewIgnoreMatcher(nil)
		}
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return NewIgnoreMatcher(patterns)
}

func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("parse ignore patterns: %w", err)
	}
	return &IgnoreMatcher{patterns: patterns, pm: pm}, nil
}

// Patterns returns the raw patterns in file order.
func (m *IgnoreMatcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Excluded reports whether rel (slash separated, relative to the repository)
// is left out of the build context. Parent directories are matched first, the
// way docker walks a context.
func (m *IgnoreMatcher) Excluded(rel string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	parts := strings.Split(path.Clean(rel), "/")
	var (
		info    patternmatcher.MatchInfo
		matched bool
		err     error
	)
	for i := range parts {
		matched, info, err = m.pm.MatchesUsingParentResults(filepath.FromSlash(strings.Join(parts[:i+1], "/")), info)
		if err != nil {
			return false
		}
	}
	return matched
}

// SkipDir reports whether a whole directory can be skipped: it is excluded
// and no "!" pattern can bring a child back.
func (m *IgnoreMatcher) SkipDir(rel string) bool {
	return m.Excluded(rel) && !m.pm.Exclusions()
}
