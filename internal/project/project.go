// Package project resolves the repository an image is built from.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/0xa1bed0/conda2docker/internal/guardrails"
	"github.com/0xa1bed0/conda2docker/internal/utils"
)

// SourceDir is where the repository is placed inside the build context.
const SourceDir = "src"

var invalidNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

type Project struct {
	Name string
	Path string

	ignore *IgnoreMatcher
}

// Resolve canonicalizes path, rejects folders denied by guardrails and
// loads the repository's .dockerignore.
func Resolve(path string) (*Project, error) {
	if strings.TrimSpace(path) == "" {
		path = "."
	}

	abs, err := utils.ResolveFolderStrict(path)
	if err != nil {
		if errors.Is(err, utils.ErrNonexistentPath) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("repository %s does not exist", path)
		}
		return nil, fmt.Errorf("resolve repository %s: %w", path, err)
	}
	if err := guardrails.CheckRepositoryPath(abs); err != nil {
		return nil, err
	}

	ignore, err := LoadIgnoreMatcher(abs)
	if err != nil {
		return nil, err
	}

	return &Project{
		Name:   projectNameFromPath(abs),
		Path:   abs,
		ignore: ignore,
	}, nil
}

// Ignore returns the .dockerignore rules of the repository.
func (p *Project) Ignore() *IgnoreMatcher {
	return p.ignore
}

// projectNameFromPath encodes the path relative to home into a Docker-safe name.
func projectNameFromPath(abs string) string {
	home, _ := os.UserHomeDir()
	asSlash := filepath.ToSlash(abs)
	homeSlash := filepath.ToSlash(home)

	if homeSlash != "" && homeSlash != "/" {
		if after, ok := strings.CutPrefix(asSlash, homeSlash+"/"); ok {
			asSlash = "home/" + after
		}
	}
	asSlash = strings.TrimPrefix(asSlash, "/")

	name := strings.ToLower(strings.ReplaceAll(asSlash, "/", "-"))
	name = invalidNameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".-_")
	if name == "" {
		name = "project"
	}
	return name
}
