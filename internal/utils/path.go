package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrNonexistentPath = errors.New("path does not exist")

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ResolvePathStrict resolves p to an absolute, canonical path,
// following all symlinks. It fails if the path (or any symlink in it) is
// broken or symlink resolution fails (cycles, too deep, etc.).
func ResolvePathStrict(p string) (string, error) {
	abs, err := filepath.Abs(ExpandHome(p))
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(filepath.Clean(abs))
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", ErrNonexistentPath
	}

	return resolved, nil
}

// ResolveFolderStrict resolves p like ResolvePathStrict. A file resolves to
// the folder that contains it.
func ResolveFolderStrict(p string) (string, error) {
	abs, err := ResolvePathStrict(p)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return filepath.Dir(abs), nil
	}
	return abs, nil
}
