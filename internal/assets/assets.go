// Package assets ships the build pack auxiliary files inside the binary and
// extracts them next to each other on the host, where the build-context
// resolver can read them.
package assets

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

const (
	EnvironmentFile   = "environment.yml"
	EntrypointFile    = "entrypoint"
	ActivateCondaFile = "activate-conda.sh"
)

//go:embed files/environment.yml files/entrypoint files/activate-conda.sh
var embedded embed.FS

// file modes are not preserved by embed
var modes = map[string]fs.FileMode{
	EnvironmentFile:   0o644,
	EntrypointFile:    0o755,
	ActivateCondaFile: 0o644,
}

// Names lists the embedded file names in lexical order.
func Names() []string {
	out := make([]string, 0, len(modes))
	for name := range modes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Read returns the embedded content of name.
func Read(name string) ([]byte, error) {
	if _, ok := modes[name]; !ok {
		return nil, fmt.Errorf("unknown asset %q: %w", name, fs.ErrNotExist)
	}
	return embedded.ReadFile(path.Join("files", name))
}

// Extract makes sure every embedded file exists in dir with the embedded
// content and returns name -> absolute path. Files already up to date are
// left untouched so their mtime, and the build cache, stay stable.
func Extract(dir string) (map[string]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("assets dir %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}

	out := make(map[string]string, len(modes))
	for _, name := range Names() {
		content, err := Read(name)
		if err != nil {
			return nil, err
		}

		dst := filepath.Join(abs, name)
		if err := writeIfChanged(dst, content, modes[name]); err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		out[name] = dst
	}
	return out, nil
}

func writeIfChanged(dst string, content []byte, mode fs.FileMode) error {
	if upToDate(dst, content, mode) {
		return nil
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, content, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func upToDate(dst string, content []byte, mode fs.FileMode) bool {
	fi, err := os.Stat(dst)
	if err != nil || !fi.Mode().IsRegular() || fi.Mode().Perm() != mode {
		return false
	}
	existing, err := os.ReadFile(dst)
	if err != nil {
		return false
	}
	want := sha256.Sum256(content)
	got := sha256.Sum256(existing)
	return bytes.Equal(want[:], got[:])
}
