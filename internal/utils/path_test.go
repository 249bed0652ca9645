package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	tests := map[string]string{
		"~":        home,
		"~/x/y":    filepath.Join(home, "x", "y"),
		"/abs/~/x": "/abs/~/x",
		"~other/x": "~other/x",
		"relative": "relative",
	}
	for in, want := range tests {
		if got := ExpandHome(in); got != want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveFolderStrict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(file, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	for _, in := range []string{dir, file, link} {
		got, err := ResolveFolderStrict(in)
		if err != nil {
			t.Fatalf("ResolveFolderStrict(%q): %v", in, err)
		}
		if got != real {
			t.Fatalf("ResolveFolderStrict(%q) = %q, want %q", in, got, real)
		}
	}
}

func TestResolvePathStrictBrokenLink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	link := filepath.Join(dir, "broken")
	if err := os.Symlink(filepath.Join(dir, "missing"), link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if _, err := ResolvePathStrict(link); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ResolvePathStrict(broken) = %v, want fs.ErrNotExist", err)
	}
}
