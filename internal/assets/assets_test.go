package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestNames(t *testing.T) {
	t.Parallel()

	want := []string{ActivateCondaFile, EntrypointFile, EnvironmentFile}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestReadUnknown(t *testing.T) {
	t.Parallel()

	if _, err := Read("postBuild"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read(unknown) error = %v, want fs.ErrNotExist", err)
	}
}

func TestExtractWritesFilesWithModes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths, err := Extract(dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("Extract returned %d paths, want 3", len(paths))
	}

	for name, p := range paths {
		if !filepath.IsAbs(p) {
			t.Fatalf("path for %s is not absolute: %q", name, p)
		}
		want, _ := Read(name)
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if string(got) != string(want) {
			t.Fatalf("%s content mismatch", name)
		}
	}

	fi, err := os.Stat(paths[EntrypointFile])
	if err != nil {
		t.Fatalf("stat entrypoint: %v", err)
	}
	if fi.Mode().Perm() != 0o755 {
		t.Fatalf("entrypoint mode = %v, want 0755", fi.Mode().Perm())
	}
}

func TestExtractSkipsUpToDateFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths, err := Extract(dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	old := time.Unix(1_000_000, 0)
	envPath := paths[EnvironmentFile]
	if err := os.Chtimes(envPath, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if _, err := Extract(dir); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	fi, err := os.Stat(envPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !fi.ModTime().Equal(old) {
		t.Fatalf("up-to-date file was rewritten: mtime %v", fi.ModTime())
	}
}

func TestExtractRestoresModifiedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths, err := Extract(dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := os.WriteFile(paths[ActivateCondaFile], []byte("tampered"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Extract(dir); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	got, _ := os.ReadFile(paths[ActivateCondaFile])
	want, _ := Read(ActivateCondaFile)
	if string(got) != string(want) {
		t.Fatalf("modified asset was not restored: %q", got)
	}
}
