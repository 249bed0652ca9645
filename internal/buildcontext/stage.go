package buildcontext

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	archive "github.com/moby/go-archive"

	"github.com/0xa1bed0/conda2docker/internal/fsops"
)

// DockerfileName is the file name the image builder looks for.
const DockerfileName = "Dockerfile"

// Stager copies resolved files into a build context and hashes the result.
// Reads and walks go through fsops; writes go to the real filesystem.
type Stager struct {
	ops fsops.Ops
}

// NewStager builds a Stager backed by the real filesystem.
func NewStager() *Stager {
	return &Stager{ops: fsops.DefaultOps()}
}

// NewStagerWithOps allows injecting filesystem dependencies for testing.
func NewStagerWithOps(ops fsops.Ops) (*Stager, error) {
	if !ops.Valid() {
		return nil, errors.New("stager dependencies cannot be nil")
	}
	return &Stager{ops: ops}, nil
}

// Stage copies files with the real filesystem. See Stager.Stage.
func Stage(dir string, files map[string]string) error {
	return NewStager().Stage(dir, files)
}

// Digest hashes dir with the real filesystem. See Stager.Digest.
func Digest(dir string) (string, error) {
	return NewStager().Digest(dir)
}

// Stage copies each host file (keys) into dir at its context path (values).
// Files are copied in context path order; file modes are preserved. A file
// staged under assemble-files/ must still have the content its name was
// derived from, otherwise Stage fails with ErrFileChanged.
func (s *Stager) Stage(dir string, files map[string]string) error {
	ctxPaths := make([]string, 0, len(files))
	byCtx := make(map[string]string, len(files))
	for host, ctxPath := range files {
		ctxPaths = append(ctxPaths, ctxPath)
		byCtx[ctxPath] = host
	}
	sort.Strings(ctxPaths)

	for _, ctxPath := range ctxPaths {
		rel := s.ops.Path.Clean(filepath.FromSlash(ctxPath))
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("stage: context path %q escapes build context", ctxPath)
		}
		if err := s.copyFile(byCtx[ctxPath], ctxPath, s.ops.Path.Join(dir, rel)); err != nil {
			return fmt.Errorf("stage %s: %w", ctxPath, err)
		}
	}
	return nil
}

// WriteDockerfile writes the rendered text to dir/Dockerfile.
func WriteDockerfile(dir, dockerfile string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create build context dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, DockerfileName), []byte(dockerfile), 0o644)
}

// Archive streams a staged build context as an uncompressed tar.
func Archive(dir string) (io.ReadCloser, error) {
	rc, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		return nil, fmt.Errorf("archive build context: %w", err)
	}
	return rc, nil
}

// Digest hashes a staged build context: relative paths, executable bits and
// contents. Each field is length-prefixed so ["ab","c"] and ["a","bc"] differ.
func (s *Stager) Digest(dir string) (string, error) {
	h := sha256.New()
	var lenBuf [8]byte
	writeField := func(b []byte) {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}

	err := s.ops.Walker.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := s.ops.Path.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		content, err := s.ops.OS.ReadFile(p)
		if err != nil {
			return err
		}

		writeField([]byte(filepath.ToSlash(rel)))
		if info.Mode().Perm()&0o111 != 0 {
			writeField([]byte("x"))
		} else {
			writeField([]byte("-"))
		}
		writeField(content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("digest build context: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Stager) copyFile(src, ctxPath, dst string) error {
	fi, err := s.ops.OS.Stat(src)
	if err != nil {
		return &FileResolutionError{Path: src, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return &FileResolutionError{Path: src, Err: ErrNotRegularFile}
	}
	content, err := s.ops.OS.ReadFile(src)
	if err != nil {
		return &FileResolutionError{Path: src, Err: err}
	}
	if err := s.checkContextName(src, ctxPath, content); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, content, fi.Mode().Perm()); err != nil {
		return err
	}
	// WriteFile honours umask and keeps the mode of an existing file;
	// make the mode exact so digests are stable
	return os.Chmod(dst, fi.Mode().Perm())
}

// checkContextName verifies content against the fingerprint in a resolved
// context path. Paths outside Dir carry no fingerprint.
func (s *Stager) checkContextName(src, ctxPath string, content []byte) error {
	if path.Dir(ctxPath) != Dir {
		return nil
	}
	abs, err := s.ops.Path.Abs(src)
	if err != nil {
		return &FileResolutionError{Path: src, Err: err}
	}
	if path.Base(ctxPath) != contextName(abs, content) {
		return &FileResolutionError{Path: abs, Err: ErrFileChanged}
	}
	return nil
}
