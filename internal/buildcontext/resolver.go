// Package buildcontext maps auxiliary host files to stable, content-addressed
// names inside a Docker build context and stages them on disk.
package buildcontext

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/0xa1bed0/conda2docker/internal/fsops"
)

const (
	// Dir is the build context folder holding every resolved file.
	Dir = "assemble-files"

	// FingerprintLength is the number of hex chars appended to a context name.
	FingerprintLength = 6

	maxEscapedNameLength = 200
	pathHashLength       = 16
)

// Mapping ties a host file to its context-relative path.
type Mapping struct {
	HostPath    string
	ContextPath string
}

// Resolver derives context paths from absolute path + content. It keeps no
// state between calls.
type Resolver struct {
	ops fsops.Ops
}

// NewResolver builds a Resolver backed by the real filesystem.
func NewResolver() *Resolver {
	return &Resolver{ops: fsops.DefaultOps()}
}

// NewResolverWithOps allows injecting filesystem dependencies for testing.
func NewResolverWithOps(ops fsops.Ops) (*Resolver, error) {
	if ops.Path == nil || ops.OS == nil {
		return nil, errors.New("resolver dependencies cannot be nil")
	}
	return &Resolver{ops: ops}, nil
}

// ContextPath returns the context-relative path for hostPath, e.g.
// assemble-files/-2fsrv-2fentrypoint-1a2b3c.
func (r *Resolver) ContextPath(hostPath string) (string, error) {
	m, err := r.Resolve(hostPath)
	if err != nil {
		return "", err
	}
	return m.ContextPath, nil
}

// Resolve reads hostPath and computes its Mapping. Any failure is returned as
// a *FileResolutionError.
func (r *Resolver) Resolve(hostPath string) (Mapping, error) {
	if strings.TrimSpace(hostPath) == "" {
		return Mapping{}, &FileResolutionError{Path: hostPath, Err: ErrEmptyPath}
	}

	abs, err := r.ops.Path.Abs(hostPath)
	if err != nil {
		return Mapping{}, &FileResolutionError{Path: hostPath, Err: err}
	}

	fi, err := r.ops.OS.Stat(abs)
	if err != nil {
		return Mapping{}, &FileResolutionError{Path: abs, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return Mapping{}, &FileResolutionError{Path: abs, Err: ErrNotRegularFile}
	}

	content, err := r.ops.OS.ReadFile(abs)
	if err != nil {
		return Mapping{}, &FileResolutionError{Path: abs, Err: err}
	}

	return Mapping{HostPath: abs, ContextPath: path.Join(Dir, contextName(abs, content))}, nil
}

// ResolveAll resolves every host path and returns host path -> context path.
// It stops at the first failure.
func (r *Resolver) ResolveAll(hostPaths []string) (map[string]string, error) {
	out := make(map[string]string, len(hostPaths))
	for _, p := range hostPaths {
		m, err := r.Resolve(p)
		if err != nil {
			return nil, err
		}
		out[m.HostPath] = m.ContextPath
	}
	return out, nil
}

func contextName(absPath string, content []byte) string {
	return escapeName(absPath) + "-" + fingerprint(absPath, content)
}

func fingerprint(absPath string, content []byte) string {
	h := sha256.New()
	io.WriteString(h, absPath)
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:FingerprintLength]
}

// escapeName keeps [A-Za-z0-9] and writes every other byte as -xx, so two
// different paths never share a name. Longer names keep their tail and get
// _<hash of p>; "_" itself is always escaped, so a shortened name can't
// equal a full one.
func escapeName(p string) string {
	var b strings.Builder
	b.Grow(len(p) * 2)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isSafeByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "-%02x", c)
	}

	out := b.String()
	if len(out) > maxEscapedNameLength {
		sum := sha256.Sum256([]byte(p))
		suffix := "_" + hex.EncodeToString(sum[:])[:pathHashLength]
		// keep the tail: file name and closest dirs are the readable part
		out = out[len(out)-(maxEscapedNameLength-len(suffix)):] + suffix
	}
	return out
}

func isSafeByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
