// Package cache derives image cache keys and tags and remembers which image
// was built for which key.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"slices"
	"strconv"
	"strings"
)

type (
	CacheKey string
	ImageID  string
)

// BuildInputs is everything that decides the content of a built image.
type BuildInputs struct {
	Dockerfile    string
	ContextDigest string
	BuildArgs     map[string]string
	SchemaVersion int
}

// CacheKeyDockerfileLines deterministically computes a cache key for a list of Dockerfile lines.
// It prefixes each line with its length (8-byte big-endian) before hashing to avoid collisions
// between sequences like ["ab", "c"] and ["a", "bc"].
func CacheKeyDockerfileLines(lines []string) CacheKey {
	h := sha256.New()
	var lenBuf [8]byte

	for _, line := range lines {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(line)))
		h.Write(lenBuf[:])
		io.WriteString(h, line)
	}

	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}

// CacheKeyBuild hashes the Dockerfile lines followed by the context digest
// and the build args in key order.
func CacheKeyBuild(in BuildInputs) CacheKey {
	lines := strings.Split(in.Dockerfile, "\n")
	lines = append(lines,
		"#schema:"+strconv.Itoa(in.SchemaVersion),
		"#context:"+in.ContextDigest,
	)

	keys := make([]string, 0, len(in.BuildArgs))
	for k := range in.BuildArgs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		lines = append(lines, "#arg:"+k+"="+in.BuildArgs[k])
	}

	return CacheKeyDockerfileLines(lines)
}

// Short returns the first n hex chars of the key.
func (k CacheKey) Short(n int) string {
	if n <= 0 || n >= len(k) {
		return string(k)
	}
	return string(k[:n])
}
