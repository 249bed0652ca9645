package buildcontext

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPath      = errors.New("empty path")
	ErrNotRegularFile = errors.New("not a regular file")
	// ErrFileChanged means the content no longer matches the fingerprint in
	// its context path.
	ErrFileChanged = errors.New("file changed since it was resolved")
)

// FileResolutionError reports an auxiliary file that can't be mapped into the
// build context. Path is the offending host path.
type FileResolutionError struct {
	Path string
	Err  error
}

func (e *FileResolutionError) Error() string {
	return fmt.Sprintf("resolve build context file %q: %v", e.Path, e.Err)
}

func (e *FileResolutionError) Unwrap() error {
	return e.Err
}
