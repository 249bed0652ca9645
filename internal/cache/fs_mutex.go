package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockStaleAfter = 30 * time.Minute
	lockRetryDelay = 50 * time.Millisecond
)

// FSMutex is a cross-process lock backed by an O_EXCL lock file.
type FSMutex interface {
	Lock(ctx context.Context) error
	Unlock()
}

type fsMutex struct {
	lockPath string
	locked   bool
}

func NewFSMutex(lockPath string) FSMutex {
	return &fsMutex{lockPath: lockPath}
}

// Lock blocks until the lock file is created or ctx is done. Lock files
// older than lockStaleAfter are treated as abandoned.
func (mu *fsMutex) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(mu.lockPath), 0o755); err != nil {
		return err
	}

	for {
		f, err := os.OpenFile(mu.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n%d\n", os.Getpid(), time.Now().Unix())
			_ = f.Close()
			mu.locked = true
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}

		info, statErr := os.Stat(mu.lockPath)
		switch {
		case errors.Is(statErr, os.ErrNotExist):
			continue
		case statErr != nil:
			return statErr
		case time.Since(info.ModTime()) > lockStaleAfter:
			_ = os.Remove(mu.lockPath)
			continue
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire %s: %w", mu.lockPath, ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}
}

func (mu *fsMutex) Unlock() {
	if !mu.locked {
		return
	}
	_ = os.Remove(mu.lockPath)
	mu.locked = false
}
