package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFSMutexExcludes(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "locks", "k.lock")
	first := NewFSMutex(lockPath)
	if err := first.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	second := NewFSMutex(lockPath)
	if err := second.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock error = %v, want deadline exceeded", err)
	}

	first.Unlock()
	if err := second.Lock(context.Background()); err != nil {
		t.Fatalf("Lock after Unlock: %v", err)
	}
	second.Unlock()

	if _, err := os.Stat(lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file still present: %v", err)
	}
}

func TestFSMutexBreaksStaleLock(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "k.lock")
	if err := os.WriteFile(lockPath, []byte("1\n1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	old := time.Now().Add(-2 * lockStaleAfter)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	mu := NewFSMutex(lockPath)
	if err := mu.Lock(ctx); err != nil {
		t.Fatalf("Lock over stale file: %v", err)
	}
	mu.Unlock()
}
