package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/go-archive"

	"github.com/0xa1bed0/conda2docker/internal/guardrails"
	"github.com/0xa1bed0/conda2docker/internal/logs"
)

// StageSource copies the repository into contextDir/src, leaving out paths
// excluded by .dockerignore.
func (p *Project) StageSource(contextDir string) error {
	dst := filepath.Join(contextDir, SourceDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	rc, err := archive.TarWithOptions(p.Path, &archive.TarOptions{
		ExcludePatterns: p.ignore.Patterns(),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", p.Path, err)
	}
	defer rc.Close()

	if err := archive.Untar(rc, dst, &archive.TarOptions{NoLchown: true}); err != nil {
		return fmt.Errorf("stage %s into %s: %w", p.Path, dst, err)
	}
	logs.Debugf("staged repository %s into %s", p.Path, dst)
	return nil
}

// ScanSecrets reports files that look sensitive among those StageSource
// would copy.
func (p *Project) ScanSecrets(ctx context.Context) ([]*guardrails.SensitivityWarning, error) {
	skip := func(rel string, isDir bool) bool {
		if isDir {
			return p.ignore.SkipDir(rel)
		}
		return p.ignore.Excluded(rel)
	}
	return guardrails.ScanSuspiciousFiles(ctx, p.Path, skip)
}
