package hostappconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the config base path. Used by tests and CI.
const HomeEnv = "CONDA2DOCKER_HOME"

// ensureFile ensures that the parent folder exists and the file exists.
// If the file already exists, it does nothing.
func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create/open file: %w", err)
	}
	return f.Close()
}

func ConfigBasePath() string {
	if p := os.Getenv(HomeEnv); p != "" {
		return filepath.Clean(p)
	}

	homedir, err := os.UserHomeDir()
	if err != nil {
		homedir = os.TempDir()
	}
	return filepath.Join(homedir, ".config", "conda2docker")
}

// AssetsDir is where the embedded auxiliary files get extracted.
func AssetsDir() string {
	return filepath.Join(ConfigBasePath(), "assets")
}

func StateDBFile() string {
	return filepath.Join(ConfigBasePath(), "state.db")
}

// LocksDir holds the per cache key build locks.
func LocksDir() string {
	return filepath.Join(ConfigBasePath(), "locks")
}

func logsPath() string {
	return filepath.Join(ConfigBasePath(), "logs")
}

func RunLogPath(runID string) (string, error) {
	p := filepath.Join(logsPath(), "run-"+runID+".log")
	if err := ensureFile(p); err != nil {
		return "", err
	}
	return p, nil
}

func RunLogPathOpen(runID string) (*os.File, error) {
	p, err := RunLogPath(runID)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
}
