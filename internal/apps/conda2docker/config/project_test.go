package hostappconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xa1bed0/conda2docker/internal/buildpack"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, ProjectConfigFile)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoadProjectConfigNoFile(t *testing.T) {
	t.Parallel()

	pc, err := LoadProjectConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadProjectConfig: %v", err)
	}
	cfg := buildpack.NewConfig(pc.BuildConfigOptions()...)
	if cfg.BaseImageVersion != buildpack.DefaultBaseImageVersion {
		t.Fatalf("BaseImageVersion = %q, want %q", cfg.BaseImageVersion, buildpack.DefaultBaseImageVersion)
	}
}

func TestLoadProjectConfigChildWins(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	child := filepath.Join(root, "repo")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	parentFile := writeConfig(t, root, `{"base_image_version": "4.8.2", "nb_user": "alice"}`)
	childFile := writeConfig(t, child, `{"base_image_version": "4.9.2"}`)

	pc, err := LoadProjectConfig(child)
	if err != nil {
		t.Fatalf("LoadProjectConfig: %v", err)
	}
	if pc.BaseImageVersion != "4.9.2" {
		t.Fatalf("BaseImageVersion = %q, want %q", pc.BaseImageVersion, "4.9.2")
	}
	if pc.NBUser != "alice" {
		t.Fatalf("NBUser = %q, want %q", pc.NBUser, "alice")
	}
	files := pc.Files()
	if len(files) != 2 || files[0] != parentFile || files[1] != childFile {
		t.Fatalf("Files() = %v, want [%s %s]", files, parentFile, childFile)
	}

	cfg := buildpack.NewConfig(pc.BuildConfigOptions()...)
	if cfg.BaseImageVersion != "4.9.2" {
		t.Fatalf("config BaseImageVersion = %q, want %q", cfg.BaseImageVersion, "4.9.2")
	}
}

func TestLoadProjectConfigInvalidJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeConfig(t, dir, `{"base_image_version": `)

	_, err := LoadProjectConfig(dir)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), p) {
		t.Fatalf("error %q does not name %s", err, p)
	}
}

func TestLoadProjectConfigMissingDir(t *testing.T) {
	t.Parallel()

	if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing repository dir")
	}
}

func TestConfigPathsFollowHomeEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	if got := AssetsDir(); got != filepath.Join(home, "assets") {
		t.Fatalf("AssetsDir() = %q, want %q", got, filepath.Join(home, "assets"))
	}
	if got := StateDBFile(); got != filepath.Join(home, "state.db") {
		t.Fatalf("StateDBFile() = %q, want %q", got, filepath.Join(home, "state.db"))
	}

	f, err := RunLogPathOpen("abc")
	if err != nil {
		t.Fatalf("RunLogPathOpen: %v", err)
	}
	defer f.Close()
	if want := filepath.Join(home, "logs", "run-abc.log"); f.Name() != want {
		t.Fatalf("log file = %q, want %q", f.Name(), want)
	}
}
