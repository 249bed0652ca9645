package hostappconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/0xa1bed0/conda2docker/internal/buildpack"
	"github.com/0xa1bed0/conda2docker/internal/logs"
)

// ProjectConfigFile is looked up in the target repository and its parents.
const ProjectConfigFile = ".conda2docker.json"

// ProjectConfig holds per-repository settings. Zero values mean "unset".
type ProjectConfig struct {
	BaseImageVersion string `json:"base_image_version,omitempty"`
	NBUser           string `json:"nb_user,omitempty"`
	NBUID            string `json:"nb_uid,omitempty"`
	ImageName        string `json:"image_name,omitempty"`

	files []string
}

// Files lists the config files merged into pc, root first.
func (pc *ProjectConfig) Files() []string {
	return append([]string(nil), pc.files...)
}

// BuildConfigOptions converts the settings relevant to rendering.
func (pc *ProjectConfig) BuildConfigOptions() []buildpack.ConfigOption {
	return []buildpack.ConfigOption{
		buildpack.WithBaseImageVersion(pc.BaseImageVersion),
	}
}

// Merge overlays the non-empty fields of src.
func (pc *ProjectConfig) Merge(src *ProjectConfig, origin string) {
	if src == nil {
		return
	}
	set := func(dst *string, v, name string) {
		if v == "" {
			return
		}
		*dst = v
		logs.Debugf("%s is set to %q by %s", name, v, origin)
	}
	set(&pc.BaseImageVersion, src.BaseImageVersion, "base_image_version")
	set(&pc.NBUser, src.NBUser, "nb_user")
	set(&pc.NBUID, src.NBUID, "nb_uid")
	set(&pc.ImageName, src.ImageName, "image_name")
	pc.files = append(pc.files, origin)
}

// LoadProjectConfig merges every ProjectConfigFile from the filesystem root
// down to repoDir. Files closer to repoDir win.
func LoadProjectConfig(repoDir string) (*ProjectConfig, error) {
	chain, err := projectConfigChain(repoDir)
	if err != nil {
		return nil, err
	}

	out := &ProjectConfig{}
	for _, f := range chain {
		logs.Infof("Loading %s ...", f)
		pc, err := loadProjectConfigFile(f)
		if err != nil {
			return nil, err
		}
		out.Merge(pc, f)
	}
	return out, nil
}

func projectConfigChain(repoDir string) ([]string, error) {
	dir, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	var dirs []string
	for {
		dirs = append(dirs, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	var files []string
	for i := len(dirs) - 1; i >= 0; i-- {
		f := filepath.Join(dirs[i], ProjectConfigFile)
		info, err := os.Stat(f)
		switch {
		case err == nil && info.Mode().IsRegular():
			files = append(files, f)
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("stat %s: %w", f, err)
		}
	}
	return files, nil
}

func loadProjectConfigFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pc ProjectConfig
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &pc, nil
}
