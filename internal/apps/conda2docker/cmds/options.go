package conda2docker

import (
	"context"
	"errors"
	"fmt"
	"os"

	hostappconfig "github.com/0xa1bed0/conda2docker/internal/apps/conda2docker/config"
	"github.com/0xa1bed0/conda2docker/internal/assets"
	"github.com/0xa1bed0/conda2docker/internal/buildpack"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/project"
	"github.com/0xa1bed0/conda2docker/internal/runtime"
	"github.com/0xa1bed0/conda2docker/internal/utils"
	"github.com/0xa1bed0/conda2docker/internal/versions"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	Verbosity        int
	AssetsDir        string
	BaseImageVersion string
}

// session is what a command works on once the target repository and the
// layered configuration are resolved.
type session struct {
	Project   *project.Project
	Settings  *hostappconfig.ProjectConfig
	Config    buildpack.Config
	BuildPack buildpack.BuildPack
}

// buildPack returns the build pack over the auxiliary files. With
// --assets-dir the files are used as they are; otherwise the embedded
// files are extracted into the default assets dir first.
func (g *globalOptions) buildPack() (buildpack.BuildPack, error) {
	dir := g.AssetsDir
	if dir == "" {
		dir = hostappconfig.AssetsDir()
		if _, err := assets.Extract(dir); err != nil {
			return nil, err
		}
	} else {
		dir = utils.ExpandHome(dir)
		logs.Debugf("using auxiliary files from %s", dir)
	}

	bp, err := buildpack.NewPrimaryPython(dir)
	if err != nil {
		return nil, err
	}
	return bp, nil
}

// newSession resolves the repository at pathArg (cwd when empty) and the
// build config: default < project file < --base-image-version.
func (g *globalOptions) newSession(pathArg string) (*session, error) {
	if pathArg == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		pathArg = pwd
	}

	p, err := project.Resolve(pathArg)
	if err != nil {
		return nil, err
	}

	settings, err := hostappconfig.LoadProjectConfig(p.Path)
	if err != nil {
		return nil, err
	}

	opts := settings.BuildConfigOptions()
	if g.BaseImageVersion != "" {
		logs.Debugf("base_image_version is set to %q by --base-image-version", g.BaseImageVersion)
		opts = append(opts, buildpack.WithBaseImageVersion(g.BaseImageVersion))
	}
	cfg := buildpack.NewConfig(opts...)
	warnBaseImageTag(cfg.BaseImageVersion)

	bp, err := g.buildPack()
	if err != nil {
		return nil, err
	}

	return &session{
		Project:   p,
		Settings:  settings,
		Config:    cfg,
		BuildPack: bp,
	}, nil
}

func warnBaseImageTag(tag string) {
	report := versions.InspectBaseImageTag(tag)
	for _, w := range report.Warnings {
		logs.Warnf("base image %s:%s: %s", buildpack.BaseImageRepository, tag, w)
	}
}

func pathFromArgs(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

// render resolves the auxiliary files once and renders the session's
// Dockerfile from that mapping. Stage the returned mapping, not a fresh one.
func (s *session) render() (string, map[string]string, error) {
	files, err := s.BuildPack.BuildContextFiles()
	if err != nil {
		return "", nil, fmt.Errorf("render Dockerfile for %s: %w", s.Project.Path, err)
	}
	dockerfile, err := s.BuildPack.RenderFiles(s.Config, files)
	if err != nil {
		return "", nil, fmt.Errorf("render Dockerfile for %s: %w", s.Project.Path, err)
	}
	return dockerfile, files, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

var errNotInteractive = errors.New("no terminal to ask for confirmation")

// confirm asks a yes/no question when a user can answer it. The terminal
// state is saved first so Finalize can restore it after an interrupted prompt.
func confirm(ctx context.Context, text string) (bool, error) {
	if !runtime.IsInteractive() {
		return false, errNotInteractive
	}
	if rt := runtime.FromContext(ctx); rt != nil {
		if err := rt.Term().Save(); err != nil {
			logs.Debugf("can't save terminal state: %v", err)
		}
	}
	return logs.PromptConfirm(text, false)
}
