package conda2docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/0xa1bed0/conda2docker/internal/buildcontext"
	"github.com/0xa1bed0/conda2docker/internal/cache"
	"github.com/0xa1bed0/conda2docker/internal/dockerclient"
	"github.com/0xa1bed0/conda2docker/internal/guardrails"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/runtime"
	"github.com/0xa1bed0/conda2docker/internal/version"
	"github.com/spf13/cobra"
)

const (
	defaultNBUser = "jovyan"
	defaultNBUID  = "1000"
)

type buildOptions struct {
	Tag           string
	NBUser        string
	NBUID         string
	NoCacheLookup bool
	NoCache       bool
	Yes           bool
}

func newBuildCmd(g *globalOptions, b backends) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build [PATH]",
		Short: "Build the image for a repository",
		Long: `Stage the build context for the repository at PATH and build it with Docker.

An image built before from the same Dockerfile, build context and build args
is reused while its tag still points at it.
If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.Debugf("running build...")

			if rt := runtime.FromContext(cmd.Context()); rt != nil {
				rt.AttachRunLog()
			}

			s, err := g.newSession(pathFromArgs(args))
			if err != nil {
				return err
			}
			return runBuild(cmd, s, opts, b)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Tag, "tag", "t", "", "Image reference to tag the result with")
	flags.StringVar(&opts.NBUser, "nb-user", "", "Notebook user name (default \""+defaultNBUser+"\")")
	flags.StringVar(&opts.NBUID, "nb-uid", "", "Notebook user id (default "+defaultNBUID+")")
	flags.BoolVar(&opts.NoCacheLookup, "no-cache-lookup", false, "Build even if an image for the same inputs exists")
	flags.BoolVar(&opts.NoCache, "no-cache", false, "Do not use the Docker layer cache")
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "Build even if files that look sensitive would be copied")

	return cmd
}

// buildArgs layers flag > project file > default.
func (o *buildOptions) buildArgs(s *session) (map[string]string, error) {
	pick := func(flag, project, def string) string {
		if flag != "" {
			return flag
		}
		if project != "" {
			return project
		}
		return def
	}
	user := pick(o.NBUser, s.Settings.NBUser, defaultNBUser)
	uid := pick(o.NBUID, s.Settings.NBUID, defaultNBUID)

	if n, err := strconv.Atoi(uid); err != nil || n < 0 {
		return nil, fmt.Errorf("nb_uid %q is not a valid user id", uid)
	}
	return map[string]string{
		"NB_USER": user,
		"NB_UID":  uid,
	}, nil
}

func runBuild(cmd *cobra.Command, s *session, opts *buildOptions, b backends) error {
	ctx := cmd.Context()

	buildArgs, err := opts.buildArgs(s)
	if err != nil {
		return err
	}

	dockerfile, files, err := s.render()
	if err != nil {
		return err
	}

	if err := checkSecrets(ctx, s, opts.Yes); err != nil {
		return err
	}

	contextDir, err := os.MkdirTemp("", "conda2docker-context-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(contextDir)

	if err := s.stage(contextDir, dockerfile, files); err != nil {
		return err
	}
	digest, err := buildcontext.Digest(contextDir)
	if err != nil {
		return err
	}

	key := cache.CacheKeyBuild(cache.BuildInputs{
		Dockerfile:    dockerfile,
		ContextDigest: digest,
		BuildArgs:     buildArgs,
		SchemaVersion: version.ImageSchemaVersion,
	})
	tag := opts.Tag
	if tag == "" {
		tag = s.Settings.ImageName
	}
	if tag == "" {
		tag = cache.ImageReference(s.Project.Path, key)
	}
	logs.Debugf("build key %s, tag %s", key.Short(12), tag)

	dc, err := b.dockerClient(ctx)
	if err != nil {
		return err
	}

	build := func(ctx context.Context) (cache.Entry, error) {
		rc, err := buildcontext.Archive(contextDir)
		if err != nil {
			return cache.Entry{}, err
		}
		defer rc.Close()

		logs.Infof("building %s from %s", tag, s.Config.BaseImage())
		id, err := dc.BuildImage(ctx, dockerclient.BuildRequest{
			Context:   rc,
			Tag:       tag,
			BuildArgs: buildArgs,
			Labels: map[string]string{
				version.ImageSchemaVersionLabel: strconv.Itoa(version.ImageSchemaVersion),
				version.ToolVersionLabel:        version.Get(),
				version.CacheKeyLabel:           string(key),
				version.ProjectLabel:            s.Project.Path,
			},
			NoCache: opts.NoCache,
		})
		if err != nil {
			return cache.Entry{}, err
		}
		return cache.Entry{ImageID: cache.ImageID(id), Reference: tag, Project: s.Project.Path}, nil
	}

	entry, cached, err := resolveImage(ctx, b, dc, key, tag, opts.NoCacheLookup, build)
	if err != nil {
		return err
	}

	if cached {
		logs.Infof("%s is up to date", tag)
	} else {
		logs.Infof("built %s", tag)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", tag, entry.ImageID)
	return err
}

// resolveImage reuses a cached build while tag still points at it. Without
// a usable image cache the image is just built.
func resolveImage(
	ctx context.Context,
	b backends,
	dc dockerclient.DockerClient,
	key cache.CacheKey,
	tag string,
	noLookup bool,
	build func(context.Context) (cache.Entry, error),
) (cache.Entry, bool, error) {
	imgCache, err := b.imageCache(ctx)
	if err != nil {
		logs.Warnf("image cache unavailable: %v", err)
		e, err := build(ctx)
		return e, false, err
	}

	if noLookup {
		e, err := build(ctx)
		if err != nil {
			return cache.Entry{}, false, err
		}
		if err := imgCache.Record(ctx, key, e); err != nil {
			logs.Warnf("failed to record image %s: %v", e.ImageID, err)
		}
		return e, false, nil
	}

	tagged := func(ctx context.Context, id cache.ImageID) bool {
		current, err := dc.ImageID(ctx, tag)
		return err == nil && cache.ImageID(current) == id
	}
	return imgCache.ResolveImage(ctx, key, tagged, build)
}

// checkSecrets stops the build when the repository holds files that look
// sensitive, unless the user accepts them.
func checkSecrets(ctx context.Context, s *session, yes bool) error {
	warnings, err := s.Project.ScanSecrets(ctx)
	if err != nil {
		return err
	}
	if len(warnings) == 0 {
		return nil
	}

	logs.Warnf("%s in %s look sensitive and would be copied into the image:\n%s",
		plural(len(warnings), "file"), s.Project.Path, guardrails.FormatWarnings(warnings))
	if yes {
		return nil
	}

	ok, err := confirm(ctx, "Build anyway?")
	if errors.Is(err, errNotInteractive) {
		return errors.New("sensitive files found; add them to .dockerignore or pass --yes")
	}
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("build aborted")
	}
	return nil
}
