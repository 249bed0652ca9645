package dockerclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/docker/docker/api/types/build"
	sdkimage "github.com/docker/go-sdk/image"

	"github.com/0xa1bed0/conda2docker/internal/buildcontext"
)

// BuildRequest is one image build. Context is a tar stream holding the
// Dockerfile at its root.
type BuildRequest struct {
	Context   io.Reader
	Tag       string
	BuildArgs map[string]string
	Labels    map[string]string
	NoCache   bool
}

type DockerImageBuilder interface {
	// BuildImage builds req and returns the ID of the tagged image.
	BuildImage(ctx context.Context, req BuildRequest) (string, error)
}

func buildOptions(req BuildRequest) build.ImageBuildOptions {
	args := make(map[string]*string, len(req.BuildArgs))
	for k, v := range req.BuildArgs {
		args[k] = &v
	}
	return build.ImageBuildOptions{
		Dockerfile:  buildcontext.DockerfileName,
		Remove:      true, // remove intermediate containers
		ForceRemove: true,
		NoCache:     req.NoCache,
		BuildArgs:   args,
		Labels:      maps.Clone(req.Labels),
	}
}

func (dc *dockerClient) BuildImage(ctx context.Context, req BuildRequest) (string, error) {
	if req.Context == nil {
		return "", errors.New("image build: empty build context")
	}
	if req.Tag == "" {
		return "", errors.New("image build: tag is required")
	}

	buildTag, err := sdkimage.Build(
		ctx,
		req.Context,
		req.Tag,
		sdkimage.WithBuildClient(dc.client),
		sdkimage.WithBuildOptions(buildOptions(req)),
	)
	if err != nil {
		return "", fmt.Errorf("image build: %w", err)
	}

	return dc.ImageID(ctx, buildTag)
}
