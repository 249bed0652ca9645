// Package dockerclient builds and inspects images through the Docker go-sdk.
package dockerclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-sdk/client"

	"github.com/0xa1bed0/conda2docker/internal/logs"
)

type dockerClient struct {
	client client.SDKClient
}

type DockerClient interface {
	DockerImageBuilder
	ImageID(ctx context.Context, imageRef string) (string, error)
	RemoveImage(ctx context.Context, imageRef string) error
}

var _ DockerClient = (*dockerClient)(nil)

// NewDockerClient connects to the daemon from the current docker context.
// SDK logs go to the full log at debug level.
func NewDockerClient(ctx context.Context) (DockerClient, error) {
	c, err := client.New(
		ctx,
		client.WithLogger(slog.New(slog.NewTextHandler(logs.DebugWriter(), &slog.HandlerOptions{}))),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	return &dockerClient{client: c}, nil
}

func (dc *dockerClient) ImageID(ctx context.Context, imageRef string) (string, error) {
	info, err := dc.client.ImageInspect(ctx, imageRef)
	if err != nil {
		return "", fmt.Errorf("inspect image %s: %w", imageRef, err)
	}
	return info.ID, nil
}

// RemoveImage untags and deletes imageRef. Children are pruned.
func (dc *dockerClient) RemoveImage(ctx context.Context, imageRef string) error {
	deleted, err := dc.client.ImageRemove(ctx, imageRef, image.RemoveOptions{PruneChildren: true})
	if err != nil {
		return fmt.Errorf("remove image %s: %w", imageRef, err)
	}
	for _, d := range deleted {
		switch {
		case d.Untagged != "":
			logs.Debugf("untagged %s", d.Untagged)
		case d.Deleted != "":
			logs.Debugf("deleted %s", d.Deleted)
		}
	}
	return nil
}
