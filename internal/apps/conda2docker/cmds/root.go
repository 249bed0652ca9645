package conda2docker

import (
	"context"

	hostappconfig "github.com/0xa1bed0/conda2docker/internal/apps/conda2docker/config"
	"github.com/0xa1bed0/conda2docker/internal/cache"
	"github.com/0xa1bed0/conda2docker/internal/dockerclient"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/runtime"
	"github.com/0xa1bed0/conda2docker/internal/state"
	"github.com/0xa1bed0/conda2docker/internal/versioncheck"
	"github.com/spf13/cobra"
)

// backends are the stateful services commands talk to.
type backends struct {
	dockerClient   func(ctx context.Context) (dockerclient.DockerClient, error)
	imageCache     func(ctx context.Context) (*cache.ImageCache, error)
	versionChecker func(ctx context.Context) *versioncheck.Checker
}

func defaultBackends() backends {
	return backends{
		dockerClient: dockerclient.NewDockerClient,
		imageCache: func(ctx context.Context) (*cache.ImageCache, error) {
			kv, err := state.DefaultKVStore(ctx)
			if err != nil {
				return nil, err
			}
			return cache.NewImageCache(kv, hostappconfig.LocksDir())
		},
		versionChecker: func(ctx context.Context) *versioncheck.Checker {
			kv, err := state.DefaultKVStore(ctx)
			if err != nil {
				logs.Debugf("version check runs without cache: %v", err)
				kv = nil
			}
			return versioncheck.NewChecker(kv)
		},
	}
}

func Execute(rt *runtime.Runtime) error {
	return newRootCmd(defaultBackends()).ExecuteContext(rt.Ctx())
}

func newRootCmd(b backends) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "conda2docker",
		Short: "Dockerfiles for Jupyter-ready conda images",
		Long: `conda2docker renders a Dockerfile that builds a Jupyter-ready image on top
of a conda base image, stages its build context and builds it.

The repository is copied into the image; its environment files are honoured
by the image itself.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(opts.Verbosity)
			return nil
		},
		// we will handle that
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&opts.Verbosity, "verbose", "v", "increase verbosity level")
	flags.StringVar(&opts.AssetsDir, "assets-dir", "", "Use the auxiliary files in DIR instead of the bundled ones")
	flags.StringVar(&opts.BaseImageVersion, "base-image-version", "", "continuumio/miniconda3 tag to build from")

	rootCmd.AddCommand(newRenderCmd(opts))
	rootCmd.AddCommand(newFilesCmd(opts))
	rootCmd.AddCommand(newBuildCmd(opts, b))
	rootCmd.AddCommand(newCleanCmd(b))
	rootCmd.AddCommand(newVersionCmd(b))

	return rootCmd
}
