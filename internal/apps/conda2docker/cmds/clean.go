package conda2docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	hostappconfig "github.com/0xa1bed0/conda2docker/internal/apps/conda2docker/config"
	"github.com/0xa1bed0/conda2docker/internal/cache"
	"github.com/0xa1bed0/conda2docker/internal/dockerclient"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/ui"
	"github.com/spf13/cobra"
)

type cleanOptions struct {
	OlderThan    time.Duration
	All          bool
	Yes          bool
	RemoveImages bool
	Assets       bool
}

func newCleanCmd(b backends) *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Forget old image builds and extracted assets",
		Long: `Forget image cache entries not used for --older-than (30 days by default).

With --all every entry is forgotten and the extracted auxiliary files are
removed too. Images stay in Docker unless --remove-images is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if opts.OlderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			cutoff := time.Now().Add(-opts.OlderThan)
			if opts.All {
				// last_used is stored in whole seconds
				cutoff = time.Now().Add(time.Second)
				opts.Assets = true
			}

			imgCache, err := b.imageCache(ctx)
			if err != nil {
				return err
			}
			stale, err := staleEntries(ctx, imgCache, cutoff)
			if err != nil {
				return err
			}

			if len(stale) == 0 && !opts.Assets {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
				return nil
			}

			printCleanPlan(cmd, stale, opts)
			if !opts.Yes {
				ok, err := confirm(ctx, "Proceed?")
				if errors.Is(err, errNotInteractive) {
					return errors.New("refusing to clean without confirmation; pass --yes")
				}
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			pruned, err := imgCache.Prune(ctx, cutoff)
			if err != nil {
				return err
			}
			logs.Infof("forgot %s", plural(len(pruned), "image build"))

			if opts.RemoveImages && len(pruned) > 0 {
				dc, err := b.dockerClient(ctx)
				if err != nil {
					return err
				}
				removeImages(ctx, dc, pruned)
			}

			if opts.Assets {
				dir := hostappconfig.AssetsDir()
				if err := os.RemoveAll(dir); err != nil {
					return fmt.Errorf("remove %s: %w", dir, err)
				}
				logs.Infof("removed %s", dir)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&opts.OlderThan, "older-than", 30*24*time.Hour, "Forget builds not used for this long")
	flags.BoolVar(&opts.All, "all", false, "Forget every build and remove extracted assets")
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	flags.BoolVar(&opts.RemoveImages, "remove-images", false, "Also remove the forgotten images from Docker")
	flags.BoolVar(&opts.Assets, "assets", false, "Remove extracted auxiliary files")

	return cmd
}

func staleEntries(ctx context.Context, imgCache *cache.ImageCache, cutoff time.Time) ([]cache.Entry, error) {
	entries, err := imgCache.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []cache.Entry
	for _, e := range entries {
		if e.LastUsed.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func printCleanPlan(cmd *cobra.Command, stale []cache.Entry, opts *cleanOptions) {
	out := cmd.OutOrStdout()
	if len(stale) > 0 {
		fmt.Fprintf(out, "Image builds to forget (%d):\n", len(stale))
		table := ui.NewTable(
			ui.Column{Header: "REFERENCE"},
			ui.Column{Header: "IMAGE ID"},
			ui.Column{Header: "LAST USED"},
			ui.Column{Header: "PROJECT", MaxWidth: 60, Truncate: ui.TruncateStart},
		)
		table.Indent = "  "
		table.ShowSeparator = true
		for _, e := range stale {
			table.AddRow(e.Reference, shortID(e.ImageID), e.LastUsed.Local().Format(time.DateTime), e.Project)
		}
		_ = table.Render(out)
	}
	if opts.RemoveImages && len(stale) > 0 {
		fmt.Fprintln(out, "Their images will be removed from Docker.")
	}
	if opts.Assets {
		fmt.Fprintf(out, "Extracted assets in %s will be removed.\n", hostappconfig.AssetsDir())
	}
}

// removeImages removes each image by its reference, skipping references
// that were re-tagged to another image since.
func removeImages(ctx context.Context, dc dockerclient.DockerClient, entries []cache.Entry) {
	for _, e := range entries {
		if e.Reference == "" {
			continue
		}
		current, err := dc.ImageID(ctx, e.Reference)
		if err != nil {
			logs.Debugf("image %s is already gone: %v", e.Reference, err)
			continue
		}
		if cache.ImageID(current) != e.ImageID {
			logs.Infof("keeping %s: it now points at %s", e.Reference, shortID(cache.ImageID(current)))
			continue
		}
		if err := dc.RemoveImage(ctx, e.Reference); err != nil {
			logs.Warnf("%v", err)
			continue
		}
		logs.Infof("removed image %s", e.Reference)
	}
}

func shortID(id cache.ImageID) string {
	s := strings.TrimPrefix(string(id), "sha256:")
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}
