package conda2docker

import (
	"errors"
	"fmt"

	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/version"
	"github.com/0xa1bed0/conda2docker/internal/versioncheck"
	"github.com/spf13/cobra"
)

func newVersionCmd(b backends) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of conda2docker",
		Long:  `Display the current version of conda2docker and the image schema it writes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (image schema %d)\n", version.Get(), version.ImageSchemaVersion)
			if !check {
				return nil
			}

			res, err := b.versionChecker(cmd.Context()).Check(cmd.Context(), version.Get())
			if errors.Is(err, versioncheck.ErrUnversionedBuild) {
				fmt.Fprintln(out, "Update check skipped: this is not a released build.")
				return nil
			}
			if err != nil {
				logs.Warnf("update check failed: %v", err)
				return nil
			}
			if !res.UpdateAvailable {
				fmt.Fprintf(out, "Up to date (latest release %s).\n", res.LatestVersion)
				return nil
			}
			fmt.Fprintf(out, "A new version is available: %s -> %s\n%s\n", res.CurrentVersion, res.LatestVersion, res.UpgradeHint())
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")

	return cmd
}
