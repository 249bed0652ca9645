package conda2docker

import (
	"cmp"
	"slices"

	"github.com/0xa1bed0/conda2docker/internal/buildpack"
	"github.com/0xa1bed0/conda2docker/internal/ui"
	"github.com/spf13/cobra"
)

func newFilesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the auxiliary files and their build context names",
		Long: `Print every auxiliary file of the build pack with its role, its path on the
host and the name it gets in the build context, sorted by context name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bp, err := g.buildPack()
			if err != nil {
				return err
			}

			mapping, err := bp.BuildContextFiles()
			if err != nil {
				return err
			}

			roles := map[string]string{}
			for _, f := range bp.AuxiliaryFiles() {
				roles[f.HostPath] = f.Role
			}

			hosts := make([]string, 0, len(mapping))
			for host := range mapping {
				hosts = append(hosts, host)
			}
			slices.SortFunc(hosts, func(a, b string) int {
				if c := cmp.Compare(mapping[a], mapping[b]); c != 0 {
					return c
				}
				return cmp.Compare(a, b)
			})

			table := ui.NewTable(
				ui.Column{Header: "ROLE"},
				ui.Column{Header: "HOST PATH"},
				ui.Column{Header: "CONTEXT PATH"},
				ui.Column{Header: "DESTINATION"},
			)
			for _, host := range hosts {
				role := roles[host]
				table.AddRow(role, host, mapping[host], buildpack.Destination(role))
			}
			return table.Render(cmd.OutOrStdout())
		},
	}

	return cmd
}
