package conda2docker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/0xa1bed0/conda2docker/internal/buildcontext"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	Output     string
	ContextDir string
	Force      bool
}

func newRenderCmd(g *globalOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [PATH]",
		Short: "Render the Dockerfile for a repository",
		Long: `Render the Dockerfile for the repository at PATH and print it.

With --output the Dockerfile is written to FILE instead. With --context-dir a
complete build context (Dockerfile, auxiliary files and the repository under
src/) is staged into DIR, ready for 'docker build DIR'.
If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.Debugf("running render...")

			s, err := g.newSession(pathFromArgs(args))
			if err != nil {
				return err
			}

			dockerfile, files, err := s.render()
			if err != nil {
				return err
			}

			if opts.Output == "" && opts.ContextDir == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), dockerfile)
				return err
			}

			if opts.Output != "" {
				if err := writeOutput(cmd, opts.Output, dockerfile, opts.Force); err != nil {
					return err
				}
				logs.Infof("wrote %s", opts.Output)
			}

			if opts.ContextDir != "" {
				if err := ensureEmptyDir(opts.ContextDir, opts.Force); err != nil {
					return err
				}
				if err := s.stage(opts.ContextDir, dockerfile, files); err != nil {
					return err
				}
				logs.Infof("staged build context in %s", opts.ContextDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the Dockerfile to FILE")
	cmd.Flags().StringVar(&opts.ContextDir, "context-dir", "", "Stage a complete build context into DIR")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite existing output without asking")

	return cmd
}

// stage lays out a complete build context in dir. files is the mapping the
// Dockerfile was rendered from; Stage fails if a file changed since.
func (s *session) stage(dir, dockerfile string, files map[string]string) error {
	if err := buildcontext.WriteDockerfile(dir, dockerfile); err != nil {
		return err
	}
	if err := buildcontext.Stage(dir, files); err != nil {
		return err
	}

	return s.Project.StageSource(dir)
}

func writeOutput(cmd *cobra.Command, path, dockerfile string, force bool) error {
	_, err := os.Stat(path)
	switch {
	case err == nil && !force:
		ok, err := confirm(cmd.Context(), fmt.Sprintf("%s exists. Overwrite?", path))
		if errors.Is(err, errNotInteractive) {
			return fmt.Errorf("%s exists; use --force to overwrite", path)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("not overwriting %s", path)
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(dockerfile), 0o644)
}

// ensureEmptyDir refuses to stage on top of an existing build context
// unless forced, since leftovers would end up in the image.
func ensureEmptyDir(dir string, force bool) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 && !force {
		return fmt.Errorf("%s is not empty; use --force to stage into it anyway", dir)
	}
	return nil
}
