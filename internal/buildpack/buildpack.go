// Package buildpack renders the Dockerfile of a conda based Jupyter image
// together with the auxiliary files it copies into the image.
package buildpack

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/0xa1bed0/conda2docker/internal/assets"
	"github.com/0xa1bed0/conda2docker/internal/buildcontext"
	"github.com/0xa1bed0/conda2docker/internal/fsops"
)

// BuildPack produces a Dockerfile and the host files it needs in the build
// context.
type BuildPack interface {
	Name() string
	// AuxiliaryFiles lists the files copied into the image, ordered by role.
	AuxiliaryFiles() []AuxiliaryFile
	// BuildContextFiles maps absolute host paths to build context paths.
	BuildContextFiles() (map[string]string, error)
	Render(cfg Config) (string, error)
	// RenderFiles renders with a mapping from BuildContextFiles, so the
	// Dockerfile names exactly what gets staged from that mapping.
	RenderFiles(cfg Config, files map[string]string) (string, error)
}

// AuxiliaryFile is a host file with a role. Role is a logical name such as
// "entrypoint" or an absolute in-image destination. A build pack keeps
// HostPath absolute.
type AuxiliaryFile struct {
	Role     string
	HostPath string
}

// Destination returns the in-image path of the file.
func (f AuxiliaryFile) Destination() string {
	return Destination(f.Role)
}

// CopyInstruction is one COPY line of the rendered Dockerfile.
type CopyInstruction struct {
	Source      string
	Destination string
}

const primaryPythonName = "primary-python"

// PrimaryPython is the conda + Jupyter build pack.
type PrimaryPython struct {
	files    []AuxiliaryFile
	resolver *buildcontext.Resolver
	tmpl     *template.Template
}

type Option func(*PrimaryPython) error

// WithTemplate replaces the embedded Dockerfile template.
func WithTemplate(text string) Option {
	return func(p *PrimaryPython) error {
		t, err := parseTemplate("custom", text)
		if err != nil {
			return err
		}
		p.tmpl = t
		return nil
	}
}

var _ BuildPack = (*PrimaryPython)(nil)

// NewPrimaryPython uses the files extracted by assets.Extract into assetsDir.
func NewPrimaryPython(assetsDir string, opts ...Option) (*PrimaryPython, error) {
	if strings.TrimSpace(assetsDir) == "" {
		return nil, errors.New("assets dir is empty")
	}
	files := []AuxiliaryFile{
		{Role: RoleBaseEnvironment, HostPath: filepath.Join(assetsDir, assets.EnvironmentFile)},
		{Role: RoleEntrypoint, HostPath: filepath.Join(assetsDir, assets.EntrypointFile)},
		{Role: RoleActivateConda, HostPath: filepath.Join(assetsDir, assets.ActivateCondaFile)},
	}
	return NewPrimaryPythonWithFiles(files, fsops.DefaultOps(), opts...)
}

// NewPrimaryPythonWithFiles accepts an arbitrary role set. Roles must be unique.
func NewPrimaryPythonWithFiles(files []AuxiliaryFile, ops fsops.Ops, opts ...Option) (*PrimaryPython, error) {
	resolver, err := buildcontext.NewResolverWithOps(ops)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(files))
	sorted := make([]AuxiliaryFile, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.Role) == "" {
			return nil, fmt.Errorf("auxiliary file %q has no role", f.HostPath)
		}
		if _, dup := seen[f.Role]; dup {
			return nil, fmt.Errorf("duplicate auxiliary file role %q", f.Role)
		}
		seen[f.Role] = struct{}{}

		abs, err := ops.Path.Abs(f.HostPath)
		if err != nil {
			return nil, &buildcontext.FileResolutionError{Path: f.HostPath, Err: err}
		}
		f.HostPath = abs
		sorted = append(sorted, f)
	}
	slices.SortFunc(sorted, func(a, b AuxiliaryFile) int {
		return strings.Compare(a.Role, b.Role)
	})

	p := &PrimaryPython{
		files:    sorted,
		resolver: resolver,
		tmpl:     defaultTemplate,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PrimaryPython) Name() string {
	return primaryPythonName
}

func (p *PrimaryPython) AuxiliaryFiles() []AuxiliaryFile {
	return slices.Clone(p.files)
}

func (p *PrimaryPython) BuildContextFiles() (map[string]string, error) {
	hostPaths := make([]string, 0, len(p.files))
	for _, f := range p.files {
		hostPaths = append(hostPaths, f.HostPath)
	}
	return p.resolver.ResolveAll(hostPaths)
}

// copyInstructions looks every auxiliary file up in files and orders the
// result by destination then source.
func (p *PrimaryPython) copyInstructions(files map[string]string) ([]CopyInstruction, error) {
	out := make([]CopyInstruction, 0, len(p.files))
	for _, f := range p.files {
		ctxPath, ok := files[f.HostPath]
		if !ok {
			return nil, &buildcontext.FileResolutionError{Path: f.HostPath, Err: ErrFileNotMapped}
		}
		out = append(out, CopyInstruction{Source: ctxPath, Destination: f.Destination()})
	}
	slices.SortFunc(out, func(a, b CopyInstruction) int {
		if c := strings.Compare(a.Destination, b.Destination); c != 0 {
			return c
		}
		return strings.Compare(a.Source, b.Source)
	})
	return out, nil
}

func (p *PrimaryPython) baseEnvironmentDestination() string {
	for _, f := range p.files {
		if f.Role == RoleBaseEnvironment {
			return f.Destination()
		}
	}
	return ""
}
