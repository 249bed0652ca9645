package buildpack

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/0xa1bed0/conda2docker/internal/logs"
)

// Render fills the Dockerfile template. Auxiliary files are resolved again
// on every call so the output always reflects their current content.
func (p *PrimaryPython) Render(cfg Config) (string, error) {
	mapping, err := p.BuildContextFiles()
	if err != nil {
		return "", err
	}
	return p.RenderFiles(cfg, mapping)
}

// RenderFiles fills the template from an already resolved mapping. Every
// auxiliary file must be in it.
func (p *PrimaryPython) RenderFiles(cfg Config, mapping map[string]string) (string, error) {
	files, err := p.copyInstructions(mapping)
	if err != nil {
		return "", err
	}

	values := map[string]any{
		"Files":           files,
		"BaseEnvironment": p.baseEnvironmentDestination(),
		"Entrypoint":      EntrypointPath,
	}
	if cfg.BaseImageVersion != "" {
		values["BaseImageVersion"] = cfg.BaseImageVersion
	}

	out, err := execute(p.tmpl, values)
	if err != nil {
		return "", err
	}

	logs.Debugf("rendered %s Dockerfile for %s:\n%s", p.Name(), cfg.BaseImage(), out)
	return out, nil
}

func execute(t *template.Template, values map[string]any) (string, error) {
	for _, name := range placeholders(t) {
		if _, ok := values[name]; !ok {
			return "", &TemplateError{Placeholder: name}
		}
	}

	var sb strings.Builder
	if err := t.Execute(&sb, values); err != nil {
		return "", fmt.Errorf("execute template %s: %w", t.Name(), err)
	}
	return sb.String(), nil
}
