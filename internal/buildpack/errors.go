package buildpack

import (
	"errors"
	"fmt"
)

// ErrFileNotMapped means a mapping passed to RenderFiles lacks an auxiliary file.
var ErrFileNotMapped = errors.New("auxiliary file missing from build context mapping")

// TemplateError reports a template placeholder with no value to substitute.
type TemplateError struct {
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template placeholder %q has no value", e.Placeholder)
}
