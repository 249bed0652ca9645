package buildpack

// DefaultBaseImageVersion is the continuumio/miniconda3 tag used when none is set.
const DefaultBaseImageVersion = "4.7.12"

// BaseImageRepository is the image the rendered Dockerfile starts FROM.
const BaseImageRepository = "continuumio/miniconda3"

// Config holds the tunables of a render. It is passed by value, so a render
// never observes later changes.
type Config struct {
	// BaseImageVersion is the continuumio/miniconda3 tag. Any string is
	// accepted; the registry decides whether it exists.
	BaseImageVersion string
}

type ConfigOption func(*Config)

// NewConfig returns a Config with defaults applied, then opts in order.
func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{
		BaseImageVersion: DefaultBaseImageVersion,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBaseImageVersion overrides the base image tag. Empty values are ignored
// so unset flags keep the previous layer's value.
func WithBaseImageVersion(version string) ConfigOption {
	return func(c *Config) {
		if version != "" {
			c.BaseImageVersion = version
		}
	}
}

// BaseImage returns the full image reference, e.g. continuumio/miniconda3:4.7.12.
func (c Config) BaseImage() string {
	return BaseImageRepository + ":" + c.BaseImageVersion
}
