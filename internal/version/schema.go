package version

// ImageSchemaVersion increments when Dockerfile generation changes require image rebuilds.
//
// Bump for:
//   - Dockerfile template changes
//   - Label format changes
//   - Build context layout changes
//   - Entrypoint/CMD format changes
//
// Don't bump for:
//   - CLI-only changes
//   - Bug fixes not affecting image content
const ImageSchemaVersion = 1

const (
	ImageSchemaVersionLabel = "conda2docker.image_schema_version"
	ToolVersionLabel        = "conda2docker.version"
	CacheKeyLabel           = "conda2docker.cache_key"
	ProjectLabel            = "conda2docker.project"
)
