package version

// version is set at build time:
//
//	go build -ldflags "-X github.com/0xa1bed0/conda2docker/internal/version.version=v1.2.3"
var version = "local"

// Get returns the conda2docker version, "local" for untagged builds.
func Get() string {
	return version
}
