package buildpack

import "path"

// Logical roles of the auxiliary files.
const (
	RoleBaseEnvironment = "base-environment"
	RoleEntrypoint      = "entrypoint"
	RoleActivateConda   = "activate-conda"
)

const (
	// EntrypointPath is the image ENTRYPOINT.
	EntrypointPath = "/usr/local/bin/repo2docker-entrypoint"

	// DefaultAssembleDir receives files whose role has no conventional location.
	DefaultAssembleDir = "/tmp/assemble-files"
)

var conventionalDestinations = map[string]string{
	RoleBaseEnvironment: path.Join("/tmp", "base-environment.frozen.yml"),
	RoleEntrypoint:      EntrypointPath,
	RoleActivateConda:   path.Join("/etc/profile.d", "activate-conda.sh"),
}

// Destination returns where a file with the given role lands in the image.
// An absolute role is already a destination (fixed-map form).
func Destination(role string) string {
	if path.IsAbs(role) {
		return path.Clean(role)
	}
	if dst, ok := conventionalDestinations[role]; ok {
		return dst
	}
	return path.Join(DefaultAssembleDir, role)
}
