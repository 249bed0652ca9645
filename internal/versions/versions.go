// Package versions inspects base image tags.
package versions

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MinTestedBaseImageVersion is the oldest continuumio/miniconda3 tag the
// embedded environment is known to solve on.
const MinTestedBaseImageVersion = "4.7.10"

var minTested = semver.MustParse(MinTestedBaseImageVersion)

// TagReport describes a base image tag. Tags are never rejected; Warnings
// lists what may make a build irreproducible or fail.
type TagReport struct {
	Tag      string
	Version  *semver.Version
	Warnings []string
}

// Semantic reports whether the tag parsed as a semantic version.
func (r TagReport) Semantic() bool {
	return r.Version != nil
}

// InspectBaseImageTag parses tag as a semantic version and collects warnings.
func InspectBaseImageTag(tag string) TagReport {
	r := TagReport{Tag: tag}

	trimmed := strings.TrimSpace(tag)
	switch {
	case trimmed == "":
		r.Warnings = append(r.Warnings, "base image version is empty")
		return r
	case trimmed == "latest":
		r.Warnings = append(r.Warnings, `"latest" is a moving tag; builds are not reproducible`)
		return r
	}

	v, err := semver.StrictNewVersion(strings.TrimPrefix(trimmed, "v"))
	if err != nil {
		loose, looseErr := semver.NewVersion(trimmed)
		if looseErr != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%q is not a semantic version", tag))
			return r
		}
		r.Warnings = append(r.Warnings, fmt.Sprintf("%q is not a full MAJOR.MINOR.PATCH version, the registry may resolve it to %s or newer", tag, loose))
		v = loose
	}
	r.Version = v

	if v.Prerelease() != "" {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%q is a pre-release", tag))
	}
	if v.LessThan(minTested) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%q is older than %s, the oldest tested base image", tag, MinTestedBaseImageVersion))
	}
	return r
}

// Compare compares two base image tags as semantic versions. Tags that do not
// parse sort before those that do and compare to each other lexically.
func Compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}
