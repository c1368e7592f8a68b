package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service current released version.
// Semantic versioning: https://semver.org/
var Version = "0.3.0"

// DevVersion is the service current development version.
var DevVersion = "0.3.0"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// Canonical normalizes a version string ("2.9.1", "v2.9") into semver form, or "" if invalid.
func Canonical(version string) string {
	version = strings.TrimSpace(version)
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return semver.Canonical(version)
}

// GetMinorVersion returns "major.minor" of version.
func GetMinorVersion(version string) string {
	return strings.TrimPrefix(semver.MajorMinor(Canonical(version)), "v")
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(Canonical(version), Canonical(target)) > -1
}

// IsVersionGreaterThan returns true if version is greater than target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(Canonical(version), Canonical(target)) > 0
}

// String renders the version banner printed by the CLI.
func String(mode string) string {
	return fmt.Sprintf("timextag %s (%s)", GetCurrentVersion(mode), mode)
}
