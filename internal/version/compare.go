package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaCompatibility checks whether a config file's schema_version is
// compatible with the running engine version.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckSchemaCompatibility(engineVersion, schemaVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	schemaVersion = strings.TrimPrefix(schemaVersion, "v")

	// Skip version check for "main" (development builds)
	if engineVersion == "main" || schemaVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	schemaSemver, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version '%s': %w", schemaVersion, err)
	}

	if engineSemver.Major() != schemaSemver.Major() {
		return fmt.Errorf("incompatible schema version: engine %s, config %s (major version mismatch)",
			engineVersion, schemaVersion)
	}

	if engineSemver.Minor() != schemaSemver.Minor() {
		return fmt.Errorf("incompatible schema version: engine %s, config %s (minor version mismatch)",
			engineVersion, schemaVersion)
	}

	return nil
}
