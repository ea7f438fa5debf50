package project

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Project represents the overall structure of the cinnabar.toml file.
type Project struct {
	Package *PackageInfo   `toml:"package"`
	Build   *BuildSettings `toml:"build"`
}

// PackageInfo holds metadata for the package being archived.
type PackageInfo struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description,omitempty"`
}

// BuildSettings holds the pipeline inputs declared in cinnabar.toml.
type BuildSettings struct {
	// Source is the version-controlled application source directory.
	Source string `toml:"source"`
	// Vendor is the externally populated dependency directory. The pipeline
	// treats it as read-only input; cinnabar never installs anything into it.
	Vendor string `toml:"vendor"`
	// Output is the archive path the build publishes on success.
	Output string `toml:"output"`
	// Precompile enables bytecode generation for eligible source files.
	Precompile bool `toml:"precompile"`
	// Python is the interpreter used for bytecode generation. Empty means
	// "python3".
	Python string `toml:"python,omitempty"`
	// Stamp optionally pins the canonical timestamp (unix seconds). Zero
	// means derive it from the source tree's version-control history.
	Stamp int64 `toml:"stamp,omitempty"`
}

// New creates and returns a new Project instance with initialized sections.
func New() *Project {
	return &Project{
		Package: &PackageInfo{},
		Build:   &BuildSettings{},
	}
}

// Validate checks the fields a build depends on. Version must parse as a
// semantic version so downstream tooling can order archives by package
// version.
func (p *Project) Validate() error {
	if p.Package == nil || strings.TrimSpace(p.Package.Name) == "" {
		return fmt.Errorf("package.name is required")
	}
	if p.Package.Version != "" {
		if _, err := semver.NewVersion(strings.TrimPrefix(p.Package.Version, "v")); err != nil {
			return fmt.Errorf("package.version %q is not a valid semantic version: %w", p.Package.Version, err)
		}
	}
	if p.Build == nil {
		return fmt.Errorf("[build] section is required")
	}
	if strings.TrimSpace(p.Build.Source) == "" {
		return fmt.Errorf("build.source is required")
	}
	if strings.TrimSpace(p.Build.Output) == "" {
		return fmt.Errorf("build.output is required")
	}
	if p.Build.Stamp < 0 {
		return fmt.Errorf("build.stamp must not be negative")
	}
	return nil
}
