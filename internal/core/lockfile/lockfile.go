package lockfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/duskfell/cinnabar-go/internal/core/fsx"
)

const LockfileName = "cinnabar-lock.toml"
const APIVersion = "1"

// BuildRecord captures the last successful build of the project.
// Example:
//
//	[build]
//	archive = "dist/app.zip"
//	hash = "sha256:<hash_value>"
//	stamp = 1743508800
//	precompiled = true
type BuildRecord struct {
	Archive     string `toml:"archive"`
	Hash        string `toml:"hash"`
	Stamp       int64  `toml:"stamp"`
	Precompiled bool   `toml:"precompiled"`
}

// Lockfile represents the structure of the cinnabar-lock.toml file.
type Lockfile struct {
	ApiVersion string       `toml:"api_version"`
	Build      *BuildRecord `toml:"build,omitempty"`
}

// New creates a new Lockfile instance with default values.
func New() *Lockfile {
	return &Lockfile{
		ApiVersion: APIVersion,
	}
}

// Load loads the lockfile from the given project root path.
// If the lockfile doesn't exist, it returns a new Lockfile instance.
func Load(projectRoot string) (*Lockfile, error) {
	lockfilePath := filepath.Join(projectRoot, LockfileName)
	lf := New()

	if _, err := os.Stat(lockfilePath); os.IsNotExist(err) {
		return lf, nil // Return a new lockfile if it doesn't exist
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat lockfile %s: %w", lockfilePath, err)
	}

	if _, err := toml.DecodeFile(lockfilePath, &lf); err != nil {
		return nil, fmt.Errorf("failed to decode lockfile %s: %w", lockfilePath, err)
	}
	// Ensure API version is present, even if file was empty or had it missing
	if lf.ApiVersion == "" {
		lf.ApiVersion = APIVersion
	}
	return lf, nil
}

// Save saves the lockfile to the given project root path.
func Save(projectRoot string, lf *Lockfile) error {
	lockfilePath := filepath.Join(projectRoot, LockfileName)

	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(lf); err != nil {
		return fmt.Errorf("failed to encode lockfile %s: %w", lockfilePath, err)
	}
	if err := fsx.WriteFileAtomic(lockfilePath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write lockfile %s: %w", lockfilePath, err)
	}
	return nil
}

// RecordBuild replaces the build record with the outcome of a successful
// build.
func (lf *Lockfile) RecordBuild(archivePath, hash string, stamp int64, precompiled bool) {
	lf.Build = &BuildRecord{
		Archive:     archivePath,
		Hash:        hash,
		Stamp:       stamp,
		Precompiled: precompiled,
	}
}
