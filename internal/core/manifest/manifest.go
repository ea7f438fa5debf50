// Package manifest produces the canonical JSON sidecar written next to every
// archive. The sidecar records what was packed and under which stamp, so
// `cinn verify` can re-check an archive without rebuilding it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gowebpki/jcs"

	"github.com/duskfell/cinnabar-go/internal/core/fsx"
)

const (
	SchemaID      = "cinnabar.build.manifest"
	SchemaVersion = "1.0.0"
)

// Manifest describes one published archive.
type Manifest struct {
	SchemaID      string      `json:"schema_id"`
	SchemaVersion string      `json:"schema_version"`
	Package       string      `json:"package"`
	Version       string      `json:"version,omitempty"`
	Stamp         int64       `json:"stamp"`
	Precompiled   bool        `json:"precompiled"`
	ArchiveHash   string      `json:"archive_hash"`
	Entries       []EntryHash `json:"entries"`
}

// EntryHash pairs an archive member path with its content hash. Entries are
// stored sorted by path, matching the archive's own canonical order.
type EntryHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// Encode marshals m and canonicalizes the result with RFC 8785 JCS, so the
// sidecar bytes never vary with encoder field ordering or whitespace.
func Encode(m Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}
	return canonical, nil
}

// Decode parses manifest bytes.
func Decode(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.SchemaID != SchemaID {
		return Manifest{}, fmt.Errorf("unexpected manifest schema %q", m.SchemaID)
	}
	return m, nil
}

// SidecarPath returns the manifest path for an archive path.
func SidecarPath(archivePath string) string {
	return archivePath + ".manifest.json"
}

// Write encodes m and writes the sidecar next to the archive atomically.
func Write(archivePath string, m Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(SidecarPath(archivePath), data, 0644)
}

// Load reads and parses the sidecar for the archive at archivePath.
func Load(archivePath string) (Manifest, error) {
	data, err := os.ReadFile(SidecarPath(archivePath))
	if err != nil {
		return Manifest{}, err
	}
	return Decode(data)
}
