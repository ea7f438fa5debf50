// Package mtime normalizes on-disk modification timestamps.
package mtime

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Normalize rewrites the modification time of every file and directory under
// root to stamp. It runs twice per build: once before bytecode generation, so
// the toolchain reads a stable source mtime into the artifacts it emits, and
// once after, so the fresh artifacts themselves carry the same stable mtime.
// Running it again with the same stamp is a no-op in observable effect.
//
// Symlinks are skipped: os.Chtimes follows links, the link targets are
// normalized in their own right, and the archiver pins entry timestamps to a
// constant regardless.
func Normalize(root string, stamp time.Time) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			return fmt.Errorf("set mtime on %s: %w", path, err)
		}
		return nil
	})
}
