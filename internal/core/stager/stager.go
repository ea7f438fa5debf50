// Package stager assembles the scratch tree a build packs from.
package stager

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Stage deep-copies the vendor directory and then the source directory into
// scratchRoot, preserving relative structure, permission bits, and symlinks.
//
// When a vendor file and a source file claim the same relative path, the
// source file wins: source is copied last and overwrites. This is deliberate
// and load-bearing — silent shadowing in the other direction would let a
// vendored file mask application code.
//
// The caller owns scratchRoot and is responsible for removing it on every
// exit path.
func Stage(vendorDir, sourceDir, scratchRoot string) error {
	if vendorDir != "" {
		if err := copyTree(vendorDir, scratchRoot); err != nil {
			return fmt.Errorf("copy vendor tree %s: %w", vendorDir, err)
		}
	}
	if err := copyTree(sourceDir, scratchRoot); err != nil {
		return fmt.Errorf("copy source tree %s: %w", sourceDir, err)
	}
	return nil
}

// copyTree copies every entry under srcRoot into dstRoot, overwriting
// existing entries.
func copyTree(srcRoot, dstRoot string) error {
	return filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dstRoot, 0755)
		}
		dst := filepath.Join(dstRoot, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(dst, 0755)
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("read symlink %s: %w", path, err)
			}
			// Remove whatever an earlier stage put here so the link wins.
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("replace %s: %w", dst, err)
			}
			return os.Symlink(target, dst)
		case d.Type().IsRegular():
			return copyFile(path, dst)
		default:
			// Sockets, devices and the like have no place in a deployment
			// archive.
			return fmt.Errorf("unsupported file type %s at %s", d.Type(), path)
		}
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	// An earlier-staged symlink at dst must not redirect the write.
	if existing, err := os.Lstat(dst); err == nil && existing.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("replace symlink %s: %w", dst, err)
		}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile honors the mode only at creation; overwritten files keep their
	// old bits unless reset explicitly.
	return os.Chmod(dst, info.Mode().Perm())
}
