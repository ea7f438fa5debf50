// Package archive serializes a staged tree into a byte-reproducible zip.
//
// Two content-identical trees must pack to byte-identical archives, so every
// per-entry header field the format stores is either derived from tree
// content or pinned to a constant. The fields that matter for zip, and how
// each is handled:
//
//   - entry order: explicit lexicographic sort of the full relative path,
//     never filesystem enumeration order
//   - modification time (both the DOS field and the extended-timestamp
//     extra): pinned to the zip epoch, 1980-01-01 UTC
//   - permission bits: normalized to 0755/0644 from the tree's own exec bit,
//     never the raw on-disk mode
//   - compression: Deflate at a fixed level for every entry
//   - host attributes, ACLs, provenance xattrs: never copied; entries carry
//     only name, content, and the normalized mode
//
// Directory entries are omitted: extraction recreates directories from entry
// paths, and a directory header would only add more metadata to pin.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entry timestamps inside the archive are pinned to the oldest time the zip
// format can represent, not to the build's canonical stamp: stored metadata
// must be input-independent, and the stamp is an input.
var pinnedEntryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	normalFileMode fs.FileMode = 0644
	execFileMode   fs.FileMode = 0755
)

// Pack walks the tree rooted at root in canonical order and writes it as a
// zip archive to outPath. The output bytes are a pure function of the tree's
// paths, contents, and exec bits.
func Pack(root, outPath string) error {
	paths, err := collectPaths(root)
	if err != nil {
		return fmt.Errorf("enumerate tree %s: %w", root, err)
	}

	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", outPath, err)
	}

	writer := zip.NewWriter(out)
	// Deflate level is part of the output bytes; leaving it to the encoder's
	// default would tie reproducibility to a knob nobody pinned.
	writer.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, rel := range paths {
		if err := writeEntry(writer, root, rel); err != nil {
			_ = writer.Close()
			_ = out.Close()
			return fmt.Errorf("write entry %s: %w", rel, err)
		}
	}

	if err := writer.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finish archive %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", outPath, err)
	}
	return nil
}

// Finalize pins the archive file's own filesystem mtime to the canonical
// stamp. The archive-as-a-file is part of the build's output surface too:
// downstream tooling that stats the artifact should see the same metadata
// from every rebuild of the same input.
func Finalize(outPath string, stamp time.Time) error {
	if err := os.Chtimes(outPath, stamp, stamp); err != nil {
		return fmt.Errorf("set archive mtime on %s: %w", outPath, err)
	}
	return nil
}

// collectPaths gathers the relative, slash-separated paths of every file and
// symlink under root and returns them in lexicographic order. The sort here
// is the single source of entry ordering; the walk order underneath is
// irrelevant.
func collectPaths(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func writeEntry(writer *zip.Writer, root, rel string) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(full)
	if err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name:     rel,
		Method:   zip.Deflate,
		Modified: pinnedEntryTime,
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		header.SetMode(execFileMode | fs.ModeSymlink)
		target, err := os.Readlink(full)
		if err != nil {
			return err
		}
		entry, err := writer.CreateHeader(header)
		if err != nil {
			return err
		}
		_, err = entry.Write([]byte(target))
		return err
	}

	header.SetMode(normalizeMode(info.Mode()))
	entry, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	file, err := os.Open(full)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	_, err = io.Copy(entry, file)
	return err
}

// normalizeMode collapses on-disk permission bits to exactly two values. The
// exec bit is the only semantically meaningful permission for a deployment
// tree; umask noise, group bits, and host quirks must not reach the archive.
func normalizeMode(mode fs.FileMode) fs.FileMode {
	if mode.Perm()&0111 != 0 {
		return execFileMode
	}
	return normalFileMode
}
