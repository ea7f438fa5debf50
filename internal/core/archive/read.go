package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/duskfell/cinnabar-go/internal/core/hasher"
)

// Entries larger than this are refused when reading an archive back; a
// deployment unit file past this size is an input mistake, not a use case.
const maxEntryBytes = int64(512 * 1024 * 1024)

// Entry describes one archive member as read back for verification or
// display.
type Entry struct {
	Path string
	Size uint64
	Mode fs.FileMode
	Hash string
}

// List opens the archive at path and returns its entries with content
// hashes, sorted by path. Directory members, if a foreign tool added any,
// are ignored.
func List(path string) ([]Entry, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer func() { _ = reader.Close() }()

	entries := make([]Entry, 0, len(reader.File))
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if int64(file.UncompressedSize64) > maxEntryBytes {
			return nil, fmt.Errorf("entry %s exceeds %d bytes", file.Name, maxEntryBytes)
		}
		hash, err := hashEntry(file)
		if err != nil {
			return nil, fmt.Errorf("hash entry %s: %w", file.Name, err)
		}
		entries = append(entries, Entry{
			Path: file.Name,
			Size: file.UncompressedSize64,
			Mode: file.Mode(),
			Hash: hash,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func hashEntry(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	return hasher.CalculateReaderSHA256(io.LimitReader(rc, maxEntryBytes))
}
