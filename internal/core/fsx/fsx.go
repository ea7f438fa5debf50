// Package fsx provides the small filesystem helpers the build pipeline
// depends on for publish-or-nothing semantics.
package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// WriteFileAtomic writes content to path through a temporary file in the same
// directory, renaming it into place only after a successful write and sync.
// A reader never observes a partially written file at path.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := os.CreateTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := RenameAtomic(tempPath, path); err != nil {
		return err
	}
	keep = true

	if dirHandle, err := os.Open(parent); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}
	return nil
}

// RenameAtomic renames oldPath to newPath, working around Windows refusing
// to rename over an existing destination.
func RenameAtomic(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("rename into place: %w", err)
		}
		if removeErr := os.Remove(newPath); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(oldPath, newPath); renameErr != nil {
			return fmt.Errorf("rename into place after remove: %w", renameErr)
		}
	}
	return nil
}
