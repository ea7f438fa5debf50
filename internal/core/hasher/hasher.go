package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CalculateSHA256 computes the SHA256 hash of the given content
// and returns it in the format "sha256:<hex_hash>".
func CalculateSHA256(content []byte) (string, error) {
	hasher := sha256.New()
	_, err := hasher.Write(content) // Capture potential error from Write, though rare for byte slices
	if err != nil {
		return "", fmt.Errorf("failed to write content to hasher: %w", err)
	}
	hashBytes := hasher.Sum(nil)
	hashString := hex.EncodeToString(hashBytes)
	return fmt.Sprintf("sha256:%s", hashString), nil
}

// CalculateReaderSHA256 streams the reader through SHA256 and returns the
// hash in the format "sha256:<hex_hash>". Useful for archive files that are
// too large to hold in memory.
func CalculateReaderSHA256(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to stream content to hasher: %w", err)
	}
	return fmt.Sprintf("sha256:%s", hex.EncodeToString(hasher.Sum(nil))), nil
}

// CalculateFileSHA256 opens the file at path and returns its SHA256 hash in
// the format "sha256:<hex_hash>".
func CalculateFileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return CalculateReaderSHA256(file)
}
