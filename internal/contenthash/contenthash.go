// Package contenthash computes the content identity used to name caption
// artifacts. The digest is always recomputed from the bytes on disk.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the read buffer used while streaming a file through the hash.
const ChunkSize = 1024 * 1024

// File streams the file at path through SHA-256 and returns the hex digest.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, nil
}

// Reader hashes r until EOF. A read error discards the partial digest.
func Reader(r io.Reader) (string, error) {
	hasher := sha256.New()
	buf := make([]byte, ChunkSize)
	// hide io.WriterTo so reads go through buf
	if _, err := io.CopyBuffer(hasher, struct{ io.Reader }{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
