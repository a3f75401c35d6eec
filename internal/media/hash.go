package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ContentHash computes the hex SHA-256 of a file's contents, streaming so
// memory use is independent of file size. The hash seeds the storage key
// prefix and the cache-reuse check.
func ContentHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", filePath, err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", filePath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
