package enrich

import (
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "io"
    "os"
)

// emptyFileChecksum is the canonical SHA-256 digest of zero bytes.
const emptyFileChecksum = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// checksumBufSize is the chunk size the checksum pass reads in. The
// executor's copy pass uses its own, larger buffer (256 KiB).
const checksumBufSize = 8 * 1024

// fileChecksum computes the lowercase-hex SHA-256 digest of path, reading
// it in checksumBufSize chunks.
func fileChecksum(path string) (string, error) {
    f, err := os.Open(path)
    if err != nil {
        return "", fmt.Errorf("open %s: %w", path, err)
    }
    defer f.Close()

    h := sha256.New()
    buf := make([]byte, checksumBufSize)
    if _, err := io.CopyBuffer(h, f, buf); err != nil {
        return "", fmt.Errorf("checksum %s: %w", path, err)
    }

    return hex.EncodeToString(h.Sum(nil)), nil
}
