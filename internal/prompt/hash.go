package prompt

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// HashContent returns the hex-encoded xxh3 128-bit hash of file content.
// Snapshot file hashes let diff and verification skip byte comparison.
func HashContent(content string) string {
	sum := xxh3.Hash128([]byte(content)).Bytes()
	return hex.EncodeToString(sum[:])
}
