package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortHash returns the first n hex characters of the SHA-256 of content.
// n outside 1..64 yields the full digest.
func ShortHash(content string, n int) string {
	sum := sha256.Sum256([]byte(content))
	full := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(full) {
		return full
	}
	return full[:n]
}
