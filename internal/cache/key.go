package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveKey maps a source URL to its cache key: a stable SHA-256 hex digest
// used as the filename stem for both the media file and its sidecar. Pure
// function, no I/O.
func DeriveKey(url string) string {
	sum := sha256.Sum256([]byte(url))

	return hex.EncodeToString(sum[:])
}
