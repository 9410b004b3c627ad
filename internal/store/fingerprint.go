package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// ETag computes a weak content fingerprint for data: W/"<sha256-hex>".
// Equal bytes always yield equal ETags; the prefix marks it as a weak
// validator per spec.md §4.2, and the digest is never truncated.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
