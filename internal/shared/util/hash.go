package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the hex SHA-256 of an upload; identical bytes always
// produce the same value.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashClientKey returns a log-safe identifier for a client key.
func HashClientKey(s string) string {
	return HashBytes([]byte(s))[:16]
}
