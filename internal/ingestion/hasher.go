package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the lowercase hex SHA-256 digest of a file's raw bytes.
// The digest is computed before any decoding so byte-identical files always
// collide regardless of how they parse.
func HashContent(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
