// Package fingerprint computes content checksums for migration scripts.
// The same bytes produce the same checksum on every platform, which is what
// makes the stored checksum usable for drift detection across machines.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the number of hex characters shown in drift diagnostics.
const shortLen = 16

// Sum returns the hex-encoded SHA-256 digest of content.
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Short truncates a checksum to a 16-character prefix for log output and
// status listings. Checksums shorter than that are returned unchanged.
func Short(hash string) string {
	if len(hash) <= shortLen {
		return hash
	}
	return hash[:shortLen]
}
