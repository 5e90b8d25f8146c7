// Package auth computes and checks the handshake challenge of the Ampache XML protocol.
//
// The client proves it knows the stored password by sending
// sha256(timestamp + sha256(password)) in hex. The scheme is kept as the
// protocol defines it: the comparison is a plain string match and the only
// replay protection is the timestamp baked into the hash.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// PassHash returns the hex SHA-256 of the stored secret.
func PassHash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ComputeExpected returns the auth value a client holding secret must send for timestamp.
func ComputeExpected(secret, timestamp string) string {
	sum := sha256.Sum256([]byte(timestamp + PassHash(secret)))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether provided matches [ComputeExpected] for secret and timestamp.
func Verify(provided, secret, timestamp string) bool {
	return provided == ComputeExpected(secret, timestamp)
}
