// Package signature hashes canonical invoice documents and produces the sandbox
// stand-in for a cryptographic stamp.
//
// Nothing in this package involves key material. Simulate output is a second digest,
// not a verifiable signature, and must never be presented as one.
package signature

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// SignaturePrefix is prepended to the invoice hash before the simulated signing digest
const SignaturePrefix = "SIGN-"

// HashLength is the length of a hex-encoded SHA-256 digest
const HashLength = 64

// Encode transport-encodes a canonical document (standard base64 of its UTF-8 bytes)
func Encode(document string) string {
	return base64.StdEncoding.EncodeToString([]byte(document))
}

// Hash returns the lowercase hex SHA-256 digest of the encoded document text.
// The result is the previous-invoice hash for the next link in the chain.
func Hash(encoded string) string {
	sum := sha256.Sum256([]byte(encoded))
	return hex.EncodeToString(sum[:])
}

// HashDocument encodes and hashes a canonical document in one step
func HashDocument(document string) (encoded, hash string) {
	encoded = Encode(document)
	return encoded, Hash(encoded)
}

// Simulate derives the placeholder signature: SHA-256 over SignaturePrefix + hash
func Simulate(hash string) string {
	sum := sha256.Sum256([]byte(SignaturePrefix + hash))
	return hex.EncodeToString(sum[:])
}

// IsDigest reports whether s looks like a hex SHA-256 digest
func IsDigest(s string) bool {
	if len(s) != HashLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
