// Package hashsum provides the content hash used for object epilogues.
package hashsum

import (
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest size in bytes, producing a 64-character hex string.
const Size = 32

// New returns a fresh BLAKE2b-256 hash.Hash.
func New() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only fails for a non-nil key longer than 64 bytes, which New256
		// passing nil never hits.
		panic("hashsum: " + err.Error())
	}
	return h
}

// HexSum lowercase-hex-encodes a digest produced by New().Sum(nil).
func HexSum(digest []byte) string {
	return hex.EncodeToString(digest)
}
