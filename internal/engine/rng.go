package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// BlockSize is the length in bytes of one derived block.
const BlockSize = 32

// DeriveBlock computes HMAC-SHA256 keyed by the server seed over the message
// "clientSeed:nonce". The server seed keys the MAC as its ASCII string; do NOT
// hex-decode it. Pure and deterministic: identical inputs always yield an
// identical block, and any single-byte change to an input flips the output
// unpredictably.
func DeriveBlock(serverSeed, clientSeed string, nonce uint64) [BlockSize]byte {
	h := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(h, "%s:%d", clientSeed, nonce)

	var block [BlockSize]byte
	copy(block[:], h.Sum(nil))
	return block
}
