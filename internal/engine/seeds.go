package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	serverSeedBytes = 32
	clientSeedBytes = 16
)

// ErrEntropyUnavailable is returned when the secure random source cannot be
// read. Seed generation never falls back to a weaker source.
var ErrEntropyUnavailable = errors.New("entropy source unavailable")

// GenerateServerSeed draws 32 bytes from the entropy source and returns them
// hex-encoded. The returned seed is the house secret for one session; only its
// hash may be published while the session is live.
func GenerateServerSeed(entropy io.Reader) (string, error) {
	return randomHex(entropy, serverSeedBytes)
}

// NewClientSeed draws 16 bytes from the entropy source for callers that must
// substitute a missing player-supplied seed.
func NewClientSeed(entropy io.Reader) (string, error) {
	return randomHex(entropy, clientSeedBytes)
}

func randomHex(entropy io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSeed returns the hex SHA-256 commitment of a seed. The commitment is
// shown to the player before any bet under the seed is resolved; revealing the
// seed later lets anyone recompute the hash and confirm it matches.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
