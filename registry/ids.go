package registry

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// maxIDAttempts bounds retries when rolling a random id that must not
// collide with an existing one.
const maxIDAttempts = 64

// randomHex returns a lowercase/uppercase-configurable random hex string
// of the given byte width, read from crypto/rand.
func randomHex(bytes int, upper bool) (string, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), uint(bytes*8)))
	if err != nil {
		return "", err
	}
	format := fmt.Sprintf("%%0%dx", bytes*2)
	if upper {
		format = fmt.Sprintf("%%0%dX", bytes*2)
	}
	return fmt.Sprintf(format, n), nil
}

// randomGameSuffix returns an 8-lowercase-hex-character string for a
// game_<8hex> id, per spec.md section 4.4.
func randomGameSuffix() (string, error) {
	return randomHex(4, false)
}

// randomClientID returns a 16-uppercase-hex-character client id, per
// spec.md section 3.
func randomClientID() (string, error) {
	return randomHex(8, true)
}
