// Package entropy provides unbiased randomness for tie-breaking in the
// deterministic planners (opponent selection, auto-plot picks).
package entropy

import (
	"crypto/rand"
	"encoding/binary"
)

// Float returns a random float64 in [0, 1) using crypto/rand.
func Float() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// Should never happen; 0.5 is a safe neutral default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// IntN returns a random int in [0, n). n must be positive.
func IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return int(Float() * float64(n))
}
