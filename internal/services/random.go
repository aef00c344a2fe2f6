package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// newSeededRand returns a generator seeded from crypto/rand. Each exam gets
// its own generator, so nothing random is shared between requests.
func newSeededRand() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		now := uint64(time.Now().UnixNano())
		return rand.New(rand.NewPCG(now, now>>1))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}
