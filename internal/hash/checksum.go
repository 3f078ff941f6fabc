// Package hash provides the integrity checksum embedded in saved
// projects: every buffer snapshot carries the hash of its bytes, and
// load refuses a snapshot whose bytes no longer match.
package hash

import "github.com/cespare/xxhash/v2"

// Checksum returns the 64-bit integrity hash of a buffer's bytes.
// xxHash64 is not cryptographic; the checksum catches corruption and
// truncation between save and load, not tampering.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
