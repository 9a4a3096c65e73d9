package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// HashFunc maps a key to the 32-bit hash whose low bits route it through the
// directory.
type HashFunc func(key int64) uint32

// getHash uses the given hasher function to calculate the 32-bit hash of a key.
func getHash(hasher func(b []byte) uint64, key int64) uint32 {
	buf := make([]byte, binary.MaxVarintLen64)
	binary.PutVarint(buf, key)
	return uint32(hasher(buf))
}

// XxHasher returns the xxHash hash of the given key.
func XxHasher(key int64) uint32 {
	return getHash(xxhash.Sum64, key)
}

// MurmurHasher returns the MurmurHash3 hash of the given key.
func MurmurHasher(key int64) uint32 {
	return getHash(murmur3.Sum64, key)
}
