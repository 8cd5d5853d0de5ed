package bintree

import (
	"encoding/binary"
	"hash"

	"github.com/holiman/uint256"
	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// NewSHA256Hasher returns the default node hasher
func NewSHA256Hasher() hash.Hash {
	return sha256.New()
}

// NewBlake3Hasher returns a 32 byte blake3 node hasher. Roots produced with it
// are not compatible with the sha256 tree.
func NewBlake3Hasher() hash.Hash {
	return blake3.New()
}

// LE32 returns the 32 byte little endian encoding of v
func LE32(v *uint256.Int) [32]byte {
	var b [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(b[i*8:], v[i])
	}
	return b
}

// FromLE reads up to 32 little endian bytes. Short input is zero extended.
func FromLE(b []byte) uint256.Int {
	var buf [32]byte
	copy(buf[:], b)
	var v uint256.Int
	for i := 0; i < 4; i++ {
		v[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return v
}

// HashPair returns hash(le32(left) || le32(right)) read back little endian.
func HashPair(hasher hash.Hash, left, right *uint256.Int) uint256.Int {
	l := LE32(left)
	r := LE32(right)
	hasher.Reset()
	hasher.Write(l[:])
	hasher.Write(r[:])
	var sum [32]byte
	return FromLE(hasher.Sum(sum[:0]))
}
