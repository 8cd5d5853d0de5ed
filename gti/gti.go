// Package gti implements generalized tree index arithmetic.
//
// A generalized tree index addresses a node in an implicit complete binary
// tree. The root is 1 and the children of i are 2i and 2i+1. Read in binary,
// the index is a leading 1 followed by the path from the root, 0 for left and
// 1 for right:
//
//	          1
//	    10          11
//	 100  101    110  111
//
// Nested containers make indices grow well past 64 bits, so Index is backed by
// a 256 bit integer. The largest usable height is MaxHeight.
package gti

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MaxHeight is the height of the deepest addressable node. Children of nodes
// at this height do not fit in 256 bits.
const MaxHeight = 255

// Index is a generalized tree index. The zero value is not a valid index.
type Index uint256.Int

// Root is the generalized index of the tree root.
var Root = FromUint64(1)

func FromUint64(v uint64) Index {
	var u uint256.Int
	u.SetUint64(v)
	return Index(u)
}

// FromBytes32 decodes a big endian index, as produced by Bytes32
func FromBytes32(b []byte) Index {
	var u uint256.Int
	u.SetBytes32(b)
	return Index(u)
}

func (i Index) int() *uint256.Int {
	u := uint256.Int(i)
	return &u
}

// Int returns a copy of the index as a uint256
func (i Index) Int() *uint256.Int {
	return i.int()
}

func (i Index) Uint64() uint64 {
	return i.int().Uint64()
}

func (i Index) IsUint64() bool {
	return i.int().IsUint64()
}

func (i Index) IsZero() bool {
	return i.int().IsZero()
}

func (i Index) IsRoot() bool {
	return i == Root
}

func (i Index) Cmp(j Index) int {
	return i.int().Cmp(j.int())
}

// Bytes32 returns the big endian encoding of the index. Byte wise ordering of
// the encoding matches numeric ordering of the index.
func (i Index) Bytes32() [32]byte {
	return i.int().Bytes32()
}

func (i Index) String() string {
	return i.int().ToBig().Text(10)
}

// BigInt returns the index as a math/big integer.
func (i Index) BigInt() *big.Int {
	return i.int().ToBig()
}

// Height returns the depth of the index below the root. The root has height 0.
func (i Index) Height() uint {
	n := i.int().BitLen()
	if n == 0 {
		return 0
	}
	return uint(n - 1)
}

func (i Index) Parent() Index {
	return Index(*new(uint256.Int).Rsh(i.int(), 1))
}

func (i Index) Left() Index {
	return Index(*new(uint256.Int).Lsh(i.int(), 1))
}

func (i Index) Right() Index {
	l := new(uint256.Int).Lsh(i.int(), 1)
	return Index(*l.AddUint64(l, 1))
}

func (i Index) Sibling() Index {
	return Index(*new(uint256.Int).Xor(i.int(), uint256.NewInt(1)))
}

// IsRightChild reports whether the last step of the path is to the right.
// The root is not a child and reports false.
func (i Index) IsRightChild() bool {
	return !i.IsRoot() && i[0]&1 == 1
}

// Vector returns the index of item n of a vector of height h whose root is at
// root. The vector has 2^h slots.
func Vector(root Index, n uint64, height uint) Index {
	v := new(uint256.Int).Lsh(root.int(), height)
	return Index(*v.AddUint64(v, n))
}

// Merge resolves sub, an index relative to the subtree rooted at index, to an
// absolute index.
//
//	Merge(i, 1) == i
//	Merge(1, s) == s
//	Merge(2, 3) == 5
func Merge(index, sub Index) Index {
	v := new(uint256.Int).SubUint64(index.int(), 1)
	v.Lsh(v, sub.Height())
	return Index(*v.Add(v, sub.int()))
}

// SplitBelow returns the ancestor of index at the given height. If index is
// not below that height it is returned unchanged.
func SplitBelow(index Index, level uint) Index {
	h := index.Height()
	if h <= level {
		return index
	}
	return Index(*new(uint256.Int).Rsh(index.int(), h-level))
}

// SplitAbove returns the position of index relative to its ancestor at the
// given height. If index is not below that height the result is Root.
//
// For any a and b
//
//	SplitBelow(Merge(a, b), a.Height()) == a
//	SplitAbove(Merge(a, b), a.Height()) == b
func SplitAbove(index Index, level uint) Index {
	h := index.Height()
	if h <= level {
		return Root
	}
	base := new(uint256.Int).Lsh(uint256.NewInt(1), h-level)
	mask := new(uint256.Int).SubUint64(base, 1)
	mask.And(mask, index.int())
	return Index(*base.Or(base, mask))
}
