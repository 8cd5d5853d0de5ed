package gti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeight(t *testing.T) {
	tests := []struct {
		name string
		i    Index
		want uint
	}{
		{"root", Root, 0},
		{"2", FromUint64(2), 1},
		{"3", FromUint64(3), 1},
		{"4", FromUint64(4), 2},
		{"7", FromUint64(7), 2},
		{"8", FromUint64(8), 3},
		{"2^100", Vector(Root, 0, 100), 100},
		{"2^255", Vector(Root, 0, MaxHeight), MaxHeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.i.Height())
		})
	}
}

func TestVector(t *testing.T) {
	type args struct {
		root   uint64
		n      uint64
		height uint
	}
	tests := []struct {
		name string
		args args
		want uint64
	}{
		{"height zero is the root", args{5, 0, 0}, 5},
		{"first item", args{2, 0, 3}, 16},
		{"sixth item", args{2, 5, 3}, 21},
		{"last item", args{3, 7, 3}, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Vector(FromUint64(tt.args.root), tt.args.n, tt.args.height)
			assert.Equal(t, FromUint64(tt.want), got)
		})
	}
}

func TestMergeAndSplit(t *testing.T) {
	//            1
	//      2           3
	//   4     5     6     7
	//  8 9  10 11 12 13 14 15
	//
	// 5 is 0b101, 6 relative to 5 is the path 0b1_10, so the merge is 0b101_10
	tests := []struct {
		name  string
		index uint64
		sub   uint64
		want  uint64
	}{
		{"sub root is identity", 5, 1, 5},
		{"root is transparent", 1, 6, 6},
		{"right child of left child", 2, 3, 5},
		{"left child of right child", 3, 2, 6},
		{"two levels below 5", 5, 6, 22},
		{"three levels below 7", 7, 15, 63},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FromUint64(tt.index)
			b := FromUint64(tt.sub)
			got := Merge(a, b)
			require.Equal(t, FromUint64(tt.want), got)

			assert.Equal(t, a, SplitBelow(got, a.Height()))
			assert.Equal(t, b, SplitAbove(got, a.Height()))
		})
	}
}

func TestSplitAtOrBelowHeight(t *testing.T) {
	i := FromUint64(5)
	assert.Equal(t, i, SplitBelow(i, 2))
	assert.Equal(t, i, SplitBelow(i, 7))
	assert.Equal(t, Root, SplitAbove(i, 2))
	assert.Equal(t, Root, SplitAbove(i, 9))
	assert.Equal(t, FromUint64(2), SplitBelow(i, 1))
	assert.Equal(t, FromUint64(3), SplitAbove(i, 1))
}

func TestMergeWide(t *testing.T) {
	// 150 + 90 levels does not fit any native integer
	a := Vector(FromUint64(3), 12345, 150)
	b := Vector(FromUint64(2), 678, 90)
	m := Merge(a, b)

	assert.Equal(t, uint(151), a.Height())
	assert.Equal(t, uint(91), b.Height())
	assert.Equal(t, uint(242), m.Height())
	assert.Equal(t, a, SplitBelow(m, a.Height()))
	assert.Equal(t, b, SplitAbove(m, a.Height()))
	assert.False(t, m.IsUint64())
}

func TestRelatives(t *testing.T) {
	i := FromUint64(5)
	assert.Equal(t, FromUint64(2), i.Parent())
	assert.Equal(t, FromUint64(10), i.Left())
	assert.Equal(t, FromUint64(11), i.Right())
	assert.Equal(t, FromUint64(4), i.Sibling())
	assert.Equal(t, i, i.Sibling().Sibling())
	assert.True(t, i.IsRightChild())
	assert.False(t, i.Sibling().IsRightChild())
	assert.False(t, Root.IsRightChild())
	assert.True(t, Root.IsRoot())
	assert.False(t, i.IsRoot())
}

func TestBytes32(t *testing.T) {
	i := Merge(Vector(FromUint64(2), 99, 120), FromUint64(13))
	b := i.Bytes32()
	assert.Equal(t, i, FromBytes32(b[:]))

	lo := FromUint64(0xff).Bytes32()
	hi := FromUint64(0x100).Bytes32()
	assert.Equal(t, -1, FromUint64(0xff).Cmp(FromUint64(0x100)))
	assert.Less(t, string(lo[:]), string(hi[:]))
}

func TestString(t *testing.T) {
	assert.Equal(t, "1", Root.String())
	assert.Equal(t, "1267650600228229401496703205376", Vector(Root, 0, 100).String())
}
