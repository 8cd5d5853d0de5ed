package logindex

import (
	"testing"

	"github.com/forestrie/go-logindex/bintree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	s := newTestState(t)
	feed := newLogFeed(21)
	for n := uint64(0); n < 5; n++ {
		feed.addBlock(t, s, n, 2)
	}
	root, err := s.Root()
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, s.NextEntry(), snap.NextEntry)
	assert.Equal(t, s.ResidentNodes(), len(snap.Nodes))

	data, err := snap.Encode()
	require.NoError(t, err)
	again, err := snap.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)

	restored, err := Restore(testLogger(), decoded)
	require.NoError(t, err)
	assert.Equal(t, s.NextEntry(), restored.NextEntry())
	assert.Equal(t, snap, restored.Snapshot())

	restoredRoot, err := restored.Root()
	require.NoError(t, err)
	assert.Equal(t, root, restoredRoot)

	// both continue identically
	a, b := newLogFeed(99), newLogFeed(99)
	for n := uint64(5); n < 9; n++ {
		a.addBlock(t, s, n, 2)
		b.addBlock(t, restored, n, 2)
	}
	ra, err := s.Root()
	require.NoError(t, err)
	rb, err := restored.Root()
	require.NoError(t, err)
	assert.Equal(t, ra, rb)

	// the snapshot is unaffected by further appends
	assert.Equal(t, decoded, snap)
}

func TestRestoreInvalid(t *testing.T) {
	_, err := Restore(testLogger(), &Snapshot{Params: testParams()})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = DecodeSnapshot([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	p := testParams()
	p.MaxRowLength = nil
	s := newTestState(t)
	snap := s.Snapshot()
	snap.Params = p
	_, err = Restore(testLogger(), snap)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRestoreLeavesOptionsAlone(t *testing.T) {
	s := newTestState(t)
	feed := newLogFeed(22)
	feed.addBlock(t, s, 1, 1)

	opts := make([]Option, 1, 2)
	opts[0] = WithHasher(bintree.NewSHA256Hasher)
	restored, err := Restore(testLogger(), s.Snapshot(), opts...)
	require.NoError(t, err)
	assert.Nil(t, opts[:2][1])
	assert.Equal(t, s.NextEntry(), restored.NextEntry())
}
