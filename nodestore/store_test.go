package nodestore

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	logger.New("NOOP")
	return logger.Sugar.WithServiceName("nodestore")
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	log := testLogger()
	stores := map[string]Store{}
	for _, kind := range []string{KindMemory, KindLevelDB, KindPebble, KindBadger} {
		s, err := Open(log, kind, "")
		require.NoError(t, err, kind)
		t.Cleanup(func() { _ = s.Close() })
		stores[kind] = s
	}
	return stores
}

func TestStorePutGet(t *testing.T) {
	wide := gti.Vector(gti.Root, 12345, 200)
	tests := []struct {
		name  string
		index gti.Index
		value uint256.Int
	}{
		{"root", gti.Root, *uint256.NewInt(1)},
		{"zero value", gti.FromUint64(7), uint256.Int{}},
		{"wide index", wide, *uint256.NewInt(0).Lsh(uint256.NewInt(1), 255)},
		{"all bits", gti.FromUint64(1 << 40), *uint256.NewInt(0).Not(uint256.NewInt(0))},
	}
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					require.NoError(t, s.PutNode(tt.index, tt.value))
					got, err := s.GetNode(tt.index)
					require.NoError(t, err)
					assert.Equal(t, tt.value, got)
				})
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := s.GetNode(gti.FromUint64(99))
			assert.ErrorIs(t, err, bintree.ErrNodeNotFound)
		})
	}
}

func TestStoreBatch(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			s.StartBatch()
			for i := uint64(2); i < 10; i++ {
				require.NoError(t, s.PutNode(gti.FromUint64(i), *uint256.NewInt(i * 3)))
			}
			// pending writes are visible before the batch is written
			v, err := s.GetNode(gti.FromUint64(5))
			require.NoError(t, err)
			assert.Equal(t, uint64(15), v.Uint64())

			require.NoError(t, s.FinishBatch())
			for i := uint64(2); i < 10; i++ {
				v, err := s.GetNode(gti.FromUint64(i))
				require.NoError(t, err)
				assert.Equal(t, i*3, v.Uint64())
			}
			// finishing with no batch open is harmless
			assert.NoError(t, s.FinishBatch())
		})
	}
}

func TestStoreDiscardBatch(t *testing.T) {
	for kind, s := range openStores(t) {
		if kind == KindMemory {
			continue
		}
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.PutNode(gti.FromUint64(2), *uint256.NewInt(2)))
			s.StartBatch()
			require.NoError(t, s.PutNode(gti.FromUint64(3), *uint256.NewInt(3)))
			s.DiscardBatch()

			_, err := s.GetNode(gti.FromUint64(3))
			assert.ErrorIs(t, err, bintree.ErrNodeNotFound)
			require.NoError(t, s.FinishBatch())
			_, err = s.GetNode(gti.FromUint64(3))
			assert.ErrorIs(t, err, bintree.ErrNodeNotFound)

			v, err := s.GetNode(gti.FromUint64(2))
			require.NoError(t, err)
			assert.Equal(t, uint64(2), v.Uint64())

			// a new batch still works after a discard
			s.StartBatch()
			require.NoError(t, s.PutNode(gti.FromUint64(4), *uint256.NewInt(4)))
			require.NoError(t, s.FinishBatch())
			v, err = s.GetNode(gti.FromUint64(4))
			require.NoError(t, err)
			assert.Equal(t, uint64(4), v.Uint64())
		})
	}
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(testLogger(), "rocksdb", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLevelDBReopen(t *testing.T) {
	dir := t.TempDir()
	log := testLogger()

	s, err := NewLevelDBStore(log, dir)
	require.NoError(t, err)
	require.NoError(t, s.PutNode(gti.FromUint64(6), *uint256.NewInt(66)))
	require.NoError(t, s.Close())

	s, err = NewLevelDBStore(log, dir)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.GetNode(gti.FromUint64(6))
	require.NoError(t, err)
	assert.Equal(t, uint64(66), v.Uint64())
}

type countingReader struct {
	bintree.NodeReader
	reads int
}

func (r *countingReader) GetNode(index gti.Index) (uint256.Int, error) {
	r.reads++
	return r.NodeReader.GetNode(index)
}

func TestCachedReader(t *testing.T) {
	mem := NewMemoryStore()
	require.NoError(t, mem.PutNode(gti.FromUint64(4), *uint256.NewInt(44)))
	counter := &countingReader{NodeReader: mem}

	c, err := NewCachedReader(counter, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := c.GetNode(gti.FromUint64(4))
		require.NoError(t, err)
		assert.Equal(t, uint64(44), v.Uint64())
	}
	assert.Equal(t, 1, counter.reads)

	// misses are not cached
	_, err = c.GetNode(gti.FromUint64(8))
	assert.ErrorIs(t, err, bintree.ErrNodeNotFound)
	require.NoError(t, mem.PutNode(gti.FromUint64(8), *uint256.NewInt(88)))
	v, err := c.GetNode(gti.FromUint64(8))
	require.NoError(t, err)
	assert.Equal(t, uint64(88), v.Uint64())
	assert.Equal(t, 2, c.Len())
}
