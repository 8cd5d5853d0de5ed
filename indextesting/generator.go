// Package indextesting provides test fixtures for log index consumers: a
// reproducible generator of blocks and logs, small index parameters, and a
// context for tests against the blob store emulator.
package indextesting

import (
	"math/rand"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/forestrie/go-logindex/logindex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// SmallParams keeps maps to 16 entries on 4 rows, so a test can cover several
// maps and epochs in a few hundred entries
func SmallParams() logindex.Params {
	p := logindex.DefaultParams()
	p.Log2EpochHistory = 4
	p.Log2MapsPerEpoch = 2
	p.Log2ValuesPerMap = 4
	p.Log2MapWidth = 8
	p.Log2MapHeight = 2
	p.Log2MappingFrequency = []uint{2, 1, 0}
	p.MaxRowLength = []uint64{2, 4, 8}
	return p
}

// NewTestState returns an empty index with SmallParams
func NewTestState(t *testing.T, log logger.Logger, opts ...logindex.Option) *logindex.State {
	t.Helper()
	opts = append([]logindex.Option{logindex.WithParams(SmallParams())}, opts...)
	s, err := logindex.NewState(log, opts...)
	require.NoError(t, err)
	return s
}

// TestGenerator produces the same blocks for the same seed. Addresses and
// topics come from small pools so that rows fill up.
type TestGenerator struct {
	T         *testing.T
	rng       *rand.Rand
	addresses []common.Address
	topics    []common.Hash
}

func NewTestGenerator(t *testing.T, seed int64) *TestGenerator {
	g := &TestGenerator{T: t, rng: rand.New(rand.NewSource(seed))}
	for i := 0; i < 5; i++ {
		var a common.Address
		g.rng.Read(a[:])
		g.addresses = append(g.addresses, a)
	}
	for i := 0; i < 7; i++ {
		g.topics = append(g.topics, g.NewHash())
	}
	return g
}

func (g *TestGenerator) NewHash() common.Hash {
	var h common.Hash
	g.rng.Read(h[:])
	return h
}

// NewRandomUUIDString returns a uuid drawn from the generator
func (g *TestGenerator) NewRandomUUIDString() string {
	u, err := uuid.NewRandomFromReader(g.rng)
	require.NoError(g.T, err)
	return u.String()
}

func (g *TestGenerator) NewLog() *types.Log {
	l := &types.Log{
		Address: g.addresses[g.rng.Intn(len(g.addresses))],
		Data:    make([]byte, g.rng.Intn(80)),
	}
	for i := g.rng.Intn(logindex.MaxTopics + 1); i > 0; i-- {
		l.Topics = append(l.Topics, g.topics[g.rng.Intn(len(g.topics))])
	}
	g.rng.Read(l.Data)
	return l
}

// AddBlock adds a block of txs transactions, with up to 3 logs each
func (g *TestGenerator) AddBlock(s *logindex.State, number uint64, txs int) {
	g.T.Helper()
	require.NoError(g.T, s.AddBlockEntry(number, g.NewHash(), 1700000000+number))
	for tx := 0; tx < txs; tx++ {
		txHash := g.NewHash()
		logs := make([]*types.Log, g.rng.Intn(4))
		for i := range logs {
			logs[i] = g.NewLog()
		}
		require.NoError(g.T, s.AddLogEntries(number, txHash, uint64(tx), logs))
		require.NoError(g.T, s.AddTxEntry(number, txHash, g.NewHash(), uint64(tx)))
	}
}

// AddBlocks adds blocks until the index holds at least entries entries
func (g *TestGenerator) AddBlocks(s *logindex.State, entries uint64) {
	g.T.Helper()
	for n := uint64(0); s.NextEntry() < entries; n++ {
		g.AddBlock(s, n, 3)
	}
}
