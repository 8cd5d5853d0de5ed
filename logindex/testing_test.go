package logindex

import (
	"math/rand"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// testParams are small enough for a few hundred entries to span several maps
// and epochs: 16 entries per map, 4 maps per epoch and 4 rows per map.
func testParams() Params {
	return Params{
		Log2EpochHistory:     4,
		Log2MapsPerEpoch:     2,
		Log2ValuesPerMap:     4,
		Log2MapWidth:         8,
		Log2MapHeight:        2,
		Log2MappingFrequency: []uint{2, 1, 0},
		MaxRowLength:         []uint64{2, 4, 8},
		ProgListHeightFirst:  0,
		ProgListHeightStep:   2,
		MaxMappingLayers:     DefaultMaxMappingLayers,
	}
}

func testLogger() logger.Logger {
	logger.New("NOOP")
	return logger.Sugar.WithServiceName("logindex")
}

func newTestState(t *testing.T, opts ...Option) *State {
	t.Helper()
	opts = append([]Option{WithParams(testParams())}, opts...)
	s, err := NewState(testLogger(), opts...)
	require.NoError(t, err)
	return s
}

func randomHash(rng *rand.Rand) common.Hash {
	var h common.Hash
	rng.Read(h[:])
	return h
}

// logFeed produces reproducible blocks of logs. Addresses and topics are drawn
// from small pools, so that popular values fill their rows and spill to
// deeper mapping layers.
type logFeed struct {
	rng       *rand.Rand
	addresses []common.Address
	topics    []common.Hash
}

func newLogFeed(seed int64) *logFeed {
	f := &logFeed{rng: rand.New(rand.NewSource(seed))}
	for i := 0; i < 5; i++ {
		var a common.Address
		f.rng.Read(a[:])
		f.addresses = append(f.addresses, a)
	}
	for i := 0; i < 7; i++ {
		f.topics = append(f.topics, randomHash(f.rng))
	}
	return f
}

func (f *logFeed) log() *types.Log {
	l := &types.Log{
		Address: f.addresses[f.rng.Intn(len(f.addresses))],
		Data:    make([]byte, f.rng.Intn(80)),
	}
	for i := f.rng.Intn(MaxTopics + 1); i > 0; i-- {
		l.Topics = append(l.Topics, f.topics[f.rng.Intn(len(f.topics))])
	}
	f.rng.Read(l.Data)
	return l
}

// addedValue records a value added to the filter maps and the entry it was
// added at
type addedValue struct {
	entry uint64
	value common.Hash
}

// addBlock appends a block of txs transactions, each with up to 3 logs, and
// returns every filter map value added along with its entry.
func (f *logFeed) addBlock(t *testing.T, s *State, number uint64, txs int) []addedValue {
	t.Helper()
	var added []addedValue

	blockHash := randomHash(f.rng)
	require.NoError(t, s.AddBlockEntry(number, blockHash, 1700000000+number))
	added = append(added, addedValue{s.NextEntry() - 1, BlockValue(blockHash)})

	for tx := 0; tx < txs; tx++ {
		txHash := randomHash(f.rng)
		for n := f.rng.Intn(4); n > 0; n-- {
			l := f.log()
			require.NoError(t, s.AddLogEntries(number, txHash, uint64(tx), []*types.Log{l}))
			first := s.NextEntry() - uint64(len(l.Topics)) - 1
			added = append(added, addedValue{first, AddressValue(l.Address)})
			for i, topic := range l.Topics {
				added = append(added, addedValue{first + 1 + uint64(i), TopicValue(topic)})
			}
		}
		require.NoError(t, s.AddTxEntry(number, txHash, randomHash(f.rng), uint64(tx)))
		added = append(added, addedValue{s.NextEntry() - 1, TxValue(txHash)})
	}
	return added
}
