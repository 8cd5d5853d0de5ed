package logindex

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

// State is an append only log index. Entries are added strictly in order,
// each block contributing a block delimiter followed, per transaction, by its
// log entries and a transaction delimiter. Finished entries and filter maps
// are collapsed as the index advances, so only the frontier of the tree stays
// resident.
//
// State is not safe for concurrent use. Readers that need a stable view while
// the index is appended should work from a Snapshot.
type State struct {
	log       logger.Logger
	params    Params
	empty     *emptyNodes
	tree      *bintree.Tree
	nextEntry uint64

	nodes   bintree.NodeReader
	sink    bintree.CollapseSink
	metrics *Metrics

	// early holds the nodes discarded by collapsing the map still being
	// written, so that later entries on that map can reopen its rows.
	early   map[gti.Index]uint256.Int
	capture bool
}

func NewState(log logger.Logger, opts ...Option) (*State, error) {
	o := NewOptions(opts...)
	if err := o.Params.Validate(); err != nil {
		return nil, err
	}
	s := &State{
		log:     log,
		params:  o.Params,
		nodes:   o.Nodes,
		sink:    o.Sink,
		metrics: o.Metrics,
	}
	s.empty = newEmptyNodes(o.Params, o.NewHasher())

	var err error
	s.tree, err = bintree.New(
		o.NewHasher(), s.empty.EmptyNode,
		bintree.WithCollapseSink(stateSink{s}), bintree.WithNodeReader(stateReader{s}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) Params() Params {
	return s.params.clone()
}

// NextEntry is the position the next index entry will be written at, and
// the number of entries, padding included, added so far.
func (s *State) NextEntry() uint64 {
	return s.nextEntry
}

// ResidentNodes is the number of tree nodes currently held in memory
func (s *State) ResidentNodes() int {
	return s.tree.Len()
}

// Root returns the commitment to the whole index
func (s *State) Root() (common.Hash, error) {
	v, err := s.tree.Get(gti.Root)
	if err != nil {
		return common.Hash{}, err
	}
	return bintree.LE32(&v), nil
}

// EmptyRoot returns the root of an index with no entries
func (s *State) EmptyRoot() common.Hash {
	return bintree.LE32(&s.empty.root)
}

// Classify returns the tree region holding index
func (s *State) Classify(index gti.Index) (Region, error) {
	return s.empty.Classify(index)
}

// AddBlockEntry adds the delimiter marking the start of a block
func (s *State) AddBlockEntry(number uint64, blockHash common.Hash, timestamp uint64) error {
	return s.addDelimiter(BlockValue(blockHash), [4]uint256.Int{
		*uint256.NewInt(number),
		hashValue(blockHash),
		*uint256.NewInt(timestamp),
		{},
	})
}

// AddBlockHeader adds the block delimiter for header. The block hash is the
// header hash.
func (s *State) AddBlockHeader(header *types.Header) error {
	if header == nil || header.Number == nil {
		return ErrInvalidHeader
	}
	return s.AddBlockEntry(header.Number.Uint64(), header.Hash(), header.Time)
}

// AddTxEntry adds the delimiter marking the end of a transaction's logs
func (s *State) AddTxEntry(blockNumber uint64, txHash, receiptHash common.Hash, txIndex uint64) error {
	return s.addDelimiter(TxValue(txHash), [4]uint256.Int{
		*uint256.NewInt(blockNumber),
		hashValue(txHash),
		*uint256.NewInt(txIndex),
		hashValue(receiptHash),
	})
}

func (s *State) addDelimiter(value common.Hash, meta [4]uint256.Int) error {
	if err := s.prepareIndex(1); err != nil {
		return err
	}
	if err := s.addToFilterMaps(value); err != nil {
		return err
	}
	if err := s.addEntryMeta(meta); err != nil {
		return err
	}
	return s.advanceIndex(1)
}

// AddLogEntries adds the logs of one transaction. Each log takes one entry
// for its address, carrying the log itself, and one more per topic. The
// entries of a single log never span two maps.
func (s *State) AddLogEntries(blockNumber uint64, txHash common.Hash, txIndex uint64, logs []*types.Log) error {
	for i, l := range logs {
		if len(l.Topics) > MaxTopics {
			return fmt.Errorf("%w: log %d has %d", ErrTooManyTopics, i, len(l.Topics))
		}
	}
	meta := [4]uint256.Int{
		*uint256.NewInt(blockNumber),
		hashValue(txHash),
		*uint256.NewInt(txIndex),
		{},
	}
	for _, l := range logs {
		if err := s.prepareIndex(uint64(len(l.Topics) + 1)); err != nil {
			return err
		}
		if err := s.addToFilterMaps(AddressValue(l.Address)); err != nil {
			return err
		}
		if err := s.addLogEntry(l); err != nil {
			return err
		}
		if err := s.addEntryMeta(meta); err != nil {
			return err
		}
		if err := s.advanceIndex(1); err != nil {
			return err
		}
		for _, topic := range l.Topics {
			if err := s.addToFilterMaps(TopicValue(topic)); err != nil {
				return err
			}
			if err := s.advanceIndex(1); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepareIndex makes room for count entries on one map, padding out the
// current map if it is too full, and primes the rows of a map about to
// receive its first entry.
func (s *State) prepareIndex(count uint64) error {
	perMap := s.params.ValuesPerMap()
	if count > perMap {
		return fmt.Errorf("%w: %d > %d", ErrEntryTooLarge, count, perMap)
	}
	remaining := perMap - s.nextEntry%perMap
	need := count
	if remaining < count {
		need += remaining
	}
	if limit := s.params.MaxEntries(); limit != 0 && s.nextEntry+need > limit {
		return fmt.Errorf("%w: %d entries", ErrIndexFull, limit)
	}
	if remaining < count {
		if err := s.advanceIndex(remaining); err != nil {
			return err
		}
		s.metrics.padding(remaining)
		remaining = perMap
	}
	if remaining != perMap {
		return nil
	}

	mapIndex := s.nextEntry >> s.params.Log2ValuesPerMap
	for row := uint64(0); row < s.params.MapHeight(); row++ {
		if err := s.tree.Expand(listCountGTI(s.params.MapRowGTI(mapIndex, row))); err != nil {
			return err
		}
	}
	s.log.Debugf("map %d started at entry %d", mapIndex, s.nextEntry)
	return nil
}

// advanceIndex moves past count entries, collapsing each as it is passed.
// Entering it at a map boundary means the previous map is complete.
func (s *State) advanceIndex(count uint64) error {
	perMap := s.params.ValuesPerMap()
	if s.nextEntry > 0 && s.nextEntry%perMap == 0 {
		if err := s.CollapseMap(s.nextEntry/perMap - 1); err != nil {
			return err
		}
		s.early = nil
	}
	for i := uint64(0); i < count; i++ {
		if err := s.CollapseSubtree(s.params.IndexEntryGTI(s.nextEntry)); err != nil {
			return err
		}
		s.nextEntry++
	}
	if err := s.tree.Set(GTINextEntry, *uint256.NewInt(s.nextEntry)); err != nil {
		return err
	}
	s.metrics.advanced(count, s.tree.Len())
	return nil
}

// CollapseSubtree collapses the largest subtree whose right most path ends at
// index. Collapsing each entry as it completes, in order, collapses every
// ancestor exactly when its right child completes.
func (s *State) CollapseSubtree(index gti.Index) error {
	for index.IsRightChild() {
		index = index.Parent()
	}
	s.metrics.collapsed()
	return s.tree.Collapse(index)
}

// CollapseMap collapses every row of a map. The map is normally complete,
// but the map still being written may be collapsed too. Its rows are then
// reopened as later entries land on them.
func (s *State) CollapseMap(mapIndex uint64) error {
	complete := (mapIndex+1)<<s.params.Log2ValuesPerMap <= s.nextEntry
	if !complete {
		if s.early == nil {
			s.early = map[gti.Index]uint256.Int{}
		}
		s.capture = true
		defer func() { s.capture = false }()
	}
	for row := uint64(0); row < s.params.MapHeight(); row++ {
		if err := s.CollapseSubtree(s.params.MapRowGTI(mapIndex, row)); err != nil {
			return err
		}
	}
	if complete {
		s.metrics.mapCompleted()
	}
	s.log.Debugf("map %d collapsed, %d resident nodes", mapIndex, s.tree.Len())
	return nil
}

// stateSink keeps the nodes discarded while the current map is collapsed,
// and passes every discarded node on to the configured sink.
type stateSink struct {
	s *State
}

func (ss stateSink) PutNode(index gti.Index, value uint256.Int) error {
	if ss.s.capture {
		ss.s.early[index] = value
	}
	if ss.s.sink == nil {
		return nil
	}
	return ss.s.sink.PutNode(index, value)
}

// stateReader serves reopened nodes from the current map first, then from
// the configured node reader.
type stateReader struct {
	s *State
}

func (sr stateReader) GetNode(index gti.Index) (uint256.Int, error) {
	if v, ok := sr.s.early[index]; ok {
		return v, nil
	}
	if sr.s.nodes == nil {
		return uint256.Int{}, fmt.Errorf("%w: %s", bintree.ErrNodeNotFound, index)
	}
	return sr.s.nodes.GetNode(index)
}

// hashValue loads a hash as a node value, little endian, so that the hash
// bytes appear unchanged in the parent preimage
func hashValue(h common.Hash) uint256.Int {
	return bintree.FromLE(h[:])
}
