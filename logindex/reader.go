package logindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

// node reads from the resident tree, then from the nodes kept for the current
// map, then from the node reader. A node found in none of them lies in a
// region that was never written and holds its default.
func (s *State) node(index gti.Index) (uint256.Int, error) {
	v, err := s.tree.Get(index)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, bintree.ErrNodeUnavailable) {
		return uint256.Int{}, err
	}
	if v, ok := s.early[index]; ok {
		return v, nil
	}
	if s.nodes == nil {
		return uint256.Int{}, err
	}
	v, err = s.nodes.GetNode(index)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, bintree.ErrNodeNotFound) {
		return uint256.Int{}, err
	}
	return s.empty.EmptyNode(index)
}

func (s *State) checkMap(mapIndex uint64) error {
	if s.nextEntry == 0 || mapIndex > (s.nextEntry-1)>>s.params.Log2ValuesPerMap {
		return fmt.Errorf("%w: map %d", ErrEntryNotAdded, mapIndex)
	}
	return nil
}

func (s *State) checkEntry(entry uint64) error {
	if entry >= s.nextEntry {
		return fmt.Errorf("%w: %d >= %d", ErrEntryNotAdded, entry, s.nextEntry)
	}
	return nil
}

// RowLength returns the number of columns in a filter map row
func (s *State) RowLength(mapIndex, row uint64) (uint64, error) {
	if err := s.checkMap(mapIndex); err != nil {
		return 0, err
	}
	v, err := s.node(listCountGTI(s.params.MapRowGTI(mapIndex, row)))
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// RowColumns returns the columns of a filter map row in the order they were
// added
func (s *State) RowColumns(mapIndex, row uint64) ([]uint32, error) {
	length, err := s.RowLength(mapIndex, row)
	if err != nil {
		return nil, err
	}
	root := s.params.MapRowGTI(mapIndex, row)
	columns := make([]uint32, 0, length)
	var chunk uint256.Int
	for i := uint64(0); i < length; i++ {
		if i%ColumnsPerChunk == 0 {
			if chunk, err = s.node(s.params.ProgListChunkGTI(root, i/ColumnsPerChunk)); err != nil {
				return nil, err
			}
		}
		shift := 32 * (i % ColumnsPerChunk)
		columns = append(columns, uint32(chunk[shift/64]>>(shift%64)))
	}
	return columns, nil
}

// EntryMeta returns the four meta fields of an entry. Once an entry has been
// collapsed it is read through the node reader, where padding entries read as
// all zero. Without a node reader a collapsed entry fails with
// bintree.ErrNodeUnavailable.
func (s *State) EntryMeta(entry uint64) ([4]uint256.Int, error) {
	var meta [4]uint256.Int
	if err := s.checkEntry(entry); err != nil {
		return meta, err
	}
	for i, field := range metaFields() {
		v, err := s.node(s.params.entryMetaGTI(entry, field))
		if err != nil {
			return meta, err
		}
		meta[i] = v
	}
	return meta, nil
}

// LogEntry recovers the log stored at an entry, along with its position
// fields from the entry meta.
func (s *State) LogEntry(entry uint64) (*types.Log, error) {
	if err := s.checkEntry(entry); err != nil {
		return nil, err
	}
	logEntry := s.params.logEntryGTI(entry)
	root, err := s.node(logEntry)
	if err != nil {
		return nil, err
	}
	if root.IsZero() {
		return nil, fmt.Errorf("%w: %d", ErrNotLogEntry, entry)
	}

	meta, err := s.EntryMeta(entry)
	if err != nil {
		return nil, err
	}
	l := &types.Log{
		BlockNumber: meta[0].Uint64(),
		TxHash:      valueHash(&meta[1]),
		TxIndex:     uint(meta[2].Uint64()),
	}

	address, err := s.node(gti.Merge(logEntry, GTILogAddress))
	if err != nil {
		return nil, err
	}
	le := bintree.LE32(&address)
	copy(l.Address[:], le[:common.AddressLength])

	topics := gti.Merge(logEntry, GTILogTopics)
	count, err := s.node(listCountGTI(topics))
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < count.Uint64() && i < MaxTopics; i++ {
		v, err := s.node(topicGTI(logEntry, i))
		if err != nil {
			return nil, err
		}
		l.Topics = append(l.Topics, valueHash(&v))
	}

	data := gti.Merge(logEntry, GTILogData)
	count, err = s.node(listCountGTI(data))
	if err != nil {
		return nil, err
	}
	size := count.Uint64()
	l.Data = make([]byte, 0, size)
	for i := uint64(0); uint64(len(l.Data)) < size; i++ {
		v, err := s.node(s.params.ProgListChunkGTI(data, i))
		if err != nil {
			return nil, err
		}
		chunk := bintree.LE32(&v)
		l.Data = append(l.Data, chunk[:min(DataChunkSize, size-uint64(len(l.Data)))]...)
	}
	return l, nil
}

// PotentialMatches returns the entries of a map whose column matches value.
// Every entry value was added for is returned, along with the occasional
// false positive. Rows are searched layer by layer until a row is found that
// was not full, as the value can not have been pushed to a deeper layer.
func (s *State) PotentialMatches(mapIndex uint64, value common.Hash) ([]uint64, error) {
	if err := s.checkMap(mapIndex); err != nil {
		return nil, err
	}
	hashBits := s.params.Log2MapWidth - s.params.Log2ValuesPerMap
	first := mapIndex << s.params.Log2ValuesPerMap

	seen := map[uint64]struct{}{}
	for layer := uint(0); layer < s.params.MaxMappingLayers; layer++ {
		row := s.params.RowIndex(mapIndex, layer, value)
		columns, err := s.RowColumns(mapIndex, row)
		if err != nil {
			return nil, err
		}
		for _, c := range columns {
			entry := first + uint64(c>>hashBits)
			if s.params.ColumnIndex(entry, value) == c {
				seen[entry] = struct{}{}
			}
		}
		if uint64(len(columns)) < s.params.RowCapacity(layer) {
			break
		}
	}

	matches := make([]uint64, 0, len(seen))
	for entry := range seen {
		matches = append(matches, entry)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
	return matches, nil
}

func valueHash(v *uint256.Int) common.Hash {
	return bintree.LE32(v)
}
