package logindex

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
	"github.com/minio/sha256-simd"
)

// The values added to the filter maps. Delimiter hashes carry a one byte
// suffix so they can never collide with an address or topic value.

func AddressValue(address common.Address) common.Hash {
	return sha256.Sum256(address[:])
}

func TopicValue(topic common.Hash) common.Hash {
	return sha256.Sum256(topic[:])
}

func TxValue(txHash common.Hash) common.Hash {
	var b [common.HashLength + 1]byte
	copy(b[:], txHash[:])
	b[common.HashLength] = 0x01
	return sha256.Sum256(b[:])
}

func BlockValue(blockHash common.Hash) common.Hash {
	var b [common.HashLength + 1]byte
	copy(b[:], blockHash[:])
	b[common.HashLength] = 0x02
	return sha256.Sum256(b[:])
}

// RowIndex returns the row a value is mapped to on the given map and mapping
// layer. All maps in a block of 2^Log2MappingFrequency[layer] consecutive maps
// share the same assignment. The masked map index is hashed as 32 bits,
// MaxEntries keeps the map index below 2^MaxLog2Maps.
func (p Params) RowIndex(mapIndex uint64, layer uint, value common.Hash) uint64 {
	freq := uint64(1) << p.mappingFrequency(layer)
	masked := mapIndex - mapIndex%freq

	var b [common.HashLength + 8]byte
	copy(b[:], value[:])
	binary.LittleEndian.PutUint32(b[common.HashLength:], uint32(masked))
	binary.LittleEndian.PutUint32(b[common.HashLength+4:], uint32(layer))
	h := sha256.Sum256(b[:])
	return uint64(binary.LittleEndian.Uint32(h[:4])) % p.MapHeight()
}

// ColumnIndex returns the column a value is mapped to at the given entry
// position. The upper Log2ValuesPerMap bits are the position within the map,
// the remaining bits are taken from the value hash.
func (p Params) ColumnIndex(entry uint64, value common.Hash) uint32 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], entry)
	hasher := fnv.New64a()
	hasher.Write(b[:])
	hasher.Write(value[:])
	h := hasher.Sum64()
	folded := uint32(h>>32) ^ uint32(h)

	hashBits := p.Log2MapWidth - p.Log2ValuesPerMap
	pos := uint32(entry % p.ValuesPerMap())
	if hashBits == 0 {
		return pos
	}
	return pos<<hashBits + folded>>(32-hashBits)
}

// findRow searches the mapping layers for the first row of the map with room
// for another column. It only reads the tree.
func (s *State) findRow(mapIndex uint64, value common.Hash) (uint64, uint64, error) {
	for layer := uint(0); layer < s.params.MaxMappingLayers; layer++ {
		row := s.params.RowIndex(mapIndex, layer, value)
		length, err := s.rowLength(mapIndex, row)
		if err != nil {
			return 0, 0, err
		}
		if length < s.params.RowCapacity(layer) {
			return row, length, nil
		}
	}
	return 0, 0, fmt.Errorf(
		"%w: map %d, %d layers", ErrRowCapacityExhausted, mapIndex, s.params.MaxMappingLayers)
}

func (s *State) rowLength(mapIndex, row uint64) (uint64, error) {
	node := listCountGTI(s.params.MapRowGTI(mapIndex, row))
	if err := s.reopen(node); err != nil {
		return 0, err
	}
	count, err := s.tree.Get(node)
	if err != nil {
		return 0, err
	}
	return count.Uint64(), nil
}

// addToFilterMaps appends the column for value, at the current entry, to the
// first row with room on the current map.
func (s *State) addToFilterMaps(value common.Hash) error {
	mapIndex := s.nextEntry >> s.params.Log2ValuesPerMap
	row, length, err := s.findRow(mapIndex, value)
	if err != nil {
		return err
	}

	rowRoot := s.params.MapRowGTI(mapIndex, row)
	chunkNode := s.params.ProgListChunkGTI(rowRoot, length/ColumnsPerChunk)
	sub := length % ColumnsPerChunk

	var chunk uint256.Int
	if sub > 0 {
		if err = s.reopen(chunkNode); err != nil {
			return err
		}
		if chunk, err = s.tree.Get(chunkNode); err != nil {
			return err
		}
	}
	column := uint256.NewInt(uint64(s.params.ColumnIndex(s.nextEntry, value)))
	chunk.Add(&chunk, column.Lsh(column, uint(32*sub)))
	if err = s.tree.Set(chunkNode, chunk); err != nil {
		return err
	}
	return s.tree.Set(listCountGTI(rowRoot), *uint256.NewInt(length + 1))
}

// reopen brings back a node of the current map after the map was collapsed
// early, see CollapseMap.
func (s *State) reopen(index gti.Index) error {
	if s.early == nil {
		return nil
	}
	return s.tree.Reopen(index)
}
