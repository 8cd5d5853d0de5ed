package logindex

import (
	"fmt"
)

const (
	// MaxTopics is the capacity of the fixed topics vector in a log entry
	MaxTopics = 4

	// ColumnsPerChunk is the number of 32 bit column values packed in each
	// 256 bit row list chunk
	ColumnsPerChunk = 8
	// DataChunkSize is the number of log data bytes held by each data list
	// chunk
	DataChunkSize = 32

	DefaultMaxMappingLayers = 64

	// MaxLog2Maps bounds the number of maps, see MaxEntries
	MaxLog2Maps = 32
)

// Params holds the log index tree dimensions. Every dimension apart from the
// mapping frequency and row length tables is a base 2 logarithm.
//
// The zero value is not usable, start from DefaultParams.
type Params struct {
	Log2EpochHistory uint `cbor:"1,keyasint"`
	Log2MapsPerEpoch uint `cbor:"2,keyasint"`
	Log2ValuesPerMap uint `cbor:"3,keyasint"`
	Log2MapWidth     uint `cbor:"4,keyasint"`
	Log2MapHeight    uint `cbor:"5,keyasint"`

	// Log2MappingFrequency[l] is the number of consecutive maps that share the
	// row assignment of mapping layer l. The last entry applies to every
	// deeper layer.
	Log2MappingFrequency []uint `cbor:"6,keyasint"`
	// MaxRowLength[l] is the number of columns a row may hold when it is
	// selected on layer l. The last entry applies to every deeper layer.
	MaxRowLength []uint64 `cbor:"7,keyasint"`

	ProgListHeightFirst uint `cbor:"8,keyasint"`
	ProgListHeightStep  uint `cbor:"9,keyasint"`

	// MaxMappingLayers bounds the layer search for a row with room left
	MaxMappingLayers uint `cbor:"10,keyasint"`
}

// DefaultParams returns the mainnet dimensions: 2^24 epochs of 2^10 maps, each
// map covering 2^16 entries on 2^16 rows.
func DefaultParams() Params {
	return Params{
		Log2EpochHistory:     24,
		Log2MapsPerEpoch:     10,
		Log2ValuesPerMap:     16,
		Log2MapWidth:         24,
		Log2MapHeight:        16,
		Log2MappingFrequency: []uint{10, 6, 2, 0},
		MaxRowLength:         []uint64{8, 168, 2728, 10920},
		ProgListHeightFirst:  0,
		ProgListHeightStep:   2,
		MaxMappingLayers:     DefaultMaxMappingLayers,
	}
}

// Validate checks the dimensions are internally consistent and leave the
// deepest nodes of the tree addressable.
func (p Params) Validate() error {
	if len(p.Log2MappingFrequency) == 0 || len(p.MaxRowLength) == 0 {
		return fmt.Errorf("%w: mapping layer tables are empty", ErrInvalidParams)
	}
	if p.Log2ValuesPerMap > p.Log2MapWidth {
		return fmt.Errorf("%w: values per map wider than the map", ErrInvalidParams)
	}
	if p.Log2MapWidth > 32 || p.Log2MapWidth-p.Log2ValuesPerMap > 32 {
		return fmt.Errorf("%w: columns must fit in 32 bits", ErrInvalidParams)
	}
	if p.Log2MapHeight > 32 || p.Log2MapsPerEpoch > 32 {
		return fmt.Errorf("%w: map height and maps per epoch are limited to 2^32", ErrInvalidParams)
	}
	for _, f := range p.Log2MappingFrequency {
		if f > 32 {
			return fmt.Errorf("%w: mapping frequency %d", ErrInvalidParams, f)
		}
	}
	for _, l := range p.MaxRowLength {
		if l == 0 {
			return fmt.Errorf("%w: zero row length", ErrInvalidParams)
		}
	}
	if p.ProgListHeightStep == 0 {
		return fmt.Errorf("%w: progressive list step must be positive", ErrInvalidParams)
	}
	if p.MaxMappingLayers == 0 {
		return fmt.Errorf("%w: max mapping layers must be positive", ErrInvalidParams)
	}
	// root, epoch vector, epoch fields, map rows, then room for the row lists
	// and the log entry data lists below them
	depth := 1 + p.Log2EpochHistory + 1 + max(p.Log2MapHeight+p.Log2MapsPerEpoch, p.Log2MapsPerEpoch+p.Log2ValuesPerMap)
	if depth > 128 {
		return fmt.Errorf("%w: tree depth %d leaves no room for list contents", ErrInvalidParams, depth)
	}
	return nil
}

func (p Params) MapsPerEpoch() uint64 {
	return 1 << p.Log2MapsPerEpoch
}

func (p Params) ValuesPerMap() uint64 {
	return 1 << p.Log2ValuesPerMap
}

func (p Params) MapHeight() uint64 {
	return 1 << p.Log2MapHeight
}

func (p Params) EntriesPerEpoch() uint64 {
	return 1 << (p.Log2MapsPerEpoch + p.Log2ValuesPerMap)
}

// MaxEntries returns the number of entries the index can hold, or zero if it
// exceeds the range of a uint64. Row selection hashes the map index as 32
// bits, so no more than 2^32 maps are used even if the epoch history has
// room for more.
func (p Params) MaxEntries() uint64 {
	bits := min(p.Log2EpochHistory+p.Log2MapsPerEpoch, MaxLog2Maps) + p.Log2ValuesPerMap
	if bits >= 64 {
		return 0
	}
	return 1 << bits
}

func (p Params) mappingFrequency(layer uint) uint {
	return p.Log2MappingFrequency[min(layer, uint(len(p.Log2MappingFrequency)-1))]
}

// RowCapacity returns the maximum length of a row selected on the given
// mapping layer
func (p Params) RowCapacity(layer uint) uint64 {
	return p.MaxRowLength[min(layer, uint(len(p.MaxRowLength)-1))]
}

func (p Params) clone() Params {
	c := p
	c.Log2MappingFrequency = append([]uint(nil), p.Log2MappingFrequency...)
	c.MaxRowLength = append([]uint64(nil), p.MaxRowLength...)
	return c
}

func (p Params) equal(o Params) bool {
	if len(p.Log2MappingFrequency) != len(o.Log2MappingFrequency) || len(p.MaxRowLength) != len(o.MaxRowLength) {
		return false
	}
	for i := range p.Log2MappingFrequency {
		if p.Log2MappingFrequency[i] != o.Log2MappingFrequency[i] {
			return false
		}
	}
	for i := range p.MaxRowLength {
		if p.MaxRowLength[i] != o.MaxRowLength[i] {
			return false
		}
	}
	return p.Log2EpochHistory == o.Log2EpochHistory &&
		p.Log2MapsPerEpoch == o.Log2MapsPerEpoch &&
		p.Log2ValuesPerMap == o.Log2ValuesPerMap &&
		p.Log2MapWidth == o.Log2MapWidth &&
		p.Log2MapHeight == o.Log2MapHeight &&
		p.ProgListHeightFirst == o.ProgListHeightFirst &&
		p.ProgListHeightStep == o.ProgListHeightStep &&
		p.MaxMappingLayers == o.MaxMappingLayers
}
