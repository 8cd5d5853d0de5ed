package logindex

import (
	"fmt"
	"hash"

	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

// Region names the part of the log index tree a node belongs to
type Region uint8

const (
	RegionInvalid Region = iota
	RegionRoot
	RegionNextEntry
	// RegionEpochHistory covers the epoch vector down to, and including, the
	// epoch roots
	RegionEpochHistory
	RegionFilterMaps
	RegionIndexEntries
	// RegionRow covers the nodes of a filter map row list below its root
	RegionRow
	RegionIndexEntry
	RegionLogEntry
	RegionEntryMeta
	RegionTopics
	RegionData

	// walk states that never classify a node themselves
	regionEpoch
	regionListTree
)

func (r Region) String() string {
	switch r {
	case RegionRoot:
		return "root"
	case RegionNextEntry:
		return "next-entry"
	case RegionEpochHistory:
		return "epoch-history"
	case RegionFilterMaps:
		return "filter-maps"
	case RegionIndexEntries:
		return "index-entries"
	case RegionRow:
		return "row"
	case RegionIndexEntry:
		return "index-entry"
	case RegionLogEntry:
		return "log-entry"
	case RegionEntryMeta:
		return "entry-meta"
	case RegionTopics:
		return "topics"
	case RegionData:
		return "data"
	case regionEpoch:
		return "epoch"
	case regionListTree:
		return "list-tree"
	default:
		return "invalid"
	}
}

// emptyNodes is the default value policy of the log index tree. Containers
// (epochs, rows, index entries, log entries and their lists) hold zero until
// they are first written. Below a container root the defaults are the node
// values of an expanded but empty container.
type emptyNodes struct {
	params Params
	// vectors[h] is the root of an empty vector of height h
	vectors []uint256.Int
	root    uint256.Int
}

func newEmptyNodes(params Params, hasher hash.Hash) *emptyNodes {
	e := &emptyNodes{
		params:  params,
		vectors: make([]uint256.Int, gti.MaxHeight+1),
	}
	for h := 1; h < len(e.vectors); h++ {
		e.vectors[h] = bintree.HashPair(hasher, &e.vectors[h-1], &e.vectors[h-1])
	}
	var zero uint256.Int
	e.root = bintree.HashPair(hasher, &e.vectors[params.Log2EpochHistory], &zero)
	return e
}

// EmptyNode implements bintree.EmptyNodeFunc
func (e *emptyNodes) EmptyNode(index gti.Index) (uint256.Int, error) {
	_, v, err := e.walk(index)
	return v, err
}

// Classify returns the region of the log index tree holding index
func (e *emptyNodes) Classify(index gti.Index) (Region, error) {
	r, _, err := e.walk(index)
	return r, err
}

func (e *emptyNodes) vector(region Region, height, h uint) (Region, uint256.Int, error) {
	if h > height || height-h >= uint(len(e.vectors)) {
		return RegionInvalid, uint256.Int{}, fmt.Errorf("%w: %s height %d", ErrInvalidTreeNode, region, h)
	}
	return region, e.vectors[height-h], nil
}

func split(index gti.Index) (gti.Index, gti.Index, uint) {
	side := gti.SplitBelow(index, 1)
	rest := gti.SplitAbove(index, 1)
	return side, rest, rest.Height()
}

// walk peels one container per step, carrying the index relative to the
// current container root, until the node resolves to a default value.
func (e *emptyNodes) walk(index gti.Index) (Region, uint256.Int, error) {
	var zero uint256.Int
	p := e.params
	state := RegionRoot
	// list is RegionRow or RegionData while inside a progressive list
	list := RegionInvalid
	level := uint(0)
	invalid := func() (Region, uint256.Int, error) {
		return RegionInvalid, zero, fmt.Errorf("%w: %s at %s", ErrInvalidTreeNode, state, index)
	}

	for {
		switch state {
		case RegionRoot:
			if index.IsRoot() {
				return RegionRoot, e.root, nil
			}
			side, rest, h := split(index)
			switch side {
			case GTIEpochHistory:
				if h <= p.Log2EpochHistory {
					return e.vector(RegionEpochHistory, p.Log2EpochHistory, h)
				}
				index = gti.SplitAbove(rest, p.Log2EpochHistory)
				state = regionEpoch
				continue
			case GTINextEntry:
				if h == 0 {
					return RegionNextEntry, zero, nil
				}
			}
			return invalid()

		case regionEpoch:
			side, rest, h := split(index)
			switch side {
			case GTIFilterMaps:
				height := p.Log2MapHeight + p.Log2MapsPerEpoch
				if h <= height {
					return e.vector(RegionFilterMaps, height, h)
				}
				index = gti.SplitAbove(rest, height)
				state, list = RegionRow, RegionRow
				continue
			case GTIIndexEntries:
				height := p.Log2MapsPerEpoch + p.Log2ValuesPerMap
				if h <= height {
					return e.vector(RegionIndexEntries, height, h)
				}
				index = gti.SplitAbove(rest, height)
				state = RegionIndexEntry
				continue
			}
			return invalid()

		case RegionRow, RegionData:
			// progressive list, relative to the list root
			side, rest, h := split(index)
			switch side {
			case GTIListTree:
				if h == 0 {
					return list, zero, nil
				}
				index = rest
				level = 0
				state = regionListTree
				continue
			case GTIListCount:
				if h == 0 {
					return list, zero, nil
				}
			}
			return invalid()

		case regionListTree:
			side, rest, h := split(index)
			switch side {
			case GTIProgListSubtree:
				return e.vector(list, p.progListLevelHeight(level), h)
			case GTIProgListNextTree:
				if h == 0 {
					return list, zero, nil
				}
				index = rest
				level++
				continue
			}
			return invalid()

		case RegionIndexEntry:
			side, rest, h := split(index)
			switch side {
			case GTILogEntry:
				if h == 0 {
					return RegionIndexEntry, zero, nil
				}
				index = rest
				state = RegionLogEntry
				continue
			case GTIEntryMeta:
				return e.vector(RegionEntryMeta, entryMetaHeight, h)
			}
			return invalid()

		case RegionLogEntry:
			h := index.Height()
			if h <= entryMetaHeight {
				return e.vector(RegionLogEntry, entryMetaHeight, h)
			}
			field := gti.SplitBelow(index, entryMetaHeight)
			sub := gti.SplitAbove(index, entryMetaHeight)
			switch field {
			case GTILogTopics:
				index = sub
				state = RegionTopics
				continue
			case GTILogData:
				index = sub
				state, list = RegionData, RegionData
				continue
			}
			return invalid()

		case RegionTopics:
			side, _, h := split(index)
			switch side {
			case GTIListTree:
				return e.vector(RegionTopics, topicsVectorHeight, h)
			case GTIListCount:
				if h == 0 {
					return RegionTopics, zero, nil
				}
			}
			return invalid()

		default:
			return invalid()
		}
	}
}
