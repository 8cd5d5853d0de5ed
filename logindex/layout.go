package logindex

import (
	"github.com/forestrie/go-logindex/gti"
)

// The log index tree layout. Each group is relative to the root of the
// container it belongs to.
//
//	log index root (1)
//	├── epoch history (2)       vector[2^Log2EpochHistory] of epochs
//	│   └── epoch
//	│       ├── filter maps (2)     vector[2^(Log2MapHeight+Log2MapsPerEpoch)] of row lists
//	│       └── index entries (3)   vector[2^(Log2MapsPerEpoch+Log2ValuesPerMap)] of index entries
//	└── next entry (3)
var (
	GTIEpochHistory = gti.FromUint64(2)
	GTINextEntry    = gti.FromUint64(3)

	GTIFilterMaps   = gti.FromUint64(2)
	GTIIndexEntries = gti.FromUint64(3)

	// lists, progressive or fixed
	GTIListTree  = gti.FromUint64(2)
	GTIListCount = gti.FromUint64(3)

	// progressive list tree levels
	GTIProgListSubtree  = gti.FromUint64(2)
	GTIProgListNextTree = gti.FromUint64(3)

	// index entry
	GTILogEntry  = gti.FromUint64(2)
	GTIEntryMeta = gti.FromUint64(3)

	// log entry fields
	GTILogAddress = gti.FromUint64(4)
	GTILogTopics  = gti.FromUint64(5)
	GTILogData    = gti.FromUint64(6)

	// entry meta fields
	GTIEntryMetaField0 = gti.FromUint64(4)
	GTIEntryMetaField1 = gti.FromUint64(5)
	GTIEntryMetaField2 = gti.FromUint64(6)
	GTIEntryMetaField3 = gti.FromUint64(7)
)

// topics are a fixed vector of MaxTopics
const topicsVectorHeight = 2

// entryMetaHeight is the height of both the meta field vector and the log
// entry field vector
const entryMetaHeight = 2

func (p Params) EpochRootGTI(epoch uint64) gti.Index {
	return gti.Vector(GTIEpochHistory, epoch, p.Log2EpochHistory)
}

// IndexEntryGTI returns the root of the index entry at the given absolute
// entry position
func (p Params) IndexEntryGTI(entry uint64) gti.Index {
	epoch := entry >> (p.Log2MapsPerEpoch + p.Log2ValuesPerMap)
	sub := entry & (p.EntriesPerEpoch() - 1)
	entries := gti.Merge(p.EpochRootGTI(epoch), GTIIndexEntries)
	return gti.Vector(entries, sub, p.Log2MapsPerEpoch+p.Log2ValuesPerMap)
}

// MapRowGTI returns the root of the row list of a filter map. Rows are laid
// out row major across the maps of an epoch, so the same row of consecutive
// maps are neighbours.
func (p Params) MapRowGTI(mapIndex, row uint64) gti.Index {
	epoch := mapIndex >> p.Log2MapsPerEpoch
	sub := mapIndex & (p.MapsPerEpoch() - 1)
	maps := gti.Merge(p.EpochRootGTI(epoch), GTIFilterMaps)
	return gti.Vector(maps, row<<p.Log2MapsPerEpoch+sub, p.Log2MapHeight+p.Log2MapsPerEpoch)
}

// ProgListTarget locates item n of a progressive list. Level l of the list
// holds 2^(first+step*l) items, the result is the level and the position of
// the item inside it.
func (p Params) ProgListTarget(n uint64) (level uint, local uint64) {
	height := p.ProgListHeightFirst
	for height < 64 && n >= uint64(1)<<height {
		n -= uint64(1) << height
		level++
		height += p.ProgListHeightStep
	}
	return level, n
}

func (p Params) progListLevelHeight(level uint) uint {
	return p.ProgListHeightFirst + p.ProgListHeightStep*level
}

// ProgListChunkGTI returns the node holding item n of the progressive list
// rooted at listRoot
func (p Params) ProgListChunkGTI(listRoot gti.Index, n uint64) gti.Index {
	level, local := p.ProgListTarget(n)
	tree := gti.Merge(listRoot, GTIListTree)
	for i := uint(0); i < level; i++ {
		tree = gti.Merge(tree, GTIProgListNextTree)
	}
	return gti.Vector(gti.Merge(tree, GTIProgListSubtree), local, p.progListLevelHeight(level))
}

func (p Params) entryMetaGTI(entry uint64, field gti.Index) gti.Index {
	return gti.Merge(gti.Merge(p.IndexEntryGTI(entry), GTIEntryMeta), field)
}

func (p Params) logEntryGTI(entry uint64) gti.Index {
	return gti.Merge(p.IndexEntryGTI(entry), GTILogEntry)
}

func topicGTI(logEntry gti.Index, i uint64) gti.Index {
	topics := gti.Merge(logEntry, GTILogTopics)
	return gti.Vector(gti.Merge(topics, GTIListTree), i, topicsVectorHeight)
}

func metaFields() [4]gti.Index {
	return [4]gti.Index{GTIEntryMetaField0, GTIEntryMetaField1, GTIEntryMetaField2, GTIEntryMetaField3}
}

func listCountGTI(list gti.Index) gti.Index {
	return gti.Merge(list, GTIListCount)
}
