// Package nodestore keeps the log index nodes discarded by collapse.
//
// Every Store is both a bintree.CollapseSink, to be handed to the index with
// logindex.WithCollapseSink, and a bintree.NodeReader, for
// logindex.WithNodeReader. Nodes are keyed by the big endian generalized
// index and stored as their 32 byte little endian value. A node, once
// written, never changes, so stores may be read while the index appends.
package nodestore

import (
	"fmt"
	"strings"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

const (
	KindMemory  = "memory"
	KindLevelDB = "leveldb"
	KindPebble  = "pebble"
	KindBadger  = "badger"
)

type Store interface {
	bintree.CollapseSink
	bintree.NodeReader

	// StartBatch defers writes until FinishBatch. Reads see the pending
	// writes.
	StartBatch()
	FinishBatch() error
	// DiscardBatch drops the pending writes. The memory store writes
	// through, it has nothing to discard.
	DiscardBatch()
	Close() error
}

// Open opens a store of the given kind. An empty path opens the kind in
// memory, for the backends that support it.
func Open(log logger.Logger, kind string, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case KindMemory, "":
		return NewMemoryStore(), nil
	case KindLevelDB:
		return NewLevelDBStore(log, path)
	case KindPebble:
		return NewPebbleStore(log, path)
	case KindBadger:
		return NewBadgerStore(log, path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

func nodeKey(index gti.Index) []byte {
	k := index.Bytes32()
	return k[:]
}

func nodeValue(value uint256.Int) []byte {
	v := bintree.LE32(&value)
	return v[:]
}

func decodeValue(b []byte) (uint256.Int, error) {
	if len(b) != 32 {
		return uint256.Int{}, fmt.Errorf("%w: %d bytes", ErrCorruptValue, len(b))
	}
	return bintree.FromLE(b), nil
}

func notFound(index gti.Index) error {
	return fmt.Errorf("%w: %s", bintree.ErrNodeNotFound, index)
}
