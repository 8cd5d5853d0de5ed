package logindex

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// SnapshotNode is one resident node. Index is big endian, Value is the little
// endian node value, as it appears in a parent preimage.
type SnapshotNode struct {
	Index     [32]byte `cbor:"1,keyasint"`
	Value     [32]byte `cbor:"2,keyasint"`
	Collapsed bool     `cbor:"3,keyasint,omitempty"`
}

// Snapshot is a copy of the resident tree. It shares nothing with the State
// it was taken from, so it can be read, encoded or restored while appending
// continues. Nodes are ordered by index.
type Snapshot struct {
	Params    Params         `cbor:"1,keyasint"`
	NextEntry uint64         `cbor:"2,keyasint"`
	Nodes     []SnapshotNode `cbor:"3,keyasint"`
}

func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{
		Params:    s.params.clone(),
		NextEntry: s.nextEntry,
		Nodes:     make([]SnapshotNode, 0, s.tree.Len()),
	}
	s.tree.Range(func(index gti.Index, value uint256.Int, collapsed bool) bool {
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			Index:     index.Bytes32(),
			Value:     bintree.LE32(&value),
			Collapsed: collapsed,
		})
		return true
	})
	sort.Slice(snap.Nodes, func(i, j int) bool {
		return bytes.Compare(snap.Nodes[i].Index[:], snap.Nodes[j].Index[:]) < 0
	})
	return snap
}

func snapshotEncMode() (cbor.EncMode, error) {
	return cbor.CoreDetEncOptions().EncMode()
}

// Encode returns the deterministic CBOR encoding of the snapshot
func (snap *Snapshot) Encode() ([]byte, error) {
	em, err := snapshotEncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(snap)
}

func DecodeSnapshot(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := cbor.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return snap, nil
}

// Restore rebuilds a State from a snapshot. The snapshot parameters take
// precedence over any passed in opts.
func Restore(log logger.Logger, snap *Snapshot, opts ...Option) (*State, error) {
	if len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no resident nodes", ErrInvalidSnapshot)
	}
	opts = append(append([]Option(nil), opts...), WithParams(snap.Params))
	s, err := NewState(log, opts...)
	if err != nil {
		return nil, err
	}
	s.tree.Reset()
	for _, n := range snap.Nodes {
		s.tree.Load(gti.FromBytes32(n.Index[:]), bintree.FromLE(n.Value[:]), n.Collapsed)
	}
	s.nextEntry = snap.NextEntry
	return s, nil
}
