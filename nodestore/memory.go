package nodestore

import (
	"sync"

	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[gti.Index]uint256.Int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: map[gti.Index]uint256.Int{}}
}

func (s *MemoryStore) PutNode(index gti.Index, value uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[index] = value
	return nil
}

func (s *MemoryStore) GetNode(index gti.Index) (uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.nodes[index]
	if !ok {
		return uint256.Int{}, notFound(index)
	}
	return v, nil
}

// Len returns the number of stored nodes
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *MemoryStore) StartBatch()        {}
func (s *MemoryStore) FinishBatch() error { return nil }
func (s *MemoryStore) DiscardBatch()      {}
func (s *MemoryStore) Close() error       { return nil }
