package nodestore

import (
	"errors"
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type LevelDBStore struct {
	log logger.Logger
	db  *leveldb.DB

	mu      sync.RWMutex
	batch   *leveldb.Batch
	pending map[gti.Index]uint256.Int
}

// NewLevelDBStore opens, or creates, a leveldb database at path. An empty
// path opens a database held in memory.
func NewLevelDBStore(log logger.Logger, path string) (*LevelDBStore, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("leveldb node store opened: %q", path)
	return &LevelDBStore{log: log, db: db}, nil
}

func (s *LevelDBStore) PutNode(index gti.Index, value uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		s.batch.Put(nodeKey(index), nodeValue(value))
		s.pending[index] = value
		return nil
	}
	return s.db.Put(nodeKey(index), nodeValue(value), nil)
}

func (s *LevelDBStore) GetNode(index gti.Index) (uint256.Int, error) {
	s.mu.RLock()
	if v, ok := s.pending[index]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	b, err := s.db.Get(nodeKey(index), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return uint256.Int{}, notFound(index)
	}
	if err != nil {
		return uint256.Int{}, err
	}
	return decodeValue(b)
}

func (s *LevelDBStore) StartBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		s.batch = new(leveldb.Batch)
		s.pending = map[gti.Index]uint256.Int{}
	}
}

func (s *LevelDBStore) FinishBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	if err := s.db.Write(s.batch, nil); err != nil {
		return err
	}
	s.batch = nil
	s.pending = nil
	return nil
}

func (s *LevelDBStore) DiscardBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = nil
	s.pending = nil
}

func (s *LevelDBStore) Close() error {
	if err := s.FinishBatch(); err != nil {
		return err
	}
	s.log.Infof("leveldb node store closed")
	return s.db.Close()
}
