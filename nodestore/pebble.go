package nodestore

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

const pebbleMemDir = "logindex-nodes"

type PebbleStore struct {
	log logger.Logger
	db  *pebble.DB

	mu    sync.RWMutex
	batch *pebble.Batch
}

// NewPebbleStore opens, or creates, a pebble database at path. An empty path
// opens a database on an in memory file system.
func NewPebbleStore(log logger.Logger, path string) (*PebbleStore, error) {
	opts := &pebble.Options{}
	dir := path
	if path == "" {
		opts.FS = vfs.NewMem()
		dir = pebbleMemDir
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, err
	}
	log.Infof("pebble node store opened: %q", path)
	return &PebbleStore{log: log, db: db}, nil
}

func (s *PebbleStore) PutNode(index gti.Index, value uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		return s.batch.Set(nodeKey(index), nodeValue(value), pebble.NoSync)
	}
	return s.db.Set(nodeKey(index), nodeValue(value), pebble.NoSync)
}

func (s *PebbleStore) GetNode(index gti.Index) (uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reader pebble.Reader = s.db
	if s.batch != nil {
		reader = s.batch
	}
	b, closer, err := reader.Get(nodeKey(index))
	if errors.Is(err, pebble.ErrNotFound) {
		return uint256.Int{}, notFound(index)
	}
	if err != nil {
		return uint256.Int{}, err
	}
	// b is only valid until the closer is closed, decodeValue copies it
	defer closer.Close()
	return decodeValue(b)
}

func (s *PebbleStore) StartBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		s.batch = s.db.NewIndexedBatch()
	}
}

func (s *PebbleStore) FinishBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	if err := s.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	err := s.batch.Close()
	s.batch = nil
	return err
}

func (s *PebbleStore) DiscardBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return
	}
	if err := s.batch.Close(); err != nil {
		s.log.Infof("pebble discard batch: %v", err)
	}
	s.batch = nil
}

func (s *PebbleStore) Close() error {
	if err := s.FinishBatch(); err != nil {
		return err
	}
	if err := s.db.Flush(); err != nil {
		return err
	}
	s.log.Infof("pebble node store closed")
	return s.db.Close()
}
