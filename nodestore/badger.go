package nodestore

import (
	"errors"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

type BadgerStore struct {
	log logger.Logger
	db  *badgerdb.DB

	mu      sync.RWMutex
	batch   *badgerdb.WriteBatch
	pending map[gti.Index]uint256.Int
}

// NewBadgerStore opens, or creates, a badger database in the directory path.
// An empty path opens an in memory database.
func NewBadgerStore(log logger.Logger, path string) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{log: log})
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, err
	}
	log.Infof("badger node store opened: %q", path)
	return &BadgerStore{log: log, db: db}, nil
}

func (s *BadgerStore) PutNode(index gti.Index, value uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		s.pending[index] = value
		return s.batch.Set(nodeKey(index), nodeValue(value))
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(nodeKey(index), nodeValue(value))
	})
}

func (s *BadgerStore) GetNode(index gti.Index) (uint256.Int, error) {
	s.mu.RLock()
	if v, ok := s.pending[index]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	var value uint256.Int
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(nodeKey(index))
		if err != nil {
			return err
		}
		b, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value, err = decodeValue(b)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return uint256.Int{}, notFound(index)
	}
	return value, err
}

func (s *BadgerStore) StartBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		s.batch = s.db.NewWriteBatch()
		s.pending = map[gti.Index]uint256.Int{}
	}
}

func (s *BadgerStore) FinishBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	err := s.batch.Flush()
	s.batch = nil
	s.pending = nil
	return err
}

func (s *BadgerStore) DiscardBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return
	}
	s.batch.Cancel()
	s.batch = nil
	s.pending = nil
}

func (s *BadgerStore) Close() error {
	if err := s.FinishBatch(); err != nil {
		return err
	}
	s.log.Infof("badger node store closed")
	return s.db.Close()
}

// badgerLogger routes badger's own logging to the service logger. Badger is
// chatty at info level, so everything below warning goes to debug.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.log.Infof("badger: "+format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.log.Infof("badger: "+format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.log.Debugf("badger: "+format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.log.Debugf("badger: "+format, args...) }
