package logindex

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

// addEntryMeta writes the four meta fields of the current entry.
//
//	block delimiter: number, block hash, timestamp, 0
//	tx delimiter:    block number, tx hash, tx index, receipt hash
//	log:             block number, tx hash, tx index, 0
func (s *State) addEntryMeta(fields [4]uint256.Int) error {
	for i, field := range metaFields() {
		if err := s.tree.Set(s.params.entryMetaGTI(s.nextEntry, field), fields[i]); err != nil {
			return err
		}
	}
	return nil
}

// addLogEntry writes the log payload of the current entry. The topics and
// data counts are written even when zero, which initialises both lists.
func (s *State) addLogEntry(l *types.Log) error {
	logEntry := s.params.logEntryGTI(s.nextEntry)

	if err := s.tree.Set(gti.Merge(logEntry, GTILogAddress), bintree.FromLE(l.Address[:])); err != nil {
		return err
	}

	for i, topic := range l.Topics {
		if err := s.tree.Set(topicGTI(logEntry, uint64(i)), hashValue(topic)); err != nil {
			return err
		}
	}
	topics := gti.Merge(logEntry, GTILogTopics)
	if err := s.tree.Set(listCountGTI(topics), *uint256.NewInt(uint64(len(l.Topics)))); err != nil {
		return err
	}

	data := gti.Merge(logEntry, GTILogData)
	for i := 0; i*DataChunkSize < len(l.Data); i++ {
		chunk := l.Data[i*DataChunkSize : min((i+1)*DataChunkSize, len(l.Data))]
		if err := s.tree.Set(s.params.ProgListChunkGTI(data, uint64(i)), bintree.FromLE(chunk)); err != nil {
			return err
		}
	}
	return s.tree.Set(listCountGTI(data), *uint256.NewInt(uint64(len(l.Data))))
}
