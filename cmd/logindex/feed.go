package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/forestrie/go-logindex/logindex"
)

var ErrFeedOrder = errors.New("feed: blocks are not in ascending order")

// FeedLog, FeedTx and FeedBlock are the JSON form of a block feed. A feed is
// a stream of block objects, one after another.
type FeedLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

type FeedTx struct {
	Hash        common.Hash    `json:"hash"`
	ReceiptHash common.Hash    `json:"receiptHash"`
	Index       hexutil.Uint64 `json:"index"`
	Logs        []FeedLog      `json:"logs"`
}

type FeedBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	Transactions []FeedTx       `json:"transactions"`
}

// FeedReader decodes blocks one at a time, so a feed need not fit in memory
type FeedReader struct {
	dec   *json.Decoder
	last  uint64
	count int
}

func NewFeedReader(r io.Reader) *FeedReader {
	return &FeedReader{dec: json.NewDecoder(r)}
}

// Next returns the next block, or io.EOF at the end of the feed
func (f *FeedReader) Next() (*FeedBlock, error) {
	var b FeedBlock
	if err := f.dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("feed block %d: %w", f.count, err)
	}
	if f.count > 0 && uint64(b.Number) <= f.last {
		return nil, fmt.Errorf("%w: %d after %d", ErrFeedOrder, b.Number, f.last)
	}
	f.last = uint64(b.Number)
	f.count++
	return &b, nil
}

// Apply adds the entries of a block to the index: the block delimiter, then
// per transaction its logs and a transaction delimiter.
func (b *FeedBlock) Apply(s *logindex.State) error {
	number := uint64(b.Number)
	if err := s.AddBlockEntry(number, b.Hash, uint64(b.Timestamp)); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		logs := make([]*types.Log, 0, len(tx.Logs))
		for _, l := range tx.Logs {
			logs = append(logs, &types.Log{
				Address: l.Address,
				Topics:  l.Topics,
				Data:    l.Data,
			})
		}
		if err := s.AddLogEntries(number, tx.Hash, uint64(tx.Index), logs); err != nil {
			return fmt.Errorf("block %d tx %s: %w", number, tx.Hash, err)
		}
		if err := s.AddTxEntry(number, tx.Hash, tx.ReceiptHash, uint64(tx.Index)); err != nil {
			return err
		}
	}
	return nil
}
