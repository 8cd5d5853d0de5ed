package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/forestrie/go-logindex/logindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

const testFeed = `
{"number": "0x1", "hash": "0x00000000000000000000000000000000000000000000000000000000000000b1", "timestamp": "0x65",
 "transactions": [
  {"hash": "0x00000000000000000000000000000000000000000000000000000000000000a1",
   "receiptHash": "0x00000000000000000000000000000000000000000000000000000000000000c1",
   "index": "0x0",
   "logs": [
    {"address": "0x00000000219ab540356cbb839cbe05303d7705fa",
     "topics": ["0x649bbc62d0e31342afea4e5cd82d4049e7e1ee912fc0889aa790803be39038c5"],
     "data": "0x0102"}
   ]}
 ]}
{"number": "0x2", "hash": "0x00000000000000000000000000000000000000000000000000000000000000b2", "timestamp": "0x66",
 "transactions": []}
`

// small maps, the defaults have 2^16 rows per map
const testParams = `{"Log2EpochHistory": 4, "Log2MapsPerEpoch": 2, "Log2ValuesPerMap": 4, "Log2MapWidth": 8, "Log2MapHeight": 2}`

func testLogger() logger.Logger {
	logger.New("NOOP")
	return logger.Sugar.WithServiceName("logindex")
}

func TestFeedReader(t *testing.T) {
	feed := NewFeedReader(strings.NewReader(testFeed))

	b, err := feed.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uint64(b.Number))
	require.Len(t, b.Transactions, 1)
	require.Len(t, b.Transactions[0].Logs, 1)
	assert.Equal(t, common.HexToAddress("0x00000000219ab540356cbb839cbe05303d7705fa"), b.Transactions[0].Logs[0].Address)
	assert.Equal(t, []byte{1, 2}, []byte(b.Transactions[0].Logs[0].Data))

	b, err = feed.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), uint64(b.Number))

	_, err = feed.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFeedReaderOrder(t *testing.T) {
	feed := NewFeedReader(strings.NewReader(`{"number": "0x2"} {"number": "0x2"}`))
	_, err := feed.Next()
	require.NoError(t, err)
	_, err = feed.Next()
	assert.ErrorIs(t, err, ErrFeedOrder)
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(feedPath, []byte(testFeed), 0o644))
	paramsPath := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(paramsPath, []byte(testParams), 0o644))

	var roots []string
	for _, kind := range []string{"memory", "leveldb", "pebble", "badger"} {
		t.Run(kind, func(t *testing.T) {
			snapPath := filepath.Join(dir, kind+".snap")
			var out bytes.Buffer
			err := replay(context.Background(), testLogger(), ReplayFlags{
				Feed:     feedPath,
				Store:    kind,
				Hasher:   "sha256",
				Snapshot: snapPath,
				Params:   paramsPath,
			}, &out)
			require.NoError(t, err)

			// block 1: delimiter, address, topic, tx delimiter. block 2: delimiter
			assert.Contains(t, out.String(), "next_entry: 5\n")
			roots = append(roots, out.String())

			data, err := os.ReadFile(snapPath)
			require.NoError(t, err)
			snap, err := logindex.DecodeSnapshot(data)
			require.NoError(t, err)
			assert.Equal(t, uint64(5), snap.NextEntry)
		})
	}
	// the store does not change the index
	for i := 1; i < len(roots); i++ {
		assert.Equal(t, roots[0], roots[i])
	}
}

// badBlock has a valid transaction followed by a log with too many topics
const badBlock = `
{"number": "0x3", "hash": "0x00000000000000000000000000000000000000000000000000000000000000b3", "timestamp": "0x67",
 "transactions": [
  {"hash": "0x00000000000000000000000000000000000000000000000000000000000000a3", "index": "0x0",
   "logs": [{"address": "0x00000000219ab540356cbb839cbe05303d7705fa", "topics": [], "data": "0x"}]},
  {"hash": "0x00000000000000000000000000000000000000000000000000000000000000a4", "index": "0x1",
   "logs": [{"address": "0x00000000219ab540356cbb839cbe05303d7705fa",
     "topics": [
      "0x0000000000000000000000000000000000000000000000000000000000000001",
      "0x0000000000000000000000000000000000000000000000000000000000000002",
      "0x0000000000000000000000000000000000000000000000000000000000000003",
      "0x0000000000000000000000000000000000000000000000000000000000000004",
      "0x0000000000000000000000000000000000000000000000000000000000000005"],
     "data": "0x"}]}
 ]}
`

func countStoredNodes(t *testing.T, path string) int {
	t.Helper()
	db, err := leveldb.OpenFile(path, nil)
	require.NoError(t, err)
	defer db.Close()
	it := db.NewIterator(nil, nil)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	require.NoError(t, it.Error())
	return n
}

func TestReplayFailedBlockNotStored(t *testing.T) {
	dir := t.TempDir()
	paramsPath := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(paramsPath, []byte(testParams), 0o644))

	run := func(name, feed string) (string, error) {
		feedPath := filepath.Join(dir, name+".json")
		require.NoError(t, os.WriteFile(feedPath, []byte(feed), 0o644))
		storePath := filepath.Join(dir, name)
		err := replay(context.Background(), testLogger(), ReplayFlags{
			Feed:   feedPath,
			Store:  "leveldb",
			Path:   storePath,
			Hasher: "sha256",
			Params: paramsPath,
		}, io.Discard)
		return storePath, err
	}

	good, err := run("good", testFeed)
	require.NoError(t, err)
	bad, err := run("bad", testFeed+badBlock)
	assert.ErrorIs(t, err, logindex.ErrTooManyTopics)

	// nothing collapsed while adding the failed block reaches the store
	assert.Equal(t, countStoredNodes(t, good), countStoredNodes(t, bad))
}

func TestLoadParams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(path, []byte(testParams), 0o644))

	p, err := loadParams(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), p.Log2MapHeight)
	assert.Equal(t, logindex.DefaultParams().MaxRowLength, p.MaxRowLength)

	require.NoError(t, os.WriteFile(path, []byte(`{"ProgListHeightStep": 0}`), 0o644))
	_, err = loadParams(path)
	assert.ErrorIs(t, err, logindex.ErrInvalidParams)
}

func TestReplayUnknownHasher(t *testing.T) {
	err := replay(context.Background(), testLogger(), ReplayFlags{Feed: "-", Store: "memory", Hasher: "md5"}, io.Discard)
	assert.Error(t, err)
}
