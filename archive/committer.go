// Package archive publishes log index snapshots and seals to blob storage.
//
// Every blob is written exactly once. A snapshot is named by the entry count
// it was taken at, and a seal by the entry count of the state it signs, so an
// existing blob is never replaced.
package archive

import (
	"context"
	"fmt"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/logindex"
)

const (
	TagNextEntry = "nextentry"
	TagKind      = "kind"
)

type Committer struct {
	Log   logger.Logger
	Store blobStore
}

func NewCommitter(log logger.Logger, store blobStore) *Committer {
	return &Committer{
		Log:   log,
		Store: store,
	}
}

func entryTags(kind string, nextEntry uint64) map[string]string {
	return map[string]string{
		TagKind:      kind,
		TagNextEntry: fmt.Sprintf("%016x", nextEntry),
	}
}

func (c *Committer) create(ctx context.Context, blobPath string, data []byte, tags map[string]string) (*azblob.WriteResponse, error) {
	// 'fail without modifying if the blob exists' is spelled as requiring
	// that no blob matches any etag
	wr, err := c.Store.Put(ctx, blobPath, azblob.NewBytesReaderCloser(data),
		azblob.WithTags(tags), azblob.WithEtagNoneMatch("*"))
	if err != nil {
		return wr, err
	}
	c.Log.Debugf("committed %s (%d bytes)", blobPath, len(data))
	return wr, nil
}

// CommitSnapshot encodes and stores a snapshot of the named index
func (c *Committer) CommitSnapshot(ctx context.Context, name string, snap *logindex.Snapshot) (*azblob.WriteResponse, error) {
	data, err := snap.Encode()
	if err != nil {
		return nil, err
	}
	return c.create(ctx, IndexSnapshotPath(name, snap.NextEntry), data, entryTags(SnapshotExt, snap.NextEntry))
}

// CommitSeal stores a signed root, as produced by seal.RootSigner.Sign1, for
// the state of the named index at nextEntry
func (c *Committer) CommitSeal(ctx context.Context, name string, nextEntry uint64, signed []byte) (*azblob.WriteResponse, error) {
	return c.create(ctx, IndexSealPath(name, nextEntry), signed, entryTags(SealExt, nextEntry))
}
