package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/logindex"
)

type Reader struct {
	log   logger.Logger
	store blobReader
}

func NewReader(log logger.Logger, store blobReader) Reader {
	return Reader{
		log:   log,
		store: store,
	}
}

// ReadSnapshot reads and decodes the snapshot of the named index taken at
// nextEntry
func (r Reader) ReadSnapshot(
	ctx context.Context, name string, nextEntry uint64, opts ...azblob.Option,
) (*logindex.Snapshot, BlobContext, error) {
	bc := BlobContext{BlobPath: IndexSnapshotPath(name, nextEntry)}
	if err := bc.ReadData(ctx, r.store, opts...); err != nil {
		return nil, bc, err
	}
	snap, err := logindex.DecodeSnapshot(bc.Data)
	if err != nil {
		return nil, bc, err
	}
	if snap.NextEntry != nextEntry {
		return nil, bc, fmt.Errorf("%w: %s holds %d", ErrSnapshotEntry, bc.BlobPath, snap.NextEntry)
	}
	return snap, bc, nil
}

// ReadSeal reads the signed root of the named index at nextEntry. Use
// seal.DecodeSignedRoot to recover the state.
func (r Reader) ReadSeal(
	ctx context.Context, name string, nextEntry uint64, opts ...azblob.Option,
) ([]byte, BlobContext, error) {
	bc := BlobContext{BlobPath: IndexSealPath(name, nextEntry)}
	if err := bc.ReadData(ctx, r.store, opts...); err != nil {
		return nil, bc, err
	}
	return bc.Data, bc, nil
}

// LastSnapshotEntry finds the entry count of the most recent snapshot of the
// named index. ErrBlobNotFound is returned if there is none.
func (r Reader) LastSnapshotEntry(ctx context.Context, name string) (uint64, error) {
	prefix := IndexSnapshotPrefix(name)

	var last uint64
	var found bool
	var marker azblob.ListMarker
	for {
		lr, err := r.store.List(ctx, azblob.WithListPrefix(prefix), azblob.WithListMarker(marker))
		if err != nil {
			return 0, err
		}
		for _, item := range lr.Items {
			if item.Name == nil || !strings.HasPrefix(*item.Name, prefix) {
				continue
			}
			n, err := ParseBlobNumber(*item.Name)
			if err != nil {
				r.log.Infof("ignoring %s: %v", *item.Name, err)
				continue
			}
			if !found || n > last {
				last, found = n, true
			}
		}
		if len(lr.Items) == 0 || lr.Marker == nil {
			break
		}
		marker = lr.Marker
	}
	if !found {
		return 0, fmt.Errorf("%w: no snapshots under %s", ErrBlobNotFound, prefix)
	}
	return last, nil
}
