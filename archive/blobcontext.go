package archive

import (
	"context"
	"io"
	"time"

	"github.com/datatrails/go-datatrails-common/azblob"
)

type blobReader interface {
	Reader(
		ctx context.Context,
		identity string,
		opts ...azblob.Option,
	) (*azblob.ReaderResponse, error)
	List(ctx context.Context, opts ...azblob.Option) (*azblob.ListerResponse, error)
}

type blobStore interface {
	blobReader
	Put(
		ctx context.Context,
		identity string,
		source io.ReadSeekCloser,
		opts ...azblob.Option,
	) (*azblob.WriteResponse, error)
}

// BlobContext carries a blob along with the metadata read with it
type BlobContext struct {
	BlobPath      string
	ETag          string
	Tags          map[string]string
	LastRead      time.Time
	LastModified  time.Time
	Data          []byte
	ContentLength int64
}

// ReadData reads the blob at BlobPath, filling in Data and the metadata
// fields from the store response
func (bc *BlobContext) ReadData(ctx context.Context, store blobReader, opts ...azblob.Option) error {
	rr, data, err := blobRead(ctx, bc.BlobPath, store, opts...)
	if err != nil {
		return err
	}
	bc.Data = data
	bc.Tags = rr.Tags
	if rr.ETag != nil {
		bc.ETag = *rr.ETag
	}
	if rr.LastModified != nil {
		bc.LastModified = *rr.LastModified
	}
	bc.LastRead = time.Now()
	bc.ContentLength = rr.ContentLength
	return nil
}

func blobRead(
	ctx context.Context, blobPath string, store blobReader, opts ...azblob.Option,
) (*azblob.ReaderResponse, []byte, error) {
	rr, err := store.Reader(ctx, blobPath, opts...)
	if err != nil {
		return nil, nil, WrapBlobNotFound(err)
	}
	defer rr.Reader.Close()
	data, err := io.ReadAll(rr.Reader)
	if err != nil {
		return nil, nil, err
	}
	return rr, data, nil
}
