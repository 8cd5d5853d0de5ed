package nodestore

import (
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/gti"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

const DefaultCacheSize = 4096

// CachedReader puts a least recently used cache in front of a NodeReader.
// Stored nodes never change, so found values are cached indefinitely. Misses
// are not cached, a node may be written after it was first looked for.
type CachedReader struct {
	reader bintree.NodeReader
	cache  *lru.Cache[gti.Index, uint256.Int]
}

func NewCachedReader(reader bintree.NodeReader, size int) (*CachedReader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[gti.Index, uint256.Int](size)
	if err != nil {
		return nil, err
	}
	return &CachedReader{reader: reader, cache: cache}, nil
}

func (c *CachedReader) GetNode(index gti.Index) (uint256.Int, error) {
	if v, ok := c.cache.Get(index); ok {
		return v, nil
	}
	v, err := c.reader.GetNode(index)
	if err != nil {
		return uint256.Int{}, err
	}
	c.cache.Add(index, v)
	return v, nil
}

// Len returns the number of cached nodes
func (c *CachedReader) Len() int {
	return c.cache.Len()
}
