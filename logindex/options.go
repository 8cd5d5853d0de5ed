package logindex

import (
	"hash"

	"github.com/forestrie/go-logindex/bintree"
)

type Options struct {
	Params Params
	// NewHasher makes the node hasher. The value hashes that select rows and
	// columns are always sha256.
	NewHasher func() hash.Hash
	Sink      bintree.CollapseSink
	// Nodes serves reads of collapsed subtrees, see Reader
	Nodes   bintree.NodeReader
	Metrics *Metrics
}

type Option func(any)

func NewOptions(opts ...Option) Options {
	o := Options{
		Params:    DefaultParams(),
		NewHasher: bintree.NewSHA256Hasher,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithParams(params Params) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.Params = params.clone()
	}
}

func WithHasher(newHasher func() hash.Hash) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.NewHasher = newHasher
	}
}

// WithCollapseSink persists the nodes dropped when entries and maps are
// collapsed
func WithCollapseSink(sink bintree.CollapseSink) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.Sink = sink
	}
}

func WithNodeReader(nodes bintree.NodeReader) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.Nodes = nodes
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.Metrics = m
	}
}
