package bintree

type Options struct {
	Sink   CollapseSink
	Reader NodeReader
}

type Option func(any)

// WithCollapseSink hands every node discarded by Collapse to sink
func WithCollapseSink(sink CollapseSink) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.Sink = sink
	}
}

// WithNodeReader lets writes below a collapsed node reload the discarded
// nodes from reader, see Reopen
func WithNodeReader(reader NodeReader) Option {
	return func(a any) {
		o, ok := a.(*Options)
		if !ok {
			return
		}
		o.Reader = reader
	}
}
