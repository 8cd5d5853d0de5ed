package bintree

import "errors"

var (
	// ErrNodeUnavailable is returned for nodes that are neither resident nor
	// derivable from resident descendants. This is the case below a node that
	// was never expanded or has been collapsed.
	ErrNodeUnavailable  = errors.New("bintree: node is not available in the resident tree")
	ErrExpandNonEmpty   = errors.New("bintree: expand of a node holding a non default value")
	ErrCollapsedSubtree = errors.New("bintree: write below a collapsed node")
	// ErrNodeNotFound is returned by a NodeReader for nodes it does not hold
	ErrNodeNotFound     = errors.New("bintree: node not found")
	ErrMaxHeight        = errors.New("bintree: index is deeper than the maximum tree height")
)
