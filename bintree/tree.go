// Package bintree is a sparse, lazily materialised binary merkle tree.
//
// Only a frontier of nodes is held in memory. Three kinds of node are
// resident at any time:
//
//   - nodes that were written with Set
//   - default valued siblings materialised by Expand, each standing in for a
//     whole untouched subtree
//   - collapsed nodes, whose descendants have been discarded
//
// Interior nodes above written leaves are invalidated on write and recomputed
// on demand by Get. A node that is absent while one of its ancestors is
// resident cannot be derived. Such nodes lie inside an untouched subtree or a
// collapsed one.
//
// Tree is not safe for concurrent use.
package bintree

import (
	"errors"
	"fmt"
	"hash"

	"github.com/forestrie/go-logindex/gti"
	"github.com/holiman/uint256"
)

// EmptyNodeFunc defines the tree schema. It returns the value an index holds
// in a freshly expanded, previously untouched region, and an error for
// indices outside the schema.
type EmptyNodeFunc func(index gti.Index) (uint256.Int, error)

// CollapseSink receives every node discarded by Collapse, before it is
// dropped from memory.
type CollapseSink interface {
	PutNode(index gti.Index, value uint256.Int) error
}

// NodeReader serves nodes that are no longer resident, typically from the
// store a CollapseSink writes to.
type NodeReader interface {
	GetNode(index gti.Index) (uint256.Int, error)
}

type Tree struct {
	hasher    hash.Hash
	emptyNode EmptyNodeFunc
	sink      CollapseSink
	reader    NodeReader

	nodes     map[gti.Index]uint256.Int
	collapsed map[gti.Index]struct{}
}

// New creates a tree with only the root resident, holding its default value.
func New(hasher hash.Hash, emptyNode EmptyNodeFunc, opts ...Option) (*Tree, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	t := &Tree{
		hasher:    hasher,
		emptyNode: emptyNode,
		sink:      o.Sink,
		reader:    o.Reader,
		nodes:     map[gti.Index]uint256.Int{},
		collapsed: map[gti.Index]struct{}{},
	}
	root, err := emptyNode(gti.Root)
	if err != nil {
		return nil, err
	}
	t.nodes[gti.Root] = root
	return t, nil
}

// Len returns the number of resident nodes
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Has reports whether the node is resident
func (t *Tree) Has(index gti.Index) bool {
	_, ok := t.nodes[index]
	return ok
}

// IsCollapsed reports whether the node is the root of a collapsed subtree
func (t *Tree) IsCollapsed(index gti.Index) bool {
	_, ok := t.collapsed[index]
	return ok
}

// Get returns the value of a node, deriving and caching it from its
// descendants if it has been invalidated.
func (t *Tree) Get(index gti.Index) (uint256.Int, error) {
	if v, ok := t.nodes[index]; ok {
		return v, nil
	}
	if t.hasResidentAncestor(index) {
		return uint256.Int{}, fmt.Errorf("%w: %s", ErrNodeUnavailable, index)
	}
	return t.derive(index)
}

// derive computes an invalidated node bottom up. Every absent node met on
// the way has no resident ancestor, so it is itself invalidated and has to be
// derived from its children in turn.
func (t *Tree) derive(index gti.Index) (uint256.Int, error) {
	stack := []gti.Index{index}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if _, ok := t.nodes[top]; ok {
			stack = stack[:len(stack)-1]
			continue
		}
		if top.Height() >= gti.MaxHeight {
			return uint256.Int{}, fmt.Errorf("%w: %s", ErrMaxHeight, top)
		}
		left, right := top.Left(), top.Right()
		lv, lok := t.nodes[left]
		rv, rok := t.nodes[right]
		if lok && rok {
			t.nodes[top] = HashPair(t.hasher, &lv, &rv)
			stack = stack[:len(stack)-1]
			continue
		}
		if !lok {
			stack = append(stack, left)
		}
		if !rok {
			stack = append(stack, right)
		}
	}
	return t.nodes[index], nil
}

// Set writes a node, expanding the tree down to it first if it lies in an
// untouched region, and invalidates its cached ancestors. A node below a
// collapsed one is reopened first, see Reopen.
func (t *Tree) Set(index gti.Index, value uint256.Int) error {
	if _, ok := t.nodes[index]; !ok {
		if err := t.Reopen(index); err != nil {
			return err
		}
	}
	if _, ok := t.nodes[index]; !ok {
		if err := t.Expand(index); err != nil {
			return err
		}
	}
	t.nodes[index] = value
	t.invalidateAncestors(index)
	return nil
}

// Expand makes the node resident with its default value, materialising the
// default siblings of every newly expanded node on the path up to the nearest
// resident ancestor. A resident node is left alone, but it must still hold its
// default value.
//
// Expanding a container root initialises the container, so the resident
// ancestors are invalidated.
func (t *Tree) Expand(index gti.Index) error {
	path := []gti.Index{}
	cur := index
	for {
		if _, ok := t.nodes[cur]; ok {
			break
		}
		if cur.IsRoot() {
			// Nothing on the way up is resident, the node is invalidated
			// rather than untouched.
			if _, err := t.derive(index); err != nil {
				return err
			}
			path = path[:0]
			cur = index
			break
		}
		path = append(path, cur)
		cur = cur.Parent()
	}

	if len(path) > 0 {
		if _, ok := t.collapsed[cur]; ok {
			if t.reader == nil {
				return fmt.Errorf("%w: %s below %s", ErrCollapsedSubtree, index, cur)
			}
			if err := t.reopen(cur); err != nil {
				return err
			}
			return t.Expand(index)
		}
	}
	if err := t.checkDefault(cur); err != nil {
		return err
	}
	if len(path) == 0 {
		return nil
	}

	for _, n := range path {
		if _, err := t.emptyNode(n); err != nil {
			return err
		}
		sib := n.Sibling()
		if _, ok := t.nodes[sib]; !ok {
			sv, err := t.emptyNode(sib)
			if err != nil {
				return err
			}
			t.nodes[sib] = sv
		}
	}
	v, err := t.emptyNode(index)
	if err != nil {
		return err
	}
	t.nodes[index] = v

	// The intermediate nodes are left absent, derivable from the siblings
	// just materialised. The old default at cur no longer holds.
	delete(t.nodes, cur)
	t.invalidateAncestors(cur)
	return nil
}

func (t *Tree) checkDefault(index gti.Index) error {
	want, err := t.emptyNode(index)
	if err != nil {
		return err
	}
	if got := t.nodes[index]; got != want {
		return fmt.Errorf("%w: %s", ErrExpandNonEmpty, index)
	}
	return nil
}

// Collapse reduces the subtree below index to its root. Discarded nodes are
// passed to the sink, if one is configured. Collapsing a node inside an
// untouched region does nothing, the region is already represented by a
// single resident node.
func (t *Tree) Collapse(index gti.Index) error {
	if _, err := t.Get(index); err != nil {
		if errors.Is(err, ErrNodeUnavailable) {
			return nil
		}
		return err
	}

	stack := []gti.Index{index}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Height() >= gti.MaxHeight {
			continue
		}
		for _, child := range []gti.Index{top.Left(), top.Right()} {
			v, ok := t.nodes[child]
			if !ok {
				continue
			}
			stack = append(stack, child)
			if t.sink != nil {
				if err := t.sink.PutNode(child, v); err != nil {
					return err
				}
			}
			delete(t.nodes, child)
			delete(t.collapsed, child)
		}
	}
	t.collapsed[index] = struct{}{}
	return nil
}

// Reopen reloads, from the node reader, the nodes discarded by every
// collapse on the path down to index. Afterwards index is resident, or lies
// in an untouched region, and can be read with Get and written with Set.
//
// Without a node reader a path through a collapsed node fails with
// ErrCollapsedSubtree.
func (t *Tree) Reopen(index gti.Index) error {
	for {
		cur := index
		for {
			if _, ok := t.nodes[cur]; ok {
				break
			}
			if cur.IsRoot() {
				return nil
			}
			cur = cur.Parent()
		}
		if cur == index {
			return nil
		}
		if _, ok := t.collapsed[cur]; !ok {
			return nil
		}
		if t.reader == nil {
			return fmt.Errorf("%w: %s below %s", ErrCollapsedSubtree, index, cur)
		}
		if err := t.reopen(cur); err != nil {
			return err
		}
	}
}

// reopen restores the children of a collapsed node. They become collapsed
// nodes in turn. A collapsed node still holding its default had no resident
// children, it is simply no longer marked.
func (t *Tree) reopen(index gti.Index) error {
	left, right := index.Left(), index.Right()
	lv, lerr := t.reader.GetNode(left)
	rv, rerr := t.reader.GetNode(right)
	if errors.Is(lerr, ErrNodeNotFound) && errors.Is(rerr, ErrNodeNotFound) {
		if err := t.checkDefault(index); err != nil {
			return fmt.Errorf("%w: %s", ErrCollapsedSubtree, index)
		}
		delete(t.collapsed, index)
		return nil
	}
	if lerr != nil {
		return fmt.Errorf("reopen %s: %w", index, lerr)
	}
	if rerr != nil {
		return fmt.Errorf("reopen %s: %w", index, rerr)
	}
	t.nodes[left] = lv
	t.nodes[right] = rv
	t.collapsed[left] = struct{}{}
	t.collapsed[right] = struct{}{}
	delete(t.collapsed, index)
	return nil
}

// invalidateAncestors drops cached ancestors up to the first absent one. An
// absent node always has absent ancestors, up to any untouched region.
func (t *Tree) invalidateAncestors(index gti.Index) {
	for !index.IsRoot() {
		index = index.Parent()
		if _, ok := t.nodes[index]; !ok {
			return
		}
		delete(t.nodes, index)
	}
}

func (t *Tree) hasResidentAncestor(index gti.Index) bool {
	for !index.IsRoot() {
		index = index.Parent()
		if _, ok := t.nodes[index]; ok {
			return true
		}
	}
	return false
}

// Range calls fn for each resident node, in no particular order, until fn
// returns false.
func (t *Tree) Range(fn func(index gti.Index, value uint256.Int, collapsed bool) bool) {
	for i, v := range t.nodes {
		_, c := t.collapsed[i]
		if !fn(i, v, c) {
			return
		}
	}
}

// Load installs a resident node verbatim, without expansion or invalidation.
// It is intended for restoring a tree from a previously captured set of
// resident nodes. Restoration must begin with Reset.
func (t *Tree) Load(index gti.Index, value uint256.Int, collapsed bool) {
	t.nodes[index] = value
	if collapsed {
		t.collapsed[index] = struct{}{}
	}
}

// Reset drops every resident node, including the root
func (t *Tree) Reset() {
	t.nodes = map[gti.Index]uint256.Int{}
	t.collapsed = map[gti.Index]struct{}{}
}
