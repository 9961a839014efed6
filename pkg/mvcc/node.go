package mvcc

import (
	"bytes"

	"github.com/calvinalkan/dgmkv/pkg/entry"
)

type color bool

const (
	red   color = true
	black color = false
)

// node is one LLRB tree node. Nodes are immutable once reachable from a
// published root: every mutating operation clones the nodes on its search
// path before touching them, so a reader holding an older root never
// observes a write in progress.
type node struct {
	key   []byte
	entry *entry.Entry
	left  *node
	right *node
	color color
}

func clone(n *node) *node {
	if n == nil {
		return nil
	}

	cp := *n

	return &cp
}

func isRed(n *node) bool {
	return n != nil && n.color == red
}

// find performs a plain, non-mutating search; safe to call concurrently
// with writers since nodes are never mutated post-publish.
func find(n *node, key []byte) *node {
	for n != nil {
		switch c := bytes.Compare(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}

	return nil
}

// mutateFunc computes the new entry for a key given its current entry (nil
// if the key is absent).
type mutateFunc func(old *entry.Entry) (*entry.Entry, error)

// insert walks to key, cloning every node on the path, applies mutate at
// the leaf, and rebalances on the way back up. It returns the new subtree
// root; the top-level caller must force its color to black.
func insert(h *node, key []byte, mutate mutateFunc) (*node, error) {
	if h == nil {
		e, err := mutate(nil)
		if err != nil {
			return nil, err
		}

		return &node{key: key, entry: e, color: red}, nil
	}

	h = clone(h)

	var err error

	switch c := bytes.Compare(key, h.key); {
	case c < 0:
		h.left, err = insert(h.left, key, mutate)
	case c > 0:
		h.right, err = insert(h.right, key, mutate)
	default:
		h.entry, err = mutate(h.entry)
	}

	if err != nil {
		return nil, err
	}

	return fixUp(h), nil
}

func fixUp(h *node) *node {
	if isRed(h.right) && !isRed(h.left) {
		h = rotateLeft(h)
	}

	if isRed(h.left) && isRed(h.left.left) {
		h = rotateRight(h)
	}

	if isRed(h.left) && isRed(h.right) {
		h = flipColors(h)
	}

	return h
}

// rotateLeft and rotateRight clone the node being promoted before mutating
// it, and rely on the caller (insert) having already cloned h.
func rotateLeft(h *node) *node {
	x := clone(h.right)
	h.right = x.left
	x.left = h
	x.color = h.color
	h.color = red

	return x
}

func rotateRight(h *node) *node {
	x := clone(h.left)
	h.left = x.right
	x.right = h
	x.color = h.color
	h.color = red

	return x
}

// flipColors clones both children before recoloring: they were not
// necessarily cloned on the way down (only the child on the mutated search
// path was), so mutating them in place without cloning first would corrupt
// a node still reachable from an older, already-published root.
func flipColors(h *node) *node {
	h.left = clone(h.left)
	h.right = clone(h.right)

	h.color = !h.color
	h.left.color = !h.left.color
	h.right.color = !h.right.color

	return h
}
