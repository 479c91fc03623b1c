package blocktree

import "github.com/polkadot-go/synccore/types"

// node is a TreeNode (spec.md §3). BlockTree exclusively owns nodes;
// children are an owning map, parent is a raw (non-owning) back
// pointer — Go's garbage collector makes the reference cycle this
// creates harmless, unlike in the systems-language original this was
// distilled from, so no arena-of-indices indirection is needed beyond
// the tree's own hash->*node map.
type node struct {
	info     types.BlockInfo
	parent   *node
	children map[types.Hash]*node
	weight   Weight

	hasBody          bool
	hasJustification bool
	finalized        bool
}

func newNode(info types.BlockInfo, parent *node, weight Weight, hasBody bool) *node {
	return &node{
		info:     info,
		parent:   parent,
		children: make(map[types.Hash]*node),
		weight:   weight,
		hasBody:  hasBody,
	}
}

func (n *node) isLeaf() bool { return len(n.children) == 0 }

// isDescendantOf reports whether n is on the path from ancestor down
// to n (inclusive of both endpoints), walking parent pointers.
func (n *node) isDescendantOf(ancestor *node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
