package meshbvh

// leafTag marks leaf records. Internal records always carry a zero tag.
const leafTag uint16 = 0xFFFF

// Node is one fixed-size record of a flattened tree. The left child of an
// internal node is always the next record; the right child sits RightOffset
// records further.
type Node struct {
	Box BoundingBox

	// Right child offset for internal nodes, first primitive for leaves.
	word0 uint32
	// Split axis for internal nodes, primitive count for leaves.
	word1 uint32
	tag   uint16
}

// LeafNode is the decoded header of a leaf record.
type LeafNode struct {
	Start int
	Count int
}

func (l LeafNode) End() int { return l.Start + l.Count }

// InternalNode is the decoded header of an internal record.
type InternalNode struct {
	RightOffset int
	Axis        Axis
}

func newLeafNode(box BoundingBox, start, count int) Node {
	return Node{Box: box, word0: uint32(start), word1: uint32(count), tag: leafTag}
}

func newInternalNode(box BoundingBox, rightOffset int, axis Axis) Node {
	return Node{Box: box, word0: uint32(rightOffset), word1: uint32(axis)}
}

func (n *Node) IsLeaf() bool {
	return n.tag == leafTag
}

// Leaf decodes a leaf header; ok is false for internal records.
func (n *Node) Leaf() (LeafNode, bool) {
	if !n.IsLeaf() {
		return LeafNode{}, false
	}
	return LeafNode{Start: int(n.word0), Count: int(n.word1)}, true
}

// Internal decodes an internal header; ok is false for leaves.
func (n *Node) Internal() (InternalNode, bool) {
	if n.IsLeaf() {
		return InternalNode{}, false
	}
	return InternalNode{RightOffset: int(n.word0), Axis: Axis(n.word1)}, true
}

func leftChild(i int) int {
	return i + 1
}

func rightChild(nodes []Node, i int) int {
	return i + int(nodes[i].word0)
}

// subtreeRange returns the primitive span covered by the subtree at i, found
// by following the leftmost and rightmost paths down to their leaves.
func subtreeRange(nodes []Node, i int) LeafNode {
	lo := i
	for !nodes[lo].IsLeaf() {
		lo = leftChild(lo)
	}
	hi := i
	for !nodes[hi].IsLeaf() {
		hi = rightChild(nodes, hi)
	}
	start := int(nodes[lo].word0)
	end := int(nodes[hi].word0 + nodes[hi].word1)
	return LeafNode{Start: start, Count: end - start}
}
