package meshbvh

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImVexed/meshbvh/internal/mesh"
)

func TestNodeAccessors(t *testing.T) {
	leaf := newLeafNode(unitBox(), 7, 3)
	l, ok := leaf.Leaf()
	require.True(t, ok)
	assert.Equal(t, LeafNode{Start: 7, Count: 3}, l)
	assert.Equal(t, 10, l.End())
	_, ok = leaf.Internal()
	assert.False(t, ok)

	inner := newInternalNode(unitBox(), 5, Y)
	in, ok := inner.Internal()
	require.True(t, ok)
	assert.Equal(t, InternalNode{RightOffset: 5, Axis: Y}, in)
	_, ok = inner.Leaf()
	assert.False(t, ok)
}

func TestFlattenLayout(t *testing.T) {
	opts := quietOptions()
	opts.MaxLeafSize = 4
	tree := buildTree(t, mesh.Sphere(1, 24, 12), opts)
	nodes := tree.Root(0)

	// Depth first: the left child follows its parent and the right child
	// sits after the whole left subtree.
	var walk func(i int) int
	walk = func(i int) int {
		if nodes[i].IsLeaf() {
			return i + 1
		}
		end := walk(leftChild(i))
		require.Equal(t, end, rightChild(nodes, i))
		return walk(rightChild(nodes, i))
	}
	assert.Equal(t, len(nodes), walk(0))
	assert.True(t, nodes[len(nodes)-1].IsLeaf())

	full := subtreeRange(nodes, 0)
	assert.Equal(t, 0, full.Start)
	assert.Equal(t, tree.PrimitiveCount(), full.Count)
}

func TestDecodeNodes(t *testing.T) {
	tree := buildTree(t, mesh.Sphere(1, 16, 8), quietOptions())
	nodes := tree.Root(0)
	buf := encodeNodes(nodes)
	require.Len(t, buf, len(nodes)*nodeByteStride)

	decoded, err := decodeNodes(buf, tree.PrimitiveCount())
	require.NoError(t, err)
	assert.Equal(t, nodes, decoded)

	corrupt := func(mutate func(b []byte)) error {
		b := append([]byte(nil), buf...)
		mutate(b)
		_, err := decodeNodes(b, tree.PrimitiveCount())
		return err
	}

	assert.NoError(t, corrupt(func(b []byte) {}))
	_, err = decodeNodes(buf[:len(buf)-1], tree.PrimitiveCount())
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
	_, err = decodeNodes(nil, tree.PrimitiveCount())
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)

	// Root is internal for this mesh; break its tag, axis and offset.
	require.False(t, nodes[0].IsLeaf())
	assert.ErrorIs(t, corrupt(func(b []byte) { binary.LittleEndian.PutUint16(b[56:], 7) }), ErrSnapshotCorrupt)
	assert.ErrorIs(t, corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[52:], 3) }), ErrSnapshotCorrupt)
	assert.ErrorIs(t, corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[48:], 1) }), ErrSnapshotCorrupt)
	assert.ErrorIs(t, corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[48:], uint32(len(nodes))) }), ErrSnapshotCorrupt)

	// Last record is a leaf; push its range past the primitives.
	last := (len(nodes) - 1) * nodeByteStride
	assert.ErrorIs(t, corrupt(func(b []byte) {
		binary.LittleEndian.PutUint32(b[last+48:], uint32(tree.PrimitiveCount()))
	}), ErrSnapshotCorrupt)
	assert.ErrorIs(t, corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[last+52:], 0) }), ErrSnapshotCorrupt)
}
