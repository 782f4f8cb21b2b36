package meshbvh

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Size of one node record in the binary encoding: six float64 box
// coordinates, two uint32 header words and the uint16 tag.
const nodeByteStride = 6*8 + 4 + 4 + 2

// flatten encodes the arena subtree at root depth first into out.
func flatten(arena []buildNode, root int32, out []Node) []Node {
	var walk func(i int32)
	walk = func(i int32) {
		n := &arena[i]
		if n.left < 0 {
			out = append(out, newLeafNode(n.box, n.offset, n.count))
			return
		}
		at := len(out)
		out = append(out, Node{})
		walk(n.left)
		right := len(out)
		walk(n.right)
		out[at] = newInternalNode(n.box, right-at, n.axis)
	}
	walk(root)
	return out
}

// encodeNodes writes the records in little endian order.
func encodeNodes(nodes []Node) []byte {
	buf := make([]byte, len(nodes)*nodeByteStride)
	for i := range nodes {
		rec := buf[i*nodeByteStride:]
		n := &nodes[i]
		for axis := 0; axis < 3; axis++ {
			binary.LittleEndian.PutUint64(rec[axis*8:], math.Float64bits(n.Box.Min[axis]))
			binary.LittleEndian.PutUint64(rec[24+axis*8:], math.Float64bits(n.Box.Max[axis]))
		}
		binary.LittleEndian.PutUint32(rec[48:], n.word0)
		binary.LittleEndian.PutUint32(rec[52:], n.word1)
		binary.LittleEndian.PutUint16(rec[56:], n.tag)
	}
	return buf
}

// decodeNodes parses records written by encodeNodes and checks that every
// child offset and leaf range stays inside its bounds.
func decodeNodes(buf []byte, primitiveCount int) ([]Node, error) {
	if len(buf) == 0 || len(buf)%nodeByteStride != 0 {
		return nil, fmt.Errorf("%w: node buffer of %d bytes", ErrSnapshotCorrupt, len(buf))
	}
	nodes := make([]Node, len(buf)/nodeByteStride)
	for i := range nodes {
		rec := buf[i*nodeByteStride:]
		n := &nodes[i]
		for axis := 0; axis < 3; axis++ {
			n.Box.Min[axis] = math.Float64frombits(binary.LittleEndian.Uint64(rec[axis*8:]))
			n.Box.Max[axis] = math.Float64frombits(binary.LittleEndian.Uint64(rec[24+axis*8:]))
		}
		n.word0 = binary.LittleEndian.Uint32(rec[48:])
		n.word1 = binary.LittleEndian.Uint32(rec[52:])
		n.tag = binary.LittleEndian.Uint16(rec[56:])

		switch {
		case n.tag == leafTag:
			if n.word1 == 0 || int(n.word0)+int(n.word1) > primitiveCount {
				return nil, fmt.Errorf("%w: leaf %d covers [%d, %d)", ErrSnapshotCorrupt, i, n.word0, n.word0+n.word1)
			}
		case n.tag != 0:
			return nil, fmt.Errorf("%w: node %d has tag %#x", ErrSnapshotCorrupt, i, n.tag)
		case n.word1 > uint32(Z):
			return nil, fmt.Errorf("%w: node %d has split axis %d", ErrSnapshotCorrupt, i, n.word1)
		case n.word0 < 2 || i+int(n.word0) >= len(nodes):
			return nil, fmt.Errorf("%w: node %d has right offset %d", ErrSnapshotCorrupt, i, n.word0)
		}
	}
	if !nodes[len(nodes)-1].IsLeaf() {
		return nil, fmt.Errorf("%w: last record is not a leaf", ErrSnapshotCorrupt)
	}
	return nodes, nil
}
