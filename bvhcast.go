package meshbvh

import (
	"github.com/go-gl/mathgl/mgl64"
)

// LeafRange identifies a leaf reached during a dual tree descent.
type LeafRange struct {
	Root   int
	Node   int
	Depth  int
	Offset int
	Count  int
}

// LeafPairFunc receives a pair of leaves, the first from the receiver and the
// second from the other tree, whose boxes could not be separated. Returning
// true ends the traversal.
type LeafPairFunc func(a, b LeafRange) bool

// Bvhcast descends both hierarchies simultaneously. otherToLocal maps the
// other tree's local space into the receiver's. Each node box of the other
// tree is carried into local space as an oriented box and tested against the
// receiver's boxes, so only overlapping leaf pairs reach fn.
func (t *Tree) Bvhcast(other *Tree, otherToLocal mgl64.Mat4, fn LeafPairFunc) bool {
	if other == nil || fn == nil {
		panic("meshbvh: bvhcast requires a tree and a leaf callback")
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if other != t {
		other.mu.RLock()
		defer other.mu.RUnlock()
	}
	return t.bvhcast(other, otherToLocal, fn)
}

func (t *Tree) bvhcast(other *Tree, m mgl64.Mat4, fn LeafPairFunc) bool {
	for ra, a := range t.roots {
		for rb, b := range other.roots {
			c := dualCursor{a: a, b: b, rootA: ra, rootB: rb, m: m, fn: fn}
			if c.visit(0, 0, 0, 0) {
				return true
			}
		}
	}
	return false
}

type dualCursor struct {
	a, b         []Node
	rootA, rootB int
	m            mgl64.Mat4
	fn           LeafPairFunc
}

func (c *dualCursor) visit(i, depthA, j, depthB int) bool {
	na, nb := &c.a[i], &c.b[j]
	obb := NewOrientedBox(nb.Box, c.m)
	if !obb.IntersectsBox(na.Box) {
		return false
	}

	leafA, aIsLeaf := na.Leaf()
	leafB, bIsLeaf := nb.Leaf()
	switch {
	case aIsLeaf && bIsLeaf:
		return c.fn(
			LeafRange{Root: c.rootA, Node: i, Depth: depthA, Offset: leafA.Start, Count: leafA.Count},
			LeafRange{Root: c.rootB, Node: j, Depth: depthB, Offset: leafB.Start, Count: leafB.Count},
		)
	case bIsLeaf || (!aIsLeaf && na.Box.SurfaceArea() >= obb.Box().SurfaceArea()):
		if c.visit(leftChild(i), depthA+1, j, depthB) {
			return true
		}
		return c.visit(rightChild(c.a, i), depthA+1, j, depthB)
	default:
		if c.visit(i, depthA, leftChild(j), depthB+1) {
			return true
		}
		return c.visit(i, depthA, rightChild(c.b, j), depthB+1)
	}
}
