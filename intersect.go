package meshbvh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// IntersectsBox reports whether any triangle touches box after boxToLocal
// carries it into the tree's local space.
func (t *Tree) IntersectsBox(box BoundingBox, boxToLocal mgl64.Mat4) bool {
	if box.IsEmpty() {
		panic("meshbvh: intersects box called with an empty box")
	}
	obb := NewOrientedBox(box, boxToLocal)
	return t.Shapecast(ShapecastCallbacks{
		IntersectsBounds: func(b BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
			if !obb.IntersectsBox(b) {
				return NotIntersected
			}
			if obb.ContainsBox(b) {
				return Contained
			}
			return Intersected
		},
		IntersectsTriangle: func(tri Triangle, face int, contained bool, depth int) bool {
			return contained || obb.IntersectsTriangle(tri)
		},
	})
}

// IntersectsSphere reports whether any triangle lies within radius of center.
func (t *Tree) IntersectsSphere(center mgl64.Vec3, radius float64) bool {
	if !(radius >= 0) {
		panic(fmt.Sprintf("meshbvh: invalid sphere radius %v", radius))
	}
	return t.Shapecast(ShapecastCallbacks{
		IntersectsBounds: func(b BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
			if !(b.DistanceToPoint(center) <= radius) {
				return NotIntersected
			}
			if b.MaxDistanceToPoint(center) <= radius {
				return Contained
			}
			return Intersected
		},
		IntersectsTriangle: func(tri Triangle, face int, contained bool, depth int) bool {
			return contained || tri.IntersectsSphere(center, radius)
		},
	})
}

// IntersectsGeometry reports whether any triangle of geo, placed in the
// tree's local space by geoToLocal, intersects the tree.
func (t *Tree) IntersectsGeometry(geo *Geometry, geoToLocal mgl64.Mat4) bool {
	if err := geo.validate(); err != nil {
		panic(err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	treeBox := t.box()
	for i := 0; i < geo.TriangleCount(); i++ {
		other := geo.Triangle(i).Transform(geoToLocal)
		otherBox := other.Box()
		if !otherBox.Intersects(treeBox) {
			continue
		}
		hit := t.shapecast(ShapecastCallbacks{
			IntersectsBounds: func(b BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
				if b.Intersects(otherBox) {
					return Intersected
				}
				return NotIntersected
			},
			IntersectsTriangle: func(tri Triangle, face int, contained bool, depth int) bool {
				return tri.IntersectsTriangle(other)
			},
		})
		if hit {
			return true
		}
	}
	return false
}

// IntersectsTree reports whether the two meshes touch when other is placed
// in the receiver's local space by otherToLocal.
func (t *Tree) IntersectsTree(other *Tree, otherToLocal mgl64.Mat4) bool {
	return t.Bvhcast(other, otherToLocal, func(a, b LeafRange) bool {
		for j := b.Offset; j < b.Offset+b.Count; j++ {
			tb := other.triangle(j).Transform(otherToLocal)
			for i := a.Offset; i < a.Offset+a.Count; i++ {
				if t.triangle(i).IntersectsTriangle(tb) {
					return true
				}
			}
		}
		return false
	})
}

// checkDistanceRange panics on a malformed distance window.
func checkDistanceRange(minDistance, maxDistance float64) {
	if math.IsNaN(minDistance) || math.IsNaN(maxDistance) || minDistance < 0 || minDistance > maxDistance {
		panic(fmt.Sprintf("meshbvh: invalid distance range [%v, %v]", minDistance, maxDistance))
	}
}
