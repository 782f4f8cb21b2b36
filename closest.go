package meshbvh

import "github.com/go-gl/mathgl/mgl64"

// PointResult is the surface point nearest to a query point.
type PointResult struct {
	Point    mgl64.Vec3
	Distance float64
	Face     int
}

// PairResult is the closest pair of surface points between the tree and
// another mesh. Both points are expressed in the tree's local space.
type PairResult struct {
	Point      mgl64.Vec3
	OtherPoint mgl64.Vec3
	Distance   float64
	Face       int
	OtherFace  int
}

// ClosestPointToPoint returns the surface point nearest to p. Only points
// within maxDistance are considered; the search stops early once a point
// within minDistance is found.
func (t *Tree) ClosestPointToPoint(p mgl64.Vec3, minDistance, maxDistance float64) (PointResult, bool) {
	return t.closestPointToPoint(p, nil, minDistance, maxDistance)
}

// ClosestPointToPointWorld answers ClosestPointToPoint for a world space
// point against the mesh placed by world. Distances and the returned point
// are in world space, so the result stays exact under non-uniform scale.
func (t *Tree) ClosestPointToPointWorld(p mgl64.Vec3, world mgl64.Mat4, minDistance, maxDistance float64) (PointResult, bool) {
	return t.closestPointToPoint(p, &world, minDistance, maxDistance)
}

func (t *Tree) closestPointToPoint(p mgl64.Vec3, world *mgl64.Mat4, minDistance, maxDistance float64) (PointResult, bool) {
	checkDistanceRange(minDistance, maxDistance)

	best := PointResult{Distance: maxDistance}
	found := false
	t.Shapecast(ShapecastCallbacks{
		BoundsTraverseOrder: func(box BoundingBox) float64 {
			if world != nil {
				box = box.Transform(*world)
			}
			return box.DistanceToPoint(p)
		},
		IntersectsBounds: func(box BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
			if score <= best.Distance {
				return Intersected
			}
			return NotIntersected
		},
		IntersectsTriangle: func(tri Triangle, face int, contained bool, depth int) bool {
			if world != nil {
				tri = tri.Transform(*world)
			}
			q, _ := tri.ClosestPoint(p)
			d := q.Sub(p).Len()
			if d < best.Distance || (!found && d <= best.Distance) {
				best = PointResult{Point: q, Distance: d, Face: face}
				found = true
			}
			return found && best.Distance <= minDistance
		},
	})
	return best, found
}

// ClosestPointToGeometry returns the closest pair of points between the tree
// and the triangles of geo placed in local space by geoToLocal.
func (t *Tree) ClosestPointToGeometry(geo *Geometry, geoToLocal mgl64.Mat4, minDistance, maxDistance float64) (PairResult, bool) {
	checkDistanceRange(minDistance, maxDistance)
	if err := geo.validate(); err != nil {
		panic(err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	s := pairSearch{best: PairResult{Distance: maxDistance}, minDistance: minDistance}
	treeBox := t.box()
	for i := 0; i < geo.TriangleCount(); i++ {
		other := geo.Triangle(i).Transform(geoToLocal)
		otherBox := other.Box()
		if treeBox.DistanceToBox(otherBox) > s.best.Distance {
			continue
		}
		face := i
		stop := t.shapecast(ShapecastCallbacks{
			BoundsTraverseOrder: func(box BoundingBox) float64 {
				return box.DistanceToBox(otherBox)
			},
			IntersectsBounds: func(box BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
				if score <= s.best.Distance {
					return Intersected
				}
				return NotIntersected
			},
			IntersectsTriangle: func(tri Triangle, f int, contained bool, depth int) bool {
				return s.consider(tri, f, other, face)
			},
		})
		if stop {
			break
		}
	}
	return s.best, s.found
}

// ClosestPointToTree is ClosestPointToGeometry against another tree. Both
// hierarchies are descended together and a node pair is pruned once the gap
// between its boxes exceeds the best distance found.
func (t *Tree) ClosestPointToTree(other *Tree, otherToLocal mgl64.Mat4, minDistance, maxDistance float64) (PairResult, bool) {
	checkDistanceRange(minDistance, maxDistance)
	if other == nil {
		panic("meshbvh: closest point query requires a tree")
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if other != t {
		other.mu.RLock()
		defer other.mu.RUnlock()
	}

	s := &pairSearch{best: PairResult{Distance: maxDistance}, minDistance: minDistance}
	for _, a := range t.roots {
		for _, b := range other.roots {
			c := closestCursor{tree: t, other: other, a: a, b: b, m: otherToLocal, search: s}
			if c.visit(0, 0) {
				return s.best, s.found
			}
		}
	}
	return s.best, s.found
}

type pairSearch struct {
	best        PairResult
	found       bool
	minDistance float64
}

// consider records the pair if it improves on the best and reports whether
// the search can stop.
func (s *pairSearch) consider(a Triangle, faceA int, b Triangle, faceB int) bool {
	p, q, d := a.ClosestPointsToTriangle(b)
	if d < s.best.Distance || (!s.found && d <= s.best.Distance) {
		s.best = PairResult{Point: p, OtherPoint: q, Distance: d, Face: faceA, OtherFace: faceB}
		s.found = true
	}
	return s.found && s.best.Distance <= s.minDistance
}

type closestCursor struct {
	tree, other *Tree
	a, b        []Node
	m           mgl64.Mat4
	search      *pairSearch
}

func (c *closestCursor) otherBox(j int) BoundingBox {
	return c.b[j].Box.Transform(c.m)
}

func (c *closestCursor) visit(i, j int) bool {
	na, nb := &c.a[i], &c.b[j]
	boxB := c.otherBox(j)
	if na.Box.DistanceToBox(boxB) > c.search.best.Distance {
		return false
	}

	leafA, aIsLeaf := na.Leaf()
	leafB, bIsLeaf := nb.Leaf()
	if aIsLeaf && bIsLeaf {
		for jb := leafB.Start; jb < leafB.End(); jb++ {
			tb := c.other.triangle(jb).Transform(c.m)
			faceB := c.other.faceIndex(jb)
			for ia := leafA.Start; ia < leafA.End(); ia++ {
				if c.search.consider(c.tree.triangle(ia), c.tree.faceIndex(ia), tb, faceB) {
					return true
				}
			}
		}
		return false
	}

	// Split the larger side and visit the nearer child pair first.
	type pair struct {
		i, j int
		d    float64
	}
	var p1, p2 pair
	if bIsLeaf || (!aIsLeaf && na.Box.SurfaceArea() >= boxB.SurfaceArea()) {
		l, r := leftChild(i), rightChild(c.a, i)
		p1 = pair{l, j, c.a[l].Box.DistanceToBox(boxB)}
		p2 = pair{r, j, c.a[r].Box.DistanceToBox(boxB)}
	} else {
		l, r := leftChild(j), rightChild(c.b, j)
		p1 = pair{i, l, na.Box.DistanceToBox(c.otherBox(l))}
		p2 = pair{i, r, na.Box.DistanceToBox(c.otherBox(r))}
	}
	if p2.d < p1.d {
		p1, p2 = p2, p1
	}
	if c.visit(p1.i, p1.j) {
		return true
	}
	return c.visit(p2.i, p2.j)
}
