package meshbvh

// BoundsIntersection is the verdict of a bounds test during a shapecast.
type BoundsIntersection int

const (
	NotIntersected BoundsIntersection = iota
	Intersected
	// Contained accepts the whole subtree without testing its descendants.
	Contained
)

// ShapecastCallbacks parameterize a traversal. Every field is optional
// except IntersectsBounds.
type ShapecastCallbacks struct {
	// BoundsTraverseOrder scores a child box; the lower scoring child is
	// visited first and the score is passed on to IntersectsBounds.
	BoundsTraverseOrder func(box BoundingBox) float64

	// IntersectsBounds decides whether to descend into a node.
	IntersectsBounds func(box BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection

	// IntersectsRange receives the logical primitive span of a leaf or a
	// contained subtree. Returning true ends the traversal.
	IntersectsRange func(offset, count int, contained bool, depth, nodeIndex int, box BoundingBox) bool

	// IntersectsTriangle receives each primitive of a visited range with its
	// face id. Returning true ends the traversal.
	IntersectsTriangle func(tri Triangle, face int, contained bool, depth int) bool
}

// Shapecast walks every root with the supplied callbacks and reports whether
// a callback ended the traversal early.
func (t *Tree) Shapecast(cb ShapecastCallbacks) bool {
	if cb.IntersectsBounds == nil {
		panic("meshbvh: shapecast requires IntersectsBounds")
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shapecast(cb)
}

func (t *Tree) shapecast(cb ShapecastCallbacks) bool {
	for _, nodes := range t.roots {
		score := 0.0
		if cb.BoundsTraverseOrder != nil {
			score = cb.BoundsTraverseOrder(nodes[0].Box)
		}
		if t.shapecastVisit(nodes, 0, 0, score, cb) {
			return true
		}
	}
	return false
}

// shapecastVisit tests node i and descends into it when accepted.
func (t *Tree) shapecastVisit(nodes []Node, i, depth int, score float64, cb ShapecastCallbacks) bool {
	n := &nodes[i]
	switch cb.IntersectsBounds(n.Box, n.IsLeaf(), score, depth, i) {
	case Contained:
		r := subtreeRange(nodes, i)
		return t.intersectRange(r.Start, r.Count, true, depth, i, n.Box, cb)
	case Intersected:
		return t.shapecastDescend(nodes, i, depth, cb)
	default:
		return false
	}
}

func (t *Tree) shapecastDescend(nodes []Node, i, depth int, cb ShapecastCallbacks) bool {
	n := &nodes[i]
	if leaf, ok := n.Leaf(); ok {
		return t.intersectRange(leaf.Start, leaf.Count, false, depth, i, n.Box, cb)
	}

	c1, c2 := leftChild(i), rightChild(nodes, i)
	s1, s2 := 0.0, 0.0
	if cb.BoundsTraverseOrder != nil {
		s1 = cb.BoundsTraverseOrder(nodes[c1].Box)
		s2 = cb.BoundsTraverseOrder(nodes[c2].Box)
		if s2 < s1 {
			c1, c2 = c2, c1
			s1, s2 = s2, s1
		}
	}

	// The second child is tested only after the first subtree completes so
	// that IntersectsBounds can prune it against the best result so far.
	if t.shapecastVisit(nodes, c1, depth+1, s1, cb) {
		return true
	}
	return t.shapecastVisit(nodes, c2, depth+1, s2, cb)
}

func (t *Tree) intersectRange(offset, count int, contained bool, depth, nodeIndex int, box BoundingBox, cb ShapecastCallbacks) bool {
	if cb.IntersectsRange != nil && cb.IntersectsRange(offset, count, contained, depth, nodeIndex, box) {
		return true
	}
	if cb.IntersectsTriangle != nil {
		for i := offset; i < offset+count; i++ {
			if cb.IntersectsTriangle(t.triangle(i), t.faceIndex(i), contained, depth) {
				return true
			}
		}
	}
	return false
}
