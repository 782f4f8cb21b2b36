package meshbvh

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	log "github.com/sirupsen/logrus"
)

// HitTest accepts or rejects a node box.
type HitTest func(box BoundingBox) bool

// Tree is a bounding volume hierarchy over the triangles of a Geometry.
//
// Queries may run concurrently with each other. Refit and Rebuild take an
// exclusive lock and wait for in-flight queries to finish.
type Tree struct {
	mu sync.RWMutex

	geometry *Geometry

	// Owned and reordered in direct mode, borrowed from the geometry (and
	// possibly nil) in indirect mode.
	index IndexBuffer

	// Logical primitive slot -> geometry triangle, nil in direct mode.
	indirect []uint32

	ranges []Range
	roots  [][]Node

	opts   Options
	logger log.FieldLogger
}

// NewTree validates the geometry and builds a hierarchy over it. On error
// no tree is returned.
func NewTree(geo *Geometry, opts Options) (*Tree, error) {
	t := &Tree{}
	if err := t.build(geo, opts); err != nil {
		return nil, err
	}
	return t, nil
}

// Rebuild replaces the hierarchy with one built from the current geometry
// using opts. The tree is left untouched if validation fails.
func (t *Tree) Rebuild(opts Options) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := &Tree{}
	if err := next.build(t.geometry, opts); err != nil {
		return err
	}
	t.geometry, t.index, t.indirect = next.geometry, next.index, next.indirect
	t.ranges, t.roots = next.ranges, next.roots
	t.opts, t.logger = next.opts, next.logger
	return nil
}

func (t *Tree) build(geo *Geometry, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := geo.validate(); err != nil {
		return err
	}
	ranges, err := geo.rootRanges()
	if err != nil {
		return err
	}

	t.geometry = geo
	t.opts = opts
	t.logger = opts.logger()
	t.ranges = ranges
	t.setupIndex()

	t.roots = newBuilder(t, opts).build(ranges)
	return nil
}

func (t *Tree) setupIndex() {
	geo := t.geometry
	count := geo.TriangleCount()

	if t.opts.Indirect {
		t.index = geo.Index
		t.indirect = make([]uint32, count)
		for i := range t.indirect {
			t.indirect[i] = uint32(i)
		}
		return
	}

	t.indirect = nil
	t.index = NewIndexBuffer(geo.Positions.Len(), 3*count)
	for i := 0; i < 3*count; i++ {
		if geo.Index != nil {
			t.index.Set(i, geo.Index.At(i))
		} else {
			t.index.Set(i, i)
		}
	}
}

func (t *Tree) primitiveCount() int {
	return t.geometry.TriangleCount()
}

// FaceIndex maps a logical primitive slot onto the triangle id reported by
// queries: the geometry's own triangle order in indirect mode, the slot in
// the tree's index buffer otherwise.
func (t *Tree) FaceIndex(i int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.faceIndex(i)
}

func (t *Tree) faceIndex(i int) int {
	if t.indirect != nil {
		return int(t.indirect[i])
	}
	return i
}

// faceVertices resolves a face id to its vertex indices.
func (t *Tree) faceVertices(face int) (int, int, int) {
	if t.index != nil {
		return t.index.At(3 * face), t.index.At(3*face + 1), t.index.At(3*face + 2)
	}
	return 3 * face, 3*face + 1, 3*face + 2
}

func (t *Tree) triangle(i int) Triangle {
	return t.faceTriangle(t.faceIndex(i))
}

// FaceTriangle resolves a face id as reported by queries.
func (t *Tree) FaceTriangle(face int) Triangle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.faceTriangle(face)
}

func (t *Tree) faceTriangle(face int) Triangle {
	a, b, c := t.faceVertices(face)
	pos := t.geometry.Positions
	return Triangle{pos.At(a), pos.At(b), pos.At(c)}
}

// TriangleAt resolves the triangle stored in logical primitive slot i, as
// addressed by leaf ranges.
func (t *Tree) TriangleAt(i int) Triangle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.triangle(i)
}

func (t *Tree) swapPrimitives(i, j int) {
	if t.indirect != nil {
		t.indirect[i], t.indirect[j] = t.indirect[j], t.indirect[i]
		return
	}
	for k := 0; k < 3; k++ {
		a, b := t.index.At(3*i+k), t.index.At(3*j+k)
		t.index.Set(3*i+k, b)
		t.index.Set(3*j+k, a)
	}
}

// Geometry returns the geometry the tree was built over.
func (t *Tree) Geometry() *Geometry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.geometry
}

// Index returns the index buffer queries resolve faces through. In direct
// mode it is owned by the tree and ordered to match the leaves.
func (t *Tree) Index() IndexBuffer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index
}

// Indirect returns the permutation buffer, or nil in direct mode.
func (t *Tree) Indirect() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.indirect
}

func (t *Tree) Options() Options {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.opts
}

func (t *Tree) PrimitiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.primitiveCount()
}

// RootCount returns the number of independent roots.
func (t *Tree) RootCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roots)
}

// Root returns the flattened records of root i. The slice must not be modified.
func (t *Tree) Root(i int) []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roots[i]
}

// Box returns the union of every root box.
func (t *Tree) Box() BoundingBox {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.box()
}

func (t *Tree) box() BoundingBox {
	b := EmptyBox()
	for _, nodes := range t.roots {
		b = b.Expand(nodes[0].Box)
	}
	return b
}

// Traverse returns the face ids of every leaf reachable through boxes
// accepted by test.
func (t *Tree) Traverse(test HitTest) (hits []int) {
	t.Shapecast(ShapecastCallbacks{
		IntersectsBounds: func(box BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
			if test(box) {
				return Intersected
			}
			return NotIntersected
		},
		IntersectsRange: func(offset, count int, contained bool, depth, nodeIndex int, box BoundingBox) bool {
			for i := offset; i < offset+count; i++ {
				hits = append(hits, t.faceIndex(i))
			}
			return false
		},
	})
	return hits
}

// localMatrix inverts a world matrix, panicking on singular input.
func localMatrix(world mgl64.Mat4) mgl64.Mat4 {
	if world.Det() == 0 {
		panic("meshbvh: singular world matrix")
	}
	return world.Inv()
}
