package meshbvh

import (
	"math"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/ImVexed/meshbvh/internal/mesh"
)

func geometryOf(m *mesh.Mesh) *Geometry {
	geo := NewGeometry(m.Positions, m.Indices)
	for _, g := range m.Groups {
		geo.Groups = append(geo.Groups, Range{Start: g.Start, Count: g.Count})
	}
	return geo
}

// quietOptions returns the defaults with logging routed to a discarding logger.
func quietOptions() Options {
	logger, _ := test.NewNullLogger()
	opts := DefaultOptions()
	opts.Logger = logger
	return opts
}

func buildTree(tb testing.TB, m *mesh.Mesh, opts Options) *Tree {
	tb.Helper()
	tree, err := NewTree(geometryOf(m), opts)
	require.NoError(tb, err)
	require.NoError(tb, tree.Validate())
	return tree
}

// bruteRaycast tests every triangle of the geometry and returns the sorted
// hit distances.
func bruteRaycast(geo *Geometry, ray Ray, near, far float64, side Side) []float64 {
	ray, ok := normalizeRay(ray)
	if !ok {
		return nil
	}
	var out []float64
	for i := 0; i < geo.TriangleCount(); i++ {
		if d, _, _, ok := geo.Triangle(i).intersectRay(ray.Origin, ray.Direction, side, near, far); ok {
			out = append(out, d)
		}
	}
	sort.Float64s(out)
	return out
}

func hitDistances(hits []Hit) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.Distance
	}
	return out
}

// bruteClosest returns the distance from p to the nearest triangle.
func bruteClosest(geo *Geometry, p mgl64.Vec3) float64 {
	best := math.Inf(1)
	for i := 0; i < geo.TriangleCount(); i++ {
		q, _ := geo.Triangle(i).ClosestPoint(p)
		best = math.Min(best, q.Sub(p).Len())
	}
	return best
}

// checkUnion asserts every internal box equals the union of its children.
func checkUnion(tb testing.TB, tree *Tree) {
	tb.Helper()
	for r := 0; r < tree.RootCount(); r++ {
		nodes := tree.Root(r)
		for i := range nodes {
			if nodes[i].IsLeaf() {
				continue
			}
			union := nodes[leftChild(i)].Box.Expand(nodes[rightChild(nodes, i)].Box)
			require.True(tb, nodes[i].Box.ApproxEquals(union, 1e-9), "root %d node %d", r, i)
		}
	}
}

// leafRanges collects the leaf ranges of every root in order.
func leafRanges(tree *Tree) []LeafNode {
	var out []LeafNode
	for r := 0; r < tree.RootCount(); r++ {
		for _, n := range tree.Root(r) {
			if leaf, ok := n.Leaf(); ok {
				out = append(out, leaf)
			}
		}
	}
	return out
}

func randomRay(rng interface{ Float64() float64 }, size float64) Ray {
	origin := mgl64.Vec3{rng.Float64() * size, rng.Float64() * size, -size}
	target := mgl64.Vec3{rng.Float64() * size, rng.Float64() * size, rng.Float64() * size}
	return Ray{Origin: origin, Direction: target.Sub(origin)}
}
