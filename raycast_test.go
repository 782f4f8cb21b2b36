package meshbvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImVexed/meshbvh/internal/mesh"
)

func TestRaycastSingleTriangle(t *testing.T) {
	// Triangle in the plane x + y + z = 1.
	positions := []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	tree, err := NewTree(NewGeometry(positions, nil), quietOptions())
	require.NoError(t, err)

	origin := mgl64.Vec3{2, 2, 2}
	target := mgl64.Vec3{0.2, 0.3, 0.5}
	ray := Ray{Origin: origin, Direction: target.Sub(origin).Mul(7)}

	hit, ok := tree.RaycastFirst(ray, 0, math.Inf(1), FrontSide)
	require.True(t, ok)
	assert.InDelta(t, target.Sub(origin).Len(), hit.Distance, 1e-6)
	assert.InDelta(t, 0, hit.Point.Sub(target).Len(), 1e-9)
	assert.True(t, hit.FrontFace)
	assert.InDelta(t, 0, hit.Normal.Sub(mgl64.Vec3{1, 1, 1}.Normalize()).Len(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.5}, hit.Barycentric[:], 1e-9)
	assert.Equal(t, [3]int{0, 1, 2}, hit.Vertices)
}

func TestRaycastUnitSquare(t *testing.T) {
	tree := buildTree(t, mesh.Square(), quietOptions())
	ray := Ray{Origin: mgl64.Vec3{0.5, 0.5, 10}, Direction: mgl64.Vec3{0, 0, -1}}

	hit, ok := tree.RaycastFirst(ray, 0, math.Inf(1), FrontSide)
	require.True(t, ok)
	assert.InDelta(t, 10, hit.Distance, 1e-12)
	assert.InDelta(t, 0, hit.Point.Sub(mgl64.Vec3{0.5, 0.5, 0}).Len(), 1e-12)

	hits := tree.Raycast(ray, 0, math.Inf(1), FrontSide)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.InDelta(t, 10, h.Distance, 1e-12)
	}

	_, ok = tree.RaycastFirst(ray, 0, math.Inf(1), BackSide)
	assert.False(t, ok)
	_, ok = tree.RaycastFirst(ray, 0, 9.5, FrontSide)
	assert.False(t, ok)
	_, ok = tree.RaycastFirst(ray, 10.5, 20, FrontSide)
	assert.False(t, ok)
}

func TestRaycastFirstMatchesAllHits(t *testing.T) {
	m := mesh.RandomTriangles(3000, 100, 21)
	tree := buildTree(t, m, quietOptions())
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 200; i++ {
		ray := randomRay(rng, 100)
		hits := tree.Raycast(ray, 0, math.Inf(1), DoubleSide)
		first, ok := tree.RaycastFirst(ray, 0, math.Inf(1), DoubleSide)
		require.Equal(t, len(hits) > 0, ok)
		if ok {
			assert.Equal(t, hits[0].Distance, first.Distance)
		}
		for k := 1; k < len(hits); k++ {
			assert.LessOrEqual(t, hits[k-1].Distance, hits[k].Distance)
		}
	}
}

func TestRaycastSphereSides(t *testing.T) {
	tree := buildTree(t, mesh.Sphere(1, 32, 16), quietOptions())
	ray := Ray{Origin: mgl64.Vec3{0.01, 0.02, -5}, Direction: mgl64.Vec3{0, 0, 1}}

	all := tree.Raycast(ray, 0, math.Inf(1), DoubleSide)
	require.Len(t, all, 2)
	front := tree.Raycast(ray, 0, math.Inf(1), FrontSide)
	back := tree.Raycast(ray, 0, math.Inf(1), BackSide)
	require.Len(t, front, 1)
	require.Len(t, back, 1)
	assert.Less(t, front[0].Distance, back[0].Distance)
	assert.True(t, front[0].FrontFace)
	assert.False(t, back[0].FrontFace)
}

func TestRaycastDegenerateInput(t *testing.T) {
	tree := buildTree(t, mesh.Square(), quietOptions())

	assert.Empty(t, tree.Raycast(Ray{Origin: mgl64.Vec3{0.5, 0.5, 1}}, 0, 1, DoubleSide))
	_, ok := tree.RaycastFirst(Ray{Origin: mgl64.Vec3{0.5, 0.5, 1}, Direction: mgl64.Vec3{math.NaN(), 0, -1}}, 0, 1, DoubleSide)
	assert.False(t, ok)

	// A ray lying in the plane of the square never reports a hit.
	_, ok = tree.RaycastFirst(Ray{Origin: mgl64.Vec3{-1, 0.5, 0}, Direction: mgl64.Vec3{1, 0, 0}}, 0, 10, DoubleSide)
	assert.False(t, ok)

	assert.Panics(t, func() { tree.Raycast(Ray{Direction: mgl64.Vec3{0, 0, 1}}, 2, 1, DoubleSide) })
	assert.Panics(t, func() { tree.Raycast(Ray{Direction: mgl64.Vec3{0, 0, 1}}, math.NaN(), 1, DoubleSide) })
	assert.Panics(t, func() { tree.Raycast(Ray{Direction: mgl64.Vec3{0, 0, 1}}, 0, 1, Side(9)) })
}

func TestHitInterpolate(t *testing.T) {
	geo := NewGeometry(mesh.Square().Positions, mesh.Square().Indices)
	uv := FloatAttribute{Data: []float64{0, 0, 1, 0, 1, 1, 0, 1}, Size: 2}
	geo.Attributes = map[string]Attribute{"uv": uv}

	tree, err := NewTree(geo, quietOptions())
	require.NoError(t, err)

	ray := Ray{Origin: mgl64.Vec3{0.25, 0.75, 1}, Direction: mgl64.Vec3{0, 0, -1}}
	hit, ok := tree.RaycastFirst(ray, 0, math.Inf(1), FrontSide)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, hit.Interpolate(uv), 1e-12)
}

func TestRaycastWorld(t *testing.T) {
	tree := buildTree(t, mesh.Square(), quietOptions())
	// Scale by 4, lift to z=3 and rotate the square to face +y.
	world := mgl64.Translate3D(0, 3, 0).
		Mul4(mgl64.HomogRotate3DX(-math.Pi / 2)).
		Mul4(mgl64.Scale3D(4, 4, 4))

	ray := Ray{Origin: mgl64.Vec3{2, 10, -2}, Direction: mgl64.Vec3{0, -1, 0}}
	hit, ok := tree.RaycastFirstWorld(ray, world, 0, math.Inf(1), FrontSide)
	require.True(t, ok)
	assert.InDelta(t, 7, hit.Distance, 1e-9)
	assert.InDelta(t, 0, hit.Point.Sub(mgl64.Vec3{2, 3, -2}).Len(), 1e-9)
	assert.InDelta(t, 0, hit.Normal.Sub(mgl64.Vec3{0, 1, 0}).Len(), 1e-9)

	_, ok = tree.RaycastFirstWorld(ray, world, 0, 6, FrontSide)
	assert.False(t, ok)

	assert.Panics(t, func() { tree.RaycastWorld(ray, mgl64.Scale3D(0, 1, 1), 0, 1, FrontSide) })
}

func TestRaycastFirstSkipsMissedBoxes(t *testing.T) {
	tree := buildTree(t, mesh.Sphere(1, 100, 51), quietOptions())
	ray := Ray{Origin: mgl64.Vec3{5, 5, 10}, Direction: mgl64.Vec3{0, 0, -1}}

	for _, far := range []float64{math.Inf(1), 100} {
		search := tree.newFirstHitSearch(ray, 0, far, DoubleSide)
		cb := search.callbacks()
		tested := 0
		intersects := cb.IntersectsTriangle
		cb.IntersectsTriangle = func(tri Triangle, face int, contained bool, depth int) bool {
			tested++
			return intersects(tri, face, contained, depth)
		}
		tree.Shapecast(cb)

		assert.False(t, search.found, "far=%v", far)
		assert.Zero(t, tested, "far=%v", far)
	}

	_, ok := tree.RaycastFirst(ray, 0, math.Inf(1), DoubleSide)
	assert.False(t, ok)
}

func TestRaycastFirstWorldMatchesAllHits(t *testing.T) {
	tree := buildTree(t, mesh.Sphere(1, 24, 12), quietOptions())
	world := mgl64.Translate3D(2, 2, 2).
		Mul4(mgl64.Scale3D(1.5, 0.75, 2)).
		Mul4(mgl64.HomogRotate3DY(0.3))

	rng := rand.New(rand.NewSource(17))
	hitCount := 0
	for i := 0; i < 300; i++ {
		ray := randomRay(rng, 4)
		for _, interval := range [][2]float64{{0, math.Inf(1)}, {4.5, 7}} {
			near, far := interval[0], interval[1]
			all := tree.RaycastWorld(ray, world, near, far, DoubleSide)
			first, ok := tree.RaycastFirstWorld(ray, world, near, far, DoubleSide)
			require.Equal(t, len(all) > 0, ok, "ray %d interval %v", i, interval)
			if !ok {
				continue
			}
			hitCount++
			assert.InDelta(t, all[0].Distance, first.Distance, 1e-9)
			assert.InDelta(t, 0, all[0].Point.Sub(first.Point).Len(), 1e-9)
			assert.True(t, first.Distance >= near-1e-9 && first.Distance <= far+1e-9)
		}
	}
	assert.NotZero(t, hitCount)
}
