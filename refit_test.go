package meshbvh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImVexed/meshbvh/internal/mesh"
)

func copyRoots(tree *Tree) [][]Node {
	out := make([][]Node, tree.RootCount())
	for r := range out {
		out[r] = append([]Node(nil), tree.Root(r)...)
	}
	return out
}

func TestRefitNoop(t *testing.T) {
	tree := buildTree(t, mesh.Cube(2), quietOptions())
	before := copyRoots(tree)

	changed := tree.Refit(nil)
	require.Len(t, changed, tree.RootCount())
	for r, c := range changed {
		assert.False(t, c, "root %d", r)
	}
	for r, nodes := range before {
		for i := range nodes {
			assert.True(t, nodes[i].Box.Equals(tree.Root(r)[i].Box), "root %d node %d", r, i)
		}
	}
}

func TestRefitScaledSphere(t *testing.T) {
	m := mesh.Sphere(1, 100, 51)
	require.Equal(t, 10000, m.TriangleCount())
	tree := buildTree(t, m, quietOptions())
	box := tree.Box()
	nodes := tree.Stats().Nodes()

	// The geometry views the mesh buffer, so scaling in place moves it.
	positions := tree.Geometry().Positions.(Float64Positions)
	for i := 0; i < positions.Len(); i++ {
		positions.Set(i, positions.At(i).Mul(2))
	}

	assert.Equal(t, []bool{true}, tree.Refit(nil))
	require.NoError(t, tree.Validate())
	checkUnion(t, tree)

	scaled := tree.Box()
	wantMin, wantMax := box.Min.Mul(2), box.Max.Mul(2)
	assert.InDeltaSlice(t, wantMin[:], scaled.Min[:], 1e-8)
	assert.InDeltaSlice(t, wantMax[:], scaled.Max[:], 1e-8)
	assert.Equal(t, nodes, tree.Stats().Nodes())
}

// dirtyFaces moves every vertex inside the sphere around center and returns
// the faces touching a moved vertex.
func dirtyFaces(tree *Tree, center mgl64.Vec3, radius float64, lift float64) []int {
	positions := tree.Geometry().Positions.(Float64Positions)
	moved := map[int]bool{}
	for i := 0; i < positions.Len(); i++ {
		if p := positions.At(i); p.Sub(center).Len() <= radius {
			positions.Set(i, p.Add(mgl64.Vec3{0, 0, lift}))
			moved[i] = true
		}
	}
	var faces []int
	for f := 0; f < tree.PrimitiveCount(); f++ {
		a, b, c := tree.faceVertices(f)
		if moved[a] || moved[b] || moved[c] {
			faces = append(faces, f)
		}
	}
	return faces
}

func TestRefitDirtyMatchesFull(t *testing.T) {
	for _, indirect := range []bool{false, true} {
		opts := quietOptions()
		opts.Indirect = indirect
		tree := buildTree(t, mesh.Plane(10, 10, 40, 40), opts)

		faces := dirtyFaces(tree, mgl64.Vec3{2, -1, 0}, 1.5, 3)
		require.NotEmpty(t, faces)
		assert.Equal(t, []bool{true}, tree.Refit(faces), "indirect=%v", indirect)
		require.NoError(t, tree.Validate())

		// A full pass finds nothing left to update.
		assert.Equal(t, []bool{false}, tree.Refit(nil), "indirect=%v", indirect)
		assert.InDelta(t, 3, tree.Box().Max.Z(), 1e-9)
	}
}

func TestRefitUntouchedFaces(t *testing.T) {
	tree := buildTree(t, mesh.Plane(10, 10, 20, 20), quietOptions())
	before := copyRoots(tree)

	// Faces listed as dirty without any vertex moving leave every box as is.
	assert.Equal(t, []bool{false}, tree.Refit([]int{0, 5, 17}))
	assert.Equal(t, before, copyRoots(tree))
	assert.Equal(t, []bool{false}, tree.Refit([]int{}))

	assert.Panics(t, func() { tree.Refit([]int{tree.PrimitiveCount()}) })
	assert.Panics(t, func() { tree.Refit([]int{-1}) })
}

func TestRefitQueriesFollowGeometry(t *testing.T) {
	opts := quietOptions()
	opts.Indirect = true
	tree := buildTree(t, mesh.Plane(10, 10, 20, 20), opts)

	ray := Ray{Origin: mgl64.Vec3{0.1, 0.1, 10}, Direction: mgl64.Vec3{0, 0, -1}}
	hit, ok := tree.RaycastFirst(ray, 0, 100, DoubleSide)
	require.True(t, ok)
	assert.InDelta(t, 10, hit.Distance, 1e-9)

	faces := dirtyFaces(tree, mgl64.Vec3{}, 2, 4)
	tree.Refit(faces)

	hit, ok = tree.RaycastFirst(ray, 0, 100, DoubleSide)
	require.True(t, ok)
	assert.InDelta(t, 6, hit.Distance, 1e-9)
}
