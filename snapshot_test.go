package meshbvh

import (
	"archive/zip"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImVexed/meshbvh/internal/mesh"
)

func assertSameAnswers(t *testing.T, a, b *Tree) {
	t.Helper()
	rng := rand.New(rand.NewSource(41))
	for i := 0; i < 100; i++ {
		ray := randomRay(rng, 4)
		assert.Equal(t, a.Raycast(ray, 0, math.Inf(1), DoubleSide), b.Raycast(ray, 0, math.Inf(1), DoubleSide))

		hitA, okA := a.RaycastFirst(ray, 0, math.Inf(1), DoubleSide)
		hitB, okB := b.RaycastFirst(ray, 0, math.Inf(1), DoubleSide)
		assert.Equal(t, okA, okB)
		assert.Equal(t, hitA, hitB)

		p := mgl64.Vec3{rng.Float64()*8 - 4, rng.Float64()*8 - 4, rng.Float64()*8 - 4}
		resA, okA := a.ClosestPointToPoint(p, 0, math.Inf(1))
		resB, okB := b.ClosestPointToPoint(p, 0, math.Inf(1))
		assert.Equal(t, okA, okB)
		assert.Equal(t, resA, resB)

		radius := rng.Float64()
		assert.Equal(t, a.IntersectsSphere(p, radius), b.IntersectsSphere(p, radius))
	}

	offset := mgl64.Translate3D(0.3, 0.1, 0)
	assert.Equal(t, leafPairCount(a, a, offset), leafPairCount(b, b, offset))
	assert.Equal(t, leafPairCount(a, a, offset), leafPairCount(a, b, offset))
}

func leafPairCount(a, b *Tree, otherToLocal mgl64.Mat4) int {
	pairs := 0
	a.Bvhcast(b, otherToLocal, func(LeafRange, LeafRange) bool {
		pairs++
		return false
	})
	return pairs
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, indirect := range []bool{false, true} {
		opts := quietOptions()
		opts.Indirect = indirect
		m := mesh.Sphere(2, 32, 16)
		tree := buildTree(t, m, opts)

		snap := tree.Serialize()
		assert.Equal(t, indirect, snap.Indirect != nil)
		assert.Equal(t, !indirect, snap.Index != nil)

		restored, err := Deserialize(tree.Geometry(), snap, quietOptions())
		require.NoError(t, err)
		assert.Equal(t, indirect, restored.Options().Indirect)
		assert.Equal(t, copyRoots(tree), copyRoots(restored))
		assertSameAnswers(t, tree, restored)
	}
}

func TestSnapshotGroups(t *testing.T) {
	opts := quietOptions()
	opts.SharedAllocation = true
	tree := buildTree(t, mesh.Cube(2), opts)

	restored, err := Deserialize(tree.Geometry(), tree.Serialize(), opts)
	require.NoError(t, err)
	assert.Equal(t, 6, restored.RootCount())
	assert.Equal(t, copyRoots(tree), copyRoots(restored))
}

func TestSnapshotBinary(t *testing.T) {
	tree := buildTree(t, mesh.Sphere(1, 16, 8), quietOptions())
	snap := tree.Serialize()

	data, err := snap.MarshalBinary()
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *snap, decoded)

	assert.ErrorIs(t, decoded.UnmarshalBinary([]byte("not a snapshot")), ErrSnapshotCorrupt)
}

func TestSnapshotFile(t *testing.T) {
	tree := buildTree(t, mesh.Sphere(1, 16, 8), quietOptions())
	path := filepath.Join(t.TempDir(), "sphere.bvh")

	require.NoError(t, SaveSnapshot(path, tree.Serialize()))
	snap, err := LoadSnapshot(path)
	require.NoError(t, err)

	restored, err := Deserialize(tree.Geometry(), snap, quietOptions())
	require.NoError(t, err)
	assertSameAnswers(t, tree, restored)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.bvh"))
	assert.True(t, os.IsNotExist(err))

	garbage := filepath.Join(t.TempDir(), "garbage.bvh")
	require.NoError(t, os.WriteFile(garbage, []byte("garbage"), 0o644))
	_, err = LoadSnapshot(garbage)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)

	empty := filepath.Join(t.TempDir(), "empty.bvh")
	f, err := os.Create(empty)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("readme.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	_, err = LoadSnapshot(empty)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestSaveSnapshotFailures(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "nil.bvh")
	assert.ErrorIs(t, SaveSnapshot(path, nil), ErrNilSnapshot)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no file is created when encoding fails")

	tree := buildTree(t, mesh.Sphere(1, 8, 4), quietOptions())
	missing := filepath.Join(dir, "missing", "tree.bvh")
	assert.Error(t, SaveSnapshot(missing, tree.Serialize()))
	_, err = os.Stat(filepath.Dir(missing))
	assert.True(t, os.IsNotExist(err))

	// A successful save replaces whatever was at path.
	path = filepath.Join(dir, "tree.bvh")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, SaveSnapshot(path, tree.Serialize()))
	snap, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, tree.Serialize(), snap)
}

func TestDeserializeErrors(t *testing.T) {
	m := mesh.Sphere(1, 16, 8)
	tree := buildTree(t, m, quietOptions())
	geo := tree.Geometry()

	cases := []struct {
		name   string
		mutate func(s *Snapshot) *Snapshot
		err    error
	}{
		{"nil", func(s *Snapshot) *Snapshot { return nil }, ErrSnapshotCorrupt},
		{"version", func(s *Snapshot) *Snapshot { s.Version = 2; return s }, ErrSnapshotVersion},
		{"no index", func(s *Snapshot) *Snapshot { s.Index = nil; return s }, ErrIndexRequired},
		{"short index", func(s *Snapshot) *Snapshot { s.Index = s.Index[:len(s.Index)-3]; return s }, ErrSnapshotCorrupt},
		{"index range", func(s *Snapshot) *Snapshot { s.Index[4] = 1 << 20; return s }, ErrSnapshotCorrupt},
		{"no roots", func(s *Snapshot) *Snapshot { s.Roots = nil; return s }, ErrSnapshotCorrupt},
		{"truncated", func(s *Snapshot) *Snapshot { s.Roots[0] = s.Roots[0][:nodeByteStride]; return s }, ErrSnapshotCorrupt},
		{"box", func(s *Snapshot) *Snapshot {
			// Shrink the root box so it no longer encloses its children.
			for k := 0; k < 8; k++ {
				s.Roots[0][k] = 0
			}
			return s
		}, ErrSnapshotCorrupt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Deserialize(geo, tc.mutate(tree.Serialize()), quietOptions())
			assert.ErrorIs(t, err, tc.err)
		})
	}

	// A geometry with a different triangle count cannot host the snapshot.
	_, err := Deserialize(geometryOf(mesh.Cube(2)), tree.Serialize(), quietOptions())
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)

	_, err = Deserialize(&Geometry{}, tree.Serialize(), quietOptions())
	assert.ErrorIs(t, err, ErrMissingPositions)
}

func TestDeserializeBadPermutation(t *testing.T) {
	opts := quietOptions()
	opts.Indirect = true
	tree := buildTree(t, mesh.Sphere(1, 16, 8), opts)

	snap := tree.Serialize()
	snap.Indirect[0] = snap.Indirect[1]
	_, err := Deserialize(tree.Geometry(), snap, quietOptions())
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}
