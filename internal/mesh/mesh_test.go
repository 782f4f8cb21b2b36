package mesh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normal(m *Mesh, tri int) mgl64.Vec3 {
	a := m.Vertex(int(m.Indices[3*tri]))
	b := m.Vertex(int(m.Indices[3*tri+1]))
	c := m.Vertex(int(m.Indices[3*tri+2]))
	return b.Sub(a).Cross(c.Sub(a))
}

func centroid(m *Mesh, tri int) mgl64.Vec3 {
	var sum mgl64.Vec3
	for k := 0; k < 3; k++ {
		sum = sum.Add(m.Vertex(int(m.Indices[3*tri+k])))
	}
	return sum.Mul(1.0 / 3)
}

func TestCube(t *testing.T) {
	m := Cube(2)
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 12, m.TriangleCount())
	require.Len(t, m.Groups, 6)
	for i, g := range m.Groups {
		assert.Equal(t, 2*i, g.Start)
		assert.Equal(t, 2, g.Count)
	}
	for i := 0; i < m.TriangleCount(); i++ {
		// Outward facing: the normal points away from the center.
		assert.Greater(t, normal(m, i).Dot(centroid(m, i)), 0.0, "triangle %d", i)
	}
	for _, p := range m.Positions {
		assert.Equal(t, 1.0, math.Abs(p))
	}
}

func TestSphere(t *testing.T) {
	m := Sphere(1, 100, 51)
	assert.Equal(t, 10000, m.TriangleCount())
	for i := 0; i < m.VertexCount(); i++ {
		assert.InDelta(t, 1, m.Vertex(i).Len(), 1e-12)
	}
	for i := 0; i < m.TriangleCount(); i++ {
		assert.Greater(t, normal(m, i).Dot(centroid(m, i)), 0.0, "triangle %d", i)
	}

	small := Sphere(2, 8, 6)
	assert.Equal(t, 8*10, small.TriangleCount())
}

func TestSquareAndPlane(t *testing.T) {
	sq := Square()
	assert.Equal(t, 2, sq.TriangleCount())
	for i := 0; i < 2; i++ {
		assert.Equal(t, mgl64.Vec3{0, 0, 1}, normal(sq, i).Normalize())
	}

	p := Plane(4, 2, 4, 2)
	assert.Equal(t, 15, p.VertexCount())
	assert.Equal(t, 16, p.TriangleCount())
	assert.Equal(t, mgl64.Vec3{-2, -1, 0}, p.Vertex(0))
	assert.Equal(t, mgl64.Vec3{2, 1, 0}, p.Vertex(14))
	for i := 0; i < p.TriangleCount(); i++ {
		assert.Greater(t, normal(p, i).Z(), 0.0)
	}
}

func TestRandomTriangles(t *testing.T) {
	a := RandomTriangles(100, 10, 1)
	b := RandomTriangles(100, 10, 1)
	c := RandomTriangles(100, 10, 2)
	assert.Nil(t, a.Indices)
	assert.Equal(t, 100, a.TriangleCount())
	assert.Equal(t, a.Positions, b.Positions)
	assert.NotEqual(t, a.Positions, c.Positions)
}

func TestCloneTransform(t *testing.T) {
	m := Cube(2)
	moved := m.Clone().Transform(mgl64.Translate3D(1, 0, 0)).Scale(2)
	assert.Equal(t, mgl64.Vec3{-1, -1, -1}, m.Vertex(0))
	assert.Equal(t, mgl64.Vec3{0, -2, -2}, moved.Vertex(0))
	assert.Equal(t, m.Indices, moved.Indices)

	moved.Indices[0] = 7
	assert.Equal(t, uint32(0), m.Indices[0])
}
