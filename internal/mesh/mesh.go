// Package mesh generates and loads triangle meshes as flat position and
// index buffers.
package mesh

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Group names a span of triangles, such as the faces sharing one material.
type Group struct {
	Name  string
	Start int
	Count int
}

// Mesh is an indexed triangle list.
type Mesh struct {
	// Packed xyz triples.
	Positions []float64
	// Three entries per triangle; nil for triangle soups.
	Indices []uint32
	Groups  []Group
}

func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

func (m *Mesh) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

func (m *Mesh) Vertex(i int) mgl64.Vec3 {
	return mgl64.Vec3{m.Positions[3*i], m.Positions[3*i+1], m.Positions[3*i+2]}
}

func (m *Mesh) SetVertex(i int, v mgl64.Vec3) {
	m.Positions[3*i], m.Positions[3*i+1], m.Positions[3*i+2] = v[0], v[1], v[2]
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{Positions: append([]float64(nil), m.Positions...)}
	if m.Indices != nil {
		out.Indices = append([]uint32(nil), m.Indices...)
	}
	if m.Groups != nil {
		out.Groups = append([]Group(nil), m.Groups...)
	}
	return out
}

// Transform moves every vertex by mat in place.
func (m *Mesh) Transform(mat mgl64.Mat4) *Mesh {
	for i := 0; i < m.VertexCount(); i++ {
		m.SetVertex(i, mgl64.TransformCoordinate(m.Vertex(i), mat))
	}
	return m
}

// Scale multiplies every coordinate by s in place.
func (m *Mesh) Scale(s float64) *Mesh {
	for i := range m.Positions {
		m.Positions[i] *= s
	}
	return m
}

// Cube returns an axis aligned cube of the given edge length centered on the
// origin, wound counter-clockwise when seen from outside. Every face is a
// group of two triangles.
func Cube(size float64) *Mesh {
	h := size / 2
	m := &Mesh{
		Positions: []float64{
			-h, -h, -h,
			h, -h, -h,
			h, h, -h,
			-h, h, -h,
			-h, -h, h,
			h, -h, h,
			h, h, h,
			-h, h, h,
		},
		Indices: []uint32{
			0, 2, 1, 0, 3, 2, // -z
			4, 5, 6, 4, 6, 7, // +z
			0, 1, 5, 0, 5, 4, // -y
			3, 7, 6, 3, 6, 2, // +y
			0, 4, 7, 0, 7, 3, // -x
			1, 2, 6, 1, 6, 5, // +x
		},
	}
	for i, name := range []string{"-z", "+z", "-y", "+y", "-x", "+x"} {
		m.Groups = append(m.Groups, Group{Name: name, Start: 2 * i, Count: 2})
	}
	return m
}

// Square returns the unit square [0,1]x[0,1] in the z=0 plane facing +z.
func Square() *Mesh {
	return &Mesh{
		Positions: []float64{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			0, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Plane returns a width x depth grid in the z=0 plane centered on the origin.
func Plane(width, depth float64, segmentsX, segmentsY int) *Mesh {
	m := &Mesh{}
	for iy := 0; iy <= segmentsY; iy++ {
		y := depth * (float64(iy)/float64(segmentsY) - 0.5)
		for ix := 0; ix <= segmentsX; ix++ {
			x := width * (float64(ix)/float64(segmentsX) - 0.5)
			m.Positions = append(m.Positions, x, y, 0)
		}
	}
	row := uint32(segmentsX + 1)
	for iy := 0; iy < segmentsY; iy++ {
		for ix := 0; ix < segmentsX; ix++ {
			a := uint32(iy)*row + uint32(ix)
			b := a + 1
			c := a + row + 1
			d := a + row
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	return m
}

// Sphere returns a UV sphere. widthSegments x heightSegments quads are
// emitted with the pole rows collapsed into single triangles, giving
// widthSegments*(2*heightSegments-2) triangles.
func Sphere(radius float64, widthSegments, heightSegments int) *Mesh {
	m := &Mesh{}
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			m.Positions = append(m.Positions,
				-radius*math.Cos(u*2*math.Pi)*math.Sin(v*math.Pi),
				radius*math.Cos(v*math.Pi),
				radius*math.Sin(u*2*math.Pi)*math.Sin(v*math.Pi),
			)
		}
	}

	row := uint32(widthSegments + 1)
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(iy)*row + uint32(ix) + 1
			b := uint32(iy)*row + uint32(ix)
			c := uint32(iy+1)*row + uint32(ix)
			d := uint32(iy+1)*row + uint32(ix) + 1
			if iy != 0 {
				m.Indices = append(m.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				m.Indices = append(m.Indices, b, c, d)
			}
		}
	}
	return m
}

// RandomTriangles returns n unindexed triangles scattered through a cube of
// the given size. The same seed always yields the same soup.
func RandomTriangles(n int, size float64, seed int64) *Mesh {
	rng := rand.New(rand.NewSource(seed))
	extent := size / math.Cbrt(float64(n)+1)
	m := &Mesh{Positions: make([]float64, 0, 9*n)}
	for i := 0; i < n; i++ {
		center := mgl64.Vec3{rng.Float64() * size, rng.Float64() * size, rng.Float64() * size}
		for k := 0; k < 3; k++ {
			v := center.Add(mgl64.Vec3{
				(rng.Float64() - 0.5) * extent,
				(rng.Float64() - 0.5) * extent,
				(rng.Float64() - 0.5) * extent,
			})
			m.Positions = append(m.Positions, v[0], v[1], v[2])
		}
	}
	return m
}
