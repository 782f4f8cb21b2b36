package meshbvh

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// PositionAccessor exposes linearly addressable vertex positions.
type PositionAccessor interface {
	Len() int
	At(i int) mgl64.Vec3
}

// Float64Positions stores positions as packed xyz triples.
type Float64Positions []float64

func (p Float64Positions) Len() int { return len(p) / 3 }

func (p Float64Positions) At(i int) mgl64.Vec3 {
	return mgl64.Vec3{p[3*i], p[3*i+1], p[3*i+2]}
}

func (p Float64Positions) Set(i int, v mgl64.Vec3) {
	p[3*i], p[3*i+1], p[3*i+2] = v[0], v[1], v[2]
}

// Float32Positions stores positions as packed xyz triples in single precision,
// the layout vertex buffers usually arrive in.
type Float32Positions []float32

func (p Float32Positions) Len() int { return len(p) / 3 }

func (p Float32Positions) At(i int) mgl64.Vec3 {
	return mgl64.Vec3{float64(p[3*i]), float64(p[3*i+1]), float64(p[3*i+2])}
}

func (p Float32Positions) Set(i int, v mgl64.Vec3) {
	p[3*i], p[3*i+1], p[3*i+2] = float32(v[0]), float32(v[1]), float32(v[2])
}

type Vec3Positions []mgl64.Vec3

func (p Vec3Positions) Len() int                { return len(p) }
func (p Vec3Positions) At(i int) mgl64.Vec3     { return p[i] }
func (p Vec3Positions) Set(i int, v mgl64.Vec3) { p[i] = v }

// IndexBuffer maps index slots onto vertex indices.
type IndexBuffer interface {
	Len() int
	At(i int) int
	Set(i int, v int)
}

type Uint16Indices []uint16

func (b Uint16Indices) Len() int         { return len(b) }
func (b Uint16Indices) At(i int) int     { return int(b[i]) }
func (b Uint16Indices) Set(i int, v int) { b[i] = uint16(v) }

type Uint32Indices []uint32

func (b Uint32Indices) Len() int         { return len(b) }
func (b Uint32Indices) At(i int) int     { return int(b[i]) }
func (b Uint32Indices) Set(i int, v int) { b[i] = uint32(v) }

// NewIndexBuffer allocates an index buffer of n slots whose element width is
// the narrowest that can address vertexCount vertices.
func NewIndexBuffer(vertexCount, n int) IndexBuffer {
	if vertexCount <= math.MaxUint16+1 {
		return make(Uint16Indices, n)
	}
	return make(Uint32Indices, n)
}

// Attribute is a per-vertex attribute such as normals or uvs.
type Attribute interface {
	ItemSize() int
	Len() int
	At(vertex, component int) float64
}

type FloatAttribute struct {
	Data []float64
	Size int
}

func (a FloatAttribute) ItemSize() int { return a.Size }

func (a FloatAttribute) Len() int {
	if a.Size == 0 {
		return 0
	}
	return len(a.Data) / a.Size
}

func (a FloatAttribute) At(vertex, component int) float64 {
	return a.Data[vertex*a.Size+component]
}

// Range is a span of triangles.
type Range struct {
	Start int
	Count int
}

func (r Range) End() int { return r.Start + r.Count }

// Geometry is a read-only view over the caller's mesh buffers.
type Geometry struct {
	Positions PositionAccessor

	// Optional index buffer; nil means every three consecutive vertices
	// form a triangle.
	Index IndexBuffer

	// Optional disjoint triangle ranges, each built into its own root.
	Groups []Range

	// Optional per-vertex attributes, checked against the vertex count.
	Attributes map[string]Attribute
}

// NewGeometry wraps packed xyz positions and an optional index list. The
// indices are copied into a buffer of the narrowest width that addresses
// every vertex.
func NewGeometry(positions []float64, indices []uint32) *Geometry {
	geo := &Geometry{Positions: Float64Positions(positions)}
	if indices != nil {
		// Out of range values must survive the copy so validation sees them.
		width := geo.Positions.Len()
		for _, v := range indices {
			if int(v) >= width {
				width = int(v) + 1
			}
		}
		geo.Index = NewIndexBuffer(width, len(indices))
		for i, v := range indices {
			geo.Index.Set(i, int(v))
		}
	}
	return geo
}

// TriangleCount returns the number of triangles addressed by the geometry.
func (g *Geometry) TriangleCount() int {
	if g.Index != nil {
		return g.Index.Len() / 3
	}
	return g.Positions.Len() / 3
}

// Triangle returns triangle i in the geometry's own order.
func (g *Geometry) Triangle(i int) Triangle {
	a, b, c := g.vertexIndices(i)
	return Triangle{g.Positions.At(a), g.Positions.At(b), g.Positions.At(c)}
}

func (g *Geometry) vertexIndices(tri int) (int, int, int) {
	if g.Index != nil {
		return g.Index.At(3 * tri), g.Index.At(3*tri + 1), g.Index.At(3*tri + 2)
	}
	return 3 * tri, 3*tri + 1, 3*tri + 2
}

// validate checks the geometry buffers for consistency.
func (g *Geometry) validate() error {
	if g == nil || g.Positions == nil {
		return ErrMissingPositions
	}

	vertexCount := g.Positions.Len()
	if g.Index != nil {
		if g.Index.Len()%3 != 0 {
			return fmt.Errorf("%w: %d index slots", ErrIndexLength, g.Index.Len())
		}
		for i := 0; i < g.Index.Len(); i++ {
			if v := g.Index.At(i); v < 0 || v >= vertexCount {
				return fmt.Errorf("%w: slot %d references vertex %d of %d", ErrIndexOutOfRange, i, v, vertexCount)
			}
		}
	} else if vertexCount%3 != 0 {
		return fmt.Errorf("%w: %d vertices in non-indexed geometry", ErrPositionLength, vertexCount)
	}

	if g.TriangleCount() == 0 {
		return ErrNoPrimitives
	}

	for name, attr := range g.Attributes {
		if attr == nil || attr.ItemSize() <= 0 || attr.Len() != vertexCount {
			return fmt.Errorf("%w: attribute %q", ErrAttributeLength, name)
		}
	}

	_, err := g.rootRanges()
	return err
}

// rootRanges returns the ranges that become independent roots. Groups are
// sorted, checked for overlap and padded so the result partitions every
// triangle.
func (g *Geometry) rootRanges() ([]Range, error) {
	total := g.TriangleCount()
	if len(g.Groups) == 0 {
		return []Range{{Start: 0, Count: total}}, nil
	}

	groups := make([]Range, len(g.Groups))
	copy(groups, g.Groups)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Start < groups[j].Start })

	ranges := make([]Range, 0, len(groups)+1)
	cursor := 0
	for _, grp := range groups {
		if grp.Count <= 0 || grp.Start < 0 || grp.End() > total {
			return nil, fmt.Errorf("%w: group [%d, %d) outside [0, %d)", ErrInvalidGroups, grp.Start, grp.End(), total)
		}
		if grp.Start < cursor {
			return nil, fmt.Errorf("%w: group starting at %d overlaps previous group", ErrInvalidGroups, grp.Start)
		}
		if grp.Start > cursor {
			ranges = append(ranges, Range{Start: cursor, Count: grp.Start - cursor})
		}
		ranges = append(ranges, grp)
		cursor = grp.End()
	}
	if cursor < total {
		ranges = append(ranges, Range{Start: cursor, Count: total - cursor})
	}
	return ranges, nil
}
