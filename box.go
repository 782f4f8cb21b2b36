package meshbvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) Next() Axis {
	switch a {
	case X:
		return Y
	case Y:
		return Z
	case Z:
		return X
	default:
		return X
	}
}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	default:
		return "?"
	}
}

// BoundingBox is an axis aligned box defined by its componentwise min/max corners.
type BoundingBox struct {
	Min, Max mgl64.Vec3
}

// EmptyBox returns an inverted box that acts as the identity for Expand.
func EmptyBox() BoundingBox {
	return BoundingBox{
		Min: mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
}

// BoxFromPoints returns the smallest box containing all points.
func BoxFromPoints(points ...mgl64.Vec3) BoundingBox {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExpandPoint(p)
	}
	return b
}

func (b BoundingBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b BoundingBox) Intersects(b2 BoundingBox) bool {
	return b.Max[0] >= b2.Min[0] && b.Min[0] <= b2.Max[0] &&
		b.Max[1] >= b2.Min[1] && b.Min[1] <= b2.Max[1] &&
		b.Max[2] >= b2.Min[2] && b.Min[2] <= b2.Max[2]
}

func (b BoundingBox) Equals(b2 BoundingBox) bool {
	return b.Min == b2.Min && b.Max == b2.Max
}

// ApproxEquals compares both corners within the given absolute tolerance.
func (b BoundingBox) ApproxEquals(b2 BoundingBox, eps float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(b.Min[i]-b2.Min[i]) > eps || math.Abs(b.Max[i]-b2.Max[i]) > eps {
			return false
		}
	}
	return true
}

func (b BoundingBox) SurfaceArea() float64 {
	if b.IsEmpty() {
		return 0
	}
	s := b.Size()
	return 2.0 * (s[0]*s[1] + s[0]*s[2] + s[1]*s[2])
}

// Expand returns the union of b and b2.
func (b BoundingBox) Expand(b2 BoundingBox) BoundingBox {
	return BoundingBox{
		Min: mgl64.Vec3{math.Min(b.Min[0], b2.Min[0]), math.Min(b.Min[1], b2.Min[1]), math.Min(b.Min[2], b2.Min[2])},
		Max: mgl64.Vec3{math.Max(b.Max[0], b2.Max[0]), math.Max(b.Max[1], b2.Max[1]), math.Max(b.Max[2], b2.Max[2])},
	}
}

func (b BoundingBox) ExpandPoint(p mgl64.Vec3) BoundingBox {
	return BoundingBox{
		Min: mgl64.Vec3{math.Min(b.Min[0], p[0]), math.Min(b.Min[1], p[1]), math.Min(b.Min[2], p[2])},
		Max: mgl64.Vec3{math.Max(b.Max[0], p[0]), math.Max(b.Max[1], p[1]), math.Max(b.Max[2], p[2])},
	}
}

func (b BoundingBox) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// LongestAxis returns the axis with the largest extent.
func (b BoundingBox) LongestAxis() Axis {
	s := b.Size()
	if s[0] >= s[1] && s[0] >= s[2] {
		return X
	}
	if s[1] >= s[2] {
		return Y
	}
	return Z
}

func (b BoundingBox) ContainsPoint(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

func (b BoundingBox) ContainsBox(b2 BoundingBox) bool {
	return b.ContainsPoint(b2.Min) && b.ContainsPoint(b2.Max)
}

// Corners returns the eight corners of the box.
func (b BoundingBox) Corners() [8]mgl64.Vec3 {
	var c [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				c[i][axis] = b.Max[axis]
			} else {
				c[i][axis] = b.Min[axis]
			}
		}
	}
	return c
}

// ClampPoint returns the point of the box closest to p.
func (b BoundingBox) ClampPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(p[0], b.Min[0], b.Max[0]),
		mgl64.Clamp(p[1], b.Min[1], b.Max[1]),
		mgl64.Clamp(p[2], b.Min[2], b.Max[2]),
	}
}

// DistanceToPoint is the euclidean distance from p to the box; zero when p is inside.
func (b BoundingBox) DistanceToPoint(p mgl64.Vec3) float64 {
	return b.ClampPoint(p).Sub(p).Len()
}

// MaxDistanceToPoint is the distance from p to the farthest corner of the box.
func (b BoundingBox) MaxDistanceToPoint(p mgl64.Vec3) float64 {
	var d mgl64.Vec3
	for i := 0; i < 3; i++ {
		d[i] = math.Max(math.Abs(p[i]-b.Min[i]), math.Abs(p[i]-b.Max[i]))
	}
	return d.Len()
}

// DistanceToBox is the gap between two boxes; zero when they overlap.
func (b BoundingBox) DistanceToBox(b2 BoundingBox) float64 {
	var d mgl64.Vec3
	for i := 0; i < 3; i++ {
		d[i] = math.Max(0, math.Max(b.Min[i]-b2.Max[i], b2.Min[i]-b.Max[i]))
	}
	return d.Len()
}

// Transform returns the box enclosing the eight transformed corners of b.
func (b BoundingBox) Transform(m mgl64.Mat4) BoundingBox {
	out := EmptyBox()
	for _, c := range b.Corners() {
		out = out.ExpandPoint(mgl64.TransformCoordinate(c, m))
	}
	return out
}

// RayDistance runs the slab test against a ray given by its origin and the
// reciprocal of its direction. It returns the entry distance (clamped to zero
// when the origin is inside) and false when the ray misses or any interval is
// undefined.
func (b BoundingBox) RayDistance(origin, invDir mgl64.Vec3) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		lo, hi := b.Min[axis], b.Max[axis]
		if invDir[axis] < 0 {
			lo, hi = hi, lo
		}
		t0 := (lo - origin[axis]) * invDir[axis]
		t1 := (hi - origin[axis]) * invDir[axis]

		// 0 * Inf when the ray is parallel to and lying on a slab plane.
		if math.IsNaN(t0) || math.IsNaN(t1) {
			if origin[axis] < b.Min[axis] || origin[axis] > b.Max[axis] {
				return 0, false
			}
			continue
		}
		if t0 > tmax || t1 < tmin {
			return 0, false
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
	}

	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// IsFinite reports whether every coordinate of the box is finite.
func (b BoundingBox) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math.IsInf(b.Min[i], 0) || math.IsNaN(b.Min[i]) || math.IsInf(b.Max[i], 0) || math.IsNaN(b.Max[i]) {
			return false
		}
	}
	return true
}
