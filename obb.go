package meshbvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// OrientedBox is an axis aligned box carried through an affine transform.
// Under shear or non-uniform scale it is a parallelepiped; HalfAxes are its
// half edge vectors and need not be orthogonal.
type OrientedBox struct {
	Center   mgl64.Vec3
	HalfAxes [3]mgl64.Vec3
}

// NewOrientedBox transforms b by m.
func NewOrientedBox(b BoundingBox, m mgl64.Mat4) OrientedBox {
	half := b.Size().Mul(0.5)
	var o OrientedBox
	o.Center = mgl64.TransformCoordinate(b.Center(), m)
	for axis := 0; axis < 3; axis++ {
		var e mgl64.Vec3
		e[axis] = half[axis]
		o.HalfAxes[axis] = mgl64.TransformNormal(e, m)
	}
	return o
}

// project returns the interval covered by the box along axis.
func (o OrientedBox) project(axis mgl64.Vec3) (float64, float64) {
	c := axis.Dot(o.Center)
	r := math.Abs(axis.Dot(o.HalfAxes[0])) + math.Abs(axis.Dot(o.HalfAxes[1])) + math.Abs(axis.Dot(o.HalfAxes[2]))
	return c - r, c + r
}

// faceNormals returns the unnormalized normals of the three face pairs.
func (o OrientedBox) faceNormals() [3]mgl64.Vec3 {
	u, v, w := o.HalfAxes[0], o.HalfAxes[1], o.HalfAxes[2]
	return [3]mgl64.Vec3{v.Cross(w), w.Cross(u), u.Cross(v)}
}

func (o OrientedBox) Corners() [8]mgl64.Vec3 {
	var c [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		p := o.Center
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				p = p.Add(o.HalfAxes[axis])
			} else {
				p = p.Sub(o.HalfAxes[axis])
			}
		}
		c[i] = p
	}
	return c
}

// Box returns the axis aligned box enclosing o.
func (o OrientedBox) Box() BoundingBox {
	corners := o.Corners()
	return BoxFromPoints(corners[:]...)
}

func (o OrientedBox) isFinite() bool {
	vs := [4]mgl64.Vec3{o.Center, o.HalfAxes[0], o.HalfAxes[1], o.HalfAxes[2]}
	for _, v := range vs {
		for i := 0; i < 3; i++ {
			if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
				return false
			}
		}
	}
	return true
}

var worldAxes = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// IntersectsBox runs the separating axis test against an axis aligned box.
func (o OrientedBox) IntersectsBox(b BoundingBox) bool {
	if b.IsEmpty() || !o.isFinite() {
		return false
	}
	center := b.Center()
	half := b.Size().Mul(0.5)

	separated := func(axis mgl64.Vec3) bool {
		if !usableAxis(axis) {
			return false
		}
		omin, omax := o.project(axis)
		c := axis.Dot(center)
		r := half[0]*math.Abs(axis[0]) + half[1]*math.Abs(axis[1]) + half[2]*math.Abs(axis[2])
		return omax < c-r || omin > c+r
	}

	for _, a := range worldAxes {
		if separated(a) {
			return false
		}
	}
	for _, n := range o.faceNormals() {
		if separated(n) {
			return false
		}
	}
	for _, e := range o.HalfAxes {
		for _, a := range worldAxes {
			if separated(e.Cross(a)) {
				return false
			}
		}
	}
	return true
}

// ContainsPoint reports whether p lies inside o. Degenerate boxes contain
// nothing.
func (o OrientedBox) ContainsPoint(p mgl64.Vec3) bool {
	d := p.Sub(o.Center)
	for axis, n := range o.faceNormals() {
		denom := n.Dot(o.HalfAxes[axis])
		if denom == 0 || math.IsNaN(denom) {
			return false
		}
		if math.Abs(d.Dot(n)/denom) > 1 {
			return false
		}
	}
	return true
}

// ContainsBox reports whether every corner of b lies inside o.
func (o OrientedBox) ContainsBox(b BoundingBox) bool {
	if b.IsEmpty() {
		return false
	}
	for _, c := range b.Corners() {
		if !o.ContainsPoint(c) {
			return false
		}
	}
	return true
}

// IntersectsTriangle runs the separating axis test against a triangle.
func (o OrientedBox) IntersectsTriangle(t Triangle) bool {
	if !t.IsFinite() || !o.isFinite() {
		return false
	}
	separated := func(axis mgl64.Vec3) bool {
		if !usableAxis(axis) {
			return false
		}
		omin, omax := o.project(axis)
		tmin, tmax := t.project(axis)
		return omax < tmin || tmax < omin
	}

	for _, n := range o.faceNormals() {
		if separated(n) {
			return false
		}
	}
	if separated(t.cross()) {
		return false
	}
	for _, e := range t.edges() {
		for _, a := range o.HalfAxes {
			if separated(e.Cross(a)) {
				return false
			}
		}
	}
	return true
}
