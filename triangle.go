package meshbvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Triangle is a primitive resolved to its three vertex positions.
type Triangle struct {
	A, B, C mgl64.Vec3
}

func (t Triangle) Vertices() [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{t.A, t.B, t.C}
}

func (t Triangle) Box() BoundingBox {
	return BoxFromPoints(t.A, t.B, t.C)
}

func (t Triangle) Centroid() mgl64.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}

func (t Triangle) cross() mgl64.Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A))
}

// Normal returns the unit face normal following counter-clockwise winding,
// or the zero vector for a degenerate triangle.
func (t Triangle) Normal() mgl64.Vec3 {
	n := t.cross()
	l := n.Len()
	if l == 0 || math.IsNaN(l) {
		return mgl64.Vec3{}
	}
	return n.Mul(1 / l)
}

func (t Triangle) Area() float64 {
	return 0.5 * t.cross().Len()
}

func (t Triangle) IsFinite() bool {
	for _, v := range t.Vertices() {
		for i := 0; i < 3; i++ {
			if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
				return false
			}
		}
	}
	return true
}

// IsDegenerate reports zero area or non-finite coordinates.
func (t Triangle) IsDegenerate() bool {
	return !t.IsFinite() || t.Area() == 0
}

func (t Triangle) Transform(m mgl64.Mat4) Triangle {
	return Triangle{
		A: mgl64.TransformCoordinate(t.A, m),
		B: mgl64.TransformCoordinate(t.B, m),
		C: mgl64.TransformCoordinate(t.C, m),
	}
}

// ClosestPoint returns the point of the triangle closest to p together with
// its barycentric coordinates.
func (t Triangle) ClosestPoint(p mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	a, b, c := t.A, t.B, t.C
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a, mgl64.Vec3{1, 0, 0}
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b, mgl64.Vec3{0, 1, 0}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v)), mgl64.Vec3{1 - v, v, 0}
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c, mgl64.Vec3{0, 0, 1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w)), mgl64.Vec3{1 - w, 0, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), mgl64.Vec3{0, 1 - w, w}
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w)), mgl64.Vec3{1 - v - w, v, w}
}

// intersectRay is the Möller–Trumbore test. dir must be normalized so the
// returned parameter is a distance. The second result holds the barycentric
// coordinates of the hit; the third reports whether the ray hit the front face.
func (t Triangle) intersectRay(origin, dir mgl64.Vec3, side Side, near, far float64) (float64, mgl64.Vec3, bool, bool) {
	e1 := t.B.Sub(t.A)
	e2 := t.C.Sub(t.A)
	p := dir.Cross(e2)
	det := e1.Dot(p)

	limit := 1e-12 * e1.Len() * e2.Len()
	front := det > 0
	switch side {
	case FrontSide:
		if det <= limit {
			return 0, mgl64.Vec3{}, false, false
		}
	case BackSide:
		if det >= -limit {
			return 0, mgl64.Vec3{}, false, false
		}
	default:
		if math.Abs(det) <= limit {
			return 0, mgl64.Vec3{}, false, false
		}
	}
	if math.IsNaN(det) {
		return 0, mgl64.Vec3{}, false, false
	}

	inv := 1 / det
	s := origin.Sub(t.A)
	u := s.Dot(p) * inv
	if !(u >= 0 && u <= 1) {
		return 0, mgl64.Vec3{}, false, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if !(v >= 0 && u+v <= 1) {
		return 0, mgl64.Vec3{}, false, false
	}
	dist := e2.Dot(q) * inv
	if !(dist >= near && dist <= far) {
		return 0, mgl64.Vec3{}, false, false
	}
	return dist, mgl64.Vec3{1 - u - v, u, v}, front, true
}

// intersectSegment returns the point where segment p0-p1 crosses the triangle.
func (t Triangle) intersectSegment(p0, p1 mgl64.Vec3) (mgl64.Vec3, bool) {
	d := p1.Sub(p0)
	l := d.Len()
	if l == 0 {
		return mgl64.Vec3{}, false
	}
	dist, _, _, ok := t.intersectRay(p0, d.Mul(1/l), DoubleSide, 0, l)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return p0.Add(d.Mul(dist / l)), true
}

func (t Triangle) project(axis mgl64.Vec3) (float64, float64) {
	a, b, c := axis.Dot(t.A), axis.Dot(t.B), axis.Dot(t.C)
	return math.Min(a, math.Min(b, c)), math.Max(a, math.Max(b, c))
}

func (t Triangle) edges() [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{t.B.Sub(t.A), t.C.Sub(t.B), t.A.Sub(t.C)}
}

func usableAxis(axis mgl64.Vec3) bool {
	l := axis.LenSqr()
	return l > 1e-24 && !math.IsNaN(l) && !math.IsInf(l, 0)
}

// IntersectsTriangle runs the separating axis test between two triangles.
func (t Triangle) IntersectsTriangle(o Triangle) bool {
	if !t.IsFinite() || !o.IsFinite() {
		return false
	}

	separated := func(axis mgl64.Vec3) bool {
		if !usableAxis(axis) {
			return false
		}
		amin, amax := t.project(axis)
		bmin, bmax := o.project(axis)
		return amax < bmin || bmax < amin
	}

	n1 := t.cross()
	n2 := o.cross()
	if separated(n1) || separated(n2) {
		return false
	}

	e1 := t.edges()
	e2 := o.edges()
	for _, a := range e1 {
		for _, b := range e2 {
			if separated(a.Cross(b)) {
				return false
			}
		}
	}

	// Coplanar triangles need the in-plane edge normals as well.
	if !usableAxis(n1.Cross(n2)) {
		n := n1
		if !usableAxis(n) {
			n = n2
		}
		for _, e := range e1 {
			if separated(n.Cross(e)) {
				return false
			}
		}
		for _, e := range e2 {
			if separated(n.Cross(e)) {
				return false
			}
		}
	}
	return true
}

// IntersectsBox runs the separating axis test between the triangle and an
// axis aligned box.
func (t Triangle) IntersectsBox(b BoundingBox) bool {
	if !t.IsFinite() || b.IsEmpty() {
		return false
	}
	center := b.Center()
	half := b.Size().Mul(0.5)

	separated := func(axis mgl64.Vec3) bool {
		if !usableAxis(axis) {
			return false
		}
		tmin, tmax := t.project(axis)
		c := axis.Dot(center)
		r := half[0]*math.Abs(axis[0]) + half[1]*math.Abs(axis[1]) + half[2]*math.Abs(axis[2])
		return tmax < c-r || tmin > c+r
	}

	boxAxes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, a := range boxAxes {
		if separated(a) {
			return false
		}
	}
	if separated(t.cross()) {
		return false
	}
	for _, e := range t.edges() {
		for _, a := range boxAxes {
			if separated(e.Cross(a)) {
				return false
			}
		}
	}
	return true
}

func (t Triangle) IntersectsSphere(center mgl64.Vec3, radius float64) bool {
	p, _ := t.ClosestPoint(center)
	return p.Sub(center).Len() <= radius
}

// ClosestPointsToTriangle returns the closest pair of points between t and o,
// the first lying on t and the second on o, and their distance.
func (t Triangle) ClosestPointsToTriangle(o Triangle) (mgl64.Vec3, mgl64.Vec3, float64) {
	tv := t.Vertices()
	ov := o.Vertices()

	// An edge piercing the other triangle means the two intersect.
	for i := 0; i < 3; i++ {
		if p, ok := o.intersectSegment(tv[i], tv[(i+1)%3]); ok {
			return p, p, 0
		}
		if p, ok := t.intersectSegment(ov[i], ov[(i+1)%3]); ok {
			return p, p, 0
		}
	}

	best := math.Inf(1)
	var bestP, bestQ mgl64.Vec3
	consider := func(p, q mgl64.Vec3) {
		if d := p.Sub(q).Len(); d < best {
			best, bestP, bestQ = d, p, q
		}
	}

	for i := 0; i < 3; i++ {
		q, _ := o.ClosestPoint(tv[i])
		consider(tv[i], q)
		p, _ := t.ClosestPoint(ov[i])
		consider(p, ov[i])
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p, q := closestPointsOnSegments(tv[i], tv[(i+1)%3], ov[j], ov[(j+1)%3])
			consider(p, q)
		}
	}
	return bestP, bestQ, best
}

// closestPointsOnSegments returns the closest points between segments p1-q1
// and p2-q2.
func closestPointsOnSegments(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	const eps = 1e-18
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= eps && e <= eps:
		return p1, p2
	case a <= eps:
		t = mgl64.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= eps {
			s = mgl64.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = mgl64.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = mgl64.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = mgl64.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
