package meshbvh

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Side selects which triangle faces a ray may hit.
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

func (s Side) String() string {
	switch s {
	case FrontSide:
		return "front"
	case BackSide:
		return "back"
	case DoubleSide:
		return "double"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Transform maps the ray through m without normalizing the direction.
func (r Ray) Transform(m mgl64.Mat4) Ray {
	return Ray{
		Origin:    mgl64.TransformCoordinate(r.Origin, m),
		Direction: mgl64.TransformNormal(r.Direction, m),
	}
}

// Hit describes a ray/triangle intersection.
type Hit struct {
	Distance    float64
	Point       mgl64.Vec3
	Normal      mgl64.Vec3
	Barycentric mgl64.Vec3
	FrontFace   bool

	// Face is the triangle id, Vertices its three vertex indices.
	Face     int
	Vertices [3]int
}

// Interpolate blends a per-vertex attribute at the hit point.
func (h Hit) Interpolate(attr Attribute) []float64 {
	out := make([]float64, attr.ItemSize())
	for c := range out {
		for k := 0; k < 3; k++ {
			out[c] += attr.At(h.Vertices[k], c) * h.Barycentric[k]
		}
	}
	return out
}

func checkRayParams(near, far float64, side Side) {
	if math.IsNaN(near) || math.IsNaN(far) || near > far {
		panic(fmt.Sprintf("meshbvh: invalid ray interval [%v, %v]", near, far))
	}
	if side != FrontSide && side != BackSide && side != DoubleSide {
		panic(fmt.Sprintf("meshbvh: invalid side %d", int(side)))
	}
}

// normalizeRay returns a copy of ray with a unit direction; ok is false for
// zero or non-finite directions.
func normalizeRay(ray Ray) (Ray, bool) {
	l := ray.Direction.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return ray, false
	}
	ray.Direction = ray.Direction.Mul(1 / l)
	return ray, true
}

func reciprocal(d mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{1 / d[0], 1 / d[1], 1 / d[2]}
}

func (t *Tree) newHit(ray Ray, tri Triangle, face int, dist float64, bary mgl64.Vec3, front bool) Hit {
	a, b, c := t.faceVertices(face)
	return Hit{
		Distance:    dist,
		Point:       ray.At(dist),
		Normal:      tri.Normal(),
		Barycentric: bary,
		FrontFace:   front,
		Face:        face,
		Vertices:    [3]int{a, b, c},
	}
}

// Raycast returns every hit within [near, far], sorted by distance.
func (t *Tree) Raycast(ray Ray, near, far float64, side Side) []Hit {
	checkRayParams(near, far, side)
	ray, ok := normalizeRay(ray)
	if !ok {
		return nil
	}
	invDir := reciprocal(ray.Direction)

	var hits []Hit
	t.Shapecast(ShapecastCallbacks{
		IntersectsBounds: func(box BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
			if d, ok := box.RayDistance(ray.Origin, invDir); ok && d <= far {
				return Intersected
			}
			return NotIntersected
		},
		IntersectsTriangle: func(tri Triangle, face int, contained bool, depth int) bool {
			if dist, bary, front, ok := tri.intersectRay(ray.Origin, ray.Direction, side, near, far); ok {
				hits = append(hits, t.newHit(ray, tri, face, dist, bary, front))
			}
			return false
		},
	})

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// RaycastFirst returns the closest hit within [near, far]. Subtrees the ray
// misses, or enters beyond the best hit so far, are skipped.
func (t *Tree) RaycastFirst(ray Ray, near, far float64, side Side) (Hit, bool) {
	checkRayParams(near, far, side)
	ray, ok := normalizeRay(ray)
	if !ok {
		return Hit{}, false
	}
	search := t.newFirstHitSearch(ray, near, far, side)
	t.Shapecast(search.callbacks())
	return search.best, search.found
}

// firstHitSearch is the branch-and-bound state of a closest-hit raycast.
// ray must already carry a unit direction.
type firstHitSearch struct {
	tree   *Tree
	ray    Ray
	invDir mgl64.Vec3
	near   float64
	side   Side

	best  Hit
	found bool
}

func (t *Tree) newFirstHitSearch(ray Ray, near, far float64, side Side) *firstHitSearch {
	return &firstHitSearch{
		tree:   t,
		ray:    ray,
		invDir: reciprocal(ray.Direction),
		near:   near,
		side:   side,
		best:   Hit{Distance: far},
	}
}

func (s *firstHitSearch) callbacks() ShapecastCallbacks {
	return ShapecastCallbacks{
		BoundsTraverseOrder: func(box BoundingBox) float64 {
			if d, ok := box.RayDistance(s.ray.Origin, s.invDir); ok {
				return d
			}
			return math.Inf(1)
		},
		IntersectsBounds: func(box BoundingBox, isLeaf bool, score float64, depth, nodeIndex int) BoundsIntersection {
			// A missed box scores +Inf, which must not pass an unbounded far.
			if !math.IsInf(score, 1) && score <= s.best.Distance {
				return Intersected
			}
			return NotIntersected
		},
		IntersectsTriangle: func(tri Triangle, face int, contained bool, depth int) bool {
			if dist, bary, front, ok := tri.intersectRay(s.ray.Origin, s.ray.Direction, s.side, s.near, s.best.Distance); ok {
				if !s.found || dist < s.best.Distance {
					s.best = s.tree.newHit(s.ray, tri, face, dist, bary, front)
					s.found = true
				}
			}
			return false
		},
	}
}

// RaycastWorld casts a world space ray against a mesh placed by world.
// Interval bounds and returned distances are measured in world units.
func (t *Tree) RaycastWorld(ray Ray, world mgl64.Mat4, near, far float64, side Side) []Hit {
	checkRayParams(near, far, side)
	local := ray.Transform(localMatrix(world))
	hits := t.Raycast(local, 0, math.Inf(1), side)

	out := hits[:0]
	for _, h := range hits {
		h = toWorldHit(h, ray, world)
		if h.Distance >= near && h.Distance <= far {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// RaycastFirstWorld is the closest-hit variant of RaycastWorld. The interval
// is rescaled into local units so that local first-hit pruning applies.
func (t *Tree) RaycastFirstWorld(ray Ray, world mgl64.Mat4, near, far float64, side Side) (Hit, bool) {
	checkRayParams(near, far, side)
	ray, ok := normalizeRay(ray)
	if !ok {
		return Hit{}, false
	}
	local := ray.Transform(localMatrix(world))
	scale := local.Direction.Len()
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Hit{}, false
	}
	hit, ok := t.RaycastFirst(local, near*scale, far*scale, side)
	if !ok {
		return Hit{}, false
	}
	return toWorldHit(hit, ray, world), true
}

func toWorldHit(h Hit, ray Ray, world mgl64.Mat4) Hit {
	h.Point = mgl64.TransformCoordinate(h.Point, world)
	h.Distance = h.Point.Sub(ray.Origin).Len()
	normal := world.Mat3().Inv().Transpose().Mul3x1(h.Normal)
	if l := normal.Len(); l > 0 {
		h.Normal = normal.Mul(1 / l)
	}
	return h
}
