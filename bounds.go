package meshbvh

import "math"

const (
	// Relative padding guarding against rounding in the box/triangle tests.
	boundsRelativeEpsilon = 1e-12
	// Absolute padding keeping flat primitives from producing zero-extent boxes.
	boundsAbsoluteEpsilon = 1e-10
)

// primitiveBox bounds a triangle, skipping non-finite coordinates per axis.
// An axis without a single finite coordinate collapses onto the origin.
func primitiveBox(tri Triangle) BoundingBox {
	var box BoundingBox
	verts := tri.Vertices()
	for axis := 0; axis < 3; axis++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range verts {
			c := v[axis]
			if math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			lo = math.Min(lo, c)
			hi = math.Max(hi, c)
		}
		if lo > hi {
			lo, hi = 0, 0
		}
		pad := math.Max(math.Abs(lo), math.Abs(hi))*boundsRelativeEpsilon + boundsAbsoluteEpsilon
		box.Min[axis] = lo - pad
		box.Max[axis] = hi + pad
	}
	return box
}

// computeBounds fills out with the boxes of the primitives in
// [offset, offset+len(out)) and returns the indices of degenerate primitives
// in that range.
func (t *Tree) computeBounds(offset int, out []BoundingBox) []int {
	var degenerate []int
	for i := range out {
		tri := t.triangle(offset + i)
		out[i] = primitiveBox(tri)
		if tri.IsDegenerate() {
			degenerate = append(degenerate, offset+i)
		}
	}
	return degenerate
}

// rangeBox returns the union of the primitive boxes in [offset, offset+count).
func (t *Tree) rangeBox(offset, count int) BoundingBox {
	box := EmptyBox()
	for i := offset; i < offset+count; i++ {
		box = box.Expand(primitiveBox(t.triangle(i)))
	}
	return box
}
