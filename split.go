package meshbvh

import (
	"math"
	"sort"
)

// Cost of descending into a node, relative to SAHTriangleCost.
const traversalCost = 1.0

// chooseSplit returns the split plane for the range according to the
// configured strategy. ok is false when the strategy finds no plane that
// leaves primitives on both sides.
func (b *builder) chooseSplit(offset, count int, box BoundingBox) (Axis, float64, bool) {
	switch b.opts.Strategy {
	case Center:
		axis := box.LongestAxis()
		return axis, box.Center()[axis], true
	case Average:
		axis := box.LongestAxis()
		return axis, b.centroidMean(offset, count, axis), true
	default:
		if count <= b.opts.SAHExactThreshold {
			return b.exactSAH(offset, count, box)
		}
		return b.binnedSAH(offset, count, box)
	}
}

func (b *builder) sahCost(parentArea, leftArea float64, leftCount int, rightArea float64, rightCount int) float64 {
	if parentArea <= 0 {
		parentArea = 1
	}
	return traversalCost + b.opts.SAHTriangleCost*(leftArea*float64(leftCount)+rightArea*float64(rightCount))/parentArea
}

// exactSAH evaluates a plane at every distinct centroid position.
func (b *builder) exactSAH(offset, count int, box BoundingBox) (Axis, float64, bool) {
	parentArea := box.SurfaceArea()
	bestCost := math.Inf(1)
	var bestAxis Axis
	var bestPos float64

	for axis := X; axis <= Z; axis++ {
		b.scratch = b.scratch[:0]
		for i := offset; i < offset+count; i++ {
			b.scratch = append(b.scratch, b.centroid(i, axis))
		}
		sort.Float64s(b.scratch)

		for k := 1; k < len(b.scratch); k++ {
			pos := b.scratch[k]
			if pos == b.scratch[k-1] {
				continue
			}

			leftBox, rightBox := EmptyBox(), EmptyBox()
			leftCount, rightCount := 0, 0
			for i := offset; i < offset+count; i++ {
				if b.centroid(i, axis) < pos {
					leftBox = leftBox.Expand(b.boxes[i])
					leftCount++
				} else {
					rightBox = rightBox.Expand(b.boxes[i])
					rightCount++
				}
			}

			cost := b.sahCost(parentArea, leftBox.SurfaceArea(), leftCount, rightBox.SurfaceArea(), rightCount)
			if cost < bestCost {
				bestCost, bestAxis, bestPos = cost, axis, pos
			}
		}
	}

	return bestAxis, bestPos, !math.IsInf(bestCost, 1)
}

type sahBin struct {
	box   BoundingBox
	count int
}

// binnedSAH buckets centroids and only evaluates bucket boundaries.
func (b *builder) binnedSAH(offset, count int, box BoundingBox) (Axis, float64, bool) {
	parentArea := box.SurfaceArea()
	bins := make([]sahBin, b.opts.SAHBins)
	leftBoxes := make([]BoundingBox, len(bins))
	leftCounts := make([]int, len(bins))

	bestCost := math.Inf(1)
	var bestAxis Axis
	var bestPos float64

	for axis := X; axis <= Z; axis++ {
		cmin, cmax := math.Inf(1), math.Inf(-1)
		for i := offset; i < offset+count; i++ {
			c := b.centroid(i, axis)
			cmin = math.Min(cmin, c)
			cmax = math.Max(cmax, c)
		}
		if !(cmax > cmin) {
			continue
		}

		width := (cmax - cmin) / float64(len(bins))
		for i := range bins {
			bins[i] = sahBin{box: EmptyBox()}
		}
		for i := offset; i < offset+count; i++ {
			bin := int((b.centroid(i, axis) - cmin) / width)
			if bin >= len(bins) {
				bin = len(bins) - 1
			}
			bins[bin].box = bins[bin].box.Expand(b.boxes[i])
			bins[bin].count++
		}

		acc, n := EmptyBox(), 0
		for i := range bins {
			acc = acc.Expand(bins[i].box)
			n += bins[i].count
			leftBoxes[i], leftCounts[i] = acc, n
		}

		acc, n = EmptyBox(), 0
		for i := len(bins) - 1; i >= 1; i-- {
			acc = acc.Expand(bins[i].box)
			n += bins[i].count
			leftCount := leftCounts[i-1]
			if leftCount == 0 || n == 0 {
				continue
			}
			cost := b.sahCost(parentArea, leftBoxes[i-1].SurfaceArea(), leftCount, acc.SurfaceArea(), n)
			if cost < bestCost {
				bestCost, bestAxis, bestPos = cost, axis, cmin+float64(i)*width
			}
		}
	}

	return bestAxis, bestPos, !math.IsInf(bestCost, 1)
}
