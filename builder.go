package meshbvh

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// buildNode is the arena representation used while partitioning. Children
// are arena indices; leaves have left == -1.
type buildNode struct {
	box         BoundingBox
	left, right int32
	axis        Axis
	offset      int
	count       int
}

type buildStats struct {
	nodes       int
	leafs       int
	maxDepth    int
	forcedLeafs int
	unsplit     int
}

type builder struct {
	tree   *Tree
	opts   Options
	logger log.FieldLogger

	arena []buildNode

	// Cached primitive boxes, parallel to the primitive slots and swapped
	// with them during partitioning.
	boxes []BoundingBox

	total      int
	placed     int
	lastReport float64

	// Reused by the exact SAH evaluation.
	scratch []float64

	stats buildStats
}

func newBuilder(t *Tree, opts Options) *builder {
	return &builder{
		tree:   t,
		opts:   opts,
		logger: opts.logger(),
		total:  t.primitiveCount(),
	}
}

// build partitions every root range and returns the flattened roots.
func (b *builder) build(ranges []Range) [][]Node {
	start := time.Now()

	b.boxes = make([]BoundingBox, b.total)
	degenerate := b.tree.computeBounds(0, b.boxes)
	if len(degenerate) > 0 {
		b.logger.Warnf("%d degenerate triangles retained in the hierarchy", len(degenerate))
		for _, i := range degenerate {
			b.logger.WithField("face", b.tree.faceIndex(i)).Debug("degenerate triangle")
		}
	}

	roots := make([][]Node, len(ranges))
	for i, r := range ranges {
		b.arena = b.arena[:0]
		root := b.split(r.Start, r.Count, 0)
		roots[i] = flatten(b.arena, root, make([]Node, 0, len(b.arena)))
	}

	if b.opts.SharedAllocation {
		roots = shareBacking(roots)
	}

	if b.stats.forcedLeafs > 0 {
		b.logger.Warnf("%d leaves forced at max depth %d", b.stats.forcedLeafs, b.opts.MaxDepth)
	}
	b.logger.Debugf(
		"BVH build time: %d ms, strategy: %s, roots: %d, maxDepth: %d, nodes: %d, leafs: %d, unsplittable: %d",
		time.Since(start).Nanoseconds()/1e6, b.opts.Strategy,
		len(roots), b.stats.maxDepth, b.stats.nodes, b.stats.leafs, b.stats.unsplit,
	)
	return roots
}

// split builds the subtree over [offset, offset+count) and returns its arena index.
func (b *builder) split(offset, count, depth int) int32 {
	if count <= 0 || offset < 0 || offset+count > b.total {
		panic(fmt.Sprintf("meshbvh: malformed build range [%d, %d)", offset, offset+count))
	}
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	box := EmptyBox()
	for i := offset; i < offset+count; i++ {
		box = box.Expand(b.boxes[i])
	}

	idx := int32(len(b.arena))
	b.arena = append(b.arena, buildNode{box: box, left: -1, right: -1, offset: offset, count: count})
	b.stats.nodes++

	if count <= b.opts.MaxLeafSize {
		return b.createLeaf(idx)
	}
	if depth >= b.opts.MaxDepth {
		b.stats.forcedLeafs++
		b.logger.WithFields(log.Fields{"offset": offset, "count": count}).Debug("max depth reached, forcing leaf")
		return b.createLeaf(idx)
	}

	axis, mid, ok := b.partitionNode(offset, count, box)
	if !ok {
		b.stats.unsplit++
		return b.createLeaf(idx)
	}

	left := b.split(offset, mid-offset, depth+1)
	right := b.split(mid, offset+count-mid, depth+1)
	b.arena[idx].left = left
	b.arena[idx].right = right
	b.arena[idx].axis = axis
	return idx
}

func (b *builder) createLeaf(idx int32) int32 {
	b.stats.leafs++
	b.placed += b.arena[idx].count

	if b.opts.Progress != nil {
		fraction := float64(b.placed) / float64(b.total)
		if fraction-b.lastReport >= 0.01 || b.placed == b.total {
			b.lastReport = fraction
			b.opts.Progress(fraction)
		}
	}
	return idx
}

// partitionNode picks a plane with the configured strategy and partitions the
// range around it. When the plane leaves one side empty the centroid mean is
// tried on each axis in turn; ok is false if every attempt is degenerate.
// Splitting is unconditional: the chosen SAH cost is never weighed against
// the cost of keeping the range as a leaf.
func (b *builder) partitionNode(offset, count int, box BoundingBox) (Axis, int, bool) {
	axis, pos, ok := b.chooseSplit(offset, count, box)
	if ok {
		if mid := b.partition(offset, count, axis, pos); mid > offset && mid < offset+count {
			return axis, mid, true
		}
	} else {
		axis = box.LongestAxis()
	}

	for k := 0; k < 3; k++ {
		pos := b.centroidMean(offset, count, axis)
		if mid := b.partition(offset, count, axis, pos); mid > offset && mid < offset+count {
			return axis, mid, true
		}
		axis = axis.Next()
	}
	return 0, 0, false
}

// partition moves every primitive whose centroid lies below pos on axis to
// the front of the range and returns the index of the first one that does not.
func (b *builder) partition(offset, count int, axis Axis, pos float64) int {
	left := offset
	right := offset + count - 1
	for {
		for left <= right && b.centroid(left, axis) < pos {
			left++
		}
		for left <= right && b.centroid(right, axis) >= pos {
			right--
		}
		if left >= right {
			return left
		}
		b.swap(left, right)
		left++
		right--
	}
}

func (b *builder) centroid(i int, axis Axis) float64 {
	return (b.boxes[i].Min[axis] + b.boxes[i].Max[axis]) * 0.5
}

func (b *builder) centroidMean(offset, count int, axis Axis) float64 {
	sum := 0.0
	for i := offset; i < offset+count; i++ {
		sum += b.centroid(i, axis)
	}
	return sum / float64(count)
}

func (b *builder) swap(i, j int) {
	b.boxes[i], b.boxes[j] = b.boxes[j], b.boxes[i]
	b.tree.swapPrimitives(i, j)
}

// shareBacking copies every root into a single allocation.
func shareBacking(roots [][]Node) [][]Node {
	total := 0
	for _, r := range roots {
		total += len(r)
	}
	backing := make([]Node, total)
	shared := make([][]Node, len(roots))
	at := 0
	for i, r := range roots {
		n := copy(backing[at:], r)
		shared[i] = backing[at : at+n : at+n]
		at += n
	}
	return shared
}
