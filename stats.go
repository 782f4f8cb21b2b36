package meshbvh

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// RootStats describes the shape of one root.
type RootStats struct {
	Range    Range
	Nodes    int
	Leaves   int
	MaxDepth int
	// Largest primitive count found in a single leaf.
	MaxLeafCount int
	SurfaceArea  float64
}

type Stats struct {
	Strategy   SplitStrategy
	Primitives int
	Roots      []RootStats
}

// Stats walks every root and collects its shape.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{Strategy: t.opts.Strategy, Primitives: t.primitiveCount(), Roots: make([]RootStats, len(t.roots))}
	for r, nodes := range t.roots {
		rs := RootStats{Range: t.ranges[r], Nodes: len(nodes), SurfaceArea: nodes[0].Box.SurfaceArea()}
		var walk func(i, depth int)
		walk = func(i, depth int) {
			if depth > rs.MaxDepth {
				rs.MaxDepth = depth
			}
			if leaf, ok := nodes[i].Leaf(); ok {
				rs.Leaves++
				if leaf.Count > rs.MaxLeafCount {
					rs.MaxLeafCount = leaf.Count
				}
				return
			}
			walk(leftChild(i), depth+1)
			walk(rightChild(nodes, i), depth+1)
		}
		walk(0, 0)
		s.Roots[r] = rs
	}
	return s
}

// Nodes returns the record count across all roots.
func (s Stats) Nodes() int {
	n := 0
	for _, r := range s.Roots {
		n += r.Nodes
	}
	return n
}

func (s Stats) Leaves() int {
	n := 0
	for _, r := range s.Roots {
		n += r.Leaves
	}
	return n
}

func (s Stats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Root", "Primitives", "Nodes", "Leaves", "Max depth", "Max leaf", "Surface area"})
	maxDepth := 0
	for i, r := range s.Roots {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("[%d, %d)", r.Range.Start, r.Range.End()),
			fmt.Sprintf("%d", r.Nodes),
			fmt.Sprintf("%d", r.Leaves),
			fmt.Sprintf("%d", r.MaxDepth),
			fmt.Sprintf("%d", r.MaxLeafCount),
			fmt.Sprintf("%.4g", r.SurfaceArea),
		})
		if r.MaxDepth > maxDepth {
			maxDepth = r.MaxDepth
		}
	}
	table.SetFooter([]string{
		s.Strategy.String(),
		fmt.Sprintf("%d", s.Primitives),
		fmt.Sprintf("%d", s.Nodes()),
		fmt.Sprintf("%d", s.Leaves()),
		fmt.Sprintf("%d", maxDepth),
		" ",
		fmt.Sprintf("%d KiB", s.Nodes()*nodeByteStride/1024),
	})
	table.Render()
	return buf.String()
}
