package meshbvh

import (
	"fmt"
	"sort"
)

// Refit recomputes node boxes after vertex positions moved. Topology and
// primitive order are left untouched.
//
// dirty lists the face ids whose vertices changed; nil refits everything.
// Leaves holding no dirty face and internal nodes without a refit child are
// skipped. The result reports, per root, whether any box changed.
func (t *Tree) Refit(dirty []int) []bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	var slots []int
	if dirty != nil {
		slots = t.dirtySlots(dirty)
	}

	changed := make([]bool, len(t.roots))
	for r, nodes := range t.roots {
		changed[r] = t.refitRoot(nodes, slots, dirty == nil)
	}
	return changed
}

// dirtySlots maps face ids onto sorted logical primitive slots.
func (t *Tree) dirtySlots(faces []int) []int {
	count := t.primitiveCount()
	var inverse []int
	if t.indirect != nil {
		inverse = make([]int, count)
		for slot, face := range t.indirect {
			inverse[face] = slot
		}
	}

	slots := make([]int, len(faces))
	for i, face := range faces {
		if face < 0 || face >= count {
			panic(fmt.Sprintf("meshbvh: refit face %d outside [0, %d)", face, count))
		}
		if inverse != nil {
			slots[i] = inverse[face]
		} else {
			slots[i] = face
		}
	}
	sort.Ints(slots)
	return slots
}

// containsSlot reports whether any sorted slot falls inside the leaf range.
func containsSlot(slots []int, leaf LeafNode) bool {
	k := sort.SearchInts(slots, leaf.Start)
	return k < len(slots) && slots[k] < leaf.End()
}

// refitRoot walks the records back to front. Descendants always follow
// their ancestor, so every child is refit before its parent.
func (t *Tree) refitRoot(nodes []Node, slots []int, all bool) bool {
	visited := make([]bool, len(nodes))
	changed := false
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		var box BoundingBox
		if leaf, ok := n.Leaf(); ok {
			if !all && !containsSlot(slots, leaf) {
				continue
			}
			box = t.rangeBox(leaf.Start, leaf.Count)
		} else {
			l, r := leftChild(i), rightChild(nodes, i)
			if !all && !visited[l] && !visited[r] {
				continue
			}
			box = nodes[l].Box.Expand(nodes[r].Box)
		}
		visited[i] = true
		if !box.Equals(n.Box) {
			n.Box = box
			changed = true
		}
	}
	return changed
}
