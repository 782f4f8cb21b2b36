package meshbvh

import "fmt"

// Validate checks the invariants of every root: each internal box equals the
// union of its children, each leaf box contains its primitives, the left
// child follows its parent, and the leaf ranges partition the primitives in
// order without gaps.
func (t *Tree) Validate() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.validate()
}

func (t *Tree) validate() error {
	v := validator{tree: t}
	for r, nodes := range t.roots {
		v.root, v.nodes = r, nodes
		end, err := v.walk(0)
		if err != nil {
			return err
		}
		if end != len(nodes) {
			return v.errorf(end, "%d unreachable records", len(nodes)-end)
		}
	}
	if v.next != t.primitiveCount() {
		return fmt.Errorf("%w: leaves cover %d of %d primitives", ErrTreeInvariant, v.next, t.primitiveCount())
	}
	return nil
}

type validator struct {
	tree  *Tree
	root  int
	nodes []Node
	// First primitive the next leaf must start at.
	next int
}

func (v *validator) errorf(i int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: root %d node %d: %s", ErrTreeInvariant, v.root, i, fmt.Sprintf(format, args...))
}

// walk checks the subtree at i and returns the index one past its last record.
func (v *validator) walk(i int) (int, error) {
	if i >= len(v.nodes) {
		return 0, v.errorf(i, "record out of range")
	}
	n := &v.nodes[i]

	if leaf, ok := n.Leaf(); ok {
		if leaf.Start != v.next {
			return 0, v.errorf(i, "leaf starts at %d, expected %d", leaf.Start, v.next)
		}
		if leaf.Count <= 0 || leaf.End() > v.tree.primitiveCount() {
			return 0, v.errorf(i, "leaf range [%d, %d) is invalid", leaf.Start, leaf.End())
		}
		for p := leaf.Start; p < leaf.End(); p++ {
			if !n.Box.ContainsBox(primitiveBox(v.tree.triangle(p))) {
				return 0, v.errorf(i, "leaf box does not contain primitive %d", p)
			}
		}
		v.next = leaf.End()
		return i + 1, nil
	}

	right := rightChild(v.nodes, i)
	endLeft, err := v.walk(leftChild(i))
	if err != nil {
		return 0, err
	}
	if endLeft != right {
		return 0, v.errorf(i, "right child at %d, left subtree ends at %d", right, endLeft)
	}
	endRight, err := v.walk(right)
	if err != nil {
		return 0, err
	}
	if !n.Box.Equals(v.nodes[leftChild(i)].Box.Expand(v.nodes[right].Box)) {
		return 0, v.errorf(i, "box is not the union of its children")
	}
	return endRight, nil
}
