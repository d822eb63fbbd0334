package tree

// Flatten walks the tree in pre-order (parent before children), assigns a
// fresh id to any node that lacks one, stamps every child with its parent's
// id, and returns the full ordered node sequence. The result is the single
// source of truth for rebuilding the id index after any edit.
func Flatten(root *Node) []*Node {
	if root == nil {
		return nil
	}
	if root.ID == "" {
		root.ID = NewID()
	}
	out := []*Node{root}
	for _, child := range root.Children {
		child.ParentID = root.ID
		out = append(out, Flatten(child)...)
	}
	return out
}

// BuildIndex flattens the tree and returns both the ordered sequence and the
// id-keyed lookup table derived from it.
func BuildIndex(root *Node) ([]*Node, map[string]*Node) {
	order := Flatten(root)
	index := make(map[string]*Node, len(order))
	for _, n := range order {
		index[n.ID] = n
	}
	return order, index
}

// Ancestry returns the lineage of n beginning with the root and ending with n
// itself. A dangling parent id terminates the walk early.
func Ancestry(n *Node, index map[string]*Node) []*Node {
	lineage := []*Node{n}
	for n.ParentID != "" {
		parent, ok := index[n.ParentID]
		if !ok {
			break
		}
		lineage = append(lineage, parent)
		n = parent
	}
	// Reverse in place so the root comes first.
	for i, j := 0, len(lineage)-1; i < j; i, j = i+1, j-1 {
		lineage[i], lineage[j] = lineage[j], lineage[i]
	}
	return lineage
}

// Height of n; a leaf has height 1.
func Height(n *Node) int {
	max := 0
	for _, child := range n.Children {
		if h := Height(child); h > max {
			max = h
		}
	}
	return 1 + max
}

// Depth of n below the root; the root has depth 0.
func Depth(n *Node, index map[string]*Node) int {
	d := 0
	for n.ParentID != "" {
		parent, ok := index[n.ParentID]
		if !ok {
			break
		}
		d++
		n = parent
	}
	return d
}

// DescendantCount counts n and everything below it.
func DescendantCount(n *Node) int {
	count := 1
	for _, child := range n.Children {
		count += DescendantCount(child)
	}
	return count
}

// LeafCount counts the leaves in n's subtree; a leaf counts itself.
func LeafCount(n *Node) int {
	if len(n.Children) == 0 {
		return 1
	}
	count := 0
	for _, child := range n.Children {
		count += LeafCount(child)
	}
	return count
}
