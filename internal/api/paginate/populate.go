package paginate

import "strings"

// PopulateNode is one reference to load. A node without children is a leaf.
type PopulateNode struct {
	Path     string
	Populate []PopulateNode
}

// ParsePopulate merges "author.company,author.team,tags" into a load tree so
// shared prefixes are requested once. Paths are applied in order: a later
// path that names an existing node as its last segment turns it back into a
// leaf, and a later deeper path expands a leaf again.
func ParsePopulate(populate string) []PopulateNode {
	root := newLoadTree()
	for _, option := range strings.Split(populate, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(option, ".") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			root.add(parts)
		}
	}
	return root.nodes()
}

type loadTree struct {
	order    []string
	children map[string]*loadTree // nil marks a leaf
}

func newLoadTree() *loadTree {
	return &loadTree{children: make(map[string]*loadTree)}
}

func (t *loadTree) add(parts []string) {
	cur := t
	for i, part := range parts {
		child, seen := cur.children[part]
		if !seen {
			cur.order = append(cur.order, part)
		}
		if i == len(parts)-1 {
			cur.children[part] = nil
			return
		}
		if child == nil {
			child = newLoadTree()
			cur.children[part] = child
		}
		cur = child
	}
}

func (t *loadTree) nodes() []PopulateNode {
	if len(t.order) == 0 {
		return nil
	}
	out := make([]PopulateNode, 0, len(t.order))
	for _, key := range t.order {
		node := PopulateNode{Path: key}
		if child := t.children[key]; child != nil {
			node.Populate = child.nodes()
		}
		out = append(out, node)
	}
	return out
}
