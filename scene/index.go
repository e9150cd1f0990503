package scene

// Index is a once-built lookup over a SceneSchema's node tree, the
// scene-package analogue of fbc's FictionBook id/ancestor indexes
// (fb2/index.go's buildIDIndex): both the importer and the enhancer need
// id/children/ancestor lookups repeatedly and neither should re-walk the
// tree to get them.
type Index struct {
	byID     map[string]*AnalyzedNode
	children map[string][]*AnalyzedNode
	parent   map[string]*AnalyzedNode
}

// BuildIndex walks schema once and returns an Index over its nodes.
func BuildIndex(s *SceneSchema) *Index {
	idx := &Index{
		byID:     make(map[string]*AnalyzedNode),
		children: make(map[string][]*AnalyzedNode),
		parent:   make(map[string]*AnalyzedNode),
	}
	if s == nil || s.Root == nil {
		return idx
	}
	idx.index(s.Root, nil)
	return idx
}

func (idx *Index) index(n *AnalyzedNode, parent *AnalyzedNode) {
	idx.byID[n.ID] = n
	if parent != nil {
		idx.parent[n.ID] = parent
		idx.children[parent.ID] = append(idx.children[parent.ID], n)
	}
	for _, c := range n.Children {
		idx.index(c, n)
	}
}

// NodeByID looks up a node by its stable id.
func (idx *Index) NodeByID(id string) (*AnalyzedNode, bool) {
	n, ok := idx.byID[id]
	return n, ok
}

// Children returns the direct children of id in schema order.
func (idx *Index) Children(id string) []*AnalyzedNode {
	return idx.children[id]
}

// ParentOf returns id's direct parent, if any.
func (idx *Index) ParentOf(id string) (*AnalyzedNode, bool) {
	p, ok := idx.parent[id]
	return p, ok
}

// Ancestors returns id's ancestors, nearest first, root last.
func (idx *Index) Ancestors(id string) []*AnalyzedNode {
	var out []*AnalyzedNode
	cur, ok := idx.byID[id]
	if !ok {
		return nil
	}
	for {
		p, ok := idx.parent[cur.ID]
		if !ok {
			return out
		}
		out = append(out, p)
		cur = p
	}
}
