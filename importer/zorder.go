package importer

import (
	"sort"

	"domcast/scene"
)

// sortByZOrder pre-sorts children by effective z-index across stacking
// contexts while leaving same-z-index siblings in schema order (§4.8 step
// 10), generalized from convert/kfx/linearize.go's linear reading-order pass
// from a single document axis to z-index layering.
func sortByZOrder(children []*scene.AnalyzedNode) []*scene.AnalyzedNode {
	if len(children) < 2 {
		return children
	}
	out := make([]*scene.AnalyzedNode, len(children))
	copy(out, children)
	sort.SliceStable(out, func(i, j int) bool {
		return effectiveZIndex(out[i]) < effectiveZIndex(out[j])
	})
	return out
}

func effectiveZIndex(n *scene.AnalyzedNode) int {
	if n.LayoutContext.ZIndex != nil {
		return *n.LayoutContext.ZIndex
	}
	return 0
}
