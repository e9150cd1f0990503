package scene

import (
	"fmt"

	"domcast/common"
)

// Warning is a soft anomaly surfaced by Normalize: schema-legal but worth a
// second look, the same tier fbc's fb2/normalize.go reports for FictionBook
// documents that parse but look suspicious.
type Warning struct {
	NodeID  string
	Message string
}

// Normalize runs a non-mutating pass over schema looking for soft anomalies
// that do not violate §3.2 but likely indicate an upstream capture or
// enhancer bug. It never returns an error and never modifies schema.
func Normalize(s *SceneSchema) []Warning {
	if s == nil || s.Root == nil {
		return nil
	}

	var warnings []Warning
	walkNodes(s.Root, func(n *AnalyzedNode) {
		if n.Rasterize != nil && n.Rasterize.DataURL != "" && len(n.Fills) > 0 {
			warnings = append(warnings, Warning{
				NodeID:  n.ID,
				Message: "node carries both rasterize.dataUrl and non-empty fills; import step 6 will discard the fills",
			})
		}
		if n.Type == common.NodeImage && n.ImageHash == "" && n.Rasterize == nil {
			warnings = append(warnings, Warning{
				NodeID:  n.ID,
				Message: "IMAGE node has neither imageHash nor rasterize fallback",
			})
		}
		if n.AutoLayout != nil && len(n.Children) == 0 {
			warnings = append(warnings, Warning{
				NodeID:  n.ID,
				Message: "autoLayout set on a childless node",
			})
		}
		if n.TextStyle != nil && n.TextStyle.FontSize <= 0 {
			warnings = append(warnings, Warning{
				NodeID:  n.ID,
				Message: fmt.Sprintf("text node has non-positive fontSize %g", n.TextStyle.FontSize),
			})
		}
	})
	return warnings
}
