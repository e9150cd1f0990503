package scene

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"

	"domcast/common"
)

// Validate enforces the hard invariants of §3.2. It never mutates schema; a
// non-nil error aggregates every violation found via multierr, matching the
// aggregation style fbc's own document-level consistency checks use.
func Validate(s *SceneSchema) error {
	if s == nil {
		return common.NewError(common.ErrIncompatibleSchema, "nil schema")
	}

	var errs error

	if s.Root == nil {
		return multierr.Append(errs, common.NewError(common.ErrIncompatibleSchema, "schema has no root node"))
	}
	if s.Root.Type != common.NodeFrame {
		errs = multierr.Append(errs, fmt.Errorf("root node must be type FRAME, got %s", s.Root.Type))
	}
	if s.Root.AbsoluteLayout.Width != s.Metadata.Viewport.Width || s.Root.AbsoluteLayout.Height != s.Metadata.Viewport.Height {
		errs = multierr.Append(errs, fmt.Errorf(
			"root layout (%gx%g) does not match viewport (%gx%g)",
			s.Root.AbsoluteLayout.Width, s.Root.AbsoluteLayout.Height,
			s.Metadata.Viewport.Width, s.Metadata.Viewport.Height))
	}

	ids := make(map[string]*AnalyzedNode)
	collectIDs(s.Root, ids)

	walkNodes(s.Root, func(n *AnalyzedNode) {
		if w, h := n.AbsoluteLayout.Width, n.AbsoluteLayout.Height; w < 0 || h < 0 || math.IsNaN(w) || math.IsNaN(h) || math.IsInf(w, 0) || math.IsInf(h, 0) {
			errs = multierr.Append(errs, fmt.Errorf("node %s has invalid layout dimensions (%g x %g)", n.ID, w, h))
		}
		if w, h := n.AbsoluteLayout.Width, n.AbsoluteLayout.Height; w == 0 && h == 0 && n != s.Root {
			errs = multierr.Append(errs, fmt.Errorf("node %s has zero-size layout and should have been omitted", n.ID))
		}

		if n.ParentID != "" {
			if _, ok := ids[n.ParentID]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("node %s has dangling parentId %s", n.ID, n.ParentID))
			}
		}

		if n.AbsoluteTransform != nil {
			m := n.AbsoluteTransform.Matrix
			for i, v := range m {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					errs = multierr.Append(errs, fmt.Errorf("node %s transform component %d is not finite", n.ID, i))
				}
			}
			det := m[0]*m[3] - m[1]*m[2]
			if det == 0 {
				errs = multierr.Append(errs, fmt.Errorf("node %s transform matrix is degenerate (determinant 0)", n.ID))
			}
		}

		if n.Type == common.NodeImage && n.ImageHash != "" {
			if _, ok := s.Assets.Images[n.ImageHash]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("node %s references missing asset %s", n.ID, n.ImageHash))
			}
		}

		if n.Rasterize != nil && n.Rasterize.DataURL != "" {
			if !strings.HasPrefix(n.Rasterize.DataURL, "data:image/") {
				errs = multierr.Append(errs, fmt.Errorf("node %s rasterize.dataUrl is not a data:image/ URL", n.ID))
			}
		}
	})

	if s.Metadata.CaptureCoordinateSystem != common.CoordinateCSSPixels && s.Metadata.CaptureCoordinateSystem != common.CoordinateDevicePixels {
		errs = multierr.Append(errs, fmt.Errorf("metadata.captureCoordinateSystem %q is not a known coordinate system", s.Metadata.CaptureCoordinateSystem))
	}

	return errs
}

func collectIDs(n *AnalyzedNode, out map[string]*AnalyzedNode) {
	if n == nil {
		return
	}
	out[n.ID] = n
	for _, c := range n.Children {
		collectIDs(c, out)
	}
}

func walkNodes(n *AnalyzedNode, fn func(*AnalyzedNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		walkNodes(c, fn)
	}
}
