package importer

import (
	"go.uber.org/zap"

	"domcast/common"
	"domcast/scene"
)

// buildNode implements the strict, non-negotiable 10-step ordering of §4.8.
// This is a corrective rewrite of the failure mode documented there and in
// §9's Open Questions: an early return after step 4 (applying the
// transform) produces a correctly positioned but visually empty "white
// frame" because fills/children are never reached. The two early-return
// points §4.8 allows are named inline; every other step runs unconditionally
// for every node, and a per-node error is caught at this boundary (the
// "any step may throw" exception) without aborting the sibling walk.
//
// parentAutoLayout reports whether parent is itself auto-layout, per step 9
// ("when the parent is auto-layout, the importer does not set absolute
// position").
func (b *builder) buildNode(n *scene.AnalyzedNode, parent any, parentAutoLayout *scene.AutoLayout) (any, bool) {
	handle, ok := b.step1Create(n)
	if !ok {
		return nil, false
	}

	// Step 2: attach.
	if err := b.api.Attach(handle, parent); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "attach", err))
		return handle, false
	}

	// Step 3: resize to untransformed dimensions.
	w, h := rescale(n.AbsoluteLayout.Width, b.factor), rescale(n.AbsoluteLayout.Height, b.factor)
	if err := b.api.Resize(handle, w, h); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "resize", err))
		// Do not return: a failed resize still leaves a node worth
		// positioning and filling, per §4.9's "continue past it".
	}

	// Step 4: apply transform if present. The legacy-matrix early return is
	// the first of the two §4.8-sanctioned exceptions; this implementation
	// never takes that path (there is no separate legacy-matrix field in
	// scene.AnalyzedNode), so the transform step always falls through to
	// steps 5-10 — never returns here.
	if n.AbsoluteTransform != nil {
		if err := b.api.SetTransform(handle, n.AbsoluteTransform.Matrix); err != nil {
			b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set transform", err))
		}
	}

	// Step 5: filters/blend mode from the representable subset (§4.1.7).
	b.step5Filters(n, handle)

	// Step 6: rasterization fallback supersedes step 7's fill logic.
	rasterized := false
	if n.Rasterize != nil && n.Rasterize.DataURL != "" {
		rasterized = b.step6Rasterize(n, handle)
	}

	// Step 7: fills/strokes/corner radius/effects not already applied.
	if !rasterized {
		b.step7Paint(n, handle)
	} else {
		b.applyStrokesEffectsCorner(n, handle)
	}

	// Step 8: auto-layout.
	if n.AutoLayout != nil {
		if err := b.api.SetAutoLayout(handle, n.AutoLayout); err != nil {
			b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set auto-layout", err))
		}
	}

	// Step 9: position relative to parent, skipped when the parent itself
	// is auto-layout ("relies on insertion order" instead).
	if parentAutoLayout == nil {
		b.positionRelativeToParent(n, handle)
	}

	// Step 10: recurse, pre-sorting by effective z-index across stacking
	// contexts; same-context children keep schema (paint) order.
	children := n.Children
	if n.LayoutContext.StackingContext {
		children = sortByZOrder(children)
	}
	for _, c := range children {
		b.buildNode(c, handle, n.AutoLayout)
	}

	b.stats.NodesCreated++
	return handle, true
}

// step1Create is step 1: create the node of the mapped target kind. A
// creation failure is recorded and the subtree under n is skipped entirely
// — there is no handle to attach children to.
func (b *builder) step1Create(n *scene.AnalyzedNode) (any, bool) {
	kind := n.Type
	if !kind.Valid() {
		kind = common.NodeFrame
	}
	handle, err := b.api.CreateNode(kind, n.Name)
	if err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "create node", err))
		return nil, false
	}
	return handle, true
}

// step5Filters sets the node's target blend mode (BlendNormal when unset).
// It adds no LAYER_BLUR/DROP_SHADOW effects derived from cssFilter: the only
// effects a node receives are n.Effects, applied in step 7. Brightness/
// contrast/saturate reach the host only as ImageFilters on the IMAGE paints
// passed to SetFills in step 7.
func (b *builder) step5Filters(n *scene.AnalyzedNode, handle any) {
	mode := n.BlendMode
	if mode == "" {
		mode = common.BlendNormal
	}
	if err := b.api.SetBlendMode(handle, mode); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set blend mode", err))
	}
}

// step6Rasterize decodes and uploads the rasterized fallback image, setting
// the node's fills to a single IMAGE paint from it. This supersedes fills
// for the node (§4.8 step 6, §4.1.7 "replaces ... all other visual fields").
// cssFilter and mixBlendMode are intentionally ignored for a rasterized node.
func (b *builder) step6Rasterize(n *scene.AnalyzedNode, handle any) bool {
	imgHandle, err := b.images.uploadRasterized(n.Rasterize.DataURL)
	if err != nil {
		b.fail(n.ID, err)
		b.placeholderFill(n, handle)
		return false
	}
	fill := scene.Paint{Type: common.PaintImage, Opacity: 1, Visible: true}
	if err := b.api.SetFills(handle, []scene.Paint{fill}, []any{imgHandle}); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set rasterized fill", err))
		return false
	}
	return true
}

// step7Paint applies fills, strokes, corner radius, and effects for a
// non-rasterized node (§4.8 step 7). Image fills are resolved through the
// image cache so repeated imageHash references share one upload (§4.7.3).
func (b *builder) step7Paint(n *scene.AnalyzedNode, handle any) {
	fills := n.Fills
	if len(fills) == 0 && n.Type == common.NodeImage && n.ImageHash != "" {
		// A bare <img>/<video>/<canvas> node carries its asset on the node
		// itself rather than as a Fills entry (§4.1.3 "Images"); synthesize
		// the IMAGE paint here so it still reaches SetFills, carrying along
		// any representable brightness/contrast/saturate filter (§4.1.7
		// rule 1 carve-out).
		fills = []scene.Paint{{
			Type: common.PaintImage, ImageHash: n.ImageHash, ImageFit: n.ImageFit,
			ImageFilters: n.ImageFilters, Opacity: 1, Visible: true,
		}}
	}
	fills = append([]scene.Paint(nil), fills...)
	imageHandles := make([]any, len(fills))
	for i := range fills {
		if fills[i].Type == common.PaintImage && fills[i].ImageHash != "" {
			h, err := b.resolveImageFill(n, fills[i].ImageHash)
			if err != nil {
				b.fail(n.ID, err)
				fills[i] = scene.Paint{Type: common.PaintSolid, Color: b.opts.PlaceholderColor, Opacity: 1, Visible: true}
				continue
			}
			imageHandles[i] = h
		}
	}
	if err := b.api.SetFills(handle, fills, imageHandles); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set fills", err))
	}
	b.applyStrokesEffectsCorner(n, handle)
}

func (b *builder) applyStrokesEffectsCorner(n *scene.AnalyzedNode, handle any) {
	if err := b.api.SetStrokes(handle, n.Strokes); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set strokes", err))
	}
	if err := b.api.SetCornerRadius(handle, n.CornerRadius); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set corner radius", err))
	}
	if err := b.api.SetEffects(handle, n.Effects); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "set effects", err))
	}
}

// resolveImageFill uploads (or fetches cached) image bytes for hash,
// recovering per §7's AssetFetchFailed policy: a missing/failed asset
// becomes a placeholder rather than aborting the node.
func (b *builder) resolveImageFill(n *scene.AnalyzedNode, hash string) (any, error) {
	asset, ok := b.schemaAsset(hash)
	if !ok {
		return nil, common.NewError(common.ErrAssetFetchFailed, "unknown imageHash "+hash)
	}
	return b.images.upload(hash, asset, "")
}

// schemaAsset is overridden per Build call via assets; declared here so
// buildNode's call sites compile against a stable method set even before
// assets are wired (see Build in importer.go, which seeds b.assets).
func (b *builder) schemaAsset(hash string) ([]byte, bool) {
	data, ok := b.assets[hash]
	return data, ok
}

// placeholderFill sets a neutral solid fill (§4.9 "placeholder solid fill
// (neutral gray)") when an asset handle could not be created.
func (b *builder) placeholderFill(n *scene.AnalyzedNode, handle any) {
	fill := scene.Paint{Type: common.PaintSolid, Color: b.opts.PlaceholderColor, Opacity: 1, Visible: true}
	if err := b.api.SetFills(handle, []scene.Paint{fill}, []any{nil}); err != nil {
		b.opts.Log.Warn("placeholder fill failed", zap.String("nodeId", n.ID), zap.Error(err))
	}
}

// positionRelativeToParent implements step 9: position derived from
// absoluteLayout minus the parent's absoluteLayout, in rescaled/rounded
// leaf coordinates (§4.7.4).
func (b *builder) positionRelativeToParent(n *scene.AnalyzedNode, handle any) {
	x := rescale(n.AbsoluteLayout.Left-b.parentLeft(n), b.factor)
	y := rescale(n.AbsoluteLayout.Top-b.parentTop(n), b.factor)
	if err := b.api.Position(handle, x, y); err != nil {
		b.fail(n.ID, common.WrapError(common.ErrNodeBuildFailed, "position", err))
	}
}

// parentLeft/parentTop read the ancestor rect tracked by Build via
// b.index, so §4.8 step 9 does not need to thread parent geometry through
// every recursive call explicitly.
func (b *builder) parentLeft(n *scene.AnalyzedNode) float64 {
	if p, ok := b.index.ParentOf(n.ID); ok {
		return p.AbsoluteLayout.Left
	}
	return 0
}

func (b *builder) parentTop(n *scene.AnalyzedNode) float64 {
	if p, ok := b.index.ParentOf(n.ID); ok {
		return p.AbsoluteLayout.Top
	}
	return 0
}
