// Package resolver implements the Style & Geometry Resolver (component C,
// §4.1.3): for each element it reads computed style and the bounding rect
// and fills every schema field fills/strokes/effects/corners/text/layout/
// transform/stacking — except asset bytes, which it defers to
// capture/assets via the AssetRef it returns alongside the node.
package resolver

import (
	"strconv"
	"strings"

	"domcast/capture"
	"domcast/capture/traverser"
	"domcast/common"
	"domcast/css"
	"domcast/scene"
)

// Options configures resolution (§6.4 subset relevant to the Resolver).
type Options struct {
	CoordinateSystem common.CoordinateSystem
}

// Result is what Resolve produces for one traversed pair: the node itself,
// any pending asset references discovered on it, and rasterization-decision
// inputs the caller (assembler, via capture/rasterizer) still needs.
type Result struct {
	Node    *scene.AnalyzedNode
	Assets  []capture.AssetRef
	Skipped bool // true if this pair resolves to nothing emittable
}

// Resolve consumes one traverser.Pair and produces the Result for it.
func Resolve(pair traverser.Pair, opts Options) (Result, error) {
	n := pair.Node

	if n.IsText() {
		return resolveText(pair, opts), nil
	}
	if pair.IsPseudo {
		return resolvePseudo(pair, opts), nil
	}
	return resolveElement(pair, opts)
}

func resolveText(pair traverser.Pair, opts Options) Result {
	text := pair.Node.TextContent()
	if strings.TrimSpace(text) == "" {
		return Result{Skipped: true}
	}
	style := pair.InheritedStyle
	node := &scene.AnalyzedNode{
		ID:        pair.NodeID,
		ParentID:  pair.ParentID,
		Name:      truncateName(text),
		HTMLTag:   "#text",
		Type:      common.NodeText,
		Opacity:   1,
		BlendMode: common.BlendNormal,
		TextStyle: resolveTextStyle(style),
	}
	node.Characters = text
	return Result{Node: node}
}

func resolvePseudo(pair traverser.Pair, opts Options) Result {
	style := pair.Node.PseudoComputedStyle(pair.Pseudo)
	content, _ := pair.Node.PseudoContent(pair.Pseudo)
	content = unquoteContent(content)

	node := &scene.AnalyzedNode{
		ID:        pair.NodeID,
		ParentID:  pair.ParentID,
		Name:      "::" + pair.Pseudo,
		HTMLTag:   pair.Node.TagName() + "::" + pair.Pseudo,
		Type:      common.NodePseudo,
		Opacity:   1,
		BlendMode: common.BlendNormal,
	}

	if strings.HasPrefix(content, "url(") {
		node.Type = common.NodeImage
	} else {
		node.Type = common.NodeText
		node.Characters = content
		node.TextStyle = resolveTextStyle(style)
	}
	applyLayout(node, pair.Node.BoundingRect(), opts)
	return Result{Node: node}
}

func unquoteContent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func truncateName(s string) string {
	s = strings.TrimSpace(s)
	const max = 40
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}

func resolveElement(pair traverser.Pair, opts Options) (Result, error) {
	n := pair.Node
	style := n.ComputedStyle()
	rect := n.BoundingRect()
	tag := n.TagName()

	node := &scene.AnalyzedNode{
		ID:       pair.NodeID,
		ParentID: pair.ParentID,
		HTMLTag:  tag,
		Name:     deriveName(n),
		Opacity:  1,
	}
	applyLayout(node, rect, opts)

	var assetRefs []capture.AssetRef

	node.Type = classifyType(tag, style)

	resolveLayoutContext(node, style)
	resolveTransform(node, style)
	resolveOpacityBlendIsolation(node, style)
	resolveCornerRadius(node, style)
	resolveClipping(node, style)
	resolveBorders(node, style)
	resolveEffects(node, style)

	fillAssets := resolveFills(node, style, pair.NodeID)
	assetRefs = append(assetRefs, fillAssets...)

	switch node.Type {
	case common.NodeImage:
		if ref, ok := resolveImageAsset(n, pair.NodeID); ok {
			assetRefs = append(assetRefs, ref)
		}
		resolveImageFit(node, style)
	case common.NodeVector:
		if ref, ok := resolveImageAsset(n, pair.NodeID); ok {
			ref.Kind = capture.AssetKindSVG
			assetRefs = append(assetRefs, ref)
		}
	}

	if n.IsCrossOriginFrame() {
		node.Type = common.NodeImage
		node.Rasterize = &scene.Rasterize{Reason: common.RasterizeReasonUnsupported}
	}

	node.CSSFilter = style.Get("filter")
	node.MixBlendMode = style.Get("mix-blend-mode")

	return Result{Node: node, Assets: assetRefs}, nil
}

func applyLayout(node *scene.AnalyzedNode, rect capture.Rect, opts Options) {
	node.AbsoluteLayout = scene.Rect{Left: rect.Left, Top: rect.Top, Width: rect.Width, Height: rect.Height}
}

func deriveName(n capture.DOMNode) string {
	if id, ok := n.Attr("id"); ok && id != "" {
		return id
	}
	if classes := n.ClassList(); len(classes) > 0 {
		return n.TagName() + "." + classes[0]
	}
	return n.TagName()
}

func classifyType(tag string, style capture.ComputedStyle) common.NodeType {
	switch tag {
	case "img", "video", "canvas", "picture":
		return common.NodeImage
	case "svg":
		return common.NodeVector
	case "input", "textarea", "select":
		return common.NodeRectangle
	}
	return common.NodeFrame
}

func resolveLayoutContext(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	lc := scene.LayoutContext{
		Position:  orDefault(style.Get("position"), "static"),
		Overflow:  orDefault(style.Get("overflow"), "visible"),
		Transform: style.Get("transform"),
	}
	if z := style.Get("z-index"); z != "" && z != "auto" {
		if v, err := strconv.Atoi(strings.TrimSpace(z)); err == nil {
			lc.ZIndex = &v
		}
	}
	lc.StackingContext = isStackingContext(style)
	node.LayoutContext = lc
}

// isStackingContext flags the conditions of §4.1.3 "Stacking": opacity < 1,
// a non-none transform, a filter, will-change, or z-index on a positioned
// element.
func isStackingContext(style capture.ComputedStyle) bool {
	if op := style.Get("opacity"); op != "" {
		if v, err := strconv.ParseFloat(op, 64); err == nil && v < 1 {
			return true
		}
	}
	if t := style.Get("transform"); t != "" && t != "none" {
		return true
	}
	if f := style.Get("filter"); f != "" && f != "none" {
		return true
	}
	if wc := style.Get("will-change"); wc != "" && wc != "auto" {
		return true
	}
	pos := style.Get("position")
	if (pos == "relative" || pos == "absolute" || pos == "fixed" || pos == "sticky") && style.Get("z-index") != "" && style.Get("z-index") != "auto" {
		return true
	}
	if iso := style.Get("isolation"); iso == "isolate" {
		return true
	}
	return false
}

func resolveOpacityBlendIsolation(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	node.Opacity = 1
	if op := style.Get("opacity"); op != "" {
		if v, err := strconv.ParseFloat(op, 64); err == nil {
			node.Opacity = v
		}
	}
	node.Isolation = style.Get("isolation") == "isolate"

	blend, ok := common.RepresentableBlendMode(style.Get("mix-blend-mode"))
	if !ok {
		node.BlendMode = common.BlendNormal
		node.Rasterize = &scene.Rasterize{Reason: common.RasterizeReasonBlendMode}
	} else {
		node.BlendMode = blend
	}
}

func resolveCornerRadius(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	tl, _ := css.ParseLength(style.Get("border-top-left-radius"))
	tr, _ := css.ParseLength(style.Get("border-top-right-radius"))
	br, _ := css.ParseLength(style.Get("border-bottom-right-radius"))
	bl, _ := css.ParseLength(style.Get("border-bottom-left-radius"))
	node.CornerRadius = scene.CornerRadius{TopLeft: tl, TopRight: tr, BottomRight: br, BottomLeft: bl}
}

func resolveClipping(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	overflow := style.Get("overflow")
	node.ClipsContent = overflow == "hidden" || overflow == "clip" || overflow == "auto" || overflow == "scroll"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
