// Package enhancer implements the optional post-capture schema rewriter
// (component J, §4.6/§6.5): a pure, deterministic, idempotent function
// SceneSchema -> SceneSchema that fills additive annotations (OCR text, ML
// classification hints, suggested auto-layout, a normalized type scale)
// without touching any field the capture agent or importer treats as
// authoritative.
//
// Grounded on fbc's fb2/clone.go deep-clone discipline: the same mechanism
// that lets fbc treat a parsed FictionBook as immutable across alternate
// output-format runs (convert/epub, convert/kfx both read the same parsed
// document) lets Enhance treat its input schema as immutable across
// repeated or chained enhancement passes.
package enhancer

import (
	"domcast/common"
	"domcast/scene"
)

// maxInferredFillAreaFraction guards against the Enhancer inventing a
// background fill for most of the page (§4.6 "skipped if the target node
// exceeds ~5% of viewport area").
const maxInferredFillAreaFraction = 0.05

// maxInferredFillsPerCapture caps total inferred fills per capture (§4.6
// "total inferred fills per capture are capped").
const maxInferredFillsPerCapture = 25

// OCRWord is one recognized word with its bounding box, in the same
// coordinate system as the schema being enhanced.
type OCRWord struct {
	Text string
	Rect scene.Rect
}

// MLBox is one detector bounding box with a label/confidence, used both for
// suggestedComponentType and node.mlClassification.
type MLBox struct {
	Label      string
	Confidence float64
	Rect       scene.Rect
}

// PaletteHint proposes a solid fill for a node whose rect it overlaps.
type PaletteHint struct {
	Rect  scene.Rect
	Color string
}

// TypographyScale is a detected set of normalized font sizes (e.g. a type
// scale like 12/14/16/20/24/32) that node font sizes snap to.
type TypographyScale struct {
	Sizes []float64
}

// AIContext bundles the optional inputs of §6.5's enhance(schema, {ocr?,
// mlComponents?, palette?, typography?, spacingScale?}). Every field is
// optional; a nil/zero field skips the corresponding annotation pass.
type AIContext struct {
	OCR          []OCRWord
	MLComponents []MLBox
	Palette      []PaletteHint
	Typography   *TypographyScale
	SpacingScale []float64
}

// Enhance implements §4.6/§6.5. It never mutates schema; the returned
// schema is a deep clone with additive fields set. Calling Enhance again on
// the result with the same ctx is a no-op beyond the first pass (idempotent,
// §4.6 "enhance(enhance(s)) == enhance(s)") because every pass only ever
// sets a field from a freshly empty state, never accumulates onto a
// previous run's output.
func Enhance(schema *scene.SceneSchema, ctx AIContext) (*scene.SceneSchema, error) {
	if schema == nil {
		return nil, common.NewError(common.ErrIncompatibleSchema, "nil schema")
	}
	out := schema.Clone()
	if out.Root == nil {
		return out, nil
	}

	budget := maxInferredFillsPerCapture
	viewportArea := out.Metadata.Viewport.Width * out.Metadata.Viewport.Height

	var walk func(n *scene.AnalyzedNode)
	walk = func(n *scene.AnalyzedNode) {
		applyOCR(n, ctx.OCR)
		applyML(n, ctx.MLComponents)
		applyPalette(n, ctx.Palette, viewportArea, &budget)
		applyAutoLayoutHint(n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(out.Root)

	if ctx.Typography != nil {
		normalizeTypeScale(out.Root, ctx.Typography.Sizes)
	}

	return out, nil
}

func rectsOverlap(a, b scene.Rect) bool {
	return a.Left < b.Left+b.Width && a.Left+a.Width > b.Left &&
		a.Top < b.Top+b.Height && a.Top+a.Height > b.Top
}

func rectCenterInside(word, node scene.Rect) bool {
	cx, cy := word.Left+word.Width/2, word.Top+word.Height/2
	return cx >= node.Left && cx <= node.Left+node.Width &&
		cy >= node.Top && cy <= node.Top+node.Height
}

// applyOCR sets node.OCRText from OCR word clusters whose centers fall
// inside an image-like node's rect, joined into sentence-level runs via
// sentenceJoin (§7 "OCR text via neurosnap/sentences sentence segmentation").
func applyOCR(n *scene.AnalyzedNode, words []OCRWord) {
	if n.Type != common.NodeImage && n.Type != common.NodeRectangle {
		return
	}
	var cluster []string
	for _, w := range words {
		if rectCenterInside(w.Rect, n.AbsoluteLayout) {
			cluster = append(cluster, w.Text)
		}
	}
	if len(cluster) == 0 {
		return
	}
	n.OCRText = sentenceJoin(cluster)
}

// applyML sets mlClassification/suggestedComponentType where a detector box
// overlaps a node's rect, keeping the highest-confidence match.
func applyML(n *scene.AnalyzedNode, boxes []MLBox) {
	var best *MLBox
	for i := range boxes {
		if !rectsOverlap(boxes[i].Rect, n.AbsoluteLayout) {
			continue
		}
		if best == nil || boxes[i].Confidence > best.Confidence {
			b := boxes[i]
			best = &b
		}
	}
	if best == nil {
		return
	}
	n.MLClassification = &scene.MLClassification{Label: best.Label, Confidence: best.Confidence}
	n.SuggestedComponentType = best.Label
}

// applyPalette sets an inferred solid fill guarded by the area/count caps of
// §4.6: never on a node exceeding ~5% of viewport area, and never past the
// per-capture cap.
func applyPalette(n *scene.AnalyzedNode, hints []PaletteHint, viewportArea float64, budget *int) {
	if *budget <= 0 || len(n.Fills) > 0 {
		return
	}
	area := n.AbsoluteLayout.Width * n.AbsoluteLayout.Height
	if viewportArea > 0 && area/viewportArea > maxInferredFillAreaFraction {
		return
	}
	for _, h := range hints {
		if !rectsOverlap(h.Rect, n.AbsoluteLayout) {
			continue
		}
		n.Fills = append(n.Fills, scene.Paint{Type: common.PaintSolid, Color: h.Color, Opacity: 1, Visible: true})
		*budget--
		return
	}
}

// applyAutoLayoutHint sets suggestedAutoLayout when a node's children form
// a clear horizontal or vertical cluster that the capture agent's own
// autoLayout detection (driven by CSS flex, §4.1.3) did not already flag.
func applyAutoLayoutHint(n *scene.AnalyzedNode) {
	if n.AutoLayout != nil || len(n.Children) < 2 {
		return
	}
	horizontal, vertical := true, true
	prev := n.Children[0]
	for _, c := range n.Children[1:] {
		if c.AbsoluteLayout.Top < prev.AbsoluteLayout.Top+prev.AbsoluteLayout.Height-1 {
			horizontal = false
		}
		if c.AbsoluteLayout.Left < prev.AbsoluteLayout.Left+prev.AbsoluteLayout.Width-1 {
			vertical = false
		}
		prev = c
	}
	switch {
	case horizontal && !vertical:
		n.SuggestedAutoLayout = &scene.SuggestedAutoLayout{Mode: common.AutoLayoutHorizontal}
	case vertical && !horizontal:
		n.SuggestedAutoLayout = &scene.SuggestedAutoLayout{Mode: common.AutoLayoutVertical}
	}
}

// normalizeTypeScale snaps each TEXT node's font size to the nearest entry
// in sizes, preserving the original as originalFontSize (§4.6).
func normalizeTypeScale(n *scene.AnalyzedNode, sizes []float64) {
	if n.Type == common.NodeText && n.TextStyle != nil && len(sizes) > 0 {
		nearest := sizes[0]
		for _, s := range sizes {
			if abs(s-n.TextStyle.FontSize) < abs(nearest-n.TextStyle.FontSize) {
				nearest = s
			}
		}
		if nearest != n.TextStyle.FontSize {
			orig := n.TextStyle.FontSize
			n.TextStyle.OriginalFontSize = &orig
			n.TextStyle.FontSize = nearest
		}
	}
	for _, c := range n.Children {
		normalizeTypeScale(c, sizes)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
