// Package common holds small value types shared by every other package:
// the node/paint/effect enums that make up the tagged-variant shape of
// scene.AnalyzedNode, and the ErrorKind taxonomy of §7.
package common

import "fmt"

// NodeType selects which of AnalyzedNode's optional fields are meaningful.
// Downstream consumers switch on Type rather than sniff which fields are set.
type NodeType string

const (
	NodeFrame     NodeType = "FRAME"
	NodeText      NodeType = "TEXT"
	NodeRectangle NodeType = "RECTANGLE"
	NodeImage     NodeType = "IMAGE"
	NodeVector    NodeType = "VECTOR"
	NodePseudo    NodeType = "PSEUDO"
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeFrame, NodeText, NodeRectangle, NodeImage, NodeVector, NodePseudo:
		return true
	default:
		return false
	}
}

// PaintType is the kind of a single paint entry in a fill or stroke list.
type PaintType string

const (
	PaintSolid          PaintType = "SOLID"
	PaintGradientLinear PaintType = "GRADIENT_LINEAR"
	PaintGradientRadial PaintType = "GRADIENT_RADIAL"
	PaintImage          PaintType = "IMAGE"
)

// StrokeAlign is where a stroke's weight is drawn relative to the node's
// geometric edge.
type StrokeAlign string

const (
	StrokeInside StrokeAlign = "INSIDE"
	StrokeOutside StrokeAlign = "OUTSIDE"
	StrokeCenter StrokeAlign = "CENTER"
)

// EffectType enumerates the representable (non-rasterized) visual effects.
type EffectType string

const (
	EffectDropShadow     EffectType = "DROP_SHADOW"
	EffectInnerShadow    EffectType = "INNER_SHADOW"
	EffectLayerBlur      EffectType = "LAYER_BLUR"
	EffectBackgroundBlur EffectType = "BACKGROUND_BLUR"
)

// ImageFit is the target-model scale mode an IMAGE node's paint uses, derived
// from CSS object-fit / background-size per the table in spec §4.1.5.
type ImageFit string

const (
	ImageFitFill ImageFit = "FILL"
	ImageFitFit  ImageFit = "FIT"
	ImageFitCrop ImageFit = "CROP"
	ImageFitTile ImageFit = "TILE"
)

// BlendMode is the subset of CSS mix-blend-mode values the target node model
// can represent exactly. Anything else forces rasterization (§4.1.7).
type BlendMode string

const (
	BlendNormal     BlendMode = "NORMAL"
	BlendMultiply   BlendMode = "MULTIPLY"
	BlendScreen     BlendMode = "SCREEN"
	BlendOverlay    BlendMode = "OVERLAY"
	BlendDarken     BlendMode = "DARKEN"
	BlendLighten    BlendMode = "LIGHTEN"
	BlendColorDodge BlendMode = "COLOR_DODGE"
	BlendColorBurn  BlendMode = "COLOR_BURN"
	BlendDifference BlendMode = "DIFFERENCE"
	BlendExclusion  BlendMode = "EXCLUSION"
)

// RepresentableBlendMode maps a CSS mix-blend-mode keyword to a BlendMode,
// reporting false when the target model has no exact representation for it
// (the caller must then force rasterization per §4.1.7 rule 2).
func RepresentableBlendMode(cssKeyword string) (BlendMode, bool) {
	switch cssKeyword {
	case "", "normal":
		return BlendNormal, true
	case "multiply":
		return BlendMultiply, true
	case "screen":
		return BlendScreen, true
	case "overlay":
		return BlendOverlay, true
	case "darken":
		return BlendDarken, true
	case "lighten":
		return BlendLighten, true
	case "color-dodge":
		return BlendColorDodge, true
	case "color-burn":
		return BlendColorBurn, true
	case "difference":
		return BlendDifference, true
	case "exclusion":
		return BlendExclusion, true
	default:
		// hue, saturation, color, luminosity, hard-light, soft-light: no
		// target equivalent.
		return "", false
	}
}

// CoordinateSystem is metadata.captureCoordinateSystem (§3.1).
type CoordinateSystem string

const (
	CoordinateCSSPixels    CoordinateSystem = "css-pixels"
	CoordinateDevicePixels CoordinateSystem = "device-pixels"
)

// RasterizeReason is why a node was forced through the "map or rasterize"
// fallback (§4.1.7).
type RasterizeReason string

const (
	RasterizeReasonFilter     RasterizeReason = "FILTER"
	RasterizeReasonBlendMode  RasterizeReason = "BLEND_MODE"
	RasterizeReasonUnsupported RasterizeReason = "UNSUPPORTED_VISUAL"
)

// AutoLayoutMode mirrors CSS flex-direction collapsed to the two axes the
// target auto-layout model supports.
type AutoLayoutMode string

const (
	AutoLayoutHorizontal AutoLayoutMode = "HORIZONTAL"
	AutoLayoutVertical   AutoLayoutMode = "VERTICAL"
)

// OutputFmt is unused by the core pipeline but kept for CLI surfaces that
// need to name what a bundle/broker payload contains.
type OutputFmt int

const (
	OutputFmtSceneJSON OutputFmt = iota
	OutputFmtSceneBundle
)

func (o OutputFmt) String() string {
	switch o {
	case OutputFmtSceneJSON:
		return "scene-json"
	case OutputFmtSceneBundle:
		return "scene-bundle"
	default:
		return fmt.Sprintf("OutputFmt(%d)", int(o))
	}
}
