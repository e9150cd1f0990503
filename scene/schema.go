// Package scene defines the canonical SceneSchema document (§3): the single
// contract shared by the capture agent, the broker, the enhancer, and the
// importer. Every other package either produces one (capture/*), transports
// one opaquely (broker, bundle), rewrites one (enhancer), or consumes one
// without mutating it (importer).
package scene

import "domcast/common"

const SchemaVersion = "1.0.0"

// SceneSchema is the root document (§3.1).
type SceneSchema struct {
	Version    string             `json:"version"`
	Metadata   Metadata           `json:"metadata"`
	Root       *AnalyzedNode      `json:"root"`
	Assets     AssetRegistry      `json:"assets"`
	Styles     StyleRegistry      `json:"styles"`
	Components *ComponentRegistry `json:"components,omitempty"`
	Variants   map[string]Variant `json:"variants,omitempty"`
	Tokens     *DesignTokenRegistry `json:"tokens,omitempty"`
}

// Viewport describes the captured viewport (§3.1 metadata.viewport).
type Viewport struct {
	Width                 float64 `json:"width"`
	Height                float64 `json:"height"`
	DevicePixelRatio      float64 `json:"devicePixelRatio"`
	LayoutViewportWidth   float64 `json:"layoutViewportWidth"`
	LayoutViewportHeight  float64 `json:"layoutViewportHeight"`
	ScrollHeight          float64 `json:"scrollHeight"`
}

// Metadata is SceneSchema.metadata (§3.1).
type Metadata struct {
	URL                     string                  `json:"url"`
	Title                   string                  `json:"title"`
	CapturedAt              string                  `json:"capturedAt"`
	Viewport                Viewport                `json:"viewport"`
	CaptureCoordinateSystem common.CoordinateSystem `json:"captureCoordinateSystem"`
	ScreenshotScale         float64                 `json:"screenshotScale"`
	Incomplete              bool                    `json:"incomplete,omitempty"`
}

// Rect is a layout rectangle in capture coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutContext is AnalyzedNode.layoutContext (§3.1).
type LayoutContext struct {
	Position         string `json:"position"`
	ZIndex           *int   `json:"zIndex,omitempty"`
	Overflow         string `json:"overflow"`
	Transform        string `json:"transform,omitempty"`
	StackingContext  bool   `json:"stackingContext"`
}

// Matrix3x2 is the schema's JSON-friendly 2x3 affine transform, laid out
// [a, b, c, d, tx, ty] per §3.1.
type Matrix3x2 [6]float64

// TransformOrigin is a 0..1 fraction within the node's box.
type TransformOrigin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AbsoluteTransform is present iff the node's transform is non-identity.
type AbsoluteTransform struct {
	Matrix Matrix3x2       `json:"matrix"`
	Origin TransformOrigin `json:"origin"`
}

// Paint is one entry in a Fills or Strokes list.
type Paint struct {
	Type         common.PaintType `json:"type"`
	Color        string           `json:"color,omitempty"`        // SOLID, "#rrggbbaa" or "rgba(...)"
	Stops        []GradientStop   `json:"stops,omitempty"`        // GRADIENT_*
	Angle        float64          `json:"angle,omitempty"`        // GRADIENT_LINEAR
	ImageHash    string           `json:"imageHash,omitempty"`    // IMAGE
	ImageFit     common.ImageFit  `json:"imageFit,omitempty"`     // IMAGE
	ImageFilters *ImageFilters    `json:"imageFilters,omitempty"` // IMAGE
	Opacity      float64          `json:"opacity"`
	Visible      bool             `json:"visible"`
}

// GradientStop is one color stop in a gradient paint.
type GradientStop struct {
	Offset float64 `json:"offset"` // 0..1
	Color  string  `json:"color"`
}

// SideWeights carries asymmetric stroke weights (§4.1.3 "per-side weights").
type SideWeights struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Stroke is AnalyzedNode.strokes (§3.1).
type Stroke struct {
	Paints      []Paint             `json:"paints"`
	Weight      float64             `json:"strokeWeight"`
	Align       common.StrokeAlign  `json:"strokeAlign"`
	SideWeights *SideWeights        `json:"sideWeights,omitempty"`
}

// Effect is one entry in AnalyzedNode.effects (§3.1).
type Effect struct {
	Type    common.EffectType `json:"type"`
	Color   string            `json:"color,omitempty"`
	OffsetX float64           `json:"offsetX,omitempty"`
	OffsetY float64           `json:"offsetY,omitempty"`
	Radius  float64           `json:"radius"`
	Spread  float64           `json:"spread,omitempty"`
	Visible bool              `json:"visible"`
}

// CornerRadius is scalar or per-corner (§3.1).
type CornerRadius struct {
	TopLeft     float64 `json:"topLeft"`
	TopRight    float64 `json:"topRight"`
	BottomRight float64 `json:"bottomRight"`
	BottomLeft  float64 `json:"bottomLeft"`
}

// Uniform reports whether all four corners share one radius.
func (c CornerRadius) Uniform() bool {
	return c.TopLeft == c.TopRight && c.TopRight == c.BottomRight && c.BottomRight == c.BottomLeft
}

// TextStyle is AnalyzedNode.textStyle, present when Type == TEXT.
type TextStyle struct {
	FontFamily     string   `json:"fontFamily"`
	FontFallbacks  []string `json:"fontFallbacks,omitempty"`
	FontWeight     int      `json:"fontWeight"`
	FontStyle      string   `json:"fontStyle"`
	FontSize       float64  `json:"fontSize"`
	OriginalFontSize *float64 `json:"originalFontSize,omitempty"`
	LineHeight     float64  `json:"lineHeight"`
	LetterSpacing  float64  `json:"letterSpacing"`
	TextDecoration string   `json:"textDecoration,omitempty"`
	TextAlign      string   `json:"textAlign"`
	TextCase       string   `json:"textCase,omitempty"`
	TextAutoResize string   `json:"textAutoResize,omitempty"`
}

// IntrinsicSize is an image/video/canvas's natural pixel dimensions.
type IntrinsicSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageFilters holds the CSS filter() functions representable directly on an
// IMAGE node's paint instead of forcing rasterization (§4.1.7 rule 1).
// Brightness/Contrast/Saturate are the same unitless multipliers the CSS
// functions take, where 1 is unchanged; a zero value means "not set".
type ImageFilters struct {
	Brightness float64 `json:"brightness,omitempty"`
	Contrast   float64 `json:"contrast,omitempty"`
	Saturate   float64 `json:"saturate,omitempty"`
}

// Padding is autoLayout.padding.
type Padding struct {
	Top    float64 `json:"t"`
	Right  float64 `json:"r"`
	Bottom float64 `json:"b"`
	Left   float64 `json:"l"`
}

// AutoLayout is AnalyzedNode.autoLayout (§3.1), present when detected.
type AutoLayout struct {
	Mode                  common.AutoLayoutMode `json:"mode"`
	PrimaryAxisAlignItems string                `json:"primaryAxisAlignItems"`
	CounterAxisAlignItems string                `json:"counterAxisAlignItems"`
	ItemSpacing           float64               `json:"itemSpacing"`
	Padding               Padding               `json:"padding"`
}

// Rasterize is AnalyzedNode.rasterize, the "map or rasterize" fallback
// result (§4.1.7).
type Rasterize struct {
	Reason  common.RasterizeReason `json:"reason"`
	DataURL string                 `json:"dataUrl,omitempty"`
}

// MLClassification is an Enhancer-only additive annotation (§4.6).
type MLClassification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// SuggestedAutoLayout is an Enhancer hint, distinct from AutoLayout which
// the capture agent derives directly from CSS flex layout.
type SuggestedAutoLayout struct {
	Mode common.AutoLayoutMode `json:"mode"`
}

// AnalyzedNode is one schema entry per visible element (§3.1). Fields are
// grouped by the tagged-variant rule of §9: consumers switch on Type, not on
// which optional fields happen to be populated.
type AnalyzedNode struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parentId,omitempty"`
	Name     string          `json:"name"`
	HTMLTag  string          `json:"htmlTag"`
	Type     common.NodeType `json:"type"`

	AbsoluteLayout Rect          `json:"absoluteLayout"`
	LayoutContext  LayoutContext `json:"layoutContext"`

	AbsoluteTransform *AbsoluteTransform `json:"absoluteTransform,omitempty"`

	Fills   []Paint  `json:"fills,omitempty"`
	Strokes []Stroke `json:"strokes,omitempty"`
	Effects []Effect `json:"effects,omitempty"`

	CornerRadius CornerRadius `json:"cornerRadius"`
	ClipsContent bool         `json:"clipsContent"`

	Opacity   float64           `json:"opacity"`
	BlendMode common.BlendMode  `json:"blendMode"`
	Isolation bool              `json:"isolation"`

	Characters string     `json:"characters,omitempty"`
	TextStyle  *TextStyle `json:"textStyle,omitempty"`

	ImageHash     string         `json:"imageHash,omitempty"`
	IntrinsicSize *IntrinsicSize `json:"intrinsicSize,omitempty"`
	AspectRatio   float64        `json:"aspectRatio,omitempty"`
	ImageFit      common.ImageFit `json:"imageFit,omitempty"`
	ImageFilters  *ImageFilters  `json:"imageFilters,omitempty"`

	AutoLayout *AutoLayout `json:"autoLayout,omitempty"`

	Rasterize *Rasterize `json:"rasterize,omitempty"`

	Children []*AnalyzedNode `json:"children,omitempty"`

	CSSFilter     string `json:"cssFilter,omitempty"`
	MixBlendMode  string `json:"mixBlendMode,omitempty"`

	// Enhancer-only additive fields (§4.6). Never set by the capture agent.
	OCRText               string               `json:"ocrText,omitempty"`
	MLClassification      *MLClassification    `json:"mlClassification,omitempty"`
	SuggestedComponentType string             `json:"suggestedComponentType,omitempty"`
	SuggestedAutoLayout   *SuggestedAutoLayout `json:"suggestedAutoLayout,omitempty"`
}

// AssetImage is one entry in AssetRegistry.images.
type AssetImage struct {
	URL           string        `json:"url,omitempty"`
	DataURL       string        `json:"dataUrl,omitempty"`
	Bytes         []byte        `json:"bytes,omitempty"`
	IntrinsicSize IntrinsicSize `json:"intrinsicSize"`
	MimeType      string        `json:"mimeType"`
	HasAlpha      bool          `json:"hasAlpha"`
}

// AssetFont is one entry in AssetRegistry.fonts.
type AssetFont struct {
	Family  string   `json:"family"`
	Weights []int    `json:"weights"`
	Styles  []string `json:"styles"`
	Source  string   `json:"source,omitempty"`
}

// AssetRegistry is SceneSchema.assets (§3.1), keyed by content hash / family.
type AssetRegistry struct {
	Images map[string]AssetImage `json:"images"`
	Fonts  map[string]AssetFont  `json:"fonts"`
}

// ColorStyle is one entry in StyleRegistry.colors.
type ColorStyle struct {
	Name       string `json:"name"`
	Paint      Paint  `json:"paint"`
	UsageCount int    `json:"usageCount"`
}

// TextStyleEntry is one entry in StyleRegistry.textStyles.
type TextStyleEntry struct {
	Name       string    `json:"name"`
	TextStyle  TextStyle `json:"textStyle"`
	UsageCount int       `json:"usageCount"`
}

// EffectStyle is one entry in StyleRegistry.effects.
type EffectStyle struct {
	Name       string   `json:"name"`
	Effects    []Effect `json:"effects"`
	UsageCount int      `json:"usageCount"`
}

// StyleRegistry is SceneSchema.styles (§3.1, §4.3).
type StyleRegistry struct {
	Colors     map[string]ColorStyle     `json:"colors"`
	TextStyles map[string]TextStyleEntry `json:"textStyles"`
	Effects    map[string]EffectStyle    `json:"effects"`
}

// ComponentDefinition is one entry in ComponentRegistry.definitions (§3.1,
// §4.4).
type ComponentDefinition struct {
	MasterNodeID string `json:"masterNodeId"`
	Signature    string `json:"signature"`
}

// ComponentRegistry is SceneSchema.components (§3.1, optional).
type ComponentRegistry struct {
	Definitions map[string]ComponentDefinition `json:"definitions"`
}

// DesignTokenVariable is one entry in DesignTokenRegistry.variables.
type DesignTokenVariable struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Value      string   `json:"value"`
	Scope      []string `json:"scope,omitempty"`
	Collection string   `json:"collection,omitempty"`
	References []string `json:"references,omitempty"`
}

// DesignTokenRegistry is SceneSchema.tokens (§3.1, optional).
type DesignTokenRegistry struct {
	Variables map[string]DesignTokenVariable `json:"variables"`
	Aliases   map[string]string              `json:"aliases"`
}

// Variant is a per-element interactive-state delta (§6.4
// captureHoverStates/captureFocusStates).
type Variant struct {
	NodeID string                 `json:"nodeId"`
	State  string                 `json:"state"` // "hover" | "focus"
	Delta  map[string]interface{} `json:"delta"`
}
