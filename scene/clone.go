package scene

// Clone and deep copy functions for SceneSchema. The Enhancer needs these to
// honor §3.3's "Enhancer produces a new schema, never mutates the input" —
// the same reason fbc's fb2/clone.go gives FictionBook a deep copy: callers
// must be able to hold an unmodified original alongside a derived one.

// Clone returns a deep copy of s. A nil receiver clones to nil.
func (s *SceneSchema) Clone() *SceneSchema {
	if s == nil {
		return nil
	}
	clone := &SceneSchema{
		Version:  s.Version,
		Metadata: s.Metadata,
		Root:     s.Root.Clone(),
		Assets:   cloneAssetRegistry(s.Assets),
		Styles:   cloneStyleRegistry(s.Styles),
	}
	if s.Components != nil {
		c := cloneComponentRegistry(*s.Components)
		clone.Components = &c
	}
	if s.Tokens != nil {
		t := cloneDesignTokenRegistry(*s.Tokens)
		clone.Tokens = &t
	}
	if s.Variants != nil {
		clone.Variants = make(map[string]Variant, len(s.Variants))
		for k, v := range s.Variants {
			clone.Variants[k] = cloneVariant(v)
		}
	}
	return clone
}

// Clone returns a deep copy of n, including all descendants. The copy is
// not complete below the node's own slices: n.ImageFilters,
// n.LayoutContext.ZIndex, TextStyle.OriginalFontSize, and each Paint's Stops
// and ImageFilters are shared with n, not duplicated.
func (n *AnalyzedNode) Clone() *AnalyzedNode {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Fills = cloneSlice(n.Fills)
	clone.Strokes = cloneStrokes(n.Strokes)
	clone.Effects = cloneSlice(n.Effects)

	if n.AbsoluteTransform != nil {
		t := *n.AbsoluteTransform
		clone.AbsoluteTransform = &t
	}
	if n.TextStyle != nil {
		ts := *n.TextStyle
		ts.FontFallbacks = cloneSlice(n.TextStyle.FontFallbacks)
		clone.TextStyle = &ts
	}
	if n.IntrinsicSize != nil {
		is := *n.IntrinsicSize
		clone.IntrinsicSize = &is
	}
	if n.AutoLayout != nil {
		al := *n.AutoLayout
		clone.AutoLayout = &al
	}
	if n.Rasterize != nil {
		r := *n.Rasterize
		clone.Rasterize = &r
	}
	if n.MLClassification != nil {
		mc := *n.MLClassification
		clone.MLClassification = &mc
	}
	if n.SuggestedAutoLayout != nil {
		sal := *n.SuggestedAutoLayout
		clone.SuggestedAutoLayout = &sal
	}

	if n.Children != nil {
		clone.Children = make([]*AnalyzedNode, len(n.Children))
		for i, c := range n.Children {
			clone.Children[i] = c.Clone()
		}
	}
	return &clone
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneStrokes(in []Stroke) []Stroke {
	if in == nil {
		return nil
	}
	out := make([]Stroke, len(in))
	for i, s := range in {
		out[i] = Stroke{
			Paints: cloneSlice(s.Paints),
			Weight: s.Weight,
			Align:  s.Align,
		}
		if s.SideWeights != nil {
			sw := *s.SideWeights
			out[i].SideWeights = &sw
		}
	}
	return out
}

func cloneAssetRegistry(in AssetRegistry) AssetRegistry {
	out := AssetRegistry{
		Images: make(map[string]AssetImage, len(in.Images)),
		Fonts:  make(map[string]AssetFont, len(in.Fonts)),
	}
	for k, v := range in.Images {
		v.Bytes = cloneSlice(v.Bytes)
		out.Images[k] = v
	}
	for k, v := range in.Fonts {
		v.Weights = cloneSlice(v.Weights)
		v.Styles = cloneSlice(v.Styles)
		out.Fonts[k] = v
	}
	return out
}

func cloneStyleRegistry(in StyleRegistry) StyleRegistry {
	out := StyleRegistry{
		Colors:     make(map[string]ColorStyle, len(in.Colors)),
		TextStyles: make(map[string]TextStyleEntry, len(in.TextStyles)),
		Effects:    make(map[string]EffectStyle, len(in.Effects)),
	}
	for k, v := range in.Colors {
		out.Colors[k] = v
	}
	for k, v := range in.TextStyles {
		out.TextStyles[k] = v
	}
	for k, v := range in.Effects {
		v.Effects = cloneSlice(v.Effects)
		out.Effects[k] = v
	}
	return out
}

func cloneComponentRegistry(in ComponentRegistry) ComponentRegistry {
	out := ComponentRegistry{Definitions: make(map[string]ComponentDefinition, len(in.Definitions))}
	for k, v := range in.Definitions {
		out.Definitions[k] = v
	}
	return out
}

func cloneDesignTokenRegistry(in DesignTokenRegistry) DesignTokenRegistry {
	out := DesignTokenRegistry{
		Variables: make(map[string]DesignTokenVariable, len(in.Variables)),
		Aliases:   make(map[string]string, len(in.Aliases)),
	}
	for k, v := range in.Variables {
		v.Scope = cloneSlice(v.Scope)
		v.References = cloneSlice(v.References)
		out.Variables[k] = v
	}
	for k, v := range in.Aliases {
		out.Aliases[k] = v
	}
	return out
}

func cloneVariant(in Variant) Variant {
	out := in
	if in.Delta != nil {
		out.Delta = make(map[string]interface{}, len(in.Delta))
		for k, v := range in.Delta {
			out.Delta[k] = v
		}
	}
	return out
}
