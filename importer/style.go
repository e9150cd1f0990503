package importer

import "domcast/scene"

// StyleRegistry ports convert/kfx/style_registry.go's merge/usage-count/
// registry-order logic from KFX style symbols to scene.StyleRegistry
// entries (§4.3, component I). It gives the importer a single place to bind
// a recurring fill/text/effect fingerprint to one shared host-tool style
// object instead of recreating it on every node that carries it inline.
type StyleRegistry struct {
	colors     map[string]scene.ColorStyle
	colorOrder []string

	textStyles map[string]scene.TextStyleEntry
	textOrder  []string

	effects     map[string]scene.EffectStyle
	effectOrder []string
}

func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{
		colors:     make(map[string]scene.ColorStyle),
		textStyles: make(map[string]scene.TextStyleEntry),
		effects:    make(map[string]scene.EffectStyle),
	}
}

// LoadSchema seeds the registry from a schema's already-promoted
// StyleRegistry (§4.3 "the Importer binds to the shared style during
// reconstruction when the fingerprint matches").
func (r *StyleRegistry) LoadSchema(reg scene.StyleRegistry) {
	for name, c := range reg.Colors {
		r.RegisterColor(name, c)
	}
	for name, t := range reg.TextStyles {
		r.RegisterTextStyle(name, t)
	}
	for name, e := range reg.Effects {
		r.RegisterEffect(name, e)
	}
}

// RegisterColor adds or merges a color style, incrementing usage count on a
// repeat registration the way StyleRegistry.Register merges CSS cascade
// properties for a repeated style name.
func (r *StyleRegistry) RegisterColor(name string, c scene.ColorStyle) {
	if existing, ok := r.colors[name]; ok {
		existing.UsageCount += c.UsageCount
		if existing.UsageCount == 0 {
			existing.UsageCount = 1
		}
		r.colors[name] = existing
		return
	}
	if c.UsageCount == 0 {
		c.UsageCount = 1
	}
	r.colorOrder = append(r.colorOrder, name)
	r.colors[name] = c
}

func (r *StyleRegistry) GetColor(name string) (scene.ColorStyle, bool) {
	c, ok := r.colors[name]
	return c, ok
}

func (r *StyleRegistry) ColorNames() []string {
	return append([]string(nil), r.colorOrder...)
}

func (r *StyleRegistry) RegisterTextStyle(name string, t scene.TextStyleEntry) {
	if existing, ok := r.textStyles[name]; ok {
		existing.UsageCount += t.UsageCount
		r.textStyles[name] = existing
		return
	}
	r.textOrder = append(r.textOrder, name)
	r.textStyles[name] = t
}

func (r *StyleRegistry) GetTextStyle(name string) (scene.TextStyleEntry, bool) {
	t, ok := r.textStyles[name]
	return t, ok
}

func (r *StyleRegistry) TextStyleNames() []string {
	return append([]string(nil), r.textOrder...)
}

func (r *StyleRegistry) RegisterEffect(name string, e scene.EffectStyle) {
	if existing, ok := r.effects[name]; ok {
		existing.UsageCount += e.UsageCount
		r.effects[name] = existing
		return
	}
	r.effectOrder = append(r.effectOrder, name)
	r.effects[name] = e
}

func (r *StyleRegistry) GetEffect(name string) (scene.EffectStyle, bool) {
	e, ok := r.effects[name]
	return e, ok
}

func (r *StyleRegistry) EffectNames() []string {
	return append([]string(nil), r.effectOrder...)
}

// fillFingerprint matches a solid Paint against a promoted ColorStyle by the
// same key the capture-side assembler used to promote it: the raw color
// string. Returns ("", false) for paint kinds the registry doesn't track.
func fillFingerprint(p scene.Paint) (string, bool) {
	if p.Color == "" {
		return "", false
	}
	return p.Color, true
}
