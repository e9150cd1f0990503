package resolver

import (
	"strings"

	"domcast/capture"
	"domcast/common"
	"domcast/css"
	"domcast/scene"
)

// resolveEffects maps box-shadow and filter to AnalyzedNode.Effects
// (§4.1.3 "Effects", §4.1.7 rule 1 "any other filter function forces
// rasterization").
func resolveEffects(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	for _, entry := range parseBoxShadow(style.Get("box-shadow")) {
		effType := common.EffectDropShadow
		if entry.inset {
			effType = common.EffectInnerShadow
		}
		node.Effects = append(node.Effects, scene.Effect{
			Type:    effType,
			Color:   entry.color,
			OffsetX: entry.offsetX,
			OffsetY: entry.offsetY,
			Radius:  entry.blur,
			Spread:  entry.spread,
			Visible: true,
		})
	}

	filter := strings.TrimSpace(style.Get("filter"))
	if filter == "" || filter == "none" {
		return
	}
	for _, fn := range css.ParseFunctionList(filter) {
		switch fn.Name {
		case "blur":
			radius, _ := css.ParseLength(firstArg(fn.Args))
			node.Effects = append(node.Effects, scene.Effect{Type: common.EffectLayerBlur, Radius: radius, Visible: true})
		case "drop-shadow":
			parts := splitTopLevelSpaceRes(strings.Join(fn.Args, " "))
			node.Effects = append(node.Effects, dropShadowFromFilterArgs(parts))
		case "brightness", "contrast", "saturate":
			// On an IMAGE node these are representable as a paint filter
			// (§4.1.7 rule 1 carve-out); everywhere else they still force
			// rasterization along with hue-rotate/invert/sepia/url(#...).
			if node.Type == common.NodeImage {
				applyImagePaintFilter(node, fn.Name, parseFilterAmount(firstArg(fn.Args)))
				continue
			}
			node.Rasterize = &scene.Rasterize{Reason: common.RasterizeReasonFilter}
		default:
			// hue-rotate, invert, sepia, grayscale, url(#svg-filter): no
			// target effect or paint-filter equivalent for any node type.
			node.Rasterize = &scene.Rasterize{Reason: common.RasterizeReasonFilter}
		}
	}
}

// parseFilterAmount reads a filter function's unitless or percentage
// multiplier argument, defaulting to 1 (unchanged) per the CSS spec when the
// argument is missing or malformed.
func parseFilterAmount(arg string) float64 {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 1
	}
	if strings.HasSuffix(arg, "%") {
		v, _ := css.ParseLength(strings.TrimSuffix(arg, "%"))
		return v / 100
	}
	v, unit := css.ParseLength(arg)
	if unit != "" {
		return 1
	}
	return v
}

// applyImagePaintFilter folds a representable brightness/contrast/saturate
// filter function into the node's ImageFilters (§4.1.3 "Images"), creating
// it on first use.
func applyImagePaintFilter(node *scene.AnalyzedNode, fn string, amount float64) {
	if node.ImageFilters == nil {
		node.ImageFilters = &scene.ImageFilters{Brightness: 1, Contrast: 1, Saturate: 1}
	}
	switch fn {
	case "brightness":
		node.ImageFilters.Brightness = amount
	case "contrast":
		node.ImageFilters.Contrast = amount
	case "saturate":
		node.ImageFilters.Saturate = amount
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func dropShadowFromFilterArgs(parts []string) scene.Effect {
	eff := scene.Effect{Type: common.EffectDropShadow, Visible: true}
	var nums []float64
	var colorParts []string
	for _, p := range parts {
		if v, unit := css.ParseLength(p); unit != "" || isNumericToken(p) {
			nums = append(nums, v)
			continue
		}
		colorParts = append(colorParts, p)
	}
	for i, v := range nums {
		switch i {
		case 0:
			eff.OffsetX = v
		case 1:
			eff.OffsetY = v
		case 2:
			eff.Radius = v
		}
	}
	eff.Color = strings.Join(colorParts, " ")
	return eff
}
