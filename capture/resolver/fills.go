package resolver

import (
	"strings"

	"domcast/capture"
	"domcast/common"
	"domcast/css"
	"domcast/scene"
)

// resolveFills maps background-color and background-image layers to
// AnalyzedNode.Fills (§4.1.3 "Fills"), returning any background-image
// url(...) layers as pending AssetRefs for the Asset Acquirer. Layers are
// emitted front-to-back in CSS declaration order: background-image layers
// first (Fills[0] is the topmost), background-color last.
func resolveFills(node *scene.AnalyzedNode, style capture.ComputedStyle, nodeID string) []capture.AssetRef {
	var refs []capture.AssetRef
	var layers []scene.Paint

	bgImage := strings.TrimSpace(style.Get("background-image"))
	if bgImage != "" && bgImage != "none" {
		for i, fn := range css.ParseFunctionList(bgImage) {
			switch fn.Name {
			case "linear-gradient", "repeating-linear-gradient":
				angle, stops := css.ParseGradient(fn)
				layers = append(layers, scene.Paint{
					Type: common.PaintGradientLinear, Angle: angle, Stops: toGradientStops(stops),
					Opacity: 1, Visible: true,
				})
			case "radial-gradient", "repeating-radial-gradient":
				_, stops := css.ParseGradient(fn)
				layers = append(layers, scene.Paint{
					Type: common.PaintGradientRadial, Stops: toGradientStops(stops),
					Opacity: 1, Visible: true,
				})
			default:
				// a bare url(...) is parsed by ParseFunctionList as Func{Name: "url"}
				if fn.Name == "url" && len(fn.Args) > 0 {
					idx := i
					layers = append(layers, scene.Paint{Type: common.PaintImage, Opacity: 1, Visible: true, ImageFit: backgroundFit(style)})
					refs = append(refs, capture.AssetRef{
						URL: unquoteContent(fn.Args[0]), Kind: capture.AssetKindBackgroundImage,
						NodeID: nodeID, PaintIndex: &idx,
					})
				}
			}
		}
	}

	if bg := style.Get("background-color"); bg != "" && bg != "transparent" && !isNoneColor(bg) {
		layers = append(layers, scene.Paint{Type: common.PaintSolid, Color: bg, Opacity: 1, Visible: true})
	}

	node.Fills = layers
	return refs
}

func isNoneColor(c string) bool {
	return c == "none" || c == "rgba(0, 0, 0, 0)" || c == "rgba(0,0,0,0)"
}

func toGradientStops(stops []css.GradientStop) []scene.GradientStop {
	out := make([]scene.GradientStop, len(stops))
	for i, s := range stops {
		offset := s.Offset
		if offset < 0 {
			if len(stops) > 1 {
				offset = float64(i) / float64(len(stops)-1)
			} else {
				offset = 0
			}
		}
		out[i] = scene.GradientStop{Offset: offset, Color: s.Color}
	}
	return out
}

func backgroundFit(style capture.ComputedStyle) common.ImageFit {
	switch style.Get("background-size") {
	case "cover":
		return common.ImageFitFill
	case "contain":
		return common.ImageFitFit
	case "", "auto":
		if style.Get("background-repeat") == "repeat" {
			return common.ImageFitTile
		}
		return common.ImageFitCrop
	default:
		return common.ImageFitCrop
	}
}
