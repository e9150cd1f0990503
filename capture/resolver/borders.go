package resolver

import (
	"strconv"
	"strings"

	"domcast/capture"
	"domcast/common"
	"domcast/css"
	"domcast/scene"
)

// resolveBorders maps the four border-*-width/color/style properties to
// AnalyzedNode.Strokes (§4.1.3 "Borders"). Asymmetric weights are carried via
// SideWeights; a difference in color or style between sides has no schema
// representation and forces rasterization instead.
func resolveBorders(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	sides := [4]string{"top", "right", "bottom", "left"}
	var widths [4]float64
	var colors [4]string
	var styles [4]string
	any := false

	for i, side := range sides {
		w, _ := css.ParseLength(style.Get("border-" + side + "-width"))
		widths[i] = w
		colors[i] = style.Get("border-" + side + "-color")
		styles[i] = style.Get("border-" + side + "-style")
		if w > 0 && styles[i] != "" && styles[i] != "none" {
			any = true
		}
	}
	if !any {
		return
	}

	sameColor := colors[0] == colors[1] && colors[1] == colors[2] && colors[2] == colors[3]
	sameStyle := styles[0] == styles[1] && styles[1] == styles[2] && styles[2] == styles[3]
	if !sameColor || !sameStyle {
		node.Rasterize = &scene.Rasterize{Reason: common.RasterizeReasonUnsupported}
		return
	}

	paints := []scene.Paint{{Type: common.PaintSolid, Color: colors[0], Opacity: 1, Visible: true}}

	uniform := widths[0] == widths[1] && widths[1] == widths[2] && widths[2] == widths[3]
	var sw *scene.SideWeights
	weight := widths[0]
	if !uniform {
		sw = &scene.SideWeights{Top: widths[0], Right: widths[1], Bottom: widths[2], Left: widths[3]}
		weight = maxOf(widths[:])
	}

	node.Strokes = []scene.Stroke{{
		Paints:      paints,
		Weight:      weight,
		Align:       common.StrokeInside,
		SideWeights: sw,
	}}
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// boxShadowEntry is one parsed box-shadow layer, in declaration order.
type boxShadowEntry struct {
	offsetX, offsetY, blur, spread float64
	color                          string
	inset                          bool
}

func parseBoxShadow(raw string) []boxShadowEntry {
	if raw == "" || raw == "none" {
		return nil
	}
	var out []boxShadowEntry
	for _, layer := range splitTopLevelComma(raw) {
		layer = strings.TrimSpace(layer)
		if layer == "" {
			continue
		}
		entry := boxShadowEntry{}
		var nums []float64
		var colorParts []string
		for _, tok := range splitTopLevelSpaceRes(layer) {
			if tok == "inset" {
				entry.inset = true
				continue
			}
			if v, unit := css.ParseLength(tok); unit != "" || isNumericToken(tok) {
				nums = append(nums, v)
				continue
			}
			colorParts = append(colorParts, tok)
		}
		for i, v := range nums {
			switch i {
			case 0:
				entry.offsetX = v
			case 1:
				entry.offsetY = v
			case 2:
				entry.blur = v
			case 3:
				entry.spread = v
			}
		}
		entry.color = strings.Join(colorParts, " ")
		out = append(out, entry)
	}
	return out
}

func isNumericToken(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// splitTopLevelComma splits on top-level commas only, respecting nested
// parens (so an rgba(...) color inside a box-shadow layer list stays intact).
func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// splitTopLevelSpaceRes splits on whitespace outside nested parens.
func splitTopLevelSpaceRes(s string) []string {
	var out []string
	depth := 0
	start := -1
	isSpace := func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case isSpace(r) && depth == 0:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 && !isSpace(r) {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}
