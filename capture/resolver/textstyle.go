package resolver

import (
	"strconv"
	"strings"

	"domcast/capture"
	"domcast/css"
	"domcast/scene"
)

// resolveTextStyle maps the font-*/line-height/text-* computed properties to
// scene.TextStyle (§4.1.6 "Text"). style is nil for a text node whose parent
// element itself had no computed style (degenerate, but defended against).
func resolveTextStyle(style capture.ComputedStyle) *scene.TextStyle {
	if style == nil {
		return &scene.TextStyle{FontFamily: "sans-serif", FontWeight: 400, FontSize: 16, LineHeight: 19.2, TextAlign: "left"}
	}

	family, fallbacks := splitFontFamily(style.Get("font-family"))

	weight := 400
	if w := style.Get("font-weight"); w != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(w)); err == nil {
			weight = v
		} else {
			weight = namedFontWeight(w)
		}
	}

	fontSize, _ := css.ParseLength(style.Get("font-size"))
	if fontSize == 0 {
		fontSize = 16
	}

	lineHeight := resolveLineHeight(style.Get("line-height"), fontSize)

	letterSpacing := 0.0
	if ls := style.Get("letter-spacing"); ls != "" && ls != "normal" {
		letterSpacing, _ = css.ParseLength(ls)
	}

	return &scene.TextStyle{
		FontFamily:     family,
		FontFallbacks:  fallbacks,
		FontWeight:     weight,
		FontStyle:      orDefault(style.Get("font-style"), "normal"),
		FontSize:       fontSize,
		LineHeight:     lineHeight,
		LetterSpacing:  letterSpacing,
		TextDecoration: noneAsEmpty(style.Get("text-decoration-line")),
		TextAlign:      orDefault(style.Get("text-align"), "left"),
		TextCase:       noneAsEmpty(style.Get("text-transform")),
		TextAutoResize: "NONE",
	}
}

func splitFontFamily(raw string) (family string, fallbacks []string) {
	if raw == "" {
		return "sans-serif", nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	if len(parts) == 0 {
		return "sans-serif", nil
	}
	return parts[0], parts[1:]
}

func namedFontWeight(w string) int {
	switch strings.ToLower(strings.TrimSpace(w)) {
	case "bold":
		return 700
	case "bolder":
		return 800
	case "lighter":
		return 300
	default:
		return 400
	}
}

// resolveLineHeight normalizes `line-height` to CSS pixels: "normal" falls
// back to 1.2x font size (the common UA default), a bare number is a
// font-size multiplier, anything else is parsed as a length (§4.1.6
// "line-height normalized to CSS px").
func resolveLineHeight(raw string, fontSize float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "normal" {
		return fontSize * 1.2
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v * fontSize
	}
	v, _ := css.ParseLength(raw)
	return v
}

func noneAsEmpty(s string) string {
	if s == "none" {
		return ""
	}
	return s
}
