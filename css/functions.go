package css

import (
	"strconv"
	"strings"
)

// Func is one parsed CSS function-notation value, e.g. `rgba(0,0,0,.3)` or
// `linear-gradient(45deg, red, blue)`: a lowercase Name plus its raw,
// comma-split Args (each still carrying its own nested parens/units
// unparsed — callers reach for the specific parse helper below once they
// know which function they have).
type Func struct {
	Name string
	Args []string
}

// ParseFunctionList splits a computed-style value like
// `blur(3px) drop-shadow(0 2px 4px rgba(0,0,0,.3))` into one Func per
// space-separated function call (§4.1.7 "Parse filter into a function
// list"). Whitespace-only gaps between top-level function calls are the
// separator; nothing else in a `filter`/`transform` value is valid outside
// a function call.
func ParseFunctionList(value string) []Func {
	var out []Func
	depth := 0
	start := -1
	for i, r := range value {
		switch r {
		case '(':
			if depth == 0 {
				// name starts at the most recent non-space run before '('
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start >= 0 {
				if fn, ok := parseOneFunc(value[start : i+1]); ok {
					out = append(out, fn)
				}
				start = -1
			}
		default:
			if depth == 0 && start < 0 && !isSpace(r) {
				start = i
			}
		}
	}
	return out
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }

func parseOneFunc(s string) (Func, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Func{}, false
	}
	name := strings.ToLower(strings.TrimSpace(s[:open]))
	argsStr := s[open+1 : len(s)-1]
	return Func{Name: name, Args: splitTopLevel(argsStr, ',')}, true
}

// splitTopLevel splits s on sep, but never inside nested parentheses (so a
// gradient color-stop list like `rgba(0,0,0,.5) 10%, blue 90%` splits into
// two stops, not five fragments).
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[last:]))
	var filtered []string
	for _, p := range out {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// ParseLength parses a CSS length like "3px", "1.5em", "45deg", "50%" into
// its numeric value and unit. A bare unitless number (e.g. a gradient
// angle's unitless 0) returns unit "".
func ParseLength(s string) (float64, string) {
	return parseDimension(strings.TrimSpace(s))
}

// ParseMatrix parses a `matrix(a, b, c, d, tx, ty)` function's Args into the
// six components, in the CSS argument order (§3.1 Matrix3x2, §4.1.3
// "transform is parsed into an affine 2x3 matrix").
func ParseMatrix(args []string) ([6]float64, bool) {
	if len(args) != 6 {
		return [6]float64{}, false
	}
	var out [6]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return [6]float64{}, false
		}
		out[i] = v
	}
	return out, true
}

// ParseMatrix3D parses a `matrix3d(m0, ..., m15)` function's Args into the
// 16 column-major components CSS defines, for geom.Project3D (§4.1.3
// "matrix3d(...) is projected to its 2D submatrix").
func ParseMatrix3D(args []string) ([16]float64, bool) {
	if len(args) != 16 {
		return [16]float64{}, false
	}
	var out [16]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return [16]float64{}, false
		}
		out[i] = v
	}
	return out, true
}

// GradientStop is one parsed color/offset pair from a linear-/radial-
// gradient's argument list.
type GradientStop struct {
	Color  string
	Offset float64 // 0..1; -1 if unspecified (caller should distribute evenly)
}

// ParseGradient parses a `linear-gradient(...)` or `radial-gradient(...)`
// Func (§4.1.3 "parsed from linear-gradient(...)/radial-gradient(...)"):
// returns the angle in degrees (0 for radial, or when the first argument
// isn't an angle) and the ordered stop list.
func ParseGradient(fn Func) (angleDeg float64, stops []GradientStop) {
	args := fn.Args
	if len(args) == 0 {
		return 0, nil
	}
	first := strings.TrimSpace(args[0])
	if strings.HasSuffix(first, "deg") {
		v, _ := ParseLength(first)
		angleDeg = v
		args = args[1:]
	} else if strings.HasPrefix(first, "to ") {
		angleDeg = keywordAngle(first)
		args = args[1:]
	}
	for _, a := range args {
		stops = append(stops, parseGradientStop(a))
	}
	return angleDeg, stops
}

func keywordAngle(direction string) float64 {
	switch strings.TrimSpace(direction) {
	case "to top":
		return 0
	case "to right":
		return 90
	case "to bottom":
		return 180
	case "to left":
		return 270
	case "to top right", "to right top":
		return 45
	case "to bottom right", "to right bottom":
		return 135
	case "to bottom left", "to left bottom":
		return 225
	case "to top left", "to left top":
		return 315
	default:
		return 180 // CSS default direction is "to bottom"
	}
}

func parseGradientStop(s string) GradientStop {
	parts := splitTopLevelSpace(s)
	stop := GradientStop{Offset: -1}
	for _, p := range parts {
		if strings.HasSuffix(p, "%") {
			v, _ := ParseLength(p)
			stop.Offset = v / 100
		} else {
			stop.Color = p
		}
	}
	if stop.Color == "" && len(parts) > 0 {
		stop.Color = parts[0]
	}
	return stop
}

// splitTopLevelSpace splits on whitespace outside of nested parens, e.g.
// "rgba(0,0,0,.5) 10%" -> ["rgba(0,0,0,.5)", "10%"].
func splitTopLevelSpace(s string) []string {
	var out []string
	depth := 0
	start := -1
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
