package importer

import (
	"context"
	"math"
	"testing"

	"domcast/common"
	"domcast/importer/importertest"
	"domcast/scene"
)

// TestScaleInvariance covers §8's "Scale invariance" law: capturing the same
// viewport in css-pixels vs device-pixels mode must import to the same
// final geometry within 1 pixel per edge.
func TestScaleInvariance(t *testing.T) {
	build := func(coordSystem common.CoordinateSystem, scale float64) *importertest.Node {
		child := &scene.AnalyzedNode{
			ID: "box", Name: "box", HTMLTag: "div", Type: common.NodeRectangle,
			AbsoluteLayout: scene.Rect{Left: 20 * scale, Top: 30 * scale, Width: 100 * scale, Height: 50 * scale},
			Fills:          []scene.Paint{{Type: common.PaintSolid, Color: "#000000FF", Opacity: 1, Visible: true}},
		}
		root := &scene.AnalyzedNode{
			ID: "root", Name: "viewport", HTMLTag: "html", Type: common.NodeFrame,
			AbsoluteLayout: scene.Rect{Width: 1000 * scale, Height: 800 * scale},
			Children:       []*scene.AnalyzedNode{child},
		}
		schema := &scene.SceneSchema{
			Version: scene.SchemaVersion,
			Metadata: scene.Metadata{
				Viewport:                scene.Viewport{Width: 1000 * scale, Height: 800 * scale},
				CaptureCoordinateSystem: coordSystem,
				ScreenshotScale:         scale,
			},
			Root: root,
			Assets: scene.AssetRegistry{Images: map[string]scene.AssetImage{}, Fonts: map[string]scene.AssetFont{}},
			Styles: scene.StyleRegistry{
				Colors: map[string]scene.ColorStyle{}, TextStyles: map[string]scene.TextStyleEntry{}, Effects: map[string]scene.EffectStyle{},
			},
		}
		api := importertest.New()
		if _, err := Build(context.Background(), api, schema, DefaultOptions()); err != nil {
			t.Fatalf("Build(%s, scale=%g): %v", coordSystem, scale, err)
		}
		return api.Pages[0].Children[0].Children[0]
	}

	css := build(common.CoordinateCSSPixels, 1)
	device := build(common.CoordinateDevicePixels, 2)

	check := func(name string, a, b float64) {
		if math.Abs(a-b) > 1 {
			t.Errorf("%s differs by more than 1px: css=%g device=%g", name, a, b)
		}
	}
	check("x", css.X, device.X)
	check("y", css.Y, device.Y)
	check("width", css.Width, device.Width)
	check("height", css.Height, device.Height)
}
