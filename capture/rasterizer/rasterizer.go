// Package rasterizer implements the "map or rasterize" fallback of §4.1.7:
// deciding whether a node's visual state can be represented in the scene
// schema at all, and if not, producing a PNG data URL for it. The primary
// path asks the host page for a native screenshot; the fallback renders
// inline SVG markup with oksvg/rasterx, the same library pairing fbc's
// utils/images.RasterizeSVGToImage uses for FB2 cover/vignette rasterization.
package rasterizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"domcast/capture"
	"domcast/common"
	"domcast/scene"
	imgutil "domcast/utils/images"
)

// Decide reports whether node (already resolved by capture/resolver) must be
// rasterized, and why, by inspecting the reason the Resolver already
// recorded on it (§4.1.7 rules 1-3: unsupported filter, unrepresentable
// blend mode, or a degenerate transform).
func Decide(rasterize *scene.Rasterize) (common.RasterizeReason, bool) {
	if rasterize == nil {
		return "", false
	}
	return rasterize.Reason, true
}

// ScreenshotFunc captures rect at the given device pixel ratio; normally
// capture.Page.CaptureElementScreenshot.
type ScreenshotFunc func(ctx context.Context, rect capture.Rect, dpr float64) ([]byte, error)

// Rasterize produces a PNG data URL for a node forced through the fallback
// path. It tries primary first (§4.1.7 "primary: ask the host for a native
// screenshot"); svgMarkup, if non-empty, is used as the oksvg/rasterx
// fallback when primary fails or is unavailable (§4.1.7 "fallback: render
// inline SVG"). The result's decoded dimensions are validated against rect
// (§4.1.7 Validation) — a wildly mismatched decode is rejected rather than
// silently accepted.
func Rasterize(ctx context.Context, rect capture.Rect, dpr float64, primary ScreenshotFunc, svgMarkup []byte) (dataURL string, err error) {
	var raw []byte
	var mime string

	if primary != nil {
		if raw, err = primary(ctx, rect, dpr); err == nil && len(raw) > 0 {
			mime = "image/png"
		}
	}

	if len(raw) == 0 && len(svgMarkup) > 0 {
		img, svgErr := imgutil.RasterizeSVGToImage(svgMarkup, int(rect.Width), int(rect.Height), 0)
		if svgErr != nil {
			return "", fmt.Errorf("svg fallback rasterization failed: %w", svgErr)
		}
		var buf bytes.Buffer
		if encErr := png.Encode(&buf, img); encErr != nil {
			return "", fmt.Errorf("encode rasterized svg: %w", encErr)
		}
		raw = buf.Bytes()
		mime = "image/png"
	}

	if len(raw) == 0 {
		return "", fmt.Errorf("no rasterization path succeeded for a %gx%g node", rect.Width, rect.Height)
	}

	if err := validateDimensions(raw, rect, dpr); err != nil {
		return "", err
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// validateDimensions rejects a decode whose size deviates from the expected
// rect*dpr by more than a generous tolerance, catching a screenshot API that
// silently returned the wrong crop (§4.1.7 Validation).
func validateDimensions(data []byte, rect capture.Rect, dpr float64) error {
	if dpr <= 0 {
		dpr = 1
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode rasterized image: %w", err)
	}
	wantW := rect.Width * dpr
	wantH := rect.Height * dpr
	if wantW <= 0 || wantH <= 0 {
		return nil
	}
	const tolerance = 0.5 // allow up to 50% deviation before rejecting
	gotW, gotH := float64(cfg.Width), float64(cfg.Height)
	if gotW < wantW*(1-tolerance) || gotW > wantW*(1+tolerance) ||
		gotH < wantH*(1-tolerance) || gotH > wantH*(1+tolerance) {
		return fmt.Errorf("rasterized image %dx%d does not match expected ~%.0fx%.0f", cfg.Width, cfg.Height, wantW, wantH)
	}
	return nil
}
