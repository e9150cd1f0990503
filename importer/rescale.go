package importer

import (
	"math"

	"domcast/common"
	"domcast/scene"
)

// RescaleFactor is the divisor §4.7.4 applies to every position/size before
// building, uniformly undoing a device-pixel capture's screenshotScale. A
// factor of 1 means "no rescale".
func RescaleFactor(meta scene.Metadata) float64 {
	if meta.CaptureCoordinateSystem == common.CoordinateDevicePixels && meta.ScreenshotScale > 1 {
		return meta.ScreenshotScale
	}
	return 1
}

// roundLeaf rounds a rescaled coordinate to an integer pixel (§4.7.4
// "rounded to integer pixels at the leaves"). Rounding happens only here, at
// the point values are handed to the host API, never on intermediate layout
// math.
func roundLeaf(v float64) float64 {
	return math.Round(v)
}

func rescale(v, factor float64) float64 {
	return roundLeaf(v / factor)
}
