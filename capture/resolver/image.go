package resolver

import (
	"domcast/capture"
	"domcast/common"
	"domcast/scene"
)

// resolveImageAsset derives the pending AssetRef for an IMAGE/VECTOR node
// from its src/href-bearing attribute (§4.1.3 "Images", §4.1.4 dispatch to
// the Asset Acquirer). ok is false for an <img> without src, a <video>
// without poster, and any other tag. <svg> and <canvas> always yield a ref
// with no URL, which Acquirer.Acquire rejects as an error.
func resolveImageAsset(n capture.DOMNode, nodeID string) (capture.AssetRef, bool) {
	switch n.TagName() {
	case "img":
		if src, ok := n.Attr("src"); ok && src != "" {
			return capture.AssetRef{URL: src, Kind: capture.AssetKindImg, NodeID: nodeID}, true
		}
	case "svg":
		// inline <svg> has no URL; the Asset Acquirer does not serialize
		// its markup, so this ref fails acquisition.
		return capture.AssetRef{Kind: capture.AssetKindSVG, NodeID: nodeID}, true
	case "video":
		if poster, ok := n.Attr("poster"); ok && poster != "" {
			return capture.AssetRef{URL: poster, Kind: capture.AssetKindVideoPoster, NodeID: nodeID}, true
		}
	case "canvas":
		return capture.AssetRef{Kind: capture.AssetKindCanvas, NodeID: nodeID}, true
	}
	return capture.AssetRef{}, false
}

// resolveImageFit maps CSS object-fit to common.ImageFit per the §4.1.5
// table: fill->FILL, contain->FIT, cover->FILL (cover clips rather than
// tiling, so FILL is the closer target-model match than CROP), none->CROP,
// scale-down->FIT.
func resolveImageFit(node *scene.AnalyzedNode, style capture.ComputedStyle) {
	switch style.Get("object-fit") {
	case "fill":
		node.ImageFit = common.ImageFitFill
	case "contain":
		node.ImageFit = common.ImageFitFit
	case "cover":
		node.ImageFit = common.ImageFitFill
	case "none":
		node.ImageFit = common.ImageFitCrop
	case "scale-down":
		node.ImageFit = common.ImageFitFit
	default:
		node.ImageFit = common.ImageFitFill
	}
}
