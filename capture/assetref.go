package capture

// AssetKind is what kind of visual resource an AssetRef points at (§4.1.4).
type AssetKind string

const (
	AssetKindImg             AssetKind = "img"
	AssetKindVideoPoster     AssetKind = "video-poster"
	AssetKindCanvas          AssetKind = "canvas"
	AssetKindBackgroundImage AssetKind = "background-image"
	AssetKindSVG             AssetKind = "svg"
	AssetKindFont            AssetKind = "font"
)

// AssetRef is a pending asset acquisition the Resolver discovered on a node
// but did not itself fetch — fetching crosses a suspension point (§5) and
// is the Asset Acquirer's (D) job, so the Resolver only records where the
// result needs to land once acquired.
type AssetRef struct {
	URL    string
	Kind   AssetKind
	NodeID string
	// PaintIndex, if non-nil, is the index into the node's Fills slice this
	// asset's hash belongs in (a background-image layer). A nil PaintIndex
	// means the asset belongs directly on the node (an IMAGE-typed node's
	// ImageHash/IntrinsicSize).
	PaintIndex *int
}
