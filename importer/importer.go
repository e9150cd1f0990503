// Package importer implements the Node Builder (component H, §4.7-§4.9): it
// walks a validated scene.SceneSchema and drives a host-supplied NodeAPI to
// reconstruct the capture as editable design-tool nodes. The package never
// mutates the schema it is given.
//
// Decomposition mirrors convert/kfx's one-file-per-concern fragment builder
// (style_registry.go, frag_font.go, frag_resource.go, linearize.go,
// debug_tree.go), re-targeted from KFX's Amazon-ION fragment model to a
// generic, injectable design-tool node API.
package importer

import (
	"context"

	"go.uber.org/zap"

	"domcast/common"
	"domcast/scene"
)

// NodeAPI is the host environment's scriptable design-tool surface (§4.7.1).
// Implementations are out of scope for this repository — only the contract
// is specified; importer/importertest provides a fake for tests.
type NodeAPI interface {
	// CreateNode creates a detached node of the given kind, returning a
	// host-defined handle used by every other method below.
	CreateNode(kind common.NodeType, name string) (any, error)
	// Attach reparents child under parent.
	Attach(child, parent any) error
	// Resize sets a node's untransformed width/height.
	Resize(node any, width, height float64) error
	// SetTransform installs a relative 2x3 affine transform.
	SetTransform(node any, m scene.Matrix3x2) error
	// SetEffects replaces a node's shadow/blur effect stack.
	SetEffects(node any, effects []scene.Effect) error
	// SetBlendMode sets a node's blend mode.
	SetBlendMode(node any, mode common.BlendMode) error
	// SetFills replaces a node's fill paint stack. imageHandles is parallel
	// to fills: imageHandles[i] is the handle UploadImage returned for
	// fills[i] when fills[i].Type is PaintImage, and nil otherwise, so a
	// real implementation can bind the uploaded image to the paint slot
	// that references it instead of re-deriving it from ImageHash.
	SetFills(node any, fills []scene.Paint, imageHandles []any) error
	// SetStrokes replaces a node's stroke paint stack.
	SetStrokes(node any, strokes []scene.Stroke) error
	// SetCornerRadius sets per-corner radii.
	SetCornerRadius(node any, r scene.CornerRadius) error
	// SetAutoLayout enables or (when al is nil) disables auto-layout.
	SetAutoLayout(node any, al *scene.AutoLayout) error
	// Position sets a node's x/y relative to its parent.
	Position(node any, x, y float64) error
	// LoadFont makes (family, style) available for subsequent text nodes,
	// returning a host-defined font handle.
	LoadFont(family, style string) (any, error)
	// UploadImage uploads raw image bytes once, returning an image handle
	// that can be referenced by subsequent IMAGE paints.
	UploadImage(data []byte, mimeType string) (any, error)
	// CreatePage creates the top-level page/artboard that the root frame is
	// attached to.
	CreatePage(name string, width, height float64) (any, error)
}

// FailedNode records a per-node build failure (§4.9): the import continues
// past it rather than aborting.
type FailedNode struct {
	NodeID string
	Err    error
}

// Stats is importer.Build's bookkeeping output (§4.7.1 "{ pageId, stats }").
type Stats struct {
	NodesCreated int
	FailedNodes  []FailedNode
}

// Result is importer.Build's return value.
type Result struct {
	PageID any
	Stats  Stats
}

// Options configures a single Build call.
type Options struct {
	Log *zap.Logger
	// PlaceholderColor fills a node whose asset handle failed to create
	// (§4.9 "placeholder solid fill (neutral gray)").
	PlaceholderColor string
}

func DefaultOptions() Options {
	return Options{Log: zap.NewNop(), PlaceholderColor: "#CCCCCCFF"}
}

// Build reconstructs schema as editable nodes via api (§4.7.1). It fails
// fast only on a version mismatch; every other error is per-node (§4.9).
func Build(ctx context.Context, api NodeAPI, schema *scene.SceneSchema, opts Options) (Result, error) {
	if schema == nil || schema.Root == nil {
		return Result{}, common.NewError(common.ErrIncompatibleSchema, "schema has no root")
	}
	if schema.Version != scene.SchemaVersion {
		return Result{}, common.NewError(common.ErrIncompatibleSchema,
			"schema version "+schema.Version+" incompatible with importer "+scene.SchemaVersion)
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.PlaceholderColor == "" {
		opts.PlaceholderColor = "#CCCCCCFF"
	}

	assets := collectAssetBytes(schema)

	b := &builder{
		ctx:    ctx,
		api:    api,
		opts:   opts,
		factor: RescaleFactor(schema.Metadata),
		fonts:  newFontCache(api, opts.Log),
		images: newImageCache(api),
		styles: NewStyleRegistry(),
		stats:  &Stats{},
		assets: assets,
		index:  scene.BuildIndex(schema),
	}
	b.styles.LoadSchema(schema.Styles)

	if err := b.fonts.preload(schema.Root); err != nil {
		opts.Log.Warn("font preload reported failures", zap.Error(err))
	}

	pageID, err := api.CreatePage(schema.Metadata.Title, schema.Root.AbsoluteLayout.Width/b.factor, schema.Root.AbsoluteLayout.Height/b.factor)
	if err != nil {
		return Result{}, common.WrapError(common.ErrNodeBuildFailed, "create page", err)
	}

	b.buildNode(schema.Root, pageID, nil)

	return Result{PageID: pageID, Stats: *b.stats}, nil
}

type builder struct {
	ctx    context.Context
	api    NodeAPI
	opts   Options
	factor float64
	fonts  *fontCache
	images *imageCache
	styles *StyleRegistry
	stats  *Stats
	assets map[string][]byte
	index  *scene.Index
}

func (b *builder) fail(nodeID string, err error) {
	b.stats.FailedNodes = append(b.stats.FailedNodes, FailedNode{NodeID: nodeID, Err: err})
	b.opts.Log.Warn("node build failed", zap.String("nodeId", nodeID), zap.Error(err))
}
