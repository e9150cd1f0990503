package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"domcast/common"
	"domcast/scene"
)

// multiViewportGap is the CSS-pixel spacing between adjacent top-level
// frames on the synthesized page, matching the way a design tool commonly
// lays out artboards for review.
const multiViewportGap = 48.0

// BuildMultiViewport reconstructs a §4.5.4 multi-viewport envelope
// (`{multiViewport:true, captures:[{data: SceneSchema}, ...]}`) as one page
// holding one top-level frame per capture, laid out left to right in
// envelope order (§8 scenario 5, "Importer creates two top-level frames on
// one page, each 1440x900 and 390x844 respectively, each fully populated").
// Every capture is built with its own builder state (distinct rescale
// factor, font/image/style caches) since each capture is an independent
// SceneSchema that merely shares a destination page.
func BuildMultiViewport(ctx context.Context, api NodeAPI, captures []*scene.SceneSchema, opts Options) (Result, error) {
	if len(captures) == 0 {
		return Result{}, common.NewError(common.ErrIncompatibleSchema, "multi-viewport envelope has no captures")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.PlaceholderColor == "" {
		opts.PlaceholderColor = "#CCCCCCFF"
	}

	type frame struct {
		schema *scene.SceneSchema
		factor float64
		width  float64
		height float64
	}
	frames := make([]frame, 0, len(captures))
	totalWidth, maxHeight := -multiViewportGap, 0.0
	for _, s := range captures {
		if s == nil || s.Root == nil {
			continue
		}
		factor := RescaleFactor(s.Metadata)
		w := rescale(s.Root.AbsoluteLayout.Width, factor)
		h := rescale(s.Root.AbsoluteLayout.Height, factor)
		frames = append(frames, frame{schema: s, factor: factor, width: w, height: h})
		totalWidth += w + multiViewportGap
		if h > maxHeight {
			maxHeight = h
		}
	}
	if len(frames) == 0 {
		return Result{}, common.NewError(common.ErrIncompatibleSchema, "no capture in envelope has a root")
	}

	pageID, err := api.CreatePage(frames[0].schema.Metadata.Title, totalWidth, maxHeight)
	if err != nil {
		return Result{}, common.WrapError(common.ErrNodeBuildFailed, "create multi-viewport page", err)
	}

	combined := Stats{}
	offsetX := 0.0
	for i, f := range frames {
		assets := collectAssetBytes(f.schema)
		b := &builder{
			ctx:    ctx,
			api:    api,
			opts:   opts,
			factor: f.factor,
			fonts:  newFontCache(api, opts.Log),
			images: newImageCache(api),
			styles: NewStyleRegistry(),
			stats:  &Stats{},
			assets: assets,
			index:  scene.BuildIndex(f.schema),
		}
		b.styles.LoadSchema(f.schema.Styles)
		if err := b.fonts.preload(f.schema.Root); err != nil {
			opts.Log.Warn("font preload reported failures", zap.Error(err), zap.Int("capture", i))
		}

		handle, ok := b.buildNode(f.schema.Root, pageID, nil)
		if ok {
			x := offsetX + rescale(f.schema.Root.AbsoluteLayout.Left, f.factor)
			y := rescale(f.schema.Root.AbsoluteLayout.Top, f.factor)
			if err := api.Position(handle, x, y); err != nil {
				b.fail(f.schema.Root.ID, common.WrapError(common.ErrNodeBuildFailed, "position viewport frame", err))
			}
		} else {
			b.fail(fmt.Sprintf("capture[%d]", i), common.NewError(common.ErrNodeBuildFailed, "root node failed to build"))
		}

		combined.NodesCreated += b.stats.NodesCreated
		combined.FailedNodes = append(combined.FailedNodes, b.stats.FailedNodes...)
		offsetX += f.width + multiViewportGap
	}

	return Result{PageID: pageID, Stats: combined}, nil
}

func collectAssetBytes(schema *scene.SceneSchema) map[string][]byte {
	assets := make(map[string][]byte, len(schema.Assets.Images))
	for hash, img := range schema.Assets.Images {
		switch {
		case len(img.Bytes) > 0:
			assets[hash] = img.Bytes
		case img.DataURL != "":
			if _, data, err := decodeDataURL(img.DataURL); err == nil {
				assets[hash] = data
			}
		}
	}
	return assets
}
