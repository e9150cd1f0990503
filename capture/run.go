// Run wires components A-F (§4.1, §4.2) into the single entrypoint a host
// binary calls: stabilize the page, walk its DOM, resolve each node's style
// and geometry, rasterize what cannot be mapped, acquire assets, and
// assemble everything into one scene.SceneSchema. It is the capture-side
// analogue of convert/run.go's Convert — one function a cmd package drives
// without needing to know the A-F subpackage wiring itself.
package capture

import (
	"context"
	"time"

	"go.uber.org/zap"

	"domcast/capture/assembler"
	"domcast/capture/assets"
	"domcast/capture/rasterizer"
	"domcast/capture/resolver"
	"domcast/capture/stabilizer"
	"domcast/capture/traverser"
	"domcast/common"
	"domcast/scene"
)

// RunOptions configures one end-to-end capture (§6.4's capture options,
// restricted to the fields this entrypoint needs; viewport/multi-viewport
// fan-out is the caller's responsibility since it is just N calls to Run).
type RunOptions struct {
	Stabilizer        stabilizer.Options
	Traverser         traverser.Options
	CoordinateSystem  common.CoordinateSystem
	AssetConcurrency  int
	AssemblerOptions  assembler.Options
	RasterizeScale    float64
	Log               *zap.Logger
}

// DefaultRunOptions returns the built-in capture defaults. Its node cap
// (50000), asset concurrency (6) and rasterize scale (1) differ from the
// capture section of config.yaml.tmpl (20000, 8 and 2.0).
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Stabilizer:       stabilizer.DefaultOptions(),
		Traverser:        traverser.Options{MaxFrameDepth: 5, MaxNodes: 50000},
		CoordinateSystem: common.CoordinateCSSPixels,
		AssetConcurrency: 6,
		AssemblerOptions: assembler.DefaultOptions(),
		RasterizeScale:   1,
		Log:              zap.NewNop(),
	}
}

// Run executes the full A-F pipeline against page and returns the assembled
// schema. On a stabilization failure it returns the typed error directly
// (§4.9 "the capture agent never silently proceeds past stabilization
// failures"); every later-stage failure is per-node/per-asset and recorded
// rather than aborting, so Run only returns a non-nil error for
// stabilization failure, an unreadable document root, or final-validation
// failure.
func Run(ctx context.Context, page Page, opts RunOptions) (*scene.SceneSchema, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	mark, err := stabilizer.Stabilize(ctx, page, opts.Stabilizer)
	if err != nil {
		return nil, err
	}
	defer mark.Cleanup()

	root, err := page.RootNode(ctx)
	if err != nil {
		return nil, common.WrapError(common.ErrRestrictedDocument, "unable to read document root", err)
	}

	seeder := traverser.NewIDSeeder()
	var results []resolver.Result
	for pair, werr := range traverser.Walk(root, seeder, opts.Traverser) {
		if werr != nil {
			log.Warn("traversal error", zap.Error(werr))
			continue
		}
		res, rerr := resolver.Resolve(pair, resolver.Options{CoordinateSystem: opts.CoordinateSystem})
		if rerr != nil {
			log.Warn("resolve error", zap.String("node", pair.NodeID), zap.Error(rerr))
			continue
		}
		results = append(results, res)
	}

	width, height, dpr := page.Viewport()
	scrollHeight, _ := page.ScrollHeight()
	meta := scene.Metadata{
		URL:        page.URL(),
		Title:      page.Title(),
		CapturedAt: time.Now().UTC().Format(time.RFC3339),
		Viewport: scene.Viewport{
			Width: width, Height: height, DevicePixelRatio: dpr,
			LayoutViewportWidth: width, LayoutViewportHeight: height,
			ScrollHeight: scrollHeight,
		},
		CaptureCoordinateSystem: opts.CoordinateSystem,
		ScreenshotScale:         1,
	}

	rasterizeForced(ctx, page, results, opts, log)

	flat := assembler.Flatten(results)
	acquirer := assets.NewAcquirer(page, opts.AssetConcurrency, log.Named("assets"))
	acquired := acquirer.AcquireAll(ctx, flat)

	return assembler.Assemble(results, acquired, meta, opts.AssemblerOptions)
}

// rasterizeForced runs the §4.1.7 fallback for every node the Resolver
// already flagged with a Rasterize reason but no DataURL yet, mutating the
// node in place — the one place in this pipeline where a node is touched
// after resolution, mirroring how assembler.applyAssets patches resolved
// hashes back onto already-resolved nodes.
func rasterizeForced(ctx context.Context, page Page, results []resolver.Result, opts RunOptions, log *zap.Logger) {
	_, _, dpr := page.Viewport()
	scale := opts.RasterizeScale
	if scale <= 0 {
		scale = dpr
	}
	for _, r := range results {
		n := r.Node
		if n == nil || n.Rasterize == nil || n.Rasterize.DataURL != "" {
			continue
		}
		rect := Rect{Left: n.AbsoluteLayout.Left, Top: n.AbsoluteLayout.Top, Width: n.AbsoluteLayout.Width, Height: n.AbsoluteLayout.Height}
		dataURL, err := rasterizer.Rasterize(ctx, rect, scale, page.CaptureElementScreenshot, nil)
		if err != nil {
			log.Warn("rasterization failed, leaving placeholder", zap.String("node", n.ID), zap.Error(err))
			continue
		}
		n.Rasterize.DataURL = dataURL
	}
}
